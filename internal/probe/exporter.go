package probe

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
)

// MetricNames defines platform-specific Prometheus metric names
type MetricNames struct {
	MemoryTotal   string // Gauge: physical memory bytes
	DiskSizeBytes string // Gauge: filesystem/volume size bytes
	VolumeLabel   string // Label name for disk identifier
	FsTypeLabel   string // Label name for filesystem type (empty if the exporter has none)
}

// GetMetricNames returns metric names for the exporter that runs on goos
func GetMetricNames(goos string) MetricNames {
	switch goos {
	case "windows":
		return MetricNames{
			MemoryTotal:   "windows_cs_physical_memory_bytes",
			DiskSizeBytes: "windows_logical_disk_size_bytes",
			VolumeLabel:   "volume", // "C:", "D:", etc.
		}
	default:
		return MetricNames{
			MemoryTotal:   "node_memory_MemTotal_bytes",
			DiskSizeBytes: "node_filesystem_size_bytes",
			VolumeLabel:   "mountpoint", // "/", "/home", etc.
			FsTypeLabel:   "fstype",
		}
	}
}

// pseudo filesystems never count as physical partitions
var skipFsTypes = map[string]bool{
	"devfs":    true,
	"devtmpfs": true,
	"tmpfs":    true,
	"squashfs": true,
	"overlay":  true,
	"proc":     true,
	"sysfs":    true,
	"cgroup":   true,
	"cgroup2":  true,
}

// ExporterSystem reads memory and disk sizes from a local Prometheus exporter
// (node_exporter or windows_exporter). Everything else comes from the builtin source.
type ExporterSystem struct {
	BuiltinSystem

	exporterURL string
	logger      *zap.Logger
	httpClient  *http.Client
	goos        string
}

// NewExporterSystem creates a System that scrapes exporterURL
func NewExporterSystem(url string, logger *zap.Logger, httpClient *http.Client) *ExporterSystem {
	if httpClient == nil {
		httpClient = newHTTPClient()
	}
	return &ExporterSystem{
		exporterURL: url,
		logger:      logger,
		httpClient:  httpClient,
		goos:        runtime.GOOS,
	}
}

// newHTTPClient creates an HTTP client with short timeouts for localhost scraping
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: 5 * time.Second,
			MaxIdleConns:          2,
			IdleConnTimeout:       30 * time.Second,
		},
	}
}

func (s *ExporterSystem) TotalMemory() (uint64, error) {
	families, err := s.scrape()
	if err != nil {
		return 0, err
	}

	names := GetMetricNames(s.goos)
	family, ok := families[names.MemoryTotal]
	if !ok || len(family.Metric) == 0 {
		return 0, fmt.Errorf("metric %s not found", names.MemoryTotal)
	}
	v, ok := metricValue(family.Metric[0])
	if !ok {
		return 0, fmt.Errorf("metric %s has no value", names.MemoryTotal)
	}
	return uint64(v), nil
}

func (s *ExporterSystem) DiskTotal(path string) (uint64, error) {
	families, err := s.scrape()
	if err != nil {
		return 0, err
	}

	names := GetMetricNames(s.goos)
	volume := s.volumeName(path)
	family, ok := families[names.DiskSizeBytes]
	if !ok {
		return 0, fmt.Errorf("metric %s not found", names.DiskSizeBytes)
	}

	for _, m := range family.Metric {
		if getLabelValue(m.Label, names.VolumeLabel) != volume {
			continue
		}
		if v, ok := metricValue(m); ok {
			return uint64(v), nil
		}
	}
	return 0, fmt.Errorf("volume %s not reported by exporter", volume)
}

func (s *ExporterSystem) Partitions() ([]string, error) {
	families, err := s.scrape()
	if err != nil {
		return nil, err
	}

	names := GetMetricNames(s.goos)
	family, ok := families[names.DiskSizeBytes]
	if !ok {
		return nil, fmt.Errorf("metric %s not found", names.DiskSizeBytes)
	}

	seen := make(map[string]bool)
	var volumes []string
	for _, m := range family.Metric {
		volume := getLabelValue(m.Label, names.VolumeLabel)
		if volume == "" || seen[volume] {
			continue
		}
		if names.FsTypeLabel != "" && skipFsTypes[getLabelValue(m.Label, names.FsTypeLabel)] {
			continue
		}
		if s.goos == "windows" && !isDriveLetter(volume) {
			continue // skip HarddiskVolumeN entries without a letter
		}
		seen[volume] = true
		volumes = append(volumes, volume)
	}
	sort.Strings(volumes)

	return volumes, nil
}

// volumeName maps a filesystem path to the exporter's volume label value
func (s *ExporterSystem) volumeName(path string) string {
	if s.goos == "windows" && len(path) >= 2 && path[1] == ':' {
		return strings.ToUpper(path[:2]) // "C:\" -> "C:"
	}
	return path
}

func (s *ExporterSystem) scrape() (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequest("GET", s.exporterURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "deviceinfo-agent")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Read response body with size limit to prevent memory issues
	decoder := expfmt.NewDecoder(io.LimitReader(resp.Body, 10*1024*1024), expfmt.FmtText)

	families := make(map[string]*dto.MetricFamily)
	for {
		mf := &dto.MetricFamily{}
		err := decoder.Decode(mf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode metric family: %w", err)
		}
		families[mf.GetName()] = mf
	}

	s.logger.Debug("Scraped exporter",
		zap.String("url", s.exporterURL),
		zap.Int("families", len(families)))

	return families, nil
}

func getLabelValue(labels []*dto.LabelPair, name string) string {
	for _, l := range labels {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

// metricValue reads a gauge, falling back to untyped samples (exporters without TYPE lines)
func metricValue(m *dto.Metric) (float64, bool) {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue(), true
	case m.Untyped != nil:
		return m.Untyped.GetValue(), true
	}
	return 0, false
}

func isDriveLetter(volume string) bool {
	if len(volume) != 2 || volume[1] != ':' {
		return false
	}
	c := volume[0] | 0x20 // lower-case
	return c >= 'a' && c <= 'z'
}
