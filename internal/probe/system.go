package probe

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"
)

// Interface is a network adapter as seen by the probes
type Interface struct {
	Name         string
	HardwareAddr string
}

// System abstracts the OS facilities the probes read from.
// Every method may fail; probes treat failures as a reason to try the next source.
type System interface {
	// Run executes a command and returns its trimmed stdout
	Run(name string, args ...string) (string, error)
	ReadFile(path string) ([]byte, error)
	Getenv(key string) string
	// RegistryValue reads a value under HKEY_LOCAL_MACHINE (Windows only)
	RegistryValue(key, name string) (string, error)
	Hostname() (string, error)
	TotalMemory() (uint64, error)
	DiskTotal(path string) (uint64, error)
	// Partitions returns mount points (or drive roots) of physical partitions
	Partitions() ([]string, error)
	Interfaces() ([]Interface, error)
}

// NewSystem creates the System for the configured source.
// source: "builtin" (default) or "exporter"
// exporterURL: only used when source="exporter"
func NewSystem(source, exporterURL string, logger *zap.Logger, httpClient *http.Client) (System, error) {
	source = strings.ToLower(source)
	if source == "" {
		source = "builtin"
	}

	switch source {
	case "builtin":
		logger.Debug("Using builtin system source (gopsutil)")
		return &BuiltinSystem{}, nil
	case "exporter":
		if exporterURL == "" {
			return nil, fmt.Errorf("exporter_url required for exporter source")
		}
		logger.Debug("Using exporter system source", zap.String("url", exporterURL))
		return NewExporterSystem(exporterURL, logger, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown probe source: %s", source)
	}
}

// BuiltinSystem reads the local machine through gopsutil and os/exec
type BuiltinSystem struct{}

func (BuiltinSystem) Run(name string, args ...string) (string, error) {
	output, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

func (BuiltinSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (BuiltinSystem) Getenv(key string) string {
	return os.Getenv(key)
}

func (BuiltinSystem) RegistryValue(key, name string) (string, error) {
	return readRegistryValue(key, name)
}

func (BuiltinSystem) Hostname() (string, error) {
	return os.Hostname()
}

func (BuiltinSystem) TotalMemory() (uint64, error) {
	vmem, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vmem.Total, nil
}

func (BuiltinSystem) DiskTotal(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Total, nil
}

func (BuiltinSystem) Partitions() ([]string, error) {
	partitions, err := disk.Partitions(false) // false = physical only
	if err != nil {
		return nil, err
	}

	mounts := make([]string, 0, len(partitions))
	for _, p := range partitions {
		mounts = append(mounts, p.Mountpoint)
	}
	return mounts, nil
}

func (BuiltinSystem) Interfaces() ([]Interface, error) {
	stats, err := psnet.Interfaces()
	if err != nil {
		return nil, err
	}

	ifaces := make([]Interface, 0, len(stats))
	for _, s := range stats {
		ifaces = append(ifaces, Interface{Name: s.Name, HardwareAddr: s.HardwareAddr})
	}
	return ifaces, nil
}
