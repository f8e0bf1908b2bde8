package probe

import (
	"go.uber.org/zap"

	"github.com/stone-age-io/deviceinfo/internal/utils"
)

// Sentinel values returned when every source for a field fails
const (
	UnknownCPU = "Unknown CPU"
	UnknownOS  = "Unknown OS"
)

// MachineInfo is a snapshot of the machine's identity.
// Every field always carries a value; unresolved fields hold their sentinel.
type MachineInfo struct {
	Hostname    string
	OS          string
	CPUModel    string
	RAMGB       float64
	DiskTotalGB float64
	WiFiMAC     string
}

// HardwareProbe extracts the OS-family specific fields of MachineInfo.
// Implementations never fail; they degrade to sentinel values.
type HardwareProbe interface {
	// Name returns the OS family the probe handles
	Name() string
	OSName() string
	CPUModel() string
	DiskTotalGB() float64
	WiFiMAC() string
}

// New returns the probe for the OS family of goos
func New(goos string, sys System, logger *zap.Logger) HardwareProbe {
	switch goos {
	case "windows":
		return &WindowsProbe{sys: sys, logger: logger}
	case "darwin":
		return &DarwinProbe{sys: sys, logger: logger}
	default:
		return &UnixProbe{sys: sys, logger: logger, goos: goos}
	}
}

// Collector builds MachineInfo snapshots using a probe selected once at construction
type Collector struct {
	probe  HardwareProbe
	sys    System
	logger *zap.Logger
}

// NewCollector creates a collector for goos backed by sys
func NewCollector(goos string, sys System, logger *zap.Logger) *Collector {
	p := New(goos, sys, logger)
	logger.Debug("Selected hardware probe", zap.String("family", p.Name()))
	return &Collector{
		probe:  p,
		sys:    sys,
		logger: logger,
	}
}

// Probe returns the OS-family probe in use
func (c *Collector) Probe() HardwareProbe {
	return c.probe
}

// Collect gathers a fresh MachineInfo
func (c *Collector) Collect() MachineInfo {
	info := MachineInfo{
		Hostname:    c.hostname(),
		OS:          c.probe.OSName(),
		CPUModel:    c.probe.CPUModel(),
		RAMGB:       c.ramGB(),
		DiskTotalGB: c.probe.DiskTotalGB(),
		WiFiMAC:     c.probe.WiFiMAC(),
	}

	c.logger.Info("Collected machine info",
		zap.String("hostname", info.Hostname),
		zap.String("os", info.OS),
		zap.String("cpu_model", info.CPUModel),
		zap.Float64("ram_gb", info.RAMGB),
		zap.Float64("disk_total_gb", info.DiskTotalGB),
		zap.String("wifi_mac", info.WiFiMAC))

	return info
}

func (c *Collector) hostname() string {
	name, err := c.sys.Hostname()
	if err != nil {
		c.logger.Warn("Failed to read hostname", zap.Error(err))
		return ""
	}
	return name
}

func (c *Collector) ramGB() float64 {
	total, err := c.sys.TotalMemory()
	if err != nil {
		c.logger.Warn("Failed to read total memory", zap.Error(err))
		return 0
	}
	return utils.BytesToGB(total)
}
