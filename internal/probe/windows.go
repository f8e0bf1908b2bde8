package probe

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stone-age-io/deviceinfo/internal/utils"
)

const (
	cpuRegistryKey     = `HARDWARE\DESCRIPTION\System\CentralProcessor\0`
	versionRegistryKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`

	// first Windows 11 build; Windows 11 still reports major version 10
	windows11Build = 22000
)

// wifiKeywords identify wireless adapters by (lower-cased) interface name
var wifiKeywords = []string{"wi-fi", "wifi", "wireless", "wlan"}

// WindowsProbe reads the registry, environment and gopsutil on Windows
type WindowsProbe struct {
	sys    System
	logger *zap.Logger
}

func (p *WindowsProbe) Name() string {
	return "windows"
}

func (p *WindowsProbe) OSName() string {
	release := firstString(p.logger, "os_release", "",
		source[string]{"CurrentMajorVersionNumber", nonEmpty(p.majorRelease)},
		source[string]{"CurrentVersion", nonEmpty(func() (string, error) {
			return p.registry(versionRegistryKey, "CurrentVersion")
		})},
	)
	if release == "" {
		return "Windows"
	}
	return "Windows " + release
}

// majorRelease returns "10" or "11" the way the Windows shell names releases
func (p *WindowsProbe) majorRelease() (string, error) {
	major, err := p.registry(versionRegistryKey, "CurrentMajorVersionNumber")
	if err != nil {
		return "", err
	}
	if major != "10" {
		return major, nil
	}

	build, err := p.registry(versionRegistryKey, "CurrentBuildNumber")
	if err != nil {
		return major, nil
	}
	if n, err := strconv.Atoi(build); err == nil && n >= windows11Build {
		return "11", nil
	}
	return major, nil
}

func (p *WindowsProbe) CPUModel() string {
	return firstString(p.logger, "cpu_model", UnknownCPU,
		source[string]{"registry ProcessorNameString", nonEmpty(func() (string, error) {
			return p.registry(cpuRegistryKey, "ProcessorNameString")
		})},
		source[string]{"PROCESSOR_IDENTIFIER", nonEmpty(func() (string, error) {
			return strings.TrimSpace(p.sys.Getenv("PROCESSOR_IDENTIFIER")), nil
		})},
	)
}

func (p *WindowsProbe) DiskTotalGB() float64 {
	drive := p.sys.Getenv("SystemDrive")
	if drive == "" {
		drive = "C:"
	}
	root := drive + `\`

	total, err := firstOf(p.logger, "disk_total_gb",
		source[uint64]{"system drive " + root, func() (uint64, error) {
			return p.sys.DiskTotal(root)
		}},
		source[uint64]{"fixed partitions", p.sumPartitions},
	)
	if err != nil {
		p.logger.Warn("Failed to resolve system disk size", zap.Error(err))
		return 0
	}
	return utils.BytesToGB(total)
}

// sumPartitions adds up the totals of every partition that can be queried
func (p *WindowsProbe) sumPartitions() (uint64, error) {
	mounts, err := p.sys.Partitions()
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, mount := range mounts {
		size, err := p.sys.DiskTotal(mount)
		if err != nil {
			p.logger.Debug("Could not get partition size",
				zap.String("mountpoint", mount),
				zap.Error(err))
			continue
		}
		total += size
	}

	if total == 0 {
		return 0, ErrEmpty
	}
	return total, nil
}

func (p *WindowsProbe) WiFiMAC() string {
	return firstString(p.logger, "wifi_mac", "",
		source[string]{"wireless interfaces", func() (string, error) {
			return macFromInterfaces(p.sys, isWindowsWiFi)
		}},
	)
}

func isWindowsWiFi(name string) bool {
	for _, k := range wifiKeywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

func (p *WindowsProbe) registry(key, name string) (string, error) {
	v, err := p.sys.RegistryValue(key, name)
	return strings.TrimSpace(v), err
}
