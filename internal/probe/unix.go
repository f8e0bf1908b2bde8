package probe

import (
	"bufio"
	"strings"

	"go.uber.org/zap"

	"github.com/stone-age-io/deviceinfo/internal/utils"
)

const cpuInfoPath = "/proc/cpuinfo"

// UnixProbe reads procfs, lscpu, uname and gopsutil on Linux and other Unix-likes
type UnixProbe struct {
	sys    System
	logger *zap.Logger
	goos   string
}

func (p *UnixProbe) Name() string {
	return "unix"
}

func (p *UnixProbe) OSName() string {
	sysname := firstString(p.logger, "os_name", "",
		source[string]{"uname -s", nonEmpty(func() (string, error) {
			return p.sys.Run("uname", "-s")
		})},
	)
	if sysname == "" {
		sysname = displayGOOS(p.goos)
	}

	release := firstString(p.logger, "os_release", "",
		source[string]{"uname -r", nonEmpty(func() (string, error) {
			return p.sys.Run("uname", "-r")
		})},
	)
	if release == "" {
		return sysname
	}
	return sysname + " " + release
}

func (p *UnixProbe) CPUModel() string {
	return firstString(p.logger, "cpu_model", UnknownCPU,
		source[string]{cpuInfoPath, func() (string, error) {
			data, err := p.sys.ReadFile(cpuInfoPath)
			if err != nil {
				return "", err
			}
			return modelNameLine(string(data))
		}},
		source[string]{"lscpu", func() (string, error) {
			out, err := p.sys.Run("lscpu")
			if err != nil {
				return "", err
			}
			return modelNameLine(out)
		}},
		source[string]{"uname -p", func() (string, error) {
			out, err := p.sys.Run("uname", "-p")
			if err != nil {
				return "", err
			}
			if out == "" || strings.EqualFold(out, "unknown") {
				return "", ErrEmpty
			}
			return out, nil
		}},
	)
}

// modelNameLine returns the value of the first line mentioning "model name" (any case)
func modelNameLine(text string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(strings.ToLower(line), "model name") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return "", ErrEmpty
		}
		model := strings.TrimSpace(parts[1])
		if model == "" {
			return "", ErrEmpty
		}
		return model, nil
	}
	return "", ErrEmpty
}

func (p *UnixProbe) DiskTotalGB() float64 {
	total, err := p.sys.DiskTotal("/")
	if err != nil {
		p.logger.Warn("Failed to resolve root filesystem size", zap.Error(err))
		return 0
	}
	return utils.BytesToGB(total)
}

func (p *UnixProbe) WiFiMAC() string {
	return firstString(p.logger, "wifi_mac", "",
		source[string]{"wlan0/wlp* interfaces", func() (string, error) {
			return macFromInterfaces(p.sys, isUnixWiFi)
		}},
	)
}

func isUnixWiFi(name string) bool {
	return name == "wlan0" || strings.HasPrefix(name, "wlp")
}

// displayGOOS turns a GOOS value into the kernel's own spelling
func displayGOOS(goos string) string {
	switch goos {
	case "linux":
		return "Linux"
	case "freebsd":
		return "FreeBSD"
	case "openbsd":
		return "OpenBSD"
	case "netbsd":
		return "NetBSD"
	case "":
		return UnknownOS
	default:
		return strings.ToUpper(goos[:1]) + goos[1:]
	}
}
