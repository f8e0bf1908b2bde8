package probe

import (
	"strings"

	"go.uber.org/zap"

	"github.com/stone-age-io/deviceinfo/internal/utils"
)

// wireless interface identifiers in preference order
var darwinWiFiInterfaces = []string{"en0", "en1"}

// DarwinProbe reads sysctl, sw_vers and networksetup on macOS
type DarwinProbe struct {
	sys    System
	logger *zap.Logger
}

func (p *DarwinProbe) Name() string {
	return "darwin"
}

func (p *DarwinProbe) OSName() string {
	version := firstString(p.logger, "os_release", "",
		source[string]{"sw_vers", nonEmpty(func() (string, error) {
			return p.sys.Run("sw_vers", "-productVersion")
		})},
		source[string]{"uname -r", nonEmpty(func() (string, error) {
			return p.sys.Run("uname", "-r")
		})},
	)
	if version == "" {
		return "macOS"
	}
	return "macOS " + version
}

func (p *DarwinProbe) CPUModel() string {
	return firstString(p.logger, "cpu_model", UnknownCPU,
		// Intel
		source[string]{"sysctl machdep.cpu.brand_string", nonEmpty(func() (string, error) {
			return p.sys.Run("sysctl", "-n", "machdep.cpu.brand_string")
		})},
		// Apple Silicon has no brand string
		source[string]{"sysctl hw.model", nonEmpty(func() (string, error) {
			return p.sys.Run("sysctl", "-n", "hw.model")
		})},
	)
}

func (p *DarwinProbe) DiskTotalGB() float64 {
	total, err := p.sys.DiskTotal("/")
	if err != nil {
		p.logger.Warn("Failed to resolve root volume size", zap.Error(err))
		return 0
	}
	return utils.BytesToGB(total)
}

func (p *DarwinProbe) WiFiMAC() string {
	sources := make([]source[string], 0, len(darwinWiFiInterfaces))
	for _, iface := range darwinWiFiInterfaces {
		iface := iface
		sources = append(sources, source[string]{"networksetup " + iface, func() (string, error) {
			out, err := p.sys.Run("networksetup", "-getmacaddress", iface)
			if err != nil {
				return "", err
			}
			return trailingMAC(out)
		}})
	}
	return firstString(p.logger, "wifi_mac", "", sources...)
}

// trailingMAC returns the last MAC-shaped token of networksetup output, e.g.
// "Ethernet Address: a4:83:e7:01:02:03 (Device: en0)"
func trailingMAC(out string) (string, error) {
	if !strings.Contains(out, ":") {
		return "", ErrEmpty
	}

	fields := strings.Fields(out)
	for i := len(fields) - 1; i >= 0; i-- {
		if mac := normalizeMAC(fields[i]); mac != "" {
			return mac, nil
		}
	}
	return "", ErrEmpty
}
