package probe

import (
	"regexp"
	"strings"
)

var macPattern = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)

// isMACCandidate reports whether addr looks like a hardware address:
// non-empty, at least 11 characters, with ':' or '-' separators
func isMACCandidate(addr string) bool {
	return len(addr) >= 11 && strings.ContainsAny(addr, ":-")
}

// normalizeMAC converts a candidate to upper-case colon-separated form.
// Returns "" if the result is not a complete 6-octet address.
func normalizeMAC(addr string) string {
	if !isMACCandidate(addr) {
		return ""
	}
	mac := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(addr), "-", ":"))
	if !macPattern.MatchString(mac) {
		return ""
	}
	return mac
}

// macFromInterfaces returns the first valid MAC among the selected interfaces
func macFromInterfaces(sys System, selected func(name string) bool) (string, error) {
	ifaces, err := sys.Interfaces()
	if err != nil {
		return "", err
	}

	for _, iface := range ifaces {
		if !selected(strings.ToLower(iface.Name)) {
			continue
		}
		if mac := normalizeMAC(iface.HardwareAddr); mac != "" {
			return mac, nil
		}
	}
	return "", ErrEmpty
}
