//go:build windows

package probe

import (
	"strconv"

	"golang.org/x/sys/windows/registry"
)

// readRegistryValue reads a string or integer value under HKEY_LOCAL_MACHINE
func readRegistryValue(key, name string) (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, key, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()

	s, _, err := k.GetStringValue(name)
	if err == nil {
		return s, nil
	}
	if err != registry.ErrUnexpectedType {
		return "", err
	}

	n, _, err := k.GetIntegerValue(name)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(n, 10), nil
}
