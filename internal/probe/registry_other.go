//go:build !windows

package probe

import "errors"

var errNoRegistry = errors.New("registry not available on this platform")

func readRegistryValue(key, name string) (string, error) {
	return "", errNoRegistry
}
