package probe

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var errFake = errors.New("fake failure")

// fakeSystem is an in-memory System; anything not configured fails
type fakeSystem struct {
	commands map[string]string // "sysctl -n hw.model" -> stdout
	files    map[string]string
	env      map[string]string
	registry map[string]string // key + "|" + name -> value
	disks    map[string]uint64

	hostname      string
	memory        uint64
	memoryErr     error
	partitions    []string
	partitionsErr error
	ifaces        []Interface
	ifacesErr     error

	calls []string
}

func (f *fakeSystem) Run(name string, args ...string) (string, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, cmd)
	out, ok := f.commands[cmd]
	if !ok {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return strings.TrimSpace(out), nil
}

func (f *fakeSystem) ReadFile(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(data), nil
}

func (f *fakeSystem) Getenv(key string) string {
	return f.env[key]
}

func (f *fakeSystem) RegistryValue(key, name string) (string, error) {
	v, ok := f.registry[key+"|"+name]
	if !ok {
		return "", errFake
	}
	return v, nil
}

func (f *fakeSystem) Hostname() (string, error) {
	if f.hostname == "" {
		return "", errFake
	}
	return f.hostname, nil
}

func (f *fakeSystem) TotalMemory() (uint64, error) {
	if f.memoryErr != nil {
		return 0, f.memoryErr
	}
	return f.memory, nil
}

func (f *fakeSystem) DiskTotal(path string) (uint64, error) {
	total, ok := f.disks[path]
	if !ok {
		return 0, fmt.Errorf("statfs %s: %w", path, os.ErrNotExist)
	}
	return total, nil
}

func (f *fakeSystem) Partitions() ([]string, error) {
	return f.partitions, f.partitionsErr
}

func (f *fakeSystem) Interfaces() ([]Interface, error) {
	return f.ifaces, f.ifacesErr
}

const gib = 1024 * 1024 * 1024
