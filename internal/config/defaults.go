package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDefaults returns platform-specific default values
type PlatformDefaults struct {
	LogFile     string
	ConfigPath  string
	ExporterURL string
}

// GetPlatformDefaults returns platform-specific defaults based on runtime.GOOS
func GetPlatformDefaults() PlatformDefaults {
	return platformDefaults(runtime.GOOS)
}

func platformDefaults(goos string) PlatformDefaults {
	d := PlatformDefaults{
		LogFile:     defaultLogFile(),
		ExporterURL: "http://localhost:9100/metrics", // node_exporter
	}

	switch goos {
	case "windows":
		d.ConfigPath = `C:\ProgramData\DeviceInfo\config.yaml`
		d.ExporterURL = "http://localhost:9182/metrics" // windows_exporter
	case "darwin":
		d.ConfigPath = "/Library/Application Support/DeviceInfo/config.yaml"
	case "freebsd":
		d.ConfigPath = "/usr/local/etc/deviceinfo/config.yaml"
	default:
		d.ConfigPath = "/etc/deviceinfo/config.yaml"
	}

	return d
}

// defaultLogFile places the log under the user's cache directory, since the
// tool runs interactively without elevated rights.
func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "deviceinfo", "deviceinfo.log")
}

// GetDefaultConfigPath returns the platform-specific default config path
func GetDefaultConfigPath() string {
	return GetPlatformDefaults().ConfigPath
}

// UpdateConfigDefaults updates viper defaults with platform-specific values
func UpdateConfigDefaults(v interface{}) {
	type viper interface {
		SetDefault(key string, value interface{})
	}

	if viperInstance, ok := v.(viper); ok {
		defaults := GetPlatformDefaults()

		viperInstance.SetDefault("probe.exporter_url", defaults.ExporterURL)
		viperInstance.SetDefault("logging.file", defaults.LogFile)
	}
}
