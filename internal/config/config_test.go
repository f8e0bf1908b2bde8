package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validConfig returns a config that passes validation
func validConfig() *Config {
	return &Config{
		Report: ReportConfig{
			Endpoint:  "https://it.example.com/api/device-info",
			APIKeyEnv: "DEVICEINFO_API_KEY",
			Timeout:   15 * time.Second,
		},
		Probe: ProbeConfig{Source: "builtin"},
		NATS: NATSConfig{
			Enabled:        true,
			URLs:           []string{"nats://localhost:4222"},
			SubjectPrefix:  "inventory",
			Auth:           AuthConfig{Type: "none"},
			PublishTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "test.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestLoadDefaults tests that a minimal file is completed with defaults
func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
report:
  endpoint: https://it.example.com/api/device-info
  api_key: s3cret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Report.Timeout != 15*time.Second {
		t.Errorf("Report.Timeout = %v, want 15s", cfg.Report.Timeout)
	}
	if cfg.Report.APIKeyEnv != "DEVICEINFO_API_KEY" {
		t.Errorf("Report.APIKeyEnv = %q", cfg.Report.APIKeyEnv)
	}
	if cfg.Probe.Source != "builtin" {
		t.Errorf("Probe.Source = %q, want builtin", cfg.Probe.Source)
	}
	if cfg.Probe.ExporterURL != GetPlatformDefaults().ExporterURL {
		t.Errorf("Probe.ExporterURL = %q", cfg.Probe.ExporterURL)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS.Enabled = true, want false by default")
	}
	if cfg.NATS.SubjectPrefix != "inventory" {
		t.Errorf("NATS.SubjectPrefix = %q", cfg.NATS.SubjectPrefix)
	}
	if cfg.NATS.PublishTimeout != 5*time.Second {
		t.Errorf("NATS.PublishTimeout = %v", cfg.NATS.PublishTimeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !strings.HasSuffix(cfg.Logging.File, "deviceinfo.log") {
		t.Errorf("Logging.File = %q", cfg.Logging.File)
	}
}

// TestLoadFileValues tests that file values override defaults
func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, `
report:
  endpoint: http://10.0.0.5:8080/device-info
  api_key_file: /etc/deviceinfo/key
  timeout: 30s
probe:
  source: exporter
  exporter_url: http://localhost:9100/metrics
nats:
  enabled: true
  urls:
    - nats://a:4222
    - nats://b:4222
  subject_prefix: hq.inventory
  auth:
    type: token
    token: abc
logging:
  level: debug
  file: /tmp/deviceinfo.log
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Report.Timeout != 30*time.Second {
		t.Errorf("Report.Timeout = %v, want 30s", cfg.Report.Timeout)
	}
	if cfg.Report.APIKeyFile != "/etc/deviceinfo/key" {
		t.Errorf("Report.APIKeyFile = %q", cfg.Report.APIKeyFile)
	}
	if cfg.Probe.Source != "exporter" {
		t.Errorf("Probe.Source = %q", cfg.Probe.Source)
	}
	if len(cfg.NATS.URLs) != 2 || cfg.NATS.URLs[1] != "nats://b:4222" {
		t.Errorf("NATS.URLs = %v", cfg.NATS.URLs)
	}
	if cfg.NATS.Auth.Token != "abc" {
		t.Errorf("NATS.Auth.Token = %q", cfg.NATS.Auth.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

// TestLoadEnvOverrides tests DEVICEINFO_* environment overrides
func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
report:
  endpoint: https://it.example.com/api/device-info
`)

	t.Setenv("DEVICEINFO_REPORT_ENDPOINT", "https://override.example.com/submit")
	t.Setenv("DEVICEINFO_REPORT_API_KEY", "from-env")
	t.Setenv("DEVICEINFO_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Report.Endpoint != "https://override.example.com/submit" {
		t.Errorf("Report.Endpoint = %q", cfg.Report.Endpoint)
	}
	if cfg.Report.APIKey != "from-env" {
		t.Errorf("Report.APIKey = %q", cfg.Report.APIKey)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

// TestLoadErrors tests load failures
func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with missing explicit file returned nil error")
	}

	path := writeConfig(t, "report:\n  timeout: 5s\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "report.endpoint is required") {
		t.Errorf("Load() error = %v, want missing endpoint", err)
	}
}

// TestValidateReport tests report section validation
func TestValidateReport(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ReportConfig)
		wantErr bool
		errText string
	}{
		{name: "valid", modify: func(r *ReportConfig) {}},
		{name: "literal key only", modify: func(r *ReportConfig) { r.APIKeyEnv = ""; r.APIKey = "k" }},
		{name: "key file only", modify: func(r *ReportConfig) { r.APIKeyEnv = ""; r.APIKeyFile = "/k" }},
		{
			name:    "missing endpoint",
			modify:  func(r *ReportConfig) { r.Endpoint = "" },
			wantErr: true,
			errText: "report.endpoint is required",
		},
		{
			name:    "unsupported scheme",
			modify:  func(r *ReportConfig) { r.Endpoint = "ftp://it.example.com/x" },
			wantErr: true,
			errText: "must use http or https",
		},
		{
			name:    "no host",
			modify:  func(r *ReportConfig) { r.Endpoint = "https:///submit" },
			wantErr: true,
			errText: "must include a host",
		},
		{
			name:    "no key source",
			modify:  func(r *ReportConfig) { r.APIKeyEnv = "" },
			wantErr: true,
			errText: "report.api_key",
		},
		{
			name:    "zero timeout",
			modify:  func(r *ReportConfig) { r.Timeout = 0 },
			wantErr: true,
			errText: "report.timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg.Report)
			checkValidate(t, cfg, tt.wantErr, tt.errText)
		})
	}
}

// TestValidateProbe tests probe source validation
func TestValidateProbe(t *testing.T) {
	tests := []struct {
		name    string
		probe   ProbeConfig
		wantErr bool
		errText string
	}{
		{name: "builtin", probe: ProbeConfig{Source: "builtin"}},
		{name: "exporter", probe: ProbeConfig{Source: "exporter", ExporterURL: "http://localhost:9100/metrics"}},
		{
			name:    "exporter without url",
			probe:   ProbeConfig{Source: "exporter"},
			wantErr: true,
			errText: "probe.exporter_url is required",
		},
		{
			name:    "unknown source",
			probe:   ProbeConfig{Source: "wmi"},
			wantErr: true,
			errText: "invalid probe.source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Probe = tt.probe
			checkValidate(t, cfg, tt.wantErr, tt.errText)
		})
	}
}

// TestValidateLogging tests logging validation
func TestValidateLogging(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*LoggingConfig)
		wantErr bool
		errText string
	}{
		{name: "valid", modify: func(l *LoggingConfig) {}},
		{name: "zero backups", modify: func(l *LoggingConfig) { l.MaxBackups = 0 }},
		{
			name:    "bad level",
			modify:  func(l *LoggingConfig) { l.Level = "verbose" },
			wantErr: true,
			errText: "invalid logging.level",
		},
		{
			name:    "no file",
			modify:  func(l *LoggingConfig) { l.File = "" },
			wantErr: true,
			errText: "logging.file is required",
		},
		{
			name:    "zero size",
			modify:  func(l *LoggingConfig) { l.MaxSizeMB = 0 },
			wantErr: true,
			errText: "logging.max_size_mb must be positive",
		},
		{
			name:    "negative backups",
			modify:  func(l *LoggingConfig) { l.MaxBackups = -1 },
			wantErr: true,
			errText: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg.Logging)
			checkValidate(t, cfg, tt.wantErr, tt.errText)
		})
	}
}

// TestValidateNATSDisabled tests that a disabled mirror is not validated
func TestValidateNATSDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.NATS = NATSConfig{Enabled: false, Auth: AuthConfig{Type: "bogus"}}
	checkValidate(t, cfg, false, "")
}

// TestValidateSubjectPrefix tests subject prefix validation
func TestValidateSubjectPrefix(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		wantErr bool
		errText string
	}{
		{name: "simple prefix", prefix: "inventory"},
		{name: "with dash", prefix: "device-info"},
		{name: "with underscore", prefix: "device_info"},
		{name: "hierarchical", prefix: "hq.it.inventory"},
		{name: "with numbers", prefix: "site1.floor2.inventory"},
		{
			name:    "leading dot",
			prefix:  ".inventory",
			wantErr: true,
			errText: "cannot start or end with a dot",
		},
		{
			name:    "trailing dot",
			prefix:  "inventory.",
			wantErr: true,
			errText: "cannot start or end with a dot",
		},
		{
			name:    "consecutive dots",
			prefix:  "hq..inventory",
			wantErr: true,
			errText: "consecutive dots not allowed",
		},
		{
			name:    "only dot",
			prefix:  ".",
			wantErr: true,
			errText: "cannot start or end with a dot",
		},
		{
			name:    "spaces",
			prefix:  "head office.inventory",
			wantErr: true,
			errText: "contains invalid characters",
		},
		{
			name:    "wildcard",
			prefix:  "hq.*.inventory",
			wantErr: true,
			errText: "contains invalid characters",
		},
		{
			name:    "full wildcard",
			prefix:  "hq.>",
			wantErr: true,
			errText: "contains invalid characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSubjectPrefix(tt.prefix)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSubjectPrefix() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errText != "" && err != nil {
				if !strings.Contains(err.Error(), tt.errText) {
					t.Errorf("validateSubjectPrefix() error = %v, want error containing %q", err, tt.errText)
				}
			}
		})
	}
}

// TestValidateNATSSubjectPrefix tests subject prefix validation through full config validation
func TestValidateNATSSubjectPrefix(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		wantErr bool
		errText string
	}{
		{name: "default prefix", prefix: "inventory"},
		{
			name:    "too long",
			prefix:  "this-is-a-very-long-prefix-that-exceeds-the-maximum-allowed-length-of-fifty-characters",
			wantErr: true,
			errText: "must not exceed 50 characters",
		},
		{
			name:    "empty prefix",
			prefix:  "",
			wantErr: true,
			errText: "nats.subject_prefix is required",
		},
		{
			name:    "leading dot",
			prefix:  ".inventory",
			wantErr: true,
			errText: "cannot start or end with a dot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.NATS.SubjectPrefix = tt.prefix
			checkValidate(t, cfg, tt.wantErr, tt.errText)
		})
	}
}

// TestValidateNATSAuth tests NATS authentication validation
func TestValidateNATSAuth(t *testing.T) {
	tests := []struct {
		name    string
		auth    AuthConfig
		wantErr bool
		errText string
	}{
		{name: "none auth", auth: AuthConfig{Type: "none"}},
		{name: "token auth", auth: AuthConfig{Type: "token", Token: "secret-token"}},
		{name: "userpass auth", auth: AuthConfig{Type: "userpass", Username: "user", Password: "pass"}},
		{name: "creds auth", auth: AuthConfig{Type: "creds", CredsFile: "/etc/deviceinfo/nats.creds"}},
		{
			name:    "invalid type",
			auth:    AuthConfig{Type: "invalid"},
			wantErr: true,
			errText: "invalid auth type",
		},
		{
			name:    "token missing",
			auth:    AuthConfig{Type: "token"},
			wantErr: true,
			errText: "token is required",
		},
		{
			name:    "creds file missing",
			auth:    AuthConfig{Type: "creds"},
			wantErr: true,
			errText: "creds_file is required",
		},
		{
			name:    "userpass missing username",
			auth:    AuthConfig{Type: "userpass", Password: "pass"},
			wantErr: true,
			errText: "username and password are required",
		},
		{
			name:    "userpass missing password",
			auth:    AuthConfig{Type: "userpass", Username: "user"},
			wantErr: true,
			errText: "username and password are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.NATS.Auth = tt.auth
			checkValidate(t, cfg, tt.wantErr, tt.errText)
		})
	}
}

// TestValidateTLS tests TLS configuration validation
func TestValidateTLS(t *testing.T) {
	tmpDir := t.TempDir()
	certFile := filepath.Join(tmpDir, "cert.pem")
	keyFile := filepath.Join(tmpDir, "key.pem")
	caFile := filepath.Join(tmpDir, "ca.pem")

	os.WriteFile(certFile, []byte("cert"), 0644)
	os.WriteFile(keyFile, []byte("key"), 0644)
	os.WriteFile(caFile, []byte("ca"), 0644)

	tests := []struct {
		name    string
		tls     TLSConfig
		wantErr bool
		errText string
	}{
		{name: "TLS disabled", tls: TLSConfig{Enabled: false, CertFile: "/nonexistent"}},
		{name: "TLS enabled with no files", tls: TLSConfig{Enabled: true}},
		{name: "TLS with CA only", tls: TLSConfig{Enabled: true, CAFile: caFile}},
		{name: "TLS with client cert and key", tls: TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile}},
		{
			name:    "cert without key",
			tls:     TLSConfig{Enabled: true, CertFile: certFile},
			wantErr: true,
			errText: "key_file is required",
		},
		{
			name:    "key without cert",
			tls:     TLSConfig{Enabled: true, KeyFile: keyFile},
			wantErr: true,
			errText: "cert_file is required",
		},
		{
			name:    "cert file not found",
			tls:     TLSConfig{Enabled: true, CertFile: "/nonexistent/cert.pem", KeyFile: keyFile},
			wantErr: true,
			errText: "certificate file not found",
		},
		{
			name:    "key file not found",
			tls:     TLSConfig{Enabled: true, CertFile: certFile, KeyFile: "/nonexistent/key.pem"},
			wantErr: true,
			errText: "key file not found",
		},
		{
			name:    "CA file not found",
			tls:     TLSConfig{Enabled: true, CAFile: "/nonexistent/ca.pem"},
			wantErr: true,
			errText: "CA file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.NATS.TLS = tt.tls
			checkValidate(t, cfg, tt.wantErr, tt.errText)
		})
	}
}

// TestPlatformDefaults tests per-platform paths and exporter URLs
func TestPlatformDefaults(t *testing.T) {
	tests := []struct {
		goos         string
		wantConfig   string
		wantExporter string
	}{
		{"windows", `C:\ProgramData\DeviceInfo\config.yaml`, "http://localhost:9182/metrics"},
		{"darwin", "/Library/Application Support/DeviceInfo/config.yaml", "http://localhost:9100/metrics"},
		{"linux", "/etc/deviceinfo/config.yaml", "http://localhost:9100/metrics"},
		{"freebsd", "/usr/local/etc/deviceinfo/config.yaml", "http://localhost:9100/metrics"},
		{"openbsd", "/etc/deviceinfo/config.yaml", "http://localhost:9100/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			d := platformDefaults(tt.goos)
			if d.ConfigPath != tt.wantConfig {
				t.Errorf("ConfigPath = %q, want %q", d.ConfigPath, tt.wantConfig)
			}
			if d.ExporterURL != tt.wantExporter {
				t.Errorf("ExporterURL = %q, want %q", d.ExporterURL, tt.wantExporter)
			}
			if d.LogFile == "" {
				t.Error("LogFile is empty")
			}
		})
	}
}

func checkValidate(t *testing.T, cfg *Config, wantErr bool, errText string) {
	t.Helper()
	err := validate(cfg)
	if (err != nil) != wantErr {
		t.Errorf("validate() error = %v, wantErr %v", err, wantErr)
		return
	}
	if wantErr && errText != "" && err != nil {
		if !strings.Contains(err.Error(), errText) {
			t.Errorf("validate() error = %v, want error containing %q", err, errText)
		}
	}
}
