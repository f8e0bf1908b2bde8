package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete agent configuration
type Config struct {
	Report  ReportConfig  `mapstructure:"report"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ReportConfig describes where reports are sent and how the shared secret is found
type ReportConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	APIKeyEnv  string        `mapstructure:"api_key_env"`
	APIKeyFile string        `mapstructure:"api_key_file"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ProbeConfig selects where memory and disk readings come from
type ProbeConfig struct {
	Source      string `mapstructure:"source"` // "builtin" or "exporter"
	ExporterURL string `mapstructure:"exporter_url"`
}

// NATSConfig contains the optional report mirror settings
type NATSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URLs           []string      `mapstructure:"urls"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	Auth           AuthConfig    `mapstructure:"auth"`
	TLS            TLSConfig     `mapstructure:"tls"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// AuthConfig contains NATS authentication settings
type AuthConfig struct {
	Type      string `mapstructure:"type"` // "creds", "token", "userpass", "none"
	CredsFile string `mapstructure:"creds_file"`
	Token     string `mapstructure:"token"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// TLSConfig contains TLS settings for the NATS connection
type TLSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	CAFile             string `mapstructure:"ca_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// LoggingConfig contains log file settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

const maxSubjectPrefixLength = 50

var subjectTokenPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Load reads configuration from configPath, or from the platform default path
// when configPath is empty. A missing default file is not an error; every
// setting can also come from DEVICEINFO_* environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DEVICEINFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := configPath != ""
	if !explicit {
		configPath = GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil || explicit {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("report.endpoint", "")
	v.SetDefault("report.api_key", "")
	v.SetDefault("report.api_key_env", "DEVICEINFO_API_KEY")
	v.SetDefault("report.api_key_file", "")
	v.SetDefault("report.timeout", "15s")

	v.SetDefault("probe.source", "builtin")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.urls", []string{"nats://localhost:4222"})
	v.SetDefault("nats.subject_prefix", "inventory")
	v.SetDefault("nats.auth.type", "none")
	v.SetDefault("nats.auth.creds_file", "")
	v.SetDefault("nats.auth.token", "")
	v.SetDefault("nats.auth.username", "")
	v.SetDefault("nats.auth.password", "")
	v.SetDefault("nats.tls.enabled", false)
	v.SetDefault("nats.tls.cert_file", "")
	v.SetDefault("nats.tls.key_file", "")
	v.SetDefault("nats.tls.ca_file", "")
	v.SetDefault("nats.tls.insecure_skip_verify", false)
	v.SetDefault("nats.max_reconnects", 3)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.publish_timeout", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)

	UpdateConfigDefaults(v)
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if err := validateReport(&cfg.Report); err != nil {
		return err
	}
	if err := validateProbe(&cfg.Probe); err != nil {
		return err
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}
	if cfg.NATS.Enabled {
		if err := validateNATS(&cfg.NATS); err != nil {
			return err
		}
	}
	return nil
}

func validateReport(cfg *ReportConfig) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("report.endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("report.endpoint is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("report.endpoint must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("report.endpoint must include a host")
	}

	if cfg.APIKey == "" && cfg.APIKeyEnv == "" && cfg.APIKeyFile == "" {
		return fmt.Errorf("one of report.api_key, report.api_key_env or report.api_key_file is required")
	}

	if cfg.Timeout <= 0 {
		return fmt.Errorf("report.timeout must be positive")
	}
	return nil
}

func validateProbe(cfg *ProbeConfig) error {
	switch cfg.Source {
	case "builtin":
	case "exporter":
		if cfg.ExporterURL == "" {
			return fmt.Errorf("probe.exporter_url is required when probe.source is exporter")
		}
	default:
		return fmt.Errorf("invalid probe.source: %s (must be builtin or exporter)", cfg.Source)
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", cfg.Level)
	}
	if cfg.File == "" {
		return fmt.Errorf("logging.file is required")
	}
	if cfg.MaxSizeMB <= 0 {
		return fmt.Errorf("logging.max_size_mb must be positive")
	}
	if cfg.MaxBackups < 0 {
		return fmt.Errorf("logging.max_backups cannot be negative")
	}
	return nil
}

func validateNATS(cfg *NATSConfig) error {
	if len(cfg.URLs) == 0 {
		return fmt.Errorf("nats.urls is required when nats.enabled is true")
	}

	if cfg.SubjectPrefix == "" {
		return fmt.Errorf("nats.subject_prefix is required")
	}
	if len(cfg.SubjectPrefix) > maxSubjectPrefixLength {
		return fmt.Errorf("nats.subject_prefix must not exceed %d characters", maxSubjectPrefixLength)
	}
	if err := validateSubjectPrefix(cfg.SubjectPrefix); err != nil {
		return fmt.Errorf("nats.subject_prefix: %w", err)
	}

	switch cfg.Auth.Type {
	case "none", "creds":
		if cfg.Auth.Type == "creds" && cfg.Auth.CredsFile == "" {
			return fmt.Errorf("creds_file is required for creds auth")
		}
	case "token":
		if cfg.Auth.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
	case "userpass":
		if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
			return fmt.Errorf("username and password are required for userpass auth")
		}
	default:
		return fmt.Errorf("invalid auth type: %s", cfg.Auth.Type)
	}

	if cfg.TLS.Enabled {
		if err := validateTLS(&cfg.TLS); err != nil {
			return err
		}
	}

	if cfg.PublishTimeout <= 0 {
		return fmt.Errorf("nats.publish_timeout must be positive")
	}
	return nil
}

func validateTLS(cfg *TLSConfig) error {
	if cfg.CertFile != "" && cfg.KeyFile == "" {
		return fmt.Errorf("key_file is required when cert_file is set")
	}
	if cfg.KeyFile != "" && cfg.CertFile == "" {
		return fmt.Errorf("cert_file is required when key_file is set")
	}
	if cfg.CertFile != "" {
		if _, err := os.Stat(cfg.CertFile); err != nil {
			return fmt.Errorf("certificate file not found: %s", cfg.CertFile)
		}
	}
	if cfg.KeyFile != "" {
		if _, err := os.Stat(cfg.KeyFile); err != nil {
			return fmt.Errorf("key file not found: %s", cfg.KeyFile)
		}
	}
	if cfg.CAFile != "" {
		if _, err := os.Stat(cfg.CAFile); err != nil {
			return fmt.Errorf("CA file not found: %s", cfg.CAFile)
		}
	}
	return nil
}

// validateSubjectPrefix checks that prefix is one or more dot-separated NATS
// tokens without wildcards
func validateSubjectPrefix(prefix string) error {
	if strings.HasPrefix(prefix, ".") || strings.HasSuffix(prefix, ".") {
		return fmt.Errorf("cannot start or end with a dot")
	}
	if strings.Contains(prefix, "..") {
		return fmt.Errorf("consecutive dots not allowed")
	}
	for _, token := range strings.Split(prefix, ".") {
		if !subjectTokenPattern.MatchString(token) {
			return fmt.Errorf("token %q contains invalid characters", token)
		}
	}
	return nil
}
