package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/stone-age-io/deviceinfo/internal/config"
	"go.uber.org/zap"
)

// ErrNoAPIKey is returned when none of the configured sources yields a key
var ErrNoAPIKey = errors.New("no API key configured")

// maxKeyFileSize bounds how much of the key file is read
const maxKeyFileSize = 4096

// ResolveAPIKey returns the shared secret for the report endpoint. Sources are
// tried in order: the literal report.api_key, the environment variable named by
// report.api_key_env, then the file at report.api_key_file.
func ResolveAPIKey(cfg *config.ReportConfig, logger *zap.Logger) (string, error) {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		logger.Debug("Using API key from config")
		return key, nil
	}

	if cfg.APIKeyEnv != "" {
		if key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv)); key != "" {
			logger.Debug("Using API key from environment", zap.String("variable", cfg.APIKeyEnv))
			return key, nil
		}
		logger.Debug("API key environment variable not set", zap.String("variable", cfg.APIKeyEnv))
	}

	if cfg.APIKeyFile != "" {
		key, err := readKeyFile(cfg.APIKeyFile)
		if err != nil {
			return "", fmt.Errorf("bootstrap: %w", err)
		}
		logger.Debug("Using API key from file", zap.String("path", cfg.APIKeyFile))
		return key, nil
	}

	return "", fmt.Errorf("bootstrap: %w", ErrNoAPIKey)
}

// readKeyFile reads a key file, ignoring surrounding whitespace
func readKeyFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to read API key file: %w", err)
	}
	if info.Size() > maxKeyFileSize {
		return "", fmt.Errorf("API key file %s is larger than %d bytes", path, maxKeyFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read API key file: %w", err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("API key file %s is empty", path)
	}
	return key, nil
}
