package agent

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/stone-age-io/deviceinfo/internal/bootstrap"
	"github.com/stone-age-io/deviceinfo/internal/config"
	natsclient "github.com/stone-age-io/deviceinfo/internal/nats"
	"github.com/stone-age-io/deviceinfo/internal/probe"
	"github.com/stone-age-io/deviceinfo/internal/report"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const natsDrainTimeout = 5 * time.Second

// Agent collects machine info once and submits it on request
type Agent struct {
	config    *config.Config
	logger    *zap.Logger
	collector *probe.Collector
	submitter *report.Submitter
	nats      *natsclient.Client
	version   string
}

// New creates a new agent instance
func New(configPath string, version string) (*Agent, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting deviceinfo agent",
		zap.String("version", version),
		zap.String("agent_version", report.AgentVersion),
		zap.String("os", runtime.GOOS))

	apiKey, err := bootstrap.ResolveAPIKey(&cfg.Report, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API key: %w", err)
	}

	sys, err := probe.NewSystem(cfg.Probe.Source, cfg.Probe.ExporterURL, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe: %w", err)
	}

	transport := report.NewHTTPTransport(report.Settings{
		Endpoint: cfg.Report.Endpoint,
		APIKey:   apiKey,
		Timeout:  cfg.Report.Timeout,
	}, logger)

	a := &Agent{
		config:    cfg,
		logger:    logger,
		collector: probe.NewCollector(runtime.GOOS, sys, logger),
		version:   version,
	}

	// The mirror is optional; without it reports still reach the endpoint
	var mirror report.Mirror
	if cfg.NATS.Enabled {
		client, err := natsclient.NewClient(&cfg.NATS, logger)
		if err != nil {
			logger.Warn("NATS mirror unavailable, continuing without it", zap.Error(err))
		} else {
			a.nats = client
			mirror = client
		}
	}

	a.submitter = report.NewSubmitter(transport, mirror, logger)
	return a, nil
}

// Collect gathers a fresh machine snapshot
func (a *Agent) Collect() probe.MachineInfo {
	return a.collector.Collect()
}

// Submit sends info attributed to userName to the configured endpoint
func (a *Agent) Submit(ctx context.Context, userName string, info probe.MachineInfo) (*report.Outcome, error) {
	return a.submitter.Submit(ctx, userName, info)
}

// Logger returns the agent's logger
func (a *Agent) Logger() *zap.Logger {
	return a.logger
}

// Close releases the NATS connection and flushes logs
func (a *Agent) Close() {
	if a.nats != nil {
		if err := a.nats.Drain(natsDrainTimeout); err != nil {
			a.logger.Warn("Error draining NATS", zap.Error(err))
		}
	}
	a.logger.Sync()
}

// FormatMachineInfo renders info for display to the operator
func FormatMachineInfo(info probe.MachineInfo) string {
	mac := info.WiFiMAC
	if mac == "" {
		mac = "not found"
	}
	hostname := info.Hostname
	if hostname == "" {
		hostname = "unknown"
	}

	rows := []struct{ label, value string }{
		{"Hostname", hostname},
		{"OS", info.OS},
		{"CPU", info.CPUModel},
		{"RAM", fmt.Sprintf("%.2f GB", info.RAMGB)},
		{"Disk", fmt.Sprintf("%.2f GB", info.DiskTotalGB)},
		{"Wi-Fi MAC", mac},
	}

	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "  %-10s %s\n", row.label+":", row.value)
	}
	return b.String()
}

// initLogger creates the logger: JSON to a rotated file at the configured
// level, and warnings and above to stderr so the prompt stays readable
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     28, // days
		Compress:   true,
	}

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	consoleLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.WarnLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.AddSync(fileWriter), level),
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), consoleLevel),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return logger, nil
}
