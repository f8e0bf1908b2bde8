package nats

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stone-age-io/deviceinfo/internal/config"
	"github.com/stone-age-io/deviceinfo/internal/report"
	"go.uber.org/zap"
)

// invalidTokenChars matches anything that cannot appear in a NATS subject token
var invalidTokenChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Client mirrors accepted reports to NATS using core publish
type Client struct {
	conn   *nats.Conn
	logger *zap.Logger
	config *config.NATSConfig
}

// NewClient creates a new NATS client with the specified configuration
func NewClient(cfg *config.NATSConfig, logger *zap.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("deviceinfo-agent"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			} else {
				logger.Info("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
	}

	if cfg.TLS.Enabled {
		tlsConfig, err := createTLSConfig(&cfg.TLS, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConfig))
		logger.Info("TLS enabled for NATS connection",
			zap.Bool("client_cert", cfg.TLS.CertFile != ""),
			zap.Bool("ca_cert", cfg.TLS.CAFile != ""),
			zap.Bool("skip_verify", cfg.TLS.InsecureSkipVerify))

		if cfg.TLS.InsecureSkipVerify {
			logger.Warn("TLS certificate verification is DISABLED - this is insecure and should only be used in development")
		}
	}

	authOpt, err := authOption(&cfg.Auth, logger)
	if err != nil {
		return nil, err
	}
	if authOpt != nil {
		opts = append(opts, authOpt)
	}

	// Pass all URLs for automatic failover
	serverURLs := strings.Join(cfg.URLs, ",")
	logger.Info("Connecting to NATS", zap.Strings("urls", cfg.URLs))
	conn, err := nats.Connect(serverURLs, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS",
		zap.String("url", conn.ConnectedUrl()),
		zap.String("server_id", conn.ConnectedServerId()),
		zap.Bool("tls", conn.TLSRequired()))

	return &Client{
		conn:   conn,
		logger: logger,
		config: cfg,
	}, nil
}

// authOption maps the configured auth type to a connect option; nil means no auth
func authOption(cfg *config.AuthConfig, logger *zap.Logger) (nats.Option, error) {
	switch cfg.Type {
	case "creds":
		logger.Info("Using credentials file authentication", zap.String("file", cfg.CredsFile))
		return nats.UserCredentials(cfg.CredsFile), nil
	case "token":
		logger.Info("Using token authentication")
		return nats.Token(cfg.Token), nil
	case "userpass":
		logger.Info("Using username/password authentication", zap.String("username", cfg.Username))
		return nats.UserInfo(cfg.Username, cfg.Password), nil
	case "none", "":
		logger.Info("Using no authentication")
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid auth type: %s", cfg.Type)
	}
}

// createTLSConfig creates a TLS configuration based on the provided settings
func createTLSConfig(cfg *config.TLSConfig, logger *zap.Logger) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	// CA certificate verifies the server
	if cfg.CAFile != "" {
		logger.Info("Loading CA certificate", zap.String("file", cfg.CAFile))

		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}

		tlsConfig.RootCAs = caCertPool
	}

	// Client certificate for mutual TLS
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		logger.Info("Loading client certificate",
			zap.String("cert", cfg.CertFile),
			zap.String("key", cfg.KeyFile))

		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}

		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// ReportSubject returns the subject a report for hostname is published on:
// <prefix>.<hostname token>.inventory
func ReportSubject(prefix, hostname string) string {
	return fmt.Sprintf("%s.%s.inventory", prefix, subjectToken(hostname))
}

// subjectToken turns an arbitrary hostname into a single NATS subject token
func subjectToken(s string) string {
	token := invalidTokenChars.ReplaceAllString(strings.TrimSpace(s), "_")
	token = strings.Trim(token, "_")
	if token == "" {
		return "unknown"
	}
	return strings.ToLower(token)
}

// PublishReport publishes the report envelope and waits for the server to
// acknowledge the flush within the configured publish timeout
func (c *Client) PublishReport(r *report.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	subject := ReportSubject(c.config.SubjectPrefix, r.Machine.Hostname)
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	if err := c.conn.FlushTimeout(c.config.PublishTimeout); err != nil {
		return fmt.Errorf("failed to flush publish to %s: %w", subject, err)
	}

	c.logger.Debug("Mirrored report",
		zap.String("subject", subject),
		zap.Int("bytes", len(data)))
	return nil
}

// Drain flushes pending publishes and closes the connection, forcing a close
// after timeout
func (c *Client) Drain(timeout time.Duration) error {
	if c.conn.IsClosed() {
		return nil
	}

	drainDone := make(chan error, 1)
	go func() {
		drainDone <- c.conn.Drain()
	}()

	select {
	case err := <-drainDone:
		if err != nil {
			c.logger.Error("Error during NATS drain", zap.Error(err))
			return err
		}
		return nil

	case <-time.After(timeout):
		c.logger.Warn("NATS drain timeout, forcing close")
		c.conn.Close()
		return fmt.Errorf("drain timeout after %v", timeout)
	}
}

// Close immediately closes the NATS connection
func (c *Client) Close() {
	c.conn.Close()
}

// IsConnected returns true if the NATS connection is currently active
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}
