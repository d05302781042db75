package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

type Client struct {
	Server         ServerEndpoint `yaml:"server"`
	TLS            ClientTLS      `yaml:"tls"`
	Quic           Quic           `yaml:"quic"`
	DataDir        string         `yaml:"data_dir"`        // Patch archive directory, default ./Data
	ConnectTimeout time.Duration  `yaml:"connect_timeout"` // Default 10s
	ReadTimeout    time.Duration  `yaml:"read_timeout"`    // Max wait per read, default 60s
	WriteTimeout   time.Duration  `yaml:"write_timeout"`   // Default 30s
	MaxFrameSize   int            `yaml:"max_frame_size"`  // Bytes buffered before a sentinel, default 256MiB
	KeepConnection bool           `yaml:"keep_connection"` // Hold the connection open between requests
	Metrics        Metrics        `yaml:"metrics"`
}

// ServerEndpoint is the update server.
type ServerEndpoint struct {
	Address    string `yaml:"address"`     // host:port
	Transport  string `yaml:"transport"`   // tcp (default) or quic
	ServerName string `yaml:"server_name"` // TLS server name, quic only
}

// ClientTLS is only used by the quic transport.
type ClientTLS struct {
	CACertFile         string `yaml:"ca_cert_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// LoadTLSConfig builds the TLS configuration for serverName.
// Without a CA file the system roots are used.
func (t *ClientTLS) LoadTLSConfig(serverName string) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         serverName,
		NextProtos:         []string{ALPN},
		InsecureSkipVerify: t.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS13,
	}

	if t.CACertFile != "" {
		caCertPEM, err := os.ReadFile(t.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCertPEM) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// ValidateAddress validates that an address is in valid host:port format.
// Returns an error if the address is invalid.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format %q: %w", addr, err)
	}

	if host == "" {
		return fmt.Errorf("host cannot be empty in address %q", addr)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port in address %q: %w", addr, err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d in address %q", port, addr)
	}

	return nil
}

// Validate checks the server endpoint.
func (s *ServerEndpoint) Validate() error {
	if err := ValidateAddress(s.Address); err != nil {
		return err
	}
	switch s.Transport {
	case "", TransportTCP, TransportQUIC:
	default:
		return fmt.Errorf("unknown transport %q", s.Transport)
	}
	return nil
}

// Validate validates the client configuration.
func (c *Client) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.ConnectTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxFrameSize < 0 {
		return fmt.Errorf("max_frame_size must not be negative")
	}
	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return fmt.Errorf("metrics listen address: %w", err)
		}
	}
	return nil
}

// ApplyDefaults fills zero-valued fields.
func (c *Client) ApplyDefaults() {
	if c.Server.Transport == "" {
		c.Server.Transport = TransportTCP
	}
	if c.Server.ServerName == "" && c.Server.Address != "" {
		if host, _, err := net.SplitHostPort(c.Server.Address); err == nil {
			c.Server.ServerName = host
		}
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
}
