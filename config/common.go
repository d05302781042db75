package config

import (
	"time"

	"github.com/quic-go/quic-go"
)

const (
	EnvPrefix = "PATCHSYNC_"
)

// Transport names
const (
	TransportTCP  = "tcp"
	TransportQUIC = "quic"
)

// Quic tunes the optional QUIC transport. Only one stream is ever opened.
type Quic struct {
	KeepAlivePeriod      time.Duration `yaml:"keep_alive_period"`
	HandshakeIdleTimeout time.Duration `yaml:"handshake_idle_timeout"`
	MaxIdleTimeout       time.Duration `yaml:"max_idle_timeout"`
}

func (q Quic) GetConfig() *quic.Config {
	if q.MaxIdleTimeout == 0 {
		q.MaxIdleTimeout = DefaultMaxIdleTimeout
	}
	return &quic.Config{
		KeepAlivePeriod:      q.KeepAlivePeriod,
		HandshakeIdleTimeout: q.HandshakeIdleTimeout,
		MaxIdleTimeout:       q.MaxIdleTimeout,
		MaxIncomingStreams:   -1,
	}
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Listen string `yaml:"listen"` // host:port, empty disables
}
