package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Mmx233/PatchSync/config"
	"github.com/quic-go/quic-go"
)

// Stream is the byte stream a ConnectionManager owns for one session.
// net.Conn satisfies it.
type Stream interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Transport opens streams to the update server.
type Transport interface {
	Dial(ctx context.Context, addr string) (Stream, error)
}

// NewTransport returns the transport selected by the configuration.
func NewTransport(conf *config.Client) (Transport, error) {
	switch conf.Server.Transport {
	case "", config.TransportTCP:
		return &TCPTransport{}, nil
	case config.TransportQUIC:
		tlsConfig, err := conf.TLS.LoadTLSConfig(conf.Server.ServerName)
		if err != nil {
			return nil, fmt.Errorf("load tls config: %w", err)
		}
		return &QUICTransport{
			TLSConfig:  tlsConfig,
			QuicConfig: conf.Quic.GetConfig(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", conf.Server.Transport)
	}
}

// TCPTransport dials plain TCP, the transport the update server speaks natively.
type TCPTransport struct {
	dialer net.Dialer
}

func (t *TCPTransport) Dial(ctx context.Context, addr string) (Stream, error) {
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return conn, nil
}

// QUICTransport carries the same byte stream over a single bidirectional
// QUIC stream, for servers fronted by a QUIC gateway.
type QUICTransport struct {
	TLSConfig  *tls.Config
	QuicConfig *quic.Config
}

func (t *QUICTransport) Dial(ctx context.Context, addr string) (Stream, error) {
	conn, err := quic.DialAddr(ctx, addr, t.TLSConfig, t.QuicConfig)
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream failed")
		return nil, fmt.Errorf("open stream: %w", err)
	}

	return &quicStream{Stream: stream, conn: conn}, nil
}

// quicStream closes the whole QUIC connection with its only stream.
type quicStream struct {
	*quic.Stream
	conn *quic.Conn
	once sync.Once
	err  error
}

func (s *quicStream) Close() error {
	s.once.Do(func() {
		s.Stream.CancelRead(0)
		_ = s.Stream.Close()
		s.err = s.conn.CloseWithError(0, "closed")
	})
	return s.err
}
