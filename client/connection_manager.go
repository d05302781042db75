package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mmx233/PatchSync/metrics"
	"github.com/Mmx233/PatchSync/protocol"
	"github.com/rs/zerolog"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrTimeout      = errors.New("timeout")
)

// ConnectionState represents the state of the server connection
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosing
)

// String returns a string representation of the connection state
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// ConnectionOptions tunes a ConnectionManager. Zero timeouts disable the bound.
type ConnectionOptions struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxFrameSize   int
	Metrics        *metrics.Metrics
}

// ConnectionManager owns the single stream to the update server.
//
// Connect, Send and ReadMessages must be called from one goroutine at a time;
// the client's reactor is that goroutine. State and Close may be called from anywhere.
// Any I/O or framing error closes the stream and leaves the manager
// Disconnected; the next operation has to Connect again.
type ConnectionManager struct {
	addr      string
	transport Transport
	framer    protocol.FrameDecoder
	opts      ConnectionOptions

	mu     sync.Mutex // guards stream
	stream Stream

	state atomic.Int32

	logger zerolog.Logger
}

// NewConnectionManager creates a ConnectionManager for addr.
func NewConnectionManager(addr string, transport Transport, opts ConnectionOptions, logger zerolog.Logger) *ConnectionManager {
	cm := &ConnectionManager{
		addr:      addr,
		transport: transport,
		framer:    protocol.NewFramer(opts.MaxFrameSize),
		opts:      opts,
		logger: logger.With().
			Str("component", "connection_manager").
			Str("server_addr", addr).
			Logger(),
	}
	cm.setState(StateDisconnected)
	return cm
}

// State returns the current connection state.
func (cm *ConnectionManager) State() ConnectionState {
	return ConnectionState(cm.state.Load())
}

// ServerAddr returns the server address this manager dials.
func (cm *ConnectionManager) ServerAddr() string {
	return cm.addr
}

func (cm *ConnectionManager) setState(s ConnectionState) {
	cm.state.Store(int32(s))
	cm.opts.Metrics.SetConnectionState(int(s))
}

// Connect dials the server unless already connected.
func (cm *ConnectionManager) Connect(ctx context.Context) error {
	if _, err := cm.current(); err == nil {
		return nil
	}

	cm.setState(StateConnecting)
	cm.logger.Debug().Msg("connecting to server")

	dialCtx := ctx
	if cm.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cm.opts.ConnectTimeout)
		defer cancel()
	}

	stream, err := cm.transport.Dial(dialCtx, cm.addr)
	if err != nil {
		cm.setState(StateDisconnected)
		if ctx.Err() == nil && errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("dial server %s: %w: %w", cm.addr, ErrTimeout, err)
		}
		return fmt.Errorf("dial server %s: %w", cm.addr, err)
	}

	cm.framer.Reset()

	cm.mu.Lock()
	cm.stream = stream
	cm.setState(StateConnected)
	cm.mu.Unlock()
	cm.logger.Info().Msg("connected to server")
	return nil
}

func (cm *ConnectionManager) current() (Stream, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.stream == nil || cm.State() != StateConnected {
		return nil, ErrNotConnected
	}
	return cm.stream, nil
}

// Send writes one encoded request.
func (cm *ConnectionManager) Send(ctx context.Context, payload []byte) error {
	stream, err := cm.current()
	if err != nil {
		return err
	}

	deadline := time.Time{}
	if cm.opts.WriteTimeout > 0 {
		deadline = time.Now().Add(cm.opts.WriteTimeout)
	}
	_ = stream.SetWriteDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = stream.SetWriteDeadline(time.Now())
	})
	defer stop()

	if _, err := stream.Write(payload); err != nil {
		return cm.fail(ctx, "send", err)
	}

	cm.logger.Trace().Int("bytes", len(payload)).Msg("request sent")
	return nil
}

// ReadMessages performs one read and returns the message bodies it completed,
// possibly none. Bodies completed before an error are returned with it.
func (cm *ConnectionManager) ReadMessages(ctx context.Context) ([][]byte, error) {
	stream, err := cm.current()
	if err != nil {
		return nil, err
	}

	deadline := time.Time{}
	if cm.opts.ReadTimeout > 0 {
		deadline = time.Now().Add(cm.opts.ReadTimeout)
	}
	_ = stream.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = stream.SetReadDeadline(time.Now())
	})
	defer stop()

	bufPtr := protocol.GetReadBuffer()
	defer protocol.PutReadBuffer(bufPtr)

	n, readErr := stream.Read(*bufPtr)

	var bodies [][]byte
	if n > 0 {
		var frameErr error
		bodies, frameErr = cm.framer.Feed((*bufPtr)[:n])
		if frameErr != nil {
			return bodies, cm.fail(ctx, "frame", frameErr)
		}
	}
	if readErr != nil {
		return bodies, cm.fail(ctx, "read", readErr)
	}

	return bodies, nil
}

// fail closes the stream after an I/O error and returns the error to report.
func (cm *ConnectionManager) fail(ctx context.Context, op string, err error) error {
	cm.logger.Debug().Err(err).Str("op", op).Msg("connection failed")
	_ = cm.Close()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Close closes the stream. Closing an already closed manager is a no-op.
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	stream := cm.stream
	cm.stream = nil
	if stream == nil {
		cm.mu.Unlock()
		return nil
	}
	cm.setState(StateClosing)
	cm.mu.Unlock()

	err := stream.Close()

	cm.mu.Lock()
	// A Connect may have raced in after the stream was detached
	if cm.stream == nil {
		cm.setState(StateDisconnected)
	}
	cm.mu.Unlock()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		cm.logger.Debug().Err(err).Msg("error closing connection")
		return fmt.Errorf("close: %w", err)
	}

	cm.logger.Info().Msg("connection closed")
	return nil
}
