package config

import (
	"path/filepath"
	"time"

	"github.com/Mmx233/PatchSync/protocol"
)

// Default timeout and size values
const (
	// DefaultServerAddress is where the launcher looks for the update server
	DefaultServerAddress = "127.0.0.1:12345"

	// DefaultConnectTimeout bounds dialing the update server
	DefaultConnectTimeout = 10 * time.Second

	// DefaultReadTimeout bounds each wait for server data
	DefaultReadTimeout = 60 * time.Second

	// DefaultWriteTimeout bounds each request write
	DefaultWriteTimeout = 30 * time.Second

	// DefaultMaxIdleTimeout is the default QUIC connection idle timeout
	DefaultMaxIdleTimeout = 5 * time.Minute

	// DefaultMaxFrameSize bounds bytes buffered while waiting for a sentinel
	DefaultMaxFrameSize = protocol.DefaultMaxFrameSize

	// ALPN is the application protocol announced on the quic transport
	ALPN = "patchsync"
)

// DefaultDataDir is the patch archive directory relative to the launcher.
var DefaultDataDir = filepath.Join(".", "Data")

// Default returns a configuration with every default applied.
func Default() *Client {
	c := &Client{Server: ServerEndpoint{Address: DefaultServerAddress}}
	c.ApplyDefaults()
	return c
}
