package config

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Property: zero-value fields receive the documented defaults
func TestZeroValueDefaultsApplication_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		client := &Client{
			Server: ServerEndpoint{Address: "update.example.com:12345"},
		}

		client.ApplyDefaults()

		if client.Server.Transport != TransportTCP {
			t.Fatalf("expected Transport=%q, got %q", TransportTCP, client.Server.Transport)
		}
		if client.Server.ServerName != "update.example.com" {
			t.Fatalf("expected ServerName derived from address, got %q", client.Server.ServerName)
		}
		if client.DataDir != DefaultDataDir {
			t.Fatalf("expected DataDir=%q, got %q", DefaultDataDir, client.DataDir)
		}
		if client.ConnectTimeout != DefaultConnectTimeout {
			t.Fatalf("expected ConnectTimeout=%v, got %v", DefaultConnectTimeout, client.ConnectTimeout)
		}
		if client.ReadTimeout != DefaultReadTimeout {
			t.Fatalf("expected ReadTimeout=%v, got %v", DefaultReadTimeout, client.ReadTimeout)
		}
		if client.WriteTimeout != DefaultWriteTimeout {
			t.Fatalf("expected WriteTimeout=%v, got %v", DefaultWriteTimeout, client.WriteTimeout)
		}
		if client.MaxFrameSize != DefaultMaxFrameSize {
			t.Fatalf("expected MaxFrameSize=%d, got %d", DefaultMaxFrameSize, client.MaxFrameSize)
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		quic := Quic{
			MaxIdleTimeout: 0,
		}

		cfg := quic.GetConfig()

		if cfg.MaxIdleTimeout != DefaultMaxIdleTimeout {
			t.Fatalf("expected MaxIdleTimeout=%v, got %v", DefaultMaxIdleTimeout, cfg.MaxIdleTimeout)
		}
	})
}

// Property: non-zero fields are preserved by ApplyDefaults
func TestNonZeroValuePreservation_Property(t *testing.T) {
	// Generator for non-zero durations (1ms to 1 hour)
	nonZeroDurationGen := rapid.Custom(func(t *rapid.T) time.Duration {
		ms := rapid.Int64Range(1, 3600000).Draw(t, "durationMs")
		return time.Duration(ms) * time.Millisecond
	})

	rapid.Check(t, func(t *rapid.T) {
		connect := nonZeroDurationGen.Draw(t, "connect")
		read := nonZeroDurationGen.Draw(t, "read")
		write := nonZeroDurationGen.Draw(t, "write")
		frame := rapid.IntRange(1, 1<<30).Draw(t, "frame")
		dir := rapid.StringMatching(`[a-z]{1,8}/[A-Za-z]{1,8}`).Draw(t, "dir")

		client := &Client{
			Server:         ServerEndpoint{Address: "a.example.com:1", Transport: TransportQUIC, ServerName: "b.example.com"},
			DataDir:        dir,
			ConnectTimeout: connect,
			ReadTimeout:    read,
			WriteTimeout:   write,
			MaxFrameSize:   frame,
		}

		client.ApplyDefaults()

		if client.Server.Transport != TransportQUIC || client.Server.ServerName != "b.example.com" {
			t.Fatalf("server endpoint not preserved: %+v", client.Server)
		}
		if client.DataDir != dir {
			t.Fatalf("expected DataDir=%q to be preserved, got %q", dir, client.DataDir)
		}
		if client.ConnectTimeout != connect || client.ReadTimeout != read || client.WriteTimeout != write {
			t.Fatalf("timeouts not preserved: %v %v %v", client.ConnectTimeout, client.ReadTimeout, client.WriteTimeout)
		}
		if client.MaxFrameSize != frame {
			t.Fatalf("expected MaxFrameSize=%d to be preserved, got %d", frame, client.MaxFrameSize)
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		originalMaxIdleTimeout := nonZeroDurationGen.Draw(t, "originalMaxIdleTimeout")

		quic := Quic{
			MaxIdleTimeout: originalMaxIdleTimeout,
		}

		cfg := quic.GetConfig()

		if cfg.MaxIdleTimeout != originalMaxIdleTimeout {
			t.Fatalf("expected MaxIdleTimeout=%v to be preserved, got %v", originalMaxIdleTimeout, cfg.MaxIdleTimeout)
		}
	})
}
