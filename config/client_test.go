package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

// Property: well-formed host:port addresses pass validation
func TestAddressFormatValidation_Property(t *testing.T) {
	validAddressGen := rapid.Custom(func(t *rapid.T) string {
		hostType := rapid.IntRange(0, 2).Draw(t, "hostType")
		var host string
		switch hostType {
		case 0: // hostname
			host = rapid.StringMatching(`[a-z][a-z0-9\-]{0,10}\.[a-z]{2,4}`).Draw(t, "hostname")
		case 1: // IPv4
			host = fmt.Sprintf("%d.%d.%d.%d",
				rapid.IntRange(1, 255).Draw(t, "ip1"),
				rapid.IntRange(0, 255).Draw(t, "ip2"),
				rapid.IntRange(0, 255).Draw(t, "ip3"),
				rapid.IntRange(1, 254).Draw(t, "ip4"))
		case 2: // localhost
			host = "localhost"
		}
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		return fmt.Sprintf("%s:%d", host, port)
	})

	rapid.Check(t, func(t *rapid.T) {
		addr := validAddressGen.Draw(t, "validAddress")
		err := ValidateAddress(addr)
		if err != nil {
			t.Fatalf("expected valid address %q to pass validation, got error: %v", addr, err)
		}
	})
}

func TestAddressFormatValidation_Invalid(t *testing.T) {
	invalidAddresses := []string{
		"",                // empty
		"noport",          // missing port
		":8080",           // missing host
		"host:",           // missing port number
		"host:0",          // port out of range (0)
		"host:65536",      // port out of range (>65535)
		"host:abc",        // non-numeric port
		"host:-1",         // negative port
		"host:8080:extra", // too many colons (not IPv6)
	}

	for _, addr := range invalidAddresses {
		err := ValidateAddress(addr)
		if err == nil {
			t.Errorf("expected invalid address %q to fail validation, got nil", addr)
		}
	}
}

func TestServerEndpoint_ValidateTransport(t *testing.T) {
	for _, transport := range []string{"", TransportTCP, TransportQUIC} {
		s := ServerEndpoint{Address: "127.0.0.1:12345", Transport: transport}
		if err := s.Validate(); err != nil {
			t.Errorf("transport %q: unexpected error: %v", transport, err)
		}
	}

	s := ServerEndpoint{Address: "127.0.0.1:12345", Transport: "udp"}
	if err := s.Validate(); err == nil {
		t.Error("expected unknown transport to fail validation")
	}
}

func TestClient_Validate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := Default()
	bad.ReadTimeout = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected negative timeout to fail validation")
	}

	bad = Default()
	bad.Metrics.Listen = "nonsense"
	if err := bad.Validate(); err == nil {
		t.Error("expected malformed metrics address to fail validation")
	}
}

func TestClientTLS_LoadTLSConfig(t *testing.T) {
	tlsCfg := ClientTLS{InsecureSkipVerify: true}
	cfg, err := tlsCfg.LoadTLSConfig("update.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerName != "update.example.com" {
		t.Errorf("expected server name to be set, got %q", cfg.ServerName)
	}
	if len(cfg.NextProtos) != 1 || cfg.NextProtos[0] != ALPN {
		t.Errorf("expected ALPN %q, got %v", ALPN, cfg.NextProtos)
	}
	if cfg.RootCAs != nil {
		t.Error("expected system roots without a CA file")
	}
}

func TestClientTLS_LoadTLSConfig_Errors(t *testing.T) {
	missing := ClientTLS{CACertFile: "/nonexistent/ca.pem"}
	if _, err := missing.LoadTLSConfig("x"); err == nil {
		t.Error("expected error for missing CA file")
	}

	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0644); err != nil {
		t.Fatal(err)
	}
	garbage := ClientTLS{CACertFile: path}
	if _, err := garbage.LoadTLSConfig("x"); err == nil {
		t.Error("expected error for unparseable CA file")
	}
}
