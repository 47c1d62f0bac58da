package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-client
log:
  level: debug
  format: json
document:
  path: ./page.html
  location: https://example.test/chat
  print: true
socket:
  ping_interval: 10s
  subprotocols: [hx]
  headers:
    Origin: https://example.test
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-client" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-client")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Document.Location != "https://example.test/chat" || !cfg.Document.Print {
		t.Errorf("Document = %+v", cfg.Document)
	}
	if cfg.Socket.PingInterval != 10*time.Second {
		t.Errorf("Socket.PingInterval = %v, want 10s", cfg.Socket.PingInterval)
	}
	if cfg.Socket.Headers["Origin"] != "https://example.test" {
		t.Errorf("Socket.Headers = %v", cfg.Socket.Headers)
	}
	if len(cfg.Socket.Subprotocols) != 1 || cfg.Socket.Subprotocols[0] != "hx" {
		t.Errorf("Socket.Subprotocols = %v", cfg.Socket.Subprotocols)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_PAGE_PATH", "/srv/page.html")

	yaml := `
instance:
  id: test-client
document:
  path: ${TEST_PAGE_PATH}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Document.Path != "/srv/page.html" {
		t.Errorf("Document.Path = %q, want %q", cfg.Document.Path, "/srv/page.html")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("Load error = %v, want read error", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeTempFile(t, "instance: [unclosed")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("Load error = %v, want parse error", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-client
document:
  path: page.html
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Document.Location != DefaultLocation {
		t.Errorf("Document.Location = %q, want default %q", cfg.Document.Location, DefaultLocation)
	}
	if cfg.Socket.HandshakeTimeout != DefaultHandshakeTimeout {
		t.Errorf("Socket.HandshakeTimeout = %v, want default %v", cfg.Socket.HandshakeTimeout, DefaultHandshakeTimeout)
	}
	if cfg.Socket.ReadLimit != DefaultReadLimit {
		t.Errorf("Socket.ReadLimit = %d, want default %d", cfg.Socket.ReadLimit, DefaultReadLimit)
	}
	if cfg.Loop.QueueSize != DefaultQueueSize {
		t.Errorf("Loop.QueueSize = %d, want default %d", cfg.Loop.QueueSize, DefaultQueueSize)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "document:\n  path: page.html\n")
	_, err := LoadAndValidate(path)
	if err == nil || !strings.Contains(err.Error(), "instance.id is required") {
		t.Errorf("LoadAndValidate error = %v", err)
	}
}

func TestLoadDemo(t *testing.T) {
	path := writeTempFile(t, "instance:\n  id: demo\nserver:\n  port: 9000\n")

	cfg, err := LoadDemo(path)
	if err != nil {
		t.Fatalf("LoadDemo failed: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.SocketPath != DefaultSocketPath || cfg.Server.HealthPath != DefaultHealthPath {
		t.Errorf("Server = %+v, want default paths", cfg.Server)
	}
}

func validClient() ClientConfig {
	cfg := ClientConfig{
		Instance: InstanceConfig{ID: "test"},
		Document: DocumentConfig{Path: "page.html"},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *ClientConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *ClientConfig) { c.Log.Level = "verbose" },
			wantErr: `log.level must be one of debug, info, warn, error, got "verbose"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *ClientConfig) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
		{
			name:    "missing document path",
			mutate:  func(c *ClientConfig) { c.Document.Path = "" },
			wantErr: "document.path is required",
		},
		{
			name:    "relative location",
			mutate:  func(c *ClientConfig) { c.Document.Location = "/chat" },
			wantErr: `document.location must be an absolute URL, got "/chat"`,
		},
		{
			name: "ping timeout shorter than interval",
			mutate: func(c *ClientConfig) {
				c.Socket.PingInterval = 30 * time.Second
				c.Socket.PingTimeout = 10 * time.Second
			},
			wantErr: "socket.ping_timeout (10s) cannot be shorter than ping_interval (30s)",
		},
		{
			name:    "zero queue",
			mutate:  func(c *ClientConfig) { c.Loop.QueueSize = 0 },
			wantErr: "loop.queue_size must be >= 1",
		},
		{
			name:    "valid config",
			mutate:  func(*ClientConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validClient()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestValidateDemo(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DemoConfig
		wantErr string
	}{
		{
			name:    "missing instance id",
			cfg:     DemoConfig{},
			wantErr: "instance.id is required",
		},
		{
			name: "port out of range",
			cfg: DemoConfig{
				Instance: InstanceConfig{ID: "demo"},
				Log:      LogConfig{Level: "info", Format: "text"},
				Server:   ServerConfig{Port: 70000, SocketPath: "/ws", HealthPath: "/health"},
			},
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name: "same paths",
			cfg: DemoConfig{
				Instance: InstanceConfig{ID: "demo"},
				Log:      LogConfig{Level: "info", Format: "text"},
				Server:   ServerConfig{Port: 8080, SocketPath: "/ws", HealthPath: "/ws"},
			},
			wantErr: "server.socket_path and server.health_path must differ",
		},
		{
			name: "valid",
			cfg: DemoConfig{
				Instance: InstanceConfig{ID: "demo"},
				Log:      LogConfig{Level: "warn", Format: "json"},
				Server:   ServerConfig{Port: 8080, SocketPath: "/ws", HealthPath: "/health"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
