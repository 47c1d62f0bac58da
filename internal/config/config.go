package config

import "time"

// ClientConfig is the root configuration for an hxclient instance.
type ClientConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Log      LogConfig      `yaml:"log"`
	Document DocumentConfig `yaml:"document"`
	Socket   SocketConfig   `yaml:"socket"`
	Loop     LoopConfig     `yaml:"loop"`
}

// DemoConfig is the root configuration for the demo socket server.
type DemoConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this process in logs.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DocumentConfig names the page the client processes.
type DocumentConfig struct {
	Path     string `yaml:"path"`     // HTML file to load
	Location string `yaml:"location"` // Document URL, used to resolve "/path" endpoints
	Print    bool   `yaml:"print"`    // Print the document after every inbound message
}

// SocketConfig holds WebSocket client settings.
type SocketConfig struct {
	HandshakeTimeout time.Duration     `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration     `yaml:"write_timeout"`
	PingInterval     time.Duration     `yaml:"ping_interval"`
	PingTimeout      time.Duration     `yaml:"ping_timeout"`
	ReadLimit        int64             `yaml:"read_limit"`
	Subprotocols     []string          `yaml:"subprotocols"`
	Headers          map[string]string `yaml:"headers"` // Extra handshake headers
}

// LoopConfig sizes the event loop and the event watch stream.
type LoopConfig struct {
	QueueSize   int `yaml:"queue_size"`
	WatchBuffer int `yaml:"watch_buffer"`
}

// ServerConfig holds demo server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	SocketPath      string        `yaml:"socket_path"`
	HealthPath      string        `yaml:"health_path"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}
