package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultLocation         = "http://localhost:8080/"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultPingTimeout      = 90 * time.Second
	DefaultReadLimit        = 1 << 20
	DefaultQueueSize        = 256
	DefaultWatchBuffer      = 128
	DefaultServerPort       = 8080
	DefaultSocketPath       = "/ws"
	DefaultHealthPath       = "/health"
	DefaultShutdownTimeout  = 5 * time.Second
)

func (c *ClientConfig) applyDefaults() {
	c.Log.applyDefaults()

	// Document defaults
	if c.Document.Location == "" {
		c.Document.Location = DefaultLocation
	}

	// Socket defaults
	if c.Socket.HandshakeTimeout == 0 {
		c.Socket.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Socket.WriteTimeout == 0 {
		c.Socket.WriteTimeout = DefaultWriteTimeout
	}
	if c.Socket.PingInterval == 0 {
		c.Socket.PingInterval = DefaultPingInterval
	}
	if c.Socket.PingTimeout == 0 {
		c.Socket.PingTimeout = DefaultPingTimeout
	}
	if c.Socket.ReadLimit == 0 {
		c.Socket.ReadLimit = DefaultReadLimit
	}

	// Loop defaults
	if c.Loop.QueueSize == 0 {
		c.Loop.QueueSize = DefaultQueueSize
	}
	if c.Loop.WatchBuffer == 0 {
		c.Loop.WatchBuffer = DefaultWatchBuffer
	}
}

func (c *DemoConfig) applyDefaults() {
	c.Log.applyDefaults()

	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.SocketPath == "" {
		c.Server.SocketPath = DefaultSocketPath
	}
	if c.Server.HealthPath == "" {
		c.Server.HealthPath = DefaultHealthPath
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func (l *LogConfig) applyDefaults() {
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
}
