package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Log.validate("log"); err != nil {
		return err
	}

	if c.Document.Path == "" {
		return errors.New("document.path is required")
	}
	u, err := url.Parse(c.Document.Location)
	if err != nil || u.Host == "" {
		return fmt.Errorf("document.location must be an absolute URL, got %q", c.Document.Location)
	}

	if c.Socket.HandshakeTimeout < 0 {
		return errors.New("socket.handshake_timeout must be >= 0")
	}
	if c.Socket.WriteTimeout < 0 {
		return errors.New("socket.write_timeout must be >= 0")
	}
	if c.Socket.PingInterval > 0 && c.Socket.PingTimeout > 0 && c.Socket.PingTimeout < c.Socket.PingInterval {
		return fmt.Errorf("socket.ping_timeout (%s) cannot be shorter than ping_interval (%s)",
			c.Socket.PingTimeout, c.Socket.PingInterval)
	}
	if c.Socket.ReadLimit < 0 {
		return errors.New("socket.read_limit must be >= 0")
	}

	if c.Loop.QueueSize < 1 {
		return errors.New("loop.queue_size must be >= 1")
	}
	if c.Loop.WatchBuffer < 1 {
		return errors.New("loop.watch_buffer must be >= 1")
	}

	return nil
}

// Validate checks that all required fields are set and values are valid.
func (c *DemoConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Log.validate("log"); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.SocketPath, "/") {
		return fmt.Errorf("server.socket_path must start with /, got %q", c.Server.SocketPath)
	}
	if !strings.HasPrefix(c.Server.HealthPath, "/") {
		return fmt.Errorf("server.health_path must start with /, got %q", c.Server.HealthPath)
	}
	if c.Server.SocketPath == c.Server.HealthPath {
		return errors.New("server.socket_path and server.health_path must differ")
	}

	return nil
}

func (l *LogConfig) validate(prefix string) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%s.level must be one of debug, info, warn, error, got %q", prefix, l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%s.format must be text or json, got %q", prefix, l.Format)
	}
	return nil
}
