// Package device handles the CLI sessions portfinder opens to Cisco IOS
// switches and routers, and turns their text output into getter payloads.
package device

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Transports understood by Dial.
const (
	TransportSSH    = "ssh"
	TransportTelnet = "telnet"
)

// DefaultTimeout bounds connection setup and each command when Config.Timeout
// is zero.
const DefaultTimeout = 30 * time.Second

// Config describes how to reach one device.
type Config struct {
	Name           string
	Address        string
	Port           int
	Transport      string
	Username       string
	Password       string
	EnablePassword string
	Timeout        time.Duration
}

// addr returns host:port, filling in the transport's well-known port.
func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = 22
		if c.Transport == TransportTelnet {
			port = 23
		}
	}
	return fmt.Sprintf("%s:%d", c.Address, port)
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Session is an authenticated CLI session in privileged mode.
type Session interface {
	// Run executes one exec-mode command and returns its output.
	Run(ctx context.Context, command string) (string, error)
	// Configure enters configuration mode, sends lines in order and returns
	// the combined transcript.
	Configure(ctx context.Context, lines []string) (string, error)
	Close() error
}

// Dialer opens a Session. network.Network takes one so tests can replace
// the real transports.
type Dialer func(ctx context.Context, cfg Config) (Session, error)

// Dial opens a session using the configured transport. An empty transport
// means SSH.
func Dial(ctx context.Context, cfg Config) (Session, error) {
	switch strings.ToLower(cfg.Transport) {
	case "", TransportSSH:
		return DialSSH(ctx, cfg)
	case TransportTelnet:
		return DialTelnet(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}
