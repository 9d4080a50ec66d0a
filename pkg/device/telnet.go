package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ziutek/telnet"
)

const (
	bufferSize       = 4096
	promptUsername   = "Username:"
	promptPassword   = "Password:"
	promptUser       = ">"
	promptPrivileged = "#"
)

// promptConn is the part of *telnet.Conn a TelnetSession uses.
type promptConn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// TelnetSession drives the IOS CLI over telnet. Commands are serialized on
// the single connection.
type TelnetSession struct {
	mu      sync.Mutex
	conn    promptConn
	timeout time.Duration
}

// DialTelnet connects, logs in and enters privileged mode.
func DialTelnet(ctx context.Context, cfg Config) (*TelnetSession, error) {
	addr := cfg.addr()
	type result struct {
		conn *telnet.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := telnet.DialTimeout("tcp", addr, cfg.timeout())
		ch <- result{conn, err}
	}()

	var conn *telnet.Conn
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("telnet dial %s: %w", addr, r.err)
		}
		conn = r.conn
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}

	s := newTelnetSession(conn, cfg.timeout())
	if err := s.login(ctx, cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func newTelnetSession(conn promptConn, timeout time.Duration) *TelnetSession {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TelnetSession{conn: conn, timeout: timeout}
}

// login answers the IOS login prompts and leaves the session at the
// privileged prompt with paging disabled. Enable is skipped when the
// device logs straight into privileged mode.
func (s *TelnetSession) login(ctx context.Context, cfg Config) error {
	if _, err := s.readUntil(ctx, promptUsername); err != nil {
		return fmt.Errorf("waiting for %s: %w", promptUsername, err)
	}
	if err := s.send(cfg.Username); err != nil {
		return err
	}
	if _, err := s.readUntil(ctx, promptPassword); err != nil {
		return fmt.Errorf("waiting for %s: %w", promptPassword, err)
	}
	if err := s.send(cfg.Password); err != nil {
		return err
	}

	out, err := s.readUntilPrompt(ctx, promptUser, promptPrivileged)
	if err != nil {
		return fmt.Errorf("waiting for prompt: %w", err)
	}
	if strings.HasSuffix(lastLine(out), promptUser) {
		if err := s.send("enable"); err != nil {
			return err
		}
		if _, err := s.readUntil(ctx, promptPassword); err != nil {
			return fmt.Errorf("waiting for enable %s: %w", promptPassword, err)
		}
		if err := s.send(cfg.EnablePassword); err != nil {
			return err
		}
		if _, err := s.readUntilPrompt(ctx, promptPrivileged); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}

	if err := s.send("terminal length 0"); err != nil {
		return err
	}
	if _, err := s.readUntilPrompt(ctx, promptPrivileged); err != nil {
		return fmt.Errorf("terminal length: %w", err)
	}
	return nil
}

// Run sends a command and returns the output between the echoed command
// and the next prompt.
func (s *TelnetSession) Run(ctx context.Context, command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(ctx, command)
}

func (s *TelnetSession) exec(ctx context.Context, command string) (string, error) {
	if err := s.send(command); err != nil {
		return "", err
	}
	output, err := s.readUntilPrompt(ctx, promptPrivileged)
	if err != nil {
		return "", fmt.Errorf("error executing %s: %w", command, err)
	}
	return stripEcho(output), nil
}

// Configure enters configuration mode, sends each line, and returns the
// transcript including the echoed lines.
func (s *TelnetSession) Configure(ctx context.Context, lines []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	script := append([]string{"configure terminal"}, lines...)
	script = append(script, "end")

	var transcript strings.Builder
	for _, line := range script {
		out, err := s.exec(ctx, line)
		transcript.WriteString(line + "\n")
		if out != "" {
			transcript.WriteString(out + "\n")
		}
		if err != nil {
			return transcript.String(), err
		}
	}
	return transcript.String(), nil
}

// Close closes the connection.
func (s *TelnetSession) Close() error {
	return s.conn.Close()
}

func (s *TelnetSession) send(line string) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("telnet write: %w", err)
	}
	return nil
}

// readUntil reads until pattern appears anywhere in the output.
func (s *TelnetSession) readUntil(ctx context.Context, pattern string) (string, error) {
	return s.read(ctx, func(out string) bool {
		return strings.Contains(out, pattern)
	})
}

// readUntilPrompt reads until the last line of output ends in one of the
// prompt characters.
func (s *TelnetSession) readUntilPrompt(ctx context.Context, prompts ...string) (string, error) {
	return s.read(ctx, func(out string) bool {
		last := lastLine(out)
		for _, p := range prompts {
			if strings.HasSuffix(last, p) {
				return true
			}
		}
		return false
	})
}

func (s *TelnetSession) read(ctx context.Context, done func(string) bool) (string, error) {
	buffer := make([]byte, bufferSize)
	var output strings.Builder
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	s.conn.SetReadDeadline(deadline)
	for {
		if err := ctx.Err(); err != nil {
			return output.String(), err
		}
		n, err := s.conn.Read(buffer)
		if n > 0 {
			output.Write(buffer[:n])
			if done(output.String()) {
				return output.String(), nil
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return output.String(), fmt.Errorf("timeout, output: %q", output.String())
			}
			return output.String(), fmt.Errorf("read error: %w", err)
		}
	}
}

// lastLine returns the final line of out without trailing whitespace.
func lastLine(out string) string {
	out = strings.TrimRight(out, " \t\r\n")
	if i := strings.LastIndexAny(out, "\r\n"); i >= 0 {
		return out[i+1:]
	}
	return out
}

// stripEcho drops the echoed command line and the trailing prompt.
func stripEcho(output string) string {
	output = strings.ReplaceAll(output, "\r\n", "\n")
	lines := strings.Split(output, "\n")
	if len(lines) <= 1 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}
