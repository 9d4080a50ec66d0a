package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSHSession runs IOS commands over an SSH connection. Exec commands get a
// fresh channel each; configuration is fed through one interactive shell.
type SSHSession struct {
	name   string
	client *ssh.Client
}

// DialSSH connects and authenticates with password or keyboard-interactive.
func DialSSH(ctx context.Context, cfg Config) (*SSHSession, error) {
	config := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = cfg.Password
				}
				return answers, nil
			}),
		},
		// Switch host keys are not tracked in the inventory.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.timeout(),
	}

	addr := cfg.addr()
	dialer := net.Dialer{Timeout: cfg.timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s: %w", addr, err)
	}
	return &SSHSession{name: cfg.Name, client: ssh.NewClient(c, chans, reqs)}, nil
}

// Run executes a command on a per-call session (stateless).
func (s *SSHSession) Run(ctx context.Context, command string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	stop := closeOnDone(ctx, session)
	defer stop()

	output, err := session.CombinedOutput(command)
	if ctx.Err() != nil {
		return string(output), ctx.Err()
	}
	if err != nil {
		return string(output), fmt.Errorf("SSH exec '%s': %w", command, err)
	}
	return string(output), nil
}

// Configure pushes lines through an interactive shell: terminal length 0,
// configure terminal, the lines, end, exit.
func (s *SSHSession) Configure(ctx context.Context, lines []string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	modes := ssh.TerminalModes{ssh.ECHO: 1}
	if err := session.RequestPty("vt100", 0, 512, modes); err != nil {
		return "", fmt.Errorf("SSH pty: %w", err)
	}
	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out
	stdin, err := session.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("SSH stdin: %w", err)
	}
	if err := session.Shell(); err != nil {
		return "", fmt.Errorf("SSH shell: %w", err)
	}

	stop := closeOnDone(ctx, session)
	defer stop()

	script := append([]string{"terminal length 0", "configure terminal"}, lines...)
	script = append(script, "end", "exit")
	if _, err := stdin.Write([]byte(strings.Join(script, "\n") + "\n")); err != nil {
		return out.String(), fmt.Errorf("SSH write: %w", err)
	}
	stdin.Close()

	err = session.Wait()
	if ctx.Err() != nil {
		return out.String(), ctx.Err()
	}
	// IOS closes the shell after exit without sending an exit status.
	var missing *ssh.ExitMissingError
	if err != nil && !errors.As(err, &missing) {
		return out.String(), fmt.Errorf("SSH shell: %w", err)
	}
	return out.String(), nil
}

// Close closes the SSH connection.
func (s *SSHSession) Close() error {
	return s.client.Close()
}

// closeOnDone closes the channel when ctx ends, unblocking any pending read.
func closeOnDone(ctx context.Context, session *ssh.Session) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}
