package device

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTelnetIOS plays the device side of an IOS telnet login and answers
// commands from responses. It records every line it receives.
type fakeTelnetIOS struct {
	enable    bool
	responses map[string]string

	mu       sync.Mutex
	received []string
}

func (f *fakeTelnetIOS) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	readLine := func() (string, bool) {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", false
		}
		line = strings.TrimRight(line, "\r\n")
		f.mu.Lock()
		f.received = append(f.received, line)
		f.mu.Unlock()
		return line, true
	}

	conn.Write([]byte("\r\nUser Access Verification\r\n\r\nUsername: "))
	if _, ok := readLine(); !ok {
		return
	}
	conn.Write([]byte("Password: "))
	if _, ok := readLine(); !ok {
		return
	}
	prompt := "sw1#"
	if f.enable {
		conn.Write([]byte("\r\nsw1>"))
		if _, ok := readLine(); !ok {
			return
		}
		conn.Write([]byte("Password: "))
		if _, ok := readLine(); !ok {
			return
		}
	}
	conn.Write([]byte("\r\n" + prompt))

	for {
		cmd, ok := readLine()
		if !ok {
			return
		}
		switch {
		case cmd == "configure terminal":
			prompt = "sw1(config)#"
		case strings.HasPrefix(cmd, "interface "):
			prompt = "sw1(config-if)#"
		case cmd == "end":
			prompt = "sw1#"
		}
		reply := cmd + "\r\n"
		if out := f.responses[cmd]; out != "" {
			reply += out + "\r\n"
		}
		conn.Write([]byte(reply + prompt))
	}
}

func (f *fakeTelnetIOS) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func startTelnet(t *testing.T, f *fakeTelnetIOS) *TelnetSession {
	t.Helper()
	client, server := net.Pipe()
	go f.serve(server)

	s := newTelnetSession(client, 2*time.Second)
	cfg := Config{Name: "sw1", Username: "admin", Password: "secret", EnablePassword: "enable-secret"}
	if err := s.login(context.Background(), cfg); err != nil {
		client.Close()
		t.Fatalf("login: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTelnetLogin(t *testing.T) {
	tests := []struct {
		name   string
		enable bool
		want   []string
	}{
		{"privileged on login", false, []string{"admin", "secret", "terminal length 0"}},
		{"enable required", true, []string{"admin", "secret", "enable", "enable-secret", "terminal length 0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeTelnetIOS{enable: tt.enable}
			startTelnet(t, f)
			got := f.lines()
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("sent %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTelnetRun(t *testing.T) {
	f := &fakeTelnetIOS{responses: map[string]string{
		CmdSNMPLocation: "Building A, IDF 2",
	}}
	s := startTelnet(t, f)

	out, err := s.Run(context.Background(), CmdSNMPLocation)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "Building A, IDF 2" {
		t.Errorf("Run output = %q, want %q", out, "Building A, IDF 2")
	}
}

func TestTelnetConfigure(t *testing.T) {
	f := &fakeTelnetIOS{responses: map[string]string{
		"switchport access vlan 30": "% Access VLAN does not exist. Creating vlan 30",
	}}
	s := startTelnet(t, f)

	lines := []string{"interface GigabitEthernet1/0/5", "switchport access vlan 30", "exit"}
	out, err := s.Configure(context.Background(), lines)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if got := ErrorMarker(out); got != "% Access VLAN does not exist. Creating vlan 30" {
		t.Errorf("ErrorMarker(transcript) = %q", got)
	}

	sent := f.lines()
	tail := sent[len(sent)-5:]
	want := []string{"configure terminal", "interface GigabitEthernet1/0/5", "switchport access vlan 30", "exit", "end"}
	if strings.Join(tail, "|") != strings.Join(want, "|") {
		t.Errorf("configuration sent %q, want %q", tail, want)
	}
}

func TestTelnetRun_Timeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	go func() {
		// Swallow the command and never answer.
		bufio.NewReader(server).ReadString('\n')
	}()

	s := newTelnetSession(client, 50*time.Millisecond)
	defer s.Close()
	if _, err := s.Run(context.Background(), "show version"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestLastLineAndStripEcho(t *testing.T) {
	if got := lastLine("show x\r\nline\r\nsw1#  "); got != "sw1#" {
		t.Errorf("lastLine = %q", got)
	}
	if got := stripEcho("show x\r\nline 1\r\nline 2\r\nsw1#"); got != "line 1\nline 2" {
		t.Errorf("stripEcho = %q", got)
	}
	if got := stripEcho("sw1#"); got != "" {
		t.Errorf("stripEcho(prompt only) = %q", got)
	}
}
