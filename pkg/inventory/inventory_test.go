package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newtron-network/portfinder/pkg/util"
)

const campusYAML = `
defaults:
  transport: ssh
  username: netops
  password: s3cret
  snmp_community: public
devices:
  - name: SW2
    host: 10.0.0.12
    router: R1
  - name: SW1
    host: 10.0.0.11
    transport: telnet
    enable_password: en4ble
    router: R1
  - name: R1
    host: 10.0.0.1
    port: 2222
    snmp_port: 1161
`

func TestParse(t *testing.T) {
	inv, err := Parse([]byte(campusYAML), Credentials{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := strings.Join(inv.AllHostNames(), ","); got != "SW2,SW1,R1" {
		t.Errorf("AllHostNames() = %s, want declaration order SW2,SW1,R1", got)
	}

	sw1, ok := inv.Device("SW1")
	if !ok {
		t.Fatal("SW1 missing")
	}
	if sw1.Transport != TransportTelnet {
		t.Errorf("SW1 transport = %q, want telnet", sw1.Transport)
	}
	if sw1.Platform != PlatformIOS {
		t.Errorf("SW1 platform = %q, want ios", sw1.Platform)
	}
	if sw1.Username != "netops" || sw1.Password != "s3cret" {
		t.Errorf("SW1 credentials not inherited: %q/%q", sw1.Username, sw1.Password)
	}
	if sw1.EnablePassword != "en4ble" {
		t.Errorf("SW1 enable password = %q", sw1.EnablePassword)
	}
	if sw1.SNMPCommunity != "public" {
		t.Errorf("SW1 community = %q, want inherited public", sw1.SNMPCommunity)
	}

	r1, _ := inv.Device("R1")
	if r1.Port != 2222 || r1.SNMPPort != 1161 {
		t.Errorf("R1 ports = %d/%d", r1.Port, r1.SNMPPort)
	}
	if r1.Transport != TransportSSH {
		t.Errorf("R1 transport = %q, want ssh", r1.Transport)
	}
}

func TestRouterOf(t *testing.T) {
	inv, err := Parse([]byte(campusYAML), Credentials{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tests := []struct {
		host   string
		router string
		ok     bool
	}{
		{"SW1", "R1", true},
		{"SW2", "R1", true},
		{"R1", "", false},
		{"SW9", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			router, ok := inv.RouterOf(tt.host)
			if router != tt.router || ok != tt.ok {
				t.Errorf("RouterOf(%s) = (%q, %v), want (%q, %v)", tt.host, router, ok, tt.router, tt.ok)
			}
		})
	}
	if !inv.HostExists("R1") || inv.HostExists("r1") {
		t.Error("HostExists must be exact-match")
	}
}

func TestParse_CredentialOverrides(t *testing.T) {
	inv, err := Parse([]byte(campusYAML), Credentials{Username: "svc", Password: "fromenv"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d, _ := inv.Device("SW2")
	if d.Username != "svc" || d.Password != "fromenv" {
		t.Errorf("override not applied: %q/%q", d.Username, d.Password)
	}
}

func TestParse_HostDefaultsToName(t *testing.T) {
	inv, err := Parse([]byte("defaults: {username: u}\ndevices:\n  - name: sw-lab\n"), Credentials{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d, _ := inv.Device("sw-lab")
	if d.Host != "sw-lab" {
		t.Errorf("Host = %q, want sw-lab", d.Host)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "defaults: {username: u}\ndevices:\n  - host: 10.0.0.1\n",
			want: "device 0 has no name",
		},
		{
			name: "duplicate",
			yaml: "defaults: {username: u}\ndevices:\n  - name: SW1\n  - name: SW1\n",
			want: "declared more than once",
		},
		{
			name: "bad transport",
			yaml: "defaults: {username: u}\ndevices:\n  - name: SW1\n    transport: netconf\n",
			want: "invalid transport 'netconf'",
		},
		{
			name: "bad platform",
			yaml: "defaults: {username: u}\ndevices:\n  - name: SW1\n    platform: junos\n",
			want: "unsupported platform 'junos'",
		},
		{
			name: "no username",
			yaml: "devices:\n  - name: SW1\n",
			want: "has no username",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), Credentials{})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, util.ErrValidationFailed) {
				t.Errorf("error %v does not wrap ErrValidationFailed", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_BadYAML(t *testing.T) {
	if _, err := Parse([]byte("devices: [unterminated"), Credentials{}); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte(campusYAML), 0o600); err != nil {
		t.Fatalf("writing inventory: %v", err)
	}
	inv, err := Load(path, Credentials{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(inv.Devices()) != 3 {
		t.Errorf("Devices() = %d entries, want 3", len(inv.Devices()))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), Credentials{}); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestMissingAndFillPassword(t *testing.T) {
	inv, err := Parse([]byte("defaults: {username: u}\ndevices:\n  - name: SW1\n  - name: SW2\n    password: known\n"), Credentials{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := inv.MissingPasswords(); len(got) != 1 || got[0] != "SW1" {
		t.Fatalf("MissingPasswords() = %v, want [SW1]", got)
	}
	inv.FillPassword("typed")
	sw1, _ := inv.Device("SW1")
	sw2, _ := inv.Device("SW2")
	if sw1.Password != "typed" || sw1.EnablePassword != "typed" {
		t.Errorf("SW1 after fill = %q/%q", sw1.Password, sw1.EnablePassword)
	}
	if sw2.Password != "known" {
		t.Errorf("SW2 password overwritten: %q", sw2.Password)
	}
	if len(inv.MissingPasswords()) != 0 {
		t.Error("MissingPasswords() not empty after fill")
	}
}
