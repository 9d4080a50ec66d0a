// Package inventory loads the fleet inventory: the ordered list of switches
// and routers portfinder may query, with their transports, credentials and
// router associations.
package inventory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/portfinder/pkg/util"
)

// Supported values for Device.Platform and Device.Transport.
const (
	PlatformIOS     = "ios"
	TransportSSH    = "ssh"
	TransportTelnet = "telnet"
)

// Defaults holds values inherited by every device that leaves them unset.
type Defaults struct {
	Platform       string `yaml:"platform"`
	Transport      string `yaml:"transport"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	EnablePassword string `yaml:"enable_password"`
	SNMPCommunity  string `yaml:"snmp_community"`
	SNMPPort       int    `yaml:"snmp_port"`
}

// Device is one fleet member.
type Device struct {
	Name           string `yaml:"name" json:"name"`
	Host           string `yaml:"host" json:"host"`
	Platform       string `yaml:"platform" json:"platform"`
	Transport      string `yaml:"transport" json:"transport"`
	Port           int    `yaml:"port" json:"port,omitempty"`
	Username       string `yaml:"username" json:"-"`
	Password       string `yaml:"password" json:"-"`
	EnablePassword string `yaml:"enable_password" json:"-"`
	Router         string `yaml:"router" json:"router,omitempty"`
	SNMPCommunity  string `yaml:"snmp_community" json:"-"`
	SNMPPort       int    `yaml:"snmp_port" json:"-"`
}

// File is the on-disk layout of an inventory.
type File struct {
	Defaults Defaults `yaml:"defaults"`
	Devices  []Device `yaml:"devices"`
}

// Credentials override the file's default credentials when set.
type Credentials struct {
	Username       string
	Password       string
	EnablePassword string
}

// Inventory is the validated, ordered fleet. It is read-only after Load.
type Inventory struct {
	devices []Device
	byName  map[string]int
}

// Load reads and validates the inventory at path.
func Load(path string, creds Credentials) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}
	inv, err := Parse(data, creds)
	if err != nil {
		return nil, fmt.Errorf("inventory %s: %w", path, err)
	}
	return inv, nil
}

// Parse decodes and validates YAML inventory data.
func Parse(data []byte, creds Credentials) (*Inventory, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if creds.Username != "" {
		f.Defaults.Username = creds.Username
	}
	if creds.Password != "" {
		f.Defaults.Password = creds.Password
	}
	if creds.EnablePassword != "" {
		f.Defaults.EnablePassword = creds.EnablePassword
	}
	return New(f.Defaults, f.Devices)
}

// New applies defaults to devices and validates the result. Device order is
// preserved as the fleet enumeration order.
func New(defaults Defaults, devices []Device) (*Inventory, error) {
	inv := &Inventory{byName: make(map[string]int, len(devices))}
	v := &util.ValidationBuilder{}

	for i, d := range devices {
		d = inherit(defaults, d)
		if d.Name == "" {
			v.AddErrorf("device %d has no name", i)
			continue
		}
		if _, dup := inv.byName[d.Name]; dup {
			v.AddErrorf("device '%s' is declared more than once", d.Name)
			continue
		}
		if d.Platform != PlatformIOS {
			v.AddErrorf("device '%s' has unsupported platform '%s'", d.Name, d.Platform)
		}
		if d.Transport != TransportSSH && d.Transport != TransportTelnet {
			v.AddErrorf("device '%s' has invalid transport '%s', must be 'ssh' or 'telnet'", d.Name, d.Transport)
		}
		if d.Port < 0 || d.Port > 65535 {
			v.AddErrorf("device '%s' has invalid port %d", d.Name, d.Port)
		}
		if d.SNMPPort < 0 || d.SNMPPort > 65535 {
			v.AddErrorf("device '%s' has invalid snmp_port %d", d.Name, d.SNMPPort)
		}
		if d.Username == "" {
			v.AddErrorf("device '%s' has no username", d.Name)
		}
		inv.byName[d.Name] = len(inv.devices)
		inv.devices = append(inv.devices, d)
	}
	if err := v.Build(); err != nil {
		return nil, err
	}

	// A dangling router only costs the locator its lookup, so it is not fatal.
	for _, d := range inv.devices {
		if d.Router != "" && !inv.HostExists(d.Router) {
			util.WithHost(d.Name).Warnf("Router '%s' is not in the inventory", d.Router)
		}
	}
	return inv, nil
}

func inherit(defaults Defaults, d Device) Device {
	d.Name = strings.TrimSpace(d.Name)
	d.Host = strings.TrimSpace(d.Host)
	if d.Host == "" {
		d.Host = d.Name
	}
	d.Platform = strings.ToLower(strings.TrimSpace(firstNonEmpty(d.Platform, defaults.Platform, PlatformIOS)))
	d.Transport = strings.ToLower(strings.TrimSpace(firstNonEmpty(d.Transport, defaults.Transport, TransportSSH)))
	if d.Port == 0 {
		d.Port = defaults.Port
	}
	d.Username = firstNonEmpty(d.Username, defaults.Username)
	d.Password = firstNonEmpty(d.Password, defaults.Password)
	d.EnablePassword = firstNonEmpty(d.EnablePassword, defaults.EnablePassword)
	d.SNMPCommunity = firstNonEmpty(d.SNMPCommunity, defaults.SNMPCommunity)
	if d.SNMPPort == 0 {
		d.SNMPPort = defaults.SNMPPort
	}
	d.Router = strings.TrimSpace(d.Router)
	return d
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}

// HostExists reports whether name is a fleet member.
func (inv *Inventory) HostExists(name string) bool {
	_, ok := inv.byName[name]
	return ok
}

// AllHostNames returns every device name in declaration order.
func (inv *Inventory) AllHostNames() []string {
	names := make([]string, len(inv.devices))
	for i, d := range inv.devices {
		names[i] = d.Name
	}
	return names
}

// RouterOf returns the router associated with host, if any.
func (inv *Inventory) RouterOf(host string) (string, bool) {
	i, ok := inv.byName[host]
	if !ok || inv.devices[i].Router == "" {
		return "", false
	}
	return inv.devices[i].Router, true
}

// Device returns the resolved entry for name.
func (inv *Inventory) Device(name string) (Device, bool) {
	i, ok := inv.byName[name]
	if !ok {
		return Device{}, false
	}
	return inv.devices[i], true
}

// Devices returns a copy of every entry in declaration order.
func (inv *Inventory) Devices() []Device {
	return append([]Device(nil), inv.devices...)
}

// MissingPasswords lists devices with no password after defaults and
// overrides were applied.
func (inv *Inventory) MissingPasswords() []string {
	var names []string
	for _, d := range inv.devices {
		if d.Password == "" {
			names = append(names, d.Name)
		}
	}
	return names
}

// FillPassword sets password (and the enable password, when that is also
// unset) on every device that has none.
func (inv *Inventory) FillPassword(password string) {
	for i := range inv.devices {
		if inv.devices[i].Password == "" {
			inv.devices[i].Password = password
		}
		if inv.devices[i].EnablePassword == "" {
			inv.devices[i].EnablePassword = password
		}
	}
}
