// Package testutil provides fakes and helpers shared by portfinder tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newtron-network/portfinder/pkg/change"
	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

// MacRow is one MAC table row served by a FakeDevice.
type MacRow struct {
	MAC       string `json:"mac"`
	Interface string `json:"interface"`
	VLAN      string `json:"vlan"`
}

// ArpRow is one ARP table row served by a FakeDevice.
type ArpRow struct {
	Interface string  `json:"interface"`
	MAC       string  `json:"mac"`
	IP        string  `json:"ip"`
	Age       float64 `json:"age"`
}

// FakeDevice is the in-memory state of one switch or router.
type FakeDevice struct {
	MacTable   []MacRow
	Interfaces map[string]string   // long name -> description
	VLANs      map[string][]string // VLAN id -> member interfaces
	Location   string
	Switchport string
	ARP        []ArpRow
	Router     string

	// Raw replaces individual getter payloads; a nil value removes the getter.
	Raw map[string]json.RawMessage

	StateErr    error
	TextErr     error
	ApplyErr    error
	ApplyFailed bool
	ApplyDetail string
}

// Call records one capability invocation.
type Call struct {
	Method  string
	Host    string
	Command string
	Lines   []string
}

// Fleet is a fake device fleet implementing snapshot.Source,
// snapshot.Inventory and change.Applier. Applied configuration updates the
// fake device state so a later fetch observes it.
type Fleet struct {
	mu      sync.Mutex
	order   []string
	devices map[string]*FakeDevice
	calls   []Call

	// Delay is slept inside every FetchState call.
	Delay       time.Duration
	inFlight    int
	maxInFlight int
}

// NewFleet creates an empty fleet.
func NewFleet() *Fleet {
	return &Fleet{devices: make(map[string]*FakeDevice)}
}

// Add registers a device; declaration order is the fleet order.
func (f *Fleet) Add(name string, d *FakeDevice) *Fleet {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[name]; !ok {
		f.order = append(f.order, name)
	}
	f.devices[name] = d
	return f
}

// Device returns the fake state for name.
func (f *Fleet) Device(name string) *FakeDevice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices[name]
}

// HostExists implements snapshot.Inventory.
func (f *Fleet) HostExists(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.devices[name]
	return ok
}

// AllHostNames implements snapshot.Inventory.
func (f *Fleet) AllHostNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// RouterOf implements snapshot.Inventory.
func (f *Fleet) RouterOf(host string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[host]
	if !ok || d.Router == "" {
		return "", false
	}
	return d.Router, true
}

// FetchState implements snapshot.Source.
func (f *Fleet) FetchState(ctx context.Context, host string, getters []string) (snapshot.RawState, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: "FetchState", Host: host, Command: strings.Join(getters, ",")})
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.Delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[host]
	if !ok {
		return nil, fmt.Errorf("unknown host %s", host)
	}
	if d.StateErr != nil {
		return nil, d.StateErr
	}

	raw := snapshot.RawState{}
	for _, g := range getters {
		var v interface{}
		switch g {
		case snapshot.GetterMACTable:
			v = nonNilRows(d.MacTable)
		case snapshot.GetterInterfaces:
			intfs := map[string]map[string]string{}
			for name, desc := range d.Interfaces {
				intfs[name] = map[string]string{"description": desc}
			}
			v = intfs
		case snapshot.GetterSNMP:
			v = map[string]string{"location": d.Location}
		case snapshot.GetterVLANs:
			vlans := map[string]map[string]interface{}{}
			for id, members := range d.VLANs {
				vlans[id] = map[string]interface{}{"name": "VLAN" + id, "interfaces": members}
			}
			v = vlans
		case snapshot.GetterARP:
			if d.ARP == nil {
				v = []ArpRow{}
			} else {
				v = d.ARP
			}
		default:
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw[g] = data
	}
	for g, data := range d.Raw {
		if data == nil {
			delete(raw, g)
			continue
		}
		raw[g] = data
	}
	return raw, nil
}

func nonNilRows(rows []MacRow) []MacRow {
	if rows == nil {
		return []MacRow{}
	}
	return rows
}

// FetchText implements snapshot.Source. It serves the switchport text and a
// generated running-config for "show running-config interface X".
func (f *Fleet) FetchText(ctx context.Context, host, command string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "FetchText", Host: host, Command: command})

	d, ok := f.devices[host]
	if !ok {
		return "", fmt.Errorf("unknown host %s", host)
	}
	if d.TextErr != nil {
		return "", d.TextErr
	}
	if command == snapshot.SwitchportCommand {
		return d.Switchport, nil
	}
	if name, ok := strings.CutPrefix(command, "show running-config interface "); ok {
		return d.runningConfig(name), nil
	}
	return "", fmt.Errorf("unsupported command %q", command)
}

func (d *FakeDevice) runningConfig(name string) string {
	var b strings.Builder
	b.WriteString("interface " + name + "\n")
	if desc := d.Interfaces[name]; desc != "" {
		b.WriteString(" description " + desc + "\n")
	}
	ids := make([]string, 0, len(d.VLANs))
	for id := range d.VLANs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, m := range d.VLANs[id] {
			if m == name {
				b.WriteString(" switchport access vlan " + id + "\n")
			}
		}
	}
	b.WriteString(" switchport mode access\nend\n")
	return b.String()
}

// ApplyConfig implements change.Applier. Successful applies move the
// interface to the requested VLAN and update its description.
func (f *Fleet) ApplyConfig(ctx context.Context, host string, lines []string) (change.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: "ApplyConfig", Host: host, Lines: append([]string(nil), lines...)})

	d, ok := f.devices[host]
	if !ok {
		return change.ApplyResult{}, fmt.Errorf("unknown host %s", host)
	}
	if d.ApplyErr != nil {
		return change.ApplyResult{}, d.ApplyErr
	}
	output := "configure terminal\n" + strings.Join(lines, "\n") + "\nend\n"
	if d.ApplyFailed {
		return change.ApplyResult{Output: output, Failed: true, FailureDetail: d.ApplyDetail}, nil
	}

	var intf string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "interface "):
			intf = strings.TrimPrefix(line, "interface ")
		case strings.HasPrefix(line, "switchport access vlan "):
			d.moveToVLAN(intf, strings.TrimPrefix(line, "switchport access vlan "))
		case strings.HasPrefix(line, "description "):
			if d.Interfaces == nil {
				d.Interfaces = map[string]string{}
			}
			d.Interfaces[intf] = strings.TrimPrefix(line, "description ")
		}
	}
	return change.ApplyResult{Output: output}, nil
}

func (d *FakeDevice) moveToVLAN(intf, vlan string) {
	for id, members := range d.VLANs {
		kept := members[:0]
		for _, m := range members {
			if !util.SameInterface(m, intf) {
				kept = append(kept, m)
			}
		}
		d.VLANs[id] = kept
	}
	d.VLANs[vlan] = append(d.VLANs[vlan], intf)
}

// Calls returns a copy of every recorded call.
func (f *Fleet) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls of one method.
func (f *Fleet) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// MutatingCalls counts ApplyConfig calls.
func (f *Fleet) MutatingCalls() int {
	return len(f.CallsTo("ApplyConfig"))
}

// MaxInFlight reports the highest number of concurrent FetchState calls seen.
func (f *Fleet) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// Switchport renders "show interfaces switchport" text for name/mode pairs.
func Switchport(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&b, "Name: %s\nSwitchport: Enabled\nAdministrative Mode: %s\nOperational Mode: %s\n\n",
			pairs[i], pairs[i+1], pairs[i+1])
	}
	return b.String()
}

// SW1 returns the reference access switch used across tests: Gi1/0/5 and
// Gi1/0/6 are access ports, Gi1/0/48 is a trunk and Po1 a port-channel.
func SW1() *FakeDevice {
	return &FakeDevice{
		MacTable: []MacRow{
			{MAC: "aabb.ccdd.eeff", Interface: "Gi1/0/5", VLAN: "10"},
			{MAC: "0011.2233.4455", Interface: "Gi1/0/6", VLAN: "20"},
			{MAC: "0011.2233.9999", Interface: "Gi1/0/48", VLAN: "10"},
		},
		Interfaces: map[string]string{
			"GigabitEthernet1/0/5":  "uplink",
			"GigabitEthernet1/0/6":  "printer room 2",
			"GigabitEthernet1/0/48": "core trunk",
			"Port-channel1":         "lag to dist",
		},
		VLANs: map[string][]string{
			"1":  {},
			"10": {"GigabitEthernet1/0/5"},
			"20": {"GigabitEthernet1/0/6"},
			"99": {},
		},
		Location: "Building A, IDF 2",
		Switchport: Switchport(
			"Gi1/0/5", "static access",
			"Gi1/0/6", "static access",
			"Gi1/0/48", "trunk",
			"Po1", "trunk",
		),
		Router: "R1",
	}
}

// R1 returns the reference router whose ARP table knows SW1's hosts.
func R1() *FakeDevice {
	return &FakeDevice{
		Interfaces: map[string]string{"GigabitEthernet0/0": "to campus"},
		VLANs:      map[string][]string{},
		ARP: []ArpRow{
			{Interface: "Vlan10", MAC: "aa:bb:cc:dd:ee:ff", IP: "10.0.10.25", Age: 4},
			{Interface: "Vlan20", MAC: "00:11:22:33:44:55", IP: "10.0.20.7", Age: 1},
		},
	}
}
