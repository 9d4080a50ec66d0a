// Package snapshot assembles point-in-time views of switch state from raw
// getter output. A Device is built for one request and never cached.
package snapshot

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/newtron-network/portfinder/pkg/util"
)

// Getter names understood by a Source.
const (
	GetterMACTable   = "mac_address_table"
	GetterInterfaces = "interfaces"
	GetterSNMP       = "get_snmp_information"
	GetterVLANs      = "get_vlans"
	GetterARP        = "get_arp_table"
)

// DeviceGetters is the getter set that makes up a Device.
var DeviceGetters = []string{GetterMACTable, GetterInterfaces, GetterSNMP, GetterVLANs}

// SwitchportCommand is the text command whose output drives Classify.
const SwitchportCommand = "show interfaces switchport"

// NotAvailable is the placeholder for absent descriptions, VLANs and locations.
const NotAvailable = "n/a"

// RawState holds undecoded getter payloads keyed by getter name.
type RawState map[string]json.RawMessage

// Source fetches device state for a single host.
type Source interface {
	FetchState(ctx context.Context, host string, getters []string) (RawState, error)
	FetchText(ctx context.Context, host, command string) (string, error)
}

// Inventory is the read-only view of the fleet.
type Inventory interface {
	HostExists(name string) bool
	AllHostNames() []string
	RouterOf(host string) (string, bool)
}

// Mode is the switchport mode of an interface.
type Mode string

const (
	ModeAccess      Mode = "access"
	ModeTrunk       Mode = "trunk"
	ModePortChannel Mode = "port-channel"
	ModeUnknown     Mode = "unknown"
)

// Interface is one interface on a Device, keyed by its long name.
type Interface struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        Mode   `json:"mode"`
}

// MacEntry is one row of a MAC address table. MAC is in dotted form and
// Interface in short form.
type MacEntry struct {
	MAC       string `json:"mac"`
	Interface string `json:"interface"`
	VLAN      string `json:"vlan"`
}

// VLAN is a VLAN with its member interfaces in long form.
type VLAN struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members"`
}

// Device is the aggregated state of one host at FetchedAt. It is not
// modified after the Builder returns it.
type Device struct {
	Host       string               `json:"host"`
	Interfaces map[string]Interface `json:"interfaces"`
	MacTable   []MacEntry           `json:"mac_table"`
	VLANs      map[string]VLAN      `json:"vlans"`
	Location   string               `json:"snmp_location"`
	FetchedAt  time.Time            `json:"fetched_at"`
}

// Interface looks up an interface by short or long name.
func (d *Device) Interface(name string) (Interface, bool) {
	intf, ok := d.Interfaces[util.ExpandInterface(name)]
	return intf, ok
}

// InterfaceNames returns every interface name in natural port order.
func (d *Device) InterfaceNames() []string {
	names := make([]string, 0, len(d.Interfaces))
	for name := range d.Interfaces {
		names = append(names, name)
	}
	util.SortInterfaceNames(names)
	return names
}

// AvailableInterfaces returns the access-eligible interfaces in natural
// port order. Trunks, port-channels and interfaces with no parsed
// switchport mode are never included.
func (d *Device) AvailableInterfaces() []string {
	var names []string
	for _, name := range d.InterfaceNames() {
		if d.Interfaces[name].Mode == ModeAccess {
			names = append(names, name)
		}
	}
	return names
}

// IsEligible reports whether name is an access-eligible interface.
func (d *Device) IsEligible(name string) bool {
	intf, ok := d.Interface(name)
	return ok && intf.Mode == ModeAccess
}

// AvailableVLANs returns the VLAN ids configured on the device in numeric order.
func (d *Device) AvailableVLANs() []string {
	ids := make([]string, 0, len(d.VLANs))
	for id := range d.VLANs {
		ids = append(ids, id)
	}
	util.SortVLANIDs(ids)
	return ids
}

// HasVLAN reports whether id is one of the device's VLANs.
func (d *Device) HasVLAN(id string) bool {
	_, ok := d.VLANs[strings.TrimSpace(id)]
	return ok
}

// VLANOf returns the VLAN an interface is a member of. When the VLAN table
// has no membership for it, the first MAC table entry learned on the
// interface is used, then NotAvailable.
func (d *Device) VLANOf(name string) string {
	long := util.ExpandInterface(name)
	for _, id := range d.AvailableVLANs() {
		for _, member := range d.VLANs[id].Members {
			if member == long {
				return id
			}
		}
	}
	for _, e := range d.MacEntriesOn(long) {
		if e.VLAN != NotAvailable {
			return e.VLAN
		}
	}
	return NotAvailable
}

// MacEntriesOn returns the MAC table entries learned on an interface, in
// table order.
func (d *Device) MacEntriesOn(name string) []MacEntry {
	long := util.ExpandInterface(name)
	var out []MacEntry
	for _, e := range d.MacTable {
		if util.ExpandInterface(e.Interface) == long {
			out = append(out, e)
		}
	}
	return out
}

// FindMAC returns the first MAC table entry matching mac, which must
// already be normalized.
func (d *Device) FindMAC(mac string) (MacEntry, bool) {
	for _, e := range d.MacTable {
		if e.MAC == mac || util.SameMAC(e.MAC, mac) {
			return e, true
		}
	}
	return MacEntry{}, false
}

// FindMACFragment returns the first entry whose ungrouped MAC contains
// fragment, given as bare lowercase hex digits.
func (d *Device) FindMACFragment(fragment string) (MacEntry, bool) {
	if fragment == "" {
		return MacEntry{}, false
	}
	for _, e := range d.MacTable {
		plain, err := util.NormalizeMACPlain(e.MAC)
		if err != nil {
			continue
		}
		if strings.Contains(plain, fragment) {
			return e, true
		}
	}
	return MacEntry{}, false
}

// DescriptionOf returns the description of an interface or NotAvailable.
func (d *Device) DescriptionOf(name string) string {
	if intf, ok := d.Interface(name); ok && intf.Description != "" {
		return intf.Description
	}
	return NotAvailable
}
