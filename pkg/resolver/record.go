// Package resolver turns operator input (hostname, MAC address or port
// description) into a Record describing where it lives in the fleet.
package resolver

import (
	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

// MatchKind names the search mode that produced a Record.
type MatchKind string

const (
	MatchHost        MatchKind = "hostname"
	MatchMAC         MatchKind = "mac"
	MatchDescription MatchKind = "description"
	MatchInterface   MatchKind = "interface"
)

// UnknownRouter is reported when a host has no router association.
const UnknownRouter = "Unknown"

// Record is the unified result of a search or interface lookup. Host-level
// records leave the interface, MAC, VLAN and description fields empty.
type Record struct {
	MatchedBy           MatchKind `json:"matched_by"`
	Host                string    `json:"host"`
	Interface           string    `json:"interface"`
	InterfaceLong       string    `json:"interface_long"`
	MAC                 string    `json:"mac"`
	VLAN                string    `json:"vlan"`
	Description         string    `json:"description"`
	SNMPLocation        string    `json:"snmp_location"`
	Router              string    `json:"router"`
	IPAddress           string    `json:"ip_address"`
	AvailableVLANs      []string  `json:"available_vlans"`
	AvailableInterfaces []string  `json:"available_interfaces"`
}

// HostRecord builds a host-level record from dev.
func HostRecord(dev *snapshot.Device, inv snapshot.Inventory) *Record {
	router := UnknownRouter
	if r, ok := inv.RouterOf(dev.Host); ok {
		router = r
	}
	vlans := dev.AvailableVLANs()
	intfs := dev.AvailableInterfaces()
	if intfs == nil {
		intfs = []string{}
	}
	return &Record{
		MatchedBy:           MatchHost,
		Host:                dev.Host,
		SNMPLocation:        dev.Location,
		Router:              router,
		AvailableVLANs:      vlans,
		AvailableInterfaces: intfs,
	}
}

// InterfaceRecord builds a record for one interface of dev. MAC is the
// first address learned on the interface, if any.
func InterfaceRecord(dev *snapshot.Device, inv snapshot.Inventory, name string) *Record {
	rec := HostRecord(dev, inv)
	rec.MatchedBy = MatchInterface
	rec.InterfaceLong = util.ExpandInterface(name)
	rec.Interface = util.CollapseInterface(rec.InterfaceLong)
	rec.Description = dev.DescriptionOf(rec.InterfaceLong)
	rec.VLAN = dev.VLANOf(rec.InterfaceLong)
	if entries := dev.MacEntriesOn(rec.InterfaceLong); len(entries) > 0 {
		rec.MAC = entries[0].MAC
	}
	return rec
}
