package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/portfinder/pkg/util"
)

// looseString decodes a JSON string, number or null. Getters report VLAN ids
// either way.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	if i, err := n.Int64(); err == nil {
		*s = looseString(strconv.FormatInt(i, 10))
		return nil
	}
	*s = looseString(n.String())
	return nil
}

type macRecord struct {
	MAC       string      `json:"mac"`
	Interface string      `json:"interface"`
	VLAN      looseString `json:"vlan"`
}

type interfaceRecord struct {
	Description string `json:"description"`
}

type snmpRecord struct {
	Location string `json:"location"`
}

type vlanRecord struct {
	Name       string   `json:"name"`
	Interfaces []string `json:"interfaces"`
}

// ArpEntry is one row of a router's ARP table.
type ArpEntry struct {
	Interface string  `json:"interface"`
	MAC       string  `json:"mac"`
	IP        string  `json:"ip"`
	Age       float64 `json:"age"`
}

// decodeGetter unmarshals one getter payload into v. A missing getter or an
// explicit null is reported as malformed as well.
func decodeGetter(host string, raw RawState, getter string, v interface{}) error {
	data, ok := raw[getter]
	if !ok || len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return &util.MalformedError{Host: host, Getter: getter, Err: fmt.Errorf("no payload")}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &util.MalformedError{Host: host, Getter: getter, Err: err}
	}
	return nil
}

func decodeMacTable(host string, raw RawState) ([]MacEntry, error) {
	var records []macRecord
	if err := decodeGetter(host, raw, GetterMACTable, &records); err != nil {
		return nil, err
	}
	entries := make([]MacEntry, 0, len(records))
	for _, r := range records {
		mac, err := util.NormalizeMAC(r.MAC)
		if err != nil {
			util.WithHost(host).Debugf("Skipping MAC table entry %q: %v", r.MAC, err)
			continue
		}
		vlan := strings.TrimSpace(string(r.VLAN))
		if vlan == "" {
			vlan = NotAvailable
		}
		entries = append(entries, MacEntry{
			MAC:       mac,
			Interface: util.CollapseInterface(util.ExpandInterface(r.Interface)),
			VLAN:      vlan,
		})
	}
	return entries, nil
}

func decodeInterfaces(host string, raw RawState) (map[string]string, error) {
	var records map[string]interfaceRecord
	if err := decodeGetter(host, raw, GetterInterfaces, &records); err != nil {
		return nil, err
	}
	descs := make(map[string]string, len(records))
	for name, r := range records {
		descs[util.ExpandInterface(name)] = strings.TrimSpace(r.Description)
	}
	return descs, nil
}

func decodeLocation(host string, raw RawState) (string, error) {
	var record snmpRecord
	if err := decodeGetter(host, raw, GetterSNMP, &record); err != nil {
		return NotAvailable, err
	}
	if loc := strings.TrimSpace(record.Location); loc != "" {
		return loc, nil
	}
	return NotAvailable, nil
}

func decodeVLANs(host string, raw RawState) (map[string]VLAN, error) {
	var records map[string]vlanRecord
	if err := decodeGetter(host, raw, GetterVLANs, &records); err != nil {
		return nil, err
	}
	vlans := make(map[string]VLAN, len(records))
	for id, r := range records {
		id = strings.TrimSpace(id)
		members := make([]string, 0, len(r.Interfaces))
		for _, m := range r.Interfaces {
			members = append(members, util.ExpandInterface(m))
		}
		util.SortInterfaceNames(members)
		vlans[id] = VLAN{ID: id, Name: r.Name, Members: members}
	}
	return vlans, nil
}

// DecodeARPTable decodes a get_arp_table payload. MACs are normalized to
// dotted form; rows whose MAC does not normalize are dropped.
func DecodeARPTable(host string, raw RawState) ([]ArpEntry, error) {
	var records []ArpEntry
	if err := decodeGetter(host, raw, GetterARP, &records); err != nil {
		return nil, err
	}
	entries := records[:0]
	for _, r := range records {
		mac, err := util.NormalizeMAC(r.MAC)
		if err != nil {
			continue
		}
		r.MAC = mac
		entries = append(entries, r)
	}
	return entries, nil
}
