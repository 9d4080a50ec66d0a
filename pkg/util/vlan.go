package util

import (
	"sort"
	"strconv"
	"strings"
)

// Valid IEEE 802.1Q VLAN id bounds.
const (
	MinVLANID = 1
	MaxVLANID = 4094
)

// ParseVLANID parses s as a VLAN id in the 1-4094 range.
func ParseVLANID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < MinVLANID || id > MaxVLANID {
		return 0, NewFormatError("VLAN id", s)
	}
	return id, nil
}

// SortVLANIDs sorts VLAN id strings numerically. Non-numeric ids sort after
// numeric ones, alphabetically.
func SortVLANIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
}
