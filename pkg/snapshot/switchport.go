package snapshot

import (
	"bufio"
	"strings"

	"github.com/newtron-network/portfinder/pkg/util"
)

const portChannelPrefix = "Po"

// Classify parses "show interfaces switchport" output into a mode per
// interface, keyed by long name. A "Name:" line opens a record that stays
// open until the next "Name:". Either the administrative or the operational
// mode reporting trunk makes the interface a trunk, so a dynamic port that
// negotiated a trunk is never offered as access. Records that never see a
// mode line are omitted.
func Classify(text string) map[string]Mode {
	modes := make(map[string]Mode)

	var current string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Name:"):
			current = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
		case current != "" && (strings.HasPrefix(line, "Administrative Mode:") || strings.HasPrefix(line, "Operational Mode:")):
			key := util.ExpandInterface(current)
			value := line[strings.Index(line, ":")+1:]
			if modes[key] == ModeTrunk {
				continue
			}
			modes[key] = classifyMode(current, value)
		}
	}
	return modes
}

func classifyMode(name, value string) Mode {
	if isPortChannel(name) {
		return ModePortChannel
	}
	if strings.Contains(strings.ToLower(value), "trunk") {
		return ModeTrunk
	}
	return ModeAccess
}

func isPortChannel(name string) bool {
	return len(name) >= len(portChannelPrefix) &&
		strings.EqualFold(name[:len(portChannelPrefix)], portChannelPrefix)
}

// EligibleSet returns the access-eligible interface names from modes in
// natural port order.
func EligibleSet(modes map[string]Mode) []string {
	var names []string
	for name, mode := range modes {
		if mode == ModeAccess {
			names = append(names, name)
		}
	}
	util.SortInterfaceNames(names)
	return names
}
