package device

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// IOS show commands behind each getter.
const (
	CmdMACTable     = "show mac address-table"
	CmdDescriptions = "show interfaces description"
	CmdVLANBrief    = "show vlan brief"
	CmdARP          = "show ip arp"
	CmdSNMPLocation = "show snmp location"
)

var (
	macTableRegex  = regexp.MustCompile(`^\s*(\d+)\s+([0-9A-Fa-f]{4}\.[0-9A-Fa-f]{4}\.[0-9A-Fa-f]{4})\s+(\S+)\s+(\S+)\s*$`)
	interfaceRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z-]*\d+(?:/\d+){0,3}(?:\.\d+)?$`)
	vlanRowRegex   = regexp.MustCompile(`^(\d{1,4})\s+(\S+)\s+(\S+)\s*(.*)$`)
	arpRowRegex    = regexp.MustCompile(`^Internet\s+(\d{1,3}(?:\.\d{1,3}){3})\s+(\S+)\s+(\S+)\s+\S+\s*(\S*)\s*$`)
)

// MacRow is one row of the mac_address_table payload.
type MacRow struct {
	MAC       string `json:"mac"`
	Interface string `json:"interface"`
	VLAN      int    `json:"vlan"`
	Static    bool   `json:"static"`
}

// InterfaceRow is one value of the interfaces payload.
type InterfaceRow struct {
	Description string `json:"description"`
	IsUp        bool   `json:"is_up"`
	IsEnabled   bool   `json:"is_enabled"`
}

// VLANRow is one value of the get_vlans payload.
type VLANRow struct {
	Name       string   `json:"name"`
	Interfaces []string `json:"interfaces"`
}

// ARPRow is one row of the get_arp_table payload. Age is -1 for the
// router's own addresses.
type ARPRow struct {
	Interface string  `json:"interface"`
	MAC       string  `json:"mac"`
	IP        string  `json:"ip"`
	Age       float64 `json:"age"`
}

// SNMPRow is the get_snmp_information payload.
type SNMPRow struct {
	Location string `json:"location"`
}

// CommandError is IOS rejecting a command with a "%" marker.
type CommandError struct {
	Command string
	Detail  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("'%s' rejected: %s", e.Command, e.Detail)
}

// ErrorMarker returns the first "% ..." line of output, or "" if IOS
// accepted the command.
func ErrorMarker(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "%") {
			return line
		}
	}
	return ""
}

// checkOutput turns an IOS error marker in output into a CommandError.
func checkOutput(command, output string) error {
	if detail := ErrorMarker(output); detail != "" {
		return &CommandError{Command: command, Detail: detail}
	}
	return nil
}

// ParseMACTable parses "show mac address-table". Rows on CPU or other
// non-interface ports are skipped.
func ParseMACTable(output string) []MacRow {
	rows := make([]MacRow, 0)
	for _, line := range splitLines(output) {
		m := macTableRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		vlan, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		port := m[4]
		if !interfaceRegex.MatchString(port) {
			continue
		}
		rows = append(rows, MacRow{
			MAC:       strings.ToLower(m[2]),
			Interface: port,
			VLAN:      vlan,
			Static:    strings.EqualFold(m[3], "STATIC"),
		})
	}
	return rows
}

// ParseInterfaceDescriptions parses "show interfaces description". The
// description column is located from the header so multi-word status
// values such as "admin down" do not shift it.
func ParseInterfaceDescriptions(output string) map[string]InterfaceRow {
	rows := make(map[string]InterfaceRow)
	descCol, statusCol, protoCol := -1, -1, -1
	for _, line := range splitLines(output) {
		if descCol < 0 {
			if strings.HasPrefix(strings.TrimSpace(line), "Interface") {
				descCol = strings.Index(line, "Description")
				statusCol = strings.Index(line, "Status")
				protoCol = strings.Index(line, "Protocol")
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || !interfaceRegex.MatchString(fields[0]) {
			continue
		}
		row := InterfaceRow{}
		if descCol >= 0 && len(line) > descCol {
			row.Description = strings.TrimSpace(line[descCol:])
		}
		status := column(line, statusCol, protoCol)
		row.IsEnabled = !strings.Contains(status, "admin")
		row.IsUp = strings.HasPrefix(column(line, protoCol, descCol), "up")
		rows[fields[0]] = row
	}
	return rows
}

func column(line string, start, end int) string {
	if start < 0 || start >= len(line) {
		return ""
	}
	if end < 0 || end > len(line) {
		end = len(line)
	}
	if end < start {
		return ""
	}
	return strings.TrimSpace(line[start:end])
}

// ParseVLANBrief parses "show vlan brief". Port lists that wrap onto
// continuation lines are attached to the preceding VLAN.
func ParseVLANBrief(output string) map[string]VLANRow {
	vlans := make(map[string]VLANRow)
	current := ""
	for _, line := range splitLines(output) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isSeparatorLine(trimmed) {
			continue
		}
		if m := vlanRowRegex.FindStringSubmatch(trimmed); m != nil && !startsWithSpace(line) {
			current = m[1]
			vlans[current] = VLANRow{Name: m[2], Interfaces: splitPorts(m[4])}
			continue
		}
		if current != "" && startsWithSpace(line) {
			row := vlans[current]
			row.Interfaces = append(row.Interfaces, splitPorts(trimmed)...)
			vlans[current] = row
		}
	}
	return vlans
}

func splitPorts(s string) []string {
	ports := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if interfaceRegex.MatchString(p) {
			ports = append(ports, p)
		}
	}
	return ports
}

// ParseARP parses "show ip arp". Incomplete entries are skipped.
func ParseARP(output string) []ARPRow {
	rows := make([]ARPRow, 0)
	for _, line := range splitLines(output) {
		m := arpRowRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if strings.EqualFold(m[3], "Incomplete") {
			continue
		}
		age := -1.0
		if m[2] != "-" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				age = v
			}
		}
		rows = append(rows, ARPRow{
			Interface: m[4],
			MAC:       strings.ToLower(m[3]),
			IP:        m[1],
			Age:       age,
		})
	}
	return rows
}

// ParseSNMPLocation parses "show snmp location", which prints the bare
// location string.
func ParseSNMPLocation(output string) string {
	for _, line := range splitLines(output) {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func splitLines(output string) []string {
	return strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
}

func startsWithSpace(line string) bool {
	return line != "" && (line[0] == ' ' || line[0] == '\t')
}

func isSeparatorLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 3 {
		return false
	}
	for _, ch := range trimmed {
		if ch != '-' && ch != '=' && ch != ' ' {
			return false
		}
	}
	return true
}
