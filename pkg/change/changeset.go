package change

import (
	"fmt"
	"strings"
	"time"
)

// ChangeSet is the ordered list of configuration lines for one interface
// change, sent to the device as a single transaction.
type ChangeSet struct {
	Host      string    `json:"host"`
	Interface string    `json:"interface"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
	Lines     []string  `json:"lines"`
}

// NewChangeSet creates an empty ChangeSet.
func NewChangeSet(host, intf, operation string) *ChangeSet {
	return &ChangeSet{
		Host:      host,
		Interface: intf,
		Operation: operation,
		Timestamp: time.Now(),
		Lines:     make([]string, 0),
	}
}

// Add appends a configuration line.
func (cs *ChangeSet) Add(line string) {
	cs.Lines = append(cs.Lines, line)
}

// IsEmpty returns true if there are no lines.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Lines) == 0
}

// String returns the lines one per line.
func (cs *ChangeSet) String() string {
	if cs.IsEmpty() {
		return "No changes"
	}
	return strings.Join(cs.Lines, "\n")
}

// Preview returns the change set as shown to an operator before confirming.
func (cs *ChangeSet) Preview() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Operation: %s\n", cs.Operation))
	sb.WriteString(fmt.Sprintf("Host: %s\n", cs.Host))
	sb.WriteString(fmt.Sprintf("Interface: %s\n", cs.Interface))
	if cs.IsEmpty() {
		sb.WriteString("Commands: none\n")
		return sb.String()
	}
	sb.WriteString("Commands:\n")
	for _, line := range cs.Lines {
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

// AccessVLANChange builds the configuration for moving an interface (long
// form) to an access VLAN, optionally setting its description.
func AccessVLANChange(host, intf, vlan, description string) *ChangeSet {
	cs := NewChangeSet(host, intf, "set-access-vlan")
	cs.Add("interface " + intf)
	cs.Add("switchport access vlan " + vlan)
	if description != "" {
		cs.Add("description " + description)
	}
	cs.Add("exit")
	return cs
}
