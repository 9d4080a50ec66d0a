// Package cli provides terminal formatting for the portfinder CLI.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/newtron-network/portfinder/pkg/resolver"
)

// colorEnabled is false when NO_COLOR is set (see no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func Green(s string) string  { return paint("32", s) }
func Yellow(s string) string { return paint("33", s) }
func Red(s string) string    { return paint("31", s) }
func Bold(s string) string   { return paint("1", s) }
func Dim(s string) string    { return paint("2", s) }

// Status colours a change outcome kind: applied green, pending yellow,
// anything else red.
func Status(kind string) string {
	label := strings.ToUpper(kind)
	switch kind {
	case "applied":
		return Green(label)
	case "pending":
		return Yellow(label)
	default:
		return Red(label)
	}
}

// DotPad pads name with dots to the given width.
// Example: DotPad("VLAN", 12) → "VLAN ......."
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	return name + " " + strings.Repeat(".", width-len(name)-1)
}

const labelWidth = 22

// PrintRecord writes rec as dot-padded label/value lines. Host-level
// records skip the empty interface fields.
func PrintRecord(w io.Writer, rec *resolver.Record) {
	line := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", DotPad(label, labelWidth), value)
	}
	line("Host", Bold(rec.Host))
	if rec.Interface != "" {
		line("Interface", fmt.Sprintf("%s (%s)", rec.Interface, rec.InterfaceLong))
		line("VLAN", rec.VLAN)
		line("Description", rec.Description)
	}
	if rec.MAC != "" {
		line("MAC", rec.MAC)
		line("IP address", rec.IPAddress)
	}
	line("Router", rec.Router)
	line("SNMP location", rec.SNMPLocation)
	if len(rec.AvailableVLANs) > 0 {
		line("Available VLANs", strings.Join(rec.AvailableVLANs, ", "))
	}
	if len(rec.AvailableInterfaces) > 0 {
		line("Access interfaces", fmt.Sprintf("%d", len(rec.AvailableInterfaces)))
	}
}
