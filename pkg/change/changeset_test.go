package change

import (
	"reflect"
	"strings"
	"testing"
)

func TestAccessVLANChange(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{
			name: "vlan only",
			want: []string{
				"interface GigabitEthernet1/0/5",
				"switchport access vlan 99",
				"exit",
			},
		},
		{
			name:        "with description",
			description: "desk 4.12",
			want: []string{
				"interface GigabitEthernet1/0/5",
				"switchport access vlan 99",
				"description desk 4.12",
				"exit",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := AccessVLANChange("SW1", "GigabitEthernet1/0/5", "99", tt.description)
			if !reflect.DeepEqual(cs.Lines, tt.want) {
				t.Errorf("Lines = %q, want %q", cs.Lines, tt.want)
			}
			if cs.Host != "SW1" || cs.Interface != "GigabitEthernet1/0/5" {
				t.Errorf("Host/Interface = %s/%s", cs.Host, cs.Interface)
			}
		})
	}
}

func TestChangeSetPreview(t *testing.T) {
	cs := AccessVLANChange("SW1", "GigabitEthernet1/0/5", "99", "")
	preview := cs.Preview()
	for _, want := range []string{"Operation: set-access-vlan", "Host: SW1", "Interface: GigabitEthernet1/0/5", "  switchport access vlan 99"} {
		if !strings.Contains(preview, want) {
			t.Errorf("Preview() missing %q:\n%s", want, preview)
		}
	}

	empty := NewChangeSet("SW1", "Gi1/0/1", "noop")
	if !empty.IsEmpty() || empty.String() != "No changes" {
		t.Errorf("empty ChangeSet String() = %q", empty.String())
	}
	if p := empty.Preview(); !strings.Contains(p, "Commands: none") {
		t.Errorf("empty Preview() = %q", p)
	}
}
