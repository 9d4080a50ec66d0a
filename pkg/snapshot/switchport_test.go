package snapshot

import (
	"reflect"
	"testing"
)

const iosSwitchport = `Name: Gi1/0/1
Switchport: Enabled
Administrative Mode: static access
Operational Mode: static access
Administrative Trunking Encapsulation: dot1q
Access Mode VLAN: 10 (USERS)

Name: Gi1/0/2
Switchport: Enabled
Administrative Mode: trunk
Operational Mode: trunk
Access Mode VLAN: 1 (default)

Name: Gi1/0/3
Switchport: Enabled
Administrative Mode: dynamic auto
Operational Mode: down

Name: Gi1/0/4
Switchport: Disabled

Name: Po1
Switchport: Enabled
Administrative Mode: static access
Operational Mode: static access

Name: Te1/1/1
Switchport: Enabled
Operational Mode: trunk
Administrative Mode: static access
`

func TestClassify(t *testing.T) {
	got := Classify(iosSwitchport)
	want := map[string]Mode{
		"GigabitEthernet1/0/1":    ModeAccess,
		"GigabitEthernet1/0/2":    ModeTrunk,
		"GigabitEthernet1/0/3":    ModeAccess,
		"Po1":                     ModePortChannel,
		"TenGigabitEthernet1/1/1": ModeTrunk,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Classify() = %v, want %v", got, want)
	}
}

func TestClassifyEmpty(t *testing.T) {
	for _, text := range []string{"", "\n\n", "% Invalid input detected at '^' marker.", "Administrative Mode: trunk"} {
		if got := Classify(text); len(got) != 0 {
			t.Errorf("Classify(%q) = %v, want empty", text, got)
		}
		if got := EligibleSet(Classify(text)); len(got) != 0 {
			t.Errorf("EligibleSet(%q) = %v, want empty", text, got)
		}
	}
}

func TestEligibleSetExcludesTrunksAndPortChannels(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "mixed",
			text: iosSwitchport,
			want: []string{"GigabitEthernet1/0/1", "GigabitEthernet1/0/3"},
		},
		{
			name: "port-channel long name in access mode",
			text: "Name: Port-channel5\nAdministrative Mode: static access\n",
			want: nil,
		},
		{
			name: "trunk regardless of name",
			text: "Name: Fa0/1\nOperational Mode: trunk\nName: Fa0/2\nOperational Mode: TRUNK\n",
			want: nil,
		},
		{
			name: "sorted naturally",
			text: "Name: Gi1/0/10\nAdministrative Mode: static access\nName: Gi1/0/2\nAdministrative Mode: static access\n",
			want: []string{"GigabitEthernet1/0/2", "GigabitEthernet1/0/10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modes := Classify(tt.text)
			got := EligibleSet(modes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EligibleSet() = %v, want %v", got, tt.want)
			}
			for _, name := range got {
				if modes[name] == ModeTrunk || isPortChannel(name) {
					t.Errorf("%s should not be eligible", name)
				}
			}
		})
	}
}

func TestClassifyTrunkIsSticky(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Mode
	}{
		{
			name: "dynamic auto negotiated trunk",
			text: "Name: Gi1/0/24\nSwitchport: Enabled\nAdministrative Mode: dynamic auto\nOperational Mode: trunk\n",
			want: ModeTrunk,
		},
		{
			name: "dynamic desirable negotiated trunk",
			text: "Name: Gi1/0/24\nAdministrative Mode: dynamic desirable\nOperational Mode: trunk\n",
			want: ModeTrunk,
		},
		{
			name: "configured trunk operationally down",
			text: "Name: Gi1/0/24\nAdministrative Mode: trunk\nOperational Mode: down\n",
			want: ModeTrunk,
		},
		{
			name: "dynamic auto negotiated access",
			text: "Name: Gi1/0/24\nAdministrative Mode: dynamic auto\nOperational Mode: static access\n",
			want: ModeAccess,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modes := Classify(tt.text)
			if got := modes["GigabitEthernet1/0/24"]; got != tt.want {
				t.Errorf("mode = %q, want %q", got, tt.want)
			}
			eligible := EligibleSet(modes)
			if tt.want == ModeTrunk && len(eligible) != 0 {
				t.Errorf("trunk offered as access-eligible: %v", eligible)
			}
		})
	}
}

func TestClassifyRecordClosesOnNextName(t *testing.T) {
	text := "Name: Gi1/0/1\nAdministrative Mode: trunk\nOperational Mode: trunk\n\n" +
		"Name: Gi1/0/2\nAdministrative Mode: static access\nOperational Mode: static access\n"
	modes := Classify(text)
	if modes["GigabitEthernet1/0/1"] != ModeTrunk || modes["GigabitEthernet1/0/2"] != ModeAccess {
		t.Errorf("modes = %v", modes)
	}
}
