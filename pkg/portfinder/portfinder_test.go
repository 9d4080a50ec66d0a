package portfinder_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/newtron-network/portfinder/internal/testutil"
	"github.com/newtron-network/portfinder/pkg/audit"
	"github.com/newtron-network/portfinder/pkg/change"
	"github.com/newtron-network/portfinder/pkg/portfinder"
	"github.com/newtron-network/portfinder/pkg/util"
)

func newService(t *testing.T) (*portfinder.Service, *testutil.Fleet, *audit.MemoryLogger) {
	t.Helper()
	fleet := testutil.NewFleet().Add("SW1", testutil.SW1()).Add("R1", testutil.R1())
	events := &audit.MemoryLogger{}
	return portfinder.New(fleet, portfinder.Options{Auditor: events}), fleet, events
}

func TestSearch_MACScenario(t *testing.T) {
	svc, _, _ := newService(t)

	rec, err := svc.Search(context.Background(), "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := []string{rec.Host, rec.Interface, rec.InterfaceLong, rec.VLAN, rec.Description}
	want := []string{"SW1", "Gi1/0/5", "GigabitEthernet1/0/5", "10", "uplink"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("record = %v, want %v", got, want)
	}
	if rec.IPAddress != "10.0.10.25" {
		t.Errorf("IPAddress = %q, want 10.0.10.25", rec.IPAddress)
	}
}

func TestSearch_HostnameScenario(t *testing.T) {
	svc, _, _ := newService(t)

	rec, err := svc.Search(context.Background(), "SW1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if rec.Interface != "" || rec.InterfaceLong != "" || rec.MAC != "" {
		t.Errorf("host-level record has interface fields: %+v", rec)
	}
	if !reflect.DeepEqual(rec.AvailableVLANs, []string{"1", "10", "20", "99"}) {
		t.Errorf("AvailableVLANs = %v", rec.AvailableVLANs)
	}
	if !reflect.DeepEqual(rec.AvailableInterfaces, []string{"GigabitEthernet1/0/5", "GigabitEthernet1/0/6"}) {
		t.Errorf("AvailableInterfaces = %v", rec.AvailableInterfaces)
	}
}

func TestSearch_NotFound(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Search(context.Background(), "no such port anywhere")
	if !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("Search error = %v, want ErrNotFound", err)
	}
	if errors.Is(err, util.ErrTransport) {
		t.Error("not-found must not look like a transport failure")
	}
}

func TestSearchAll(t *testing.T) {
	svc, _, _ := newService(t)

	recs, err := svc.SearchAll(context.Background(), "printer")
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(recs) != 1 || recs[0].Host != "SW1" || recs[0].Interface != "Gi1/0/6" {
		t.Errorf("SearchAll = %+v, want SW1 Gi1/0/6", recs)
	}
}

func TestGetInterfaceDetails(t *testing.T) {
	svc, _, _ := newService(t)

	rec, err := svc.GetInterfaceDetails(context.Background(), "SW1", "Gi1/0/6")
	if err != nil {
		t.Fatalf("GetInterfaceDetails: %v", err)
	}
	if rec.InterfaceLong != "GigabitEthernet1/0/6" || rec.VLAN != "20" || rec.Description != "printer room 2" {
		t.Errorf("record = %+v", rec)
	}

	if _, err := svc.GetInterfaceDetails(context.Background(), "SW9", "Gi1/0/6"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("unknown host error = %v, want ErrNotFound", err)
	}
}

func TestSubmitVlanChange_PendingScenario(t *testing.T) {
	svc, fleet, events := newService(t)

	out := svc.SubmitVlanChange(context.Background(), change.Request{
		Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: false,
	})
	if out.Kind != change.KindPending {
		t.Fatalf("Kind = %q (%s), want pending", out.Kind, out.Message)
	}
	for _, want := range []string{"SW1", "Gi1/0/5", "VLAN 99"} {
		if !strings.Contains(out.Message, want) {
			t.Errorf("message %q does not name %q", out.Message, want)
		}
	}
	if n := fleet.MutatingCalls(); n != 0 {
		t.Errorf("MutatingCalls = %d, want 0", n)
	}
	if ev := events.Events(); len(ev) != 1 || ev[0].Type != audit.EventTypePreview {
		t.Errorf("audit events = %+v, want one preview", ev)
	}
}

func TestSubmitVlanChange_AppliedScenario(t *testing.T) {
	svc, fleet, events := newService(t)

	out := svc.SubmitVlanChange(context.Background(), change.Request{
		Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: true,
	})
	if out.Kind != change.KindApplied {
		t.Fatalf("Kind = %q (%s), want applied", out.Kind, out.Message)
	}
	calls := fleet.CallsTo("ApplyConfig")
	if len(calls) != 1 {
		t.Fatalf("ApplyConfig calls = %d, want 1", len(calls))
	}
	wantOutput := "configure terminal\n" + strings.Join(calls[0].Lines, "\n") + "\nend\n"
	if out.ConfigOutput != wantOutput {
		t.Errorf("ConfigOutput = %q, want the device output verbatim %q", out.ConfigOutput, wantOutput)
	}
	if out.Record == nil || out.Record.VLAN != "99" {
		t.Errorf("re-fetched record = %+v, want VLAN 99", out.Record)
	}
	if !strings.Contains(out.VerifyOutput, "switchport access vlan 99") {
		t.Errorf("VerifyOutput = %q", out.VerifyOutput)
	}
	if ev := events.Events(); len(ev) != 1 || ev[0].Type != audit.EventTypeExecute || !ev[0].Success {
		t.Errorf("audit events = %+v, want one successful execute", ev)
	}
}

func TestSubmitVlanChange_InvalidVLANNeverApplies(t *testing.T) {
	svc, fleet, _ := newService(t)

	for _, confirm := range []bool{false, true} {
		out := svc.SubmitVlanChange(context.Background(), change.Request{
			Host: "SW1", Interface: "Gi1/0/5", VLAN: "42", Confirm: confirm,
		})
		if out.Kind != change.KindRejected {
			t.Errorf("confirm=%v: Kind = %q, want rejected", confirm, out.Kind)
		}
		if !errors.Is(out.Err, util.ErrInvalidVlanSelection) {
			t.Errorf("confirm=%v: Err = %v", confirm, out.Err)
		}
		if out.Record == nil || len(out.Record.AvailableVLANs) == 0 {
			t.Errorf("confirm=%v: rejection must carry fresh fields", confirm)
		}
	}
	if n := fleet.MutatingCalls(); n != 0 {
		t.Errorf("MutatingCalls = %d, want 0", n)
	}
}

func TestHosts(t *testing.T) {
	svc, _, _ := newService(t)

	want := []portfinder.HostInfo{{Name: "SW1", Router: "R1"}, {Name: "R1"}}
	if got := svc.Hosts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Hosts() = %+v, want %+v", got, want)
	}
}
