package change_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/newtron-network/portfinder/internal/testutil"
	"github.com/newtron-network/portfinder/pkg/audit"
	"github.com/newtron-network/portfinder/pkg/change"
	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

func newOrchestrator(fleet *testutil.Fleet, opts ...change.Option) *change.Orchestrator {
	b := snapshot.NewBuilder(fleet, fleet)
	return change.New(b, fleet, fleet, opts...)
}

func testFleet() *testutil.Fleet {
	return testutil.NewFleet().Add("SW1", testutil.SW1()).Add("R1", testutil.R1())
}

func TestSubmitPendingWithoutConfirm(t *testing.T) {
	fleet := testFleet()
	o := newOrchestrator(fleet)

	out := o.Submit(context.Background(), change.Request{
		Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: false,
	})

	if out.Kind != change.KindPending {
		t.Fatalf("Kind = %q, want %q (%s)", out.Kind, change.KindPending, out.Message)
	}
	if out.State != change.StateAwaitingConfirmation {
		t.Errorf("State = %q", out.State)
	}
	for _, want := range []string{"SW1", "Gi1/0/5", "VLAN 99", "VLAN 10"} {
		if !strings.Contains(out.Message, want) {
			t.Errorf("Message %q should contain %q", out.Message, want)
		}
	}
	if n := fleet.MutatingCalls(); n != 0 {
		t.Errorf("MutatingCalls = %d, want 0", n)
	}
	if out.ChangeSet == nil || len(out.ChangeSet.Lines) != 3 {
		t.Errorf("ChangeSet should preview the commands: %+v", out.ChangeSet)
	}
}

func TestSubmitPendingMentionsDescription(t *testing.T) {
	o := newOrchestrator(testFleet())

	out := o.Submit(context.Background(), change.Request{
		Host: "SW1", Interface: "Gi1/0/5", VLAN: "20", Description: "desk 12",
	})
	if out.Kind != change.KindPending {
		t.Fatalf("Kind = %q", out.Kind)
	}
	if !strings.Contains(out.Message, `description "desk 12"`) {
		t.Errorf("Message %q should mention the description", out.Message)
	}
}

func TestSubmitAppliedWithConfirm(t *testing.T) {
	fleet := testFleet()
	o := newOrchestrator(fleet)

	out := o.Submit(context.Background(), change.Request{
		Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: true,
	})

	if out.Kind != change.KindApplied {
		t.Fatalf("Kind = %q, want %q (%s)", out.Kind, change.KindApplied, out.Message)
	}
	applies := fleet.CallsTo("ApplyConfig")
	if len(applies) != 1 {
		t.Fatalf("ApplyConfig calls = %d, want 1", len(applies))
	}
	wantOutput := "configure terminal\n" + strings.Join(applies[0].Lines, "\n") + "\nend\n"
	if out.ConfigOutput != wantOutput {
		t.Errorf("ConfigOutput = %q, want %q", out.ConfigOutput, wantOutput)
	}
	if out.Record == nil || out.Record.VLAN != "99" {
		t.Errorf("re-fetched VLAN = %v, want 99", out.Record)
	}
	if !out.Verified {
		t.Error("Verified should be true")
	}
	if !strings.Contains(out.VerifyOutput, "switchport access vlan 99") {
		t.Errorf("VerifyOutput = %q", out.VerifyOutput)
	}
	if out.Message != "Changed Gi1/0/5 to VLAN 99 on SW1" {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestSubmitSequenceIsApplyThenVerify(t *testing.T) {
	fleet := testFleet()
	o := newOrchestrator(fleet)

	o.Submit(context.Background(), change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "20", Confirm: true})

	var seq []string
	for _, c := range fleet.Calls() {
		if c.Method == "ApplyConfig" || strings.HasPrefix(c.Command, "show running-config") {
			seq = append(seq, c.Method)
		}
	}
	if strings.Join(seq, ",") != "ApplyConfig,FetchText" {
		t.Errorf("sequence = %v, want ApplyConfig then FetchText", seq)
	}
}

func TestSubmitRejectsUnknownVLAN(t *testing.T) {
	for _, confirm := range []bool{false, true} {
		t.Run(fmt.Sprintf("confirm=%v", confirm), func(t *testing.T) {
			fleet := testFleet()
			o := newOrchestrator(fleet)

			out := o.Submit(context.Background(), change.Request{
				Host: "SW1", Interface: "Gi1/0/5", VLAN: "300", Confirm: confirm,
			})

			if out.Kind != change.KindRejected {
				t.Fatalf("Kind = %q, want %q", out.Kind, change.KindRejected)
			}
			if !errors.Is(out.Err, util.ErrInvalidVlanSelection) || out.Reason != "InvalidVlanSelection" {
				t.Errorf("Err/Reason = %v/%q", out.Err, out.Reason)
			}
			if n := fleet.MutatingCalls(); n != 0 {
				t.Errorf("MutatingCalls = %d, want 0", n)
			}
			if out.Record == nil || len(out.Record.AvailableVLANs) == 0 || out.Record.VLAN != "10" {
				t.Errorf("rejection should carry fresh fields: %+v", out.Record)
			}
		})
	}
}

func TestSubmitNeverMutatesOnInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		req    change.Request
		reason string
	}{
		{"trunk interface", change.Request{Host: "SW1", Interface: "Gi1/0/48", VLAN: "10"}, "IneligibleInterface"},
		{"port-channel", change.Request{Host: "SW1", Interface: "Port-channel1", VLAN: "10"}, "IneligibleInterface"},
		{"unknown interface", change.Request{Host: "SW1", Interface: "Gi4/0/1", VLAN: "10"}, "NotFound"},
		{"unknown host", change.Request{Host: "SW9", Interface: "Gi1/0/5", VLAN: "10"}, "NotFound"},
		{"vlan not numeric", change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "users"}, "InvalidFormat"},
		{"vlan out of range", change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "4095"}, "InvalidFormat"},
		{"missing host", change.Request{Interface: "Gi1/0/5", VLAN: "10"}, "ValidationFailed"},
		{"description injection", change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "10", Description: "x\nshutdown"}, "InvalidFormat"},
	}

	for _, tt := range tests {
		for _, confirm := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/confirm=%v", tt.name, confirm), func(t *testing.T) {
				fleet := testFleet()
				o := newOrchestrator(fleet)
				req := tt.req
				req.Confirm = confirm

				out := o.Submit(context.Background(), req)

				if out.Kind != change.KindRejected {
					t.Errorf("Kind = %q, want %q", out.Kind, change.KindRejected)
				}
				if out.Reason != tt.reason {
					t.Errorf("Reason = %q, want %q (%v)", out.Reason, tt.reason, out.Err)
				}
				if n := fleet.MutatingCalls(); n != 0 {
					t.Errorf("MutatingCalls = %d, want 0", n)
				}
			})
		}
	}
}

func TestSubmitApplyFailureSurfacedVerbatim(t *testing.T) {
	fleet := testFleet()
	fleet.Device("SW1").ApplyFailed = true
	fleet.Device("SW1").ApplyDetail = "% Invalid input detected at '^' marker."
	o := newOrchestrator(fleet)

	out := o.Submit(context.Background(), change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: true})

	if out.Kind != change.KindFailed || out.State != change.StateFailed {
		t.Fatalf("Kind/State = %q/%q", out.Kind, out.State)
	}
	if out.Message != "Failed to change VLAN: % Invalid input detected at '^' marker." {
		t.Errorf("Message = %q", out.Message)
	}
	if n := fleet.MutatingCalls(); n != 1 {
		t.Errorf("MutatingCalls = %d, want exactly 1 (no retry)", n)
	}
	if out.Record == nil || out.Record.VLAN != "10" {
		t.Errorf("failure should carry fresh fields: %+v", out.Record)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	fleet := testFleet()
	fleet.Device("SW1").ApplyErr = errors.New("ssh: unexpected EOF")
	o := newOrchestrator(fleet)

	out := o.Submit(context.Background(), change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: true})

	if out.Kind != change.KindFailed {
		t.Fatalf("Kind = %q", out.Kind)
	}
	if !errors.Is(out.Err, util.ErrTransport) || out.Reason != "TransportError" {
		t.Errorf("Err/Reason = %v/%q", out.Err, out.Reason)
	}
	if !strings.Contains(out.Message, "ssh: unexpected EOF") {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestSubmitUnreachableBeforeApply(t *testing.T) {
	fleet := testFleet()
	fleet.Device("SW1").StateErr = errors.New("dial tcp 10.0.0.1:22: i/o timeout")
	o := newOrchestrator(fleet)

	out := o.Submit(context.Background(), change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: true})

	if out.Kind != change.KindFailed || out.Reason != "TransportError" {
		t.Errorf("Kind/Reason = %q/%q", out.Kind, out.Reason)
	}
	if n := fleet.MutatingCalls(); n != 0 {
		t.Errorf("MutatingCalls = %d, want 0", n)
	}
}

type fakeLocker struct {
	err      error
	locked   []string
	released int
}

func (l *fakeLocker) Lock(ctx context.Context, host, holder string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, host+"/"+holder)
	return func() { l.released++ }, nil
}

func TestSubmitHoldsLockDuringApply(t *testing.T) {
	fleet := testFleet()
	locker := &fakeLocker{}
	o := newOrchestrator(fleet, change.WithLocker(locker))

	out := o.Submit(context.Background(), change.Request{
		Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: true, User: "alice", RequestID: "req-1",
	})
	if out.Kind != change.KindApplied {
		t.Fatalf("Kind = %q (%s)", out.Kind, out.Message)
	}
	if len(locker.locked) != 1 || locker.locked[0] != "SW1/alice:req-1" || locker.released != 1 {
		t.Errorf("locked=%v released=%d", locker.locked, locker.released)
	}

	o.Submit(context.Background(), change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "20"})
	if len(locker.locked) != 1 {
		t.Error("a pending request should not take the lock")
	}
}

func TestSubmitLockHolderIsPerSubmission(t *testing.T) {
	fleet := testFleet()
	locker := &fakeLocker{}
	o := newOrchestrator(fleet, change.WithLocker(locker))

	for i := 0; i < 2; i++ {
		o.Submit(context.Background(), change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: true})
	}
	if len(locker.locked) != 2 {
		t.Fatalf("locked = %v, want 2 acquisitions", locker.locked)
	}
	if locker.locked[0] == locker.locked[1] {
		t.Errorf("anonymous submissions share holder %q", locker.locked[0])
	}
	if !strings.HasPrefix(locker.locked[0], "SW1/portfinder:") {
		t.Errorf("holder = %q, want portfinder:<id>", locker.locked[0])
	}
}

func TestSubmitCanonicalVLANID(t *testing.T) {
	for _, confirm := range []bool{false, true} {
		t.Run(fmt.Sprintf("confirm=%v", confirm), func(t *testing.T) {
			fleet := testFleet()
			o := newOrchestrator(fleet)

			out := o.Submit(context.Background(), change.Request{
				Host: "SW1", Interface: "Gi1/0/5", VLAN: " 099 ", Confirm: confirm,
			})
			want := change.KindPending
			if confirm {
				want = change.KindApplied
			}
			if out.Kind != want {
				t.Fatalf("Kind = %q (%s), want %q", out.Kind, out.Message, want)
			}
			if strings.Contains(out.Message, "099") {
				t.Errorf("message carries the raw id: %q", out.Message)
			}
			for _, line := range out.ChangeSet.Lines {
				if strings.HasPrefix(line, "switchport access vlan") && line != "switchport access vlan 99" {
					t.Errorf("changeset line = %q", line)
				}
			}
		})
	}
}

func TestSubmitEarlyRejectionCarriesHostRecord(t *testing.T) {
	tests := []struct {
		name     string
		req      change.Request
		wantHost bool
	}{
		{"vlan not numeric", change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "users"}, true},
		{"description injection", change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "10", Description: "a\nb"}, true},
		{"unknown host", change.Request{Host: "SW9", Interface: "Gi1/0/5", VLAN: "users"}, false},
		{"missing host", change.Request{Interface: "Gi1/0/5", VLAN: "10"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := newOrchestrator(testFleet()).Submit(context.Background(), tt.req)
			if out.Kind != change.KindRejected {
				t.Fatalf("Kind = %q, want rejected", out.Kind)
			}
			if tt.wantHost {
				if out.Record == nil || out.Record.Host != "SW1" || len(out.Record.AvailableVLANs) == 0 {
					t.Errorf("Record = %+v, want SW1 host record", out.Record)
				}
			} else if out.Record != nil {
				t.Errorf("Record = %+v, want nil", out.Record)
			}
		})
	}
}

func TestSubmitLockContention(t *testing.T) {
	fleet := testFleet()
	locker := &fakeLocker{err: fmt.Errorf("SW1 held by bob: %w", util.ErrLocked)}
	o := newOrchestrator(fleet, change.WithLocker(locker))

	out := o.Submit(context.Background(), change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", Confirm: true})

	if out.Kind != change.KindFailed || out.Reason != "Locked" {
		t.Errorf("Kind/Reason = %q/%q", out.Kind, out.Reason)
	}
	if n := fleet.MutatingCalls(); n != 0 {
		t.Errorf("MutatingCalls = %d, want 0", n)
	}
}

func TestSubmitAuditEvents(t *testing.T) {
	fleet := testFleet()
	auditor := &audit.MemoryLogger{}
	o := newOrchestrator(fleet, change.WithAuditor(auditor))
	ctx := context.Background()

	o.Submit(ctx, change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", User: "alice"})
	o.Submit(ctx, change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "99", User: "alice", Confirm: true})
	o.Submit(ctx, change.Request{Host: "SW1", Interface: "Gi1/0/5", VLAN: "300", User: "alice"})

	events := auditor.Events()
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	wantTypes := []audit.EventType{audit.EventTypePreview, audit.EventTypeExecute, audit.EventTypeReject}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event %d type = %q, want %q", i, events[i].Type, want)
		}
	}
	if !events[1].Success || !events[1].ExecuteMode || events[1].FromVLAN != "10" || events[1].ToVLAN != "99" {
		t.Errorf("execute event = %+v", events[1])
	}
	if events[2].Success {
		t.Error("reject event should not be successful")
	}
}
