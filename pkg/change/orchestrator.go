// Package change implements the guarded access-VLAN change workflow:
// validate against fresh device state, require confirmation, apply, verify.
package change

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newtron-network/portfinder/pkg/audit"
	"github.com/newtron-network/portfinder/pkg/resolver"
	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

// ApplyResult is the device response to a configuration transaction.
type ApplyResult struct {
	Output        string `json:"output"`
	Failed        bool   `json:"failed"`
	FailureDetail string `json:"failure_detail,omitempty"`
}

// Applier pushes configuration lines to one host.
type Applier interface {
	ApplyConfig(ctx context.Context, host string, lines []string) (ApplyResult, error)
}

// Locker serializes changes to a host across processes. The returned
// function releases the lock.
type Locker interface {
	Lock(ctx context.Context, host, holder string) (func(), error)
}

// State is a step of the change workflow.
type State string

const (
	StateDrafting             State = "drafting"
	StateAwaitingValidation   State = "awaiting-validation"
	StateAwaitingConfirmation State = "awaiting-confirmation"
	StateApplying             State = "applying"
	StateApplied              State = "applied"
	StateFailed               State = "failed"
)

// Kind tags an Outcome.
type Kind string

const (
	KindPending  Kind = "pending"
	KindRejected Kind = "rejected"
	KindApplied  Kind = "applied"
	KindFailed   Kind = "failed"
)

// Request is one operator submission. Nothing is kept between submissions;
// confirmation is expressed by resubmitting with Confirm set.
type Request struct {
	Host        string `json:"host"`
	Interface   string `json:"interface"`
	VLAN        string `json:"vlan"`
	CurrentVLAN string `json:"current_vlan,omitempty"`
	Description string `json:"description,omitempty"`
	Confirm     bool   `json:"confirm"`
	User        string `json:"-"`
	RequestID   string `json:"-"`
}

// Outcome is the result of Submit. Record holds the freshest device fields
// available when the workflow stopped and is nil only if the device could
// not be read at all.
type Outcome struct {
	Kind         Kind             `json:"kind"`
	State        State            `json:"state"`
	Message      string           `json:"message"`
	Err          error            `json:"-"`
	Reason       string           `json:"reason,omitempty"`
	Record       *resolver.Record `json:"record,omitempty"`
	ChangeSet    *ChangeSet       `json:"changeset,omitempty"`
	ConfigOutput string           `json:"config_output,omitempty"`
	VerifyOutput string           `json:"verify_output,omitempty"`
	Verified     bool             `json:"verified"`
}

// VerifyCommand returns the read-back command run after a change.
func VerifyCommand(intf string) string {
	return "show running-config interface " + intf
}

// Orchestrator runs the change workflow against live devices.
type Orchestrator struct {
	builder *snapshot.Builder
	source  snapshot.Source
	applier Applier
	locker  Locker
	auditor audit.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLocker serializes applies per host through l.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithAuditor sends preview and execute events to l.
func WithAuditor(l audit.Logger) Option {
	return func(o *Orchestrator) { o.auditor = l }
}

// New creates an Orchestrator. source serves verification reads and
// applier receives configuration.
func New(builder *snapshot.Builder, source snapshot.Source, applier Applier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		builder: builder,
		source:  source,
		applier: applier,
		auditor: audit.Discard{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit runs req through the workflow. Validation failures and missing
// confirmation return before any configuration is sent.
func (o *Orchestrator) Submit(ctx context.Context, req Request) *Outcome {
	start := time.Now()
	log := util.WithInterface(req.Host, req.Interface)

	// Drafting
	vlan, err := validateRequest(req)
	if err != nil {
		return rejected(err, o.hostRecord(ctx, req.Host))
	}
	inv := o.builder.Inventory()
	long := util.ExpandInterface(req.Interface)
	dev, err := o.builder.FetchHost(ctx, req.Host)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return rejected(err, nil)
		}
		return failed(err, err.Error(), nil)
	}
	rec := resolver.InterfaceRecord(dev, inv, long)

	// AwaitingValidation
	if _, ok := dev.Interface(long); !ok {
		return rejected(util.NewNotFoundError("interface", req.Host+" "+long), resolver.HostRecord(dev, inv))
	}
	if !dev.IsEligible(long) {
		return rejected(fmt.Errorf("%s: %w", long, util.ErrIneligibleInterface), rec)
	}
	// Checked before confirmation, so a preview of an unknown VLAN is
	// Rejected rather than Pending.
	if !dev.HasVLAN(vlan) {
		err := fmt.Errorf("VLAN %s is not configured on %s (available: %s): %w",
			vlan, req.Host, strings.Join(dev.AvailableVLANs(), ", "), util.ErrInvalidVlanSelection)
		o.record(audit.NewEvent(audit.EventTypeReject, req.User, req.Host).
			WithInterface(long).WithVLANs(rec.VLAN, vlan).WithRequestID(req.RequestID).WithError(err))
		return rejected(err, rec)
	}

	cs := AccessVLANChange(req.Host, long, vlan, strings.TrimSpace(req.Description))
	current := rec.VLAN
	if current == snapshot.NotAvailable && req.CurrentVLAN != "" {
		current = req.CurrentVLAN
	}

	// AwaitingConfirmation
	if !req.Confirm {
		o.record(audit.NewEvent(audit.EventTypePreview, req.User, req.Host).
			WithInterface(long).WithVLANs(current, vlan).WithLines(cs.Lines).
			WithRequestID(req.RequestID).WithSuccess())
		return &Outcome{
			Kind:      KindPending,
			State:     StateAwaitingConfirmation,
			Message:   pendingMessage(req.Host, rec.Interface, current, vlan, cs),
			Record:    rec,
			ChangeSet: cs,
		}
	}

	// Applying
	event := audit.NewEvent(audit.EventTypeExecute, req.User, req.Host).
		WithInterface(long).WithVLANs(current, vlan).WithLines(cs.Lines).
		WithExecuteMode(true).WithRequestID(req.RequestID)

	if o.locker != nil {
		unlock, err := o.locker.Lock(ctx, req.Host, lockHolder(req))
		if err != nil {
			o.record(event.WithError(err).WithDuration(time.Since(start)))
			return failed(err, err.Error(), rec)
		}
		defer unlock()
	}

	log.Infof("Applying access VLAN %s", vlan)
	log.Debugf("Change set:\n%s", cs)
	res, err := o.applier.ApplyConfig(ctx, req.Host, cs.Lines)
	if err != nil || res.Failed {
		detail := res.FailureDetail
		if err != nil {
			detail = err.Error()
			err = util.NewTransportError(req.Host, "apply config", err)
		} else {
			err = fmt.Errorf("%s: %s", req.Host, detail)
		}
		log.Warnf("Apply failed: %s", detail)
		o.record(event.WithError(err).WithDuration(time.Since(start)))
		out := failed(err, detail, o.refresh(ctx, req.Host, long, rec))
		out.ChangeSet = cs
		out.ConfigOutput = res.Output
		return out
	}

	// Applied
	out := &Outcome{
		Kind:         KindApplied,
		State:        StateApplied,
		Message:      fmt.Sprintf("Changed %s to VLAN %s on %s", rec.Interface, vlan, req.Host),
		Record:       o.refresh(ctx, req.Host, long, rec),
		ChangeSet:    cs,
		ConfigOutput: res.Output,
	}
	out.Verified = out.Record.VLAN == vlan
	verify, err := o.source.FetchText(ctx, req.Host, VerifyCommand(long))
	if err != nil {
		log.Warnf("Verification read failed: %v", err)
		out.VerifyOutput = fmt.Sprintf("verification read failed: %v", err)
	} else {
		out.VerifyOutput = verify
	}
	log.Infof("Applied access VLAN %s (verified=%v)", vlan, out.Verified)
	o.record(event.WithSuccess().WithDuration(time.Since(start)))
	return out
}

// refresh re-reads the device after an apply attempt. If the read fails the
// previous record is kept.
func (o *Orchestrator) refresh(ctx context.Context, host, long string, prev *resolver.Record) *resolver.Record {
	dev, err := o.builder.FetchHost(ctx, host)
	if err != nil {
		util.WithHost(host).Warnf("Re-read after change failed: %v", err)
		return prev
	}
	return resolver.InterfaceRecord(dev, o.builder.Inventory(), long)
}

func (o *Orchestrator) record(e *audit.Event) {
	if err := o.auditor.Log(e); err != nil {
		util.WithHost(e.Host).Warnf("Audit log failed: %v", err)
	}
}

// validateRequest checks the fields that need no device state and returns
// the VLAN id in canonical form ("099" becomes "99").
func validateRequest(req Request) (string, error) {
	v := &util.ValidationBuilder{}
	v.Add(strings.TrimSpace(req.Host) != "", "host is required")
	v.Add(strings.TrimSpace(req.Interface) != "", "interface is required")
	if v.HasErrors() {
		return "", v.Build()
	}
	id, err := util.ParseVLANID(req.VLAN)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(req.Description, "\r\n") {
		return "", util.NewFormatError("description", req.Description)
	}
	return strconv.Itoa(id), nil
}

// hostRecord fetches host for a rejection that happened before the device
// was read. Unknown hosts and fetch failures yield nil.
func (o *Orchestrator) hostRecord(ctx context.Context, host string) *resolver.Record {
	inv := o.builder.Inventory()
	if host == "" || !inv.HostExists(host) {
		return nil
	}
	dev, err := o.builder.FetchHost(ctx, host)
	if err != nil {
		return nil
	}
	return resolver.HostRecord(dev, inv)
}

func pendingMessage(host, intf, current, vlan string, cs *ChangeSet) string {
	msg := fmt.Sprintf("Change %s %s from VLAN %s to VLAN %s", host, intf, current, vlan)
	for _, line := range cs.Lines {
		if desc, ok := strings.CutPrefix(line, "description "); ok {
			msg += fmt.Sprintf(", description %q", desc)
		}
	}
	return msg + "? Resubmit with confirm to apply."
}

// lockHolder identifies one submission so a release never frees a lock
// taken by another process after a TTL expiry.
func lockHolder(req Request) string {
	user := req.User
	if user == "" {
		user = "portfinder"
	}
	id := req.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	return user + ":" + id
}

func rejected(err error, rec *resolver.Record) *Outcome {
	return &Outcome{
		Kind:    KindRejected,
		State:   StateFailed,
		Message: err.Error(),
		Err:     err,
		Reason:  reasonOf(err),
		Record:  rec,
	}
}

func failed(err error, detail string, rec *resolver.Record) *Outcome {
	return &Outcome{
		Kind:    KindFailed,
		State:   StateFailed,
		Message: "Failed to change VLAN: " + detail,
		Err:     err,
		Reason:  reasonOf(err),
		Record:  rec,
	}
}

// reasonOf maps an error to a stable machine-readable reason.
func reasonOf(err error) string {
	switch {
	case errors.Is(err, util.ErrInvalidVlanSelection):
		return "InvalidVlanSelection"
	case errors.Is(err, util.ErrIneligibleInterface):
		return "IneligibleInterface"
	case errors.Is(err, util.ErrInvalidFormat):
		return "InvalidFormat"
	case errors.Is(err, util.ErrValidationFailed):
		return "ValidationFailed"
	case errors.Is(err, util.ErrNotFound):
		return "NotFound"
	case errors.Is(err, util.ErrLocked):
		return "Locked"
	case errors.Is(err, util.ErrTransport):
		return "TransportError"
	}
	return "ApplyFailed"
}
