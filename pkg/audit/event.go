// Package audit records VLAN change previews and executions as structured
// events.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes audit events
type EventType string

const (
	EventTypePreview EventType = "preview"
	EventTypeReject  EventType = "reject"
	EventTypeExecute EventType = "execute"
)

// Event represents one auditable step of a VLAN change
type Event struct {
	ID          string        `json:"id"`
	Type        EventType     `json:"type"`
	Timestamp   time.Time     `json:"timestamp"`
	User        string        `json:"user"`
	Host        string        `json:"host"`
	Interface   string        `json:"interface,omitempty"`
	FromVLAN    string        `json:"from_vlan,omitempty"`
	ToVLAN      string        `json:"to_vlan,omitempty"`
	Lines       []string      `json:"lines,omitempty"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	ExecuteMode bool          `json:"execute_mode"`
	Duration    time.Duration `json:"duration"`
	RequestID   string        `json:"request_id,omitempty"`
}

// NewEvent creates a new audit event
func NewEvent(eventType EventType, user, host string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		User:      user,
		Host:      host,
	}
}

// WithInterface sets the interface name
func (e *Event) WithInterface(iface string) *Event {
	e.Interface = iface
	return e
}

// WithVLANs sets the VLAN transition
func (e *Event) WithVLANs(from, to string) *Event {
	e.FromVLAN = from
	e.ToVLAN = to
	return e
}

// WithLines sets the configuration lines involved
func (e *Event) WithLines(lines []string) *Event {
	e.Lines = lines
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	e.Error = ""
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks whether the change was confirmed
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	return e
}

// WithRequestID correlates the event with an HTTP request
func (e *Event) WithRequestID(id string) *Event {
	e.RequestID = id
	return e
}
