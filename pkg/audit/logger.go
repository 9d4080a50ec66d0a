package audit

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/portfinder/pkg/util"
)

// Logger defines the interface for audit backends
type Logger interface {
	Log(event *Event) error
}

// LogrusLogger emits events as structured log entries on util.Logger.
type LogrusLogger struct{}

// Log writes the event at info level, or warning when it failed.
func (LogrusLogger) Log(e *Event) error {
	entry := util.WithFields(logrus.Fields{
		"audit_id":     e.ID,
		"audit_type":   string(e.Type),
		"user":         e.User,
		"host":         e.Host,
		"interface":    e.Interface,
		"from_vlan":    e.FromVLAN,
		"to_vlan":      e.ToVLAN,
		"execute_mode": e.ExecuteMode,
		"success":      e.Success,
		"duration":     e.Duration.String(),
	})
	if e.RequestID != "" {
		entry = entry.WithField("request_id", e.RequestID)
	}
	if e.Error != "" {
		entry.WithField("error", e.Error).Warn("audit")
		return nil
	}
	entry.Info("audit")
	return nil
}

// MemoryLogger keeps events in memory.
type MemoryLogger struct {
	mu     sync.Mutex
	events []*Event
}

// Log appends the event.
func (l *MemoryLogger) Log(e *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

// Events returns the recorded events in order.
func (l *MemoryLogger) Events() []*Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Event(nil), l.events...)
}

// Discard drops every event.
type Discard struct{}

// Log does nothing.
func (Discard) Log(*Event) error { return nil }
