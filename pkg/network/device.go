package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newtron-network/portfinder/pkg/change"
	"github.com/newtron-network/portfinder/pkg/device"
	"github.com/newtron-network/portfinder/pkg/inventory"
	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

// Device is one switch or router within the context of a Network. It holds
// at most one open session; commands on the same device are serialized.
type Device struct {
	network *Network
	entry   inventory.Device

	session   device.Session
	connected bool

	mu sync.Mutex
}

// ============================================================================
// Connection Management
// ============================================================================

func (d *Device) config() device.Config {
	return device.Config{
		Name:           d.entry.Name,
		Address:        d.entry.Host,
		Port:           d.entry.Port,
		Transport:      d.entry.Transport,
		Username:       d.entry.Username,
		Password:       d.entry.Password,
		EnablePassword: d.entry.EnablePassword,
		Timeout:        d.network.timeout,
	}
}

func (d *Device) snmpConfig() *device.SNMPConfig {
	if d.entry.SNMPCommunity == "" {
		return nil
	}
	return &device.SNMPConfig{
		Address:   d.entry.Host,
		Port:      uint16(d.entry.SNMPPort),
		Community: d.entry.SNMPCommunity,
		Timeout:   d.network.timeout,
	}
}

// connect opens the session if needed. Caller holds d.mu.
func (d *Device) connect(ctx context.Context) error {
	if d.connected {
		return nil
	}
	sess, err := d.network.dial(ctx, d.config())
	if err != nil {
		return err
	}
	d.session = sess
	d.connected = true
	util.WithHost(d.entry.Name).Debugf("Connected via %s", d.entry.Transport)
	return nil
}

// disconnect drops the session. Caller holds d.mu.
func (d *Device) disconnect() {
	if !d.connected {
		return
	}
	if d.session != nil {
		d.session.Close()
	}
	d.session = nil
	d.connected = false
	util.WithHost(d.entry.Name).Debug("Disconnected")
}

// Disconnect closes the session.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnect()
	return nil
}

// IsConnected returns true if a session is open.
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// withSession runs fn on the open session, connecting first. A transport
// failure drops the session so the next call redials.
func (d *Device) withSession(ctx context.Context, fn func(device.Session) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.connect(ctx); err != nil {
		return err
	}
	if err := fn(d.session); err != nil {
		var cmdErr *device.CommandError
		if !errors.As(err, &cmdErr) {
			d.disconnect()
		}
		return err
	}
	return nil
}

// ============================================================================
// Capability Operations
// ============================================================================

// FetchState collects the requested getters.
func (d *Device) FetchState(ctx context.Context, getters []string) (snapshot.RawState, error) {
	var raw snapshot.RawState
	err := d.withSession(ctx, func(s device.Session) error {
		var err error
		raw, err = device.Collect(ctx, s, getters, d.snmpConfig())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching state: %w", err)
	}
	return raw, nil
}

// FetchText runs a read-only command. IOS rejecting it is an error.
func (d *Device) FetchText(ctx context.Context, command string) (string, error) {
	var out string
	err := d.withSession(ctx, func(s device.Session) error {
		var err error
		out, err = device.RunChecked(ctx, s, command)
		return err
	})
	return out, err
}

// ApplyConfig pushes lines in configuration mode. An IOS "%" marker in the
// transcript is reported as a failed result rather than an error, with the
// marker line as the failure detail.
func (d *Device) ApplyConfig(ctx context.Context, lines []string) (change.ApplyResult, error) {
	var out string
	err := d.withSession(ctx, func(s device.Session) error {
		var err error
		out, err = s.Configure(ctx, lines)
		return err
	})
	if err != nil {
		return change.ApplyResult{Output: out}, fmt.Errorf("applying config: %w", err)
	}
	if detail := device.ErrorMarker(out); detail != "" {
		util.WithHost(d.entry.Name).Warnf("Device rejected configuration: %s", detail)
		return change.ApplyResult{Output: out, Failed: true, FailureDetail: detail}, nil
	}
	return change.ApplyResult{Output: out}, nil
}
