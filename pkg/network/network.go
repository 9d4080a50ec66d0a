// Package network provides the fleet client: the Network object built once
// from the inventory, and the per-host Device objects it opens sessions
// through.
//
// Network implements snapshot.Source, snapshot.Inventory and change.Applier,
// so the snapshot builder, resolver and change orchestrator all reach the
// switches through it.
package network

import (
	"context"
	"sync"
	"time"

	"github.com/newtron-network/portfinder/pkg/change"
	"github.com/newtron-network/portfinder/pkg/device"
	"github.com/newtron-network/portfinder/pkg/inventory"
	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

// Network is the fleet. It owns the inventory and one Device per host,
// created on first use.
type Network struct {
	inv     *inventory.Inventory
	dial    device.Dialer
	timeout time.Duration

	devices map[string]*Device
	mu      sync.Mutex
}

// Option configures a Network.
type Option func(*Network)

// WithDialer replaces the transport used to open device sessions.
func WithDialer(d device.Dialer) Option {
	return func(n *Network) {
		n.dial = d
	}
}

// WithCommandTimeout bounds each device command.
func WithCommandTimeout(d time.Duration) Option {
	return func(n *Network) {
		n.timeout = d
	}
}

// New creates a Network over inv. No device is contacted until it is used.
func New(inv *inventory.Inventory, opts ...Option) *Network {
	n := &Network{
		inv:     inv,
		dial:    dialSession,
		timeout: device.DefaultTimeout,
		devices: make(map[string]*Device),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func dialSession(ctx context.Context, cfg device.Config) (device.Session, error) {
	return device.Dial(ctx, cfg)
}

// Inventory returns the fleet inventory.
func (n *Network) Inventory() *inventory.Inventory {
	return n.inv
}

// HostExists implements snapshot.Inventory.
func (n *Network) HostExists(name string) bool {
	return n.inv.HostExists(name)
}

// AllHostNames implements snapshot.Inventory.
func (n *Network) AllHostNames() []string {
	return n.inv.AllHostNames()
}

// RouterOf implements snapshot.Inventory.
func (n *Network) RouterOf(host string) (string, bool) {
	return n.inv.RouterOf(host)
}

// GetDevice returns the Device for name, creating it in this Network's
// context on first use.
func (n *Network) GetDevice(name string) (*Device, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if d, ok := n.devices[name]; ok {
		return d, nil
	}
	entry, ok := n.inv.Device(name)
	if !ok {
		return nil, util.NewNotFoundError("device", name)
	}
	d := &Device{network: n, entry: entry}
	n.devices[name] = d
	return d, nil
}

// FetchState implements snapshot.Source.
func (n *Network) FetchState(ctx context.Context, host string, getters []string) (snapshot.RawState, error) {
	d, err := n.GetDevice(host)
	if err != nil {
		return nil, err
	}
	return d.FetchState(ctx, getters)
}

// FetchText implements snapshot.Source.
func (n *Network) FetchText(ctx context.Context, host, command string) (string, error) {
	d, err := n.GetDevice(host)
	if err != nil {
		return "", err
	}
	return d.FetchText(ctx, command)
}

// ApplyConfig implements change.Applier.
func (n *Network) ApplyConfig(ctx context.Context, host string, lines []string) (change.ApplyResult, error) {
	d, err := n.GetDevice(host)
	if err != nil {
		return change.ApplyResult{}, err
	}
	return d.ApplyConfig(ctx, lines)
}

// Close disconnects every device.
func (n *Network) Close() error {
	n.mu.Lock()
	devices := make([]*Device, 0, len(n.devices))
	for _, d := range n.devices {
		devices = append(devices, d)
	}
	n.mu.Unlock()

	open := 0
	for _, d := range devices {
		if d.IsConnected() {
			open++
		}
		d.Disconnect()
	}
	util.Logger.Debugf("Closed %d open sessions", open)
	return nil
}
