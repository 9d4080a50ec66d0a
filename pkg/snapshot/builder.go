package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/newtron-network/portfinder/pkg/util"
)

// DefaultMaxParallel bounds concurrent device sessions during a fleet fetch.
const DefaultMaxParallel = 8

// Builder fans state fetches out across hosts and assembles Devices.
type Builder struct {
	source      Source
	inventory   Inventory
	maxParallel int
	now         func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxParallel caps the number of hosts fetched at once.
func WithMaxParallel(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxParallel = n
		}
	}
}

// WithClock overrides the fetch timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder reading from source over the hosts in inv.
func NewBuilder(source Source, inv Inventory, opts ...Option) *Builder {
	b := &Builder{
		source:      source,
		inventory:   inv,
		maxParallel: DefaultMaxParallel,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Inventory returns the fleet inventory the builder reads from.
func (b *Builder) Inventory() Inventory {
	return b.inventory
}

// Result is the outcome of one fetch. Every requested host has exactly one
// entry in either Devices or Errors.
type Result struct {
	Hosts   []string
	Devices map[string]*Device
	Errors  map[string]error
}

// Ordered returns the successfully fetched devices in request order.
func (r *Result) Ordered() []*Device {
	out := make([]*Device, 0, len(r.Devices))
	for _, host := range r.Hosts {
		if d, ok := r.Devices[host]; ok {
			out = append(out, d)
		}
	}
	return out
}

// FetchFleet fetches every host in the inventory.
func (b *Builder) FetchFleet(ctx context.Context) *Result {
	return b.Fetch(ctx, b.inventory.AllHostNames())
}

// FetchHost fetches a single host. Unknown hosts are a NotFoundError.
func (b *Builder) FetchHost(ctx context.Context, host string) (*Device, error) {
	if !b.inventory.HostExists(host) {
		return nil, util.NewNotFoundError("host", host)
	}
	res := b.Fetch(ctx, []string{host})
	if err := res.Errors[host]; err != nil {
		return nil, err
	}
	return res.Devices[host], nil
}

// Fetch builds a Device for each host concurrently. A failing host is
// recorded in Result.Errors and does not affect the others.
func (b *Builder) Fetch(ctx context.Context, hosts []string) *Result {
	res := &Result{
		Hosts:   hosts,
		Devices: make(map[string]*Device, len(hosts)),
		Errors:  make(map[string]error),
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, b.maxParallel)
	)
	for _, host := range hosts {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()

			var dev *Device
			var err error
			select {
			case semaphore <- struct{}{}:
				dev, err = b.fetchOne(ctx, host)
				<-semaphore
			case <-ctx.Done():
				err = util.NewTransportError(host, "fetch state", ctx.Err())
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				util.WithHost(host).Warnf("State fetch failed: %v", err)
				res.Errors[host] = err
				return
			}
			res.Devices[host] = dev
		}(host)
	}
	wg.Wait()

	util.WithOperation("snapshot").Debugf("Fetched %d/%d hosts", len(res.Devices), len(hosts))
	return res
}

func (b *Builder) fetchOne(ctx context.Context, host string) (*Device, error) {
	raw, err := b.source.FetchState(ctx, host, DeviceGetters)
	if err != nil {
		return nil, asTransportError(host, "fetch state", err)
	}

	dev := &Device{
		Host:       host,
		Interfaces: make(map[string]Interface),
		VLANs:      make(map[string]VLAN),
		Location:   NotAvailable,
		FetchedAt:  b.now(),
	}
	log := util.WithHost(host)

	if dev.MacTable, err = decodeMacTable(host, raw); err != nil {
		log.WithField("getter", GetterMACTable).Warnf("Treating result as empty: %v", err)
	}
	descs, err := decodeInterfaces(host, raw)
	if err != nil {
		log.WithField("getter", GetterInterfaces).Warnf("Treating result as empty: %v", err)
	}
	if dev.Location, err = decodeLocation(host, raw); err != nil {
		log.WithField("getter", GetterSNMP).Warnf("Treating result as empty: %v", err)
	}
	if vlans, err := decodeVLANs(host, raw); err != nil {
		log.WithField("getter", GetterVLANs).Warnf("Treating result as empty: %v", err)
	} else {
		dev.VLANs = vlans
	}

	modes := map[string]Mode{}
	text, err := b.source.FetchText(ctx, host, SwitchportCommand)
	if err != nil {
		log.Warnf("Switchport modes unavailable, no interface is eligible: %v", err)
	} else {
		modes = Classify(text)
	}

	for name, desc := range descs {
		dev.Interfaces[name] = Interface{Name: name, Description: desc, Mode: modeOf(name, modes)}
	}
	for name, mode := range modes {
		if _, ok := dev.Interfaces[name]; !ok {
			dev.Interfaces[name] = Interface{Name: name, Mode: mode}
		}
	}
	return dev, nil
}

func modeOf(name string, modes map[string]Mode) Mode {
	if mode, ok := modes[name]; ok {
		return mode
	}
	if isPortChannel(name) {
		return ModePortChannel
	}
	return ModeUnknown
}

func asTransportError(host, op string, err error) error {
	var te *util.TransportError
	if errors.As(err, &te) {
		return err
	}
	return util.NewTransportError(host, op, err)
}
