// Package portfinder is the public API: search the fleet for a MAC,
// hostname or port description, read one interface, and submit guarded
// access-VLAN changes. The CLI and HTTP adapter are thin layers over it.
package portfinder

import (
	"context"

	"github.com/newtron-network/portfinder/pkg/audit"
	"github.com/newtron-network/portfinder/pkg/change"
	"github.com/newtron-network/portfinder/pkg/resolver"
	"github.com/newtron-network/portfinder/pkg/snapshot"
)

// Fleet is the fleet client the Service runs on. network.Network is the
// production implementation.
type Fleet interface {
	snapshot.Source
	snapshot.Inventory
	change.Applier
}

// Options tune a Service. The zero value is usable.
type Options struct {
	// MaxParallel bounds concurrent device fetches; 0 uses the builder default.
	MaxParallel int
	// Locker, when set, serializes changes per host.
	Locker change.Locker
	// Auditor receives change events; nil logs them through logrus.
	Auditor audit.Logger
}

// Service is the API entry point. It holds no device state between calls.
type Service struct {
	fleet    Fleet
	builder  *snapshot.Builder
	resolver *resolver.Resolver
	changes  *change.Orchestrator
}

// HostInfo is one inventory entry as shown to operators.
type HostInfo struct {
	Name   string `json:"name"`
	Router string `json:"router"`
}

// New wires the snapshot builder, resolver and change orchestrator over fleet.
func New(fleet Fleet, opts Options) *Service {
	var bopts []snapshot.Option
	if opts.MaxParallel > 0 {
		bopts = append(bopts, snapshot.WithMaxParallel(opts.MaxParallel))
	}
	builder := snapshot.NewBuilder(fleet, fleet, bopts...)

	auditor := opts.Auditor
	if auditor == nil {
		auditor = audit.LogrusLogger{}
	}
	copts := []change.Option{change.WithAuditor(auditor)}
	if opts.Locker != nil {
		copts = append(copts, change.WithLocker(opts.Locker))
	}

	return &Service{
		fleet:    fleet,
		builder:  builder,
		resolver: resolver.New(builder, resolver.NewLocator(fleet, fleet)),
		changes:  change.New(builder, fleet, fleet, copts...),
	}
}

// Search resolves query by hostname, then MAC, then description substring
// and returns the first match. No match is a *util.NotFoundError.
func (s *Service) Search(ctx context.Context, query string) (*resolver.Record, error) {
	return s.resolver.Search(ctx, query)
}

// SearchAll is Search returning every description match instead of the
// first.
func (s *Service) SearchAll(ctx context.Context, query string) ([]*resolver.Record, error) {
	return s.resolver.SearchAll(ctx, query)
}

// GetInterfaceDetails fetches host fresh and returns the record for one
// interface.
func (s *Service) GetInterfaceDetails(ctx context.Context, host, intf string) (*resolver.Record, error) {
	return s.resolver.InterfaceDetails(ctx, host, intf)
}

// SubmitVlanChange runs one submission of the change workflow.
func (s *Service) SubmitVlanChange(ctx context.Context, req change.Request) *change.Outcome {
	return s.changes.Submit(ctx, req)
}

// Hosts lists the fleet in inventory order with router associations.
func (s *Service) Hosts() []HostInfo {
	names := s.fleet.AllHostNames()
	hosts := make([]HostInfo, 0, len(names))
	for _, name := range names {
		router, _ := s.fleet.RouterOf(name)
		hosts = append(hosts, HostInfo{Name: name, Router: router})
	}
	return hosts
}
