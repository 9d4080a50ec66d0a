package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

// Resolver answers searches against freshly fetched fleet state.
type Resolver struct {
	builder *snapshot.Builder
	locator *Locator
}

// New creates a Resolver. locator may be nil, in which case MAC hits carry
// IPNotFound.
func New(builder *snapshot.Builder, locator *Locator) *Resolver {
	return &Resolver{builder: builder, locator: locator}
}

// Search resolves query by hostname, then MAC address, then description
// substring, returning the first hit. A miss is a NotFoundError.
func (r *Resolver) Search(ctx context.Context, query string) (*Record, error) {
	records, err := r.search(ctx, query, true)
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// SearchAll is Search but returns every description match instead of only
// the first. Hostname and MAC searches still yield a single record.
func (r *Resolver) SearchAll(ctx context.Context, query string) ([]*Record, error) {
	return r.search(ctx, query, false)
}

func (r *Resolver) search(ctx context.Context, query string, firstOnly bool) ([]*Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, util.NewValidationError("search query is empty")
	}
	log := util.WithOperation("search").WithField("query", query)
	inv := r.builder.Inventory()

	if host, ok := matchHost(inv, query); ok {
		dev, err := r.builder.FetchHost(ctx, host)
		if err != nil {
			return nil, err
		}
		log.Debugf("Matched host %s", host)
		return []*Record{HostRecord(dev, inv)}, nil
	}

	res := r.builder.FetchFleet(ctx)
	devices := res.Ordered()

	if util.IsMACQuery(query) {
		mac, err := util.NormalizeMAC(query)
		if err != nil {
			return nil, err
		}
		for _, dev := range devices {
			if entry, ok := dev.FindMAC(mac); ok {
				log.Debugf("Matched MAC on %s %s", dev.Host, entry.Interface)
				return []*Record{r.macRecord(ctx, dev, inv, entry)}, nil
			}
		}
	} else if util.IsPartialMACQuery(query) {
		// A fragment that matches no MAC falls through to descriptions.
		fragment := util.MACDigits(query)
		for _, dev := range devices {
			if entry, ok := dev.FindMACFragment(fragment); ok {
				log.Debugf("Matched partial MAC on %s %s", dev.Host, entry.Interface)
				return []*Record{r.macRecord(ctx, dev, inv, entry)}, nil
			}
		}
	}

	var records []*Record
	needle := strings.ToLower(query)
	for _, dev := range devices {
		for _, name := range dev.InterfaceNames() {
			desc := dev.Interfaces[name].Description
			if desc == "" || !strings.Contains(strings.ToLower(desc), needle) {
				continue
			}
			rec := InterfaceRecord(dev, inv, name)
			rec.MatchedBy = MatchDescription
			records = append(records, rec)
			if firstOnly {
				break
			}
		}
		if firstOnly && len(records) > 0 {
			break
		}
	}
	if len(records) > 0 {
		log.Debugf("Matched %d description(s)", len(records))
		for _, rec := range records {
			rec.IPAddress = IPNotFound
			if rec.MAC != "" {
				rec.IPAddress = r.resolveIP(ctx, rec.MAC, rec.Host)
			}
		}
		return records, nil
	}

	if len(devices) == 0 && len(res.Errors) > 0 {
		errs := make([]error, 0, len(res.Errors))
		for _, host := range res.Hosts {
			if err, ok := res.Errors[host]; ok {
				errs = append(errs, err)
			}
		}
		return nil, errors.Join(errs...)
	}
	return nil, util.NewNotFoundError("match for", query)
}

func (r *Resolver) macRecord(ctx context.Context, dev *snapshot.Device, inv snapshot.Inventory, entry snapshot.MacEntry) *Record {
	rec := InterfaceRecord(dev, inv, entry.Interface)
	rec.MatchedBy = MatchMAC
	rec.MAC = entry.MAC
	rec.VLAN = entry.VLAN
	rec.IPAddress = r.resolveIP(ctx, entry.MAC, dev.Host)
	return rec
}

// InterfaceDetails fetches host fresh and describes one of its interfaces.
func (r *Resolver) InterfaceDetails(ctx context.Context, host, intf string) (*Record, error) {
	dev, err := r.builder.FetchHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if _, ok := dev.Interface(intf); !ok {
		return nil, util.NewNotFoundError("interface", host+" "+intf)
	}
	rec := InterfaceRecord(dev, r.builder.Inventory(), intf)
	rec.IPAddress = IPNotFound
	if rec.MAC != "" {
		rec.IPAddress = r.resolveIP(ctx, rec.MAC, host)
	}
	return rec, nil
}

func (r *Resolver) resolveIP(ctx context.Context, mac, host string) string {
	if r.locator == nil {
		return IPNotFound
	}
	return r.locator.ResolveIP(ctx, mac, host)
}

// matchHost finds the inventory host equal to query ignoring case.
func matchHost(inv snapshot.Inventory, query string) (string, bool) {
	for _, host := range inv.AllHostNames() {
		if strings.EqualFold(host, query) {
			return host, true
		}
	}
	return "", false
}
