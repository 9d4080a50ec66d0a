package resolver

import (
	"context"

	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

// IPNotFound is returned by ResolveIP whenever no address can be found.
const IPNotFound = "Not found"

// Locator finds the IP address behind a MAC by reading the ARP table of
// the router associated with the switch that learned it.
type Locator struct {
	source    snapshot.Source
	inventory snapshot.Inventory
}

// NewLocator creates a Locator.
func NewLocator(source snapshot.Source, inv snapshot.Inventory) *Locator {
	return &Locator{source: source, inventory: inv}
}

// ResolveIP returns the IP bound to mac in the ARP table of owner's router,
// or IPNotFound. Lookup failures are logged and never returned.
func (l *Locator) ResolveIP(ctx context.Context, mac, owner string) string {
	log := util.WithMAC(owner, mac)

	want, err := util.NormalizeMAC(mac)
	if err != nil {
		log.Debugf("IP lookup skipped: %v", err)
		return IPNotFound
	}
	router, ok := l.inventory.RouterOf(owner)
	if !ok {
		log.Debug("IP lookup skipped: no router association")
		return IPNotFound
	}
	if !l.inventory.HostExists(router) {
		log.Debugf("IP lookup skipped: router %s not in inventory", router)
		return IPNotFound
	}

	raw, err := l.source.FetchState(ctx, router, []string{snapshot.GetterARP})
	if err != nil {
		log.Warnf("ARP fetch from %s failed: %v", router, err)
		return IPNotFound
	}
	entries, err := snapshot.DecodeARPTable(router, raw)
	if err != nil {
		log.Warnf("ARP table from %s unusable: %v", router, err)
		return IPNotFound
	}
	for _, e := range entries {
		if e.MAC == want {
			return e.IP
		}
	}
	log.Debugf("No ARP entry on %s", router)
	return IPNotFound
}
