package ledger

import (
	"sort"

	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// GroupExport is the persisted form of one load group.
type GroupExport struct {
	Key         string
	RegionID    string
	Required    []modelpkg.ItemCount
	Claims      []ClaimExport
	LastTouched uint64
}

type ClaimExport struct {
	Kind    string
	AgentID string
	Count   int
}

// Export returns a deterministic dump of the whole ledger for snapshots.
func (l *Ledger) Export() []GroupExport {
	keys := make([]string, 0, len(l.groups))
	for key := range l.groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]GroupExport, 0, len(keys))
	for _, key := range keys {
		g := l.groups[key]
		ge := GroupExport{Key: key, RegionID: g.regionID, LastTouched: g.lastTouched}

		kinds := make([]string, 0, len(g.required))
		for kind := range g.required {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			ge.Required = append(ge.Required, modelpkg.ItemCount{Kind: kind, Count: g.required[kind]})
		}

		ckinds := make([]string, 0, len(g.claims))
		for kind := range g.claims {
			ckinds = append(ckinds, kind)
		}
		sort.Strings(ckinds)
		for _, kind := range ckinds {
			agents := make([]string, 0, len(g.claims[kind]))
			for id := range g.claims[kind] {
				agents = append(agents, id)
			}
			sort.Strings(agents)
			for _, id := range agents {
				ge.Claims = append(ge.Claims, ClaimExport{Kind: kind, AgentID: id, Count: g.claims[kind][id]})
			}
		}
		out = append(out, ge)
	}
	return out
}

// Load replaces ledger contents from a snapshot export.
func (l *Ledger) Load(src []GroupExport) {
	l.groups = map[string]*group{}
	for _, ge := range src {
		g := &group{
			key:         ge.Key,
			regionID:    ge.RegionID,
			required:    modelpkg.SumByKind(ge.Required),
			claims:      map[string]map[string]int{},
			lastTouched: ge.LastTouched,
		}
		for _, c := range ge.Claims {
			if c.Count <= 0 {
				continue
			}
			m := g.claims[c.Kind]
			if m == nil {
				m = map[string]int{}
				g.claims[c.Kind] = m
			}
			m[c.AgentID] += c.Count
		}
		l.groups[ge.Key] = g
	}
}
