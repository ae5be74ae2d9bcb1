// Package ledger is the authoritative claim bookkeeping for bulk hauling.
// It converts per-destination "needed items" lists into conflict-free
// per-agent reservations: for every (group, kind), the sum of claims across
// agents never exceeds the remaining need.
//
// The ledger is single-writer state owned by the world loop. Availability is
// always computed as "need minus claimed-by-others", so re-querying by the
// same agent before it claims is idempotent.
package ledger

import (
	"log"
	"sort"

	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

type Ledger struct {
	log    *log.Logger
	groups map[string]*group
}

type group struct {
	key      string
	regionID string

	// Remaining need per item kind (refreshed by RegisterOrUpdate,
	// decremented by NotifyItemDelivered).
	required map[string]int

	// kind -> agent id -> amount claimed.
	claims map[string]map[string]int

	lastTouched uint64
}

func New(logger *log.Logger) *Ledger {
	return &Ledger{log: logger, groups: map[string]*group{}}
}

// RegisterOrUpdate upserts a load group's requirement snapshot. Safe to call
// redundantly; always refreshes the last-touched tick.
func (l *Ledger) RegisterOrUpdate(key, regionID string, req []modelpkg.ItemCount, nowTick uint64) {
	if key == "" {
		return
	}
	g := l.groups[key]
	if g == nil {
		g = &group{key: key, claims: map[string]map[string]int{}}
		l.groups[key] = g
	}
	g.regionID = regionID
	g.required = modelpkg.SumByKind(req)
	g.lastTouched = nowTick
}

// Touch refreshes the staleness clock without changing requirements.
func (l *Ledger) Touch(key string, nowTick uint64) {
	if g := l.groups[key]; g != nil {
		g.lastTouched = nowTick
	}
}

func (l *Ledger) claimedByOthers(g *group, kind, agentID string) int {
	total := 0
	for id, n := range g.claims[kind] {
		if id != agentID {
			total += n
		}
	}
	return total
}

// AvailableToClaim is required minus claimed-by-others per kind; never negative.
func (l *Ledger) AvailableToClaim(key, agentID string) map[string]int {
	g := l.groups[key]
	if g == nil {
		return nil
	}
	out := map[string]int{}
	for kind, need := range g.required {
		avail := need - l.claimedByOthers(g, kind, agentID)
		if avail > 0 {
			out[kind] = avail
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// HasWork reports whether the agent could still claim at least one unit of a
// haulable kind. Kinds rejected by the predicate (self-moving cargo that
// boards on its own) do not count as work.
func (l *Ledger) HasWork(key, agentID string, haulable func(kind string) bool) bool {
	for kind := range l.AvailableToClaim(key, agentID) {
		if haulable == nil || haulable(kind) {
			return true
		}
	}
	return false
}

// ClaimItems reserves the planned amounts for the agent. Plans are sized from
// AvailableToClaim by construction; a plan exceeding availability signals a
// bug and is logged loudly, then capped so the no-double-claim invariant holds.
func (l *Ledger) ClaimItems(agentID, key string, plan map[string]int, nowTick uint64) {
	g := l.groups[key]
	if g == nil || agentID == "" {
		return
	}
	kinds := make([]string, 0, len(plan))
	for kind := range plan {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		want := plan[kind]
		if want <= 0 {
			continue
		}
		self := g.claims[kind][agentID]
		avail := g.required[kind] - l.claimedByOthers(g, kind, agentID) - self
		if avail < 0 {
			avail = 0
		}
		if want > avail {
			if l.log != nil {
				l.log.Printf("LEDGER INCONSISTENCY: agent %s over-claims %s/%s: want %d, available %d (capping)",
					agentID, key, kind, want, avail)
			}
			want = avail
		}
		if want == 0 {
			continue
		}
		m := g.claims[kind]
		if m == nil {
			m = map[string]int{}
			g.claims[kind] = m
		}
		m[agentID] += want
	}
	g.lastTouched = nowTick
}

// ReleaseClaimsForAgent drops every claim the agent holds, across all groups.
// Idempotent: releasing an agent with no claims is a no-op.
func (l *Ledger) ReleaseClaimsForAgent(agentID string) {
	for _, g := range l.groups {
		for kind, m := range g.claims {
			delete(m, agentID)
			if len(m) == 0 {
				delete(g.claims, kind)
			}
		}
	}
}

// NotifyItemDelivered records that amount units of kind physically reached
// the destination. Delivery is orthogonal to claim release (the task still
// releases unconditionally at termination), but the delivered slice of the
// agent's own claim is consumed here so that sum(claims) <= required holds
// at every tick, not just after release.
func (l *Ledger) NotifyItemDelivered(agentID, key, kind string, amount int) {
	g := l.groups[key]
	if g == nil || amount <= 0 {
		return
	}
	g.required[kind] -= amount
	if g.required[kind] <= 0 {
		delete(g.required, kind)
	}
	if m := g.claims[kind]; m != nil {
		m[agentID] -= amount
		if m[agentID] <= 0 {
			delete(m, agentID)
		}
		if len(m) == 0 {
			delete(g.claims, kind)
		}
	}
}

// NotifyRegionUnloaded purges all load groups (and their claims) in a region.
func (l *Ledger) NotifyRegionUnloaded(regionID string) {
	for key, g := range l.groups {
		if g.regionID == regionID {
			delete(l.groups, key)
		}
	}
}

// PurgeStale garbage-collects groups untouched for staleTicks.
func (l *Ledger) PurgeStale(nowTick uint64, staleTicks uint64) {
	if staleTicks == 0 {
		return
	}
	for key, g := range l.groups {
		if nowTick >= g.lastTouched && nowTick-g.lastTouched > staleTicks {
			delete(l.groups, key)
		}
	}
}

// Remove drops one group outright (destination destroyed).
func (l *Ledger) Remove(key string) {
	delete(l.groups, key)
}

// ClaimedTotal is the claim sum across agents for one (group, kind).
func (l *Ledger) ClaimedTotal(key, kind string) int {
	g := l.groups[key]
	if g == nil {
		return 0
	}
	total := 0
	for _, n := range g.claims[kind] {
		total += n
	}
	return total
}

// ClaimsForAgent lists the agent's claims, for tests and observability.
func (l *Ledger) ClaimsForAgent(agentID string) map[string]map[string]int {
	out := map[string]map[string]int{}
	for key, g := range l.groups {
		for kind, m := range g.claims {
			if n := m[agentID]; n > 0 {
				km := out[key]
				if km == nil {
					km = map[string]int{}
					out[key] = km
				}
				km[kind] = n
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// RequiredRemaining returns the group's cached remaining need, or nil when
// the group is unknown.
func (l *Ledger) RequiredRemaining(key string) map[string]int {
	g := l.groups[key]
	if g == nil {
		return nil
	}
	out := map[string]int{}
	for kind, n := range g.required {
		out[kind] = n
	}
	return out
}

// CheckInvariant verifies sum(claims) <= required for every (group, kind).
// Violations are logged loudly; the return is for tests.
func (l *Ledger) CheckInvariant() bool {
	ok := true
	for key, g := range l.groups {
		for kind, m := range g.claims {
			total := 0
			for _, n := range m {
				total += n
			}
			if total > g.required[kind] {
				ok = false
				if l.log != nil {
					l.log.Printf("LEDGER INCONSISTENCY: %s/%s claimed %d > required %d",
						key, kind, total, g.required[kind])
				}
			}
		}
	}
	return ok
}
