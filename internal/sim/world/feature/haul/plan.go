package haul

import (
	"sort"

	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/world/feature/carry"
	"bulkhaul.ai/internal/sim/world/feature/ledger"
	"bulkhaul.ai/internal/sim/world/feature/loadable"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// BuildPlan computes the destination's live requirements, claims a feasible
// slice from the ledger and returns a populated task. Returns (nil, false)
// when no claimable work and no relevant incidentally-carried items exist.
//
// Claim sizing always starts from AvailableToClaim, so over-claiming cannot
// happen by construction.
func BuildPlan(env PlanEnv, lg *ledger.Ledger, cr *carry.Registry, a *modelpkg.Agent,
	ld loadable.Loadable, mode tasks.Mode, opts PlanOptions, nowTick uint64) (*tasks.HaulTask, bool) {

	req, err := ld.RequiredItems()
	if err != nil {
		// Stale target: zero remaining work.
		return nil, false
	}
	key := ld.Identity()
	lg.RegisterOrUpdate(key, ld.Region(), req, nowTick)

	avail := lg.AvailableToClaim(key, a.ID)
	if len(avail) == 0 {
		return nil, false
	}

	capMilli, err := ld.CapacityRemaining()
	if err != nil {
		return nil, false
	}

	destID, ok := env.PrimaryDestination(key)
	if !ok {
		return nil, false
	}

	t := &tasks.HaulTask{
		TaskID:      env.NewTaskID(),
		Kind:        tasks.KindBulkLoad,
		Mode:        mode,
		HandsOnly:   opts.HandsOnly,
		GroupKey:    key,
		DestID:      destID,
		Step:        tasks.StepPickupDecide,
		StartedTick: nowTick,
	}

	plan := map[string]int{}

	// Items already in the agent's incidental-carry set come first: they cost
	// no travel and must be recorded for reconciliation at task end.
	for _, id := range cr.CurrentSet(a.ID) {
		th := env.ThingByID(id)
		if th == nil || th.Count <= 0 || !th.OnAgent(a.ID) {
			continue
		}
		want := avail[th.Kind]
		if want <= 0 {
			continue
		}
		take := th.Count
		if take > want {
			take = want
		}
		mass := take * th.UnitMassMilli
		if mass > capMilli {
			take = capMilli / maxInt(th.UnitMassMilli, 1)
			mass = take * th.UnitMassMilli
		}
		if take <= 0 {
			continue
		}
		t.OriginalCarrySource = append(t.OriginalCarrySource, id)
		plan[th.Kind] += take
		avail[th.Kind] -= take
		capMilli -= mass
	}

	// Field candidates, mass-budgeted against the agent's storage. The last
	// queued target rides in the hands slot, so one stack may exceed the
	// storage budget. A forced single-hands plan has no storage budget at
	// all, which leaves exactly the hands slot.
	freeMilli := env.AgentFreeMassMilli(a)
	if opts.HandsOnly {
		freeMilli = 0
	}
	handsFree := a.HandsThingID == ""
	taken := map[string]bool{}
	for _, id := range t.OriginalCarrySource {
		taken[id] = true
	}

	candidates, detailed := ld.DetailedRequirements()
	if !detailed {
		candidates = candidatesFromField(env, avail)
	}
	for _, cand := range candidates {
		if avail[cand.Kind] <= 0 || taken[cand.ThingID] {
			continue
		}
		th := env.ThingByID(cand.ThingID)
		if th == nil || th.Count <= 0 || th.SelfMoving {
			continue
		}
		take := cand.Count
		if take > th.Count {
			take = th.Count
		}
		if take > avail[cand.Kind] {
			take = avail[cand.Kind]
		}
		unit := maxInt(th.UnitMassMilli, 1)
		if take*unit > capMilli {
			take = capMilli / unit
		}
		if take <= 0 {
			continue
		}
		fitsStorage := take*unit <= freeMilli
		if !fitsStorage && !handsFree {
			// Trim to what storage can still hold.
			take = freeMilli / unit
			if take <= 0 {
				continue
			}
			fitsStorage = true
		}
		t.PickupQueue = append(t.PickupQueue, tasks.PickupTarget{ThingID: cand.ThingID, Count: take})
		taken[cand.ThingID] = true
		plan[cand.Kind] += take
		avail[cand.Kind] -= take
		capMilli -= take * unit
		if fitsStorage {
			freeMilli -= take * unit
		} else {
			handsFree = false
		}
	}

	if len(plan) == 0 {
		return nil, false
	}
	lg.ClaimItems(a.ID, key, plan, nowTick)
	return t, true
}

func candidatesFromField(env PlanEnv, avail map[string]int) []loadable.ThingRequirement {
	kinds := sortedKinds(avail)
	out := make([]loadable.ThingRequirement, 0, len(kinds))
	for _, kind := range kinds {
		remaining := avail[kind]
		for _, th := range env.ThingsOfKindOnField(kind) {
			if remaining <= 0 {
				break
			}
			if th == nil || th.Count <= 0 || th.SelfMoving {
				continue
			}
			want := th.Count
			if want > remaining {
				want = remaining
			}
			out = append(out, loadable.ThingRequirement{ThingID: th.ThingID, Kind: kind, Count: want})
			remaining -= want
		}
	}
	return out
}

func sortedKinds(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
