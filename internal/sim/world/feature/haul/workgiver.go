package haul

import (
	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/world/feature/carry"
	"bulkhaul.ai/internal/sim/world/feature/ledger"
	"bulkhaul.ai/internal/sim/world/feature/loadable"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// HasPotentialWork is the cheap eligibility probe: could this agent claim at
// least one haulable unit for the destination right now? It refreshes the
// ledger registration as a side effect so availability reflects live state.
func HasPotentialWork(env PlanEnv, lg *ledger.Ledger, cr *carry.Registry,
	a *modelpkg.Agent, ld loadable.Loadable, opts PlanOptions, nowTick uint64) bool {

	if a == nil || a.Incapacitated {
		return false
	}
	req, err := ld.RequiredItems()
	if err != nil {
		return false
	}
	key := ld.Identity()
	lg.RegisterOrUpdate(key, ld.Region(), req, nowTick)

	if destID, ok := env.PrimaryDestination(key); !ok {
		return false
	} else if env.DestinationObstruction(destID) != "" && !opts.AssumeObstructionCleared {
		return false
	}

	return lg.HasWork(key, a.ID, haulablePredicate(env, cr, a, ld))
}

// TryBuildTask runs the full eligibility gate and, if it passes, builds and
// claims a task. The two-phase shape (probe, then plan) lets callers ask
// "is there work" without committing a claim.
func TryBuildTask(env PlanEnv, lg *ledger.Ledger, cr *carry.Registry,
	a *modelpkg.Agent, ld loadable.Loadable, mode tasks.Mode, opts PlanOptions,
	nowTick uint64) (*tasks.HaulTask, bool) {

	if !HasPotentialWork(env, lg, cr, a, ld, opts, nowTick) {
		return nil, false
	}
	return BuildPlan(env, lg, cr, a, ld, mode, opts, nowTick)
}

// haulablePredicate rejects kinds the agent cannot physically move: kinds
// whose only instances walk onto the destination by themselves, unless the
// agent already carries a matching (non-self-moving) thing. Candidate sourcing
// mirrors BuildPlan: a loadable that names concrete things (carrier cargo is
// not on the field) is probed through those, the rest through the field scan.
func haulablePredicate(env PlanEnv, cr *carry.Registry, a *modelpkg.Agent, ld loadable.Loadable) func(kind string) bool {
	return func(kind string) bool {
		for _, id := range cr.CurrentSet(a.ID) {
			th := env.ThingByID(id)
			if th != nil && th.Kind == kind && th.Count > 0 && !th.SelfMoving && th.OnAgent(a.ID) {
				return true
			}
		}
		if cands, ok := ld.DetailedRequirements(); ok {
			for _, c := range cands {
				if c.Kind != kind || c.Count <= 0 {
					continue
				}
				th := env.ThingByID(c.ThingID)
				if th != nil && th.Count > 0 && !th.SelfMoving {
					return true
				}
			}
			return false
		}
		for _, th := range env.ThingsOfKindOnField(kind) {
			if th != nil && th.Count > 0 && !th.SelfMoving {
				return true
			}
		}
		return false
	}
}
