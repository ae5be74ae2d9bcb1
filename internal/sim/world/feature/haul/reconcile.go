package haul

import (
	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/world/feature/carry"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// ThingResolver is the single lookup reconciliation needs. Both PlanEnv and
// the runtime execution env satisfy it.
type ThingResolver interface {
	ThingByID(id string) *modelpkg.Thing
}

// ReconcileEnd restores the incidental-carry registry after a task ends, on
// any outcome. Items the task borrowed from the registry are dropped from it,
// then every thing the task touched that is still alive and on the agent is
// re-registered. Delivered or destroyed things never re-enter the set, and a
// borrowed item that was never delivered goes back where it came from.
func ReconcileEnd(env ThingResolver, cr *carry.Registry, a *modelpkg.Agent, t *tasks.HaulTask) {
	if a == nil || t == nil {
		return
	}
	for _, id := range t.OriginalCarrySource {
		cr.Remove(a.ID, id)
	}
	seen := map[string]bool{}
	restore := func(ids []string) {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			th := env.ThingByID(id)
			if th == nil || th.Count <= 0 || !th.OnAgent(a.ID) {
				continue
			}
			cr.Register(a.ID, id)
		}
	}
	restore(t.OriginalCarrySource)
	restore(t.HauledThings)
	restore(t.SurplusThings)
}
