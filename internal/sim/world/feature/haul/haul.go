// Package haul builds and accounts bulk-haul tasks: it sizes a feasible slice
// of a load group's remaining need from the ledger, turns it into an ordered
// pickup plan for one agent, and keeps the task's thing ledgers consistent
// with the incidental-carry subsystem at both ends of the task.
package haul

import (
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// PlanOptions is the explicit planning-mode flag set. A capability probe that
// is not willing to commit to pre-work keeps AssumeObstructionCleared false.
type PlanOptions struct {
	// Treat an obstructed destination as loadable; the built task will queue
	// a site-clearing sub-task on arrival.
	AssumeObstructionCleared bool
	// Forced single-hands mode: the plan budgets no storage and every pickup
	// goes to the hands slot.
	HandsOnly bool
}

// PlanEnv is the slice of world state planning reads.
type PlanEnv interface {
	ThingByID(id string) *modelpkg.Thing
	// Field-reachable candidates of a kind, deterministic order (nearest first).
	ThingsOfKindOnField(kind string) []*modelpkg.Thing
	// The specific destination instance an unload session will target.
	PrimaryDestination(groupKey string) (destID string, ok bool)
	DestinationObstruction(destID string) string
	AgentFreeMassMilli(a *modelpkg.Agent) int
	NewTaskID() string
}
