// Package runtime executes haul tasks tick by tick. The engine is a pure
// step-cursor interpreter: every call inspects the task's explicit Step and
// either performs one unit of work, starts a movement leg, or terminates the
// task. All world mutation goes through the Env interface so the engine can
// run against stubs in tests.
package runtime

import (
	"bulkhaul.ai/internal/protocol"
	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/tuning"
	"bulkhaul.ai/internal/sim/world/feature/carry"
	"bulkhaul.ai/internal/sim/world/feature/haul"
	"bulkhaul.ai/internal/sim/world/feature/ledger"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// Env is the world surface the engine drives. The world loop implements it;
// tests implement a stub.
type Env interface {
	ThingByID(id string) *modelpkg.Thing
	// ThingFieldPos resolves the field position of a thing (ground or inside
	// a container). ok is false when the thing is not reachable on the field.
	ThingFieldPos(thingID string) (modelpkg.Vec3i, bool)
	// SplitThing carves count units off a stack into a new thing at the same
	// location, returning the new id.
	SplitThing(thingID string, count int) (string, bool)
	// FindReplacementTarget locates another field stack of the kind, skipping
	// the excluded ids.
	FindReplacementTarget(kind string, exclude map[string]bool) *modelpkg.Thing

	// StowInStorage puts the thing into the agent's storage slots if mass
	// capacity allows. PutInHands needs the hands slot free.
	StowInStorage(a *modelpkg.Agent, thingID string) bool
	PutInHands(a *modelpkg.Agent, thingID string) bool
	DropAt(a *modelpkg.Agent, thingID string, pos modelpkg.Vec3i)

	StartMove(a *modelpkg.Agent, taskID string, target modelpkg.Vec3i, tolerance float64)

	DestinationAlive(destID string) bool
	DestinationCancelled(destID string) bool
	DestinationPos(destID string) (modelpkg.Vec3i, bool)
	DestinationObstruction(destID string) string
	// DestinationNeeds is the live remaining need of the destination instance.
	DestinationNeeds(destID string) map[string]int
	// DepositThing moves up to maxCount units of the thing into the
	// destination, returning how many it accepted. The env owns the physical
	// transfer (manifest update, stack consumption, agent slot cleanup).
	DepositThing(nowTick uint64, a *modelpkg.Agent, destID, thingID string, maxCount int) int

	ObstructionPos(obstructionID string) (modelpkg.Vec3i, bool)
	ClearObstruction(obstructionID string) bool
	// QueueSiteClearing suspends the given task into the agent's relay queue
	// and installs a site-clearing sub-task in its place.
	QueueSiteClearing(a *modelpkg.Agent, parent *tasks.HaulTask, obstructionID string)

	Ledger() *ledger.Ledger
	Carry() *carry.Registry
	HaulCfg() tuning.Haul
}

// Tick advances the agent's active haul task by at most one step. It returns
// the terminal outcome and true once the task has ended; the caller clears
// the agent's task pointer and handles relay-queue resumption and continuous
// chaining.
func Tick(env Env, a *modelpkg.Agent, nowTick uint64) (tasks.Outcome, bool) {
	t := a.HaulTask
	if t == nil || t.Ended {
		return "", false
	}

	if a.Incapacitated {
		End(env, a, t, tasks.OutcomeInterrupted, nowTick)
		return tasks.OutcomeInterrupted, true
	}
	if t.Kind != tasks.KindClearSite {
		if !env.DestinationAlive(t.DestID) || env.DestinationCancelled(t.DestID) {
			End(env, a, t, tasks.OutcomeIncompletable, nowTick)
			return tasks.OutcomeIncompletable, true
		}
	}

	// A pending movement leg owns the agent until the movement system
	// finishes it.
	if a.MoveTask != nil {
		return "", false
	}
	if t.WaitTicks > 0 {
		t.WaitTicks--
		return "", false
	}

	cfg := env.HaulCfg()
	if t.PickupDone && nowTick-t.LastRevalidatedTick >= uint64(cfg.AIUpdateIntervalTicks) {
		t.LastRevalidatedTick = nowTick
		// Destination liveness and cancellation are re-checked every tick
		// above; this interval pass only keeps the ledger group from going
		// stale during a long transit.
		env.Ledger().Touch(t.GroupKey, nowTick)
	}

	if t.Kind == tasks.KindClearSite {
		return stepClearSite(env, a, t, nowTick)
	}
	return stepBulk(env, a, t, nowTick)
}

// End terminates a task exactly once: salvage the hands slot on interruption
// outcomes (the success path stows its own remainder before calling End),
// release every ledger claim, reconcile the carry registry, emit the terminal
// event. Idempotent through the Ended guard.
func End(env Env, a *modelpkg.Agent, t *tasks.HaulTask, outcome tasks.Outcome, nowTick uint64) {
	if t == nil || t.Ended {
		return
	}
	t.Ended = true

	if outcome == tasks.OutcomeInterrupted || outcome == tasks.OutcomeIncompletable {
		salvageHands(env, a, t)
	}

	env.Ledger().ReleaseClaimsForAgent(a.ID)
	haul.ReconcileEnd(env, env.Carry(), a, t)

	a.AddEvent(protocol.Event{
		"type":    "TASK_ENDED",
		"task_id": t.TaskID,
		"kind":    string(t.Kind),
		"outcome": string(outcome),
		"tick":    nowTick,
	})
}

// Interrupt force-ends the active task (cancel command, agent removal).
func Interrupt(env Env, a *modelpkg.Agent, nowTick uint64) bool {
	t := a.HaulTask
	if t == nil || t.Ended {
		return false
	}
	End(env, a, t, tasks.OutcomeInterrupted, nowTick)
	return true
}

// salvageHands keeps a task-owned stack from ending the task parked in the
// hands slot: it is stowed into storage when it fits, otherwise dropped at
// the agent's feet. No-op when the hands hold nothing of this task's.
func salvageHands(env Env, a *modelpkg.Agent, t *tasks.HaulTask) {
	id := a.HandsThingID
	if id == "" {
		return
	}
	if !containsID(t.HauledThings, id) && !containsID(t.SurplusThings, id) &&
		!t.IsOriginalCarrySource(id) {
		return
	}
	th := env.ThingByID(id)
	if th == nil || th.Count <= 0 {
		return
	}
	if env.StowInStorage(a, id) {
		return
	}
	env.DropAt(a, id, a.Pos)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// firstCarried returns the first task-owned thing still physically on the
// agent, in hauled-list order.
func firstCarried(env Env, a *modelpkg.Agent, ids []string) *modelpkg.Thing {
	for _, id := range ids {
		th := env.ThingByID(id)
		if th != nil && th.Count > 0 && th.OnAgent(a.ID) {
			return th
		}
	}
	return nil
}
