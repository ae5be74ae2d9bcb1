package world

import (
	"bulkhaul.ai/internal/protocol"
	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/world/feature/haul"
	"bulkhaul.ai/internal/sim/world/feature/haul/runtime"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// stepHaul runs the haul engine for every agent with work. Relay-queue
// resumption is LIFO: a parked parent resumes as soon as its sub-task ends.
func (w *World) stepHaul(nowTick uint64) {
	for _, id := range w.sortedAgentIDs() {
		a := w.agents[id]
		if a.HaulTask == nil || a.HaulTask.Ended {
			a.HaulTask = nil
			w.popRelayQueue(a)
		}
		if a.HaulTask == nil {
			continue
		}

		outcome, done := runtime.Tick(w, a, nowTick)
		if !done {
			continue
		}
		finished := a.HaulTask
		a.HaulTask = nil
		w.audit(AuditEntry{
			Tick: nowTick, AgentID: a.ID, Action: "TASK_END",
			Target: finished.GroupKey, Kind: string(finished.Kind),
		})
		if w.popRelayQueue(a) {
			continue
		}
		if outcome == tasks.OutcomeSucceeded && finished.Mode == tasks.ModeContinuous &&
			finished.Kind == tasks.KindBulkLoad && w.cfg.Haul.ContinuousModeEnabled {
			w.chainContinuous(a, finished, nowTick)
		}
	}
}

func (w *World) popRelayQueue(a *modelpkg.Agent) bool {
	n := len(a.TaskQueue)
	if n == 0 {
		return false
	}
	a.HaulTask = a.TaskQueue[n-1]
	a.TaskQueue = a.TaskQueue[:n-1]
	return true
}

// chainContinuous starts the next session against the same load group, or
// tells the operator the group is drained. The finished task's planning mode
// carries over.
func (w *World) chainContinuous(a *modelpkg.Agent, finished *tasks.HaulTask, nowTick uint64) {
	groupKey := finished.GroupKey
	ld, ok := w.loadableForKey(groupKey)
	if ok {
		opts := haul.PlanOptions{AssumeObstructionCleared: true, HandsOnly: finished.HandsOnly}
		t, built := haul.TryBuildTask(w, w.ledger, w.carry, a, ld, tasks.ModeContinuous, opts, nowTick)
		if built {
			a.HaulTask = t
			w.audit(AuditEntry{Tick: nowTick, AgentID: a.ID, Action: "TASK_CHAIN", Target: groupKey})
			return
		}
	}
	a.AddEvent(protocol.Event{
		"type":  "NO_MORE_WORK",
		"group": groupKey,
		"tick":  nowTick,
	})
}
