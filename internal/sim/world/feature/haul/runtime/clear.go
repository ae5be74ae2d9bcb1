package runtime

import (
	"bulkhaul.ai/internal/protocol"
	"bulkhaul.ai/internal/sim/tasks"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// stepClearSite runs one step of the site-clearing relay sub-task. The parent
// haul task stays parked in the agent's relay queue with its claims intact;
// the sub-task therefore terminates through finishClearSite, never through
// End, which would release the parent's claims.
func stepClearSite(env Env, a *modelpkg.Agent, t *tasks.HaulTask, nowTick uint64) (tasks.Outcome, bool) {
	switch t.Step {

	case tasks.StepGotoObstruction:
		pos, ok := env.ObstructionPos(t.ObstructionID)
		if !ok {
			// Already gone; nothing to clear.
			return finishClearSite(a, t, tasks.OutcomeSucceededNoOp, nowTick), true
		}
		env.StartMove(a, t.TaskID, pos, 1.0)
		t.ResetToStep(tasks.StepRemoveObstruction)
		t.WaitTicks = env.HaulCfg().VisualUnloadDelayTicks

	case tasks.StepRemoveObstruction:
		if _, ok := env.ObstructionPos(t.ObstructionID); !ok {
			return finishClearSite(a, t, tasks.OutcomeSucceededNoOp, nowTick), true
		}
		if !env.ClearObstruction(t.ObstructionID) {
			return finishClearSite(a, t, tasks.OutcomeIncompletable, nowTick), true
		}
		a.AddEvent(protocol.Event{
			"type":           "OBSTRUCTION_CLEARED",
			"obstruction_id": t.ObstructionID,
			"tick":           nowTick,
		})
		return finishClearSite(a, t, tasks.OutcomeSucceeded, nowTick), true
	}

	return "", false
}

// finishClearSite terminates the sub-task without the full End path: no claim
// release, no carry reconciliation (the sub-task hauls nothing).
func finishClearSite(a *modelpkg.Agent, t *tasks.HaulTask, outcome tasks.Outcome, nowTick uint64) tasks.Outcome {
	t.Ended = true
	a.AddEvent(protocol.Event{
		"type":    "TASK_ENDED",
		"task_id": t.TaskID,
		"kind":    string(t.Kind),
		"outcome": string(outcome),
		"tick":    nowTick,
	})
	return outcome
}
