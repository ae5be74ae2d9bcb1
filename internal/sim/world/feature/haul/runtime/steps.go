package runtime

import (
	"bulkhaul.ai/internal/sim/tasks"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// stepBulk runs one step of the BULK_LOAD / BULK_UNLOAD machine.
func stepBulk(env Env, a *modelpkg.Agent, t *tasks.HaulTask, nowTick uint64) (tasks.Outcome, bool) {
	switch t.Step {

	case tasks.StepPickupDecide:
		if len(t.PickupQueue) > 0 {
			t.ResetToStep(tasks.StepGotoPickup)
		} else {
			t.ResetToStep(tasks.StepUnloadOnlyPrep)
		}

	case tasks.StepGotoPickup:
		target := &t.PickupQueue[0]
		if !retargetIfGone(env, t, target) {
			// Nothing of this kind left anywhere; drop the entry.
			t.PickupQueue = t.PickupQueue[1:]
			if len(t.PickupQueue) == 0 {
				t.ResetToStep(tasks.StepAfterPickup)
			}
			return "", false
		}
		pos, ok := env.ThingFieldPos(target.ThingID)
		if !ok {
			t.PickupQueue = t.PickupQueue[1:]
			if len(t.PickupQueue) == 0 {
				t.ResetToStep(tasks.StepAfterPickup)
			}
			return "", false
		}
		env.StartMove(a, t.TaskID, pos, 1.0)
		t.ResetToStep(tasks.StepTakeItem)

	case tasks.StepTakeItem:
		target := t.PickupQueue[0]
		t.PickupQueue = t.PickupQueue[1:]
		pickUp(env, a, t, target)
		if len(t.PickupQueue) > 0 {
			t.ResetToStep(tasks.StepGotoPickup)
		} else {
			t.ResetToStep(tasks.StepAfterPickup)
		}

	case tasks.StepUnloadOnlyPrep, tasks.StepAfterPickup:
		adoptCarriedItems(env, a, t)
		t.PickupDone = true
		t.LastRevalidatedTick = nowTick
		t.ResetToStep(tasks.StepTransit)

	case tasks.StepTransit:
		pos, ok := env.DestinationPos(t.DestID)
		if !ok {
			End(env, a, t, tasks.OutcomeIncompletable, nowTick)
			return tasks.OutcomeIncompletable, true
		}
		env.StartMove(a, t.TaskID, pos, 2.0)
		t.ResetToStep(tasks.StepUnloadBegin)

	case tasks.StepUnloadBegin:
		if obst := env.DestinationObstruction(t.DestID); obst != "" {
			// Relay: clear the blockage first, then re-walk the transit leg.
			t.ResetToStep(tasks.StepTransit)
			env.QueueSiteClearing(a, t, obst)
			return "", false
		}
		t.NeedsSnapshot = env.DestinationNeeds(t.DestID)
		if len(t.NeedsSnapshot) == 0 && firstCarried(env, a, t.HauledThings) == nil {
			End(env, a, t, tasks.OutcomeSucceededNoOp, nowTick)
			return tasks.OutcomeSucceededNoOp, true
		}
		t.ResetToStep(tasks.StepUnloadNext)

	case tasks.StepUnloadNext:
		th := firstCarried(env, a, t.HauledThings)
		if th == nil {
			t.ResetToStep(tasks.StepUnloadEnd)
			return "", false
		}
		// The session works off the needs snapshot taken at arrival, not the
		// live destination: need filled mid-session makes the stack surplus.
		if t.NeedsSnapshot[th.Kind] <= 0 {
			t.RemoveHauled(th.ThingID)
			t.AddSurplus(th.ThingID)
			return "", false
		}
		t.ResetToStep(tasks.StepDeposit)
		t.WaitTicks = env.HaulCfg().VisualUnloadDelayTicks

	case tasks.StepDeposit:
		th := firstCarried(env, a, t.HauledThings)
		if th == nil {
			t.ResetToStep(tasks.StepUnloadEnd)
			return "", false
		}
		before := th.Count
		want := before
		if need := t.NeedsSnapshot[th.Kind]; want > need {
			want = need
		}
		accepted := 0
		if want > 0 {
			accepted = env.DepositThing(nowTick, a, t.DestID, th.ThingID, want)
		}
		if accepted > 0 {
			t.NeedsSnapshot[th.Kind] -= accepted
			if t.NeedsSnapshot[th.Kind] <= 0 {
				delete(t.NeedsSnapshot, th.Kind)
			}
			env.Ledger().NotifyItemDelivered(a.ID, t.GroupKey, th.Kind, accepted)
		}
		if accepted >= before {
			t.RemoveHauled(th.ThingID)
		} else if accepted == 0 {
			// Destination would not take any of it.
			t.RemoveHauled(th.ThingID)
			t.AddSurplus(th.ThingID)
		}
		t.ResetToStep(tasks.StepUnloadNext)

	case tasks.StepUnloadEnd:
		// A partial remainder must not end the task parked in the hands slot.
		salvageHands(env, a, t)
		End(env, a, t, tasks.OutcomeSucceeded, nowTick)
		return tasks.OutcomeSucceeded, true
	}

	return "", false
}

// retargetIfGone swaps the queue head's thing for a live replacement of the
// same kind when the original stack vanished. Reports whether a target exists.
func retargetIfGone(env Env, t *tasks.HaulTask, target *tasks.PickupTarget) bool {
	th := env.ThingByID(target.ThingID)
	if th != nil && th.Count > 0 && !th.SelfMoving {
		return true
	}
	exclude := map[string]bool{}
	for _, p := range t.PickupQueue {
		exclude[p.ThingID] = true
	}
	for _, id := range t.HauledThings {
		exclude[id] = true
	}
	repl := env.FindReplacementTarget(kindOf(env, target), exclude)
	if repl == nil {
		return false
	}
	target.ThingID = repl.ThingID
	if target.Count > repl.Count {
		target.Count = repl.Count
	}
	return true
}

// kindOf recovers the kind of a queue entry whose thing may already be gone,
// falling back to the dead thing record if it still resolves.
func kindOf(env Env, target *tasks.PickupTarget) string {
	if th := env.ThingByID(target.ThingID); th != nil {
		return th.Kind
	}
	return ""
}

// pickUp takes up to target.Count units from the stack, splitting when the
// stack is larger than wanted, and stows the result: storage first with hands
// as the overflow slot, or straight to hands on a forced single-hands task.
func pickUp(env Env, a *modelpkg.Agent, t *tasks.HaulTask, target tasks.PickupTarget) {
	th := env.ThingByID(target.ThingID)
	if th == nil || th.Count <= 0 {
		return
	}
	take := target.Count
	if take > th.Count {
		take = th.Count
	}
	if take <= 0 {
		return
	}
	id := th.ThingID
	if take < th.Count {
		newID, ok := env.SplitThing(th.ThingID, take)
		if !ok {
			return
		}
		id = newID
	}
	if t.HandsOnly {
		if !env.PutInHands(a, id) {
			return
		}
	} else if !env.StowInStorage(a, id) && !env.PutInHands(a, id) {
		// No room at all; leave the stack on the field.
		return
	}
	t.AddHauled(id)
}

// adoptCarriedItems moves the task's borrowed carry-set stacks into the
// hauled ledger. Idempotent: AddHauled ignores duplicates.
func adoptCarriedItems(env Env, a *modelpkg.Agent, t *tasks.HaulTask) {
	for _, id := range t.OriginalCarrySource {
		th := env.ThingByID(id)
		if th == nil || th.Count <= 0 || !th.OnAgent(a.ID) {
			continue
		}
		t.AddHauled(id)
	}
}
