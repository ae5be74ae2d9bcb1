package runtime

import (
	"fmt"
	"testing"

	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/tuning"
	"bulkhaul.ai/internal/sim/world/feature/carry"
	"bulkhaul.ai/internal/sim/world/feature/ledger"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

type stubWorld struct {
	things map[string]*modelpkg.Thing
	field  map[string][]string

	destAlive       bool
	destCancelled   bool
	destPos         modelpkg.Vec3i
	destObstruction string
	destNeeds       map[string]int

	obstructions map[string]modelpkg.Vec3i

	lg  *ledger.Ledger
	cr  *carry.Registry
	cfg tuning.Haul

	deposited map[string]int
	nextID    int
}

func newStubWorld() *stubWorld {
	return &stubWorld{
		things:       map[string]*modelpkg.Thing{},
		field:        map[string][]string{},
		destAlive:    true,
		destPos:      modelpkg.Vec3i{X: 20},
		destNeeds:    map[string]int{},
		obstructions: map[string]modelpkg.Vec3i{},
		lg:           ledger.New(nil),
		cr:           carry.NewRegistry(),
		cfg:          tuning.Defaults().Haul,
		deposited:    map[string]int{},
	}
}

func (w *stubWorld) addGroundStack(id, kind string, count, unitMilli int, pos modelpkg.Vec3i) *modelpkg.Thing {
	th := &modelpkg.Thing{ThingID: id, Kind: kind, Count: count, UnitMassMilli: unitMilli,
		Location: modelpkg.LocGround, Pos: pos}
	w.things[id] = th
	w.field[kind] = append(w.field[kind], id)
	return th
}

func (w *stubWorld) ThingByID(id string) *modelpkg.Thing { return w.things[id] }

func (w *stubWorld) ThingFieldPos(thingID string) (modelpkg.Vec3i, bool) {
	th := w.things[thingID]
	if th == nil || th.Location != modelpkg.LocGround {
		return modelpkg.Vec3i{}, false
	}
	return th.Pos, true
}

func (w *stubWorld) SplitThing(thingID string, count int) (string, bool) {
	th := w.things[thingID]
	if th == nil || count <= 0 || count >= th.Count {
		return "", false
	}
	w.nextID++
	id := fmt.Sprintf("SPLIT%d", w.nextID)
	th.Count -= count
	nw := *th
	nw.ThingID = id
	nw.Count = count
	w.things[id] = &nw
	if nw.Location == modelpkg.LocGround {
		w.field[nw.Kind] = append(w.field[nw.Kind], id)
	}
	return id, true
}

func (w *stubWorld) FindReplacementTarget(kind string, exclude map[string]bool) *modelpkg.Thing {
	for _, id := range w.field[kind] {
		th := w.things[id]
		if th == nil || th.Count <= 0 || th.SelfMoving || exclude[id] {
			continue
		}
		if th.Location == modelpkg.LocGround {
			return th
		}
	}
	return nil
}

func (w *stubWorld) storedMassMilli(a *modelpkg.Agent) int {
	total := 0
	for _, id := range a.StorageThingIDs {
		if th := w.things[id]; th != nil {
			total += th.MassMilli()
		}
	}
	return total
}

func (w *stubWorld) removeFromField(th *modelpkg.Thing) {
	ids := w.field[th.Kind]
	out := ids[:0]
	for _, id := range ids {
		if id != th.ThingID {
			out = append(out, id)
		}
	}
	w.field[th.Kind] = out
}

func (w *stubWorld) StowInStorage(a *modelpkg.Agent, thingID string) bool {
	th := w.things[thingID]
	if th == nil {
		return false
	}
	if w.storedMassMilli(a)+th.MassMilli() > a.MassCapacityMilli {
		return false
	}
	w.removeFromField(th)
	if a.HandsThingID == thingID {
		a.HandsThingID = ""
	}
	th.Location = modelpkg.LocStorage
	th.HolderID = a.ID
	a.AddStored(thingID)
	return true
}

func (w *stubWorld) PutInHands(a *modelpkg.Agent, thingID string) bool {
	if a.HandsThingID != "" {
		return false
	}
	th := w.things[thingID]
	if th == nil {
		return false
	}
	w.removeFromField(th)
	th.Location = modelpkg.LocHands
	th.HolderID = a.ID
	a.HandsThingID = thingID
	return true
}

func (w *stubWorld) DropAt(a *modelpkg.Agent, thingID string, pos modelpkg.Vec3i) {
	th := w.things[thingID]
	if th == nil {
		return
	}
	if a.HandsThingID == thingID {
		a.HandsThingID = ""
	}
	a.RemoveStored(thingID)
	th.Location = modelpkg.LocGround
	th.HolderID = ""
	th.Pos = pos
	w.field[th.Kind] = append(w.field[th.Kind], thingID)
}

func (w *stubWorld) StartMove(a *modelpkg.Agent, taskID string, target modelpkg.Vec3i, tolerance float64) {
	a.MoveTask = &tasks.MovementTask{TaskID: taskID, Target: tasks.Vec3i(target), Tolerance: tolerance, Silent: true}
}

func (w *stubWorld) DestinationAlive(destID string) bool     { return w.destAlive }
func (w *stubWorld) DestinationCancelled(destID string) bool { return w.destCancelled }

func (w *stubWorld) DestinationPos(destID string) (modelpkg.Vec3i, bool) {
	if !w.destAlive {
		return modelpkg.Vec3i{}, false
	}
	return w.destPos, true
}

func (w *stubWorld) DestinationObstruction(destID string) string { return w.destObstruction }

func (w *stubWorld) DestinationNeeds(destID string) map[string]int {
	out := map[string]int{}
	for k, v := range w.destNeeds {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func (w *stubWorld) DepositThing(nowTick uint64, a *modelpkg.Agent, destID, thingID string, maxCount int) int {
	th := w.things[thingID]
	if th == nil || !w.destAlive {
		return 0
	}
	accept := maxCount
	if accept > th.Count {
		accept = th.Count
	}
	if accept > w.destNeeds[th.Kind] {
		accept = w.destNeeds[th.Kind]
	}
	if accept <= 0 {
		return 0
	}
	th.Count -= accept
	w.destNeeds[th.Kind] -= accept
	w.deposited[th.Kind] += accept
	if th.Count <= 0 {
		th.Location = modelpkg.LocDestroyed
		th.HolderID = ""
		if a.HandsThingID == thingID {
			a.HandsThingID = ""
		}
		a.RemoveStored(thingID)
	}
	return accept
}

func (w *stubWorld) ObstructionPos(obstructionID string) (modelpkg.Vec3i, bool) {
	pos, ok := w.obstructions[obstructionID]
	return pos, ok
}

func (w *stubWorld) ClearObstruction(obstructionID string) bool {
	if _, ok := w.obstructions[obstructionID]; !ok {
		return false
	}
	delete(w.obstructions, obstructionID)
	if w.destObstruction == obstructionID {
		w.destObstruction = ""
	}
	return true
}

func (w *stubWorld) QueueSiteClearing(a *modelpkg.Agent, parent *tasks.HaulTask, obstructionID string) {
	a.TaskQueue = append(a.TaskQueue, parent)
	w.nextID++
	a.HaulTask = &tasks.HaulTask{
		TaskID:        fmt.Sprintf("CLR%d", w.nextID),
		Kind:          tasks.KindClearSite,
		Step:          tasks.StepGotoObstruction,
		ObstructionID: obstructionID,
	}
}

func (w *stubWorld) Ledger() *ledger.Ledger { return w.lg }
func (w *stubWorld) Carry() *carry.Registry { return w.cr }
func (w *stubWorld) HaulCfg() tuning.Haul   { return w.cfg }

// run advances the task with instant movement until it ends or maxTicks pass,
// popping the relay queue the way the world loop does.
func run(t *testing.T, w *stubWorld, a *modelpkg.Agent, maxTicks int) tasks.Outcome {
	t.Helper()
	var tick uint64
	for i := 0; i < maxTicks; i++ {
		tick++
		if a.MoveTask != nil {
			a.Pos = modelpkg.Vec3i(a.MoveTask.Target)
			a.MoveTask = nil
		}
		outcome, done := Tick(w, a, tick)
		if !done {
			continue
		}
		a.HaulTask = nil
		if n := len(a.TaskQueue); n > 0 {
			a.HaulTask = a.TaskQueue[n-1]
			a.TaskQueue = a.TaskQueue[:n-1]
			continue
		}
		return outcome
	}
	t.Fatalf("task did not end within %d ticks (step %v)", maxTicks, a.HaulTask)
	return ""
}

func newAgent() *modelpkg.Agent {
	a := &modelpkg.Agent{ID: "X"}
	a.InitDefaults()
	return a
}

func loadTask(w *stubWorld, pickups ...tasks.PickupTarget) *tasks.HaulTask {
	return &tasks.HaulTask{
		TaskID:      "T1",
		Kind:        tasks.KindBulkLoad,
		Mode:        tasks.ModeOneShot,
		GroupKey:    "PODGRP_G",
		DestID:      "POD_1",
		Step:        tasks.StepPickupDecide,
		PickupQueue: pickups,
	}
}

func TestHappyPathDeliversAndReleases(t *testing.T) {
	w := newStubWorld()
	w.addGroundStack("TH1", "STEEL", 30, 100, modelpkg.Vec3i{X: 5})
	w.destNeeds["STEEL"] = 50
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 50}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 30}, 1)

	a := newAgent()
	a.HaulTask = loadTask(w, tasks.PickupTarget{ThingID: "TH1", Count: 30})

	if got := run(t, w, a, 200); got != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", got)
	}
	if w.deposited["STEEL"] != 30 {
		t.Fatalf("deposited %d, want 30", w.deposited["STEEL"])
	}
	if w.destNeeds["STEEL"] != 20 {
		t.Fatalf("remaining need %d, want 20", w.destNeeds["STEEL"])
	}
	if got := w.lg.ClaimsForAgent("X"); got != nil {
		t.Fatalf("claims not released: %v", got)
	}
	if !w.lg.CheckInvariant() {
		t.Fatalf("ledger invariant violated")
	}
	if a.HandsThingID != "" || len(a.StorageThingIDs) != 0 {
		t.Fatalf("agent still carrying after delivery: hands=%q storage=%v",
			a.HandsThingID, a.StorageThingIDs)
	}
}

func TestPartialStackSplitsAtPickup(t *testing.T) {
	w := newStubWorld()
	w.addGroundStack("TH1", "STEEL", 100, 100, modelpkg.Vec3i{X: 5})
	w.destNeeds["STEEL"] = 30
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 30}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 30}, 1)

	a := newAgent()
	a.HaulTask = loadTask(w, tasks.PickupTarget{ThingID: "TH1", Count: 30})

	if got := run(t, w, a, 200); got != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", got)
	}
	if w.deposited["STEEL"] != 30 {
		t.Fatalf("deposited %d, want 30", w.deposited["STEEL"])
	}
	if th := w.things["TH1"]; th.Count != 70 || th.Location != modelpkg.LocGround {
		t.Fatalf("source stack = %+v, want 70 left on ground", th)
	}
}

func TestInterruptionSalvagesHandsStack(t *testing.T) {
	w := newStubWorld()
	steel := w.addGroundStack("TH1", "STEEL", 10, 1000, modelpkg.Vec3i{X: 5})
	w.destNeeds["STEEL"] = 10
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 10}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 10}, 1)

	a := newAgent()
	a.MassCapacityMilli = 15000
	task := loadTask(w)
	task.HauledThings = []string{"TH1"}
	task.Step = tasks.StepTransit
	task.PickupDone = true
	a.HaulTask = task

	// Mid-transit the stack rides in the hands slot.
	w.removeFromField(steel)
	steel.Location = modelpkg.LocHands
	steel.HolderID = "X"
	a.HandsThingID = "TH1"

	if !Interrupt(w, a, 10) {
		t.Fatalf("interrupt refused")
	}
	// 10 units at 1000 milli fit within the 15000 storage budget.
	if steel.Location != modelpkg.LocStorage || !a.HasStored("TH1") {
		t.Fatalf("hands stack not stowed: %+v", steel)
	}
	if a.HandsThingID != "" {
		t.Fatalf("hands slot not cleared")
	}
	if got := w.lg.ClaimsForAgent("X"); got != nil {
		t.Fatalf("claims not released: %v", got)
	}
	if !w.cr.Has("X", "TH1") {
		t.Fatalf("salvaged stack not reconciled into carry set")
	}
	// End is exactly-once.
	if Interrupt(w, a, 11) {
		t.Fatalf("second interrupt acted on an ended task")
	}
}

func TestDestinationDestroyedMidTransit(t *testing.T) {
	w := newStubWorld()
	w.addGroundStack("TH1", "STEEL", 10, 100, modelpkg.Vec3i{X: 5})
	w.destNeeds["STEEL"] = 10
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 10}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 10}, 1)

	a := newAgent()
	a.HaulTask = loadTask(w, tasks.PickupTarget{ThingID: "TH1", Count: 10})

	var tick uint64
	var outcome tasks.Outcome
	done := false
	for i := 0; i < 200 && !done; i++ {
		tick++
		if a.MoveTask != nil {
			a.Pos = modelpkg.Vec3i(a.MoveTask.Target)
			a.MoveTask = nil
		}
		if a.HaulTask != nil && a.HaulTask.Step == tasks.StepTransit {
			w.destAlive = false
		}
		outcome, done = Tick(w, a, tick)
	}
	if outcome != tasks.OutcomeIncompletable {
		t.Fatalf("outcome = %v, want INCOMPLETABLE", outcome)
	}
	if got := w.lg.ClaimsForAgent("X"); got != nil {
		t.Fatalf("claims not released: %v", got)
	}
	// The picked-up stack survives on the agent and re-enters the carry set.
	th := w.things["TH1"]
	if th.Count != 10 || !th.OnAgent("X") {
		t.Fatalf("cargo lost: %+v", th)
	}
	if !w.cr.Has("X", "TH1") {
		t.Fatalf("stranded cargo not reconciled into carry set")
	}
}

func TestNeedFilledByOthersBecomesSurplus(t *testing.T) {
	w := newStubWorld()
	w.addGroundStack("TH1", "STEEL", 10, 100, modelpkg.Vec3i{X: 5})
	w.destNeeds["STEEL"] = 10
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 10}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 10}, 1)

	a := newAgent()
	a.HaulTask = loadTask(w, tasks.PickupTarget{ThingID: "TH1", Count: 10})

	var tick uint64
	var outcome tasks.Outcome
	done := false
	for i := 0; i < 200 && !done; i++ {
		tick++
		if a.MoveTask != nil {
			a.Pos = modelpkg.Vec3i(a.MoveTask.Target)
			a.MoveTask = nil
		}
		if a.HaulTask != nil && a.HaulTask.Step == tasks.StepUnloadNext {
			w.destNeeds["STEEL"] = 0
		}
		outcome, done = Tick(w, a, tick)
	}
	if outcome != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", outcome)
	}
	if w.deposited["STEEL"] != 0 {
		t.Fatalf("deposited into a filled destination")
	}
	th := w.things["TH1"]
	if th.Count != 10 || !th.OnAgent("X") {
		t.Fatalf("surplus cargo lost: %+v", th)
	}
	if !w.cr.Has("X", "TH1") {
		t.Fatalf("surplus not reconciled into carry set")
	}
}

func TestObstructionRelayClearsThenDelivers(t *testing.T) {
	w := newStubWorld()
	w.addGroundStack("TH1", "STEEL", 10, 100, modelpkg.Vec3i{X: 5})
	w.destNeeds["STEEL"] = 10
	w.destObstruction = "OBST_1"
	w.obstructions["OBST_1"] = modelpkg.Vec3i{X: 18}
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 10}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 10}, 1)

	a := newAgent()
	a.HaulTask = loadTask(w, tasks.PickupTarget{ThingID: "TH1", Count: 10})

	if got := run(t, w, a, 400); got != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", got)
	}
	if w.deposited["STEEL"] != 10 {
		t.Fatalf("deposited %d, want 10", w.deposited["STEEL"])
	}
	if len(w.obstructions) != 0 {
		t.Fatalf("obstruction survived: %v", w.obstructions)
	}
	if got := w.lg.ClaimsForAgent("X"); got != nil {
		t.Fatalf("claims not released: %v", got)
	}
}

func TestPickupTargetStolenFindsReplacement(t *testing.T) {
	w := newStubWorld()
	w.addGroundStack("TH1", "STEEL", 10, 100, modelpkg.Vec3i{X: 5})
	w.addGroundStack("TH2", "STEEL", 10, 100, modelpkg.Vec3i{X: 7})
	w.destNeeds["STEEL"] = 10
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 10}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 10}, 1)

	a := newAgent()
	a.HaulTask = loadTask(w, tasks.PickupTarget{ThingID: "TH1", Count: 10})

	// Someone else takes TH1 before the first step runs.
	w.things["TH1"].Count = 0

	if got := run(t, w, a, 200); got != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", got)
	}
	if w.deposited["STEEL"] != 10 {
		t.Fatalf("deposited %d, want 10", w.deposited["STEEL"])
	}
	if th := w.things["TH2"]; th.Count != 0 {
		t.Fatalf("replacement stack untouched: %+v", th)
	}
}

func TestUnloadSessionWorksOffNeedsSnapshot(t *testing.T) {
	w := newStubWorld()
	w.addGroundStack("TH1", "STEEL", 10, 100, modelpkg.Vec3i{X: 5})
	w.addGroundStack("TH2", "STEEL", 10, 100, modelpkg.Vec3i{X: 7})
	w.destNeeds["STEEL"] = 10
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 10}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 10}, 1)

	a := newAgent()
	a.HaulTask = loadTask(w,
		tasks.PickupTarget{ThingID: "TH1", Count: 10},
		tasks.PickupTarget{ThingID: "TH2", Count: 10})

	// The destination's need grows back after the first deposit. The session
	// snapshot was 10, so the second stack must become surplus regardless.
	refilled := false
	var tick uint64
	var outcome tasks.Outcome
	done := false
	for i := 0; i < 300 && !done; i++ {
		tick++
		if a.MoveTask != nil {
			a.Pos = modelpkg.Vec3i(a.MoveTask.Target)
			a.MoveTask = nil
		}
		if !refilled && w.deposited["STEEL"] == 10 {
			w.destNeeds["STEEL"] = 15
			refilled = true
		}
		outcome, done = Tick(w, a, tick)
	}
	if outcome != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", outcome)
	}
	if w.deposited["STEEL"] != 10 {
		t.Fatalf("deposited %d, want the snapshot amount 10", w.deposited["STEEL"])
	}
	th := w.things["TH2"]
	if th.Count != 10 || !th.OnAgent("X") {
		t.Fatalf("second stack not kept as surplus: %+v", th)
	}
	if !w.cr.Has("X", "TH2") {
		t.Fatalf("surplus not reconciled into carry set")
	}
}

func TestHandsOnlyPickupRidesInHands(t *testing.T) {
	w := newStubWorld()
	steel := w.addGroundStack("TH1", "STEEL", 10, 100, modelpkg.Vec3i{X: 5})
	w.destNeeds["STEEL"] = 10
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 10}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 10}, 1)

	a := newAgent()
	a.MassCapacityMilli = 100000
	task := loadTask(w, tasks.PickupTarget{ThingID: "TH1", Count: 10})
	task.HandsOnly = true
	a.HaulTask = task

	// Step until the pickup has happened, then inspect where the stack went.
	var tick uint64
	for i := 0; i < 50 && a.HandsThingID == "" && len(a.StorageThingIDs) == 0; i++ {
		tick++
		if a.MoveTask != nil {
			a.Pos = modelpkg.Vec3i(a.MoveTask.Target)
			a.MoveTask = nil
		}
		Tick(w, a, tick)
	}
	if a.HandsThingID != "TH1" || steel.Location != modelpkg.LocHands {
		t.Fatalf("single-hands pickup not in hands: hands=%q thing=%+v", a.HandsThingID, steel)
	}
	if len(a.StorageThingIDs) != 0 {
		t.Fatalf("single-hands pickup leaked into storage: %v", a.StorageThingIDs)
	}

	if got := run(t, w, a, 200); got != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", got)
	}
	if w.deposited["STEEL"] != 10 {
		t.Fatalf("deposited %d, want 10", w.deposited["STEEL"])
	}
}

func TestPartialDepositRemainderStowedOnSuccess(t *testing.T) {
	w := newStubWorld()
	steel := w.addGroundStack("TH1", "STEEL", 10, 100, modelpkg.Vec3i{X: 5})
	w.destNeeds["STEEL"] = 4
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 4}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 4}, 1)

	a := newAgent()
	task := loadTask(w)
	task.HauledThings = []string{"TH1"}
	task.Step = tasks.StepTransit
	task.PickupDone = true
	a.HaulTask = task

	// The stack rides in the hands slot into the unload session.
	w.removeFromField(steel)
	steel.Location = modelpkg.LocHands
	steel.HolderID = "X"
	a.HandsThingID = "TH1"

	if got := run(t, w, a, 200); got != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", got)
	}
	if w.deposited["STEEL"] != 4 {
		t.Fatalf("deposited %d, want 4", w.deposited["STEEL"])
	}
	// The 6-unit remainder moves out of the hands slot into storage.
	if a.HandsThingID != "" {
		t.Fatalf("task ended with a stack still in hands")
	}
	if steel.Count != 6 || steel.Location != modelpkg.LocStorage || !a.HasStored("TH1") {
		t.Fatalf("remainder not stowed: %+v", steel)
	}
	if !w.cr.Has("X", "TH1") {
		t.Fatalf("remainder not reconciled into carry set")
	}
}

func TestUnloadOnlyTaskDeliversCarriedStack(t *testing.T) {
	w := newStubWorld()
	th := &modelpkg.Thing{ThingID: "CARRIED", Kind: "STEEL", Count: 10, UnitMassMilli: 100,
		Location: modelpkg.LocStorage, HolderID: "X"}
	w.things["CARRIED"] = th
	w.destNeeds["STEEL"] = 50
	w.lg.RegisterOrUpdate("PODGRP_G", "R1", []modelpkg.ItemCount{{Kind: "STEEL", Count: 50}}, 1)
	w.lg.ClaimItems("X", "PODGRP_G", map[string]int{"STEEL": 10}, 1)
	w.cr.Register("X", "CARRIED")

	a := newAgent()
	a.AddStored("CARRIED")
	task := loadTask(w)
	task.OriginalCarrySource = []string{"CARRIED"}
	a.HaulTask = task

	if got := run(t, w, a, 200); got != tasks.OutcomeSucceeded {
		t.Fatalf("outcome = %v", got)
	}
	if w.deposited["STEEL"] != 10 {
		t.Fatalf("deposited %d, want 10", w.deposited["STEEL"])
	}
	if w.cr.Has("X", "CARRIED") {
		t.Fatalf("delivered stack still in carry set")
	}
	if got := w.lg.RequiredRemaining("PODGRP_G")["STEEL"]; got != 40 {
		t.Fatalf("remaining need %d, want 40", got)
	}
}
