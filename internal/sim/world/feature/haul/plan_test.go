package haul

import (
	"fmt"
	"testing"

	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/world/feature/carry"
	"bulkhaul.ai/internal/sim/world/feature/ledger"
	"bulkhaul.ai/internal/sim/world/feature/loadable"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

type stubEnv struct {
	things      map[string]*modelpkg.Thing
	field       map[string][]string // kind -> thing ids, nearest first
	dest        string
	obstruction map[string]string
	freeMilli   int
	nextTask    int
}

func newStubEnv() *stubEnv {
	return &stubEnv{
		things:      map[string]*modelpkg.Thing{},
		field:       map[string][]string{},
		dest:        "POD_1",
		obstruction: map[string]string{},
		freeMilli:   35000,
	}
}

func (e *stubEnv) addGroundStack(id, kind string, count, unitMilli int) *modelpkg.Thing {
	th := &modelpkg.Thing{ThingID: id, Kind: kind, Count: count, UnitMassMilli: unitMilli, Location: modelpkg.LocGround}
	e.things[id] = th
	e.field[kind] = append(e.field[kind], id)
	return th
}

func (e *stubEnv) addStoredStack(agentID, id, kind string, count, unitMilli int) *modelpkg.Thing {
	th := &modelpkg.Thing{ThingID: id, Kind: kind, Count: count, UnitMassMilli: unitMilli,
		Location: modelpkg.LocStorage, HolderID: agentID}
	e.things[id] = th
	return th
}

func (e *stubEnv) ThingByID(id string) *modelpkg.Thing { return e.things[id] }

func (e *stubEnv) ThingsOfKindOnField(kind string) []*modelpkg.Thing {
	out := make([]*modelpkg.Thing, 0, len(e.field[kind]))
	for _, id := range e.field[kind] {
		out = append(out, e.things[id])
	}
	return out
}

func (e *stubEnv) PrimaryDestination(groupKey string) (string, bool) {
	return e.dest, e.dest != ""
}

func (e *stubEnv) DestinationObstruction(destID string) string { return e.obstruction[destID] }

func (e *stubEnv) AgentFreeMassMilli(a *modelpkg.Agent) int { return e.freeMilli }

func (e *stubEnv) NewTaskID() string {
	e.nextTask++
	return fmt.Sprintf("T%d", e.nextTask)
}

type stubLoadable struct {
	key      string
	required []modelpkg.ItemCount
	detailed []loadable.ThingRequirement
	capMilli int
	stale    bool
}

func (s *stubLoadable) Identity() string { return s.key }

func (s *stubLoadable) RequiredItems() ([]modelpkg.ItemCount, error) {
	if s.stale {
		return nil, loadable.ErrStaleTarget
	}
	return s.required, nil
}

func (s *stubLoadable) DetailedRequirements() ([]loadable.ThingRequirement, bool) {
	return s.detailed, len(s.detailed) > 0
}

func (s *stubLoadable) CapacityRemaining() (int, error) {
	if s.stale {
		return 0, loadable.ErrStaleTarget
	}
	return s.capMilli, nil
}

func (s *stubLoadable) Region() string      { return "R1" }
func (s *stubLoadable) Pos() modelpkg.Vec3i { return modelpkg.Vec3i{} }

func steelNeed(n int) []modelpkg.ItemCount {
	return []modelpkg.ItemCount{{Kind: "STEEL", Count: n}}
}

func TestBuildPlanClaimsFromField(t *testing.T) {
	env := newStubEnv()
	env.addGroundStack("TH1", "STEEL", 30, 100)
	env.addGroundStack("TH2", "STEEL", 30, 100)
	lg := ledger.New(nil)
	cr := carry.NewRegistry()
	a := &modelpkg.Agent{ID: "X"}
	ld := &stubLoadable{key: "PODGRP_G", required: steelNeed(50), capMilli: 100000}

	task, ok := BuildPlan(env, lg, cr, a, ld, tasks.ModeOneShot, PlanOptions{}, 1)
	if !ok {
		t.Fatalf("no plan built")
	}
	if task.Step != tasks.StepPickupDecide || task.Kind != tasks.KindBulkLoad {
		t.Fatalf("task = %+v", task)
	}
	total := 0
	for _, p := range task.PickupQueue {
		total += p.Count
	}
	if total != 50 {
		t.Fatalf("planned %d units, want 50 (queue %v)", total, task.PickupQueue)
	}
	if got := lg.ClaimedTotal("PODGRP_G", "STEEL"); got != 50 {
		t.Fatalf("ledger claim = %d, want 50", got)
	}
	// A second agent now sees no availability.
	if _, ok := BuildPlan(env, lg, cr, &modelpkg.Agent{ID: "Y"}, ld, tasks.ModeOneShot, PlanOptions{}, 1); ok {
		t.Fatalf("second agent planned against a fully claimed group")
	}
}

func TestBuildPlanUsesCarriedItemsFirst(t *testing.T) {
	env := newStubEnv()
	env.addStoredStack("X", "CARRIED", "STEEL", 10, 100)
	env.addGroundStack("TH1", "STEEL", 100, 100)
	lg := ledger.New(nil)
	cr := carry.NewRegistry()
	cr.Register("X", "CARRIED")
	a := &modelpkg.Agent{ID: "X"}
	ld := &stubLoadable{key: "PODGRP_G", required: steelNeed(50), capMilli: 100000}

	task, ok := BuildPlan(env, lg, cr, a, ld, tasks.ModeOneShot, PlanOptions{}, 1)
	if !ok {
		t.Fatalf("no plan built")
	}
	if len(task.OriginalCarrySource) != 1 || task.OriginalCarrySource[0] != "CARRIED" {
		t.Fatalf("carried stack not borrowed: %v", task.OriginalCarrySource)
	}
	picked := 0
	for _, p := range task.PickupQueue {
		picked += p.Count
	}
	// 10 from the carried stack, the remaining 40 from the field.
	if picked != 40 {
		t.Fatalf("field pickups = %d, want 40", picked)
	}
	if got := lg.ClaimedTotal("PODGRP_G", "STEEL"); got != 50 {
		t.Fatalf("ledger claim = %d, want 50", got)
	}
}

func TestBuildPlanRespectsDestinationCapacity(t *testing.T) {
	env := newStubEnv()
	env.addGroundStack("TH1", "STEEL", 100, 1000)
	lg := ledger.New(nil)
	a := &modelpkg.Agent{ID: "X"}
	// Capacity fits only 7 units at 1000 milli each.
	ld := &stubLoadable{key: "PODGRP_G", required: steelNeed(50), capMilli: 7000}

	task, ok := BuildPlan(env, lg, carry.NewRegistry(), a, ld, tasks.ModeOneShot, PlanOptions{}, 1)
	if !ok {
		t.Fatalf("no plan built")
	}
	total := 0
	for _, p := range task.PickupQueue {
		total += p.Count
	}
	if total != 7 {
		t.Fatalf("planned %d units, want capacity-capped 7", total)
	}
}

func TestBuildPlanHandsSlotOverflow(t *testing.T) {
	env := newStubEnv()
	env.freeMilli = 500
	// Storage fits 5 units; the 20-unit stack can still ride in the hands slot.
	env.addGroundStack("TH1", "STEEL", 5, 100)
	env.addGroundStack("TH2", "STEEL", 20, 100)
	lg := ledger.New(nil)
	a := &modelpkg.Agent{ID: "X"}
	ld := &stubLoadable{key: "PODGRP_G", required: steelNeed(25), capMilli: 100000}

	task, ok := BuildPlan(env, lg, carry.NewRegistry(), a, ld, tasks.ModeOneShot, PlanOptions{}, 1)
	if !ok {
		t.Fatalf("no plan built")
	}
	total := 0
	for _, p := range task.PickupQueue {
		total += p.Count
	}
	if total != 25 {
		t.Fatalf("planned %d units, want 25 (one stack in hands)", total)
	}
}

func TestBuildPlanHandsOnlyQueuesSingleStack(t *testing.T) {
	env := newStubEnv()
	env.addGroundStack("TH1", "STEEL", 10, 100)
	env.addGroundStack("TH2", "STEEL", 10, 100)
	lg := ledger.New(nil)
	a := &modelpkg.Agent{ID: "X"}
	ld := &stubLoadable{key: "PODGRP_G", required: steelNeed(20), capMilli: 100000}

	task, ok := BuildPlan(env, lg, carry.NewRegistry(), a, ld, tasks.ModeOneShot,
		PlanOptions{HandsOnly: true}, 1)
	if !ok {
		t.Fatalf("no plan built")
	}
	if !task.HandsOnly {
		t.Fatalf("single-hands mode not carried onto the task")
	}
	// No storage budget: exactly one stack rides in the hands slot.
	if len(task.PickupQueue) != 1 {
		t.Fatalf("queue = %v, want one stack", task.PickupQueue)
	}
}

func TestHasPotentialWorkOffFieldCandidates(t *testing.T) {
	env := newStubEnv()
	// Carrier cargo: resolvable by id, deliberately absent from the field scan.
	cargo := &modelpkg.Thing{ThingID: "CARGO", Kind: "STEEL", Count: 10, UnitMassMilli: 100,
		Location: modelpkg.LocContainer, ContainerID: "POD_1"}
	env.things["CARGO"] = cargo
	lg := ledger.New(nil)
	cr := carry.NewRegistry()
	a := &modelpkg.Agent{ID: "X"}

	ld := &stubLoadable{key: "UNLOAD_POD_1", required: steelNeed(10), capMilli: 100000,
		detailed: []loadable.ThingRequirement{{ThingID: "CARGO", Kind: "STEEL", Count: 10}}}
	if !HasPotentialWork(env, lg, cr, a, ld, PlanOptions{AssumeObstructionCleared: true}, 1) {
		t.Fatalf("detailed candidates not counted as haulable work")
	}

	// Without the detailed view the same cargo is invisible.
	bare := &stubLoadable{key: "UNLOAD_POD_2", required: steelNeed(10), capMilli: 100000}
	if HasPotentialWork(env, lg, cr, a, bare, PlanOptions{AssumeObstructionCleared: true}, 1) {
		t.Fatalf("off-field cargo counted without a detailed view")
	}
}

func TestBuildPlanStaleTarget(t *testing.T) {
	env := newStubEnv()
	env.addGroundStack("TH1", "STEEL", 10, 100)
	ld := &stubLoadable{key: "PODGRP_G", required: steelNeed(10), stale: true}
	if _, ok := BuildPlan(env, ledger.New(nil), carry.NewRegistry(), &modelpkg.Agent{ID: "X"}, ld, tasks.ModeOneShot, PlanOptions{}, 1); ok {
		t.Fatalf("planned against a stale target")
	}
}

func TestHasPotentialWorkObstructionGate(t *testing.T) {
	env := newStubEnv()
	env.addGroundStack("TH1", "STEEL", 10, 100)
	env.obstruction["POD_1"] = "OBST_1"
	lg := ledger.New(nil)
	cr := carry.NewRegistry()
	a := &modelpkg.Agent{ID: "X"}
	ld := &stubLoadable{key: "PODGRP_G", required: steelNeed(10), capMilli: 100000}

	if HasPotentialWork(env, lg, cr, a, ld, PlanOptions{}, 1) {
		t.Fatalf("obstructed destination offered work without the planning flag")
	}
	if !HasPotentialWork(env, lg, cr, a, ld, PlanOptions{AssumeObstructionCleared: true}, 1) {
		t.Fatalf("planning flag did not unlock the obstructed destination")
	}
}

func TestHasPotentialWorkSelfMovingOnly(t *testing.T) {
	env := newStubEnv()
	th := env.addGroundStack("MF1", "MUFFALO", 2, 60000)
	th.SelfMoving = true
	lg := ledger.New(nil)
	a := &modelpkg.Agent{ID: "X"}
	ld := &stubLoadable{key: "PODGRP_G",
		required: []modelpkg.ItemCount{{Kind: "MUFFALO", Count: 2}}, capMilli: 200000}

	if HasPotentialWork(env, lg, carry.NewRegistry(), a, ld, PlanOptions{}, 1) {
		t.Fatalf("self-moving cargo counted as haulable work")
	}
}

func TestHasPotentialWorkIncapacitated(t *testing.T) {
	env := newStubEnv()
	env.addGroundStack("TH1", "STEEL", 10, 100)
	a := &modelpkg.Agent{ID: "X", Incapacitated: true}
	ld := &stubLoadable{key: "PODGRP_G", required: steelNeed(10), capMilli: 100000}
	if HasPotentialWork(env, ledger.New(nil), carry.NewRegistry(), a, ld, PlanOptions{}, 1) {
		t.Fatalf("incapacitated agent offered work")
	}
}

func TestReconcileEndRestoresLeftovers(t *testing.T) {
	env := newStubEnv()
	env.addStoredStack("X", "BORROWED", "STEEL", 10, 100)
	env.addStoredStack("X", "LEFTOVER", "WOOD", 3, 100)
	delivered := env.addStoredStack("X", "DELIVERED", "STEEL", 5, 100)
	delivered.Location = modelpkg.LocDestroyed
	delivered.HolderID = ""

	cr := carry.NewRegistry()
	cr.Register("X", "BORROWED")
	a := &modelpkg.Agent{ID: "X"}
	task := &tasks.HaulTask{
		TaskID:              "T1",
		OriginalCarrySource: []string{"BORROWED"},
		HauledThings:        []string{"DELIVERED"},
		SurplusThings:       []string{"LEFTOVER"},
	}

	ReconcileEnd(env, cr, a, task)
	if !cr.Has("X", "BORROWED") {
		t.Fatalf("undelivered borrowed stack lost from carry set")
	}
	if !cr.Has("X", "LEFTOVER") {
		t.Fatalf("surplus stack not re-registered")
	}
	if cr.Has("X", "DELIVERED") {
		t.Fatalf("delivered stack re-entered carry set")
	}
	// Reconciliation is safe to repeat.
	ReconcileEnd(env, cr, a, task)
	if got := len(cr.CurrentSet("X")); got != 2 {
		t.Fatalf("carry set after double reconcile = %d entries", got)
	}
}
