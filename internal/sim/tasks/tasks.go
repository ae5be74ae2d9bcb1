package tasks

type Kind string

const (
	KindBulkLoad   Kind = "BULK_LOAD"
	KindBulkUnload Kind = "BULK_UNLOAD"
	KindClearSite  Kind = "CLEAR_SITE"
)

// Mode selects what happens after a successful unload session.
type Mode string

const (
	ModeOneShot    Mode = "ONE_SHOT"
	ModeContinuous Mode = "CONTINUOUS"
)

// Outcome is the terminal result of a haul task.
type Outcome string

const (
	OutcomeSucceeded     Outcome = "SUCCEEDED"
	OutcomeSucceededNoOp Outcome = "SUCCEEDED_NOOP"
	OutcomeIncompletable Outcome = "INCOMPLETABLE"
	OutcomeInterrupted   Outcome = "INTERRUPTED"
)

// Step indices for the bulk haul state machine. The cursor is explicit state
// on the task so a suspended task can be resumed (or reset) deterministically.
const (
	StepPickupDecide int = iota
	StepGotoPickup
	StepTakeItem
	StepUnloadOnlyPrep
	StepAfterPickup
	StepTransit
	StepUnloadBegin
	StepUnloadNext
	StepDeposit
	StepUnloadEnd
)

// Step indices for the site-clearing relay sub-task.
const (
	StepGotoObstruction int = iota
	StepRemoveObstruction
)

type MovementTask struct {
	TaskID      string
	Target      Vec3i
	Tolerance   float64
	Silent      bool // internal leg of a larger task; completion emits no event
	StartedTick uint64
}

type PickupTarget struct {
	ThingID string
	Count   int
}

// HaulTask is the per-agent, per-job state of one bulk haul.
// Thing ledgers are keyed by thing id (reference identity), never by value.
type HaulTask struct {
	TaskID string
	Kind   Kind
	Mode   Mode
	// Forced single-hands mode: every pickup goes to the hands slot.
	HandsOnly bool

	GroupKey string // ledger key of the load group
	DestID   string // specific destination instance for the unload session

	Step                int
	WaitTicks           int
	PickupDone          bool
	LastRevalidatedTick uint64

	PickupQueue []PickupTarget

	// Things physically hauled for this task.
	HauledThings []string
	// Things the task borrowed from the agent's incidental-carry set.
	OriginalCarrySource []string
	// Things picked up but no longer needed by delivery time.
	SurplusThings []string

	// Remaining needs of DestID, snapshot at unload-session start.
	NeedsSnapshot map[string]int

	// CLEAR_SITE
	ObstructionID string

	StartedTick uint64

	// Set once by the termination path; guards exactly-once release/reconcile.
	Ended bool
}

// ResetToStep rewinds or advances the step cursor. Pending waits are discarded.
func (t *HaulTask) ResetToStep(step int) {
	t.Step = step
	t.WaitTicks = 0
}

func (t *HaulTask) AddHauled(thingID string) {
	if thingID == "" || containsID(t.HauledThings, thingID) {
		return
	}
	t.HauledThings = append(t.HauledThings, thingID)
}

func (t *HaulTask) RemoveHauled(thingID string) {
	t.HauledThings = removeID(t.HauledThings, thingID)
}

func (t *HaulTask) AddSurplus(thingID string) {
	if thingID == "" || containsID(t.SurplusThings, thingID) {
		return
	}
	t.SurplusThings = append(t.SurplusThings, thingID)
}

func (t *HaulTask) IsOriginalCarrySource(thingID string) bool {
	return containsID(t.OriginalCarrySource, thingID)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Vec3i is duplicated here to avoid import cycles (tasks is used by world).
type Vec3i struct{ X, Y, Z int }
