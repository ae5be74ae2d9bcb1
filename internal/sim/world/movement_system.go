package world

import (
	"bulkhaul.ai/internal/protocol"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// stepMovement advances every pending movement leg by one cell. Movement is
// deterministic: the primary axis is whichever horizontal delta is larger,
// X wins ties.
func (w *World) stepMovement(nowTick uint64) {
	for _, id := range w.sortedAgentIDs() {
		a := w.agents[id]
		mt := a.MoveTask
		if mt == nil {
			continue
		}
		if a.Incapacitated {
			a.MoveTask = nil
			continue
		}
		target := modelpkg.Vec3i{X: mt.Target.X, Y: mt.Target.Y, Z: mt.Target.Z}
		if w.arrived(a.Pos, target, mt.Tolerance) {
			a.MoveTask = nil
			if !mt.Silent {
				a.AddEvent(protocol.Event{
					"type":    "TASK_DONE",
					"task_id": mt.TaskID,
					"tick":    nowTick,
				})
			}
			continue
		}

		dx := target.X - a.Pos.X
		dz := target.Z - a.Pos.Z
		if absInt(dx) >= absInt(dz) && dx != 0 {
			a.Pos.X += signInt(dx)
		} else if dz != 0 {
			a.Pos.Z += signInt(dz)
		} else if dx != 0 {
			a.Pos.X += signInt(dx)
		}

		if w.arrived(a.Pos, target, mt.Tolerance) {
			a.MoveTask = nil
			if !mt.Silent {
				a.AddEvent(protocol.Event{
					"type":    "TASK_DONE",
					"task_id": mt.TaskID,
					"tick":    nowTick,
				})
			}
		}
	}
}

func (w *World) arrived(pos, target modelpkg.Vec3i, tolerance float64) bool {
	return float64(modelpkg.Manhattan(
		modelpkg.Vec3i{X: pos.X, Z: pos.Z},
		modelpkg.Vec3i{X: target.X, Z: target.Z})) <= tolerance
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func signInt(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
