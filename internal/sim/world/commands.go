package world

import (
	"encoding/json"

	"bulkhaul.ai/internal/protocol"
	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/world/feature/haul"
	"bulkhaul.ai/internal/sim/world/feature/haul/runtime"
	"bulkhaul.ai/internal/sim/world/feature/loadable"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

func (w *World) applyCmd(env CmdEnvelope, nowTick uint64) {
	cmd := env.Cmd
	agentID := cmd.AgentID
	if agentID == "" {
		agentID = env.AgentID
	}
	a := w.agents[agentID]
	if a == nil {
		w.nack(env.AgentID, cmd.ID, protocol.ErrInvalidTarget, "unknown agent", nowTick)
		return
	}

	switch cmd.Cmd {
	case protocol.CmdBulkLoad:
		w.cmdBulkLoad(a, env, nowTick)
	case protocol.CmdBulkUnload:
		w.cmdBulkUnload(a, env, nowTick)
	case protocol.CmdCancelTask:
		w.cmdCancelTask(a, env, nowTick)
	default:
		w.nack(env.AgentID, cmd.ID, protocol.ErrBadRequest, "unknown command", nowTick)
	}
}

func (w *World) cmdBulkLoad(a *modelpkg.Agent, env CmdEnvelope, nowTick uint64) {
	cmd := env.Cmd
	if a.Incapacitated {
		w.nack(env.AgentID, cmd.ID, protocol.ErrIncapacitated, "agent is incapacitated", nowTick)
		return
	}
	if a.HaulTask != nil && !a.HaulTask.Ended {
		w.nack(env.AgentID, cmd.ID, protocol.ErrConflict, "agent already has an active task", nowTick)
		return
	}
	ld, ok := w.resolveLoadable(cmd.TargetID)
	if !ok {
		w.nack(env.AgentID, cmd.ID, protocol.ErrInvalidTarget, "no such destination", nowTick)
		return
	}

	mode := tasks.ModeOneShot
	if cmd.Continuous && w.cfg.Haul.ContinuousModeEnabled {
		mode = tasks.ModeContinuous
	}
	// An explicit operator command commits to pre-work, so an obstructed
	// destination is still accepted; the task clears the blockage on arrival.
	opts := haul.PlanOptions{AssumeObstructionCleared: true, HandsOnly: cmd.HandsOnly}
	t, ok := haul.TryBuildTask(w, w.ledger, w.carry, a, ld, mode, opts, nowTick)
	if !ok {
		w.nack(env.AgentID, cmd.ID, protocol.ErrNoWork, "nothing left to claim for this destination", nowTick)
		return
	}
	a.HaulTask = t
	w.audit(AuditEntry{Tick: nowTick, AgentID: a.ID, Action: "TASK_START", Target: t.GroupKey})
	w.ack(env.AgentID, cmd.ID, nowTick)
}

func (w *World) cmdBulkUnload(a *modelpkg.Agent, env CmdEnvelope, nowTick uint64) {
	cmd := env.Cmd
	if a.Incapacitated {
		w.nack(env.AgentID, cmd.ID, protocol.ErrIncapacitated, "agent is incapacitated", nowTick)
		return
	}
	if a.HaulTask != nil && !a.HaulTask.Ended {
		w.nack(env.AgentID, cmd.ID, protocol.ErrConflict, "agent already has an active task", nowTick)
		return
	}
	pod := w.pods[cmd.CarrierID]
	if pod == nil || pod.Destroyed {
		w.nack(env.AgentID, cmd.ID, protocol.ErrInvalidTarget, "no such carrier", nowTick)
		return
	}
	if _, ok := w.stockpileFor(pod.RegionID); !ok {
		w.nack(env.AgentID, cmd.ID, protocol.ErrInvalidTarget, "region has no stockpile", nowTick)
		return
	}
	if pct := w.freeCapacityPct(a); pct < w.cfg.Haul.MinFreeCapacityToUnloadPct {
		w.nack(env.AgentID, cmd.ID, protocol.ErrNoWork, "not enough free carrying capacity", nowTick)
		return
	}

	ld := w.unloadLoadable(cmd.CarrierID)
	t, ok := haul.TryBuildTask(w, w.ledger, w.carry, a, ld, tasks.ModeOneShot,
		haul.PlanOptions{AssumeObstructionCleared: true}, nowTick)
	if !ok {
		w.nack(env.AgentID, cmd.ID, protocol.ErrNoWork, "carrier is empty", nowTick)
		return
	}
	t.Kind = tasks.KindBulkUnload
	a.HaulTask = t
	w.audit(AuditEntry{Tick: nowTick, AgentID: a.ID, Action: "TASK_START", Target: t.GroupKey})
	w.ack(env.AgentID, cmd.ID, nowTick)
}

func (w *World) cmdCancelTask(a *modelpkg.Agent, env CmdEnvelope, nowTick uint64) {
	cmd := env.Cmd
	cancelled := runtime.Interrupt(w, a, nowTick)
	for _, t := range a.TaskQueue {
		runtime.End(w, a, t, tasks.OutcomeInterrupted, nowTick)
		cancelled = true
	}
	a.TaskQueue = nil
	a.HaulTask = nil
	a.MoveTask = nil
	if !cancelled {
		w.nack(env.AgentID, cmd.ID, protocol.ErrNoWork, "no active task", nowTick)
		return
	}
	w.audit(AuditEntry{Tick: nowTick, AgentID: a.ID, Action: "TASK_CANCEL"})
	w.ack(env.AgentID, cmd.ID, nowTick)
}

// resolveLoadable maps an operator-facing target id to a loadable: a pod
// group id, a portal id, or a construction site id, probed in that order.
func (w *World) resolveLoadable(targetID string) (loadable.Loadable, bool) {
	if targetID == "" {
		return nil, false
	}
	if len(w.PodsInGroup(targetID)) > 0 {
		return loadable.ForTransportGroup(w, targetID), true
	}
	if p := w.portals[targetID]; p != nil && !p.Destroyed {
		return loadable.ForPortal(w, targetID), true
	}
	if s := w.sites[targetID]; s != nil && !s.Destroyed {
		return loadable.ForSite(w, targetID), true
	}
	return nil, false
}

func (w *World) freeCapacityPct(a *modelpkg.Agent) int {
	if a.MassCapacityMilli <= 0 {
		return 0
	}
	return w.AgentFreeMassMilli(a) * 100 / a.MassCapacityMilli
}

func (w *World) ack(agentID, cmdID string, nowTick uint64) {
	w.sendAck(agentID, protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          cmdID,
		Accepted:        true,
		ServerTick:      nowTick,
	})
}

func (w *World) nack(agentID, cmdID, code, msg string, nowTick uint64) {
	w.sendAck(agentID, protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          cmdID,
		Accepted:        false,
		Code:            code,
		Message:         msg,
		ServerTick:      nowTick,
	})
}

func (w *World) sendAck(agentID string, ack protocol.AckMsg) {
	cl := w.clients[agentID]
	if cl == nil {
		return
	}
	b, err := json.Marshal(ack)
	if err != nil {
		return
	}
	sendLatest(cl.Out, b)
}
