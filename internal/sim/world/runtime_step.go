package world

import (
	"encoding/json"
	"sort"

	"bulkhaul.ai/internal/protocol"
)

// step is the single authoritative tick. Ordering is fixed: departures,
// arrivals, operator commands, movement, haul execution, ledger upkeep,
// observation flush, logging, snapshot emission.
func (w *World) step(joins []JoinRequest, leaves []string, cmds []CmdEnvelope) (uint64, string) {
	nowTick := w.tick.Load()

	var recordedJoins []RecordedJoin
	var recordedCmds []RecordedCmd

	for _, id := range leaves {
		w.removeAgent(id, nowTick)
	}
	for _, jr := range joins {
		id := w.joinAgent(jr, nowTick)
		recordedJoins = append(recordedJoins, RecordedJoin{AgentID: id, Name: jr.Name})
	}
	for _, env := range cmds {
		w.applyCmd(env, nowTick)
		recordedCmds = append(recordedCmds, RecordedCmd{AgentID: env.AgentID, Cmd: env.Cmd})
	}

	w.stepMovement(nowTick)
	w.stepHaul(nowTick)

	w.ledger.PurgeStale(nowTick, uint64(w.cfg.Haul.GroupStaleTicks))

	w.flushObservations(nowTick)

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:   nowTick,
			Joins:  recordedJoins,
			Leaves: leaves,
			Cmds:   recordedCmds,
			Digest: digest,
		})
	}

	if w.snapshotSink != nil && w.cfg.SnapshotEveryTicks > 0 &&
		nowTick != 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		snap := w.ExportSnapshot(nowTick)
		select {
		case w.snapshotSink <- snap:
		default:
			if w.logger != nil {
				w.logger.Printf("snapshot sink full, dropping tick=%d", nowTick)
			}
		}
	}

	w.tick.Add(1)
	return nowTick, digest
}

// flushObservations drains each agent's event buffer into an OBS message for
// its connected client. Disconnected agents keep accumulating until TakeEvents
// caps out.
func (w *World) flushObservations(nowTick uint64) {
	for _, id := range w.sortedAgentIDs() {
		a := w.agents[id]
		events := a.TakeEvents()
		cl := w.clients[id]
		if cl == nil {
			continue
		}
		if len(events) == 0 {
			continue
		}
		msg := protocol.ObsMsg{
			Type:            protocol.TypeObs,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			Events:          events,
		}
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(cl.Out, b)
	}
}

func (w *World) sortedAgentIDs() []string {
	ids := make([]string, 0, len(w.agents))
	for id := range w.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
