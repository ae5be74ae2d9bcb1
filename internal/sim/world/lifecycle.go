package world

import (
	"fmt"

	"bulkhaul.ai/internal/protocol"
	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/world/feature/haul/runtime"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

func (w *World) joinAgent(jr JoinRequest, nowTick uint64) string {
	id := fmt.Sprintf("A%d", w.nextAgentNum.Add(1))
	a := &modelpkg.Agent{ID: id, Name: jr.Name, Pos: modelpkg.Vec3i{}}
	a.InitDefaults()
	w.agents[id] = a
	if jr.Out != nil {
		w.clients[id] = &clientState{Out: jr.Out}
	}
	if w.logger != nil {
		w.logger.Printf("agent joined id=%s name=%q tick=%d", id, jr.Name, nowTick)
	}
	if jr.Resp != nil {
		welcome := protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			OperatorID:      id,
			WorldID:         w.cfg.ID,
			Tick:            nowTick,
			WorldParams: protocol.WorldParams{
				TickRateHz: w.cfg.TickRateHz,
				Seed:       w.cfg.Seed,
			},
		}
		select {
		case jr.Resp <- JoinResponse{Welcome: welcome}:
		default:
		}
	}
	return id
}

// removeAgent tears an agent out of the world: active and queued tasks are
// force-ended (salvaging in-hand cargo), claims released, carry registrations
// cleared and everything still physically on the agent dropped at its feet.
func (w *World) removeAgent(id string, nowTick uint64) {
	a := w.agents[id]
	delete(w.clients, id)
	if a == nil {
		return
	}

	runtime.Interrupt(w, a, nowTick)
	for _, t := range a.TaskQueue {
		runtime.End(w, a, t, tasks.OutcomeInterrupted, nowTick)
	}
	a.TaskQueue = nil
	a.HaulTask = nil
	a.MoveTask = nil

	w.ledger.ReleaseClaimsForAgent(id)

	for _, thingID := range a.CarriedThingIDs() {
		if w.things[thingID] != nil {
			w.DropAt(a, thingID, a.Pos)
		}
	}
	w.carry.Clear(id)

	delete(w.agents, id)
	if w.logger != nil {
		w.logger.Printf("agent removed id=%s tick=%d", id, nowTick)
	}
}

// UnloadRegion drops a region's destinations and their contents from the
// world and purges every matching load group from the ledger. Tasks targeting
// a removed destination terminate on their next tick via the liveness gate.
// Must be called from the world loop goroutine.
func (w *World) UnloadRegion(regionID string) {
	w.ledger.NotifyRegionUnloaded(regionID)

	for id, p := range w.pods {
		if p.RegionID == regionID {
			w.destroyThingsInside(id)
			delete(w.pods, id)
		}
	}
	for id, p := range w.portals {
		if p.RegionID == regionID {
			delete(w.portals, id)
		}
	}
	for id, s := range w.sites {
		if s.RegionID == regionID {
			delete(w.sites, id)
		}
	}
	for id, c := range w.containers {
		if c.RegionID == regionID {
			w.destroyThingsInside(id)
			delete(w.containers, id)
			delete(w.stockpiles, regionID)
		}
	}
	if w.logger != nil {
		w.logger.Printf("region unloaded id=%s", regionID)
	}
}

func (w *World) destroyThingsInside(containerID string) {
	for _, th := range w.things {
		if th.Location == modelpkg.LocContainer && th.ContainerID == containerID {
			w.destroyThing(th)
		}
	}
}
