package world

import (
	"sort"

	"bulkhaul.ai/internal/persistence/snapshot"
	"bulkhaul.ai/internal/sim/tasks"
)

// ExportSnapshot captures the full authoritative state. Deterministic: every
// collection is emitted in sorted id order.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: w.cfg.ID, Tick: nowTick},

		Seed:               w.cfg.Seed,
		TickRate:           w.cfg.TickRateHz,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,

		AIUpdateIntervalTicks:      w.cfg.Haul.AIUpdateIntervalTicks,
		VisualUnloadDelayTicks:     w.cfg.Haul.VisualUnloadDelayTicks,
		ContinuousModeEnabled:      w.cfg.Haul.ContinuousModeEnabled,
		MinFreeCapacityToUnloadPct: w.cfg.Haul.MinFreeCapacityToUnloadPct,
		GroupStaleTicks:            w.cfg.Haul.GroupStaleTicks,

		Carry: w.carry.Export(),

		Counters: snapshot.CountersV1{
			NextAgent: w.nextAgentNum.Load(),
			NextTask:  w.nextTaskNum.Load(),
			NextThing: w.nextThingNum.Load(),
		},
	}

	if len(w.stockpiles) > 0 {
		s.Stockpiles = map[string]string{}
		for k, v := range w.stockpiles {
			s.Stockpiles[k] = v
		}
	}

	for _, id := range w.sortedAgentIDs() {
		a := w.agents[id]
		av := snapshot.AgentV1{
			ID:                a.ID,
			Name:              a.Name,
			Pos:               [3]int{a.Pos.X, a.Pos.Y, a.Pos.Z},
			Incapacitated:     a.Incapacitated,
			MassCapacityMilli: a.MassCapacityMilli,
			HandsThingID:      a.HandsThingID,
			StorageThingIDs:   append([]string(nil), a.StorageThingIDs...),
		}
		if mt := a.MoveTask; mt != nil {
			av.MoveTask = &snapshot.MovementTaskV1{
				TaskID:      mt.TaskID,
				Target:      [3]int{mt.Target.X, mt.Target.Y, mt.Target.Z},
				Tolerance:   mt.Tolerance,
				Silent:      mt.Silent,
				StartedTick: mt.StartedTick,
			}
		}
		if t := a.HaulTask; t != nil && !t.Ended {
			hv := exportHaulTask(t)
			av.HaulTask = &hv
		}
		for _, t := range a.TaskQueue {
			av.TaskQueue = append(av.TaskQueue, exportHaulTask(t))
		}
		s.Agents = append(s.Agents, av)
	}

	thingIDs := make([]string, 0, len(w.things))
	for id := range w.things {
		thingIDs = append(thingIDs, id)
	}
	sort.Strings(thingIDs)
	for _, id := range thingIDs {
		th := w.things[id]
		s.Things = append(s.Things, snapshot.ThingV1{
			ThingID:       th.ThingID,
			Kind:          th.Kind,
			Count:         th.Count,
			UnitMassMilli: th.UnitMassMilli,
			Location:      string(th.Location),
			Pos:           [3]int{th.Pos.X, th.Pos.Y, th.Pos.Z},
			ContainerID:   th.ContainerID,
			HolderID:      th.HolderID,
			SelfMoving:    th.SelfMoving,
			CreatedTick:   th.CreatedTick,
		})
	}

	contIDs := make([]string, 0, len(w.containers))
	for id := range w.containers {
		contIDs = append(contIDs, id)
	}
	sort.Strings(contIDs)
	for _, id := range contIDs {
		c := w.containers[id]
		s.Containers = append(s.Containers, snapshot.ContainerV1{
			ContainerID: c.ContainerID,
			Pos:         [3]int{c.Pos.X, c.Pos.Y, c.Pos.Z},
			ThingIDs:    append([]string(nil), c.ThingIDs...),
			RegionID:    c.RegionID,
		})
	}

	podIDs := make([]string, 0, len(w.pods))
	for id := range w.pods {
		podIDs = append(podIDs, id)
	}
	sort.Strings(podIDs)
	for _, id := range podIDs {
		p := w.pods[id]
		pv := snapshot.PodV1{
			PodID:             p.PodID,
			GroupID:           p.GroupID,
			Pos:               [3]int{p.Pos.X, p.Pos.Y, p.Pos.Z},
			MassCapacityMilli: p.MassCapacityMilli,
			MassUsedMilli:     p.MassUsedMilli,
			RegionID:          p.RegionID,
			Destroyed:         p.Destroyed,
			LoadCancelled:     p.LoadCancelled,
			ObstructionID:     p.ObstructionID,
		}
		if len(p.Manifest) > 0 {
			pv.Manifest = map[string]int{}
			for _, it := range p.Manifest {
				pv.Manifest[it.Kind] += it.Count
			}
		}
		s.Pods = append(s.Pods, pv)
	}

	portalIDs := make([]string, 0, len(w.portals))
	for id := range w.portals {
		portalIDs = append(portalIDs, id)
	}
	sort.Strings(portalIDs)
	for _, id := range portalIDs {
		p := w.portals[id]
		pv := snapshot.PortalV1{
			PortalID:          p.PortalID,
			Pos:               [3]int{p.Pos.X, p.Pos.Y, p.Pos.Z},
			MassCapacityMilli: p.MassCapacityMilli,
			MassUsedMilli:     p.MassUsedMilli,
			RegionID:          p.RegionID,
			Destroyed:         p.Destroyed,
		}
		if len(p.Manifest) > 0 {
			pv.Manifest = map[string]int{}
			for _, it := range p.Manifest {
				pv.Manifest[it.Kind] += it.Count
			}
		}
		s.Portals = append(s.Portals, pv)
	}

	siteIDs := make([]string, 0, len(w.sites))
	for id := range w.sites {
		siteIDs = append(siteIDs, id)
	}
	sort.Strings(siteIDs)
	for _, id := range siteIDs {
		site := w.sites[id]
		sv := snapshot.SiteV1{
			SiteID:    site.SiteID,
			Pos:       [3]int{site.Pos.X, site.Pos.Y, site.Pos.Z},
			RegionID:  site.RegionID,
			Destroyed: site.Destroyed,
		}
		if len(site.Costs) > 0 {
			sv.Costs = map[string]int{}
			for _, it := range site.Costs {
				sv.Costs[it.Kind] += it.Count
			}
		}
		if len(site.Delivered) > 0 {
			sv.Delivered = map[string]int{}
			for k, v := range site.Delivered {
				sv.Delivered[k] = v
			}
		}
		s.Sites = append(s.Sites, sv)
	}

	for _, g := range w.ledger.Export() {
		gv := snapshot.LedgerGroupV1{
			Key:             g.Key,
			RegionID:        g.RegionID,
			LastUpdatedTick: g.LastTouched,
		}
		if len(g.Required) > 0 {
			gv.Required = map[string]int{}
			for _, it := range g.Required {
				gv.Required[it.Kind] = it.Count
			}
		}
		for _, c := range g.Claims {
			gv.Claims = append(gv.Claims, snapshot.LedgerClaimV1{
				AgentID: c.AgentID, Kind: c.Kind, Count: c.Count,
			})
		}
		s.Ledger = append(s.Ledger, gv)
	}

	return s
}

func exportHaulTask(t *tasks.HaulTask) snapshot.HaulTaskV1 {
	hv := snapshot.HaulTaskV1{
		TaskID:              t.TaskID,
		Kind:                string(t.Kind),
		Mode:                string(t.Mode),
		HandsOnly:           t.HandsOnly,
		GroupKey:            t.GroupKey,
		DestID:              t.DestID,
		Step:                t.Step,
		WaitTicks:           t.WaitTicks,
		PickupDone:          t.PickupDone,
		LastRevalidatedTick: t.LastRevalidatedTick,
		HauledThings:        append([]string(nil), t.HauledThings...),
		OriginalCarrySource: append([]string(nil), t.OriginalCarrySource...),
		SurplusThings:       append([]string(nil), t.SurplusThings...),
		ObstructionID:       t.ObstructionID,
		StartedTick:         t.StartedTick,
	}
	for _, p := range t.PickupQueue {
		hv.PickupQueue = append(hv.PickupQueue, snapshot.PickupTargetV1{ThingID: p.ThingID, Count: p.Count})
	}
	if len(t.NeedsSnapshot) > 0 {
		hv.NeedsSnapshot = map[string]int{}
		for k, v := range t.NeedsSnapshot {
			hv.NeedsSnapshot[k] = v
		}
	}
	return hv
}
