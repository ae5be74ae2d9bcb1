package world

import (
	"fmt"
	"sort"

	"bulkhaul.ai/internal/persistence/snapshot"
	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/world/feature/ledger"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// ImportSnapshot replaces the in-memory world state with the snapshot.
// Must run before the loop starts (resume) or from the loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version %d", s.Header.Version)
	}
	if s.Header.WorldID != "" && w.cfg.ID != "" && s.Header.WorldID != w.cfg.ID {
		return fmt.Errorf("snapshot world id %q does not match %q", s.Header.WorldID, w.cfg.ID)
	}

	w.agents = map[string]*modelpkg.Agent{}
	w.things = map[string]*modelpkg.Thing{}
	w.containers = map[string]*modelpkg.Container{}
	w.pods = map[string]*modelpkg.TransportPod{}
	w.portals = map[string]*modelpkg.Portal{}
	w.sites = map[string]*modelpkg.ConstructionSite{}
	w.stockpiles = map[string]string{}

	for _, tv := range s.Things {
		w.things[tv.ThingID] = &modelpkg.Thing{
			ThingID:       tv.ThingID,
			Kind:          tv.Kind,
			Count:         tv.Count,
			UnitMassMilli: tv.UnitMassMilli,
			Location:      modelpkg.ThingLocation(tv.Location),
			Pos:           modelpkg.Vec3i{X: tv.Pos[0], Y: tv.Pos[1], Z: tv.Pos[2]},
			ContainerID:   tv.ContainerID,
			HolderID:      tv.HolderID,
			SelfMoving:    tv.SelfMoving,
			CreatedTick:   tv.CreatedTick,
		}
	}

	for _, cv := range s.Containers {
		w.containers[cv.ContainerID] = &modelpkg.Container{
			ContainerID: cv.ContainerID,
			Pos:         modelpkg.Vec3i{X: cv.Pos[0], Y: cv.Pos[1], Z: cv.Pos[2]},
			ThingIDs:    append([]string(nil), cv.ThingIDs...),
			RegionID:    cv.RegionID,
		}
	}

	for _, pv := range s.Pods {
		w.pods[pv.PodID] = &modelpkg.TransportPod{
			PodID:             pv.PodID,
			GroupID:           pv.GroupID,
			Pos:               modelpkg.Vec3i{X: pv.Pos[0], Y: pv.Pos[1], Z: pv.Pos[2]},
			Manifest:          manifestFromMap(pv.Manifest),
			MassCapacityMilli: pv.MassCapacityMilli,
			MassUsedMilli:     pv.MassUsedMilli,
			RegionID:          pv.RegionID,
			Destroyed:         pv.Destroyed,
			LoadCancelled:     pv.LoadCancelled,
			ObstructionID:     pv.ObstructionID,
		}
	}

	for _, pv := range s.Portals {
		w.portals[pv.PortalID] = &modelpkg.Portal{
			PortalID:          pv.PortalID,
			Pos:               modelpkg.Vec3i{X: pv.Pos[0], Y: pv.Pos[1], Z: pv.Pos[2]},
			Manifest:          manifestFromMap(pv.Manifest),
			MassCapacityMilli: pv.MassCapacityMilli,
			MassUsedMilli:     pv.MassUsedMilli,
			RegionID:          pv.RegionID,
			Destroyed:         pv.Destroyed,
		}
	}

	for _, sv := range s.Sites {
		site := &modelpkg.ConstructionSite{
			SiteID:    sv.SiteID,
			Pos:       modelpkg.Vec3i{X: sv.Pos[0], Y: sv.Pos[1], Z: sv.Pos[2]},
			Costs:     manifestFromMap(sv.Costs),
			RegionID:  sv.RegionID,
			Destroyed: sv.Destroyed,
		}
		if len(sv.Delivered) > 0 {
			site.Delivered = map[string]int{}
			for k, v := range sv.Delivered {
				site.Delivered[k] = v
			}
		}
		w.sites[site.SiteID] = site
	}

	for _, av := range s.Agents {
		a := &modelpkg.Agent{
			ID:                av.ID,
			Name:              av.Name,
			Pos:               modelpkg.Vec3i{X: av.Pos[0], Y: av.Pos[1], Z: av.Pos[2]},
			Incapacitated:     av.Incapacitated,
			MassCapacityMilli: av.MassCapacityMilli,
			HandsThingID:      av.HandsThingID,
			StorageThingIDs:   append([]string(nil), av.StorageThingIDs...),
		}
		a.InitDefaults()
		if mv := av.MoveTask; mv != nil {
			a.MoveTask = &tasks.MovementTask{
				TaskID:      mv.TaskID,
				Target:      tasks.Vec3i{X: mv.Target[0], Y: mv.Target[1], Z: mv.Target[2]},
				Tolerance:   mv.Tolerance,
				Silent:      mv.Silent,
				StartedTick: mv.StartedTick,
			}
		}
		if hv := av.HaulTask; hv != nil {
			a.HaulTask = importHaulTask(*hv)
		}
		for _, qv := range av.TaskQueue {
			a.TaskQueue = append(a.TaskQueue, importHaulTask(qv))
		}
		w.agents[a.ID] = a
	}

	w.ledger.Load(ledgerGroupsFromV1(s.Ledger))
	w.carry.Load(s.Carry)
	for k, v := range s.Stockpiles {
		w.stockpiles[k] = v
	}

	w.nextAgentNum.Store(s.Counters.NextAgent)
	w.nextTaskNum.Store(s.Counters.NextTask)
	w.nextThingNum.Store(s.Counters.NextThing)
	w.tick.Store(s.Header.Tick)

	if s.TickRate > 0 {
		w.cfg.TickRateHz = s.TickRate
	}
	if s.Seed != 0 {
		w.cfg.Seed = s.Seed
	}
	if s.SnapshotEveryTicks > 0 {
		w.cfg.SnapshotEveryTicks = s.SnapshotEveryTicks
	}
	if s.AIUpdateIntervalTicks > 0 {
		w.cfg.Haul.AIUpdateIntervalTicks = s.AIUpdateIntervalTicks
		w.cfg.Haul.VisualUnloadDelayTicks = s.VisualUnloadDelayTicks
		w.cfg.Haul.ContinuousModeEnabled = s.ContinuousModeEnabled
		w.cfg.Haul.MinFreeCapacityToUnloadPct = s.MinFreeCapacityToUnloadPct
		w.cfg.Haul.GroupStaleTicks = s.GroupStaleTicks
	}
	return nil
}

func importHaulTask(hv snapshot.HaulTaskV1) *tasks.HaulTask {
	t := &tasks.HaulTask{
		TaskID:              hv.TaskID,
		Kind:                tasks.Kind(hv.Kind),
		Mode:                tasks.Mode(hv.Mode),
		HandsOnly:           hv.HandsOnly,
		GroupKey:            hv.GroupKey,
		DestID:              hv.DestID,
		Step:                hv.Step,
		WaitTicks:           hv.WaitTicks,
		PickupDone:          hv.PickupDone,
		LastRevalidatedTick: hv.LastRevalidatedTick,
		HauledThings:        append([]string(nil), hv.HauledThings...),
		OriginalCarrySource: append([]string(nil), hv.OriginalCarrySource...),
		SurplusThings:       append([]string(nil), hv.SurplusThings...),
		ObstructionID:       hv.ObstructionID,
		StartedTick:         hv.StartedTick,
	}
	for _, p := range hv.PickupQueue {
		t.PickupQueue = append(t.PickupQueue, tasks.PickupTarget{ThingID: p.ThingID, Count: p.Count})
	}
	if len(hv.NeedsSnapshot) > 0 {
		t.NeedsSnapshot = map[string]int{}
		for k, v := range hv.NeedsSnapshot {
			t.NeedsSnapshot[k] = v
		}
	}
	return t
}

func ledgerGroupsFromV1(src []snapshot.LedgerGroupV1) []ledger.GroupExport {
	out := make([]ledger.GroupExport, 0, len(src))
	for _, gv := range src {
		ge := ledger.GroupExport{
			Key:         gv.Key,
			RegionID:    gv.RegionID,
			Required:    manifestFromMap(gv.Required),
			LastTouched: gv.LastUpdatedTick,
		}
		for _, c := range gv.Claims {
			ge.Claims = append(ge.Claims, ledger.ClaimExport{
				Kind: c.Kind, AgentID: c.AgentID, Count: c.Count,
			})
		}
		out = append(out, ge)
	}
	return out
}

// manifestFromMap rebuilds an ordered manifest from its snapshot map form.
// Kinds come back sorted, which is also the digest's canonical order.
func manifestFromMap(m map[string]int) []modelpkg.ItemCount {
	if len(m) == 0 {
		return nil
	}
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	out := make([]modelpkg.ItemCount, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, modelpkg.ItemCount{Kind: k, Count: m[k]})
	}
	return out
}
