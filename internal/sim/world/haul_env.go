package world

import (
	"strings"

	"bulkhaul.ai/internal/sim/tasks"
	"bulkhaul.ai/internal/sim/tuning"
	"bulkhaul.ai/internal/sim/world/feature/carry"
	"bulkhaul.ai/internal/sim/world/feature/ledger"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// World implements haul.PlanEnv and runtime.Env; this file is the glue
// between the generic haul machinery and the concrete entity maps.

func (w *World) Ledger() *ledger.Ledger { return w.ledger }
func (w *World) Carry() *carry.Registry { return w.carry }
func (w *World) HaulCfg() tuning.Haul   { return w.cfg.Haul }

// PrimaryDestination picks the concrete instance an unload session targets:
// the first live pod of a group, the portal or site itself, or the region
// stockpile for a carrier-unload group.
func (w *World) PrimaryDestination(groupKey string) (string, bool) {
	ld, ok := w.loadableForKey(groupKey)
	if !ok {
		return "", false
	}
	if l, isUnload := ld.(*carrierUnloadLoadable); isUnload {
		p := w.pods[l.podID]
		if p == nil {
			return "", false
		}
		c, ok := w.stockpileFor(p.RegionID)
		if !ok {
			return "", false
		}
		return c.ContainerID, true
	}
	switch {
	case strings.HasPrefix(groupKey, "PODGRP_"):
		for _, p := range w.PodsInGroup(strings.TrimPrefix(groupKey, "PODGRP_")) {
			if !p.Destroyed && !p.LoadCancelled {
				return p.PodID, true
			}
		}
		return "", false
	case strings.HasPrefix(groupKey, "PORTAL_"):
		return strings.TrimPrefix(groupKey, "PORTAL_"), true
	case strings.HasPrefix(groupKey, "SITE_"):
		return strings.TrimPrefix(groupKey, "SITE_"), true
	}
	return "", false
}

func (w *World) DestinationObstruction(destID string) string {
	p := w.pods[destID]
	if p == nil || p.ObstructionID == "" {
		return ""
	}
	if w.things[p.ObstructionID] == nil {
		return ""
	}
	return p.ObstructionID
}

// AgentFreeMassMilli is the storage budget: capacity minus stored mass. The
// hands slot is budgeted separately by the planner.
func (w *World) AgentFreeMassMilli(a *modelpkg.Agent) int {
	used := 0
	for _, id := range a.StorageThingIDs {
		if th := w.things[id]; th != nil {
			used += th.MassMilli()
		}
	}
	free := a.MassCapacityMilli - used
	if free < 0 {
		return 0
	}
	return free
}

func (w *World) ThingFieldPos(thingID string) (modelpkg.Vec3i, bool) {
	th := w.things[thingID]
	if th == nil {
		return modelpkg.Vec3i{}, false
	}
	switch th.Location {
	case modelpkg.LocGround:
		return th.Pos, true
	case modelpkg.LocContainer:
		if c := w.containers[th.ContainerID]; c != nil {
			return c.Pos, true
		}
		if p := w.pods[th.ContainerID]; p != nil {
			return p.Pos, true
		}
	}
	return modelpkg.Vec3i{}, false
}

func (w *World) SplitThing(thingID string, count int) (string, bool) {
	th := w.things[thingID]
	if th == nil || count <= 0 || count >= th.Count {
		return "", false
	}
	nt := &modelpkg.Thing{
		ThingID:       w.newThingID(),
		Kind:          th.Kind,
		Count:         count,
		UnitMassMilli: th.UnitMassMilli,
		Location:      th.Location,
		Pos:           th.Pos,
		ContainerID:   th.ContainerID,
		HolderID:      th.HolderID,
		SelfMoving:    th.SelfMoving,
		CreatedTick:   th.CreatedTick,
	}
	th.Count -= count
	w.things[nt.ThingID] = nt
	if nt.Location == modelpkg.LocContainer {
		if c := w.containers[nt.ContainerID]; c != nil {
			c.ThingIDs = append(c.ThingIDs, nt.ThingID)
		}
	}
	return nt.ThingID, true
}

func (w *World) FindReplacementTarget(kind string, exclude map[string]bool) *modelpkg.Thing {
	if kind == "" {
		return nil
	}
	for _, th := range w.ThingsOfKindOnField(kind) {
		if !exclude[th.ThingID] {
			return th
		}
	}
	return nil
}

// detachThing removes a thing from wherever it physically is, leaving its
// Location stale for the caller to overwrite.
func (w *World) detachThing(th *modelpkg.Thing) {
	switch th.Location {
	case modelpkg.LocContainer:
		if c := w.containers[th.ContainerID]; c != nil {
			c.RemoveThing(th.ThingID)
		}
		if p := w.pods[th.ContainerID]; p != nil {
			p.MassUsedMilli -= th.MassMilli()
			if p.MassUsedMilli < 0 {
				p.MassUsedMilli = 0
			}
		}
		th.ContainerID = ""
	case modelpkg.LocHands:
		if a := w.agents[th.HolderID]; a != nil && a.HandsThingID == th.ThingID {
			a.HandsThingID = ""
		}
		th.HolderID = ""
	case modelpkg.LocStorage:
		if a := w.agents[th.HolderID]; a != nil {
			a.RemoveStored(th.ThingID)
		}
		th.HolderID = ""
	}
}

func (w *World) StowInStorage(a *modelpkg.Agent, thingID string) bool {
	th := w.things[thingID]
	if th == nil {
		return false
	}
	if th.MassMilli() > w.AgentFreeMassMilli(a) {
		return false
	}
	w.detachThing(th)
	th.Location = modelpkg.LocStorage
	th.HolderID = a.ID
	a.AddStored(thingID)
	return true
}

func (w *World) PutInHands(a *modelpkg.Agent, thingID string) bool {
	if a.HandsThingID != "" {
		return false
	}
	th := w.things[thingID]
	if th == nil {
		return false
	}
	w.detachThing(th)
	th.Location = modelpkg.LocHands
	th.HolderID = a.ID
	a.HandsThingID = thingID
	return true
}

func (w *World) DropAt(a *modelpkg.Agent, thingID string, pos modelpkg.Vec3i) {
	th := w.things[thingID]
	if th == nil {
		return
	}
	w.detachThing(th)
	th.Location = modelpkg.LocGround
	th.Pos = pos
}

func (w *World) StartMove(a *modelpkg.Agent, taskID string, target modelpkg.Vec3i, tolerance float64) {
	a.MoveTask = &tasks.MovementTask{
		TaskID:      taskID,
		Target:      tasks.Vec3i{X: target.X, Y: target.Y, Z: target.Z},
		Tolerance:   tolerance,
		Silent:      true,
		StartedTick: w.tick.Load(),
	}
}

func (w *World) DestinationAlive(destID string) bool {
	if p := w.pods[destID]; p != nil {
		return !p.Destroyed
	}
	if p := w.portals[destID]; p != nil {
		return !p.Destroyed
	}
	if s := w.sites[destID]; s != nil {
		return !s.Destroyed
	}
	return w.containers[destID] != nil
}

func (w *World) DestinationCancelled(destID string) bool {
	if p := w.pods[destID]; p != nil {
		return p.LoadCancelled
	}
	return false
}

func (w *World) DestinationPos(destID string) (modelpkg.Vec3i, bool) {
	if p := w.pods[destID]; p != nil {
		return p.Pos, true
	}
	if p := w.portals[destID]; p != nil {
		return p.Pos, true
	}
	if s := w.sites[destID]; s != nil {
		return s.Pos, true
	}
	if c := w.containers[destID]; c != nil {
		return c.Pos, true
	}
	return modelpkg.Vec3i{}, false
}

// DestinationNeeds is the live remaining need. Stockpile containers absorb
// any kind, so they report an effectively unbounded need for every kind that
// exists in the world.
func (w *World) DestinationNeeds(destID string) map[string]int {
	if p := w.pods[destID]; p != nil {
		return modelpkg.SumByKind(p.Manifest)
	}
	if p := w.portals[destID]; p != nil {
		return modelpkg.SumByKind(p.Manifest)
	}
	if s := w.sites[destID]; s != nil {
		return modelpkg.SumByKind(s.MissingMaterials())
	}
	if w.containers[destID] != nil {
		out := map[string]int{}
		for _, th := range w.things {
			if th.Count > 0 {
				out[th.Kind] = 1 << 30
			}
		}
		return out
	}
	return nil
}

func (w *World) DepositThing(nowTick uint64, a *modelpkg.Agent, destID, thingID string, maxCount int) int {
	th := w.things[thingID]
	if th == nil || th.Count <= 0 || maxCount <= 0 {
		return 0
	}
	take := maxCount
	if take > th.Count {
		take = th.Count
	}
	unit := th.UnitMassMilli
	if unit < 1 {
		unit = 1
	}

	accepted := 0
	switch {
	case w.pods[destID] != nil:
		p := w.pods[destID]
		if byCap := p.CapacityRemainingMilli() / unit; take > byCap {
			take = byCap
		}
		accepted = p.AcceptManifest(th.Kind, take)
		if accepted > 0 {
			w.moveIntoContainer(th, accepted, destID)
			p.MassUsedMilli += accepted * unit
		}
	case w.portals[destID] != nil:
		p := w.portals[destID]
		if byCap := p.CapacityRemainingMilli() / unit; take > byCap {
			take = byCap
		}
		accepted = p.AcceptManifest(th.Kind, take)
		if accepted > 0 {
			w.consumeUnits(th, accepted)
			p.MassUsedMilli += accepted * unit
		}
	case w.sites[destID] != nil:
		accepted = w.sites[destID].AcceptDelivery(th.Kind, take)
		if accepted > 0 {
			w.consumeUnits(th, accepted)
		}
	case w.containers[destID] != nil:
		accepted = take
		w.moveIntoContainer(th, accepted, destID)
	}

	if accepted > 0 {
		w.audit(AuditEntry{
			Tick: nowTick, AgentID: a.ID, Action: "DEPOSIT",
			Target: destID, Kind: th.Kind, Count: accepted,
		})
	}
	return accepted
}

// moveIntoContainer transfers count units into a container or pod, splitting
// the stack when only part of it goes in.
func (w *World) moveIntoContainer(th *modelpkg.Thing, count int, containerID string) {
	moved := th
	if count < th.Count {
		id, ok := w.SplitThing(th.ThingID, count)
		if !ok {
			return
		}
		moved = w.things[id]
	}
	w.detachThing(moved)
	moved.Location = modelpkg.LocContainer
	moved.ContainerID = containerID
	moved.Pos = modelpkg.Vec3i{}
	if c := w.containers[containerID]; c != nil {
		c.ThingIDs = append(c.ThingIDs, moved.ThingID)
	}
	w.carry.RemoveEverywhere(moved.ThingID)
}

// consumeUnits burns count units off a stack (portal and site deliveries
// destroy the physical items).
func (w *World) consumeUnits(th *modelpkg.Thing, count int) {
	th.Count -= count
	if th.Count <= 0 {
		w.destroyThing(th)
	}
}

func (w *World) destroyThing(th *modelpkg.Thing) {
	w.detachThing(th)
	th.Location = modelpkg.LocDestroyed
	th.Count = 0
	w.carry.RemoveEverywhere(th.ThingID)
	delete(w.things, th.ThingID)
}

func (w *World) ObstructionPos(obstructionID string) (modelpkg.Vec3i, bool) {
	th := w.things[obstructionID]
	if th == nil || th.Location != modelpkg.LocGround {
		return modelpkg.Vec3i{}, false
	}
	return th.Pos, true
}

func (w *World) ClearObstruction(obstructionID string) bool {
	th := w.things[obstructionID]
	if th == nil {
		return false
	}
	w.destroyThing(th)
	for _, p := range w.pods {
		if p.ObstructionID == obstructionID {
			p.ObstructionID = ""
		}
	}
	return true
}

// QueueSiteClearing parks the parent task (rewound to its transit leg) and
// installs a site-clearing sub-task in the active slot.
func (w *World) QueueSiteClearing(a *modelpkg.Agent, parent *tasks.HaulTask, obstructionID string) {
	parent.ResetToStep(tasks.StepTransit)
	a.TaskQueue = append(a.TaskQueue, parent)
	a.HaulTask = &tasks.HaulTask{
		TaskID:        w.newTaskID(),
		Kind:          tasks.KindClearSite,
		Mode:          tasks.ModeOneShot,
		ObstructionID: obstructionID,
		Step:          tasks.StepGotoObstruction,
		StartedTick:   w.tick.Load(),
	}
}
