package world

import (
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// Seeding mutators, used by the server at boot and by tests. Must run before
// the loop starts or from the loop goroutine.

func (w *World) AddPod(p *modelpkg.TransportPod) {
	if p != nil && p.PodID != "" {
		w.pods[p.PodID] = p
	}
}

func (w *World) AddPortal(p *modelpkg.Portal) {
	if p != nil && p.PortalID != "" {
		w.portals[p.PortalID] = p
	}
}

func (w *World) AddSite(s *modelpkg.ConstructionSite) {
	if s != nil && s.SiteID != "" {
		w.sites[s.SiteID] = s
	}
}

func (w *World) AddContainer(c *modelpkg.Container) {
	if c != nil && c.ContainerID != "" {
		w.containers[c.ContainerID] = c
	}
}

// SetStockpile designates a container as the unload target for a region.
func (w *World) SetStockpile(regionID, containerID string) {
	if regionID == "" || containerID == "" {
		return
	}
	w.stockpiles[regionID] = containerID
}

// SpawnThing registers a thing stack, assigning an id when none is set, and
// links it to its container when it starts inside one.
func (w *World) SpawnThing(th *modelpkg.Thing) string {
	if th == nil {
		return ""
	}
	if th.ThingID == "" {
		th.ThingID = w.newThingID()
	}
	w.things[th.ThingID] = th
	if th.Location == modelpkg.LocContainer {
		if c := w.containers[th.ContainerID]; c != nil {
			c.ThingIDs = append(c.ThingIDs, th.ThingID)
		}
		if p := w.pods[th.ContainerID]; p != nil {
			p.MassUsedMilli += th.MassMilli()
		}
	}
	return th.ThingID
}

// AgentByID is a read accessor for tests and operator tooling.
func (w *World) AgentByID(id string) *modelpkg.Agent { return w.agents[id] }
