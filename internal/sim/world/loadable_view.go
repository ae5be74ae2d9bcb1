package world

import (
	"sort"
	"strings"

	"bulkhaul.ai/internal/sim/world/feature/loadable"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// World implements loadable.WorldView.

func (w *World) PodsInGroup(groupID string) []*modelpkg.TransportPod {
	var out []*modelpkg.TransportPod
	for _, p := range w.pods {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PodID < out[j].PodID })
	return out
}

func (w *World) PortalByID(id string) *modelpkg.Portal         { return w.portals[id] }
func (w *World) SiteByID(id string) *modelpkg.ConstructionSite { return w.sites[id] }
func (w *World) ThingByID(id string) *modelpkg.Thing           { return w.things[id] }

// ThingsOfKindOnField lists field-reachable stacks of a kind: on the ground
// or inside a plain container. Cargo already inside a pod is not on the field.
func (w *World) ThingsOfKindOnField(kind string) []*modelpkg.Thing {
	var out []*modelpkg.Thing
	for _, th := range w.things {
		if th.Kind != kind || th.Count <= 0 {
			continue
		}
		switch th.Location {
		case modelpkg.LocGround:
			out = append(out, th)
		case modelpkg.LocContainer:
			if w.containers[th.ContainerID] != nil {
				out = append(out, th)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThingID < out[j].ThingID })
	return out
}

// loadableForKey reverses a ledger group key back into a loadable, for
// continuous-mode chaining and snapshot resume.
func (w *World) loadableForKey(groupKey string) (loadable.Loadable, bool) {
	switch {
	case strings.HasPrefix(groupKey, "PODGRP_"):
		groupID := strings.TrimPrefix(groupKey, "PODGRP_")
		if len(w.PodsInGroup(groupID)) == 0 {
			return nil, false
		}
		return loadable.ForTransportGroup(w, groupID), true
	case strings.HasPrefix(groupKey, "PORTAL_"):
		id := strings.TrimPrefix(groupKey, "PORTAL_")
		if w.portals[id] == nil {
			return nil, false
		}
		return loadable.ForPortal(w, id), true
	case strings.HasPrefix(groupKey, "SITE_"):
		id := strings.TrimPrefix(groupKey, "SITE_")
		if w.sites[id] == nil {
			return nil, false
		}
		return loadable.ForSite(w, id), true
	case strings.HasPrefix(groupKey, "UNLOAD_"):
		id := strings.TrimPrefix(groupKey, "UNLOAD_")
		if w.pods[id] == nil {
			return nil, false
		}
		return w.unloadLoadable(id), true
	}
	return nil, false
}

func (w *World) stockpileFor(regionID string) (*modelpkg.Container, bool) {
	id := w.stockpiles[regionID]
	if id == "" {
		return nil, false
	}
	c := w.containers[id]
	return c, c != nil
}
