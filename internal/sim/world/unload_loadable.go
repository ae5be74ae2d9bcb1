package world

import (
	"sort"

	"bulkhaul.ai/internal/sim/world/feature/loadable"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// carrierUnloadLoadable presents "empty this carrier into the region
// stockpile" as a load group. The requirement list is the carrier's current
// cargo; the destination is the stockpile, which is not mass-bounded.
type carrierUnloadLoadable struct {
	w     *World
	podID string
}

const unloadKeyPrefix = "UNLOAD_"

func (w *World) unloadLoadable(podID string) loadable.Loadable {
	return &carrierUnloadLoadable{w: w, podID: podID}
}

func (l *carrierUnloadLoadable) Identity() string { return unloadKeyPrefix + l.podID }

func (l *carrierUnloadLoadable) live() *modelpkg.TransportPod {
	p := l.w.pods[l.podID]
	if p == nil || p.Destroyed {
		return nil
	}
	return p
}

func (l *carrierUnloadLoadable) cargo() []*modelpkg.Thing {
	var out []*modelpkg.Thing
	for _, th := range l.w.things {
		if th.Location == modelpkg.LocContainer && th.ContainerID == l.podID && th.Count > 0 {
			out = append(out, th)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThingID < out[j].ThingID })
	return out
}

func (l *carrierUnloadLoadable) RequiredItems() ([]modelpkg.ItemCount, error) {
	if l.live() == nil {
		return nil, loadable.ErrStaleTarget
	}
	need := map[string]int{}
	order := make([]string, 0, 4)
	for _, th := range l.cargo() {
		if _, seen := need[th.Kind]; !seen {
			order = append(order, th.Kind)
		}
		need[th.Kind] += th.Count
	}
	out := make([]modelpkg.ItemCount, 0, len(order))
	for _, kind := range order {
		out = append(out, modelpkg.ItemCount{Kind: kind, Count: need[kind]})
	}
	return out, nil
}

func (l *carrierUnloadLoadable) DetailedRequirements() ([]loadable.ThingRequirement, bool) {
	if l.live() == nil {
		return nil, false
	}
	cargo := l.cargo()
	out := make([]loadable.ThingRequirement, 0, len(cargo))
	for _, th := range cargo {
		out = append(out, loadable.ThingRequirement{ThingID: th.ThingID, Kind: th.Kind, Count: th.Count})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func (l *carrierUnloadLoadable) CapacityRemaining() (int, error) {
	p := l.live()
	if p == nil {
		return 0, loadable.ErrStaleTarget
	}
	if _, ok := l.w.stockpileFor(p.RegionID); !ok {
		return 0, loadable.ErrStaleTarget
	}
	// Stockpiles absorb anything; the cargo list is the only cap.
	return 1 << 30, nil
}

func (l *carrierUnloadLoadable) Region() string {
	if p := l.live(); p != nil {
		return p.RegionID
	}
	return ""
}

func (l *carrierUnloadLoadable) Pos() modelpkg.Vec3i {
	if p := l.live(); p != nil {
		if c, ok := l.w.stockpileFor(p.RegionID); ok {
			return c.Pos
		}
	}
	return modelpkg.Vec3i{}
}
