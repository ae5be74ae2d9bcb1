package loadable

import (
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// TransportGroupLoadable aggregates every live pod sharing a group id.
type TransportGroupLoadable struct {
	view    WorldView
	groupID string
}

func ForTransportGroup(view WorldView, groupID string) *TransportGroupLoadable {
	return &TransportGroupLoadable{view: view, groupID: groupID}
}

func (l *TransportGroupLoadable) Identity() string { return PodGroupKey(l.groupID) }

func (l *TransportGroupLoadable) livePods() []*modelpkg.TransportPod {
	pods := l.view.PodsInGroup(l.groupID)
	out := pods[:0]
	for _, p := range pods {
		if p != nil && !p.Destroyed && !p.LoadCancelled {
			out = append(out, p)
		}
	}
	return out
}

func (l *TransportGroupLoadable) RequiredItems() ([]modelpkg.ItemCount, error) {
	pods := l.livePods()
	if len(pods) == 0 {
		return nil, ErrStaleTarget
	}
	need := map[string]int{}
	order := make([]string, 0, 4)
	for _, p := range pods {
		for _, it := range p.Manifest {
			if it.Kind == "" || it.Count <= 0 {
				continue
			}
			if _, seen := need[it.Kind]; !seen {
				order = append(order, it.Kind)
			}
			need[it.Kind] += it.Count
		}
	}
	out := make([]modelpkg.ItemCount, 0, len(order))
	for _, kind := range order {
		out = append(out, modelpkg.ItemCount{Kind: kind, Count: need[kind]})
	}
	return out, nil
}

// DetailedRequirements resolves manifest kinds to concrete field candidates.
func (l *TransportGroupLoadable) DetailedRequirements() ([]ThingRequirement, bool) {
	req, err := l.RequiredItems()
	if err != nil {
		return nil, false
	}
	return detailFromField(l.view, req)
}

func (l *TransportGroupLoadable) CapacityRemaining() (int, error) {
	pods := l.livePods()
	if len(pods) == 0 {
		return 0, ErrStaleTarget
	}
	total := 0
	for _, p := range pods {
		total += p.CapacityRemainingMilli()
	}
	return total, nil
}

func (l *TransportGroupLoadable) Region() string {
	for _, p := range l.livePods() {
		return p.RegionID
	}
	return ""
}

func (l *TransportGroupLoadable) Pos() modelpkg.Vec3i {
	for _, p := range l.livePods() {
		return p.Pos
	}
	return modelpkg.Vec3i{}
}

// PortalLoadable adapts a single dimensional portal.
type PortalLoadable struct {
	view     WorldView
	portalID string
}

func ForPortal(view WorldView, portalID string) *PortalLoadable {
	return &PortalLoadable{view: view, portalID: portalID}
}

func (l *PortalLoadable) Identity() string { return PortalKey(l.portalID) }

func (l *PortalLoadable) live() *modelpkg.Portal {
	p := l.view.PortalByID(l.portalID)
	if p == nil || p.Destroyed {
		return nil
	}
	return p
}

func (l *PortalLoadable) RequiredItems() ([]modelpkg.ItemCount, error) {
	p := l.live()
	if p == nil {
		return nil, ErrStaleTarget
	}
	out := make([]modelpkg.ItemCount, 0, len(p.Manifest))
	for _, it := range p.Manifest {
		if it.Kind != "" && it.Count > 0 {
			out = append(out, it)
		}
	}
	return out, nil
}

func (l *PortalLoadable) DetailedRequirements() ([]ThingRequirement, bool) {
	req, err := l.RequiredItems()
	if err != nil {
		return nil, false
	}
	return detailFromField(l.view, req)
}

func (l *PortalLoadable) CapacityRemaining() (int, error) {
	p := l.live()
	if p == nil {
		return 0, ErrStaleTarget
	}
	return p.CapacityRemainingMilli(), nil
}

func (l *PortalLoadable) Region() string {
	if p := l.live(); p != nil {
		return p.RegionID
	}
	return ""
}

func (l *PortalLoadable) Pos() modelpkg.Vec3i {
	if p := l.live(); p != nil {
		return p.Pos
	}
	return modelpkg.Vec3i{}
}

// ConstructionLoadable adapts a construction site's missing materials.
type ConstructionLoadable struct {
	view   WorldView
	siteID string
}

func ForSite(view WorldView, siteID string) *ConstructionLoadable {
	return &ConstructionLoadable{view: view, siteID: siteID}
}

func (l *ConstructionLoadable) Identity() string { return SiteKey(l.siteID) }

func (l *ConstructionLoadable) live() *modelpkg.ConstructionSite {
	s := l.view.SiteByID(l.siteID)
	if s == nil || s.Destroyed {
		return nil
	}
	return s
}

func (l *ConstructionLoadable) RequiredItems() ([]modelpkg.ItemCount, error) {
	s := l.live()
	if s == nil {
		return nil, ErrStaleTarget
	}
	return s.MissingMaterials(), nil
}

func (l *ConstructionLoadable) DetailedRequirements() ([]ThingRequirement, bool) {
	// Sites accept any matching material; no per-instance view exists.
	return nil, false
}

func (l *ConstructionLoadable) CapacityRemaining() (int, error) {
	s := l.live()
	if s == nil {
		return 0, ErrStaleTarget
	}
	// Sites are not mass-bounded; missing materials are the only cap.
	total := 0
	for _, it := range s.MissingMaterials() {
		total += it.Count * 1000
	}
	return total, nil
}

func (l *ConstructionLoadable) Region() string {
	if s := l.live(); s != nil {
		return s.RegionID
	}
	return ""
}

func (l *ConstructionLoadable) Pos() modelpkg.Vec3i {
	if s := l.live(); s != nil {
		return s.Pos
	}
	return modelpkg.Vec3i{}
}

func detailFromField(view WorldView, req []modelpkg.ItemCount) ([]ThingRequirement, bool) {
	out := make([]ThingRequirement, 0, len(req))
	for _, rc := range req {
		remaining := rc.Count
		for _, th := range view.ThingsOfKindOnField(rc.Kind) {
			if remaining <= 0 {
				break
			}
			if th == nil || th.Count <= 0 || th.SelfMoving {
				continue
			}
			want := th.Count
			if want > remaining {
				want = remaining
			}
			out = append(out, ThingRequirement{ThingID: th.ThingID, Kind: rc.Kind, Count: want})
			remaining -= want
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
