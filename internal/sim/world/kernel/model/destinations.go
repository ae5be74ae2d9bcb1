package model

// TransportPod is one unit of a multi-pod transport. Pods sharing a GroupID
// load as a single group with a combined manifest.
type TransportPod struct {
	PodID   string
	GroupID string
	Pos     Vec3i

	// Remaining manifest: what this pod still wants loaded.
	Manifest []ItemCount

	MassCapacityMilli int
	MassUsedMilli     int

	RegionID string

	Destroyed     bool
	LoadCancelled bool

	// A physical obstruction blocking the hatch, if any (thing id).
	ObstructionID string
}

func (p *TransportPod) ID() string { return p.PodID }

func (p *TransportPod) CapacityRemainingMilli() int {
	r := p.MassCapacityMilli - p.MassUsedMilli
	if r < 0 {
		return 0
	}
	return r
}

// AcceptManifest reduces the pod's remaining manifest by a delivery.
// Returns the amount actually absorbed.
func (p *TransportPod) AcceptManifest(kind string, count int) int {
	if count <= 0 {
		return 0
	}
	for i := range p.Manifest {
		if p.Manifest[i].Kind != kind {
			continue
		}
		take := count
		if take > p.Manifest[i].Count {
			take = p.Manifest[i].Count
		}
		p.Manifest[i].Count -= take
		return take
	}
	return 0
}

// Portal is a dimensional gate that consumes the items fed into it.
type Portal struct {
	PortalID string
	Pos      Vec3i

	Manifest []ItemCount

	MassCapacityMilli int
	MassUsedMilli     int

	RegionID  string
	Destroyed bool
}

func (p *Portal) ID() string { return p.PortalID }

func (p *Portal) CapacityRemainingMilli() int {
	r := p.MassCapacityMilli - p.MassUsedMilli
	if r < 0 {
		return 0
	}
	return r
}

func (p *Portal) AcceptManifest(kind string, count int) int {
	if count <= 0 {
		return 0
	}
	for i := range p.Manifest {
		if p.Manifest[i].Kind != kind {
			continue
		}
		take := count
		if take > p.Manifest[i].Count {
			take = p.Manifest[i].Count
		}
		p.Manifest[i].Count -= take
		return take
	}
	return 0
}

// ConstructionSite needs materials delivered before building can start.
type ConstructionSite struct {
	SiteID string
	Pos    Vec3i

	// Total material cost and what has been delivered so far.
	Costs     []ItemCount
	Delivered map[string]int

	RegionID  string
	Destroyed bool
}

func (s *ConstructionSite) ID() string { return s.SiteID }

// MissingMaterials is the live costs-minus-delivered view.
func (s *ConstructionSite) MissingMaterials() []ItemCount {
	out := make([]ItemCount, 0, len(s.Costs))
	for _, c := range s.Costs {
		missing := c.Count
		if s.Delivered != nil {
			missing -= s.Delivered[c.Kind]
		}
		if missing > 0 {
			out = append(out, ItemCount{Kind: c.Kind, Count: missing})
		}
	}
	return out
}

func (s *ConstructionSite) AcceptDelivery(kind string, count int) int {
	if count <= 0 {
		return 0
	}
	missing := 0
	for _, c := range s.MissingMaterials() {
		if c.Kind == kind {
			missing = c.Count
			break
		}
	}
	take := count
	if take > missing {
		take = missing
	}
	if take <= 0 {
		return 0
	}
	if s.Delivered == nil {
		s.Delivered = map[string]int{}
	}
	s.Delivered[kind] += take
	return take
}
