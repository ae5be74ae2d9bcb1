package model

// ThingLocation says where a thing stack physically is.
type ThingLocation string

const (
	LocGround    ThingLocation = "GROUND"
	LocContainer ThingLocation = "CONTAINER"
	LocHands     ThingLocation = "HANDS"
	LocStorage   ThingLocation = "STORAGE"
	LocDestroyed ThingLocation = "DESTROYED"
)

// Thing is an item stack with reference identity. It is part of the
// authoritative sim state and must be snapshot'd.
type Thing struct {
	ThingID string
	Kind    string
	Count   int
	// Mass of a single unit, in milli-units.
	UnitMassMilli int

	Location    ThingLocation
	Pos         Vec3i  // meaningful for LocGround
	ContainerID string // meaningful for LocContainer
	HolderID    string // agent id for LocHands/LocStorage

	// A self-moving cargo unit (e.g. a living passenger) boards on its own
	// and never needs to be carried.
	SelfMoving bool

	CreatedTick uint64
}

func (t *Thing) ID() string { return t.ThingID }

func (t *Thing) MassMilli() int { return t.Count * t.UnitMassMilli }

// OnAgent reports whether the thing is physically held or stored by agentID.
func (t *Thing) OnAgent(agentID string) bool {
	if t.Location != LocHands && t.Location != LocStorage {
		return false
	}
	return t.HolderID == agentID
}

// Container is a dumb item holder on the field (crate, shelf). Things inside
// it must be extracted before they can be hauled.
type Container struct {
	ContainerID string
	Pos         Vec3i
	ThingIDs    []string
	RegionID    string
}

func (c *Container) ID() string { return c.ContainerID }

func (c *Container) RemoveThing(thingID string) {
	out := c.ThingIDs[:0]
	for _, id := range c.ThingIDs {
		if id != thingID {
			out = append(out, id)
		}
	}
	c.ThingIDs = out
}
