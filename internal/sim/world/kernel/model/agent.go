package model

import (
	"sort"

	"bulkhaul.ai/internal/protocol"
	"bulkhaul.ai/internal/sim/tasks"
)

type Agent struct {
	ID   string
	Name string
	Pos  Vec3i

	Incapacitated bool

	// Carrying capacity of the storage slots, in milli-units.
	MassCapacityMilli int

	// Immediate "hands" slot (at most one thing) and the storage set.
	HandsThingID    string
	StorageThingIDs []string

	MoveTask *tasks.MovementTask
	HaulTask *tasks.HaulTask
	// Relay queue: a site-clearing sub-task parks the suspended parent here.
	TaskQueue []*tasks.HaulTask

	Events []protocol.Event
}

func (a *Agent) InitDefaults() {
	if a.MassCapacityMilli == 0 {
		a.MassCapacityMilli = 35000
	}
}

func (a *Agent) AddEvent(e protocol.Event) {
	a.Events = append(a.Events, e)
}

func (a *Agent) TakeEvents() []protocol.Event {
	ev := a.Events
	a.Events = nil
	return ev
}

func (a *Agent) HasStored(thingID string) bool {
	for _, id := range a.StorageThingIDs {
		if id == thingID {
			return true
		}
	}
	return false
}

func (a *Agent) AddStored(thingID string) {
	if thingID == "" || a.HasStored(thingID) {
		return
	}
	a.StorageThingIDs = append(a.StorageThingIDs, thingID)
}

func (a *Agent) RemoveStored(thingID string) {
	out := a.StorageThingIDs[:0]
	for _, id := range a.StorageThingIDs {
		if id != thingID {
			out = append(out, id)
		}
	}
	a.StorageThingIDs = out
}

// CarriedThingIDs returns hands + storage, hands first, storage sorted.
func (a *Agent) CarriedThingIDs() []string {
	out := make([]string, 0, len(a.StorageThingIDs)+1)
	if a.HandsThingID != "" {
		out = append(out, a.HandsThingID)
	}
	stored := append([]string(nil), a.StorageThingIDs...)
	sort.Strings(stored)
	return append(out, stored...)
}
