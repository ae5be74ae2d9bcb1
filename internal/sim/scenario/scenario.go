// Package scenario loads the field layout a fresh world starts with: pods,
// portals, sites, containers, stockpiles and loose item stacks. Resumed worlds
// ignore it, the snapshot already carries the field.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bulkhaul.ai/internal/sim/world"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

type Vec struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

type Item struct {
	Kind  string `yaml:"kind"`
	Count int    `yaml:"count"`
}

type Pod struct {
	PodID             string `yaml:"pod_id"`
	GroupID           string `yaml:"group_id"`
	RegionID          string `yaml:"region_id"`
	Pos               Vec    `yaml:"pos"`
	MassCapacityMilli int    `yaml:"mass_capacity_milli"`
	Manifest          []Item `yaml:"manifest"`
}

type Portal struct {
	PortalID          string `yaml:"portal_id"`
	RegionID          string `yaml:"region_id"`
	Pos               Vec    `yaml:"pos"`
	MassCapacityMilli int    `yaml:"mass_capacity_milli"`
	Manifest          []Item `yaml:"manifest"`
}

type Site struct {
	SiteID   string `yaml:"site_id"`
	RegionID string `yaml:"region_id"`
	Pos      Vec    `yaml:"pos"`
	Costs    []Item `yaml:"costs"`
}

type Container struct {
	ContainerID string `yaml:"container_id"`
	RegionID    string `yaml:"region_id"`
	Pos         Vec    `yaml:"pos"`
}

type Stockpile struct {
	RegionID    string `yaml:"region_id"`
	ContainerID string `yaml:"container_id"`
}

type Thing struct {
	Kind          string `yaml:"kind"`
	Count         int    `yaml:"count"`
	UnitMassMilli int    `yaml:"unit_mass_milli"`
	Pos           Vec    `yaml:"pos"`
	ContainerID   string `yaml:"container_id"`
	SelfMoving    bool   `yaml:"self_moving"`
}

type Scenario struct {
	Pods       []Pod       `yaml:"pods"`
	Portals    []Portal    `yaml:"portals"`
	Sites      []Site      `yaml:"sites"`
	Containers []Container `yaml:"containers"`
	Stockpiles []Stockpile `yaml:"stockpiles"`
	Things     []Thing     `yaml:"things"`
}

func Load(path string) (Scenario, error) {
	var sc Scenario
	raw, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return sc, fmt.Errorf("scenario: %w", err)
	}
	return sc, nil
}

// Apply seeds the world. Must run before the loop starts.
func (sc Scenario) Apply(w *world.World) {
	for _, c := range sc.Containers {
		w.AddContainer(&modelpkg.Container{
			ContainerID: c.ContainerID,
			Pos:         vec3i(c.Pos),
			RegionID:    c.RegionID,
		})
	}
	for _, s := range sc.Stockpiles {
		w.SetStockpile(s.RegionID, s.ContainerID)
	}
	for _, p := range sc.Pods {
		w.AddPod(&modelpkg.TransportPod{
			PodID:             p.PodID,
			GroupID:           p.GroupID,
			Pos:               vec3i(p.Pos),
			Manifest:          items(p.Manifest),
			MassCapacityMilli: p.MassCapacityMilli,
			RegionID:          p.RegionID,
		})
	}
	for _, p := range sc.Portals {
		w.AddPortal(&modelpkg.Portal{
			PortalID:          p.PortalID,
			Pos:               vec3i(p.Pos),
			Manifest:          items(p.Manifest),
			MassCapacityMilli: p.MassCapacityMilli,
			RegionID:          p.RegionID,
		})
	}
	for _, s := range sc.Sites {
		w.AddSite(&modelpkg.ConstructionSite{
			SiteID:   s.SiteID,
			Pos:      vec3i(s.Pos),
			Costs:    items(s.Costs),
			RegionID: s.RegionID,
		})
	}
	for _, t := range sc.Things {
		unit := t.UnitMassMilli
		if unit <= 0 {
			unit = 1000
		}
		th := &modelpkg.Thing{
			Kind:          t.Kind,
			Count:         t.Count,
			UnitMassMilli: unit,
			Location:      modelpkg.LocGround,
			Pos:           vec3i(t.Pos),
			SelfMoving:    t.SelfMoving,
		}
		if t.ContainerID != "" {
			th.Location = modelpkg.LocContainer
			th.ContainerID = t.ContainerID
		}
		w.SpawnThing(th)
	}
}

func vec3i(v Vec) modelpkg.Vec3i { return modelpkg.Vec3i{X: v.X, Y: v.Y, Z: v.Z} }

func items(in []Item) []modelpkg.ItemCount {
	out := make([]modelpkg.ItemCount, 0, len(in))
	for _, it := range in {
		if it.Kind == "" || it.Count <= 0 {
			continue
		}
		out = append(out, modelpkg.ItemCount{Kind: it.Kind, Count: it.Count})
	}
	return out
}
