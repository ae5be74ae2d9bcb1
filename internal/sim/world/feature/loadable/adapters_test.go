package loadable

import (
	"errors"
	"reflect"
	"testing"

	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

type stubView struct {
	pods    map[string][]*modelpkg.TransportPod
	portals map[string]*modelpkg.Portal
	sites   map[string]*modelpkg.ConstructionSite
	things  map[string]*modelpkg.Thing
	byKind  map[string][]*modelpkg.Thing
}

func (s *stubView) PodsInGroup(groupID string) []*modelpkg.TransportPod { return s.pods[groupID] }
func (s *stubView) PortalByID(id string) *modelpkg.Portal               { return s.portals[id] }
func (s *stubView) SiteByID(id string) *modelpkg.ConstructionSite       { return s.sites[id] }
func (s *stubView) ThingByID(id string) *modelpkg.Thing                 { return s.things[id] }
func (s *stubView) ThingsOfKindOnField(kind string) []*modelpkg.Thing   { return s.byKind[kind] }

func TestTransportGroupAggregatesManifests(t *testing.T) {
	view := &stubView{pods: map[string][]*modelpkg.TransportPod{
		"G1": {
			{PodID: "POD_1", GroupID: "G1", RegionID: "R1", MassCapacityMilli: 10000,
				Manifest: []modelpkg.ItemCount{{Kind: "STEEL", Count: 30}}},
			{PodID: "POD_2", GroupID: "G1", RegionID: "R1", MassCapacityMilli: 10000, MassUsedMilli: 4000,
				Manifest: []modelpkg.ItemCount{{Kind: "STEEL", Count: 20}, {Kind: "MEDICINE", Count: 5}}},
		},
	}}
	l := ForTransportGroup(view, "G1")

	if l.Identity() != "PODGRP_G1" {
		t.Fatalf("identity = %q", l.Identity())
	}
	req, err := l.RequiredItems()
	if err != nil {
		t.Fatalf("required: %v", err)
	}
	want := []modelpkg.ItemCount{{Kind: "STEEL", Count: 50}, {Kind: "MEDICINE", Count: 5}}
	if !reflect.DeepEqual(req, want) {
		t.Fatalf("required = %v, want %v", req, want)
	}
	cap, err := l.CapacityRemaining()
	if err != nil || cap != 16000 {
		t.Fatalf("capacity = %d, %v", cap, err)
	}
	if l.Region() != "R1" {
		t.Fatalf("region = %q", l.Region())
	}
}

func TestTransportGroupStaleWhenAllPodsGone(t *testing.T) {
	view := &stubView{pods: map[string][]*modelpkg.TransportPod{
		"G1": {
			{PodID: "POD_1", GroupID: "G1", Destroyed: true},
			{PodID: "POD_2", GroupID: "G1", LoadCancelled: true},
		},
	}}
	l := ForTransportGroup(view, "G1")
	if _, err := l.RequiredItems(); !errors.Is(err, ErrStaleTarget) {
		t.Fatalf("want ErrStaleTarget, got %v", err)
	}
	if _, err := l.CapacityRemaining(); !errors.Is(err, ErrStaleTarget) {
		t.Fatalf("want ErrStaleTarget, got %v", err)
	}
}

func TestDetailedRequirementsSkipsSelfMovingCargo(t *testing.T) {
	walker := &modelpkg.Thing{ThingID: "TH_W", Kind: "MUFFALO", Count: 1, SelfMoving: true}
	crate := &modelpkg.Thing{ThingID: "TH_S", Kind: "STEEL", Count: 40}
	view := &stubView{
		pods: map[string][]*modelpkg.TransportPod{"G1": {
			{PodID: "POD_1", GroupID: "G1", MassCapacityMilli: 10000,
				Manifest: []modelpkg.ItemCount{{Kind: "MUFFALO", Count: 1}, {Kind: "STEEL", Count: 25}}},
		}},
		byKind: map[string][]*modelpkg.Thing{
			"MUFFALO": {walker},
			"STEEL":   {crate},
		},
	}
	l := ForTransportGroup(view, "G1")
	reqs, ok := l.DetailedRequirements()
	if !ok {
		t.Fatalf("expected detailed requirements")
	}
	want := []ThingRequirement{{ThingID: "TH_S", Kind: "STEEL", Count: 25}}
	if !reflect.DeepEqual(reqs, want) {
		t.Fatalf("detailed = %v, want %v", reqs, want)
	}
}

func TestConstructionSiteLiveRecompute(t *testing.T) {
	site := &modelpkg.ConstructionSite{
		SiteID:   "S1",
		RegionID: "R2",
		Costs:    []modelpkg.ItemCount{{Kind: "WOOD", Count: 100}, {Kind: "STEEL", Count: 20}},
	}
	view := &stubView{sites: map[string]*modelpkg.ConstructionSite{"S1": site}}
	l := ForSite(view, "S1")

	req, err := l.RequiredItems()
	if err != nil {
		t.Fatalf("required: %v", err)
	}
	if len(req) != 2 || req[0].Count != 100 {
		t.Fatalf("required = %v", req)
	}

	// Deliveries between calls must be visible: no caching.
	site.AcceptDelivery("WOOD", 60)
	req, err = l.RequiredItems()
	if err != nil || req[0].Count != 40 {
		t.Fatalf("after delivery: %v, %v", req, err)
	}

	site.Destroyed = true
	if _, err := l.RequiredItems(); !errors.Is(err, ErrStaleTarget) {
		t.Fatalf("destroyed site must be stale, got %v", err)
	}
}

func TestPortalAdapter(t *testing.T) {
	view := &stubView{portals: map[string]*modelpkg.Portal{
		"P1": {PortalID: "P1", RegionID: "R3", MassCapacityMilli: 5000,
			Manifest: []modelpkg.ItemCount{{Kind: "GOLD", Count: 10}}},
	}}
	l := ForPortal(view, "P1")
	if l.Identity() != "PORTAL_P1" {
		t.Fatalf("identity = %q", l.Identity())
	}
	req, err := l.RequiredItems()
	if err != nil || len(req) != 1 || req[0].Kind != "GOLD" {
		t.Fatalf("required = %v, %v", req, err)
	}
}
