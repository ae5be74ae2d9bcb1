// Package loadable presents heterogeneous destinations (transport pod groups,
// portals, construction sites) behind one read-only capability interface.
// Adapters recompute requirements on every call; nothing here caches beyond a
// single planning pass.
package loadable

import (
	"errors"

	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// ErrStaleTarget reports that the underlying destination no longer exists.
// Callers must treat the group as having zero remaining work.
var ErrStaleTarget = errors.New("stale load target")

// ThingRequirement is a concrete candidate: a specific thing instance the
// destination would accept, with the count wanted from it.
type ThingRequirement struct {
	ThingID string
	Kind    string
	Count   int
}

type Loadable interface {
	// Identity is the stable key used for ledger indexing.
	Identity() string
	// RequiredItems reflects live destination state on each call.
	RequiredItems() ([]modelpkg.ItemCount, error)
	// DetailedRequirements is an optional richer view; callers fall back to
	// RequiredItems when ok is false.
	DetailedRequirements() (reqs []ThingRequirement, ok bool)
	// CapacityRemaining is the mass still acceptable, in milli-units.
	CapacityRemaining() (int, error)
	Region() string
	Pos() modelpkg.Vec3i
}

// WorldView is the slice of world state the adapters read.
type WorldView interface {
	PodsInGroup(groupID string) []*modelpkg.TransportPod
	PortalByID(id string) *modelpkg.Portal
	SiteByID(id string) *modelpkg.ConstructionSite
	ThingByID(id string) *modelpkg.Thing
	// ThingsOfKindOnField lists field-reachable candidate things of a kind
	// (on the ground or in containers), deterministic order.
	ThingsOfKindOnField(kind string) []*modelpkg.Thing
}

// Group key prefixes keep pod groups and single destinations from colliding
// in the ledger.
const (
	keyPodGroup = "PODGRP_"
	keyPortal   = "PORTAL_"
	keySite     = "SITE_"
)

func PodGroupKey(groupID string) string { return keyPodGroup + groupID }
func PortalKey(portalID string) string  { return keyPortal + portalID }
func SiteKey(siteID string) string      { return keySite + siteID }
