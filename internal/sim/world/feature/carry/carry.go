// Package carry tracks items an agent carries for reasons unrelated to any
// active haul task (personal inventory hauling). The haul coordinator consumes
// this registry and must never corrupt it: items it borrows are removed at
// task start and leftovers are re-registered at task end.
package carry

import "sort"

type Registry struct {
	byAgent map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{byAgent: map[string]map[string]struct{}{}}
}

// CurrentSet returns the sorted thing ids registered for an agent.
func (r *Registry) CurrentSet(agentID string) []string {
	set := r.byAgent[agentID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Has(agentID, thingID string) bool {
	set := r.byAgent[agentID]
	if set == nil {
		return false
	}
	_, ok := set[thingID]
	return ok
}

func (r *Registry) Register(agentID, thingID string) {
	if agentID == "" || thingID == "" {
		return
	}
	set := r.byAgent[agentID]
	if set == nil {
		set = map[string]struct{}{}
		r.byAgent[agentID] = set
	}
	set[thingID] = struct{}{}
}

func (r *Registry) Remove(agentID, thingID string) {
	set := r.byAgent[agentID]
	if set == nil {
		return
	}
	delete(set, thingID)
	if len(set) == 0 {
		delete(r.byAgent, agentID)
	}
}

// Clear drops every registration for an agent (agent removed from world).
func (r *Registry) Clear(agentID string) {
	delete(r.byAgent, agentID)
}

// RemoveEverywhere drops a thing id from every agent's set (thing destroyed).
func (r *Registry) RemoveEverywhere(thingID string) {
	for agentID, set := range r.byAgent {
		delete(set, thingID)
		if len(set) == 0 {
			delete(r.byAgent, agentID)
		}
	}
}

// Export returns a stable agent->things mapping for snapshots.
func (r *Registry) Export() map[string][]string {
	if len(r.byAgent) == 0 {
		return nil
	}
	out := map[string][]string{}
	for agentID := range r.byAgent {
		out[agentID] = r.CurrentSet(agentID)
	}
	return out
}

// Load replaces the registry contents from a snapshot export.
func (r *Registry) Load(src map[string][]string) {
	r.byAgent = map[string]map[string]struct{}{}
	for agentID, ids := range src {
		for _, id := range ids {
			r.Register(agentID, id)
		}
	}
}
