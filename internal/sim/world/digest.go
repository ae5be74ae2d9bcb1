package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
	"sort"

	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

// stateDigest folds the whole authoritative state into a hex digest. Replays
// compare digests tick by tick, so every traversal here must be sorted.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	io.WriteString(h, w.cfg.ID)
	digestWriteU64(h, &tmp, nowTick)
	digestWriteI64(h, &tmp, w.cfg.Seed)

	w.digestAgents(h, &tmp)
	w.digestThings(h, &tmp)
	w.digestContainers(h, &tmp)
	w.digestDestinations(h, &tmp)
	w.digestLedger(h, &tmp)
	w.digestCarry(h)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestAgents(h hash.Hash, tmp *[8]byte) {
	for _, id := range w.sortedAgentIDs() {
		a := w.agents[id]
		io.WriteString(h, a.ID)
		digestWriteI64(h, tmp, int64(a.Pos.X))
		digestWriteI64(h, tmp, int64(a.Pos.Y))
		digestWriteI64(h, tmp, int64(a.Pos.Z))
		h.Write([]byte{boolByte(a.Incapacitated)})
		io.WriteString(h, a.HandsThingID)
		stored := append([]string(nil), a.StorageThingIDs...)
		sort.Strings(stored)
		for _, sid := range stored {
			io.WriteString(h, sid)
		}
		if t := a.HaulTask; t != nil {
			io.WriteString(h, t.TaskID)
			io.WriteString(h, string(t.Kind))
			digestWriteI64(h, tmp, int64(t.Step))
			digestWriteI64(h, tmp, int64(t.WaitTicks))
			h.Write([]byte{boolByte(t.PickupDone)})
		}
		digestWriteI64(h, tmp, int64(len(a.TaskQueue)))
	}
}

func (w *World) digestThings(h hash.Hash, tmp *[8]byte) {
	ids := make([]string, 0, len(w.things))
	for id := range w.things {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		th := w.things[id]
		io.WriteString(h, th.ThingID)
		io.WriteString(h, th.Kind)
		digestWriteI64(h, tmp, int64(th.Count))
		io.WriteString(h, string(th.Location))
		digestWriteI64(h, tmp, int64(th.Pos.X))
		digestWriteI64(h, tmp, int64(th.Pos.Z))
		io.WriteString(h, th.ContainerID)
		io.WriteString(h, th.HolderID)
	}
}

func (w *World) digestContainers(h hash.Hash, tmp *[8]byte) {
	ids := make([]string, 0, len(w.containers))
	for id := range w.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c := w.containers[id]
		io.WriteString(h, c.ContainerID)
		digestWriteI64(h, tmp, int64(len(c.ThingIDs)))
	}
}

func (w *World) digestDestinations(h hash.Hash, tmp *[8]byte) {
	podIDs := make([]string, 0, len(w.pods))
	for id := range w.pods {
		podIDs = append(podIDs, id)
	}
	sort.Strings(podIDs)
	for _, id := range podIDs {
		p := w.pods[id]
		io.WriteString(h, p.PodID)
		io.WriteString(h, p.GroupID)
		digestWriteI64(h, tmp, int64(p.MassUsedMilli))
		h.Write([]byte{boolByte(p.Destroyed), boolByte(p.LoadCancelled)})
		digestWriteItemMap(h, tmp, modelpkg.SumByKind(p.Manifest))
	}

	portalIDs := make([]string, 0, len(w.portals))
	for id := range w.portals {
		portalIDs = append(portalIDs, id)
	}
	sort.Strings(portalIDs)
	for _, id := range portalIDs {
		p := w.portals[id]
		io.WriteString(h, p.PortalID)
		digestWriteI64(h, tmp, int64(p.MassUsedMilli))
		digestWriteItemMap(h, tmp, modelpkg.SumByKind(p.Manifest))
	}

	siteIDs := make([]string, 0, len(w.sites))
	for id := range w.sites {
		siteIDs = append(siteIDs, id)
	}
	sort.Strings(siteIDs)
	for _, id := range siteIDs {
		s := w.sites[id]
		io.WriteString(h, s.SiteID)
		digestWriteItemMap(h, tmp, modelpkg.SumByKind(s.MissingMaterials()))
	}
}

func (w *World) digestLedger(h hash.Hash, tmp *[8]byte) {
	for _, g := range w.ledger.Export() {
		io.WriteString(h, g.Key)
		for _, it := range g.Required {
			io.WriteString(h, it.Kind)
			digestWriteI64(h, tmp, int64(it.Count))
		}
		for _, c := range g.Claims {
			io.WriteString(h, c.Kind)
			io.WriteString(h, c.AgentID)
			digestWriteI64(h, tmp, int64(c.Count))
		}
	}
}

func (w *World) digestCarry(h hash.Hash) {
	exp := w.carry.Export()
	agentIDs := make([]string, 0, len(exp))
	for id := range exp {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)
	for _, id := range agentIDs {
		io.WriteString(h, id)
		for _, tid := range exp[id] {
			io.WriteString(h, tid)
		}
	}
}

func digestWriteItemMap(h hash.Hash, tmp *[8]byte, m map[string]int) {
	kinds := make([]string, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		io.WriteString(h, k)
		digestWriteI64(h, tmp, int64(m[k]))
	}
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
