package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed               int64 `json:"seed"`
	TickRate           int   `json:"tick_rate_hz"`
	SnapshotEveryTicks int   `json:"snapshot_every_ticks,omitempty"`

	// Haul tuning (captured for deterministic replay/resume).
	AIUpdateIntervalTicks      int  `json:"ai_update_interval_ticks,omitempty"`
	VisualUnloadDelayTicks     int  `json:"visual_unload_delay_ticks,omitempty"`
	ContinuousModeEnabled      bool `json:"continuous_mode_enabled,omitempty"`
	MinFreeCapacityToUnloadPct int  `json:"min_free_capacity_to_unload_pct,omitempty"`
	GroupStaleTicks            int  `json:"group_stale_ticks,omitempty"`

	Agents     []AgentV1     `json:"agents"`
	Things     []ThingV1     `json:"things"`
	Containers []ContainerV1 `json:"containers"`
	Pods       []PodV1       `json:"pods"`
	Portals    []PortalV1    `json:"portals"`
	Sites      []SiteV1      `json:"sites"`

	Ledger     []LedgerGroupV1     `json:"ledger"`
	Carry      map[string][]string `json:"carry,omitempty"`
	Stockpiles map[string]string   `json:"stockpiles,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextAgent uint64 `json:"next_agent"`
	NextTask  uint64 `json:"next_task"`
	NextThing uint64 `json:"next_thing"`
}

type AgentV1 struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Pos               [3]int   `json:"pos"`
	Incapacitated     bool     `json:"incapacitated,omitempty"`
	MassCapacityMilli int      `json:"mass_capacity_milli"`
	HandsThingID      string   `json:"hands_thing_id,omitempty"`
	StorageThingIDs   []string `json:"storage_thing_ids,omitempty"`

	MoveTask  *MovementTaskV1 `json:"move_task,omitempty"`
	HaulTask  *HaulTaskV1     `json:"haul_task,omitempty"`
	TaskQueue []HaulTaskV1    `json:"task_queue,omitempty"`
}

type MovementTaskV1 struct {
	TaskID      string  `json:"task_id"`
	Target      [3]int  `json:"target"`
	Tolerance   float64 `json:"tolerance"`
	Silent      bool    `json:"silent,omitempty"`
	StartedTick uint64  `json:"started_tick"`
}

type HaulTaskV1 struct {
	TaskID              string           `json:"task_id"`
	Kind                string           `json:"kind"`
	Mode                string           `json:"mode"`
	HandsOnly           bool             `json:"hands_only,omitempty"`
	GroupKey            string           `json:"group_key"`
	DestID              string           `json:"dest_id"`
	Step                int              `json:"step"`
	WaitTicks           int              `json:"wait_ticks,omitempty"`
	PickupDone          bool             `json:"pickup_done,omitempty"`
	LastRevalidatedTick uint64           `json:"last_revalidated_tick,omitempty"`
	PickupQueue         []PickupTargetV1 `json:"pickup_queue,omitempty"`
	HauledThings        []string         `json:"hauled_things,omitempty"`
	OriginalCarrySource []string         `json:"original_carry_source,omitempty"`
	SurplusThings       []string         `json:"surplus_things,omitempty"`
	NeedsSnapshot       map[string]int   `json:"needs_snapshot,omitempty"`
	ObstructionID       string           `json:"obstruction_id,omitempty"`
	StartedTick         uint64           `json:"started_tick"`
}

type PickupTargetV1 struct {
	ThingID string `json:"thing_id"`
	Count   int    `json:"count"`
}

type ThingV1 struct {
	ThingID       string `json:"thing_id"`
	Kind          string `json:"kind"`
	Count         int    `json:"count"`
	UnitMassMilli int    `json:"unit_mass_milli"`
	Location      string `json:"location"`
	Pos           [3]int `json:"pos,omitempty"`
	ContainerID   string `json:"container_id,omitempty"`
	HolderID      string `json:"holder_id,omitempty"`
	SelfMoving    bool   `json:"self_moving,omitempty"`
	CreatedTick   uint64 `json:"created_tick,omitempty"`
}

type ContainerV1 struct {
	ContainerID string   `json:"container_id"`
	Pos         [3]int   `json:"pos"`
	ThingIDs    []string `json:"thing_ids,omitempty"`
	RegionID    string   `json:"region_id,omitempty"`
}

type PodV1 struct {
	PodID             string         `json:"pod_id"`
	GroupID           string         `json:"group_id"`
	Pos               [3]int         `json:"pos"`
	Manifest          map[string]int `json:"manifest,omitempty"`
	MassCapacityMilli int            `json:"mass_capacity_milli"`
	MassUsedMilli     int            `json:"mass_used_milli"`
	RegionID          string         `json:"region_id,omitempty"`
	Destroyed         bool           `json:"destroyed,omitempty"`
	LoadCancelled     bool           `json:"load_cancelled,omitempty"`
	ObstructionID     string         `json:"obstruction_id,omitempty"`
}

type PortalV1 struct {
	PortalID          string         `json:"portal_id"`
	Pos               [3]int         `json:"pos"`
	Manifest          map[string]int `json:"manifest,omitempty"`
	MassCapacityMilli int            `json:"mass_capacity_milli"`
	MassUsedMilli     int            `json:"mass_used_milli"`
	RegionID          string         `json:"region_id,omitempty"`
	Destroyed         bool           `json:"destroyed,omitempty"`
}

type SiteV1 struct {
	SiteID    string         `json:"site_id"`
	Pos       [3]int         `json:"pos"`
	Costs     map[string]int `json:"costs,omitempty"`
	Delivered map[string]int `json:"delivered,omitempty"`
	RegionID  string         `json:"region_id,omitempty"`
	Destroyed bool           `json:"destroyed,omitempty"`
}

type LedgerGroupV1 struct {
	Key             string          `json:"key"`
	Required        map[string]int  `json:"required,omitempty"`
	RegionID        string          `json:"region_id,omitempty"`
	LastUpdatedTick uint64          `json:"last_updated_tick"`
	Claims          []LedgerClaimV1 `json:"claims,omitempty"`
}

type LedgerClaimV1 struct {
	AgentID string `json:"agent_id"`
	Kind    string `json:"kind"`
	Count   int    `json:"count"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is advisory; gob carries the full snapshot.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
