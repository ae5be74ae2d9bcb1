package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Haul Haul `yaml:"haul"`
}

// Haul controls the bulk-haul coordinator.
type Haul struct {
	// Revalidation frequency for in-flight tasks (once past the pickup phase).
	AIUpdateIntervalTicks int `yaml:"ai_update_interval_ticks"`
	// Per-deposit pacing during an unload session.
	VisualUnloadDelayTicks int `yaml:"visual_unload_delay_ticks"`
	// Whether a successful unload auto-chains into a new equivalent task.
	ContinuousModeEnabled bool `yaml:"continuous_mode_enabled"`
	// Free-capacity threshold (percent of mass capacity) gating carrier-unload eligibility.
	MinFreeCapacityToUnloadPct int `yaml:"min_free_capacity_to_unload_pct"`
	// Load groups untouched for this many ticks are purged from the ledger.
	GroupStaleTicks int `yaml:"group_stale_ticks"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.Normalized(), nil
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         5,
		SnapshotEveryTicks: 600,
		Haul: Haul{
			AIUpdateIntervalTicks:      30,
			VisualUnloadDelayTicks:     3,
			ContinuousModeEnabled:      false,
			MinFreeCapacityToUnloadPct: 5,
			GroupStaleTicks:            3000,
		},
	}
}

// Normalized clamps out-of-range values to the defaults rather than failing.
func (t Tuning) Normalized() Tuning {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.SnapshotEveryTicks <= 0 {
		t.SnapshotEveryTicks = d.SnapshotEveryTicks
	}
	if t.Haul.AIUpdateIntervalTicks <= 0 {
		t.Haul.AIUpdateIntervalTicks = d.Haul.AIUpdateIntervalTicks
	}
	if t.Haul.VisualUnloadDelayTicks < 0 {
		t.Haul.VisualUnloadDelayTicks = d.Haul.VisualUnloadDelayTicks
	}
	if t.Haul.MinFreeCapacityToUnloadPct < 0 || t.Haul.MinFreeCapacityToUnloadPct > 100 {
		t.Haul.MinFreeCapacityToUnloadPct = d.Haul.MinFreeCapacityToUnloadPct
	}
	if t.Haul.GroupStaleTicks <= 0 {
		t.Haul.GroupStaleTicks = d.Haul.GroupStaleTicks
	}
	return t
}
