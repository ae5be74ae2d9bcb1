package world

import (
	"context"
	"time"
)

// Run drives the world loop until the context is cancelled or Stop is called.
// Joins, leaves and commands are buffered between ticks and applied at the
// tick boundary, in arrival order.
func (w *World) Run(ctx context.Context) {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingCmds []CmdEnvelope

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case jr := <-w.join:
			pendingJoins = append(pendingJoins, jr)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingCmds = append(pendingCmds, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingCmds)
			pendingJoins = nil
			pendingLeaves = nil
			pendingCmds = nil
		}
	}
}

func (w *World) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}

// StepOnce advances the world a single tick with the given inputs and returns
// the stepped tick and its state digest. It is the deterministic entry point
// used by tests and the replay tool; Run calls the same step internally.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, cmds []CmdEnvelope) (uint64, string) {
	return w.step(joins, leaves, cmds)
}
