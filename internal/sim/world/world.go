package world

import (
	"fmt"
	"log"
	"sync/atomic"

	"bulkhaul.ai/internal/persistence/snapshot"
	"bulkhaul.ai/internal/protocol"
	"bulkhaul.ai/internal/sim/tuning"
	"bulkhaul.ai/internal/sim/world/feature/carry"
	"bulkhaul.ai/internal/sim/world/feature/ledger"
	modelpkg "bulkhaul.ai/internal/sim/world/kernel/model"
)

type Config struct {
	ID                 string
	TickRateHz         int
	Seed               int64
	SnapshotEveryTicks int
	Haul               tuning.Haul
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type CmdEnvelope struct {
	AgentID string
	Cmd     protocol.CmdMsg
}

type RecordedJoin struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
}

type RecordedCmd struct {
	AgentID string          `json:"agent_id"`
	Cmd     protocol.CmdMsg `json:"cmd"`
}

type TickLogEntry struct {
	Tick   uint64         `json:"tick"`
	Joins  []RecordedJoin `json:"joins,omitempty"`
	Leaves []string       `json:"leaves,omitempty"`
	Cmds   []RecordedCmd  `json:"cmds,omitempty"`
	Digest string         `json:"digest"`
}

// AuditEntry records one haul-relevant state change (claim, deposit, drop).
type AuditEntry struct {
	Tick    uint64 `json:"tick"`
	AgentID string `json:"agent_id"`
	Action  string `json:"action"`
	Target  string `json:"target,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Count   int    `json:"count,omitempty"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type clientState struct {
	Out chan []byte
}

// World is a single-threaded authoritative simulation. All state must be
// accessed only from the world loop goroutine.
type World struct {
	cfg Config

	tick atomic.Uint64

	agents     map[string]*modelpkg.Agent
	clients    map[string]*clientState
	things     map[string]*modelpkg.Thing
	containers map[string]*modelpkg.Container
	pods       map[string]*modelpkg.TransportPod
	portals    map[string]*modelpkg.Portal
	sites      map[string]*modelpkg.ConstructionSite

	// region id -> stockpile container id, the unload target for carriers.
	stockpiles map[string]string

	ledger *ledger.Ledger
	carry  *carry.Registry

	inbox chan CmdEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	nextAgentNum atomic.Uint64
	nextTaskNum  atomic.Uint64
	nextThingNum atomic.Uint64

	// Optional loggers (may be nil).
	logger      *log.Logger
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing is off-thread.
	snapshotSink chan<- snapshot.SnapshotV1
}

func New(cfg Config, logger *log.Logger) *World {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = tuning.Defaults().TickRateHz
	}
	w := &World{
		cfg:        cfg,
		agents:     map[string]*modelpkg.Agent{},
		clients:    map[string]*clientState{},
		things:     map[string]*modelpkg.Thing{},
		containers: map[string]*modelpkg.Container{},
		pods:       map[string]*modelpkg.TransportPod{},
		portals:    map[string]*modelpkg.Portal{},
		sites:      map[string]*modelpkg.ConstructionSite{},
		stockpiles: map[string]string{},
		ledger:     ledger.New(logger),
		carry:      carry.NewRegistry(),
		inbox:      make(chan CmdEnvelope, 1024),
		join:       make(chan JoinRequest, 64),
		leave:      make(chan string, 64),
		stop:       make(chan struct{}),
		logger:     logger,
	}
	return w
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- CmdEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest  { return w.join }
func (w *World) Leave() chan<- string      { return w.leave }

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) TickRateHz() int     { return w.cfg.TickRateHz }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) newTaskID() string {
	return fmt.Sprintf("T%06d", w.nextTaskNum.Add(1))
}

func (w *World) newThingID() string {
	return fmt.Sprintf("TH%06d", w.nextThingNum.Add(1))
}

func (w *World) NewTaskID() string { return w.newTaskID() }

func (w *World) audit(e AuditEntry) {
	if w.auditLogger != nil {
		_ = w.auditLogger.WriteAudit(e)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
