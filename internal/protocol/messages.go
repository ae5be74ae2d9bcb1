package protocol

// HELLO (operator client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	OperatorName    string            `json:"operator_name"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> operator client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	OperatorID      string      `json:"operator_id"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	Seed       int64 `json:"seed"`
}

// Command names carried by CMD messages.
const (
	CmdBulkLoad   = "BULK_LOAD"
	CmdBulkUnload = "BULK_UNLOAD"
	CmdCancelTask = "CANCEL_TASK"
)

// CMD (operator client -> server)
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Cmd             string `json:"cmd"`
	AgentID         string `json:"agent_id"`
	// BULK_LOAD: destination (pod group, portal or construction site).
	TargetID   string `json:"target_id,omitempty"`
	Continuous bool   `json:"continuous,omitempty"`
	// Forced single-hands mode: pickups go to the hands slot only.
	HandsOnly bool `json:"hands_only,omitempty"`
	// BULK_UNLOAD: carrier to empty.
	CarrierID string `json:"carrier_id,omitempty"`
}

// OBS (server -> operator client): per-tick event batch.
type ObsMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Events          []Event `json:"events"`
}

// ACK (server -> operator client)
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}
