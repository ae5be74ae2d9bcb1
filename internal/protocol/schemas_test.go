package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"bulkhaul.ai/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	cmdSchema := compile("cmd.schema.json")
	obsSchema := compile("obs.schema.json")
	ackSchema := compile("ack.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "operator_name":"op1",
	  "capabilities":{"max_queue":8}
	}`), &hello)
	validate(helloSchema, hello)

	var cmd any
	_ = json.Unmarshal([]byte(`{
	  "type":"CMD",
	  "protocol_version":"1.0",
	  "id":"C1",
	  "cmd":"BULK_LOAD",
	  "agent_id":"A1",
	  "target_id":"PODGRP_1",
	  "continuous":true
	}`), &cmd)
	validate(cmdSchema, cmd)

	var obs any
	_ = json.Unmarshal([]byte(`{
	  "type":"OBS",
	  "protocol_version":"1.0",
	  "tick":42,
	  "events":[{"t":42,"type":"TASK_DONE","task_id":"T000001"}]
	}`), &obs)
	validate(obsSchema, obs)

	var ack any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACK",
	  "protocol_version":"1.0",
	  "ack_for":"C1",
	  "accepted":false,
	  "code":"E_NO_WORK",
	  "message":"nothing left to haul",
	  "server_tick":42
	}`), &ack)
	validate(ackSchema, ack)
}

func TestSchemas_RoundTripStructs(t *testing.T) {
	cmd := protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "C2",
		Cmd:             protocol.CmdBulkUnload,
		AgentID:         "A1",
		CarrierID:       "POD_3",
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p := filepath.Join("..", "..", "schemas", "cmd.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("struct-encoded CMD does not match schema: %v", err)
	}
}

func TestIsKnownCode(t *testing.T) {
	if !protocol.IsKnownCode(protocol.ErrNoWork) {
		t.Fatalf("E_NO_WORK should be known")
	}
	if !protocol.IsKnownCode("") {
		t.Fatalf("empty code is treated as known")
	}
	if protocol.IsKnownCode("E_NOPE") {
		t.Fatalf("unknown code accepted")
	}
}
