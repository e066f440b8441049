package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestMarshalPutsTypeFirst(t *testing.T) {
	data, err := Marshal(TextDelta{ID: "t1", Delta: "こんにちは"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"type":"text-delta","id":"t1","delta":"こんにちは"}`
	if string(data) != want {
		t.Fatalf("unexpected json\nwant %s\n got %s", want, data)
	}
}

func TestMarshalEmptyEvent(t *testing.T) {
	data, err := Marshal(StartStep{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"type":"start-step"}` {
		t.Fatalf("unexpected json %s", data)
	}
}

func TestUnmarshalDecodesKnownEvents(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Event
	}{
		{"start", `{"type":"start","messageId":"m1"}`, Start{MessageID: "m1"}},
		{"text delta", `{"type":"text-delta","id":"a","delta":"hi"}`, TextDelta{ID: "a", Delta: "hi"}},
		{"reasoning", `{"type":"reasoning-delta","id":"r","delta":"hmm"}`, ReasoningDelta{ID: "r", Delta: "hmm"}},
		{"tool error", `{"type":"tool-output-error","toolCallId":"c1","errorText":"boom"}`, ToolOutputError{ToolCallID: "c1", ErrorText: "boom"}},
		{"error", `{"type":"error","errorText":"bad"}`, Error{ErrorText: "bad"}},
		{"finish", `{"type":"finish"}`, Finish{}},
		{"abort", `{"type":"abort"}`, Abort{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unmarshal([]byte(tt.in))
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestUnmarshalToolInputKeepsRawInput(t *testing.T) {
	got, err := Unmarshal([]byte(`{"type":"tool-input-available","toolCallId":"c1","toolName":"weatherTool","input":{"location":"Tokyo"}}`))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	ev, ok := got.(ToolInputAvailable)
	if !ok {
		t.Fatalf("expected ToolInputAvailable, got %T", got)
	}
	var input map[string]string
	if err := json.Unmarshal(ev.Input, &input); err != nil {
		t.Fatalf("input is not json: %v", err)
	}
	if input["location"] != "Tokyo" {
		t.Fatalf("unexpected input %v", input)
	}
}

func TestUnmarshalUnknownTypeIsPreserved(t *testing.T) {
	in := `{"type":"data-weather","data":{"c":21}}`
	got, err := Unmarshal([]byte(in))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	u, ok := got.(Unknown)
	if !ok {
		t.Fatalf("expected Unknown, got %T", got)
	}
	if u.Type() != "data-weather" {
		t.Fatalf("unexpected kind %q", u.Type())
	}

	out, err := Marshal(u)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != in {
		t.Fatalf("unknown event should round-trip verbatim, got %s", out)
	}
}

func TestUnmarshalRejectsMissingType(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"delta":"x"}`)); !errors.Is(err, ErrMissingType) {
		t.Fatalf("expected ErrMissingType, got %v", err)
	}
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestPartToolHelpers(t *testing.T) {
	static := Part{Type: ToolPartType("weatherTool")}
	if !static.IsToolPart() || static.ToolLabel() != "weatherTool" {
		t.Fatalf("static tool part not recognized: %+v", static)
	}

	dynamic := Part{Type: PartDynamicTool, ToolName: "search"}
	if !dynamic.IsToolPart() || dynamic.ToolLabel() != "search" {
		t.Fatalf("dynamic tool part not recognized: %+v", dynamic)
	}

	if (Part{Type: PartText}).IsToolPart() {
		t.Fatal("text part must not be a tool part")
	}
}

func TestChatRequestWireNames(t *testing.T) {
	req := ChatRequest{
		ID:        "chat-1",
		SessionID: "session-abc",
		Messages:  []Message{NewTextMessage("m1", RoleUser, "hi")},
		Trigger:   "submit-message",
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, key := range []string{`"sessionId":"session-abc"`, `"messages":[`, `"trigger":"submit-message"`, `"type":"text"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in %s", key, data)
		}
	}
}
