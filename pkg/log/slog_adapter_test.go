package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/droneauth/droneauth-go/pkg/wire"
)

func logJSON(t *testing.T, e Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	NewSlogAdapter(slog.New(handler)).Log(e)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestSlogAdapterMessageEvent(t *testing.T) {
	entry := logJSON(t, Event{
		Timestamp:  time.Now(),
		SessionID:  "sess-1",
		Direction:  DirectionIn,
		Layer:      LayerWire,
		Category:   CategoryMessage,
		LocalRole:  RoleStation,
		RemoteAddr: "127.0.0.1:5001",
		Identity:   "DRONE_003",
		Message:    &MessageEvent{Tag: wire.TagChallenge, Challenge: "CHALLENGE_9_ff"},
	})

	want := map[string]any{
		"msg":        "protocol",
		"session_id": "sess-1",
		"role":       "STATION",
		"direction":  "IN",
		"layer":      "WIRE",
		"category":   "MESSAGE",
		"remote":     "127.0.0.1:5001",
		"identity":   "DRONE_003",
		"tag":        "CHALLENGE",
		"challenge":  "CHALLENGE_9_ff",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s: got %v, want %v", k, entry[k], v)
		}
	}
}

func TestSlogAdapterAuthEvent(t *testing.T) {
	latency := time.Millisecond
	entry := logJSON(t, Event{
		Category: CategoryAuth,
		Auth:     &AuthEvent{Outcome: OutcomeFailure, Reason: "stale proof", Latency: &latency},
	})

	if entry["outcome"] != "FAILURE" {
		t.Errorf("outcome: got %v", entry["outcome"])
	}
	if entry["reason"] != "stale proof" {
		t.Errorf("reason: got %v", entry["reason"])
	}
	if _, ok := entry["latency"]; !ok {
		t.Error("latency missing")
	}
}

func TestSlogAdapterStateAndError(t *testing.T) {
	entry := logJSON(t, Event{StateChange: &StateChangeEvent{OldState: "A", NewState: "B", Reason: "r"}})
	if entry["old_state"] != "A" || entry["new_state"] != "B" || entry["reason"] != "r" {
		t.Errorf("state entry: %v", entry)
	}

	entry = logJSON(t, Event{Error: &ErrorEventData{Layer: LayerTransport, Message: "m", Context: "c"}})
	if entry["error_layer"] != "TRANSPORT" || entry["error_msg"] != "m" || entry["error_context"] != "c" {
		t.Errorf("error entry: %v", entry)
	}

	entry = logJSON(t, Event{Frame: &FrameEvent{Size: 12}})
	if entry["frame_size"] != float64(12) {
		t.Errorf("frame entry: %v", entry)
	}
}

func TestSlogAdapterLevels(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"state", Event{StateChange: &StateChangeEvent{OldState: "A", NewState: "B"}}, "DEBUG"},
		{"success", Event{Auth: &AuthEvent{Outcome: OutcomeSuccess}}, "INFO"},
		{"failure", Event{Auth: &AuthEvent{Outcome: OutcomeFailure}}, "WARN"},
		{"timeout", Event{Auth: &AuthEvent{Outcome: OutcomeTimeout}}, "WARN"},
		{"error", Event{Error: &ErrorEventData{Message: "m"}}, "WARN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := logJSON(t, tt.event)["level"]; got != tt.want {
				t.Errorf("level: got %v, want %s", got, tt.want)
			}
		})
	}
}

func TestSlogAdapterRespectsHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{StateChange: &StateChangeEvent{OldState: "A", NewState: "B"}})
	if buf.Len() != 0 {
		t.Errorf("debug event written at info level: %s", buf.String())
	}
	adapter.Log(Event{Auth: &AuthEvent{Outcome: OutcomeSuccess}})
	if buf.Len() == 0 {
		t.Error("success event not written")
	}

	NewSlogAdapter(nil).Log(Event{})
}
