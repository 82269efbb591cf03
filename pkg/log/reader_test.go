package log

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

func TestFilteredReader(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, SessionID: "s1", Identity: "DRONE_001", Direction: DirectionOut, Layer: LayerWire, Category: CategoryMessage, LocalRole: RoleDrone},
		{Timestamp: base.Add(time.Second), SessionID: "s2", Identity: "DRONE_002", Direction: DirectionIn, Layer: LayerTransport, Category: CategoryMessage, LocalRole: RoleStation},
		{Timestamp: base.Add(2 * time.Second), SessionID: "s2", Identity: "DRONE_001", Direction: DirectionNone, Layer: LayerSession, Category: CategoryAuth, LocalRole: RoleStation},
	}
	path := createTestLogFile(t, events)

	station := RoleStation
	auth := CategoryAuth
	in := DirectionIn
	transport := LayerTransport
	start := base.Add(time.Second)
	end := base.Add(2 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"DRONE_001", "DRONE_002", "DRONE_001"}},
		{"session", Filter{SessionID: "s2"}, []string{"DRONE_002", "DRONE_001"}},
		{"identity", Filter{Identity: "DRONE_001"}, []string{"DRONE_001", "DRONE_001"}},
		{"role", Filter{Role: &station}, []string{"DRONE_002", "DRONE_001"}},
		{"category", Filter{Category: &auth}, []string{"DRONE_001"}},
		{"direction", Filter{Direction: &in}, []string{"DRONE_002"}},
		{"layer", Filter{Layer: &transport}, []string{"DRONE_002"}},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, []string{"DRONE_002"}},
		{"no match", Filter{SessionID: "nope"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer r.Close()

			var got []string
			for _, e := range readAll(t, r) {
				got = append(got, e.Identity)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewReaderMissingFile(t *testing.T) {
	if _, err := NewReader("/nonexistent/file.alog"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStreamReaderSkipped(t *testing.T) {
	var buf bytes.Buffer
	for _, id := range []string{"DRONE_001", "DRONE_002", "DRONE_001"} {
		data, err := EncodeEvent(Event{Identity: id})
		if err != nil {
			t.Fatalf("EncodeEvent failed: %v", err)
		}
		buf.Write(data)
	}

	r := NewStreamReader(&buf, Filter{Identity: "DRONE_001"})
	defer r.Close()

	events := readAll(t, r)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if r.Read() != 3 || r.Skipped() != 1 {
		t.Errorf("Read/Skipped: got %d/%d, want 3/1", r.Read(), r.Skipped())
	}
}

func TestReaderTruncatedTail(t *testing.T) {
	first, err := EncodeEvent(Event{SessionID: "complete"})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	second, err := EncodeEvent(Event{SessionID: "cut short", Identity: "DRONE_004"})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	data := append(first, second[:len(second)/2]...)

	r := NewStreamReader(bytes.NewReader(data), Filter{})
	e, err := r.Next()
	if err != nil {
		t.Fatalf("first event: %v", err)
	}
	if e.SessionID != "complete" {
		t.Errorf("SessionID: got %q", e.SessionID)
	}

	_, err = r.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Errorf("expected a decode error for the partial event, got %v", err)
	}
}
