package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/seolki/rankarena/internal/storage"
)

type recordingTelemetryStore struct {
	events []storage.TelemetryEvent
}

func (s *recordingTelemetryStore) AppendTelemetryEvent(_ context.Context, event storage.TelemetryEvent) error {
	s.events = append(s.events, event)
	return nil
}

func TestEmitStampsMissingTimestamp(t *testing.T) {
	store := &recordingTelemetryStore{}
	now := time.Date(2026, time.August, 30, 16, 0, 0, 0, time.UTC)
	emitter := NewEmitter(store)
	emitter.clock = func() time.Time { return now }

	err := emitter.Emit(context.Background(), storage.TelemetryEvent{
		ID:       "tel-1",
		Kind:     "session_adopted",
		Severity: string(SeverityInfo),
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(store.events))
	}
	if !store.events[0].Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v, want %v", store.events[0].Timestamp, now)
	}
}

func TestEmitDefaultsSeverity(t *testing.T) {
	store := &recordingTelemetryStore{}
	emitter := NewEmitter(store)

	err := emitter.Emit(context.Background(), storage.TelemetryEvent{
		ID:   "tel-sev",
		Kind: "  session_voided  ",
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if store.events[0].Severity != string(SeverityInfo) {
		t.Fatalf("severity = %q, want default INFO", store.events[0].Severity)
	}
	if store.events[0].Kind != KindSessionVoided {
		t.Fatalf("kind = %q, want trimmed %q", store.events[0].Kind, KindSessionVoided)
	}
}

func TestEmitKeepsExplicitTimestamp(t *testing.T) {
	store := &recordingTelemetryStore{}
	emitter := NewEmitter(store)
	stamped := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), storage.TelemetryEvent{
		ID:        "tel-2",
		Kind:      "proxy_escalated",
		Timestamp: stamped,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !store.events[0].Timestamp.Equal(stamped) {
		t.Fatalf("timestamp = %v, want %v", store.events[0].Timestamp, stamped)
	}
}

func TestEmitEventMintsID(t *testing.T) {
	store := &recordingTelemetryStore{}
	emitter := NewEmitter(store)

	err := emitter.EmitEvent(context.Background(), KindSessionFinalized, "s1", "g1", "win")
	if err != nil {
		t.Fatalf("emit event: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(store.events))
	}
	got := store.events[0]
	if got.ID == "" {
		t.Fatal("expected a minted event id")
	}
	if got.Kind != KindSessionFinalized || got.SessionID != "s1" || got.GameID != "g1" || got.Message != "win" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Severity != string(SeverityInfo) {
		t.Fatalf("severity = %q, want INFO", got.Severity)
	}
}

func TestSessionHookEmitsForSession(t *testing.T) {
	store := &recordingTelemetryStore{}
	hook := NewEmitter(store).SessionHook("s1", "g1")

	hook(context.Background(), KindSessionVoided, "provider key rejected")
	if len(store.events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(store.events))
	}
	if store.events[0].Kind != KindSessionVoided || store.events[0].SessionID != "s1" {
		t.Fatalf("unexpected event: %+v", store.events[0])
	}
}

func TestEmitWithoutStoreIsNoOp(t *testing.T) {
	var emitter *Emitter
	if err := emitter.Emit(context.Background(), storage.TelemetryEvent{ID: "x"}); err != nil {
		t.Fatalf("nil emitter emit: %v", err)
	}
	if err := NewEmitter(nil).Emit(context.Background(), storage.TelemetryEvent{ID: "y"}); err != nil {
		t.Fatalf("nil store emit: %v", err)
	}
}
