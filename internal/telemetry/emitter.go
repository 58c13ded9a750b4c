// Package telemetry records operational events for sessions: adoption,
// finalization, voiding, and proxy escalation.
package telemetry

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/seolki/rankarena/internal/platform/id"
	"github.com/seolki/rankarena/internal/storage"
)

// Severity describes the telemetry severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Event kinds emitted by the rank engine.
const (
	KindSessionAdopted   = "session_adopted"
	KindSessionFinalized = "session_finalized"
	KindSessionVoided    = "session_voided"
	KindProxyEscalated   = "proxy_escalated"
)

// Emitter records operational telemetry events, stamping the defaults the
// store schema expects: a UTC timestamp and an INFO severity.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records a telemetry event. Missing timestamps and severities are
// stamped with defaults. It is a no-op when the store is nil, so callers
// can emit unconditionally.
func (e *Emitter) Emit(ctx context.Context, evt storage.TelemetryEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	evt.Kind = strings.TrimSpace(evt.Kind)
	if strings.TrimSpace(evt.Severity) == "" {
		evt.Severity = string(SeverityInfo)
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	return e.store.AppendTelemetryEvent(ctx, evt)
}

// EmitEvent mints an event ID and records one event of the given kind for a
// session.
func (e *Emitter) EmitEvent(ctx context.Context, kind, sessionID, gameID, message string) error {
	if e == nil || e.store == nil {
		return nil
	}
	eventID, err := id.NewID()
	if err != nil {
		return err
	}
	return e.Emit(ctx, storage.TelemetryEvent{
		ID:        eventID,
		Kind:      kind,
		SessionID: sessionID,
		GameID:    gameID,
		Message:   message,
	})
}

// SessionHook adapts the emitter into the callback shape the rank engine
// accepts for session event telemetry. Emit failures are logged, never
// propagated, so telemetry can never wedge a turn.
func (e *Emitter) SessionHook(sessionID, gameID string) func(ctx context.Context, kind, message string) {
	return func(ctx context.Context, kind, message string) {
		if err := e.EmitEvent(ctx, kind, sessionID, gameID, message); err != nil {
			log.Printf("telemetry: emit %s session_id=%s: %v", kind, sessionID, err)
		}
	}
}
