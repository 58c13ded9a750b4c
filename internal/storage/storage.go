// Package storage defines the persistence contracts for sessions, turn
// state, battle logs, and telemetry.
package storage

import (
	"context"
	"time"

	apperrors "github.com/seolki/rankarena/internal/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrActiveSessionExists indicates a game already has an active session.
var ErrActiveSessionExists = apperrors.New(apperrors.CodeActiveSessionExists, "an active session already exists for this game")

// SessionRecord is one persisted session row.
type SessionRecord struct {
	ID        string
	GameID    string
	OwnerID   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TurnStateEvent is one persisted turn-state row, the backing data for
// reconnect backfill.
type TurnStateEvent struct {
	ID        string
	SessionID string
	Turn      int
	Reason    string
	// Snapshot is the JSON-encoded presence snapshot and events at turn close.
	Snapshot  []byte
	CreatedAt time.Time
}

// BattleLogRecord is one persisted battle log draft.
type BattleLogRecord struct {
	SessionID string
	GameID    string
	// Draft is the JSON-encoded battle log draft.
	Draft     []byte
	CreatedAt time.Time
}

// TelemetryEvent is one operational telemetry record.
type TelemetryEvent struct {
	ID        string
	Kind      string
	Severity  string
	SessionID string
	GameID    string
	Message   string
	Timestamp time.Time
}

// SessionStore persists session rows. CreateSession enforces at most one
// active session per game.
type SessionStore interface {
	CreateSession(ctx context.Context, record SessionRecord) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	// LatestActiveSession returns the newest active session for a game,
	// optionally filtered by owner. ok false means no candidate exists.
	LatestActiveSession(ctx context.Context, gameID, ownerID string) (record SessionRecord, ok bool, err error)
	UpdateSessionStatus(ctx context.Context, id, status string) error
}

// TurnStateStore persists per-turn closing state.
type TurnStateStore interface {
	AppendTurnState(ctx context.Context, event TurnStateEvent) error
	// ListTurnStatesSince returns events for a session with Turn > sinceTurn,
	// ordered by turn.
	ListTurnStatesSince(ctx context.Context, sessionID string, sinceTurn int) ([]TurnStateEvent, error)
}

// BattleLogStore persists finished-session battle logs.
type BattleLogStore interface {
	SaveBattleLog(ctx context.Context, record BattleLogRecord) error
	GetBattleLog(ctx context.Context, sessionID string) (BattleLogRecord, error)
}

// TelemetryStore persists telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
