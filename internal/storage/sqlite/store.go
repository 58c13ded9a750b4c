// Package sqlite provides a SQLite-backed rank storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/seolki/rankarena/internal/platform/storage/sqlitemigrate"
	"github.com/seolki/rankarena/internal/storage"
	"github.com/seolki/rankarena/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists sessions, turn state, battle logs, and telemetry in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite rank store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateSession inserts one session row. A partial unique index keeps at
// most one active session per game.
func (s *Store) CreateSession(ctx context.Context, record storage.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(record.ID)
	gameID := strings.TrimSpace(record.GameID)
	status := strings.TrimSpace(record.Status)
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if status == "" {
		status = "active"
	}
	createdAt := record.CreatedAt.UTC()
	updatedAt := record.UpdatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sessions (
		   id,
		   game_id,
		   owner_id,
		   status,
		   created_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		gameID,
		strings.TrimSpace(record.OwnerID),
		status,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isSessionUniqueViolation(err) {
			return storage.ErrActiveSessionExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns one session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (storage.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.SessionRecord{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, game_id, owner_id, status, created_at, updated_at
		   FROM sessions
		  WHERE id = ?`,
		id,
	)
	record, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, storage.ErrNotFound
		}
		return storage.SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	return record, nil
}

// LatestActiveSession returns the newest active session for a game,
// optionally filtered by owner.
func (s *Store) LatestActiveSession(ctx context.Context, gameID, ownerID string) (storage.SessionRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.SessionRecord{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SessionRecord{}, false, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return storage.SessionRecord{}, false, fmt.Errorf("game id is required")
	}

	query := `SELECT id, game_id, owner_id, status, created_at, updated_at
	            FROM sessions
	           WHERE game_id = ? AND status = 'active'`
	args := []any{gameID}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	row := s.sqlDB.QueryRowContext(ctx, query, args...)
	record, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SessionRecord{}, false, nil
		}
		return storage.SessionRecord{}, false, fmt.Errorf("latest active session: %w", err)
	}
	return record, true, nil
}

// UpdateSessionStatus changes a session's status and bumps updated_at.
func (s *Store) UpdateSessionStatus(ctx context.Context, id, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	status = strings.TrimSpace(status)
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if status == "" {
		return fmt.Errorf("status is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		toMillis(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AppendTurnState inserts one turn-state row.
func (s *Store) AppendTurnState(ctx context.Context, event storage.TurnStateEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(event.ID)
	sessionID := strings.TrimSpace(event.SessionID)
	if id == "" {
		return fmt.Errorf("event id is required")
	}
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	createdAt := event.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO turn_state_events (
		   id,
		   session_id,
		   turn,
		   reason,
		   snapshot,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		sessionID,
		event.Turn,
		strings.TrimSpace(event.Reason),
		event.Snapshot,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("append turn state: %w", err)
	}
	return nil
}

// ListTurnStatesSince returns a session's turn-state rows with turn greater
// than sinceTurn, ordered by turn then creation time.
func (s *Store) ListTurnStatesSince(ctx context.Context, sessionID string, sinceTurn int) ([]storage.TurnStateEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, session_id, turn, reason, snapshot, created_at
		   FROM turn_state_events
		  WHERE session_id = ? AND turn > ?
		  ORDER BY turn ASC, created_at ASC`,
		sessionID,
		sinceTurn,
	)
	if err != nil {
		return nil, fmt.Errorf("list turn states: %w", err)
	}
	defer rows.Close()

	var events []storage.TurnStateEvent
	for rows.Next() {
		var (
			event     storage.TurnStateEvent
			createdAt int64
		)
		if err := rows.Scan(
			&event.ID,
			&event.SessionID,
			&event.Turn,
			&event.Reason,
			&event.Snapshot,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("list turn states: %w", err)
		}
		event.CreatedAt = fromMillis(createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list turn states: %w", err)
	}
	return events, nil
}

// SaveBattleLog stores a battle log draft, replacing any earlier draft for
// the session.
func (s *Store) SaveBattleLog(ctx context.Context, record storage.BattleLogRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	sessionID := strings.TrimSpace(record.SessionID)
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if len(record.Draft) == 0 {
		return fmt.Errorf("draft is required")
	}
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO battle_logs (session_id, game_id, draft, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
		   game_id = excluded.game_id,
		   draft = excluded.draft,
		   created_at = excluded.created_at`,
		sessionID,
		strings.TrimSpace(record.GameID),
		record.Draft,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("save battle log: %w", err)
	}
	return nil
}

// GetBattleLog returns the stored battle log draft for a session.
func (s *Store) GetBattleLog(ctx context.Context, sessionID string) (storage.BattleLogRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.BattleLogRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.BattleLogRecord{}, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.BattleLogRecord{}, fmt.Errorf("session id is required")
	}

	var (
		record    storage.BattleLogRecord
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT session_id, game_id, draft, created_at
		   FROM battle_logs
		  WHERE session_id = ?`,
		sessionID,
	).Scan(&record.SessionID, &record.GameID, &record.Draft, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BattleLogRecord{}, storage.ErrNotFound
		}
		return storage.BattleLogRecord{}, fmt.Errorf("get battle log: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// AppendTelemetryEvent inserts one telemetry row.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(event.ID)
	kind := strings.TrimSpace(event.Kind)
	if id == "" {
		return fmt.Errorf("event id is required")
	}
	if kind == "" {
		return fmt.Errorf("event kind is required")
	}
	severity := strings.TrimSpace(event.Severity)
	if severity == "" {
		severity = "INFO"
	}
	timestamp := event.Timestamp.UTC()
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO telemetry_events (
		   id,
		   kind,
		   severity,
		   session_id,
		   game_id,
		   message,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		kind,
		severity,
		strings.TrimSpace(event.SessionID),
		strings.TrimSpace(event.GameID),
		event.Message,
		toMillis(timestamp),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

type sessionScanner interface {
	Scan(dest ...any) error
}

func scanSession(row sessionScanner) (storage.SessionRecord, error) {
	var (
		record    storage.SessionRecord
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&record.ID,
		&record.GameID,
		&record.OwnerID,
		&record.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.SessionRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func isSessionUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "sessions")
}

var (
	_ storage.SessionStore   = (*Store)(nil)
	_ storage.TurnStateStore = (*Store)(nil)
	_ storage.BattleLogStore = (*Store)(nil)
	_ storage.TelemetryStore = (*Store)(nil)
)
