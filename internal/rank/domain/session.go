package domain

import (
	"strings"
	"sync"
	"time"

	apperrors "github.com/seolki/rankarena/internal/errors"
	"github.com/seolki/rankarena/internal/platform/id"
)

// SessionStatus describes the lifecycle state of a session.
type SessionStatus string

const (
	// SessionStatusActive indicates the session is accepting turns.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusFinalizing indicates a terminal outcome is being recorded.
	SessionStatusFinalizing SessionStatus = "finalizing"
	// SessionStatusFinalized indicates the session ended and its battle log exists.
	SessionStatusFinalized SessionStatus = "finalized"
	// SessionStatusVoided indicates the session is unusable (provider key failure).
	SessionStatusVoided SessionStatus = "voided"
)

// FinalizeReason records why a session reached a terminal state.
type FinalizeReason string

const (
	// FinalizeReasonRolesResolved indicates the outcome ledger completed.
	FinalizeReasonRolesResolved FinalizeReason = "roles_resolved"
	// FinalizeReasonWin indicates an edge-driven victory.
	FinalizeReasonWin FinalizeReason = "win"
	// FinalizeReasonLose indicates an edge-driven defeat.
	FinalizeReasonLose FinalizeReason = "lose"
	// FinalizeReasonDraw indicates an edge-driven draw.
	FinalizeReasonDraw FinalizeReason = "draw"
	// FinalizeReasonNoPath indicates no outgoing edge existed.
	FinalizeReasonNoPath FinalizeReason = "no_path"
	// FinalizeReasonMissingNext indicates the selected edge had no usable target.
	FinalizeReasonMissingNext FinalizeReason = "missing_next"
)

var (
	// ErrEmptySessionID indicates a missing session id.
	ErrEmptySessionID = apperrors.New(apperrors.CodeNotFound, "session id is required")
	// ErrTurnInFlight indicates a turn is already advancing.
	ErrTurnInFlight = apperrors.New(apperrors.CodeTurnInFlight, "a turn is already advancing")
	// ErrSessionFinalized indicates the one-shot finalize transition already fired.
	ErrSessionFinalized = apperrors.New(apperrors.CodeSessionFinalized, "session already finalized")
	// ErrSessionVoided indicates the session was marked unusable.
	ErrSessionVoided = apperrors.New(apperrors.CodeSessionVoided, "session is voided")
)

// SessionState is the immutable per-session value. Mutation happens only by
// full replacement inside Session, so concurrent readers never observe a
// partially updated state.
type SessionState struct {
	ID             string
	GameID         string
	Status         SessionStatus
	Turn           int
	CurrentNodeID  string
	BrawlEnabled   bool
	WinCount       int
	EndTriggered   bool
	APIVersionLock string
	FinalReason    FinalizeReason
	StartedAt      time.Time
}

// StartSessionInput describes the metadata needed to start a session.
type StartSessionInput struct {
	GameID        string
	StartNodeID   string
	BrawlEnabled  bool
	RemoteID      string // adopt an existing remote session id instead of generating one
	RemoteStarted time.Time
}

// Session owns a SessionState plus the two consistency guards: the per-client
// advancing flag and the cross-source one-shot finalized flag.
type Session struct {
	mu        sync.Mutex
	state     SessionState
	advancing bool
	finalized bool
}

// StartSession creates a session in ACTIVE status. When input.RemoteID is set
// the session adopts that id, otherwise a fresh id is generated.
func StartSession(input StartSessionInput, now func() time.Time, idGenerator func() (string, error)) (*Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	gameID := strings.TrimSpace(input.GameID)
	if gameID == "" {
		return nil, apperrors.New(apperrors.CodeEmptyGameID, "game id is required")
	}

	sessionID := strings.TrimSpace(input.RemoteID)
	startedAt := input.RemoteStarted
	if sessionID == "" {
		generated, err := idGenerator()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeUnknown, "generate session id", err)
		}
		sessionID = generated
	}
	if startedAt.IsZero() {
		startedAt = now().UTC()
	}

	return &Session{
		state: SessionState{
			ID:            sessionID,
			GameID:        gameID,
			Status:        SessionStatusActive,
			Turn:          1,
			CurrentNodeID: strings.TrimSpace(input.StartNodeID),
			BrawlEnabled:  input.BrawlEnabled,
			StartedAt:     startedAt,
		},
	}, nil
}

// State returns a copy of the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Finalized reports whether the one-shot finalize transition has fired.
func (s *Session) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// BeginTurn acquires the advancing guard. It fails when a turn is already in
// flight, the session is voided, or the session is finalized. The caller must
// release the guard with EndTurn, typically in a defer.
func (s *Session) BeginTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrSessionFinalized
	}
	if s.state.Status == SessionStatusVoided {
		return ErrSessionVoided
	}
	if s.advancing {
		return ErrTurnInFlight
	}
	s.advancing = true
	return nil
}

// EndTurn releases the advancing guard. Safe to call when not held.
func (s *Session) EndTurn() {
	s.mu.Lock()
	s.advancing = false
	s.mu.Unlock()
}

// Advance moves the session to the next node and increments the turn counter.
func (s *Session) Advance(nextNodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized || s.state.Status != SessionStatusActive {
		return
	}
	next := s.state
	next.CurrentNodeID = strings.TrimSpace(nextNodeID)
	next.Turn++
	s.state = next
}

// ScoreWin increments the brawl win counter without ending the session.
// Returns false when brawl scoring does not apply (brawl disabled, end
// condition already triggered, or session no longer active).
func (s *Session) ScoreWin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized || s.state.Status != SessionStatusActive {
		return false
	}
	if !s.state.BrawlEnabled || s.state.EndTriggered {
		return false
	}
	next := s.state
	next.WinCount++
	s.state = next
	return true
}

// TriggerEnd marks the brawl end condition so the next win finalizes.
func (s *Session) TriggerEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	next.EndTriggered = true
	s.state = next
}

// LockAPIVersion pins the provider version on first use. It returns an error
// when a different version was already locked for the session.
func (s *Session) LockAPIVersion(version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.APIVersionLock == "" {
		next := s.state
		next.APIVersionLock = version
		s.state = next
		return nil
	}
	if s.state.APIVersionLock != version {
		return apperrors.New(apperrors.CodeAPIVersionLocked, "api version is locked for this session").
			WithMetadata(map[string]string{"Locked": s.state.APIVersionLock})
	}
	return nil
}

// TryFinalize performs the one-shot finalize transition. The first caller
// wins and receives true; every later caller receives false regardless of
// reason. This is the cross-source consistency guard between ledger
// completion, edge-driven endings, and concurrent realtime paths. The
// session sits in FINALIZING until CompleteFinalize records that the
// terminal fan-out (battle log capture, remote notification) finished.
func (s *Session) TryFinalize(reason FinalizeReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return false
	}
	s.finalized = true
	next := s.state
	next.Status = SessionStatusFinalizing
	next.FinalReason = reason
	s.state = next
	return true
}

// CompleteFinalize marks the terminal fan-out finished. No-op unless the
// session is finalizing.
func (s *Session) CompleteFinalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != SessionStatusFinalizing {
		return
	}
	next := s.state
	next.Status = SessionStatusFinalized
	s.state = next
}

// Void marks the session unusable. Voiding is weaker than finalizing: it
// refuses further turns but does not consume the one-shot finalize flag.
func (s *Session) Void() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized || s.state.Status == SessionStatusVoided {
		return
	}
	next := s.state
	next.Status = SessionStatusVoided
	s.state = next
}
