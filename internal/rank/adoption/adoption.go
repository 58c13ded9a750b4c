// Package adoption lets a non-host client attach to an already-running
// remote session for its game.
package adoption

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/seolki/rankarena/internal/errors"
	"github.com/seolki/rankarena/internal/rank/domain"
	"github.com/seolki/rankarena/internal/rank/preflight"
)

// SessionRow mirrors the persisted session row candidates are discovered
// from.
type SessionRow struct {
	ID        string
	Status    string
	OwnerID   string
	GameID    string
	CreatedAt time.Time
}

// Config wires an Adopter.
type Config struct {
	// OwnerFilter restricts candidates to sessions started by this owner.
	// Empty accepts any host.
	OwnerFilter string

	PreflightPending func() bool
	Roster           func() []domain.Participant
	SlotLayout       func() []domain.Slot
	Matching         func() preflight.Matching

	// Boot starts the local session with the sanitized roster. Called at
	// most once per session id.
	Boot func(ctx context.Context, row SessionRow, roster []domain.Participant) error
}

// Adopter applies the adoption gates and guarantees at-most-once boot per
// session id.
type Adopter struct {
	cfg Config

	mu      sync.Mutex
	adopted map[string]struct{}
}

// NewAdopter builds an adopter.
func NewAdopter(cfg Config) *Adopter {
	return &Adopter{cfg: cfg, adopted: make(map[string]struct{})}
}

// Adopt attempts to adopt a candidate session row. Gates short-circuit at
// the first failure. The one-shot guard is claimed before the reconciliation
// work and released only on explicit failure, so concurrent candidate
// discoveries cannot double-boot the same session.
func (a *Adopter) Adopt(ctx context.Context, row SessionRow) error {
	sessionID := strings.TrimSpace(row.ID)
	if sessionID == "" {
		return apperrors.New(apperrors.CodeSessionNotAdopted, "candidate row has no session id")
	}

	status := strings.TrimSpace(row.Status)
	if status != "" && status != string(domain.SessionStatusActive) {
		return apperrors.New(apperrors.CodeSessionNotAdopted, "candidate session is not active").
			WithMetadata(map[string]string{"Status": status})
	}
	if a.cfg.OwnerFilter != "" && row.OwnerID != a.cfg.OwnerFilter {
		return apperrors.New(apperrors.CodeSessionNotAdopted, "candidate owner does not match the host filter")
	}

	if !a.claim(sessionID) {
		return apperrors.New(apperrors.CodeSessionNotAdopted, "session already adopted").
			WithMetadata(map[string]string{"SessionID": sessionID})
	}

	if a.cfg.PreflightPending != nil && a.cfg.PreflightPending() {
		a.release(sessionID)
		return apperrors.New(apperrors.CodePreflightPending, "local game is still reconciling its roster")
	}
	roster := a.roster()
	if len(roster) == 0 {
		a.release(sessionID)
		return apperrors.New(apperrors.CodePreflightEmptyRoster, "local game has no participants")
	}

	// The roster is never trusted as-is; reconciliation runs again here even
	// though the host already ran it at session start.
	result := preflight.Reconcile(roster, a.slotLayout(), a.matching())
	if len(result.Participants) == 0 {
		a.release(sessionID)
		return apperrors.New(apperrors.CodePreflightEmptyRoster, "no usable participants after reconciliation").
			WithMetadata(map[string]string{"Removed": strconv.Itoa(len(result.Removed))})
	}

	if a.cfg.Boot != nil {
		if err := a.cfg.Boot(ctx, row, result.Participants); err != nil {
			a.release(sessionID)
			return apperrors.Wrap(apperrors.CodeSessionNotAdopted, "boot adopted session", err)
		}
	}

	log.Printf("adoption: session adopted session_id=%s game_id=%s participants=%d removed=%d",
		sessionID, row.GameID, len(result.Participants), len(result.Removed))
	return nil
}

// Adopted reports whether a session id has been adopted.
func (a *Adopter) Adopted(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.adopted[sessionID]
	return ok
}

func (a *Adopter) claim(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, taken := a.adopted[sessionID]; taken {
		return false
	}
	a.adopted[sessionID] = struct{}{}
	return true
}

func (a *Adopter) release(sessionID string) {
	a.mu.Lock()
	delete(a.adopted, sessionID)
	a.mu.Unlock()
}

func (a *Adopter) roster() []domain.Participant {
	if a.cfg.Roster == nil {
		return nil
	}
	return a.cfg.Roster()
}

func (a *Adopter) slotLayout() []domain.Slot {
	if a.cfg.SlotLayout == nil {
		return nil
	}
	return a.cfg.SlotLayout()
}

func (a *Adopter) matching() preflight.Matching {
	if a.cfg.Matching == nil {
		return preflight.Matching{}
	}
	return a.cfg.Matching()
}
