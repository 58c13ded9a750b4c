package domain

import (
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/seolki/rankarena/internal/errors"
)

func newTestSession(t *testing.T, input StartSessionInput) *Session {
	t.Helper()
	if input.GameID == "" {
		input.GameID = "g1"
	}
	session, err := StartSession(input, func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}, func() (string, error) {
		return "session-1", nil
	})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session
}

func TestStartSessionRequiresGameID(t *testing.T) {
	_, err := StartSession(StartSessionInput{}, nil, nil)
	if !apperrors.IsCode(err, apperrors.CodeEmptyGameID) {
		t.Fatalf("expected empty game id error, got %v", err)
	}
}

func TestStartSessionAdoptsRemoteID(t *testing.T) {
	session := newTestSession(t, StartSessionInput{RemoteID: "remote-9"})
	if session.State().ID != "remote-9" {
		t.Fatalf("expected adopted id, got %s", session.State().ID)
	}
}

func TestBeginTurnRejectsReentry(t *testing.T) {
	session := newTestSession(t, StartSessionInput{})
	if err := session.BeginTurn(); err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if err := session.BeginTurn(); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected turn in flight, got %v", err)
	}
	session.EndTurn()
	if err := session.BeginTurn(); err != nil {
		t.Fatalf("begin after release: %v", err)
	}
}

func TestBeginTurnRefusedAfterVoid(t *testing.T) {
	session := newTestSession(t, StartSessionInput{})
	session.Void()
	if err := session.BeginTurn(); !errors.Is(err, ErrSessionVoided) {
		t.Fatalf("expected voided error, got %v", err)
	}
}

func TestTryFinalizeIsOneShot(t *testing.T) {
	session := newTestSession(t, StartSessionInput{})
	if !session.TryFinalize(FinalizeReasonWin) {
		t.Fatal("expected first finalize to win")
	}
	if session.TryFinalize(FinalizeReasonRolesResolved) {
		t.Fatal("expected second finalize to be refused")
	}
	state := session.State()
	if state.Status != SessionStatusFinalizing || state.FinalReason != FinalizeReasonWin {
		t.Fatalf("unexpected state after finalize: %+v", state)
	}
}

func TestCompleteFinalizeClosesFanOut(t *testing.T) {
	session := newTestSession(t, StartSessionInput{})

	// Completing before any finalize is a no-op.
	session.CompleteFinalize()
	if session.State().Status != SessionStatusActive {
		t.Fatalf("unexpected status: %s", session.State().Status)
	}

	if !session.TryFinalize(FinalizeReasonDraw) {
		t.Fatal("expected finalize to win")
	}
	session.CompleteFinalize()
	state := session.State()
	if state.Status != SessionStatusFinalized || state.FinalReason != FinalizeReasonDraw {
		t.Fatalf("unexpected state after completion: %+v", state)
	}

	// Idempotent.
	session.CompleteFinalize()
	if session.State().Status != SessionStatusFinalized {
		t.Fatalf("unexpected status: %s", session.State().Status)
	}
}

func TestTryFinalizeConcurrent(t *testing.T) {
	session := newTestSession(t, StartSessionInput{})

	var wg sync.WaitGroup
	wins := make(chan FinalizeReason, 3)
	for _, reason := range []FinalizeReason{FinalizeReasonWin, FinalizeReasonRolesResolved, FinalizeReasonNoPath} {
		wg.Add(1)
		go func(r FinalizeReason) {
			defer wg.Done()
			if session.TryFinalize(r) {
				wins <- r
			}
		}(reason)
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one winning finalize, got %d", count)
	}
}

func TestScoreWinBrawlSemantics(t *testing.T) {
	session := newTestSession(t, StartSessionInput{BrawlEnabled: true})
	if !session.ScoreWin() {
		t.Fatal("expected brawl win to score")
	}
	if session.State().WinCount != 1 {
		t.Fatalf("expected win count 1, got %d", session.State().WinCount)
	}

	session.TriggerEnd()
	if session.ScoreWin() {
		t.Fatal("expected no scoring after end condition triggered")
	}

	plain := newTestSession(t, StartSessionInput{})
	if plain.ScoreWin() {
		t.Fatal("expected no scoring without brawl mode")
	}
}

func TestAdvanceIncrementsTurn(t *testing.T) {
	session := newTestSession(t, StartSessionInput{StartNodeID: "1"})
	session.Advance("2")
	state := session.State()
	if state.CurrentNodeID != "2" || state.Turn != 2 {
		t.Fatalf("unexpected state after advance: %+v", state)
	}

	session.TryFinalize(FinalizeReasonDraw)
	session.Advance("3")
	if session.State().CurrentNodeID != "2" {
		t.Fatal("expected advance to be refused after finalize")
	}
}

func TestLockAPIVersion(t *testing.T) {
	session := newTestSession(t, StartSessionInput{})
	if err := session.LockAPIVersion("v1beta"); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if err := session.LockAPIVersion("v1beta"); err != nil {
		t.Fatalf("same version relock: %v", err)
	}
	err := session.LockAPIVersion("v2")
	if !apperrors.IsCode(err, apperrors.CodeAPIVersionLocked) {
		t.Fatalf("expected version lock violation, got %v", err)
	}
	if err := session.LockAPIVersion(""); err != nil {
		t.Fatalf("empty version should be a no-op: %v", err)
	}
}
