package adoption

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "github.com/seolki/rankarena/internal/errors"
	"github.com/seolki/rankarena/internal/rank/domain"
	"github.com/seolki/rankarena/internal/rank/preflight"
)

type adoptFixture struct {
	adopter *Adopter

	mu       sync.Mutex
	booted   []SessionRow
	rosters  [][]domain.Participant
	bootErr  error
	pending  bool
	roster   []domain.Participant
	matching preflight.Matching
}

func newAdoptFixture(ownerFilter string) *adoptFixture {
	f := &adoptFixture{
		roster: []domain.Participant{
			{OwnerID: "u1", Role: "attacker", SlotIndex: 0, Status: domain.ParticipantStatusAlive},
			{OwnerID: "u2", Role: "defender", SlotIndex: 1, Status: domain.ParticipantStatusAlive},
		},
	}
	f.adopter = NewAdopter(Config{
		OwnerFilter:      ownerFilter,
		PreflightPending: func() bool { return f.pending },
		Roster:           func() []domain.Participant { return f.roster },
		SlotLayout:       func() []domain.Slot { return nil },
		Matching:         func() preflight.Matching { return f.matching },
		Boot: func(_ context.Context, row SessionRow, roster []domain.Participant) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.bootErr != nil {
				return f.bootErr
			}
			f.booted = append(f.booted, row)
			f.rosters = append(f.rosters, roster)
			return nil
		},
	})
	return f
}

func activeRow(id string) SessionRow {
	return SessionRow{ID: id, Status: "active", OwnerID: "host", GameID: "g1"}
}

func TestAdoptBootsWithSanitizedRoster(t *testing.T) {
	f := newAdoptFixture("")
	f.matching = preflight.Matching{
		Assignments: []preflight.Assignment{{Role: "attacker", Members: []string{"u2"}}},
	}

	if err := f.adopter.Adopt(context.Background(), activeRow("s1")); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if len(f.booted) != 1 || f.booted[0].ID != "s1" {
		t.Fatalf("expected one boot for s1, got %+v", f.booted)
	}
	// u2 declared defender but matching expects attacker; the sanitized
	// roster carries only u1.
	if len(f.rosters[0]) != 1 || f.rosters[0][0].OwnerID != "u1" {
		t.Fatalf("unexpected sanitized roster: %+v", f.rosters[0])
	}
	if !f.adopter.Adopted("s1") {
		t.Fatal("expected one-shot flag set")
	}
}

func TestAdoptGates(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(f *adoptFixture) SessionRow
		wantCode apperrors.Code
	}{
		{
			name: "inactive status",
			prepare: func(f *adoptFixture) SessionRow {
				row := activeRow("s1")
				row.Status = "finalized"
				return row
			},
			wantCode: apperrors.CodeSessionNotAdopted,
		},
		{
			name: "owner filter mismatch",
			prepare: func(f *adoptFixture) SessionRow {
				row := activeRow("s1")
				row.OwnerID = "someone-else"
				return row
			},
			wantCode: apperrors.CodeSessionNotAdopted,
		},
		{
			name: "preflight pending",
			prepare: func(f *adoptFixture) SessionRow {
				f.pending = true
				return activeRow("s1")
			},
			wantCode: apperrors.CodePreflightPending,
		},
		{
			name: "empty roster",
			prepare: func(f *adoptFixture) SessionRow {
				f.roster = nil
				return activeRow("s1")
			},
			wantCode: apperrors.CodePreflightEmptyRoster,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdoptFixture("host")
			row := tt.prepare(f)

			err := f.adopter.Adopt(context.Background(), row)
			if !apperrors.IsCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if len(f.booted) != 0 {
				t.Fatal("gated candidate must not boot")
			}
		})
	}
}

func TestAdoptMissingStatusPasses(t *testing.T) {
	f := newAdoptFixture("")
	row := activeRow("s1")
	row.Status = ""

	if err := f.adopter.Adopt(context.Background(), row); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if len(f.booted) != 1 {
		t.Fatal("absent status must be treated as adoptable")
	}
}

func TestAdoptAtMostOncePerSession(t *testing.T) {
	f := newAdoptFixture("")

	if err := f.adopter.Adopt(context.Background(), activeRow("s1")); err != nil {
		t.Fatalf("first adopt: %v", err)
	}
	err := f.adopter.Adopt(context.Background(), activeRow("s1"))
	if !apperrors.IsCode(err, apperrors.CodeSessionNotAdopted) {
		t.Fatalf("expected refusal, got %v", err)
	}
	if len(f.booted) != 1 {
		t.Fatalf("expected exactly one boot, got %d", len(f.booted))
	}

	// A different session id is still adoptable.
	if err := f.adopter.Adopt(context.Background(), activeRow("s2")); err != nil {
		t.Fatalf("adopt s2: %v", err)
	}
}

func TestAdoptConcurrentCandidates(t *testing.T) {
	f := newAdoptFixture("")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.adopter.Adopt(context.Background(), activeRow("s1"))
		}()
	}
	wg.Wait()

	if len(f.booted) != 1 {
		t.Fatalf("expected exactly one boot under contention, got %d", len(f.booted))
	}
}

func TestAdoptReleasesFlagOnReconciliationFailure(t *testing.T) {
	f := newAdoptFixture("")
	f.matching = preflight.Matching{
		Assignments: []preflight.Assignment{{Role: "judge", Members: []string{"u1", "u2"}}},
	}

	err := f.adopter.Adopt(context.Background(), activeRow("s1"))
	if !apperrors.IsCode(err, apperrors.CodePreflightEmptyRoster) {
		t.Fatalf("expected empty-roster failure, got %v", err)
	}
	if f.adopter.Adopted("s1") {
		t.Fatal("flag must be released after reconciliation failure")
	}

	// The same session can be retried once the conflict is fixed.
	f.matching = preflight.Matching{}
	if err := f.adopter.Adopt(context.Background(), activeRow("s1")); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestAdoptReleasesFlagOnBootFailure(t *testing.T) {
	f := newAdoptFixture("")
	f.bootErr = errors.New("store down")

	err := f.adopter.Adopt(context.Background(), activeRow("s1"))
	if !apperrors.IsCode(err, apperrors.CodeSessionNotAdopted) {
		t.Fatalf("expected boot failure wrap, got %v", err)
	}
	if f.adopter.Adopted("s1") {
		t.Fatal("flag must be released after boot failure")
	}

	f.bootErr = nil
	if err := f.adopter.Adopt(context.Background(), activeRow("s1")); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
