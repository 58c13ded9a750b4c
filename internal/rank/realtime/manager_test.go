package realtime

import (
	"fmt"
	"testing"
	"time"

	"github.com/seolki/rankarena/internal/rank/domain"
)

func newTestManager(limit int) *Manager {
	sequence := 0
	return NewManager(ManagerConfig{
		WarningLimit: limit,
		Now:          func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() (string, error) {
			sequence++
			return fmt.Sprintf("evt-%d", sequence), nil
		},
	})
}

func eventsOfType(events []domain.TimelineEvent, eventType domain.TimelineEventType) []domain.TimelineEvent {
	var filtered []domain.TimelineEvent
	for _, event := range events {
		if event.Type == eventType {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func TestCompleteTurnWarnsSilentOwners(t *testing.T) {
	m := newTestManager(3)
	m.RecordParticipation("u1", "action")

	result := m.CompleteTurn(1, []string{"u1", "u2"})

	warnings := eventsOfType(result.Events, domain.EventWarning)
	if len(warnings) != 1 || warnings[0].OwnerID != "u2" {
		t.Fatalf("expected one warning for u2, got %+v", warnings)
	}
	w := warnings[0]
	if w.Strike != 1 || w.Remaining != 2 || w.Limit != 3 {
		t.Fatalf("unexpected strike accounting: %+v", w)
	}
	if w.ID == "" || w.Timestamp.IsZero() {
		t.Fatalf("expected stamped event, got %+v", w)
	}

	entry := result.Snapshot.Entry("u1")
	if entry == nil || entry.InactivityStrikes != 0 {
		t.Fatalf("expected u1 strikes reset, got %+v", entry)
	}
}

func TestCompleteTurnEscalatesAtLimit(t *testing.T) {
	m := newTestManager(2)

	first := m.CompleteTurn(1, []string{"u2"})
	if len(eventsOfType(first.Events, domain.EventProxyEscalated)) != 0 {
		t.Fatal("first strike must not escalate")
	}

	second := m.CompleteTurn(2, []string{"u2"})
	escalations := eventsOfType(second.Events, domain.EventProxyEscalated)
	if len(escalations) != 1 || escalations[0].OwnerID != "u2" {
		t.Fatalf("expected escalation for u2, got %+v", second.Events)
	}

	entry := second.Snapshot.Entry("u2")
	if entry == nil || entry.Status != domain.ParticipantStatusProxy {
		t.Fatalf("expected proxy status, got %+v", entry)
	}
	if entry.ProxiedAtTurn != 2 || !entry.Managed {
		t.Fatalf("unexpected proxy bookkeeping: %+v", entry)
	}

	// Already-proxied seats neither warn nor escalate again.
	third := m.CompleteTurn(3, []string{"u2"})
	if len(eventsOfType(third.Events, domain.EventWarning)) != 0 ||
		len(eventsOfType(third.Events, domain.EventProxyEscalated)) != 0 {
		t.Fatalf("proxied seat must stay silent, got %+v", third.Events)
	}
}

func TestCompleteTurnConsensus(t *testing.T) {
	m := newTestManager(3)
	m.RecordParticipation("u1", "action")
	m.RecordParticipation("u2", "action")

	result := m.CompleteTurn(4, []string{"u1", "u2"})
	consensus := eventsOfType(result.Events, domain.EventConsensusReached)
	if len(consensus) != 1 || consensus[0].Turn != 4 {
		t.Fatalf("expected consensus event for turn 4, got %+v", result.Events)
	}
}

func TestParticipationResetsAcrossTurns(t *testing.T) {
	m := newTestManager(3)
	m.RecordParticipation("u1", "action")
	m.CompleteTurn(1, []string{"u1"})

	// Participation is consumed: the next silent turn strikes.
	result := m.CompleteTurn(2, []string{"u1"})
	warnings := eventsOfType(result.Events, domain.EventWarning)
	if len(warnings) != 1 || warnings[0].Strike != 1 {
		t.Fatalf("expected fresh strike on turn 2, got %+v", result.Events)
	}

	// Participation after a strike resets the count.
	m.RecordParticipation("u1", "action")
	m.CompleteTurn(3, []string{"u1"})
	final := m.CompleteTurn(4, []string{"u1"})
	if final.Snapshot.Entry("u1").InactivityStrikes != 1 {
		t.Fatalf("expected strike count restarted, got %+v", final.Snapshot.Entry("u1"))
	}
}

func TestRecordDropIn(t *testing.T) {
	m := newTestManager(3)

	event := m.RecordDropIn("defender", "u1", 2, "")
	if event.Type != domain.EventDropInJoined || event.OwnerID != "u1" {
		t.Fatalf("unexpected event: %+v", event)
	}

	m.RecordDropIn("defender", "u2", 5, "turn_timeout")
	m.CompleteTurn(5, nil)

	snapshot := m.DropInSnapshot()
	if snapshot.Turn != 5 || len(snapshot.Roles) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	role := snapshot.Roles[0]
	if role.TotalArrivals != 2 || role.Replacements != 1 {
		t.Fatalf("unexpected arrival accounting: %+v", role)
	}
	if role.ActiveOwnerID != "u2" || role.LastDepartureCause != "turn_timeout" || role.LastDepartureTurn != 5 {
		t.Fatalf("unexpected seat bookkeeping: %+v", role)
	}
}

func TestDropInClearsProxyState(t *testing.T) {
	m := newTestManager(1)
	m.CompleteTurn(1, []string{"u1"})
	if m.Snapshot().Entry("u1").Status != domain.ParticipantStatusProxy {
		t.Fatal("expected escalation at limit 1")
	}

	m.RecordDropIn("attacker", "u1", 2, "")
	entry := m.Snapshot().Entry("u1")
	if entry.Status != domain.ParticipantStatusAlive || entry.InactivityStrikes != 0 {
		t.Fatalf("expected seat revived by drop-in, got %+v", entry)
	}
}
