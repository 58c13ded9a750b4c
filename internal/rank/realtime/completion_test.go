package realtime

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/seolki/rankarena/internal/rank/domain"
	"github.com/seolki/rankarena/internal/rank/timeline"
	"github.com/seolki/rankarena/internal/telemetry"
)

type fakeManager struct {
	completed      []int
	eligible       [][]string
	result         CompleteTurnResult
	participation  []string
	dropIns        []string
	snapshot       domain.PresenceSnapshot
	dropInSnapshot domain.DropInSnapshot
}

func (m *fakeManager) CompleteTurn(turn int, eligibleOwners []string) CompleteTurnResult {
	m.completed = append(m.completed, turn)
	m.eligible = append(m.eligible, eligibleOwners)
	return m.result
}

func (m *fakeManager) RecordParticipation(ownerID, kind string) domain.PresenceSnapshot {
	m.participation = append(m.participation, ownerID+":"+kind)
	return m.snapshot
}

func (m *fakeManager) RecordDropIn(role, ownerID string, turn int, departureCause string) domain.TimelineEvent {
	m.dropIns = append(m.dropIns, role+":"+ownerID+":"+departureCause)
	return domain.TimelineEvent{ID: "d1", Type: domain.EventDropInJoined, OwnerID: ownerID, Turn: turn}
}

func (m *fakeManager) DropInSnapshot() domain.DropInSnapshot {
	return m.dropInSnapshot
}

type completionFixture struct {
	completion *Completion
	manager    *fakeManager
	logs       []timeline.LogEntry
	patches    []string
	snapshots  []domain.PresenceSnapshot
	dropIns    []domain.DropInSnapshot
	recorded   []string
	events     []string
	status     string
}

func newCompletionFixture(enabled bool, manager ManagerAPI) *completionFixture {
	f := &completionFixture{}
	if fake, ok := manager.(*fakeManager); ok {
		f.manager = fake
	}
	roster := []domain.Participant{
		{OwnerID: "u1", Name: "Mira", SlotIndex: 0, Status: domain.ParticipantStatusAlive},
		{OwnerID: "u2", Name: "Juno", SlotIndex: 1, Status: domain.ParticipantStatusAlive},
		{OwnerID: "u3", Name: "Rook", SlotIndex: 2, Status: domain.ParticipantStatusProxy},
	}
	f.completion = NewCompletion(CompletionConfig{
		Enabled:   enabled,
		Manager:   manager,
		Localizer: message.NewPrinter(language.English),
		Roster:    func() []domain.Participant { return roster },
		Turn:      func() int { return 7 },
		RecordTurnState: func(_ context.Context, reason string, _ CompleteTurnResult) error {
			f.recorded = append(f.recorded, reason)
			return nil
		},
		ApplySnapshot: func(snapshot domain.PresenceSnapshot) {
			f.snapshots = append(f.snapshots, snapshot)
		},
		ApplyDropInSnapshot: func(snapshot domain.DropInSnapshot) {
			f.dropIns = append(f.dropIns, snapshot)
		},
		AppendLog: func(entry timeline.LogEntry) { f.logs = append(f.logs, entry) },
		PatchParticipantStatus: func(ownerID string, status domain.ParticipantStatus) {
			f.patches = append(f.patches, ownerID+":"+string(status))
		},
		GetStatusMessage: func() string { return f.status },
		SetStatusMessage: func(message string) { f.status = message },
		EmitTelemetry: func(_ context.Context, kind, message string) {
			f.events = append(f.events, kind+":"+message)
		},
	})
	return f
}

func TestFinalizeTurnToleratesMissingRosterAndTurn(t *testing.T) {
	manager := &fakeManager{}
	completion := NewCompletion(CompletionConfig{Enabled: true, Manager: manager})

	if err := completion.FinalizeTurn(context.Background(), "turn_completed"); err != nil {
		t.Fatalf("finalize turn: %v", err)
	}
	if len(manager.completed) != 1 || manager.completed[0] != 0 {
		t.Fatalf("expected turn 0 without a turn source, got %v", manager.completed)
	}
	if len(manager.eligible) != 1 || len(manager.eligible[0]) != 0 {
		t.Fatalf("expected no eligible owners without a roster source, got %v", manager.eligible)
	}
}

func TestFinalizeTurnNoopWhenDisabled(t *testing.T) {
	manager := &fakeManager{}
	f := newCompletionFixture(false, manager)

	if err := f.completion.FinalizeTurn(context.Background(), "roles_resolved"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(manager.completed) != 0 {
		t.Fatal("disabled helper must not reach the manager")
	}

	nilManager := newCompletionFixture(true, nil)
	if err := nilManager.completion.FinalizeTurn(context.Background(), "win"); err != nil {
		t.Fatalf("finalize without manager: %v", err)
	}
}

func TestFinalizeTurnPassesEligibleOwners(t *testing.T) {
	manager := &fakeManager{}
	f := newCompletionFixture(true, manager)

	if err := f.completion.FinalizeTurn(context.Background(), "roles_resolved"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(manager.completed) != 1 || manager.completed[0] != 7 {
		t.Fatalf("expected completion of turn 7, got %v", manager.completed)
	}
	// Proxied u3 is not an eligible responder.
	if got := manager.eligible[0]; len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Fatalf("unexpected eligible owners: %v", got)
	}
	if len(f.recorded) != 1 || f.recorded[0] != "roles_resolved" {
		t.Fatalf("expected turn state recorded, got %v", f.recorded)
	}
	if len(f.snapshots) != 1 {
		t.Fatalf("expected snapshot applied, got %d", len(f.snapshots))
	}
}

func TestFinalizeTurnRendersWarnings(t *testing.T) {
	manager := &fakeManager{result: CompleteTurnResult{
		Events: []domain.TimelineEvent{
			{ID: "e1", Type: domain.EventWarning, OwnerID: "u2", Turn: 7, Strike: 1, Remaining: 2, Limit: 3, Reason: "no_action"},
		},
	}}
	f := newCompletionFixture(true, manager)

	if err := f.completion.FinalizeTurn(context.Background(), "roles_resolved"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(f.logs) != 1 || !strings.Contains(f.logs[0].Content, "u2") {
		t.Fatalf("expected warning log line, got %+v", f.logs)
	}
	if !strings.Contains(f.status, "inactivity strike 1 of 3") {
		t.Fatalf("expected warning status, got %q", f.status)
	}
	if len(f.patches) != 0 {
		t.Fatalf("warning must not patch participants, got %v", f.patches)
	}
}

func TestFinalizeTurnBatchesEscalations(t *testing.T) {
	manager := &fakeManager{result: CompleteTurnResult{
		Events: []domain.TimelineEvent{
			{ID: "e1", Type: domain.EventProxyEscalated, OwnerID: "u1", Turn: 7},
			{ID: "e2", Type: domain.EventProxyEscalated, OwnerID: "u2", Turn: 7},
		},
	}}
	f := newCompletionFixture(true, manager)

	if err := f.completion.FinalizeTurn(context.Background(), "roles_resolved"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(f.logs) != 2 {
		t.Fatalf("expected a log line per escalation, got %d", len(f.logs))
	}
	if len(f.patches) != 2 || f.patches[0] != "u1:proxy" || f.patches[1] != "u2:proxy" {
		t.Fatalf("unexpected patches: %v", f.patches)
	}
	if strings.Count(f.status, "switched to proxy") != 1 {
		t.Fatalf("expected one batched status line, got %q", f.status)
	}
	if !strings.Contains(f.status, "u1, u2") {
		t.Fatalf("expected both owners in the batch, got %q", f.status)
	}
	if len(f.events) != 1 || f.events[0] != telemetry.KindProxyEscalated+":u1,u2" {
		t.Fatalf("unexpected telemetry events: %v", f.events)
	}
}

func TestFinalizeTurnWithoutEscalationEmitsNothing(t *testing.T) {
	manager := &fakeManager{result: CompleteTurnResult{
		Events: []domain.TimelineEvent{
			{ID: "e1", Type: domain.EventWarning, OwnerID: "u2", Turn: 7, Strike: 1, Remaining: 2, Limit: 3},
		},
	}}
	f := newCompletionFixture(true, manager)

	if err := f.completion.FinalizeTurn(context.Background(), "roles_resolved"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(f.events) != 0 {
		t.Fatalf("warnings must not emit telemetry, got %v", f.events)
	}
}

func TestFinalizeTurnAccumulatesStatus(t *testing.T) {
	manager := &fakeManager{result: CompleteTurnResult{
		Events: []domain.TimelineEvent{
			{ID: "e1", Type: domain.EventWarning, OwnerID: "u2", Turn: 7, Strike: 1, Remaining: 2, Limit: 3},
		},
	}}
	f := newCompletionFixture(true, manager)
	f.status = "battle continues"

	if err := f.completion.FinalizeTurn(context.Background(), "roles_resolved"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !strings.HasPrefix(f.status, "battle continues\n") {
		t.Fatalf("existing status must be kept, got %q", f.status)
	}

	// Re-delivering the same notice must not duplicate it.
	before := f.status
	if err := f.completion.FinalizeTurn(context.Background(), "roles_resolved"); err != nil {
		t.Fatalf("finalize again: %v", err)
	}
	if f.status != before {
		t.Fatalf("duplicate notice appended: %q", f.status)
	}
}

func TestRecordDropInHandsSeatOver(t *testing.T) {
	manager := &fakeManager{dropInSnapshot: domain.DropInSnapshot{Turn: 7}}
	f := newCompletionFixture(true, manager)

	f.completion.RecordDropIn(context.Background(), "defender", "u4", "turn_timeout")
	if len(manager.dropIns) != 1 || manager.dropIns[0] != "defender:u4:turn_timeout" {
		t.Fatalf("unexpected drop-in records: %v", manager.dropIns)
	}
	if len(f.logs) != 1 || !strings.Contains(f.logs[0].Content, "u4") {
		t.Fatalf("expected a drop-in log line, got %+v", f.logs)
	}
	if len(f.patches) != 1 || f.patches[0] != "u4:alive" {
		t.Fatalf("expected the seat restored to alive, got %v", f.patches)
	}
	if len(f.dropIns) != 1 || f.dropIns[0].Turn != 7 {
		t.Fatalf("expected drop-in snapshot applied, got %+v", f.dropIns)
	}

	disabled := newCompletionFixture(false, manager)
	disabled.completion.RecordDropIn(context.Background(), "defender", "u5", "")
	if len(manager.dropIns) != 1 {
		t.Fatal("disabled helper must not forward drop-ins")
	}
}

func TestRecordParticipationAppliesSnapshot(t *testing.T) {
	manager := &fakeManager{snapshot: domain.PresenceSnapshot{WarningLimit: 3}}
	f := newCompletionFixture(true, manager)

	f.completion.RecordParticipation(context.Background(), "u1", "action")
	if len(manager.participation) != 1 || manager.participation[0] != "u1:action" {
		t.Fatalf("unexpected participation: %v", manager.participation)
	}
	if len(f.snapshots) != 1 || f.snapshots[0].WarningLimit != 3 {
		t.Fatalf("expected snapshot applied, got %+v", f.snapshots)
	}

	disabled := newCompletionFixture(false, manager)
	disabled.completion.RecordParticipation(context.Background(), "u1", "action")
	if len(manager.participation) != 1 {
		t.Fatal("disabled helper must not forward participation")
	}
}
