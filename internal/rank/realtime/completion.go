package realtime

import (
	"context"
	"strings"

	"github.com/seolki/rankarena/internal/rank/domain"
	"github.com/seolki/rankarena/internal/rank/timeline"
	"github.com/seolki/rankarena/internal/telemetry"
)

// ManagerAPI is the slice of the presence manager the completion helper
// needs. Satisfied by *Manager and by remote manager clients.
type ManagerAPI interface {
	CompleteTurn(turn int, eligibleOwners []string) CompleteTurnResult
	RecordParticipation(ownerID, kind string) domain.PresenceSnapshot
	RecordDropIn(role, ownerID string, turn int, departureCause string) domain.TimelineEvent
	DropInSnapshot() domain.DropInSnapshot
}

// CompletionConfig wires a Completion helper. Enabled false or a nil Manager
// turns every method into a no-op.
type CompletionConfig struct {
	Enabled   bool
	Manager   ManagerAPI
	Localizer timeline.Localizer

	Roster func() []domain.Participant
	Turn   func() int

	// RecordTurnState persists the turn's closing state for reconnect backfill.
	RecordTurnState func(ctx context.Context, reason string, result CompleteTurnResult) error
	ApplySnapshot   func(snapshot domain.PresenceSnapshot)
	// ApplyDropInSnapshot publishes the per-role drop-in accounting after a
	// seat changes hands.
	ApplyDropInSnapshot func(snapshot domain.DropInSnapshot)
	AppendLog           func(entry timeline.LogEntry)
	// PatchParticipantStatus updates one roster entry's status. Must be a
	// no-op when the participant already has the status.
	PatchParticipantStatus func(ownerID string, status domain.ParticipantStatus)
	GetStatusMessage       func() string
	SetStatusMessage       func(message string)
	// EmitTelemetry records proxy escalations. Optional.
	EmitTelemetry func(ctx context.Context, kind, message string)
}

// Completion closes out realtime turns on behalf of the turn machinery.
type Completion struct {
	cfg CompletionConfig
}

// NewCompletion builds the helper.
func NewCompletion(cfg CompletionConfig) *Completion {
	return &Completion{cfg: cfg}
}

// FinalizeTurn completes the current turn with the realtime manager: records
// the turn state, applies the presence snapshot, renders manager events into
// public log lines, and escalates proxied seats. No-op when realtime is off
// or no manager is attached.
func (c *Completion) FinalizeTurn(ctx context.Context, reason string) error {
	if !c.cfg.Enabled || c.cfg.Manager == nil {
		return nil
	}

	eligible := domain.EligibleOwners(c.roster())
	result := c.cfg.Manager.CompleteTurn(c.turn(), eligible)

	if c.cfg.RecordTurnState != nil {
		if err := c.cfg.RecordTurnState(ctx, reason, result); err != nil {
			return err
		}
	}
	if c.cfg.ApplySnapshot != nil {
		c.cfg.ApplySnapshot(result.Snapshot)
	}

	var escalated []string
	for _, event := range result.Events {
		c.appendLog(event)
		switch event.Type {
		case domain.EventWarning:
			c.appendStatus(c.renderContent(event))
		case domain.EventProxyEscalated:
			escalated = append(escalated, event.OwnerID)
			if c.cfg.PatchParticipantStatus != nil {
				c.cfg.PatchParticipantStatus(event.OwnerID, domain.ParticipantStatusProxy)
			}
		}
	}
	if len(escalated) > 0 {
		if c.cfg.Localizer != nil {
			c.appendStatus(c.cfg.Localizer.Sprintf("realtime.status.proxy_switched", strings.Join(escalated, ", ")))
		}
		if c.cfg.EmitTelemetry != nil {
			c.cfg.EmitTelemetry(ctx, telemetry.KindProxyEscalated, strings.Join(escalated, ","))
		}
	}
	return nil
}

// RecordParticipation forwards one participation record and applies the
// returned snapshot. No-op outside realtime mode.
func (c *Completion) RecordParticipation(_ context.Context, ownerID, kind string) {
	if !c.cfg.Enabled || c.cfg.Manager == nil {
		return
	}
	snapshot := c.cfg.Manager.RecordParticipation(ownerID, kind)
	if c.cfg.ApplySnapshot != nil {
		c.cfg.ApplySnapshot(snapshot)
	}
}

// RecordDropIn hands a seat to a new arrival: the manager updates the
// drop-in accounting, the join is logged publicly, and the seat's roster
// entry returns to alive status. No-op outside realtime mode.
func (c *Completion) RecordDropIn(_ context.Context, role, ownerID, departureCause string) {
	if !c.cfg.Enabled || c.cfg.Manager == nil {
		return
	}
	event := c.cfg.Manager.RecordDropIn(role, ownerID, c.turn(), departureCause)
	c.appendLog(event)
	if c.cfg.PatchParticipantStatus != nil {
		c.cfg.PatchParticipantStatus(ownerID, domain.ParticipantStatusAlive)
	}
	if c.cfg.ApplyDropInSnapshot != nil {
		c.cfg.ApplyDropInSnapshot(c.cfg.Manager.DropInSnapshot())
	}
}

func (c *Completion) roster() []domain.Participant {
	if c.cfg.Roster == nil {
		return nil
	}
	return c.cfg.Roster()
}

func (c *Completion) turn() int {
	if c.cfg.Turn == nil {
		return 0
	}
	return c.cfg.Turn()
}

func (c *Completion) appendLog(event domain.TimelineEvent) {
	if c.cfg.AppendLog == nil || c.cfg.Localizer == nil {
		return
	}
	c.cfg.AppendLog(timeline.BuildLogEntry(c.cfg.Localizer, event))
}

func (c *Completion) renderContent(event domain.TimelineEvent) string {
	if c.cfg.Localizer == nil {
		return ""
	}
	return timeline.BuildLogEntry(c.cfg.Localizer, event).Content
}

// appendStatus accumulates notice text onto the existing status message.
// Already-present text is skipped by exact substring match, so concurrent
// notices pile up instead of clobbering each other.
func (c *Completion) appendStatus(addition string) {
	addition = strings.TrimSpace(addition)
	if addition == "" || c.cfg.GetStatusMessage == nil || c.cfg.SetStatusMessage == nil {
		return
	}
	existing := c.cfg.GetStatusMessage()
	if strings.Contains(existing, addition) {
		return
	}
	if existing == "" {
		c.cfg.SetStatusMessage(addition)
		return
	}
	c.cfg.SetStatusMessage(existing + "\n" + addition)
}
