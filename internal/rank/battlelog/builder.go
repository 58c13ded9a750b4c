// Package battlelog assembles the immutable, persistence-ready snapshot of a
// finished session.
package battlelog

import (
	"time"

	"github.com/seolki/rankarena/internal/rank/domain"
)

// Meta summarizes how and when a session ended.
type Meta struct {
	GameID      string
	SessionID   string
	Result      string
	Reason      domain.FinalizeReason
	EndTurn     int
	WinCount    int
	GeneratedAt time.Time
	DropIn      domain.DropInSnapshot
	TurnCount   int
}

// ParticipantSummary is one roster entry with live presence folded in.
type ParticipantSummary struct {
	OwnerID           string
	Name              string
	HeroID            string
	Role              string
	SlotIndex         int
	Status            domain.ParticipantStatus
	Score             int
	Rating            int
	Battles           int
	WinRate           float64
	InactivityStrikes int
	ProxiedAtTurn     int
}

// Draft is the battle log ready for persistence. It is built once at session
// end and never mutated afterwards; every nested structure is cloned from the
// inputs so later roster or timeline changes cannot leak in.
type Draft struct {
	Meta         Meta
	Participants []ParticipantSummary
	Turns        []domain.TurnRecord
	History      []domain.HistoryEntry
	Timeline     []domain.TimelineEvent
}

// Input carries everything the builder folds into a draft.
type Input struct {
	State    domain.SessionState
	Result   string
	Roster   []domain.Participant
	Presence domain.PresenceSnapshot
	DropIn   domain.DropInSnapshot
	Turns    []domain.TurnRecord
	History  []domain.HistoryEntry
	Timeline []domain.TimelineEvent
}

// Build assembles a draft from the session's final state. Pure: the inputs
// are never mutated.
func Build(input Input, now func() time.Time) Draft {
	if now == nil {
		now = time.Now
	}

	draft := Draft{
		Meta: Meta{
			GameID:      input.State.GameID,
			SessionID:   input.State.ID,
			Result:      input.Result,
			Reason:      input.State.FinalReason,
			EndTurn:     input.State.Turn,
			WinCount:    input.State.WinCount,
			GeneratedAt: now().UTC(),
			DropIn:      cloneDropIn(input.DropIn),
			TurnCount:   len(input.Turns),
		},
		Participants: summarizeParticipants(input.Roster, input.Presence),
		Turns:        cloneTurns(input.Turns),
		History:      cloneHistory(input.History),
		Timeline:     cloneTimeline(input.Timeline),
	}
	return draft
}

// summarizeParticipants overlays live presence status on the roster's
// nominal status.
func summarizeParticipants(roster []domain.Participant, presence domain.PresenceSnapshot) []ParticipantSummary {
	summaries := make([]ParticipantSummary, 0, len(roster))
	for _, p := range roster {
		summary := ParticipantSummary{
			OwnerID:   domain.ParticipantOwnerID(p),
			Name:      domain.ParticipantDisplayName(p),
			HeroID:    p.HeroID,
			Role:      p.Role,
			SlotIndex: p.SlotIndex,
			Status:    p.Status,
			Score:     p.Score,
			Rating:    p.Rating,
			Battles:   p.Battles,
			WinRate:   p.WinRate,
		}
		if entry := presence.Entry(summary.OwnerID); entry != nil {
			if entry.Status != "" {
				summary.Status = entry.Status
			}
			summary.InactivityStrikes = entry.InactivityStrikes
			summary.ProxiedAtTurn = entry.ProxiedAtTurn
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func cloneDropIn(snapshot domain.DropInSnapshot) domain.DropInSnapshot {
	clone := domain.DropInSnapshot{Turn: snapshot.Turn}
	if len(snapshot.Roles) > 0 {
		clone.Roles = make([]domain.DropInRole, len(snapshot.Roles))
		copy(clone.Roles, snapshot.Roles)
	}
	return clone
}

func cloneTurns(turns []domain.TurnRecord) []domain.TurnRecord {
	clone := make([]domain.TurnRecord, len(turns))
	for i, record := range turns {
		clone[i] = record
		if record.Variables != nil {
			clone[i].Variables = append([]string(nil), record.Variables...)
		}
	}
	return clone
}

func cloneHistory(history []domain.HistoryEntry) []domain.HistoryEntry {
	clone := make([]domain.HistoryEntry, len(history))
	for i, entry := range history {
		clone[i] = entry
		clone[i].Metadata = entry.CloneMetadata()
	}
	return clone
}

func cloneTimeline(events []domain.TimelineEvent) []domain.TimelineEvent {
	clone := make([]domain.TimelineEvent, len(events))
	for i, event := range events {
		clone[i] = event
		if event.Metadata != nil {
			metadata := make(map[string]string, len(event.Metadata))
			for k, v := range event.Metadata {
				metadata[k] = v
			}
			clone[i].Metadata = metadata
		}
	}
	return clone
}
