package domain

import (
	"fmt"
	"strings"
)

// ParticipantStatus describes the live state of a roster entry.
type ParticipantStatus string

const (
	// ParticipantStatusAlive indicates an actively playing participant.
	ParticipantStatusAlive ParticipantStatus = "alive"
	// ParticipantStatusProxy indicates an automated stand-in took over the seat.
	ParticipantStatusProxy ParticipantStatus = "proxy"
	// ParticipantStatusSpectating indicates a non-acting observer.
	ParticipantStatusSpectating ParticipantStatus = "spectating"
	// ParticipantStatusPending indicates a seat waiting for its player.
	ParticipantStatusPending ParticipantStatus = "pending"
	// ParticipantStatusDefeated indicates the participant lost the battle.
	ParticipantStatusDefeated ParticipantStatus = "defeated"
)

// Hero is the character a participant plays in a battle.
type Hero struct {
	ID      string
	Name    string
	OwnerID string
	Role    string
}

// Participant is one seat in a session roster.
type Participant struct {
	OwnerID   string
	Name      string
	HeroID    string
	Hero      *Hero
	Role      string
	SlotIndex int
	Status    ParticipantStatus
	Score     int
	Rating    int
	Battles   int
	WinRate   float64
}

// ParticipantOwnerID derives the owning user id for a participant,
// falling back to the hero's owner when the entry carries none.
func ParticipantOwnerID(p Participant) string {
	if owner := strings.TrimSpace(p.OwnerID); owner != "" {
		return owner
	}
	if p.Hero != nil {
		return strings.TrimSpace(p.Hero.OwnerID)
	}
	return ""
}

// FindBySlot returns the first roster entry occupying the given slot index.
// Returns nil when no participant holds the slot.
func FindBySlot(roster []Participant, slotIndex int) *Participant {
	if slotIndex < 0 {
		return nil
	}
	for i := range roster {
		if roster[i].SlotIndex == slotIndex {
			return &roster[i]
		}
	}
	return nil
}

// FindByOwner returns the first roster entry owned by the given user id.
func FindByOwner(roster []Participant, ownerID string) *Participant {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil
	}
	for i := range roster {
		if ParticipantOwnerID(roster[i]) == ownerID {
			return &roster[i]
		}
	}
	return nil
}

// ParticipantDisplayName resolves a human-readable name for a participant:
// entry name, then hero name, then a positional fallback.
func ParticipantDisplayName(p Participant) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if p.Hero != nil {
		if name := strings.TrimSpace(p.Hero.Name); name != "" {
			return name
		}
	}
	return fmt.Sprintf("Slot %d", p.SlotIndex+1)
}

// ActiveParticipants returns the roster entries that can still act in a turn.
func ActiveParticipants(roster []Participant) []Participant {
	active := make([]Participant, 0, len(roster))
	for _, p := range roster {
		switch p.Status {
		case ParticipantStatusAlive, ParticipantStatusProxy:
			active = append(active, p)
		}
	}
	return active
}

// EligibleOwners returns the owner ids of participants expected to respond
// to the current turn. Proxied seats are excluded: their responses are
// produced by the stand-in, not awaited from a human.
func EligibleOwners(roster []Participant) []string {
	owners := make([]string, 0, len(roster))
	seen := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		if p.Status != ParticipantStatusAlive {
			continue
		}
		owner := ParticipantOwnerID(p)
		if owner == "" {
			continue
		}
		if _, dup := seen[owner]; dup {
			continue
		}
		seen[owner] = struct{}{}
		owners = append(owners, owner)
	}
	return owners
}
