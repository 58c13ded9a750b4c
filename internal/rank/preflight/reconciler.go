// Package preflight validates a client-supplied participant roster against
// server-side role expectations before a session boots. It is the only
// integrity check applied to untrusted rosters, so it runs before every boot:
// local starts and remote adoptions alike.
package preflight

import (
	"log"
	"strings"

	"github.com/seolki/rankarena/internal/rank/domain"
)

// Assignment maps a matchmaking role to the slots and members it covers.
type Assignment struct {
	Role      string
	RoleSlots []int
	Members   []string
}

// Matching carries the matchmaking metadata attached to a game.
type Matching struct {
	Assignments []Assignment
	HeroRoles   map[string]string
}

// ExpectationSource names which expectation map flagged a participant.
type ExpectationSource string

const (
	// SourceSlot indicates the slot-index expectation map.
	SourceSlot ExpectationSource = "slot"
	// SourceHero indicates the hero-id expectation map.
	SourceHero ExpectationSource = "hero"
	// SourceOwner indicates the owner-id expectation map.
	SourceOwner ExpectationSource = "owner"
)

// Removal records one dropped participant and the disagreement that caused it.
type Removal struct {
	Participant domain.Participant
	Source      ExpectationSource
	Expected    string
	Declared    string
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Participants []domain.Participant
	Removed      []Removal
}

type expectations struct {
	slotRole  map[int]string
	heroRole  map[string]string
	ownerRole map[string]string
}

// Reconcile sanitizes a roster against role expectations derived from the
// slot layout and matchmaking metadata. A participant is removed iff some
// applicable expectation disagrees with its declared role; participants that
// no expectation covers always pass through unchanged.
func Reconcile(participants []domain.Participant, slotLayout []domain.Slot, matching Matching) Result {
	expect := buildExpectations(slotLayout, matching)

	result := Result{Participants: make([]domain.Participant, 0, len(participants))}
	for _, p := range participants {
		if removal, conflicted := firstConflict(p, expect); conflicted {
			removal.Participant = p
			result.Removed = append(result.Removed, removal)
			log.Printf(
				"preflight: participant removed owner_id=%s slot=%d source=%s declared=%s expected=%s",
				domain.ParticipantOwnerID(p), p.SlotIndex, removal.Source, removal.Declared, removal.Expected,
			)
			continue
		}
		result.Participants = append(result.Participants, p)
	}
	return result
}

// buildExpectations scans, in order, the static slot layout, the matchmaking
// role assignments, then embedded hero-map roles. The first writer wins per
// key; later sources never overwrite an existing mapping.
func buildExpectations(slotLayout []domain.Slot, matching Matching) expectations {
	expect := expectations{
		slotRole:  make(map[int]string),
		heroRole:  make(map[string]string),
		ownerRole: make(map[string]string),
	}

	for _, slot := range slotLayout {
		role := strings.TrimSpace(slot.Role)
		if role == "" {
			continue
		}
		if _, exists := expect.slotRole[slot.Index]; !exists {
			expect.slotRole[slot.Index] = role
		}
		if slot.Hero != nil {
			heroID := strings.TrimSpace(slot.Hero.ID)
			if heroID != "" {
				if _, exists := expect.heroRole[heroID]; !exists {
					expect.heroRole[heroID] = role
				}
			}
		}
	}

	for _, assignment := range matching.Assignments {
		role := strings.TrimSpace(assignment.Role)
		if role == "" {
			continue
		}
		for _, slotIndex := range assignment.RoleSlots {
			if _, exists := expect.slotRole[slotIndex]; !exists {
				expect.slotRole[slotIndex] = role
			}
		}
		for _, member := range assignment.Members {
			member = strings.TrimSpace(member)
			if member == "" {
				continue
			}
			if _, exists := expect.ownerRole[member]; !exists {
				expect.ownerRole[member] = role
			}
		}
	}

	for heroID, role := range matching.HeroRoles {
		heroID = strings.TrimSpace(heroID)
		role = strings.TrimSpace(role)
		if heroID == "" || role == "" {
			continue
		}
		if _, exists := expect.heroRole[heroID]; !exists {
			expect.heroRole[heroID] = role
		}
	}

	return expect
}

// firstConflict collects every expectation hit that applies to a participant
// and reports the first one disagreeing with its declared role.
func firstConflict(p domain.Participant, expect expectations) (Removal, bool) {
	declared := strings.TrimSpace(p.Role)

	if expected, ok := expect.slotRole[p.SlotIndex]; ok && expected != declared {
		return Removal{Source: SourceSlot, Expected: expected, Declared: declared}, true
	}

	heroID := strings.TrimSpace(p.HeroID)
	if heroID == "" && p.Hero != nil {
		heroID = strings.TrimSpace(p.Hero.ID)
	}
	if heroID != "" {
		if expected, ok := expect.heroRole[heroID]; ok && expected != declared {
			return Removal{Source: SourceHero, Expected: expected, Declared: declared}, true
		}
	}

	if owner := domain.ParticipantOwnerID(p); owner != "" {
		if expected, ok := expect.ownerRole[owner]; ok && expected != declared {
			return Removal{Source: SourceOwner, Expected: expected, Declared: declared}, true
		}
	}

	return Removal{}, false
}
