package realtime

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/seolki/rankarena/internal/platform/id"
	"github.com/seolki/rankarena/internal/rank/domain"
)

// DefaultWarningLimit is the number of inactivity strikes before a seat is
// handed to a proxy.
const DefaultWarningLimit = 3

// Manager is the server-side presence authority for one session. It tracks
// per-owner inactivity strikes, escalates repeat offenders to proxy status,
// and keeps the drop-in accounting per role.
type Manager struct {
	mu           sync.Mutex
	warningLimit int
	entries      map[string]*presenceState
	participated map[string]struct{}
	dropIn       map[string]*domain.DropInRole
	turn         int

	now   func() time.Time
	newID func() (string, error)
}

type presenceState struct {
	status        domain.ParticipantStatus
	strikes       int
	proxiedAtTurn int
	managed       bool
}

// ManagerConfig tunes a Manager. Zero values select defaults.
type ManagerConfig struct {
	WarningLimit int
	Now          func() time.Time
	NewID        func() (string, error)
}

// NewManager builds a presence manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.WarningLimit <= 0 {
		cfg.WarningLimit = DefaultWarningLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	return &Manager{
		warningLimit: cfg.WarningLimit,
		entries:      make(map[string]*presenceState),
		participated: make(map[string]struct{}),
		dropIn:       make(map[string]*domain.DropInRole),
		now:          cfg.Now,
		newID:        cfg.NewID,
	}
}

// CompleteTurnResult carries the presence snapshot and the events produced by
// closing out one turn.
type CompleteTurnResult struct {
	Snapshot domain.PresenceSnapshot
	Events   []domain.TimelineEvent
}

// CompleteTurn closes the given turn for the eligible owners. Owners who
// recorded no participation this turn take an inactivity strike; reaching the
// warning limit escalates the seat to a proxy. Participation records are
// consumed and reset for the next turn.
func (m *Manager) CompleteTurn(turn int, eligibleOwners []string) CompleteTurnResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turn = turn
	events := make([]domain.TimelineEvent, 0, len(eligibleOwners))
	allResponded := len(eligibleOwners) > 0

	for _, owner := range eligibleOwners {
		owner = strings.TrimSpace(owner)
		if owner == "" {
			continue
		}
		state := m.stateFor(owner)
		if _, ok := m.participated[owner]; ok {
			state.strikes = 0
			continue
		}
		allResponded = false

		state.strikes++
		if state.strikes >= m.warningLimit && state.status != domain.ParticipantStatusProxy {
			state.status = domain.ParticipantStatusProxy
			state.proxiedAtTurn = turn
			state.managed = true
			events = append(events, m.event(domain.TimelineEvent{
				Type:    domain.EventProxyEscalated,
				OwnerID: owner,
				Turn:    turn,
				Reason:  "no_action",
			}))
			log.Printf("realtime: proxy escalation owner_id=%s turn=%d strikes=%d", owner, turn, state.strikes)
			continue
		}
		if state.status == domain.ParticipantStatusProxy {
			continue
		}
		events = append(events, m.event(domain.TimelineEvent{
			Type:      domain.EventWarning,
			OwnerID:   owner,
			Turn:      turn,
			Reason:    "no_action",
			Strike:    state.strikes,
			Remaining: m.warningLimit - state.strikes,
			Limit:     m.warningLimit,
		}))
	}

	if allResponded {
		events = append(events, m.event(domain.TimelineEvent{
			Type: domain.EventConsensusReached,
			Turn: turn,
		}))
	}

	m.participated = make(map[string]struct{})
	return CompleteTurnResult{Snapshot: m.snapshotLocked(), Events: events}
}

// RecordParticipation notes that an owner acted this turn and resets their
// strike count.
func (m *Manager) RecordParticipation(ownerID, kind string) domain.PresenceSnapshot {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return m.Snapshot()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.participated[ownerID] = struct{}{}
	state := m.stateFor(ownerID)
	state.strikes = 0
	log.Printf("realtime: participation owner_id=%s kind=%s turn=%d", ownerID, kind, m.turn)
	return m.snapshotLocked()
}

// RecordDropIn registers a new arrival for a role. When the seat was
// previously held by someone else the arrival counts as a replacement and the
// departure cause is recorded.
func (m *Manager) RecordDropIn(role, ownerID string, turn int, departureCause string) domain.TimelineEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.dropIn[role]
	if !ok {
		entry = &domain.DropInRole{Role: role}
		m.dropIn[role] = entry
	}
	entry.TotalArrivals++
	entry.LastArrivalTurn = turn
	if entry.ActiveOwnerID != "" && entry.ActiveOwnerID != ownerID {
		entry.Replacements++
		entry.LastDepartureTurn = turn
		entry.LastDepartureCause = departureCause
	}
	entry.ActiveOwnerID = ownerID

	state := m.stateFor(ownerID)
	state.status = domain.ParticipantStatusAlive
	state.strikes = 0
	state.proxiedAtTurn = 0

	return m.event(domain.TimelineEvent{
		Type:    domain.EventDropInJoined,
		OwnerID: ownerID,
		Turn:    turn,
		Metadata: map[string]string{
			"role": role,
		},
	})
}

// Snapshot returns the current presence view.
func (m *Manager) Snapshot() domain.PresenceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// DropInSnapshot returns the drop-in accounting as of the last completed turn.
func (m *Manager) DropInSnapshot() domain.DropInSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	roles := make([]domain.DropInRole, 0, len(m.dropIn))
	for _, entry := range m.dropIn {
		roles = append(roles, *entry)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Role < roles[j].Role })
	return domain.DropInSnapshot{Turn: m.turn, Roles: roles}
}

func (m *Manager) stateFor(ownerID string) *presenceState {
	state, ok := m.entries[ownerID]
	if !ok {
		state = &presenceState{status: domain.ParticipantStatusAlive}
		m.entries[ownerID] = state
	}
	return state
}

func (m *Manager) snapshotLocked() domain.PresenceSnapshot {
	owners := make([]string, 0, len(m.entries))
	for owner := range m.entries {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	entries := make([]domain.PresenceEntry, 0, len(owners))
	for _, owner := range owners {
		state := m.entries[owner]
		entries = append(entries, domain.PresenceEntry{
			OwnerID:           owner,
			Status:            state.status,
			InactivityStrikes: state.strikes,
			ProxiedAtTurn:     state.proxiedAtTurn,
			Managed:           state.managed,
		})
	}
	return domain.PresenceSnapshot{Entries: entries, WarningLimit: m.warningLimit}
}

func (m *Manager) event(event domain.TimelineEvent) domain.TimelineEvent {
	if generated, err := m.newID(); err == nil {
		event.ID = generated
	}
	event.Timestamp = m.now().UTC()
	return event
}
