package realtime

import (
	"log"
	"sync"

	"github.com/seolki/rankarena/internal/rank/domain"
	"github.com/seolki/rankarena/internal/rank/timeline"
)

// SyncConfig wires a Sync. Port is required; the callbacks are optional.
type SyncConfig struct {
	Port Port

	// ApplyTurnState receives raw turn-state change-feed payloads.
	ApplyTurnState func(payload []byte)
	// Backfill runs after both subscriptions are live, recovering events
	// missed before the subscription existed.
	Backfill func(sessionID string)
	// OnEvents observes the merged timeline after each change.
	OnEvents func(events []domain.TimelineEvent)
}

// Sync keeps a session's merged timeline and forwards turn-state changes.
// One Sync follows at most one session id at a time; starting it on a new id
// tears down the previous subscriptions first.
type Sync struct {
	cfg SyncConfig

	mu          sync.Mutex
	sessionID   string
	events      []domain.TimelineEvent
	unsubscribe []func()
}

// NewSync builds a sync for the given transport.
func NewSync(cfg SyncConfig) *Sync {
	return &Sync{cfg: cfg}
}

// Start subscribes to the session's broadcast topic and turn-state change
// feed, then triggers a backfill. Restarting on the same id is a no-op.
func (s *Sync) Start(sessionID string) error {
	s.mu.Lock()
	if s.sessionID == sessionID {
		s.mu.Unlock()
		return nil
	}
	s.stopLocked()
	s.sessionID = sessionID
	s.events = nil
	s.mu.Unlock()

	if sessionID == "" {
		return nil
	}

	unsubTimeline, err := s.cfg.Port.Subscribe(SessionTopic(sessionID), s.handleTimelinePayload)
	if err != nil {
		return err
	}
	unsubTurnState, err := s.cfg.Port.Subscribe(TurnStateTopic(sessionID), s.handleTurnStatePayload)
	if err != nil {
		unsubTimeline()
		return err
	}

	s.mu.Lock()
	// The session changed while subscribing; drop the stale subscriptions.
	if s.sessionID != sessionID {
		s.mu.Unlock()
		unsubTimeline()
		unsubTurnState()
		return nil
	}
	s.unsubscribe = []func(){unsubTimeline, unsubTurnState}
	s.mu.Unlock()

	if s.cfg.Backfill != nil {
		s.cfg.Backfill(sessionID)
	}
	return nil
}

// Stop tears down the current subscriptions.
func (s *Sync) Stop() {
	s.mu.Lock()
	s.stopLocked()
	s.sessionID = ""
	s.mu.Unlock()
}

func (s *Sync) stopLocked() {
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.unsubscribe = nil
}

// MergeEvents folds externally fetched events (backfill results) into the
// local timeline. Idempotent under duplicate delivery.
func (s *Sync) MergeEvents(incoming ...domain.TimelineEvent) {
	s.mu.Lock()
	s.events = timeline.Merge(s.events, incoming...)
	merged := s.eventsLocked()
	s.mu.Unlock()

	if s.cfg.OnEvents != nil {
		s.cfg.OnEvents(merged)
	}
}

// Events returns a copy of the merged timeline.
func (s *Sync) Events() []domain.TimelineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventsLocked()
}

func (s *Sync) eventsLocked() []domain.TimelineEvent {
	events := make([]domain.TimelineEvent, len(s.events))
	copy(events, s.events)
	return events
}

func (s *Sync) handleTimelinePayload(payload []byte) {
	event, ok := DecodeTimelineEvent(payload)
	if !ok {
		log.Printf("realtime: dropping undecodable timeline payload session_id=%s", s.currentSessionID())
		return
	}
	s.MergeEvents(event)
}

func (s *Sync) handleTurnStatePayload(payload []byte) {
	if s.cfg.ApplyTurnState != nil {
		s.cfg.ApplyTurnState(payload)
	}
}

func (s *Sync) currentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}
