package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/seolki/rankarena/internal/rank/domain"
)

type fakePort struct {
	handlers     map[string]func([]byte)
	unsubscribed []string
	err          error
}

func newFakePort() *fakePort {
	return &fakePort{handlers: map[string]func([]byte){}}
}

func (p *fakePort) Subscribe(topic string, handler func(payload []byte)) (func(), error) {
	if p.err != nil {
		return nil, p.err
	}
	p.handlers[topic] = handler
	return func() {
		p.unsubscribed = append(p.unsubscribed, topic)
		delete(p.handlers, topic)
	}, nil
}

func (p *fakePort) Publish(topic string, payload []byte) error {
	if handler, ok := p.handlers[topic]; ok {
		handler(payload)
	}
	return nil
}

func timelinePayload(t *testing.T, event domain.TimelineEvent) []byte {
	t.Helper()
	payload, err := EncodeTimelineEvent(event)
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	return payload
}

func TestSyncSubscribesAndBackfills(t *testing.T) {
	port := newFakePort()
	var backfilled []string
	sync := NewSync(SyncConfig{
		Port:     port,
		Backfill: func(sessionID string) { backfilled = append(backfilled, sessionID) },
	})

	if err := sync.Start("s1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := port.handlers[SessionTopic("s1")]; !ok {
		t.Fatal("expected timeline subscription")
	}
	if _, ok := port.handlers[TurnStateTopic("s1")]; !ok {
		t.Fatal("expected turn-state subscription")
	}
	if len(backfilled) != 1 || backfilled[0] != "s1" {
		t.Fatalf("expected backfill for s1, got %v", backfilled)
	}

	// Restart on the same id changes nothing.
	if err := sync.Start("s1"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if len(backfilled) != 1 {
		t.Fatalf("expected no second backfill, got %v", backfilled)
	}
}

func TestSyncMergesBroadcastEvents(t *testing.T) {
	port := newFakePort()
	sync := NewSync(SyncConfig{Port: port})
	if err := sync.Start("s1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	event := domain.TimelineEvent{
		ID:        "e1",
		Type:      domain.EventWarning,
		OwnerID:   "u1",
		Turn:      3,
		Timestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	payload := timelinePayload(t, event)

	_ = port.Publish(SessionTopic("s1"), payload)
	_ = port.Publish(SessionTopic("s1"), payload)

	events := sync.Events()
	if len(events) != 1 || events[0].ID != "e1" {
		t.Fatalf("expected one deduplicated event, got %+v", events)
	}
}

func TestSyncForwardsTurnStateChanges(t *testing.T) {
	port := newFakePort()
	var applied []string
	sync := NewSync(SyncConfig{
		Port:           port,
		ApplyTurnState: func(payload []byte) { applied = append(applied, string(payload)) },
	})
	if err := sync.Start("s1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	row, _ := json.Marshal(map[string]any{"turn": 3})
	_ = port.Publish(TurnStateTopic("s1"), row)
	if len(applied) != 1 || applied[0] != string(row) {
		t.Fatalf("expected turn-state row forwarded, got %v", applied)
	}
}

func TestSyncSessionChangeResubscribes(t *testing.T) {
	port := newFakePort()
	sync := NewSync(SyncConfig{Port: port})
	if err := sync.Start("s1"); err != nil {
		t.Fatalf("start s1: %v", err)
	}
	sync.MergeEvents(domain.TimelineEvent{ID: "e1", Turn: 1})

	if err := sync.Start("s2"); err != nil {
		t.Fatalf("start s2: %v", err)
	}
	if len(port.unsubscribed) != 2 {
		t.Fatalf("expected both s1 subscriptions torn down, got %v", port.unsubscribed)
	}
	if _, ok := port.handlers[SessionTopic("s2")]; !ok {
		t.Fatal("expected s2 subscription")
	}
	if len(sync.Events()) != 0 {
		t.Fatal("expected timeline cleared on session change")
	}

	sync.Stop()
	if len(port.handlers) != 0 {
		t.Fatalf("expected all subscriptions released, got %v", port.handlers)
	}
}

func TestSyncIgnoresForeignBroadcasts(t *testing.T) {
	port := newFakePort()
	sync := NewSync(SyncConfig{Port: port})
	if err := sync.Start("s1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	payload, _ := json.Marshal(Envelope{Event: "rank:other", Data: json.RawMessage(`{}`)})
	_ = port.Publish(SessionTopic("s1"), payload)
	if len(sync.Events()) != 0 {
		t.Fatalf("expected foreign event ignored, got %+v", sync.Events())
	}
}

func TestSyncOnEventsObserver(t *testing.T) {
	port := newFakePort()
	var observed [][]domain.TimelineEvent
	sync := NewSync(SyncConfig{
		Port:     port,
		OnEvents: func(events []domain.TimelineEvent) { observed = append(observed, events) },
	})
	if err := sync.Start("s1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	sync.MergeEvents(domain.TimelineEvent{ID: "e1", Turn: 1})
	sync.MergeEvents(domain.TimelineEvent{ID: "e2", Turn: 2})
	if len(observed) != 2 || len(observed[1]) != 2 {
		t.Fatalf("unexpected observations: %v", observed)
	}
}
