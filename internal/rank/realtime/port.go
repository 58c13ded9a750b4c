// Package realtime coordinates live sessions: presence and inactivity
// tracking, turn completion, timeline synchronization, and the websocket
// transport carrying both.
package realtime

import (
	"encoding/json"

	"github.com/seolki/rankarena/internal/rank/domain"
)

// TimelineEventName is the broadcast event carrying timeline entries.
const TimelineEventName = "rank:timeline-event"

// Port is the transport abstraction the engine subscribes through. Handlers
// receive the raw payload; unsubscribe is idempotent.
type Port interface {
	Subscribe(topic string, handler func(payload []byte)) (unsubscribe func(), err error)
	Publish(topic string, payload []byte) error
}

// SessionTopic is the broadcast topic for one session's timeline events.
func SessionTopic(sessionID string) string {
	return "rank-session:" + sessionID
}

// TurnStateTopic is the change feed for one session's turn-state rows.
func TurnStateTopic(sessionID string) string {
	return "rank_turn_state_events:session:" + sessionID
}

// GameSessionsTopic is the change feed for a game's session rows, watched by
// non-host clients waiting to adopt.
func GameSessionsTopic(gameID string) string {
	return "rank_sessions:game:" + gameID
}

// Envelope is the wire frame for broadcast topics.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeTimelineEvent wraps a timeline event in its broadcast envelope.
func EncodeTimelineEvent(event domain.TimelineEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: TimelineEventName, Data: data})
}

// DecodeTimelineEvent unwraps a broadcast payload. The second return is false
// when the payload is not a timeline event.
func DecodeTimelineEvent(payload []byte) (domain.TimelineEvent, bool) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return domain.TimelineEvent{}, false
	}
	if envelope.Event != TimelineEventName {
		return domain.TimelineEvent{}, false
	}
	var event domain.TimelineEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return domain.TimelineEvent{}, false
	}
	return event, true
}
