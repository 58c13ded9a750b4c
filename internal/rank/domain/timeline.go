package domain

import (
	"strconv"
	"time"
)

// TimelineEventType identifies a realtime session event.
type TimelineEventType string

const (
	// EventDropInJoined indicates a new arrival took over a seat.
	EventDropInJoined TimelineEventType = "drop_in_joined"
	// EventTurnTimeout indicates a turn deadline expired.
	EventTurnTimeout TimelineEventType = "turn_timeout"
	// EventConsensusReached indicates every eligible owner responded.
	EventConsensusReached TimelineEventType = "consensus_reached"
	// EventAPIKeyPoolReplaced indicates the provider key pool rotated.
	EventAPIKeyPoolReplaced TimelineEventType = "api_key_pool_replaced"
	// EventDropInMatchingContext indicates matchmaking context was attached.
	EventDropInMatchingContext TimelineEventType = "drop_in_matching_context"
	// EventWarning indicates an inactivity strike against an owner.
	EventWarning TimelineEventType = "warning"
	// EventProxyEscalated indicates a seat was handed to an automated stand-in.
	EventProxyEscalated TimelineEventType = "proxy_escalated"
)

// TimelineEvent is one entry of a session's realtime timeline.
type TimelineEvent struct {
	ID        string
	Type      TimelineEventType
	OwnerID   string
	Turn      int
	Timestamp time.Time
	Reason    string
	Strike    int
	Remaining int
	Limit     int
	Metadata  map[string]string
}

// DedupKey returns the identity used by the timeline merger. Events without
// an id fall back to a composite of their distinguishing fields, so repeat
// delivery from reconnect backfill collapses to a single entry.
func (e TimelineEvent) DedupKey() string {
	if e.ID != "" {
		return e.ID
	}
	return string(e.Type) + "|" + e.OwnerID + "|" +
		strconv.Itoa(e.Turn) + "|" + e.Timestamp.UTC().Format(time.RFC3339Nano)
}
