// Package timeline turns realtime session events into human-readable log
// entries and maintains the merged, deduplicated event stream.
package timeline

import (
	"strings"

	"golang.org/x/text/message"

	"github.com/seolki/rankarena/internal/rank/domain"
)

// LogEntry is one rendered timeline line, ready for the session log.
type LogEntry struct {
	Role    string
	Content string
	Public  bool
	Extra   map[string]any
}

// Localizer is the minimal message-printer contract required by the builder.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// BuildLogEntry renders one timeline event into a public system log entry.
// Every event type produces output: unrecognized types fall back to a
// generic informational line, so no event can silently disappear.
func BuildLogEntry(loc Localizer, event domain.TimelineEvent) LogEntry {
	owner := strings.TrimSpace(event.OwnerID)
	if owner == "" {
		owner = loc.Sprintf("timeline.owner.unknown")
	}

	var content string
	switch event.Type {
	case domain.EventDropInJoined:
		content = loc.Sprintf("timeline.drop_in_joined", owner)
	case domain.EventTurnTimeout:
		content = loc.Sprintf("timeline.turn_timeout", event.Turn)
	case domain.EventConsensusReached:
		content = loc.Sprintf("timeline.consensus_reached", event.Turn)
	case domain.EventAPIKeyPoolReplaced:
		content = loc.Sprintf("timeline.api_key_pool_replaced")
	case domain.EventDropInMatchingContext:
		content = loc.Sprintf("timeline.drop_in_matching_context", owner)
	case domain.EventWarning:
		content = loc.Sprintf("timeline.warning", owner, event.Strike, event.Limit, event.Remaining)
		if suffix := reasonSuffix(loc, event.Reason); suffix != "" {
			content += " " + suffix
		}
	case domain.EventProxyEscalated:
		content = loc.Sprintf("timeline.proxy_escalated", owner)
	default:
		content = loc.Sprintf("timeline.fallback", owner, string(event.Type))
	}

	extra := map[string]any{
		"event_type": string(event.Type),
		"owner_id":   event.OwnerID,
		"turn":       event.Turn,
	}
	if event.Reason != "" {
		extra["reason"] = event.Reason
	}
	if event.Type == domain.EventWarning {
		extra["strike"] = event.Strike
		extra["remaining"] = event.Remaining
		extra["limit"] = event.Limit
	}
	for k, v := range event.Metadata {
		extra[k] = v
	}

	return LogEntry{Role: "system", Content: content, Public: true, Extra: extra}
}

// reasonSuffix localizes the warning reason when a translation exists.
func reasonSuffix(loc Localizer, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ""
	}
	key := "timeline.reason." + reason
	localized := loc.Sprintf(key)
	if localized == key {
		return "(" + reason + ")"
	}
	return localized
}
