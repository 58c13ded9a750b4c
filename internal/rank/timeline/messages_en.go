package timeline

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "timeline.owner.unknown", "Someone")
	message.SetString(lang, "timeline.drop_in_joined", "🙋 %s dropped in and took over the seat")
	message.SetString(lang, "timeline.turn_timeout", "⏰ Turn %d timed out before every response arrived")
	message.SetString(lang, "timeline.consensus_reached", "🤝 Every participant responded for turn %d")
	message.SetString(lang, "timeline.api_key_pool_replaced", "🔑 The AI key pool was replaced")
	message.SetString(lang, "timeline.drop_in_matching_context", "🧭 Matching context recorded for %s")
	message.SetString(lang, "timeline.warning", "⚠️ %s received inactivity strike %d of %d (%d chances left)")
	message.SetString(lang, "timeline.proxy_escalated", "🤖 %s was handed to a proxy after repeated inactivity")
	message.SetString(lang, "timeline.fallback", "ℹ️ %s event: %s")
	message.SetString(lang, "timeline.reason.turn_timeout", "(missed the turn deadline)")
	message.SetString(lang, "timeline.reason.disconnected", "(connection lost)")
	message.SetString(lang, "timeline.reason.no_action", "(no action submitted)")
}
