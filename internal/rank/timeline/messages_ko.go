package timeline

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Korean

	message.SetString(lang, "timeline.owner.unknown", "누군가")
	message.SetString(lang, "timeline.drop_in_joined", "🙋 %s님이 난입하여 자리를 이어받았습니다")
	message.SetString(lang, "timeline.turn_timeout", "⏰ %d번째 턴이 응답을 모두 받기 전에 시간 초과되었습니다")
	message.SetString(lang, "timeline.consensus_reached", "🤝 %d번째 턴에 모든 참가자가 응답했습니다")
	message.SetString(lang, "timeline.api_key_pool_replaced", "🔑 AI 키 풀이 교체되었습니다")
	message.SetString(lang, "timeline.drop_in_matching_context", "🧭 %s님의 매칭 컨텍스트가 기록되었습니다")
	message.SetString(lang, "timeline.warning", "⚠️ %s님이 경고 %d회를 받았습니다 (최대 %d회, 남은 기회 %d회)")
	message.SetString(lang, "timeline.proxy_escalated", "🤖 %s님의 자리가 반복된 미응답으로 대리 진행으로 전환되었습니다")
	message.SetString(lang, "timeline.fallback", "ℹ️ %s 이벤트: %s")
	message.SetString(lang, "timeline.reason.turn_timeout", "(턴 제한 시간 초과)")
	message.SetString(lang, "timeline.reason.disconnected", "(연결 끊김)")
	message.SetString(lang, "timeline.reason.no_action", "(행동 미제출)")
}
