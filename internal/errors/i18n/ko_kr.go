package i18n

import "golang.org/x/text/language"

var koKRCatalog = &Catalog{
	locale: "ko-KR",
	tag:    language.Korean,
	messages: map[Code]string{
		// Preflight errors
		CodePreflightMismatch:    "참가자 {{.Owner}}가 제외되었습니다: 선언된 역할 {{.Declared}}이(가) 예상 역할 {{.Expected}}과(와) 일치하지 않습니다",
		CodePreflightEmptyRoster: "검증 후 사용할 수 있는 참가자가 없습니다",
		CodePreflightPending:     "참가자 검증이 아직 진행 중입니다",

		// Turn errors
		CodeTurnInFlight:       "이미 턴이 진행 중입니다",
		CodeNotAuthorizedActor: "지금은 행동할 차례가 아닙니다",
		CodeNodeMissing:        "현재 스토리 노드를 찾을 수 없습니다",

		// Provider errors
		CodeAPIVersionLocked:    "이 세션의 AI 제공자 버전은 {{.Locked}}(으)로 고정되어 있습니다",
		CodeAPIKeyQuotaExceeded: "AI 키 할당량이 모두 소진되어 세션을 계속할 수 없습니다",
		CodeAPIKeyMissing:       "AI 키가 설정되어 있지 않아 세션을 계속할 수 없습니다",
		CodeAPIKeyInvalid:       "AI 키가 거부되어 세션을 계속할 수 없습니다",

		// Graph routing errors
		CodeGraphNoPath:      "현재 노드에서 나가는 경로가 없어 전투가 종료되었습니다",
		CodeGraphMissingNext: "다음 노드를 찾을 수 없어 전투가 종료되었습니다",

		// Session errors
		CodeSessionVoided:     "이 세션은 더 이상 사용할 수 없습니다",
		CodeSessionFinalized:  "이 세션은 이미 종료되었습니다",
		CodeSessionNotAdopted: "참여할 수 있는 활성 세션이 없습니다",
		CodeEmptyGameID:       "세션에는 게임 ID가 필요합니다",

		// Storage errors
		CodeNotFound:            "요청한 리소스를 찾을 수 없습니다",
		CodeActiveSessionExists: "이 게임에는 이미 활성 세션이 있습니다",

		// Realtime errors
		CodeRealtimeUnavailable: "실시간 연결을 사용할 수 없습니다",
	},
}
