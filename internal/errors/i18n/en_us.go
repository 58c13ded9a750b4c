package i18n

import "golang.org/x/text/language"

const (
	CodePreflightMismatch    = "PREFLIGHT_MISMATCH"
	CodePreflightEmptyRoster = "PREFLIGHT_EMPTY_ROSTER"
	CodePreflightPending     = "PREFLIGHT_PENDING"
	CodeTurnInFlight         = "TURN_IN_FLIGHT"
	CodeNotAuthorizedActor   = "NOT_AUTHORIZED_ACTOR"
	CodeNodeMissing          = "NODE_MISSING"
	CodeAPIVersionLocked     = "API_VERSION_LOCKED"
	CodeAPIKeyQuotaExceeded  = "API_KEY_QUOTA_EXHAUSTED"
	CodeAPIKeyMissing        = "API_KEY_MISSING"
	CodeAPIKeyInvalid        = "API_KEY_INVALID"
	CodeGraphNoPath          = "GRAPH_NO_PATH"
	CodeGraphMissingNext     = "GRAPH_MISSING_NEXT"
	CodeSessionVoided        = "SESSION_VOIDED"
	CodeSessionFinalized     = "SESSION_FINALIZED"
	CodeSessionNotAdopted    = "SESSION_NOT_ADOPTED"
	CodeEmptyGameID          = "SESSION_EMPTY_GAME_ID"
	CodeNotFound             = "NOT_FOUND"
	CodeActiveSessionExists  = "ACTIVE_SESSION_EXISTS"
	CodeRealtimeUnavailable  = "REALTIME_UNAVAILABLE"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	tag:    language.AmericanEnglish,
	messages: map[Code]string{
		// Preflight errors
		CodePreflightMismatch:    "Participant {{.Owner}} was removed: declared role {{.Declared}} conflicts with expected role {{.Expected}}",
		CodePreflightEmptyRoster: "No usable participants remain after reconciliation",
		CodePreflightPending:     "Roster validation is still in progress",

		// Turn errors
		CodeTurnInFlight:       "A turn is already in progress",
		CodeNotAuthorizedActor: "It is not your turn to act",
		CodeNodeMissing:        "The current story node could not be found",

		// Provider errors
		CodeAPIVersionLocked:    "The AI provider version is locked to {{.Locked}} for this session",
		CodeAPIKeyQuotaExceeded: "The AI key quota has been exhausted; the session cannot continue",
		CodeAPIKeyMissing:       "No AI key is configured; the session cannot continue",
		CodeAPIKeyInvalid:       "The AI key was rejected; the session cannot continue",

		// Graph routing errors
		CodeGraphNoPath:      "No path leads out of the current node; the battle has ended",
		CodeGraphMissingNext: "The next node could not be resolved; the battle has ended",

		// Session errors
		CodeSessionVoided:     "This session is no longer usable",
		CodeSessionFinalized:  "This session has already ended",
		CodeSessionNotAdopted: "No active session is available to join",
		CodeEmptyGameID:       "Game ID is required for session",

		// Storage errors
		CodeNotFound:            "The requested resource was not found",
		CodeActiveSessionExists: "An active session already exists for this game",

		// Realtime errors
		CodeRealtimeUnavailable: "The realtime connection is unavailable",
	},
}
