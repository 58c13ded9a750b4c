// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Preflight errors
	CodePreflightMismatch    Code = "PREFLIGHT_MISMATCH"
	CodePreflightEmptyRoster Code = "PREFLIGHT_EMPTY_ROSTER"
	CodePreflightPending     Code = "PREFLIGHT_PENDING"

	// Turn errors
	CodeTurnInFlight       Code = "TURN_IN_FLIGHT"
	CodeNotAuthorizedActor Code = "NOT_AUTHORIZED_ACTOR"
	CodeNodeMissing        Code = "NODE_MISSING"

	// Provider errors
	CodeAPIVersionLocked    Code = "API_VERSION_LOCKED"
	CodeAPIKeyQuotaExceeded Code = "API_KEY_QUOTA_EXHAUSTED"
	CodeAPIKeyMissing       Code = "API_KEY_MISSING"
	CodeAPIKeyInvalid       Code = "API_KEY_INVALID"

	// Graph routing errors
	CodeGraphNoPath      Code = "GRAPH_NO_PATH"
	CodeGraphMissingNext Code = "GRAPH_MISSING_NEXT"

	// Session errors
	CodeSessionVoided     Code = "SESSION_VOIDED"
	CodeSessionFinalized  Code = "SESSION_FINALIZED"
	CodeSessionNotAdopted Code = "SESSION_NOT_ADOPTED"
	CodeEmptyGameID       Code = "SESSION_EMPTY_GAME_ID"

	// Storage errors
	CodeNotFound            Code = "NOT_FOUND"
	CodeActiveSessionExists Code = "ACTIVE_SESSION_EXISTS"

	// Realtime errors
	CodeRealtimeUnavailable Code = "REALTIME_UNAVAILABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodePreflightMismatch,
		CodePreflightEmptyRoster,
		CodeEmptyGameID:
		return codes.InvalidArgument

	// PermissionDenied - actor is not allowed to act
	case CodeNotAuthorizedActor:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeTurnInFlight,
		CodePreflightPending,
		CodeAPIVersionLocked,
		CodeSessionVoided,
		CodeSessionFinalized,
		CodeSessionNotAdopted,
		CodeActiveSessionExists,
		CodeGraphNoPath,
		CodeGraphMissingNext:
		return codes.FailedPrecondition

	// ResourceExhausted - provider quota
	case CodeAPIKeyQuotaExceeded:
		return codes.ResourceExhausted

	// Unauthenticated - provider credentials
	case CodeAPIKeyMissing,
		CodeAPIKeyInvalid:
		return codes.Unauthenticated

	// NotFound - resource doesn't exist
	case CodeNodeMissing,
		CodeNotFound:
		return codes.NotFound

	// Unavailable - transport is down
	case CodeRealtimeUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}
