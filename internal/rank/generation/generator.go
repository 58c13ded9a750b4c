// Package generation defines the text-generation provider contract and the
// HTTP adapter talking to it.
package generation

import (
	"context"
	"strings"

	apperrors "github.com/seolki/rankarena/internal/errors"
	"github.com/seolki/rankarena/internal/rank/domain"
)

// Request is one generation call. PromptRole is always "system" and
// ResponsePublic always true; they travel on the wire because the provider
// logs the turn on its side.
type Request struct {
	APIKey         string
	System         string
	Prompt         string
	APIVersion     string
	GeminiMode     string
	GeminiModel    string
	SessionID      string
	GameID         string
	PromptRole     string
	ResponseRole   string
	ResponsePublic bool
	History        []domain.HistoryEntry
}

// Response carries the generated text plus the provider version that actually
// served the call, used for the per-session version lock.
type Response struct {
	Text       string
	APIVersion string
}

// Generator produces one turn's narration.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// FallbackResponseText is substituted when generation fails with no usable
// text: a placeholder body, four blank separator lines, and a forced draw
// outcome line. It always parses, so a provider outage can never stall the
// turn machine.
var FallbackResponseText = strings.Join([]string{"(샘플 응답)", "", "", "", "", "무승부"}, "\n")

// IsAPIKeyError reports whether the error indicates an unusable provider key.
// Key errors void the whole session rather than aborting a single turn.
func IsAPIKeyError(err error) bool {
	switch apperrors.GetCode(err) {
	case apperrors.CodeAPIKeyQuotaExceeded, apperrors.CodeAPIKeyMissing, apperrors.CodeAPIKeyInvalid:
		return true
	}
	return false
}

// ClassifyProviderError maps a provider error string to the key-error
// taxonomy. Unrecognized strings map to CodeUnknown so generic failures stay
// retryable.
func ClassifyProviderError(providerError string) apperrors.Code {
	switch strings.TrimSpace(providerError) {
	case "quota_exhausted":
		return apperrors.CodeAPIKeyQuotaExceeded
	case "missing_user_api_key":
		return apperrors.CodeAPIKeyMissing
	case "invalid_api_key", "unauthorized":
		return apperrors.CodeAPIKeyInvalid
	default:
		return apperrors.CodeUnknown
	}
}
