package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/seolki/rankarena/internal/errors"
)

// HTTPClientConfig configures the generation endpoint and HTTP behavior.
type HTTPClientConfig struct {
	EndpointURL string
	HTTPClient  *http.Client
}

type httpClient struct {
	cfg HTTPClientConfig
}

// NewHTTPClient builds a Generator backed by the provider's HTTP endpoint.
func NewHTTPClient(cfg HTTPClientConfig) Generator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &httpClient{cfg: cfg}
}

type invokeRequest struct {
	APIKey         string        `json:"apiKey"`
	System         string        `json:"system"`
	Prompt         string        `json:"prompt"`
	APIVersion     string        `json:"apiVersion"`
	GeminiMode     string        `json:"geminiMode,omitempty"`
	GeminiModel    string        `json:"geminiModel,omitempty"`
	SessionID      string        `json:"session_id"`
	GameID         string        `json:"game_id"`
	PromptRole     string        `json:"prompt_role"`
	ResponseRole   string        `json:"response_role"`
	ResponsePublic bool          `json:"response_public"`
	History        []invokeEntry `json:"history"`
}

type invokeEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Data  struct {
		Text       string `json:"text"`
		APIVersion string `json:"apiVersion"`
	} `json:"data"`
}

func (c *httpClient) Generate(ctx context.Context, req Request) (Response, error) {
	endpoint := strings.TrimSpace(c.cfg.EndpointURL)
	if endpoint == "" {
		return Response{}, apperrors.New(apperrors.CodeUnknown, "generation endpoint is not configured")
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return Response{}, apperrors.New(apperrors.CodeAPIKeyMissing, "api key is required")
	}

	payload := invokeRequest{
		APIKey:         req.APIKey,
		System:         req.System,
		Prompt:         req.Prompt,
		APIVersion:     req.APIVersion,
		GeminiMode:     req.GeminiMode,
		GeminiModel:    req.GeminiModel,
		SessionID:      req.SessionID,
		GameID:         req.GameID,
		PromptRole:     "system",
		ResponseRole:   req.ResponseRole,
		ResponsePublic: true,
	}
	for _, entry := range req.History {
		payload.History = append(payload.History, invokeEntry{Role: entry.Role, Content: entry.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.CodeUnknown, "marshal generation request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.CodeUnknown, "build generation request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Key material travels only in the body; it is never echoed in errors.

	res, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.CodeUnknown, "generation request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return Response{}, apperrors.New(apperrors.CodeAPIKeyInvalid, "provider rejected the api key")
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return Response{}, apperrors.New(apperrors.CodeAPIKeyQuotaExceeded, "provider quota exhausted")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, readErr := io.ReadAll(io.LimitReader(res.Body, 4096))
		if readErr != nil {
			return Response{}, apperrors.Wrap(apperrors.CodeUnknown, "read generation error body", readErr)
		}
		return Response{}, apperrors.Newf(apperrors.CodeUnknown, "generation request status %d: %s",
			res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded invokeResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return Response{}, apperrors.Wrap(apperrors.CodeUnknown, "decode generation response", err)
	}
	if !decoded.OK {
		code := ClassifyProviderError(decoded.Error)
		return Response{}, apperrors.Newf(code, "generation failed: %s", strings.TrimSpace(decoded.Error))
	}
	return Response{
		Text:       decoded.Data.Text,
		APIVersion: strings.TrimSpace(decoded.Data.APIVersion),
	}, nil
}
