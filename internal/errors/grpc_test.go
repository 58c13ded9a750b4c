package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		code codes.Code
		want int
	}{
		{name: "not found", code: codes.NotFound, want: http.StatusNotFound},
		{name: "bad input", code: codes.InvalidArgument, want: http.StatusBadRequest},
		{name: "forbidden", code: codes.PermissionDenied, want: http.StatusForbidden},
		{name: "precondition", code: codes.FailedPrecondition, want: http.StatusConflict},
		{name: "quota", code: codes.ResourceExhausted, want: http.StatusTooManyRequests},
		{name: "credentials", code: codes.Unauthenticated, want: http.StatusUnauthorized},
		{name: "transport down", code: codes.Unavailable, want: http.StatusServiceUnavailable},
		{name: "internal", code: codes.Internal, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.code); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWriteHTTPRendersDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := New(CodeNotFound, "session missing").WithMetadata(map[string]string{"ID": "s1"})

	if !WriteHTTP(rec, err, DefaultLocale) {
		t.Fatal("expected error to be written")
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body == "" {
		t.Fatal("expected a response body")
	}
}

func TestWriteHTTPHidesPlainErrorDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	cause := stderrors.New("dial tcp: connection refused")

	if !WriteHTTP(rec, cause, DefaultLocale) {
		t.Fatal("expected error to be written")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "dial tcp") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestWriteHTTPNilError(t *testing.T) {
	rec := httptest.NewRecorder()
	if WriteHTTP(rec, nil, DefaultLocale) {
		t.Fatal("nil error must not be written")
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}
