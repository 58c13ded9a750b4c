package errors

import (
	stderrors "errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/seolki/rankarena/internal/errors/i18n"
)

// DefaultLocale is used when a caller does not negotiate a locale.
const DefaultLocale = "en-US"

// HandleError converts any error into a gRPC status error with a message
// localized for the requested locale. Structured errors carry their own code
// and metadata; everything else collapses to Internal with a generic message
// so internals never leak to clients.
func HandleError(err error, locale string) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if !stderrors.As(err, &appErr) {
		return status.Error(codes.Internal, "an unexpected error occurred")
	}

	catalog := i18n.GetCatalog(locale)
	userMsg := catalog.Format(string(appErr.Code), appErr.Metadata)
	return appErr.ToGRPCStatus(userMsg)
}

// HTTPStatus maps a gRPC code to the HTTP status the arena REST surface
// serves for it.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteHTTP renders err as a localized HTTP error response. The status code
// follows the error's gRPC code; nil errors write nothing and report false.
func WriteHTTP(w http.ResponseWriter, err error, locale string) bool {
	if err == nil {
		return false
	}
	st := status.Convert(HandleError(err, locale))
	http.Error(w, st.Message(), HTTPStatus(st.Code()))
	return true
}

// GetCode extracts the domain code from an error chain. Plain errors report
// CodeUnknown.
func GetCode(err error) Code {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsCode reports whether the error chain carries the given domain code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata extracts structured metadata from an error chain, or nil.
func GetMetadata(err error) map[string]string {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Metadata
	}
	return nil
}
