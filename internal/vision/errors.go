package vision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type ErrorKind string

const (
	KindServiceUnavailable   ErrorKind = "ServiceUnavailable"
	KindRateLimited          ErrorKind = "RateLimited"
	KindInvalidImage         ErrorKind = "InvalidImage"
	KindConfigurationMissing ErrorKind = "ConfigurationMissing"
)

var userMessages = map[ErrorKind]string{
	KindServiceUnavailable:   "The receipt reader is temporarily unavailable. Please try again.",
	KindRateLimited:          "Too many receipts are being read right now. Wait a moment and try again.",
	KindInvalidImage:         "The image could not be read. Retake the photo and try again.",
	KindConfigurationMissing: "The receipt reader is not configured. An administrator must set the vision API key.",
}

// ExtractionError is a classified provider failure.
type ExtractionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed later.
func (e *ExtractionError) Retryable() bool {
	return e.Kind == KindServiceUnavailable || e.Kind == KindRateLimited
}

// UserMessage is a short actionable text for the kind.
func (e *ExtractionError) UserMessage() string {
	return userMessages[e.Kind]
}

func NewError(kind ErrorKind, message string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Message: message, Err: err}
}

// ErrMissingAPIKey is returned before any outbound call when no credential is set.
func ErrMissingAPIKey(provider string) *ExtractionError {
	return NewError(KindConfigurationMissing, provider+" API key is not set", nil)
}

// KindOf returns the kind of an *ExtractionError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *ExtractionError
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// FromStatus classifies a non-2xx provider response. Message content takes
// precedence over the status because some providers report bad credentials
// as 400.
func FromStatus(provider string, status int, body string) *ExtractionError {
	msg := fmt.Sprintf("%s returned status %d", provider, status)
	cause := errors.New(strings.TrimSpace(body))
	lower := strings.ToLower(body)

	switch {
	case strings.Contains(lower, "api key") || strings.Contains(lower, "api_key") ||
		strings.Contains(lower, "permission_denied") || strings.Contains(lower, "authentication"):
		return NewError(KindConfigurationMissing, msg, cause)
	case strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate_limit") || strings.Contains(lower, "resource_exhausted"):
		return NewError(KindRateLimited, msg, cause)
	}

	switch status {
	case http.StatusTooManyRequests:
		return NewError(KindRateLimited, msg, cause)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return NewError(KindInvalidImage, msg, cause)
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return NewError(KindConfigurationMissing, msg, cause)
	default:
		return NewError(KindServiceUnavailable, msg, cause)
	}
}

// FromTransport classifies a failure to get any response at all.
func FromTransport(provider string, err error) *ExtractionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindServiceUnavailable, provider+" timed out", err)
	}
	return NewError(KindServiceUnavailable, "failed to call "+provider, err)
}

// MaxResponseBytes bounds how much of a provider response is read.
const MaxResponseBytes = 8 << 20

// ReadResponse reads a provider response body, failing with
// ServiceUnavailable when it is longer than MaxResponseBytes.
func ReadResponse(provider string, body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseBytes+1))
	if err != nil {
		return nil, FromTransport(provider, err)
	}
	if len(data) > MaxResponseBytes {
		return nil, NewError(KindServiceUnavailable, fmt.Sprintf("%s response exceeds %d bytes", provider, MaxResponseBytes), nil)
	}
	return data, nil
}
