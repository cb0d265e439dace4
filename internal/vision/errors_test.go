package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, KindRateLimited},
		{"quota message", http.StatusForbidden, `{"error":{"message":"Quota exceeded for project"}}`, KindRateLimited},
		{"resource exhausted", http.StatusInternalServerError, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, KindRateLimited},
		{"bad request image", http.StatusBadRequest, `{"error":{"message":"Unable to process input image"}}`, KindInvalidImage},
		{"payload too large", http.StatusRequestEntityTooLarge, ``, KindInvalidImage},
		{"invalid key reported as 400", http.StatusBadRequest, `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, KindConfigurationMissing},
		{"forbidden", http.StatusForbidden, `forbidden`, KindConfigurationMissing},
		{"unauthorized", http.StatusUnauthorized, ``, KindConfigurationMissing},
		{"unknown model", http.StatusNotFound, `model not found`, KindConfigurationMissing},
		{"overloaded", http.StatusServiceUnavailable, `overloaded`, KindServiceUnavailable},
		{"gateway", http.StatusBadGateway, ``, KindServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatus("gemini", tt.status, tt.body)
			assert.Equal(t, tt.want, err.Kind)
			assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.status))
		})
	}
}

func TestFromTransport(t *testing.T) {
	err := FromTransport("claude", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	assert.Equal(t, KindServiceUnavailable, err.Kind)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, err.Retryable())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("failed to analyze receipt: %w", ErrMissingAPIKey("gemini"))

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindConfigurationMissing, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestRetryableKinds(t *testing.T) {
	assert.True(t, NewError(KindServiceUnavailable, "", nil).Retryable())
	assert.True(t, NewError(KindRateLimited, "", nil).Retryable())
	assert.False(t, NewError(KindInvalidImage, "", nil).Retryable())
	assert.False(t, NewError(KindConfigurationMissing, "", nil).Retryable())
	for _, k := range []ErrorKind{KindServiceUnavailable, KindRateLimited, KindInvalidImage, KindConfigurationMissing} {
		assert.NotEmpty(t, NewError(k, "", nil).UserMessage(), k)
	}
}

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse("gemini", strings.NewReader(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	data, err = ReadResponse("gemini", strings.NewReader(strings.Repeat("a", MaxResponseBytes)))
	require.NoError(t, err)
	assert.Len(t, data, MaxResponseBytes)

	_, err = ReadResponse("gemini", strings.NewReader(strings.Repeat("a", MaxResponseBytes+1)))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindServiceUnavailable, kind)
	assert.Contains(t, err.Error(), "exceeds")
}
