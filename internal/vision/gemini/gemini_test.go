package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/pantrytrack/internal/vision"
)

func geminiReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
}

func TestGeminiExtract(t *testing.T) {
	var gotPath, gotKey string
	var gotReq request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiReply(
			`Sure! {"extractedItems":[{"name":"Tomato","category":"vegetable","quantity":2,"unit":"piece"}]}`))
	}))
	defer server.Close()

	ex := NewGeminiExtractor("key-123", "gemini-2.5-flash")
	ex.baseURL = server.URL

	res, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "key-123", gotKey)
	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 2)
	assert.Equal(t, vision.ExtractionPrompt, gotReq.Contents[0].Parts[0].Text)
	assert.Equal(t, "image/jpeg", gotReq.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, "/9g=", gotReq.Contents[0].Parts[1].InlineData.Data)

	assert.Equal(t, vision.StageJSON, res.Stage)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Tomato", res.Items[0].Name)
	assert.Contains(t, res.RawText, "Sure!")
}

func TestGeminiExtractErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   vision.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`, vision.KindRateLimited},
		{"bad key", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid."}}`, vision.KindConfigurationMissing},
		{"bad image", http.StatusBadRequest, `{"error":{"code":400,"message":"Provided image is not valid."}}`, vision.KindInvalidImage},
		{"server error", http.StatusInternalServerError, `{}`, vision.KindServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			ex := NewGeminiExtractor("key", "m")
			ex.baseURL = server.URL

			_, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")
			kind, ok := vision.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestGeminiExtractOversizeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiReply(strings.Repeat("x", vision.MaxResponseBytes)))
	}))
	defer server.Close()

	ex := NewGeminiExtractor("key", "m")
	ex.baseURL = server.URL

	_, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")
	kind, ok := vision.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vision.KindServiceUnavailable, kind)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestGeminiExtractMissingKey(t *testing.T) {
	ex := NewGeminiExtractor("", "m")
	ex.baseURL = "http://127.0.0.1:1"

	_, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")
	kind, ok := vision.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vision.KindConfigurationMissing, kind)
}

func TestGeminiExtractNetworkError(t *testing.T) {
	ex := NewGeminiExtractor("key", "m")
	ex.baseURL = "http://127.0.0.1:1"

	_, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")
	kind, ok := vision.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vision.KindServiceUnavailable, kind)
}

func TestGeminiExtractEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	ex := NewGeminiExtractor("key", "m")
	ex.baseURL = server.URL

	res, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF}), "image/jpeg")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, vision.StageNone, res.Stage)
}
