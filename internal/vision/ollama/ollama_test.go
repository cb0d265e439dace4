package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/pantrytrack/internal/vision"
)

func TestOllamaExtract(t *testing.T) {
	// Create a test server that mimics Ollama
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req struct {
			Model  string   `json:"model"`
			Images []string `json:"images"`
			Format string   `json:"format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Len(t, req.Images, 1)
		assert.Equal(t, "json", req.Format)

		resp := map[string]interface{}{
			"model":    req.Model,
			"response": `{"extractedItems":[{"name":"Carrot","category":"vegetable","quantity":3,"unit":"piece"}]}`,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	ex := NewOllamaExtractor(server.URL, "llava")

	imageData := []byte{0xFF, 0xD8, 0xFF, 0xE0} // JPEG header
	result, err := ex.Extract(context.Background(), bytes.NewReader(imageData), "image/jpeg")

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Carrot", result.Items[0].Name)
	assert.Equal(t, 3, result.Items[0].Quantity)
	assert.Equal(t, vision.StageJSON, result.Stage)
}

func TestOllamaExtractNetworkError(t *testing.T) {
	ex := NewOllamaExtractor("http://localhost:99999", "llava")

	_, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")

	kind, ok := vision.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vision.KindServiceUnavailable, kind)
}

func TestOllamaExtractServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ex := NewOllamaExtractor(server.URL, "llava")

	_, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")

	kind, ok := vision.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vision.KindServiceUnavailable, kind)
}

func TestOllamaExtractUnknownModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model \"llava\" not found, try pulling it first"}`, http.StatusNotFound)
	}))
	defer server.Close()

	ex := NewOllamaExtractor(server.URL, "llava")

	_, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	kind, _ := vision.KindOf(err)
	assert.Equal(t, vision.KindConfigurationMissing, kind)
}

func TestOllamaExtractOversizeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"response":"`)
		_, _ = io.WriteString(w, strings.Repeat("x", vision.MaxResponseBytes))
		_, _ = io.WriteString(w, `"}`)
	}))
	defer server.Close()

	ex := NewOllamaExtractor(server.URL, "llava")

	_, err := ex.Extract(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8}), "image/jpeg")
	kind, ok := vision.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, vision.KindServiceUnavailable, kind)
}

func TestOllamaExtractReadError(t *testing.T) {
	ex := NewOllamaExtractor("http://localhost:11434", "llava")

	_, err := ex.Extract(context.Background(), &errReader{}, "image/jpeg")
	assert.Error(t, err)
}

type errReader struct{}

func (e *errReader) Read(_ []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
