package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vbonduro/pantrytrack/internal/vision"
)

const provider = "ollama"

// OllamaExtractor talks to a local Ollama server. It needs no credentials.
type OllamaExtractor struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaExtractor(host, model string) *OllamaExtractor {
	return &OllamaExtractor{
		host:   host,
		model:  model,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (a *OllamaExtractor) Extract(ctx context.Context, r io.Reader, mimeType string) (*vision.Result, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	reqBody := map[string]interface{}{
		"model":  a.model,
		"prompt": vision.ExtractionPrompt,
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"format": "json",
		"stream": false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, vision.FromTransport(provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := vision.ReadResponse(provider, resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, vision.FromStatus(provider, resp.StatusCode, string(body))
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &respBody); err != nil {
		return nil, vision.NewError(vision.KindServiceUnavailable, "failed to decode ollama response", err)
	}

	return vision.NewResult(respBody.Response), nil
}
