package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vbonduro/pantrytrack/internal/vision"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	provider       = "gemini"
)

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type GeminiExtractor struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewGeminiExtractor(apiKey, model string) *GeminiExtractor {
	return &GeminiExtractor{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL: defaultBaseURL,
	}
}

func (g *GeminiExtractor) Extract(ctx context.Context, r io.Reader, mimeType string) (*vision.Result, error) {
	if g.apiKey == "" {
		return nil, vision.ErrMissingAPIKey(provider)
	}

	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	payload, err := json.Marshal(request{
		Contents: []content{{Parts: []part{
			{Text: vision.ExtractionPrompt},
			{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(imageData)}},
		}}},
		GenerationConfig: generationConfig{Temperature: 0.1, MaxOutputTokens: 2048},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
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

	var respBody response
	if err := json.Unmarshal(body, &respBody); err != nil {
		return nil, vision.NewError(vision.KindServiceUnavailable, "failed to decode gemini response", err)
	}

	var text strings.Builder
	if len(respBody.Candidates) > 0 {
		for _, p := range respBody.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}

	return vision.NewResult(text.String()), nil
}
