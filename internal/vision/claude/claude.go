package claude

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vbonduro/pantrytrack/internal/vision"
)

const provider = "claude"

// maxTokens leaves room for a long receipt (≈60 lines at ~25 tokens each).
const maxTokens = 2048

type ClaudeExtractor struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewClaudeExtractor(apiKey, model string) *ClaudeExtractor {
	return &ClaudeExtractor{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

func (a *ClaudeExtractor) newClient() *anthropic.Client {
	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(a.client)}
	if a.baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(a.baseURL))
	}
	return anthropic.NewClient(a.apiKey, opts...)
}

func (a *ClaudeExtractor) Extract(ctx context.Context, r io.Reader, mimeType string) (*vision.Result, error) {
	if a.apiKey == "" {
		return nil, vision.ErrMissingAPIKey(provider)
	}

	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := a.newClient().CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					imageData,
				)),
				anthropic.NewTextMessageContent(vision.ExtractionPrompt),
			},
		}},
	})
	if err != nil {
		return nil, classify(err)
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			text.WriteString(c.GetText())
		}
	}

	return vision.NewResult(text.String()), nil
}

// classify maps go-anthropic errors onto extraction error kinds.
func classify(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		msg := "claude: " + apiErr.Message
		switch string(apiErr.Type) {
		case "authentication_error", "permission_error", "not_found_error":
			return vision.NewError(vision.KindConfigurationMissing, msg, err)
		case "rate_limit_error":
			return vision.NewError(vision.KindRateLimited, msg, err)
		case "invalid_request_error", "request_too_large":
			return vision.NewError(vision.KindInvalidImage, msg, err)
		default:
			return vision.NewError(vision.KindServiceUnavailable, msg, err)
		}
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return vision.FromStatus(provider, reqErr.StatusCode, err.Error())
	}

	return vision.FromTransport(provider, err)
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// The Anthropic API accepts only jpeg, png, gif, and webp. Unknown types are
// coerced to jpeg as the most universally supported lossy fallback.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
