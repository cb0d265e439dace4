package vision

import (
	"context"
	"io"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

// ExtractionPrompt is the shared prompt used by all vision backends.
const ExtractionPrompt = `This is a photo of a grocery receipt. List every FOOD item on it.
Ignore non-food merchandise (bags, detergent, tissues, batteries, toiletries), totals, taxes and store details.
Respond with JSON only, in exactly this shape:
{"extractedItems":[{"name":"Tomato","category":"vegetable","quantity":2,"unit":"piece"}]}
Rules:
- name: the product name as a shopper would say it, not a receipt code.
- category: one of "refrigerated", "frozen", "vegetable", "ambient".
- quantity: a whole number of at least 1.
- unit: a counting unit such as "piece", "pack", "bottle", "bag", "g" or "kg".
If there are no food items, respond with {"extractedItems":[]}.`

// Extractor turns a receipt image into candidate items. Implementations
// return *ExtractionError for provider failures.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, mimeType string) (*Result, error)
}

// Result is the outcome of one extraction. RawText is always the model's
// full reply, even when no items could be recovered from it.
type Result struct {
	RawText string
	Items   []domain.CandidateItem
	Stage   Stage
}

// NewResult runs the recovery parser over a model reply.
func NewResult(raw string) *Result {
	items, stage := ParseResponse(raw)
	return &Result{RawText: raw, Items: items, Stage: stage}
}
