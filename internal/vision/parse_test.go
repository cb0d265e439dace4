package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vbonduro/pantrytrack/internal/domain"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantStage Stage
		want      []domain.CandidateItem
	}{
		{
			name:      "embedded JSON surrounded by prose",
			raw:       `Here are the items: {"extractedItems":[{"name":"Tomato","category":"vegetable","quantity":2,"unit":"piece"}]} Let me know if you need more.`,
			wantStage: StageJSON,
			want:      []domain.CandidateItem{{Name: "Tomato", Category: "vegetable", Quantity: 2, Unit: "piece"}},
		},
		{
			name: "fenced JSON with several items",
			raw: "```json\n{\"extractedItems\": [\n" +
				"  {\"name\": \"Milk\", \"category\": \"refrigerated\", \"quantity\": 1, \"unit\": \"bottle\"},\n" +
				"  {\"name\": \"Frozen Peas\", \"category\": \"frozen\", \"quantity\": 2, \"unit\": \"bag\"}\n" +
				"]}\n```",
			wantStage: StageJSON,
			want: []domain.CandidateItem{
				{Name: "Milk", Category: "refrigerated", Quantity: 1, Unit: "bottle"},
				{Name: "Frozen Peas", Category: "frozen", Quantity: 2, Unit: "bag"},
			},
		},
		{
			name:      "trailing commas are repaired",
			raw:       `{"extractedItems":[{"name":"Eggs","category":"refrigerated","quantity":"12","unit":"piece",},]}`,
			wantStage: StageJSON,
			want:      []domain.CandidateItem{{Name: "Eggs", Category: "refrigerated", Quantity: 12, Unit: "piece"}},
		},
		{
			name:      "missing fields take defaults",
			raw:       `{"extractedItems":[{"name":"Bread"},{"name":"Tofu","category":"dairy aisle","quantity":"a few"},{"name":"  "}]}`,
			wantStage: StageJSON,
			want: []domain.CandidateItem{
				{Name: "Bread", Category: "", Quantity: 1, Unit: "piece"},
				{Name: "Tofu", Category: "", Quantity: 1, Unit: "piece"},
			},
		},
		{
			name:      "zero and fractional quantities",
			raw:       `{"extractedItems":[{"name":"Rice","quantity":0},{"name":"Beef","quantity":1.5}]}`,
			wantStage: StageJSON,
			want: []domain.CandidateItem{
				{Name: "Rice", Quantity: 1, Unit: "piece"},
				{Name: "Beef", Quantity: 1, Unit: "piece"},
			},
		},
		{
			name:      "extractedItems missing is an empty list",
			raw:       `{"items":[{"name":"Milk"}]}`,
			wantStage: StageJSON,
			want:      []domain.CandidateItem{},
		},
		{
			name:      "extractedItems not a list is an empty list",
			raw:       `{"extractedItems":"none"}`,
			wantStage: StageJSON,
			want:      []domain.CandidateItem{},
		},
		{
			name:      "explicitly empty list does not fall through to keywords",
			raw:       `No milk on this receipt. {"extractedItems":[]}`,
			wantStage: StageJSON,
			want:      []domain.CandidateItem{},
		},
		{
			name:      "broken JSON falls back to item lines",
			raw:       "{\"extractedItems\": [\n  \"name\": \"Greek Yogurt\",\n  \"name\": \"Rye Crackers\"\n",
			wantStage: StageLines,
			want: []domain.CandidateItem{
				{Name: "Greek Yogurt", Category: "refrigerated", Quantity: 1, Unit: "piece"},
				{Name: "Rye Crackers", Category: "refrigerated", Quantity: 1, Unit: "piece"},
			},
		},
		{
			name: "reply cut off at the token limit keeps whole objects per line",
			raw: "{\"extractedItems\":[\n" +
				"{\"name\": \"Milk\", \"category\": \"refrigerated\", \"quantity\": 1, \"unit\": \"carton\"},\n" +
				"{\"name\": \"Frozen Peas\", \"category\": \"frozen\", \"quantity\": \"2\", \"unit\": \"bag\"},\n" +
				"{\"name\": \"Carr",
			wantStage: StageLines,
			want: []domain.CandidateItem{
				{Name: "Milk", Category: "refrigerated", Quantity: 1, Unit: "carton"},
				{Name: "Frozen Peas", Category: "frozen", Quantity: 2, Unit: "bag"},
			},
		},
		{
			name:      "quoted japanese value",
			raw:       "商品名：「国産 にんじん」 2本",
			wantStage: StageLines,
			want:      []domain.CandidateItem{{Name: "国産 にんじん", Category: "refrigerated", Quantity: 1, Unit: "piece"}},
		},
		{
			name:      "labelled lines in prose",
			raw:       "I found these:\nItem 1: Oat milk (1L)\nProduct: Sourdough!!\nTotal: 12.40",
			wantStage: StageLines,
			want: []domain.CandidateItem{
				{Name: "Oat milk 1L", Category: "refrigerated", Quantity: 1, Unit: "piece"},
				{Name: "Sourdough", Category: "refrigerated", Quantity: 1, Unit: "piece"},
			},
		},
		{
			name:      "japanese labels",
			raw:       "品名：ほうれん草\n金額：198",
			wantStage: StageLines,
			want:      []domain.CandidateItem{{Name: "ほうれん草", Category: "refrigerated", Quantity: 1, Unit: "piece"}},
		},
		{
			name:      "keyword fallback in order of mention",
			raw:       "The receipt shows TOMATOES, some milk, eggs and more tomatoes.",
			wantStage: StageKeywords,
			want: []domain.CandidateItem{
				{Name: "Tomato", Category: "refrigerated", Quantity: 1, Unit: "piece"},
				{Name: "Milk", Category: "refrigerated", Quantity: 1, Unit: "piece"},
				{Name: "Eggs", Category: "refrigerated", Quantity: 1, Unit: "piece"},
			},
		},
		{
			name:      "keyword needs word boundaries",
			raw:       "Total price 4.20, thank you",
			wantStage: StageNone,
			want:      []domain.CandidateItem{},
		},
		{
			name:      "prose with item words but no labels or food",
			raw:       "I could not find any items on this receipt. The image is blurry.",
			wantStage: StageNone,
			want:      []domain.CandidateItem{},
		},
		{
			name:      "empty reply",
			raw:       "",
			wantStage: StageNone,
			want:      []domain.CandidateItem{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stage := ParseResponse(tt.raw)
			assert.Equal(t, tt.wantStage, stage)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"vegetable", domain.HintVegetable},
		{" Frozen ", domain.HintFrozen},
		{"REFRIGERATED", domain.HintRefrigerated},
		{"room temperature", domain.HintAmbient},
		{"冷凍", domain.HintFrozen},
		{"snacks", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCategory(tt.in))
		})
	}
}

func TestNewResultKeepsRawText(t *testing.T) {
	res := NewResult("nothing useful")
	assert.Equal(t, "nothing useful", res.RawText)
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.Equal(t, StageNone, res.Stage)
}
