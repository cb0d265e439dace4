package vision

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vbonduro/pantrytrack/internal/domain"
)

// Stage names the recovery step that produced a result.
type Stage string

const (
	StageJSON     Stage = "json"
	StageLines    Stage = "lines"
	StageKeywords Stage = "keywords"
	StageNone     Stage = "none"
)

const defaultUnit = "piece"

// ParseResponse recovers candidate items from free-form model output. It
// tries, in order: the outermost {...} span as JSON, lines that look like
// item labels, and a fixed food vocabulary. It never fails; when nothing is
// recognised it returns an empty list.
func ParseResponse(raw string) ([]domain.CandidateItem, Stage) {
	if items, ok := parseJSON(raw); ok {
		return items, StageJSON
	}
	if items := parseLines(raw); len(items) > 0 {
		return items, StageLines
	}
	if items := matchVocabulary(raw); len(items) > 0 {
		return items, StageKeywords
	}
	return []domain.CandidateItem{}, StageNone
}

var trailingComma = regexp.MustCompile(`,(\s*[\]}])`)

// parseJSON reports ok when the brace span parsed as a JSON object, even if
// it held no usable items.
func parseJSON(raw string) ([]domain.CandidateItem, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	body := raw[start : end+1]

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		repaired := trailingComma.ReplaceAllString(body, "$1")
		if err := json.Unmarshal([]byte(repaired), &envelope); err != nil {
			return nil, false
		}
	}

	items := []domain.CandidateItem{}
	var list []json.RawMessage
	if err := json.Unmarshal(envelope["extractedItems"], &list); err != nil {
		return items, true
	}
	for _, el := range list {
		if c, ok := decodeCandidate(el); ok {
			items = append(items, c)
		}
	}
	return items, true
}

func decodeCandidate(data json.RawMessage) (domain.CandidateItem, bool) {
	var v struct {
		Name     string          `json:"name"`
		Category string          `json:"category"`
		Quantity json.RawMessage `json:"quantity"`
		Unit     string          `json:"unit"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return domain.CandidateItem{}, false
	}
	name := strings.TrimSpace(v.Name)
	if name == "" {
		return domain.CandidateItem{}, false
	}
	unit := strings.TrimSpace(v.Unit)
	if unit == "" {
		unit = defaultUnit
	}
	return domain.CandidateItem{
		Name:     name,
		Category: NormalizeCategory(v.Category),
		Quantity: parseQuantity(v.Quantity),
		Unit:     unit,
	}, true
}

var leadingDigits = regexp.MustCompile(`^\d+`)

// parseQuantity accepts a JSON number or a string starting with digits and
// falls back to 1.
func parseQuantity(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f >= 1 && f < math.MaxInt32 {
			return int(f)
		}
		return 1
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(leadingDigits.FindString(strings.TrimSpace(s))); err == nil && n >= 1 {
			return n
		}
	}
	return 1
}

var categoryAliases = map[string]string{
	"refrigerated":     domain.HintRefrigerated,
	"refrigerator":     domain.HintRefrigerated,
	"fridge":           domain.HintRefrigerated,
	"chilled":          domain.HintRefrigerated,
	"冷蔵":               domain.HintRefrigerated,
	"frozen":           domain.HintFrozen,
	"freezer":          domain.HintFrozen,
	"冷凍":               domain.HintFrozen,
	"vegetable":        domain.HintVegetable,
	"vegetables":       domain.HintVegetable,
	"produce":          domain.HintVegetable,
	"野菜":               domain.HintVegetable,
	"ambient":          domain.HintAmbient,
	"room temperature": domain.HintAmbient,
	"pantry":           domain.HintAmbient,
	"常温":               domain.HintAmbient,
}

// NormalizeCategory maps a model-supplied category onto the four known
// hints. Anything else becomes "", meaning absent.
func NormalizeCategory(s string) string {
	return categoryAliases[strings.ToLower(strings.TrimSpace(s))]
}

var lineHints = []string{"name", "item", "product", "名前", "品名", "商品", "食材"}

const maxLabelLen = 32

// parseLines picks up "label: value" lines whose label names an item, such
// as "Item 1: Milk" or a broken JSON line "name": "Milk". A JSON-looking line
// also gives up its category, quantity and unit.
func parseLines(raw string) []domain.CandidateItem {
	var items []domain.CandidateItem
	for _, line := range strings.Split(raw, "\n") {
		i := strings.IndexAny(line, ":：=")
		if i < 0 {
			continue
		}
		label := strings.ToLower(line[:i])
		if len(label) > maxLabelLen || !containsAny(label, lineHints) {
			continue
		}
		_, size := utf8.DecodeRuneInString(line[i:])

		value, ok := lineValue(line[i+size:])
		if !ok {
			continue
		}
		name := cleanName(value)
		if name == "" || isHintWord(name) {
			continue
		}
		items = append(items, lineCandidate(name, line))
	}
	return items
}

// lineValue returns the value part of a labelled line. A value opening with
// a quote ends at the closing quote; an unterminated quote means the reply
// was cut off mid-name and the line is dropped.
func lineValue(s string) (string, bool) {
	s = strings.TrimSpace(s)
	open, size := utf8.DecodeRuneInString(s)
	closer, quoted := quotePairs[open]
	if !quoted {
		return s, true
	}
	rest := s[size:]
	end := strings.IndexRune(rest, closer)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

var quotePairs = map[rune]rune{
	'"': '"',
	'“': '”',
	'「': '」',
	'『': '』',
}

var (
	lineCategory = regexp.MustCompile(`"category"\s*:\s*"([^"]*)"`)
	lineQuantity = regexp.MustCompile(`"quantity"\s*:\s*("[^"]*"|[0-9.]+)`)
	lineUnit     = regexp.MustCompile(`"unit"\s*:\s*"([^"]*)"`)
)

func lineCandidate(name, line string) domain.CandidateItem {
	c := domain.CandidateItem{
		Name:     name,
		Category: domain.HintRefrigerated,
		Quantity: 1,
		Unit:     defaultUnit,
	}
	if m := lineCategory.FindStringSubmatch(line); m != nil {
		if hint := NormalizeCategory(m[1]); hint != "" {
			c.Category = hint
		}
	}
	if m := lineQuantity.FindStringSubmatch(line); m != nil {
		c.Quantity = parseQuantity(json.RawMessage(m[1]))
	}
	if m := lineUnit.FindStringSubmatch(line); m != nil {
		if unit := strings.TrimSpace(m[1]); unit != "" {
			c.Unit = unit
		}
	}
	return c
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func isHintWord(s string) bool {
	lower := strings.ToLower(s)
	for _, h := range lineHints {
		if lower == h || lower == h+"s" {
			return true
		}
	}
	return false
}

// cleanName keeps letters (any script), digits and single spaces.
func cleanName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// foodVocabulary maps the display name of each term to the surface forms
// that count as a mention.
var foodVocabulary = map[string][]string{
	"Milk":     {"milk", "牛乳"},
	"Eggs":     {"egg", "eggs", "卵"},
	"Bread":    {"bread", "パン"},
	"Butter":   {"butter"},
	"Cheese":   {"cheese", "チーズ"},
	"Yogurt":   {"yogurt", "yoghurt", "ヨーグルト"},
	"Tofu":     {"tofu", "豆腐"},
	"Rice":     {"rice", "米"},
	"Chicken":  {"chicken"},
	"Beef":     {"beef"},
	"Pork":     {"pork"},
	"Meat":     {"meat", "肉"},
	"Fish":     {"fish", "魚"},
	"Salmon":   {"salmon"},
	"Tomato":   {"tomato", "tomatoes", "トマト"},
	"Cucumber": {"cucumber", "cucumbers", "きゅうり"},
	"Carrot":   {"carrot", "carrots", "にんじん"},
	"Onion":    {"onion", "onions", "たまねぎ"},
	"Potato":   {"potato", "potatoes", "じゃがいも"},
	"Cabbage":  {"cabbage", "キャベツ"},
	"Lettuce":  {"lettuce", "レタス"},
	"Spinach":  {"spinach", "ほうれん草"},
	"Apple":    {"apple", "apples"},
	"Banana":   {"banana", "bananas"},
	"Fruit":    {"fruit", "果物"},
}

var (
	vocabPattern *regexp.Regexp
	vocabLookup  = map[string]string{}
)

func init() {
	var forms []string
	for display, surfaces := range foodVocabulary {
		for _, s := range surfaces {
			vocabLookup[s] = display
			forms = append(forms, s)
		}
	}
	// Longest first so "eggs" wins over "egg".
	sort.Slice(forms, func(i, j int) bool {
		if len(forms[i]) != len(forms[j]) {
			return len(forms[i]) > len(forms[j])
		}
		return forms[i] < forms[j]
	})

	parts := make([]string, len(forms))
	for i, f := range forms {
		q := regexp.QuoteMeta(f)
		if isASCII(f) {
			q = `\b` + q + `\b`
		}
		parts[i] = q
	}
	vocabPattern = regexp.MustCompile(`(?i)` + strings.Join(parts, "|"))
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// matchVocabulary emits one candidate per distinct vocabulary term, in order
// of first mention.
func matchVocabulary(raw string) []domain.CandidateItem {
	var items []domain.CandidateItem
	seen := map[string]bool{}
	for _, m := range vocabPattern.FindAllString(raw, -1) {
		display, ok := vocabLookup[strings.ToLower(m)]
		if !ok || seen[display] {
			continue
		}
		seen[display] = true
		items = append(items, domain.CandidateItem{
			Name:     display,
			Category: domain.HintRefrigerated,
			Quantity: 1,
			Unit:     defaultUnit,
		})
	}
	return items
}
