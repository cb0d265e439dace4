package reconcile

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// Receipts often print these labels for loose produce instead of a product
// name. A label is generic only when it is made up entirely of markers, once
// bracketed notes, prices and quantities are removed.
var genericMarkers = []string{
	"fresh produce",
	"produce",
	"assorted",
	"mixed vegetables",
	"mixed veg",
	"fresh vegetables",
	"farm direct",
	"direct from farm",
	"seasonal vegetables",
	"vegetables",
	"vegetable",
	"veg",
	"青果",
	"野菜",
	"詰め合わせ",
	"産地直送",
}

// quantityWords may trail a label after its number, as in "Produce 2 kg".
var quantityWords = map[string]bool{
	"x": true, "g": true, "kg": true, "lb": true, "lbs": true, "oz": true,
	"pc": true, "pcs": true, "pack": true, "packs": true, "bag": true, "bags": true,
	"個": true, "本": true, "袋": true, "パック": true, "円": true, "点": true,
}

var bracketed = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|（[^）]*）|【[^】]*】|「[^」]*」`)

var markerTokens = func() [][]string {
	out := make([][]string, len(genericMarkers))
	for i, m := range genericMarkers {
		out[i] = strings.Fields(m)
	}
	return out
}()

// VegetableChoices is the curated list a generic produce name must be
// replaced from.
var VegetableChoices = []string{
	"Tomato",
	"Cucumber",
	"Carrot",
	"Onion",
	"Potato",
	"Cabbage",
	"Lettuce",
	"Spinach",
	"Broccoli",
	"Bell Pepper",
	"Eggplant",
	"Daikon",
	"Green Onion",
	"Mushroom",
	"Sweet Potato",
	"Pumpkin",
	"Bean Sprouts",
	"Zucchini",
}

// IsGenericName reports whether name is a generic produce label such as
// "Fresh Produce", "野菜 (国産)" or "Assorted Vegetables 2 kg". Names that
// merely contain a marker, like "野菜ジュース" or "Assorted Chocolates", are
// concrete.
func IsGenericName(name string) bool {
	tokens := labelTokens(name)
	if len(tokens) == 0 {
		return false
	}

	// reach[i] means tokens[:i] is covered by markers.
	reach := make([]bool, len(tokens)+1)
	reach[0] = true
	for i := range tokens {
		if !reach[i] {
			continue
		}
		for _, m := range markerTokens {
			if len(m) > 1 && slices.Equal(tokens[i:min(i+len(m), len(tokens))], m) {
				reach[i+len(m)] = true
			}
		}
		if joinsMarkers(tokens[i]) {
			reach[i+1] = true
		}
	}
	return reach[len(tokens)]
}

// labelTokens lowercases name, drops bracketed notes and splits it on
// anything that is not a letter. Quantity words after the first token are
// dropped.
func labelTokens(name string) []string {
	s := bracketed.ReplaceAllString(strings.ToLower(name), " ")
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r)
	})
	tokens := fields[:0]
	for i, f := range fields {
		if i > 0 && quantityWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// joinsMarkers reports whether token is one or more single-word markers
// written without spaces, as in "野菜詰め合わせ".
func joinsMarkers(token string) bool {
	reach := make([]bool, len(token)+1)
	reach[0] = true
	for i := 0; i < len(token); i++ {
		if !reach[i] {
			continue
		}
		for _, m := range markerTokens {
			if len(m) == 1 && strings.HasPrefix(token[i:], m[0]) {
				reach[i+len(m[0])] = true
			}
		}
	}
	return reach[len(token)]
}

// IsVegetableChoice reports whether name is on the curated list, ignoring case.
func IsVegetableChoice(name string) bool {
	return slices.ContainsFunc(VegetableChoices, func(c string) bool {
		return strings.EqualFold(c, strings.TrimSpace(name))
	})
}
