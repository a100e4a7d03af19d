package search

import "strings"

// corrections is a static substitution table of misspellings seen in real
// query logs. Applied word-wise against the original query, not the optimized
// one, since the optimizer only ever appends terms.
var corrections = map[string]string{
	"habbit":     "habits",
	"habbits":    "habits",
	"serave":     "cerave",
	"cerava":     "cerave",
	"nivia":      "nivea",
	"loreal":     "l'oreal",
	"maybeline":  "maybelline",
	"neutrogina": "neutrogena",
	"nutrogena":  "neutrogena",
	"minimilist": "minimalist",
	"mamaerth":   "mamaearth",
	"mamearth":   "mamaearth",
	"sunscren":   "sunscreen",
	"sunscreeen": "sunscreen",
	"moisturiser": "moisturizer",
	"moistrizer":  "moisturizer",
	"cleansar":    "cleanser",
	"serumm":      "serum",
	"shampo":      "shampoo",
	"contitioner": "conditioner",
	"fundation":   "foundation",
	"conceler":    "concealer",
	"lipstik":     "lipstick",
	"perfum":      "perfume",
}

// Corrections returns zero or more corrected variants of query. Variants that
// equal the input are dropped, so a clean query yields an empty slice.
func Corrections(query string) []string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(words) == 0 {
		return nil
	}

	var variants []string
	seen := map[string]bool{strings.Join(words, " "): true}

	for i, w := range words {
		fixed, ok := corrections[w]
		if !ok || fixed == w {
			continue
		}
		variant := make([]string, len(words))
		copy(variant, words)
		variant[i] = fixed
		candidate := strings.Join(variant, " ")
		if !seen[candidate] {
			seen[candidate] = true
			variants = append(variants, candidate)
		}
	}

	// One combined variant when several words were individually fixable.
	if len(variants) > 1 {
		all := make([]string, len(words))
		for i, w := range words {
			if fixed, ok := corrections[w]; ok {
				all[i] = fixed
			} else {
				all[i] = w
			}
		}
		candidate := strings.Join(all, " ")
		if !seen[candidate] {
			variants = append(variants, candidate)
		}
	}

	return variants
}
