package brain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"glowfeed.app/discovery/internal/domain"
)

// Overall quality weights. Relevance dominates: a diverse, fresh, credible
// set of the wrong products is still the wrong answer.
const (
	weightRelevance   = 0.4
	weightDiversity   = 0.2
	weightFreshness   = 0.2
	weightCredibility = 0.2
)

const (
	fallbackQualityFloor   = 0.4
	fallbackRelevanceFloor = 0.3
)

var freshnessKeywords = []string{"latest", "new"}

// Validator scores the assembled result set post-hoc. The outcome is audit
// data plus one bit the pipeline acts on: whether a further fallback attempt
// is warranted.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

func (v *Validator) Validate(query string, results []domain.ProductResult, intent domain.QueryIntent) domain.ValidationResult {
	if len(results) == 0 {
		return domain.ValidationResult{
			Suggestions: []string{
				"No results found; a spell-corrected retry may help",
				"Consider broadening the query to a category search",
			},
			Explanation: "empty result set scores zero on all dimensions",
		}
	}

	relevance := v.relevanceScore(query, results)
	diversity := v.diversityScore(results)
	freshness := v.freshnessScore(results)
	credibility := v.credibilityScore(results)

	overall := weightRelevance*relevance +
		weightDiversity*diversity +
		weightFreshness*freshness +
		weightCredibility*credibility

	return domain.ValidationResult{
		RelevanceScore:   relevance,
		DiversityScore:   diversity,
		FreshnessScore:   freshness,
		CredibilityScore: credibility,
		OverallQuality:   overall,
		Suggestions:      v.suggestions(relevance, diversity, freshness, credibility, len(results)),
		Explanation: fmt.Sprintf(
			"relevance %.2f, diversity %.2f, freshness %.2f, credibility %.2f over %d results for %q",
			relevance, diversity, freshness, credibility, len(results), query),
	}
}

// ShouldTriggerFallback reports whether the result set is poor enough to
// spend one more bounded search attempt.
func (v *Validator) ShouldTriggerFallback(validation domain.ValidationResult) bool {
	return validation.OverallQuality < fallbackQualityFloor ||
		validation.RelevanceScore < fallbackRelevanceFloor
}

func (v *Validator) relevanceScore(query string, results []domain.ProductResult) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	qTokens := strings.Fields(q)

	var total float64
	for _, r := range results {
		var score float64
		name := strings.ToLower(r.ProductName)
		brand := strings.ToLower(r.Brand)
		summary := strings.ToLower(r.Summary)

		if q != "" && strings.Contains(name, q) {
			score += 0.4
		}
		if brand != "" && strings.Contains(q, brand) {
			score += 0.3
		}
		if len(qTokens) > 0 {
			overlap := 0
			for _, t := range qTokens {
				if strings.Contains(summary, t) {
					overlap++
				}
			}
			score += float64(overlap) / float64(len(qTokens)) * 0.3
		}
		total += clamp1(score)
	}
	return clamp1(total / float64(len(results)))
}

func (v *Validator) diversityScore(results []domain.ProductResult) float64 {
	n := float64(len(results))

	brands := map[string]bool{}
	domains := map[string]bool{}
	types := map[string]bool{}
	for _, r := range results {
		if b := strings.ToLower(r.Brand); b != "" {
			brands[b] = true
		}
		for _, src := range r.Sources {
			domains[hostOf(src.URL)] = true
		}
		types[productTypeOf(r.ProductName)] = true
	}

	brandRatio := float64(len(brands)) / n
	domainRatio := clamp1(float64(len(domains)) / (n * 2))
	variety := 0.0
	if len(types) > 1 {
		variety = 1.0
	}

	return clamp1(brandRatio*0.4 + domainRatio*0.4 + variety*0.2)
}

func (v *Validator) freshnessScore(results []domain.ProductResult) float64 {
	year := strconv.Itoa(v.now().Year())
	prior := strconv.Itoa(v.now().Year() - 1)

	var total float64
	for _, r := range results {
		score := 0.5
		text := strings.ToLower(r.ProductName + " " + r.Summary)
		switch {
		case strings.Contains(text, year):
			score += 0.3
		case strings.Contains(text, prior):
			score += 0.2
		}
		for _, src := range r.Sources {
			title := strings.ToLower(src.Title)
			if containsAnyWord(title, freshnessKeywords...) || strings.Contains(title, year) {
				score += 0.2
				break
			}
		}
		total += clamp1(score)
	}
	return clamp1(total / float64(len(results)))
}

func (v *Validator) credibilityScore(results []domain.ProductResult) float64 {
	var total float64
	for _, r := range results {
		score := 0.5
		switch {
		case r.MentionFrequency >= 3:
			score += 0.2
		case r.MentionFrequency >= 2:
			score += 0.1
		}
		score += r.QualityScore * 0.3
		for _, src := range r.Sources {
			if matchesAny(hostOf(src.URL), highQualityDomains) {
				score += 0.2
				break
			}
		}
		total += clamp1(score)
	}
	return clamp1(total / float64(len(results)))
}

func (v *Validator) suggestions(relevance, diversity, freshness, credibility float64, count int) []string {
	var out []string
	if relevance < 0.6 {
		out = append(out, "Results only loosely match the query; refine the optimized search terms")
	}
	if diversity < 0.5 {
		out = append(out, "Results cluster around few brands or sources; widen the source cap")
	}
	if freshness < 0.5 {
		out = append(out, "Sources look dated; add a current-year term to the query")
	}
	if credibility < 0.6 {
		out = append(out, "Few expert sources present; raise the source score threshold")
	}
	if count < 3 {
		out = append(out, "Fewer than three products found; consider fallback queries")
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// productTypeOf reduces a product name to its trailing type noun for the
// variety check ("CeraVe Hydrating Cleanser" -> "cleanser").
func productTypeOf(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func clamp1(f float64) float64 {
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
