package brain

import (
	"sort"
	"strings"

	"glowfeed.app/discovery/internal/domain"
)

// topCandidates bounds the cost of the analysis stage: one LLM call per
// surviving candidate.
const topCandidates = 5

// MentionGroup accumulates the contexts for one normalized product name.
// Contexts are append-only during extraction; Display keeps the longest
// original casing seen.
type MentionGroup struct {
	Display  string
	Contexts []domain.MentionContext
}

// Ranker aggregates grouped mentions into a ranked candidate list.
type Ranker struct{}

func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank orders groups by mentionCount * qualityScore descending and keeps the
// top 5. The quality score is a crude proxy (mention volume plus source title
// length) used when no richer per-mention confidence is available.
func (r *Ranker) Rank(groups map[string]*MentionGroup) []domain.RankedProduct {
	ranked := make([]domain.RankedProduct, 0, len(groups))
	for _, g := range groups {
		count := len(g.Contexts)
		if count == 0 {
			continue
		}

		var titleLen int
		for _, c := range g.Contexts {
			titleLen += len(c.SourceTitle)
		}
		avgTitleLen := float64(titleLen) / float64(count)

		quality := float64(count)*0.2 + avgTitleLen*0.001

		ranked = append(ranked, domain.RankedProduct{
			ProductName:  g.Display,
			Brand:        guessBrand(g.Display),
			MentionCount: count,
			QualityScore: quality,
			Contexts:     g.Contexts,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si := float64(ranked[i].MentionCount) * ranked[i].QualityScore
		sj := float64(ranked[j].MentionCount) * ranked[j].QualityScore
		if si != sj {
			return si > sj
		}
		// Ties go to the longer, more descriptive name.
		return len(ranked[i].ProductName) > len(ranked[j].ProductName)
	})

	if len(ranked) > topCandidates {
		ranked = ranked[:topCandidates]
	}
	return ranked
}

func guessBrand(productName string) string {
	lower := strings.ToLower(productName)
	for _, brand := range brandVocabulary {
		if strings.HasPrefix(lower, brand) {
			return productName[:len(brand)]
		}
	}
	if fields := strings.Fields(productName); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
