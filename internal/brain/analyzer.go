package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/internal/domain"
)

const analyzeContextLimit = 3000

const analyzeSystemPrompt = `You summarize what expert sources say about one product for a
product research assistant. Using only the provided mention contexts, produce
a two-sentence summary and structured insights. Use empty arrays and empty
strings for anything the contexts do not support; never invent details.
Respond with JSON only.`

type analyzeResponse struct {
	Summary  string `json:"summary" jsonschema_description:"Two-sentence neutral summary of what sources say"`
	Insights struct {
		Pros          []string `json:"pros" jsonschema_description:"Positive points sources agree on"`
		Cons          []string `json:"cons" jsonschema_description:"Drawbacks sources mention"`
		PriceRange    string   `json:"price_range" jsonschema_description:"Price range if stated, else empty"`
		OverallRating float64  `json:"overall_rating" jsonschema_description:"Consensus rating 0-5, 0 if unknown"`
		KeyFeatures   []string `json:"key_features" jsonschema_description:"Distinguishing features"`
		RecommendedBy []string `json:"recommended_by" jsonschema_description:"Who recommends it, e.g. dermatologists"`
	} `json:"insights"`
}

var analyzeSchema = llm.GenerateSchema[analyzeResponse]()

// Analyzer produces the structured per-product analysis. It never fails: when
// every provider is down it emits a deterministic templated summary instead.
type Analyzer struct {
	chain *llm.Chain
}

func NewAnalyzer(chain *llm.Chain) *Analyzer {
	return &Analyzer{chain: chain}
}

// Analyze returns the summary and insights for one ranked candidate.
func (a *Analyzer) Analyze(ctx context.Context, product domain.RankedProduct) (string, domain.Insights) {
	var resp analyzeResponse
	_, err := a.chain.CompleteJSON(ctx, llm.Request{
		SystemPrompt: analyzeSystemPrompt,
		UserPrompt: fmt.Sprintf("Product: %s\nMentioned %d times.\n\nContexts:\n%s",
			product.ProductName, product.MentionCount, joinedContexts(product)),
		SchemaName:  "product_analysis",
		Schema:      analyzeSchema,
		Temperature: llm.Temp(0.2),
	}, &resp)
	if err != nil {
		slog.InfoContext(ctx, "llm analysis unavailable, using template",
			"product", product.ProductName, "error", err)
		return templatedSummary(product), emptyInsights()
	}

	insights := domain.Insights{
		Pros:          orEmpty(resp.Insights.Pros),
		Cons:          orEmpty(resp.Insights.Cons),
		PriceRange:    resp.Insights.PriceRange,
		OverallRating: resp.Insights.OverallRating,
		KeyFeatures:   orEmpty(resp.Insights.KeyFeatures),
		RecommendedBy: orEmpty(resp.Insights.RecommendedBy),
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		summary = templatedSummary(product)
	}
	return summary, insights
}

func joinedContexts(product domain.RankedProduct) string {
	var sb strings.Builder
	for _, c := range product.Contexts {
		if sb.Len() >= analyzeContextLimit {
			break
		}
		sb.WriteString("- [")
		sb.WriteString(c.SourceTitle)
		sb.WriteString("] ")
		sb.WriteString(c.Text)
		sb.WriteByte('\n')
	}
	s := sb.String()
	if len(s) > analyzeContextLimit {
		s = s[:analyzeContextLimit]
	}
	return s
}

func templatedSummary(product domain.RankedProduct) string {
	return fmt.Sprintf("%s mentioned %d times across expert sources.",
		product.ProductName, product.MentionCount)
}

func emptyInsights() domain.Insights {
	return domain.Insights{
		Pros:          []string{},
		Cons:          []string{},
		KeyFeatures:   []string{},
		RecommendedBy: []string{},
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
