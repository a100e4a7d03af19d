package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/internal/domain"
)

// Fast-pass confidence levels. At or above the LLM threshold the classifier
// returns without spending a completion call.
const (
	confidenceKnownProduct = 0.9
	confidenceComparison   = 0.85
	confidenceBrandRange   = 0.8
	confidenceCategory     = 0.6
	llmSkipThreshold       = 0.8
)

// knownProducts are exact product substrings seen often enough in query logs
// to short-circuit classification.
var knownProducts = []string{
	"cerave hydrating cleanser",
	"cerave foaming cleanser",
	"cetaphil gentle skin cleanser",
	"the ordinary niacinamide",
	"minimalist salicylic acid",
	"mamaearth ubtan face wash",
	"neutrogena hydro boost",
	"la roche-posay anthelios",
	"maybelline fit me foundation",
	"atomic habits",
	"deep work",
	"iphone 15",
	"galaxy s24",
	"sony wh-1000xm5",
}

var comparisonConnectives = []string{" vs ", " vs. ", " versus ", "compare", "difference between"}

var brandVocabulary = []string{
	"cerave", "cetaphil", "neutrogena", "nivea", "the ordinary", "minimalist",
	"mamaearth", "l'oreal", "loreal", "maybelline", "lakme", "plum", "himalaya",
	"garnier", "olay", "dove", "ponds", "biotique", "la roche-posay", "dot & key",
	"re'equil", "apple", "samsung", "sony", "oneplus",
}

var rangeKeywords = []string{"products", "range", "collection", "catalog", "catalogue", "line", "lineup", "brand"}

var categoryVocabulary = []string{
	"cleanser", "face wash", "moisturizer", "sunscreen", "serum", "toner",
	"cream", "lotion", "shampoo", "conditioner", "foundation", "concealer",
	"lipstick", "mascara", "perfume", "body wash", "hair oil",
	"book", "laptop", "phone", "headphones", "earbuds", "smartwatch",
}

// classifyResponse is the structured shape requested from the LLM refinement
// call. Field docs become schema descriptions for providers that support them.
type classifyResponse struct {
	Type       string  `json:"type" jsonschema:"enum=specific_product,enum=category,enum=comparison,enum=brand_exploration" jsonschema_description:"Query intent classification"`
	Confidence float64 `json:"confidence" jsonschema_description:"Classification confidence 0.0-1.0"`
	Entities   struct {
		ProductName     string   `json:"product_name" jsonschema_description:"Specific product mentioned, empty if none"`
		BrandName       string   `json:"brand_name" jsonschema_description:"Brand mentioned, empty if none"`
		Category        string   `json:"category" jsonschema_description:"Product category, empty if none"`
		ComparisonTerms []string `json:"comparison_terms" jsonschema_description:"Items being compared, empty if not a comparison"`
	} `json:"entities"`
}

var classifySchema = llm.GenerateSchema[classifyResponse]()

const classifySystemPrompt = `You classify product-discovery search queries for a shopping research assistant.
Classify the query as one of: specific_product (user wants one concrete product),
category (user wants the best products of a kind), comparison (user weighs two or
more items), brand_exploration (user wants a brand's catalog). Extract any brand,
product name, category, and comparison terms. Respond with JSON only.`

// Classifier determines what kind of product answer a query wants.
// A fast pattern pass handles the common shapes; ambiguous queries get one
// LLM refinement through the provider chain, fused with the pattern result.
type Classifier struct {
	chain *llm.Chain
}

func NewClassifier(chain *llm.Chain) *Classifier {
	return &Classifier{chain: chain}
}

func (c *Classifier) Classify(ctx context.Context, query string) domain.QueryIntent {
	normalized := strings.ToLower(strings.TrimSpace(query))

	intent := c.fastPass(query, normalized)
	intent.Language = detectLanguage(query)

	if intent.Confidence < llmSkipThreshold && !c.chain.Empty() {
		c.refineWithLLM(ctx, normalized, &intent)
	}

	intent.OptimizedQuery = buildOptimizedQuery(intent)
	intent.FallbackQueries = buildFallbackQueries(intent)

	slog.DebugContext(ctx, "query classified",
		"type", intent.Type,
		"confidence", intent.Confidence,
		"optimized", intent.OptimizedQuery)

	return intent
}

func (c *Classifier) fastPass(original, normalized string) domain.QueryIntent {
	intent := domain.QueryIntent{
		OriginalQuery: original,
		CategoryHints: []string{},
	}

	for _, product := range knownProducts {
		if strings.Contains(normalized, product) {
			intent.Type = domain.IntentSpecificProduct
			intent.Confidence = confidenceKnownProduct
			intent.Entities.ProductName = product
			intent.Entities.BrandName = matchBrand(normalized)
			intent.ConfidenceFactors.PatternMatch = confidenceKnownProduct
			intent.ConfidenceFactors.EntityRecognition = 0.8
			return intent
		}
	}

	for _, conn := range comparisonConnectives {
		if strings.Contains(normalized, conn) {
			intent.Type = domain.IntentComparison
			intent.Confidence = confidenceComparison
			intent.Entities.ComparisonTerms = splitComparison(normalized, conn)
			intent.ConfidenceFactors.PatternMatch = confidenceComparison
			if len(intent.Entities.ComparisonTerms) > 0 {
				intent.ConfidenceFactors.EntityRecognition = 0.8
			}
			return intent
		}
	}

	if brand := matchBrand(normalized); brand != "" {
		for _, kw := range rangeKeywords {
			if strings.Contains(normalized, kw) {
				intent.Type = domain.IntentBrandExploration
				intent.Confidence = confidenceBrandRange
				intent.Entities.BrandName = brand
				intent.ConfidenceFactors.PatternMatch = confidenceBrandRange
				intent.ConfidenceFactors.EntityRecognition = 0.8
				return intent
			}
		}
	}

	intent.Type = domain.IntentCategory
	intent.Confidence = confidenceCategory
	intent.ConfidenceFactors.PatternMatch = confidenceCategory
	for _, cat := range categoryVocabulary {
		if strings.Contains(normalized, cat) {
			intent.CategoryHints = append(intent.CategoryHints, cat)
			intent.Entities.Category = cat
			intent.ConfidenceFactors.EntityRecognition = 0.8
			break
		}
	}
	if brand := matchBrand(normalized); brand != "" {
		intent.Entities.BrandName = brand
	}

	return intent
}

// refineWithLLM fuses an LLM classification into the fast-pass result.
// The LLM wins outright only when it both disagrees on type and is more
// confident; otherwise we keep the fast-pass type at the max confidence and
// merge any entities the pattern pass missed.
func (c *Classifier) refineWithLLM(ctx context.Context, query string, intent *domain.QueryIntent) {
	var resp classifyResponse
	_, err := c.chain.CompleteJSON(ctx, llm.Request{
		SystemPrompt: classifySystemPrompt,
		UserPrompt:   fmt.Sprintf("Query: %q", query),
		SchemaName:   "classify_response",
		Schema:       classifySchema,
		Temperature:  llm.Temp(0.1),
	}, &resp)
	if err != nil {
		// All providers down: classification proceeds on patterns alone.
		slog.DebugContext(ctx, "llm classification unavailable", "error", err)
		return
	}

	llmType := domain.IntentType(resp.Type)
	switch llmType {
	case domain.IntentSpecificProduct, domain.IntentCategory, domain.IntentComparison, domain.IntentBrandExploration:
	default:
		return
	}

	intent.ConfidenceFactors.ContextualClues = resp.Confidence

	if llmType != intent.Type && resp.Confidence > intent.Confidence {
		intent.Type = llmType
		intent.Confidence = resp.Confidence
	} else if resp.Confidence > intent.Confidence {
		intent.Confidence = resp.Confidence
	}

	if intent.Entities.ProductName == "" {
		intent.Entities.ProductName = resp.Entities.ProductName
	}
	if intent.Entities.BrandName == "" {
		intent.Entities.BrandName = resp.Entities.BrandName
	}
	if intent.Entities.Category == "" {
		intent.Entities.Category = resp.Entities.Category
	}
	if len(intent.Entities.ComparisonTerms) == 0 {
		intent.Entities.ComparisonTerms = resp.Entities.ComparisonTerms
	}
	if intent.Entities.Category != "" && len(intent.CategoryHints) == 0 {
		intent.CategoryHints = []string{intent.Entities.Category}
	}
}

func buildOptimizedQuery(intent domain.QueryIntent) string {
	base := strings.TrimSpace(intent.OriginalQuery)

	var optimized string
	switch intent.Type {
	case domain.IntentSpecificProduct:
		optimized = base + ` review dermatologist -buy -shop -"add to cart" -price`
	case domain.IntentComparison:
		optimized = base + ` comparison review which is better -buy -shop`
	case domain.IntentBrandExploration:
		optimized = base + ` best products review -coupon -sale`
	default:
		if strings.HasPrefix(strings.ToLower(base), "best ") {
			optimized = base + ` review expert recommended -buy -shop`
		} else {
			optimized = "best " + base + ` review expert recommended -buy -shop`
		}
	}

	if intent.Language == domain.LanguageHindi {
		optimized += " India"
	}
	return optimized
}

func buildFallbackQueries(intent domain.QueryIntent) []string {
	base := strings.TrimSpace(intent.OriginalQuery)
	fallbacks := []string{base + " review", base}

	if intent.Entities.BrandName != "" && intent.Entities.Category != "" {
		fallbacks = append(fallbacks, intent.Entities.BrandName+" "+intent.Entities.Category)
	}

	seen := map[string]bool{intent.OptimizedQuery: true}
	out := fallbacks[:0]
	for _, f := range fallbacks {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func matchBrand(normalized string) string {
	for _, brand := range brandVocabulary {
		if strings.Contains(normalized, brand) {
			return brand
		}
	}
	return ""
}

func splitComparison(normalized, connective string) []string {
	parts := strings.Split(normalized, strings.TrimSpace(connective))
	if len(parts) < 2 {
		return nil
	}
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "difference between"))
		if p != "" {
			terms = append(terms, p)
		}
	}
	return terms
}

func detectLanguage(query string) domain.Language {
	for _, r := range query {
		if unicode.Is(unicode.Devanagari, r) {
			return domain.LanguageHindi
		}
	}
	return domain.LanguageEnglish
}
