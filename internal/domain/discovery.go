package domain

import "time"

// IntentType classifies what kind of product answer the user wants.
type IntentType string

const (
	IntentSpecificProduct  IntentType = "specific_product"
	IntentCategory         IntentType = "category"
	IntentComparison       IntentType = "comparison"
	IntentBrandExploration IntentType = "brand_exploration"
)

// Language is the detected query language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// ExtractedEntities are the named pieces pulled out of a query.
type ExtractedEntities struct {
	ProductName     string   `json:"product_name,omitempty"`
	BrandName       string   `json:"brand_name,omitempty"`
	Category        string   `json:"category,omitempty"`
	ComparisonTerms []string `json:"comparison_terms,omitempty"`
}

// ConfidenceFactors records where classification confidence came from.
type ConfidenceFactors struct {
	PatternMatch      float64 `json:"pattern_match"`
	ContextualClues   float64 `json:"contextual_clues"`
	EntityRecognition float64 `json:"entity_recognition"`
}

// QueryIntent is the immutable classification of one query attempt. A fallback
// attempt with different query text re-derives a fresh intent, never mutates.
type QueryIntent struct {
	Type              IntentType        `json:"type"`
	Confidence        float64           `json:"confidence"`
	OriginalQuery     string            `json:"original_query"`
	OptimizedQuery    string            `json:"optimized_query"`
	FallbackQueries   []string          `json:"fallback_queries"`
	CategoryHints     []string          `json:"category_hints"`
	Language          Language          `json:"language_detected"`
	Entities          ExtractedEntities `json:"extracted_entities"`
	ConfidenceFactors ConfidenceFactors `json:"confidence_factors"`
}

// RawHit is one uninterpreted result from the web-search collaborator.
type RawHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SourceType buckets a web source by what kind of site it is.
type SourceType string

const (
	SourceReview    SourceType = "review"
	SourceOfficial  SourceType = "official"
	SourceForum     SourceType = "forum"
	SourceBlog      SourceType = "blog"
	SourceEcommerce SourceType = "ecommerce"
)

// ScoredSource is a search hit that survived trust/relevance scoring.
// Derived per search attempt; never persisted on its own.
type ScoredSource struct {
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Snippet      string     `json:"snippet"`
	SourceType   SourceType `json:"source_type"`
	Domain       string     `json:"domain"`
	QualityScore float64    `json:"quality_score"`
}

// MentionContext is one occurrence of a product name in fetched content.
type MentionContext struct {
	Text        string `json:"text"` // at most 1000 chars
	SourceTitle string `json:"source_title"`
	SourceURL   string `json:"source_url"`
}

// RankedProduct aggregates mentions of one normalized product name.
// Invariant: MentionCount == len(Contexts).
type RankedProduct struct {
	ProductName  string           `json:"product_name"`
	Brand        string           `json:"brand"`
	MentionCount int              `json:"mention_count"`
	QualityScore float64          `json:"quality_score"`
	Contexts     []MentionContext `json:"contexts"`
}

// Insights is the structured per-product analysis block.
type Insights struct {
	Pros          []string `json:"pros"`
	Cons          []string `json:"cons"`
	PriceRange    string   `json:"price_range"`
	OverallRating float64  `json:"overall_rating"`
	KeyFeatures   []string `json:"key_features"`
	RecommendedBy []string `json:"recommended_by"`
}

// ResultSource is the source attribution attached to a final result.
type ResultSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ProductResult is the final per-product unit returned to the caller and
// cached. Created once per ranked candidate; never mutated afterwards.
type ProductResult struct {
	ProductName      string         `json:"product_name"`
	Brand            string         `json:"brand"`
	Summary          string         `json:"summary"`
	ImageURL         *string        `json:"image_url"`
	Sources          []ResultSource `json:"sources"`
	Insights         Insights       `json:"insights"`
	MentionFrequency int            `json:"mention_frequency"`
	QualityScore     float64        `json:"quality_score"`
	APISource        string         `json:"api_source"`
	APIRef           string         `json:"api_ref"`
}

// ValidationResult scores the assembled result set. Attached to the cache
// payload for audit; only OverallQuality influences fallback decisions.
type ValidationResult struct {
	RelevanceScore   float64  `json:"relevance_score"`
	DiversityScore   float64  `json:"diversity_score"`
	FreshnessScore   float64  `json:"freshness_score"`
	CredibilityScore float64  `json:"credibility_score"`
	OverallQuality   float64  `json:"overall_quality"`
	Suggestions      []string `json:"suggestions"`
	Explanation      string   `json:"explanation"`
}

// CacheEntry is the cached outcome of one successful pipeline run, keyed by
// exact query text. Entries are fully replaced, never patched.
type CacheEntry struct {
	Query      string           `json:"query"`
	CachedAt   time.Time        `json:"cached_at"`
	Results    []ProductResult  `json:"results"`
	Validation ValidationResult `json:"validation"`
	Method     string           `json:"method"`
	Intent     IntentType       `json:"intent"`
	Sources    int              `json:"sources"`
}
