package brain_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/core/config"
	"glowfeed.app/discovery/internal/brain"
	"glowfeed.app/discovery/internal/domain"
	"glowfeed.app/discovery/internal/search"
)

// recordingProvider returns the same canned hits for every query and records
// what was asked.
type recordingProvider struct {
	hits    func(query string) []domain.RawHit
	queries []string
}

func (p *recordingProvider) Search(_ context.Context, q string, _ domain.Language) ([]domain.RawHit, error) {
	p.queries = append(p.queries, q)
	return p.hits(q), nil
}

func newOrchestrator(chain *llm.Chain, provider search.Provider) *brain.Orchestrator {
	return brain.NewOrchestrator(
		brain.NewClassifier(chain),
		search.NewExecutor(provider),
		brain.NewFetcher(200*time.Millisecond),
		brain.NewExtractor(chain),
		brain.NewAnalyzer(chain),
		config.PipelineConfig{
			Concurrency:  2,
			FetchTimeout: 200 * time.Millisecond,
			LLMTimeout:   time.Second,
		},
	)
}

var _ = Describe("Orchestrator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("without any LLM provider", func() {
		It("completes end to end on the regex and template fallbacks", func() {
			// Page fetches against .invalid hosts fail, so extraction runs
			// on the snippets.
			provider := &recordingProvider{hits: func(string) []domain.RawHit {
				return []domain.RawHit{
					{
						Title:   "CeraVe Hydrating Cleanser review",
						URL:     "https://skinlab.invalid/review/cerave-hydrating-cleanser",
						Snippet: "Dermatologists recommend the CeraVe Hydrating Cleanser for dry skin.",
					},
					{
						Title:   "Cleansers Collection",
						URL:     "https://brandsite.invalid/collections/cleansers",
						Snippet: "Shop all cleansers.",
					},
				}
			}}

			report := newOrchestrator(llm.NewChain(), provider).Discover(ctx, "CeraVe Hydrating Cleanser")

			Expect(report.Intent.Type).To(Equal(domain.IntentSpecificProduct))
			Expect(report.SourcesAnalyzed).To(Equal(1), "listing page should be filtered out")
			Expect(report.APISource).To(Equal("regex_fallback"))

			Expect(report.Results).To(HaveLen(1))
			result := report.Results[0]
			Expect(result.ProductName).To(Equal("CeraVe Hydrating Cleanser"))
			Expect(result.Brand).To(Equal("CeraVe"))
			Expect(result.Summary).To(ContainSubstring("mentioned 1 times across expert sources"))
			Expect(result.MentionFrequency).To(Equal(1))
			Expect(result.APISource).To(Equal("regex_fallback"))
			Expect(result.APIRef).NotTo(BeEmpty())
			Expect(result.ImageURL).To(BeNil())
			Expect(result.Sources).To(HaveLen(1))
			Expect(result.Sources[0].URL).To(Equal("https://skinlab.invalid/review/cerave-hydrating-cleanser"))

			Expect(report.Validation.OverallQuality).To(BeNumerically(">", 0))
		})
	})

	Describe("with a working LLM provider", func() {
		It("marks results as llm-produced", func() {
			stub := &stubLLM{reply: `["CeraVe Hydrating Cleanser"]`}
			provider := &recordingProvider{hits: func(string) []domain.RawHit {
				return []domain.RawHit{{
					Title:   "Cleanser notes review",
					URL:     "https://skinlab.invalid/review/cleansers",
					Snippet: "Notes about gentle cleansers.",
				}}
			}}

			// The stub answers classification, extraction, and analysis with
			// the same array; analysis unmarshal fails on it, which exercises
			// the template path while extraction still succeeds.
			report := newOrchestrator(llm.NewChain(stub), provider).Discover(ctx, "gentle cleanser")

			Expect(report.APISource).To(Equal("llm"))
			Expect(report.Results).To(HaveLen(1))
			Expect(report.Results[0].APISource).To(Equal("llm"))
		})
	})

	Describe("spell-corrected rerun", func() {
		It("retries a corrected query after an empty low-quality run", func() {
			provider := &recordingProvider{hits: func(string) []domain.RawHit { return nil }}

			report := newOrchestrator(llm.NewChain(), provider).Discover(ctx, "atomic habbit")

			Expect(report.Results).To(BeEmpty())

			corrected := false
			for _, q := range provider.queries {
				if strings.Contains(q, "atomic habits") {
					corrected = true
				}
			}
			Expect(corrected).To(BeTrue(), "expected a rerun with the corrected query, got %v", provider.queries)
		})
	})

	Describe("with no usable sources", func() {
		It("returns an empty report with validation audit data", func() {
			provider := &recordingProvider{hits: func(string) []domain.RawHit { return nil }}

			report := newOrchestrator(llm.NewChain(), provider).Discover(ctx, "good moisturizer")

			Expect(report.Results).NotTo(BeNil())
			Expect(report.Results).To(BeEmpty())
			Expect(report.SourcesAnalyzed).To(BeZero())
			Expect(report.Validation.Suggestions).NotTo(BeEmpty())
		})
	})
})
