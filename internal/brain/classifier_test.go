package brain_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/internal/brain"
	"glowfeed.app/discovery/internal/domain"
)

var _ = Describe("Classifier", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("fast pass", func() {
		var (
			stub       *stubLLM
			classifier *brain.Classifier
		)

		BeforeEach(func() {
			stub = &stubLLM{reply: `{"type":"category","confidence":0.5,"entities":{}}`}
			classifier = brain.NewClassifier(llm.NewChain(stub))
		})

		It("recognizes a known product without spending an LLM call", func() {
			intent := classifier.Classify(ctx, "CeraVe Hydrating Cleanser")

			Expect(intent.Type).To(Equal(domain.IntentSpecificProduct))
			Expect(intent.Confidence).To(BeNumerically(">=", 0.8))
			Expect(intent.Entities.ProductName).To(Equal("cerave hydrating cleanser"))
			Expect(intent.Entities.BrandName).To(Equal("cerave"))
			Expect(stub.calls).To(BeZero())
		})

		It("recognizes comparisons from connectives", func() {
			intent := classifier.Classify(ctx, "cetaphil vs cerave")

			Expect(intent.Type).To(Equal(domain.IntentComparison))
			Expect(intent.Confidence).To(BeNumerically(">=", 0.8))
			Expect(intent.Entities.ComparisonTerms).To(ConsistOf("cetaphil", "cerave"))
			Expect(stub.calls).To(BeZero())
		})

		It("recognizes brand exploration from brand plus range keyword", func() {
			intent := classifier.Classify(ctx, "cerave products")

			Expect(intent.Type).To(Equal(domain.IntentBrandExploration))
			Expect(intent.Entities.BrandName).To(Equal("cerave"))
			Expect(stub.calls).To(BeZero())
		})

		It("collects category hints for category queries", func() {
			classifier = brain.NewClassifier(llm.NewChain())
			intent := classifier.Classify(ctx, "best sunscreen for oily skin")

			Expect(intent.Type).To(Equal(domain.IntentCategory))
			Expect(intent.CategoryHints).To(ContainElement("sunscreen"))
		})
	})

	Describe("query optimization", func() {
		var classifier *brain.Classifier

		BeforeEach(func() {
			classifier = brain.NewClassifier(llm.NewChain())
		})

		It("adds review terms and commerce negatives for specific products", func() {
			intent := classifier.Classify(ctx, "CeraVe Hydrating Cleanser")

			Expect(intent.OptimizedQuery).To(ContainSubstring("review"))
			Expect(intent.OptimizedQuery).To(ContainSubstring("-buy"))
			Expect(intent.OptimizedQuery).To(ContainSubstring("-shop"))
		})

		It("does not double a leading best on category queries", func() {
			intent := classifier.Classify(ctx, "best sunscreen for oily skin")

			Expect(intent.OptimizedQuery).To(HavePrefix("best sunscreen"))
			Expect(intent.OptimizedQuery).NotTo(ContainSubstring("best best"))
		})

		It("detects Devanagari and localizes the optimized query", func() {
			intent := classifier.Classify(ctx, "सबसे अच्छा sunscreen")

			Expect(intent.Language).To(Equal(domain.LanguageHindi))
			Expect(intent.OptimizedQuery).To(HaveSuffix("India"))
		})

		It("produces deduplicated non-empty fallback queries", func() {
			intent := classifier.Classify(ctx, "good moisturizer")

			Expect(intent.FallbackQueries).NotTo(BeEmpty())
			seen := map[string]bool{}
			for _, q := range intent.FallbackQueries {
				Expect(q).NotTo(BeEmpty())
				Expect(q).NotTo(Equal(intent.OptimizedQuery))
				Expect(seen[q]).To(BeFalse())
				seen[q] = true
			}
		})
	})

	Describe("LLM refinement", func() {
		It("lifts confidence when the LLM agrees", func() {
			stub := &stubLLM{reply: `{"type":"category","confidence":0.95,"entities":{"product_name":"","brand_name":"","category":"serum","comparison_terms":[]}}`}
			classifier := brain.NewClassifier(llm.NewChain(stub))

			intent := classifier.Classify(ctx, "something for glowing skin")

			Expect(stub.calls).To(Equal(1))
			Expect(intent.Type).To(Equal(domain.IntentCategory))
			Expect(intent.Confidence).To(BeNumerically("~", 0.95, 0.001))
			Expect(intent.Entities.Category).To(Equal("serum"))
			Expect(intent.CategoryHints).To(ConsistOf("serum"))
		})

		It("switches type when the LLM disagrees with higher confidence", func() {
			stub := &stubLLM{reply: `{"type":"brand_exploration","confidence":0.9,"entities":{"brand_name":"glow co"}}`}
			classifier := brain.NewClassifier(llm.NewChain(stub))

			intent := classifier.Classify(ctx, "something for glowing skin")

			Expect(intent.Type).To(Equal(domain.IntentBrandExploration))
			Expect(intent.Entities.BrandName).To(Equal("glow co"))
		})

		It("keeps the pattern result when the LLM replies with an unknown type", func() {
			stub := &stubLLM{reply: `{"type":"mystery","confidence":0.99,"entities":{}}`}
			classifier := brain.NewClassifier(llm.NewChain(stub))

			intent := classifier.Classify(ctx, "something for glowing skin")

			Expect(intent.Type).To(Equal(domain.IntentCategory))
			Expect(intent.Confidence).To(BeNumerically("~", 0.6, 0.001))
		})

		It("degrades to patterns when every provider fails", func() {
			stub := &stubLLM{err: errors.New("provider down")}
			classifier := brain.NewClassifier(llm.NewChain(stub))

			intent := classifier.Classify(ctx, "something for glowing skin")

			Expect(stub.calls).To(Equal(1))
			Expect(intent.Type).To(Equal(domain.IntentCategory))
			Expect(intent.Confidence).To(BeNumerically("~", 0.6, 0.001))
		})
	})
})
