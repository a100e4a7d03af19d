package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/internal/brain"
	"glowfeed.app/discovery/internal/domain"
	"glowfeed.app/discovery/internal/service"
	"glowfeed.app/discovery/internal/store"
)

type fakePipeline struct {
	report brain.Report
	calls  int
}

func (p *fakePipeline) Discover(_ context.Context, _ string) brain.Report {
	p.calls++
	return p.report
}

var _ = Describe("DiscoveryService", func() {
	var (
		ctx      context.Context
		pipeline *fakePipeline
		svc      service.DiscoveryService
	)

	goodReport := brain.Report{
		Results: []domain.ProductResult{{
			ProductName:      "CeraVe Hydrating Cleanser",
			Brand:            "CeraVe",
			Summary:          "Recommended for dry skin.",
			MentionFrequency: 3,
			APISource:        "regex_fallback",
			APIRef:           "1234",
		}},
		Validation:      domain.ValidationResult{OverallQuality: 0.8, RelevanceScore: 0.9},
		Intent:          domain.QueryIntent{Type: domain.IntentSpecificProduct},
		SourcesAnalyzed: 4,
	}

	BeforeEach(func() {
		ctx = context.Background()
		pipeline = &fakePipeline{report: goodReport}
		svc = service.NewDiscoveryService(
			pipeline,
			store.NewMemoryCache(time.Hour),
			store.NewLocalLocker(),
			llm.NewChain(),
		)
	})

	It("short-circuits queries under two characters without running the pipeline", func() {
		out, err := svc.Discover(ctx, " a ", false)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Source).To(Equal("validation"))
		Expect(out.Results).NotTo(BeNil())
		Expect(out.Results).To(BeEmpty())
		Expect(pipeline.calls).To(BeZero())
	})

	It("serves the second identical request from cache", func() {
		first, err := svc.Discover(ctx, "cerave cleanser", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Source).To(Equal("api"))
		Expect(first.ProcessingMethod).To(Equal("enhanced_regex_v2"))
		Expect(first.SourcesAnalyzed).To(Equal(4))

		second, err := svc.Discover(ctx, "cerave cleanser", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Source).To(Equal("cache"))
		Expect(second.ProcessingMethod).To(Equal("cached"))
		Expect(second.Results).To(Equal(first.Results))
		Expect(pipeline.calls).To(Equal(1))
	})

	It("treats query keys case-insensitively", func() {
		_, err := svc.Discover(ctx, "CeraVe Cleanser", false)
		Expect(err).NotTo(HaveOccurred())

		second, err := svc.Discover(ctx, "cerave cleanser", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Source).To(Equal("cache"))
		Expect(pipeline.calls).To(Equal(1))
	})

	It("reruns the pipeline when the cache is bypassed", func() {
		_, err := svc.Discover(ctx, "cerave cleanser", false)
		Expect(err).NotTo(HaveOccurred())

		out, err := svc.Discover(ctx, "cerave cleanser", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Source).To(Equal("api"))
		Expect(pipeline.calls).To(Equal(2))
	})

	It("does not cache empty result sets", func() {
		pipeline.report = brain.Report{
			Results:    []domain.ProductResult{},
			Validation: domain.ValidationResult{},
			Intent:     domain.QueryIntent{Type: domain.IntentCategory},
		}

		_, err := svc.Discover(ctx, "nothing found", false)
		Expect(err).NotTo(HaveOccurred())

		out, err := svc.Discover(ctx, "nothing found", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Source).To(Equal("api"))
		Expect(pipeline.calls).To(Equal(2))
	})

	It("carries the intent type into the outcome", func() {
		out, err := svc.Discover(ctx, "cerave cleanser", false)

		Expect(err).NotTo(HaveOccurred())
		Expect(out.Intent).To(Equal(domain.IntentSpecificProduct))
		Expect(out.Validation.OverallQuality).To(BeNumerically("~", 0.8, 0.001))
	})
})
