package brain_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/internal/brain"
)

var _ = Describe("Extractor", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns LLM mentions deduplicated", func() {
		stub := &stubLLM{reply: `Here you go: ["CeraVe Hydrating Cleanser", "cerave   hydrating cleanser", "x"]`}
		extractor := brain.NewExtractor(llm.NewChain(stub))

		names, llmUsed := extractor.Extract(ctx, "page content about cleansers", "Cleanser roundup")

		Expect(llmUsed).To(BeTrue())
		Expect(names).To(Equal([]string{"CeraVe Hydrating Cleanser"}))
	})

	It("falls back to regex when providers fail", func() {
		stub := &stubLLM{err: errors.New("quota exceeded")}
		extractor := brain.NewExtractor(llm.NewChain(stub))

		content := "Experts love the CeraVe Hydrating Cleanser and the Neutrogena Hydro Boost Water Gel for dry skin."
		names, llmUsed := extractor.Extract(ctx, content, "Cleanser roundup")

		Expect(llmUsed).To(BeFalse())
		Expect(names).To(ContainElement("CeraVe Hydrating Cleanser"))
		Expect(names).To(ContainElement("Neutrogena Hydro Boost Water Gel"))
	})

	It("falls back to regex on a reply without JSON", func() {
		stub := &stubLLM{reply: "I cannot list products from this page."}
		extractor := brain.NewExtractor(llm.NewChain(stub))

		names, llmUsed := extractor.Extract(ctx, "The Cetaphil Gentle Skin Cleanser appears here.", "Roundup")

		Expect(llmUsed).To(BeFalse())
		Expect(names).To(ContainElement("Cetaphil Gentle Skin Cleanser"))
	})

	It("finds nothing in generic marketing copy", func() {
		extractor := brain.NewExtractor(llm.NewChain())

		names, llmUsed := extractor.Extract(ctx, "Our best-selling serum will change your life.", "Shop now")

		Expect(llmUsed).To(BeFalse())
		Expect(names).To(BeEmpty())
	})

	It("skips empty content entirely", func() {
		stub := &stubLLM{reply: `["CeraVe Hydrating Cleanser"]`}
		extractor := brain.NewExtractor(llm.NewChain(stub))

		names, llmUsed := extractor.Extract(ctx, "   ", "Empty page")

		Expect(llmUsed).To(BeFalse())
		Expect(names).To(BeEmpty())
		Expect(stub.calls).To(BeZero())
	})
})
