package llm_test

import (
	"context"
	"errors"

	"glowfeed.app/discovery/common/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeClient struct {
	name  string
	reply string
	err   error
	calls int
}

func (f *fakeClient) Complete(_ context.Context, _ llm.Request) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeClient) Name() string  { return f.name }
func (f *fakeClient) Model() string { return f.name + "-model" }

var _ = Describe("ExtractJSON", func() {
	DescribeTable("finds the first balanced JSON payload",
		func(raw string, wantOK bool, want string) {
			result := llm.ExtractJSON(raw)
			Expect(result.OK).To(Equal(wantOK))
			if wantOK {
				Expect(string(result.Value)).To(Equal(want))
			}
		},
		Entry("bare object", `{"a":1}`, true, `{"a":1}`),
		Entry("bare array", `["x","y"]`, true, `["x","y"]`),
		Entry("object wrapped in prose", `Sure! Here you go: {"a":1} hope that helps`, true, `{"a":1}`),
		Entry("array in markdown fence", "```json\n[\"CeraVe Hydrating Cleanser\"]\n```", true, `["CeraVe Hydrating Cleanser"]`),
		Entry("nested braces", `{"a":{"b":[1,2]}}`, true, `{"a":{"b":[1,2]}}`),
		Entry("braces inside strings", `{"a":"}{"}`, true, `{"a":"}{"}`),
		Entry("no json at all", `sorry, I cannot help with that`, false, ""),
		Entry("unbalanced", `{"a":1`, false, ""),
		Entry("empty string", ``, false, ""),
	)
})

var _ = Describe("Chain", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("returns the first provider's parsed result", func() {
		first := &fakeClient{name: "gemini", reply: `{"type":"category"}`}
		second := &fakeClient{name: "openai", reply: `{"type":"comparison"}`}
		chain := llm.NewChain(first, second)

		var out struct {
			Type string `json:"type"`
		}
		provider, err := chain.CompleteJSON(ctx, llm.Request{}, &out)
		Expect(err).NotTo(HaveOccurred())
		Expect(provider).To(Equal("gemini"))
		Expect(out.Type).To(Equal("category"))
		Expect(second.calls).To(BeZero())
	})

	It("falls through to the next provider on error", func() {
		first := &fakeClient{name: "gemini", err: errors.New("rate limited")}
		second := &fakeClient{name: "openai", reply: `{"type":"comparison"}`}
		chain := llm.NewChain(first, second)

		var out struct {
			Type string `json:"type"`
		}
		provider, err := chain.CompleteJSON(ctx, llm.Request{}, &out)
		Expect(err).NotTo(HaveOccurred())
		Expect(provider).To(Equal("openai"))
		Expect(out.Type).To(Equal("comparison"))
	})

	It("treats a reply without JSON as a provider failure", func() {
		first := &fakeClient{name: "gemini", reply: "I could not find any products."}
		second := &fakeClient{name: "openai", reply: `["a"]`}
		chain := llm.NewChain(first, second)

		var out []string
		provider, err := chain.CompleteJSON(ctx, llm.Request{}, &out)
		Expect(err).NotTo(HaveOccurred())
		Expect(provider).To(Equal("openai"))
		Expect(out).To(Equal([]string{"a"}))
	})

	It("errors when every provider fails", func() {
		chain := llm.NewChain(
			&fakeClient{name: "gemini", err: errors.New("boom")},
			&fakeClient{name: "openai", reply: "no json here"},
		)

		var out map[string]any
		_, err := chain.CompleteJSON(ctx, llm.Request{}, &out)
		Expect(err).To(HaveOccurred())
	})

	It("returns ErrNoProviders for an empty chain", func() {
		chain := llm.NewChain()
		var out map[string]any
		_, err := chain.CompleteJSON(ctx, llm.Request{}, &out)
		Expect(err).To(MatchError(llm.ErrNoProviders))
		Expect(chain.Empty()).To(BeTrue())
		Expect(chain.Head()).To(Equal("regex"))
	})

	It("stops the chain on context cancellation", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		second := &fakeClient{name: "openai", reply: `{"a":1}`}
		chain := llm.NewChain(
			&fakeClient{name: "gemini", err: context.Canceled},
			second,
		)

		var out map[string]any
		_, err := chain.CompleteJSON(cancelled, llm.Request{}, &out)
		Expect(err).To(MatchError(context.Canceled))
		Expect(second.calls).To(BeZero())
	})
})
