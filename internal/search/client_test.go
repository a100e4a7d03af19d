package search_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glowfeed.app/discovery/core/config"
	"glowfeed.app/discovery/internal/domain"
	"glowfeed.app/discovery/internal/search"
)

var _ = Describe("Client", func() {
	newClient := func(baseURL string) *search.Client {
		return search.NewClient(config.SearchConfig{
			APIKey:    "test-key",
			BaseURL:   baseURL,
			RateLimit: 1000, // effectively unthrottled in tests
			Timeout:   2 * time.Second,
		})
	}

	It("maps organic results to raw hits and sends the API key", func() {
		var gotKey string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("X-API-KEY")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"organic": []map[string]string{
					{"title": "CeraVe review", "link": "https://example.com/review", "snippet": "great"},
				},
			})
		}))
		defer srv.Close()

		hits, err := newClient(srv.URL).Search(context.Background(), "cerave", domain.LanguageEnglish)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotKey).To(Equal("test-key"))
		Expect(gotBody["q"]).To(Equal("cerave"))
		Expect(gotBody["gl"]).To(Equal("us"))
		Expect(hits).To(ConsistOf(domain.RawHit{
			Title:   "CeraVe review",
			URL:     "https://example.com/review",
			Snippet: "great",
		}))
	})

	It("uses Indian locale parameters for Hindi queries", func() {
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_ = json.NewEncoder(w).Encode(map[string]any{"organic": []map[string]string{}})
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Search(context.Background(), "सनस्क्रीन", domain.LanguageHindi)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotBody["gl"]).To(Equal("in"))
		Expect(gotBody["hl"]).To(Equal("hi"))
	})

	It("retries server errors and then succeeds", func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"organic": []map[string]string{{"title": "t", "link": "u", "snippet": "s"}},
			})
		}))
		defer srv.Close()

		hits, err := newClient(srv.URL).Search(context.Background(), "q", domain.LanguageEnglish)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int32(3)))
		Expect(hits).To(HaveLen(1))
	})

	It("does not retry client errors", func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := newClient(srv.URL).Search(context.Background(), "q", domain.LanguageEnglish)
		Expect(err).To(HaveOccurred())
		Expect(calls.Load()).To(Equal(int32(1)))
	})
})
