package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"glowfeed.app/discovery/internal/domain"
	"glowfeed.app/discovery/internal/http/handler"
	"glowfeed.app/discovery/internal/service"
)

type stubDiscoveryService struct {
	out       *service.Outcome
	err       error
	gotQuery  string
	gotBypass bool
}

func (s *stubDiscoveryService) Discover(_ context.Context, query string, bypassCache bool) (*service.Outcome, error) {
	s.gotQuery = query
	s.gotBypass = bypassCache
	return s.out, s.err
}

func postSearch(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/discovery/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("DiscoveryHandler", func() {
	var (
		stub   *stubDiscoveryService
		router *gin.Engine
	)

	BeforeEach(func() {
		stub = &stubDiscoveryService{
			out: &service.Outcome{
				Results: []domain.ProductResult{{
					ProductName: "CeraVe Hydrating Cleanser",
					Brand:       "CeraVe",
				}},
				Query:            "cerave cleanser",
				SourcesAnalyzed:  4,
				ProcessingMethod: "enhanced_gemini_v2",
				Source:           "api",
				Intent:           domain.IntentSpecificProduct,
			},
		}
		router = gin.New()
		router.POST("/api/v1/discovery/search", handler.NewDiscoveryHandler(stub).Search)
	})

	It("returns the full response envelope", func() {
		rec := postSearch(router, `{"query":"cerave cleanser"}`)

		Expect(rec.Code).To(Equal(http.StatusOK))

		var body map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("query", "cerave cleanser"))
		Expect(body).To(HaveKeyWithValue("total_sources_analyzed", float64(4)))
		Expect(body).To(HaveKeyWithValue("processing_method", "enhanced_gemini_v2"))
		Expect(body).To(HaveKeyWithValue("source", "api"))
		Expect(body).To(HaveKeyWithValue("count", float64(1)))
		Expect(body).To(HaveKeyWithValue("query_intent", "specific_product"))
		Expect(body["results"]).To(HaveLen(1))

		Expect(stub.gotQuery).To(Equal("cerave cleanser"))
		Expect(stub.gotBypass).To(BeFalse())
	})

	It("passes bypassCache through", func() {
		postSearch(router, `{"query":"cerave cleanser","bypassCache":true}`)
		Expect(stub.gotBypass).To(BeTrue())
	})

	It("rejects a missing query with 400", func() {
		rec := postSearch(router, `{}`)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("query is required"))
	})

	It("rejects a malformed body with 400", func() {
		rec := postSearch(router, `{"query":`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns the error envelope on service failure", func() {
		stub.out = nil
		stub.err = errors.New("boom")

		rec := postSearch(router, `{"query":"cerave cleanser"}`)

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))

		var body map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("source", "error"))
		Expect(body).To(HaveKeyWithValue("count", float64(0)))
		Expect(body["results"]).To(BeEmpty())
	})

	It("serializes nil results as an empty array", func() {
		stub.out.Results = nil

		rec := postSearch(router, `{"query":"cerave cleanser"}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"results":[]`))
	})
})
