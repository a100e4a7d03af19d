package dto

import (
	"glowfeed.app/discovery/internal/domain"
	"glowfeed.app/discovery/internal/service"
)

type SearchRequest struct {
	Query       string `json:"query" binding:"required,max=500"`
	BypassCache bool   `json:"bypassCache,omitempty"`
}

type SearchResponse struct {
	Results              []domain.ProductResult `json:"results"`
	Query                string                 `json:"query"`
	TotalSourcesAnalyzed int                    `json:"total_sources_analyzed"`
	ProcessingMethod     string                 `json:"processing_method"`
	Source               string                 `json:"source"`
	Count                int                    `json:"count"`
	QueryIntent          string                 `json:"query_intent"`
}

type ErrorResponse struct {
	Results          []domain.ProductResult `json:"results"`
	Query            string                 `json:"query"`
	ProcessingMethod string                 `json:"processing_method"`
	Source           string                 `json:"source"`
	Count            int                    `json:"count"`
	Error            string                 `json:"error"`
}

func ToSearchResponse(out *service.Outcome) *SearchResponse {
	results := out.Results
	if results == nil {
		results = []domain.ProductResult{}
	}
	return &SearchResponse{
		Results:              results,
		Query:                out.Query,
		TotalSourcesAnalyzed: out.SourcesAnalyzed,
		ProcessingMethod:     out.ProcessingMethod,
		Source:               out.Source,
		Count:                len(results),
		QueryIntent:          string(out.Intent),
	}
}

func ToErrorResponse(query, msg string) *ErrorResponse {
	return &ErrorResponse{
		Results:          []domain.ProductResult{},
		Query:            query,
		ProcessingMethod: "error",
		Source:           "error",
		Count:            0,
		Error:            msg,
	}
}
