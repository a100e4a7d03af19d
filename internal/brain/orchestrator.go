package brain

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"glowfeed.app/discovery/common/id"
	"glowfeed.app/discovery/common/logger"
	"glowfeed.app/discovery/core/config"
	"glowfeed.app/discovery/internal/domain"
	"glowfeed.app/discovery/internal/search"
)

// maxPipelineAttempts bounds the validation-triggered re-search. The first
// run already walks its own fallback-query queue; one spell-corrected rerun
// is the most another pass has ever recovered.
const maxPipelineAttempts = 2

const (
	contextWindowChars  = 1000
	maxSourcesPerResult = 3
)

// Result attribution values for ProductResult.APISource.
const (
	apiSourceLLM   = "llm"
	apiSourceRegex = "regex_fallback"
)

// Report is everything one pipeline run produced, including the audit-side
// validation that never reaches the end caller directly.
type Report struct {
	Results         []domain.ProductResult
	Validation      domain.ValidationResult
	Intent          domain.QueryIntent
	SourcesAnalyzed int
	QueryUsed       string
	SearchAttempts  int
	APISource       string
}

// Orchestrator drives the full discovery pipeline: classify, search with
// fallback, score and filter sources, fetch and extract in parallel, rank,
// analyze in parallel, validate.
type Orchestrator struct {
	classifier *Classifier
	executor   *search.Executor
	scorer     *SourceScorer
	fetcher    *Fetcher
	extractor  *Extractor
	ranker     *Ranker
	analyzer   *Analyzer
	validator  *Validator
	cfg        config.PipelineConfig
}

func NewOrchestrator(
	classifier *Classifier,
	executor *search.Executor,
	fetcher *Fetcher,
	extractor *Extractor,
	analyzer *Analyzer,
	cfg config.PipelineConfig,
) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 6
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 10 * time.Second
	}
	return &Orchestrator{
		classifier: classifier,
		executor:   executor,
		scorer:     NewSourceScorer(),
		fetcher:    fetcher,
		extractor:  extractor,
		ranker:     NewRanker(),
		analyzer:   analyzer,
		validator:  NewValidator(),
		cfg:        cfg,
	}
}

// Discover runs the pipeline for query. A poor, empty outcome gets one more
// attempt with a spell-corrected query before the report is returned as-is.
func (o *Orchestrator) Discover(ctx context.Context, query string) Report {
	report := o.runOnce(ctx, query)

	if maxPipelineAttempts > 1 &&
		len(report.Results) == 0 &&
		o.validator.ShouldTriggerFallback(report.Validation) &&
		ctx.Err() == nil {
		if corrected := search.Corrections(query); len(corrected) > 0 {
			slog.InfoContext(ctx, "validation triggered spell-corrected rerun",
				"query", query, "corrected", corrected[0])
			retry := o.runOnce(ctx, corrected[0])
			if len(retry.Results) > 0 {
				return retry
			}
		}
	}

	return report
}

func (o *Orchestrator) runOnce(ctx context.Context, query string) Report {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Query:     logger.Ptr(query),
		Component: "discovery.brain.orchestrator",
	})

	intent := o.classifier.Classify(ctx, query)
	ctx = logger.WithLogFields(ctx, logger.LogFields{IntentType: logger.Ptr(string(intent.Type))})

	outcome := o.executor.Execute(ctx, intent)
	report := Report{
		Intent:         intent,
		QueryUsed:      outcome.QueryUsed,
		SearchAttempts: outcome.Attempts,
		APISource:      apiSourceRegex,
		Results:        []domain.ProductResult{},
	}

	sources := o.scorer.FilterAndRank(outcome.Hits, intent)
	report.SourcesAnalyzed = len(sources)
	if len(sources) == 0 {
		report.Validation = o.validator.Validate(query, nil, intent)
		return report
	}

	extractions := o.fetchAndExtract(ctx, sources)

	groups := make(map[string]*MentionGroup)
	llmUsed := false
	for _, ex := range extractions {
		if !ex.done {
			continue
		}
		llmUsed = llmUsed || ex.llmUsed
		for _, name := range ex.names {
			addMention(groups, name, ex)
		}
	}
	if llmUsed {
		report.APISource = apiSourceLLM
	}

	ranked := o.ranker.Rank(groups)
	if len(ranked) == 0 {
		report.Validation = o.validator.Validate(query, nil, intent)
		return report
	}

	report.Results = o.analyzeCandidates(ctx, ranked, report.APISource)
	report.Validation = o.validator.Validate(query, report.Results, intent)

	slog.InfoContext(ctx, "pipeline run complete",
		"results", len(report.Results),
		"sources", report.SourcesAnalyzed,
		"search_attempts", report.SearchAttempts,
		"overall_quality", report.Validation.OverallQuality)

	return report
}

// ShouldTriggerFallback exposes the validator's retry decision for callers
// that hold a finished report.
func (o *Orchestrator) ShouldTriggerFallback(validation domain.ValidationResult) bool {
	return o.validator.ShouldTriggerFallback(validation)
}

type sourceExtraction struct {
	source  domain.ScoredSource
	content string
	names   []string
	llmUsed bool
	done    bool
}

// fetchAndExtract runs the per-source fetch+extract stage under a bounded
// worker pool. Workers write only into their own slot and never return
// errors, so Wait acts purely as the aggregation barrier: a cancelled
// context leaves unfinished slots unset and the pipeline degrades to
// whatever completed.
func (o *Orchestrator) fetchAndExtract(ctx context.Context, sources []domain.ScoredSource) []sourceExtraction {
	extractions := make([]sourceExtraction, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, src := range sources {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			taskCtx := logger.WithLogFields(gctx, logger.LogFields{SourceURL: logger.Ptr(src.URL)})

			fetchCtx, cancelFetch := context.WithTimeout(taskCtx, o.cfg.FetchTimeout)
			content := o.fetcher.Fetch(fetchCtx, src.URL, src.Snippet)
			cancelFetch()

			llmCtx, cancelLLM := context.WithTimeout(taskCtx, o.cfg.LLMTimeout)
			names, usedLLM := o.extractor.Extract(llmCtx, content, src.Title)
			cancelLLM()

			extractions[i] = sourceExtraction{
				source:  src,
				content: content,
				names:   names,
				llmUsed: usedLLM,
				done:    true,
			}
			return nil
		})
	}
	_ = g.Wait()

	return extractions
}

// analyzeCandidates runs per-candidate analysis under the same pool shape as
// fetchAndExtract. Final order is re-imposed from the ranked slice, so task
// completion order never leaks into the response.
func (o *Orchestrator) analyzeCandidates(ctx context.Context, ranked []domain.RankedProduct, apiSource string) []domain.ProductResult {
	results := make([]domain.ProductResult, len(ranked))
	filled := make([]bool, len(ranked))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, candidate := range ranked {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			llmCtx, cancel := context.WithTimeout(gctx, o.cfg.LLMTimeout)
			summary, insights := o.analyzer.Analyze(llmCtx, candidate)
			cancel()

			results[i] = domain.ProductResult{
				ProductName:      candidate.ProductName,
				Brand:            candidate.Brand,
				Summary:          summary,
				Sources:          resultSources(candidate),
				Insights:         insights,
				MentionFrequency: candidate.MentionCount,
				QualityScore:     candidate.QualityScore,
				APISource:        apiSource,
				APIRef:           id.NewString(),
			}
			filled[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.ProductResult, 0, len(results))
	for i, r := range results {
		if filled[i] {
			out = append(out, r)
		}
	}
	return out
}

func addMention(groups map[string]*MentionGroup, name string, ex sourceExtraction) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return
	}

	g, ok := groups[key]
	if !ok {
		g = &MentionGroup{Display: name}
		groups[key] = g
	}
	if len(name) > len(g.Display) {
		g.Display = name
	}
	g.Contexts = append(g.Contexts, domain.MentionContext{
		Text:        contextWindow(ex.content, name),
		SourceTitle: ex.source.Title,
		SourceURL:   ex.source.URL,
	})
}

// contextWindow carves the slice of content surrounding the first occurrence
// of name, capped at 1000 chars. When the name is absent from the content
// (the LLM assembled it from fragments) the leading slice stands in.
func contextWindow(content, name string) string {
	idx := strings.Index(strings.ToLower(content), strings.ToLower(name))
	start := 0
	if idx > 200 {
		start = idx - 200
	}
	end := start + contextWindowChars
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}

func resultSources(candidate domain.RankedProduct) []domain.ResultSource {
	seen := make(map[string]bool, len(candidate.Contexts))
	sources := make([]domain.ResultSource, 0, maxSourcesPerResult)
	for _, c := range candidate.Contexts {
		if seen[c.SourceURL] {
			continue
		}
		seen[c.SourceURL] = true
		sources = append(sources, domain.ResultSource{Title: c.SourceTitle, URL: c.SourceURL})
		if len(sources) == maxSourcesPerResult {
			break
		}
	}
	return sources
}
