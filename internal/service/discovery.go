package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/common/logger"
	"glowfeed.app/discovery/internal/brain"
	"glowfeed.app/discovery/internal/domain"
	"glowfeed.app/discovery/internal/store"
)

const (
	sourceCache      = "cache"
	sourceAPI        = "api"
	sourceValidation = "validation"

	methodCached = "cached"

	// How long a caller that lost the per-key lock waits for the winner
	// to populate the cache before running the pipeline itself.
	lockWaitTotal = 5 * time.Second
	lockWaitPoll  = 250 * time.Millisecond
)

// Pipeline is the slice of the orchestrator the service depends on.
type Pipeline interface {
	Discover(ctx context.Context, query string) brain.Report
}

// Outcome is the service-level answer to a discovery request, carrying
// everything the transport layer needs to build a response envelope.
type Outcome struct {
	Results          []domain.ProductResult
	Query            string
	SourcesAnalyzed  int
	ProcessingMethod string
	Source           string
	Intent           domain.IntentType
	Validation       domain.ValidationResult
}

type DiscoveryService interface {
	Discover(ctx context.Context, query string, bypassCache bool) (*Outcome, error)
}

type discoveryService struct {
	pipeline Pipeline
	cache    store.CacheStore
	locker   store.Locker
	method   string
}

func NewDiscoveryService(
	pipeline Pipeline,
	cache store.CacheStore,
	locker store.Locker,
	chain *llm.Chain,
) DiscoveryService {
	return &discoveryService{
		pipeline: pipeline,
		cache:    cache,
		locker:   locker,
		method:   "enhanced_" + chain.Head() + "_v2",
	}
}

func (s *discoveryService) Discover(ctx context.Context, query string, bypassCache bool) (*Outcome, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		// Too short to mean anything. Answer without touching search or
		// LLM providers at all.
		return &Outcome{
			Results:          []domain.ProductResult{},
			Query:            query,
			ProcessingMethod: sourceValidation,
			Source:           sourceValidation,
		}, nil
	}

	key := strings.ToLower(query)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Query:     logger.Ptr(query),
		Component: "discovery.service",
	})

	if !bypassCache {
		if out := s.fromCache(ctx, key); out != nil {
			return out, nil
		}
	}

	acquired, err := s.locker.TryLock(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "lock acquisition errored, proceeding unlocked", "error", err)
		acquired = true
	}
	if acquired {
		defer s.locker.Unlock(ctx, key)
	} else if !bypassCache {
		// Another request for the same query is already running the
		// pipeline. Wait briefly for its cache write instead of doing
		// the same work twice.
		if out := s.awaitCache(ctx, key); out != nil {
			return out, nil
		}
	}

	report := s.pipeline.Discover(ctx, query)

	out := &Outcome{
		Results:          report.Results,
		Query:            query,
		SourcesAnalyzed:  report.SourcesAnalyzed,
		ProcessingMethod: s.method,
		Source:           sourceAPI,
		Intent:           report.Intent.Type,
		Validation:       report.Validation,
	}

	if acquired && len(report.Results) > 0 {
		entry := domain.CacheEntry{
			Query:      query,
			CachedAt:   time.Now().UTC(),
			Results:    report.Results,
			Validation: report.Validation,
			Method:     s.method,
			Intent:     report.Intent.Type,
			Sources:    report.SourcesAnalyzed,
		}
		if err := s.cache.Replace(ctx, key, entry); err != nil {
			slog.WarnContext(ctx, "cache write failed", "error", err)
		}
	}

	return out, nil
}

func (s *discoveryService) fromCache(ctx context.Context, key string) *Outcome {
	entry, err := s.cache.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			slog.WarnContext(ctx, "cache read failed", "error", err)
		}
		return nil
	}

	slog.InfoContext(ctx, "serving cached results", "results", len(entry.Results))
	return &Outcome{
		Results:          entry.Results,
		Query:            entry.Query,
		SourcesAnalyzed:  entry.Sources,
		ProcessingMethod: methodCached,
		Source:           sourceCache,
		Intent:           entry.Intent,
		Validation:       entry.Validation,
	}
}

func (s *discoveryService) awaitCache(ctx context.Context, key string) *Outcome {
	deadline := time.Now().Add(lockWaitTotal)
	ticker := time.NewTicker(lockWaitPoll)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if out := s.fromCache(ctx, key); out != nil {
				return out
			}
		}
	}
	return nil
}
