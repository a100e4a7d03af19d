package search

import (
	"context"
	"log/slog"

	"glowfeed.app/discovery/internal/domain"
)

// Outcome is what one search-with-fallback run produced.
type Outcome struct {
	Hits      []domain.RawHit
	QueryUsed string
	Attempts  int
}

type executorState int

const (
	stateNotStarted executorState = iota
	stateTrying
	stateSucceeded
	stateExhausted
)

// Executor drives the search attempt sequence as an explicit state machine
// over an ordered queue of query candidates: the optimized query, then the
// intent's fallback queries, then spell corrections of the original query.
// Provider errors and empty result sets advance the queue identically; the
// executor never lets an error cross its boundary.
type Executor struct {
	provider Provider
}

func NewExecutor(provider Provider) *Executor {
	return &Executor{provider: provider}
}

func (e *Executor) Execute(ctx context.Context, intent domain.QueryIntent) Outcome {
	queue := candidateQueue(intent)

	out := Outcome{}
	st := stateNotStarted

	for _, candidate := range queue {
		if ctx.Err() != nil {
			break
		}
		st = stateTrying
		out.Attempts++
		out.QueryUsed = candidate

		hits, err := e.provider.Search(ctx, candidate, intent.Language)
		if err != nil {
			slog.WarnContext(ctx, "search attempt failed, advancing fallback queue",
				"attempt", out.Attempts,
				"candidate", candidate,
				"error", err)
			continue
		}
		if len(hits) == 0 {
			slog.DebugContext(ctx, "search attempt returned no hits",
				"attempt", out.Attempts,
				"candidate", candidate)
			continue
		}

		st = stateSucceeded
		out.Hits = hits
		break
	}

	if st != stateSucceeded {
		st = stateExhausted
		slog.InfoContext(ctx, "search fallback queue exhausted",
			"attempts", out.Attempts,
			"candidates", len(queue))
	}

	return out
}

// candidateQueue builds the ordered, deduplicated attempt queue. Its length
// bounds the attempt count at 1 + len(fallbacks) + len(corrections).
func candidateQueue(intent domain.QueryIntent) []string {
	candidates := make([]string, 0, 2+len(intent.FallbackQueries))
	candidates = append(candidates, intent.OptimizedQuery)
	candidates = append(candidates, intent.FallbackQueries...)
	candidates = append(candidates, Corrections(intent.OriginalQuery)...)

	seen := make(map[string]bool, len(candidates))
	queue := candidates[:0]
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		queue = append(queue, c)
	}
	return queue
}
