// Package rank turns the scored item list into the final ordered digest
// selection, either through the AI title ranker or the deterministic
// fallback. AI output is accepted all-or-nothing: a response that fails
// validation is never partially merged with fallback output.
package rank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/deusflow/telecomnews/internal/logger"
	"github.com/deusflow/telecomnews/internal/metrics"
	"github.com/deusflow/telecomnews/internal/news"
	"github.com/deusflow/telecomnews/internal/retry"
)

// ErrRankingUnavailable signals that every AI ranking attempt failed and the
// fallback order was used instead. It is non-fatal to the run.
var ErrRankingUnavailable = errors.New("ai ranking unavailable")

// TitleRanker is the AI ranking collaborator: given the titles in index
// order, return at most k indices ordered from most to least important.
type TitleRanker interface {
	RankTitles(ctx context.Context, titles []string, k int) ([]int, error)
}

// Ranker orchestrates the AI attempt with retry, validation and fallback.
type Ranker struct {
	AI          TitleRanker // nil means fallback-only
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration // per attempt
}

// Rank selects and orders at most k items. The returned usedFallback flag
// reports whether the deterministic order was used. Rank positions are a
// contiguous 1..N sequence over the returned items.
func (r *Ranker) Rank(ctx context.Context, items []news.Item, k int) (ranked []news.Item, usedFallback bool) {
	if len(items) == 0 {
		return nil, false
	}

	selected, err := r.rankWithAI(ctx, items, k)
	if err != nil {
		logger.Warn("falling back to keyword ranking", "error", errors.Join(ErrRankingUnavailable, err))
		metrics.Global.IncrementRankingFallbacks()
		return Fallback(items, k), true
	}

	logger.Info("ai ranking accepted", "selected", len(selected), "candidates", len(items))
	return selected, false
}

func (r *Ranker) rankWithAI(ctx context.Context, items []news.Item, k int) ([]news.Item, error) {
	if r.AI == nil {
		return nil, fmt.Errorf("no ranking client configured")
	}

	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}

	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var indices []int
	err := retry.WithRetry(ctx, retry.Config{MaxAttempts: attempts, Delay: r.RetryDelay, Backoff: true}, func() error {
		attemptCtx := ctx
		if r.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.Timeout)
			defer cancel()
		}

		got, err := r.AI.RankTitles(attemptCtx, titles, k)
		if err != nil {
			return err
		}
		if err := validateIndices(got, len(items), k); err != nil {
			return err
		}
		indices = got
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The AI's selection act also truncates: unreferenced items are out.
	selected := make([]news.Item, 0, len(indices))
	for pos, idx := range indices {
		it := items[idx]
		it.RankPosition = pos + 1
		selected = append(selected, it)
	}
	return selected, nil
}

// validateIndices enforces the response contract before any index is
// trusted: every index in range, no duplicates, at least one and at most k.
func validateIndices(indices []int, n, k int) error {
	if len(indices) == 0 {
		return fmt.Errorf("empty index list")
	}
	if len(indices) > k {
		return fmt.Errorf("got %d indices, want at most %d", len(indices), k)
	}
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("index %d out of range [0,%d)", idx, n)
		}
		if seen[idx] {
			return fmt.Errorf("duplicate index %d", idx)
		}
		seen[idx] = true
	}
	return nil
}

// Fallback is the deterministic substitute ranking: tier severity first,
// then priority score, then recency, then original order. It is a pure
// function over already-annotated items and cannot fail; an empty input
// yields an empty output.
func Fallback(items []news.Item, k int) []news.Item {
	ordered := make([]news.Item, len(items))
	copy(ordered, items)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.PriorityTier != b.PriorityTier {
			return a.PriorityTier < b.PriorityTier
		}
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		return a.PublishedAt.After(b.PublishedAt)
	})

	if len(ordered) > k {
		ordered = ordered[:k]
	}
	for i := range ordered {
		ordered[i].RankPosition = i + 1
	}
	return ordered
}
