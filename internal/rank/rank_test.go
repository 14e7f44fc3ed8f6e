package rank

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/telecomnews/internal/logger"
	"github.com/deusflow/telecomnews/internal/news"
)

func init() {
	logger.Init()
}

// fakeRanker returns scripted responses, one per call.
type fakeRanker struct {
	responses [][]int
	errs      []error
	calls     int
}

func (f *fakeRanker) RankTitles(ctx context.Context, titles []string, k int) ([]int, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	if f.errs != nil && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

func scoredItems(n int) []news.Item {
	base := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	items := make([]news.Item, n)
	for i := range items {
		items[i] = news.Item{
			Title:         fmt.Sprintf("story %d", i),
			URL:           fmt.Sprintf("https://example.com/%d", i),
			DedupeKey:     fmt.Sprintf("key%d", i),
			PublishedAt:   base.Add(-time.Duration(i) * time.Hour),
			PriorityTier:  news.TierNormal,
			PriorityScore: 0,
		}
	}
	return items
}

func newRanker(ai TitleRanker) *Ranker {
	return &Ranker{AI: ai, MaxAttempts: 1, RetryDelay: time.Millisecond, Timeout: time.Second}
}

func TestRankAcceptsValidAIOrder(t *testing.T) {
	items := scoredItems(5)
	fake := &fakeRanker{responses: [][]int{{3, 0, 4}}}

	ranked, usedFallback := newRanker(fake).Rank(context.Background(), items, 3)

	assert.False(t, usedFallback)
	require.Len(t, ranked, 3)
	assert.Equal(t, "story 3", ranked[0].Title)
	assert.Equal(t, "story 0", ranked[1].Title)
	assert.Equal(t, "story 4", ranked[2].Title)
	for i, it := range ranked {
		assert.Equal(t, i+1, it.RankPosition)
	}
}

func TestRankShortSelectionAccepted(t *testing.T) {
	items := scoredItems(10)
	fake := &fakeRanker{responses: [][]int{{9, 1}}}

	ranked, usedFallback := newRanker(fake).Rank(context.Background(), items, 5)

	// A short valid response is accepted as-is, never topped up with
	// fallback items.
	assert.False(t, usedFallback)
	require.Len(t, ranked, 2)
}

func TestRankValidationFailuresForceFallback(t *testing.T) {
	tests := []struct {
		name     string
		response []int
	}{
		{"duplicate index", []int{4, 4, 2}},
		{"index out of range", []int{0, 7}},
		{"negative index", []int{-1, 2}},
		{"empty result", []int{}},
		{"more than k", []int{0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := scoredItems(5)
			fake := &fakeRanker{responses: [][]int{tt.response}}

			ranked, usedFallback := newRanker(fake).Rank(context.Background(), items, 3)

			assert.True(t, usedFallback)
			assert.Equal(t, Fallback(items, 3), ranked)
		})
	}
}

func TestRankErrorAllAttemptsForcesFallback(t *testing.T) {
	items := scoredItems(5)
	fake := &fakeRanker{
		responses: [][]int{nil, nil},
		errs:      []error{fmt.Errorf("timeout"), fmt.Errorf("timeout")},
	}
	r := &Ranker{AI: fake, MaxAttempts: 2, RetryDelay: time.Millisecond}

	ranked, usedFallback := r.Rank(context.Background(), items, 3)

	assert.True(t, usedFallback)
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, Fallback(items, 3), ranked)
}

func TestRankRetriesAfterInvalidResponse(t *testing.T) {
	items := scoredItems(5)
	fake := &fakeRanker{responses: [][]int{{4, 4}, {2, 0}}}
	r := &Ranker{AI: fake, MaxAttempts: 2, RetryDelay: time.Millisecond}

	ranked, usedFallback := r.Rank(context.Background(), items, 3)

	assert.False(t, usedFallback)
	assert.Equal(t, 2, fake.calls)
	require.Len(t, ranked, 2)
	assert.Equal(t, "story 2", ranked[0].Title)
}

func TestRankWithoutAIUsesFallback(t *testing.T) {
	items := scoredItems(4)

	ranked, usedFallback := newRanker(nil).Rank(context.Background(), items, 2)

	assert.True(t, usedFallback)
	assert.Equal(t, Fallback(items, 2), ranked)
}

func TestRankEmptyInput(t *testing.T) {
	ranked, usedFallback := newRanker(nil).Rank(context.Background(), nil, 5)
	assert.Empty(t, ranked)
	assert.False(t, usedFallback)
}

func TestFallbackOrdering(t *testing.T) {
	base := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	items := []news.Item{
		{Title: "normal recent", PriorityTier: news.TierNormal, PriorityScore: 0, PublishedAt: base},
		{Title: "high low score", PriorityTier: news.TierHigh, PriorityScore: 1, PublishedAt: base},
		{Title: "highest", PriorityTier: news.TierHighest, PriorityScore: 1, PublishedAt: base.Add(-6 * time.Hour)},
		{Title: "high big score", PriorityTier: news.TierHigh, PriorityScore: 3, PublishedAt: base.Add(-2 * time.Hour)},
		{Title: "high low score newer", PriorityTier: news.TierHigh, PriorityScore: 1, PublishedAt: base.Add(time.Hour)},
	}

	out := Fallback(items, 4)

	require.Len(t, out, 4)
	assert.Equal(t, "highest", out[0].Title)
	assert.Equal(t, "high big score", out[1].Title)
	assert.Equal(t, "high low score newer", out[2].Title)
	assert.Equal(t, "high low score", out[3].Title)
	for i, it := range out {
		assert.Equal(t, i+1, it.RankPosition)
	}
}

func TestFallbackReproducible(t *testing.T) {
	items := scoredItems(8)
	first := Fallback(items, 5)
	second := Fallback(items, 5)
	assert.Equal(t, first, second)
}

func TestFallbackStableForFullTies(t *testing.T) {
	base := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	items := []news.Item{
		{Title: "a", PriorityTier: news.TierHigh, PriorityScore: 2, PublishedAt: base},
		{Title: "b", PriorityTier: news.TierHigh, PriorityScore: 2, PublishedAt: base},
		{Title: "c", PriorityTier: news.TierHigh, PriorityScore: 2, PublishedAt: base},
	}

	out := Fallback(items, 3)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].Title)
	assert.Equal(t, "b", out[1].Title)
	assert.Equal(t, "c", out[2].Title)
}

func TestFallbackEmptyInput(t *testing.T) {
	assert.Empty(t, Fallback(nil, 10))
}

func TestFallbackDoesNotMutateInput(t *testing.T) {
	items := scoredItems(3)
	Fallback(items, 2)
	for _, it := range items {
		assert.Zero(t, it.RankPosition)
	}
}

func TestValidateIndices(t *testing.T) {
	assert.NoError(t, validateIndices([]int{2, 0, 1}, 3, 3))
	assert.Error(t, validateIndices(nil, 3, 3))
	assert.Error(t, validateIndices([]int{3}, 3, 3))
	assert.Error(t, validateIndices([]int{0, 0}, 3, 3))
	assert.Error(t, validateIndices([]int{0, 1, 2}, 3, 2))
}
