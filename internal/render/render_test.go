package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/telecomnews/internal/news"
)

func sampleItems() []news.Item {
	published := time.Date(2026, 8, 29, 0, 30, 0, 0, time.UTC)
	return []news.Item{
		{
			Title:        "Ericsson wins 5G core contract",
			URL:          "https://example.com/ericsson",
			SourceName:   "Light Reading",
			PublishedAt:  published,
			Summary:      "Ericsson signed a multi-year deal.",
			Category:     news.CategoryEricsson,
			RankPosition: 1,
		},
		{
			Title:        "中華電信啟動 6G 研究",
			URL:          "https://example.com/cht",
			SourceName:   "TechNews",
			PublishedAt:  published,
			Category:     news.CategoryTaiwan,
			RankPosition: 2,
		},
		{
			Title:        "Operator quarterly earnings up",
			URL:          "https://example.com/earnings",
			SourceName:   "Light Reading",
			PublishedAt:  published,
			Category:     news.CategoryBusiness,
			RankPosition: 3,
		},
	}
}

func TestDailyDigest(t *testing.T) {
	items := sampleItems()
	d := Digest{
		Date:  "2026年08月29日 (Sat)",
		Items: items,
		Stats: BuildStats(items),
	}

	html, err := DailyDigest(d)
	require.NoError(t, err)

	assert.Contains(t, html, "2026年08月29日 (Sat)")
	for _, it := range items {
		assert.Contains(t, html, it.Title)
		assert.Contains(t, html, it.URL)
	}
	assert.Contains(t, html, "Ericsson 動態")
	assert.Contains(t, html, "台灣市場")
	assert.Contains(t, html, "商業動態")
	// Sections without items are skipped entirely.
	assert.NotContains(t, html, "RAN / Core Network")
	assert.NotContains(t, html, "今日焦點")
	// No fallback banner on a normal run.
	assert.NotContains(t, html, "AI 排序暫時無法使用")

	ericsson := strings.Index(html, "Ericsson 動態")
	taiwan := strings.Index(html, "台灣市場")
	business := strings.Index(html, "商業動態")
	assert.Less(t, ericsson, taiwan)
	assert.Less(t, taiwan, business)
}

func TestDailyDigestFallbackNotice(t *testing.T) {
	items := sampleItems()
	d := Digest{
		Date:         "2026年08月29日 (Sat)",
		Items:        items,
		UsedFallback: true,
		Stats:        BuildStats(items),
	}

	html, err := DailyDigest(d)
	require.NoError(t, err)
	assert.Contains(t, html, "AI 排序暫時無法使用")
}

func TestDailyDigestEscapesTitles(t *testing.T) {
	items := []news.Item{{
		Title:        `Vendor says "5G <b>ready</b>"`,
		URL:          "https://example.com/a",
		SourceName:   "Light Reading",
		PublishedAt:  time.Now(),
		Category:     news.CategoryOther,
		RankPosition: 1,
	}}
	d := Digest{Date: "x", Items: items, Stats: BuildStats(items)}

	html, err := DailyDigest(d)
	require.NoError(t, err)
	assert.NotContains(t, html, "<b>ready</b>")
	assert.Contains(t, html, "&lt;b&gt;ready&lt;/b&gt;")
}

func TestDateString(t *testing.T) {
	// 23:30 UTC on the 28th is already the 29th in Taipei.
	ts := time.Date(2026, 8, 28, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026年08月29日 (Sat)", DateString(ts))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "📡 電信產業日報 - 2026年08月29日 (Sat)", Subject("2026年08月29日 (Sat)"))
}

func TestBuildStats(t *testing.T) {
	s := BuildStats(sampleItems())
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.ByCategory[news.CategoryEricsson])
	assert.Equal(t, 1, s.ByCategory[news.CategoryTaiwan])
	assert.Equal(t, 1, s.ByCategory[news.CategoryBusiness])
	assert.Equal(t, 2, s.BySource["Light Reading"])
	assert.Equal(t, 1, s.BySource["TechNews"])
}

func TestErrorNotice(t *testing.T) {
	html, err := ErrorNotice("所有新聞來源皆無法取得內容", "fetch failed: connection refused", "2026-08-29 08:00 (台北時間)", "https://github.com/deusflow/telecomnews/actions/runs/1")
	require.NoError(t, err)

	assert.Contains(t, html, "所有新聞來源皆無法取得內容")
	assert.Contains(t, html, "fetch failed: connection refused")
	assert.Contains(t, html, "2026-08-29 08:00")
	assert.Contains(t, html, "actions/runs/1")
}

func TestErrorNoticeWithoutRunURL(t *testing.T) {
	html, err := ErrorNotice("空白日報", "no items survived filtering", "x", "")
	require.NoError(t, err)
	assert.NotContains(t, html, "查看執行紀錄")
}
