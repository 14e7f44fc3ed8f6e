// Package news holds the canonical item record and the deterministic stages
// of the digest pipeline: normalization, deduplication, keyword priority
// scoring and category assignment.
package news

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/deusflow/telecomnews/internal/feed"
	"github.com/deusflow/telecomnews/internal/logger"
)

// ErrMalformedItem marks a feed entry missing a usable title or link.
var ErrMalformedItem = errors.New("malformed news item")

// Tier is the coarse priority bucket from keyword scoring. Lower values are
// more severe, so a plain ascending sort orders HIGHEST before NORMAL.
type Tier int

const (
	TierHighest Tier = iota
	TierHigh
	TierNormal
)

func (t Tier) String() string {
	switch t {
	case TierHighest:
		return "HIGHEST"
	case TierHigh:
		return "HIGH"
	default:
		return "NORMAL"
	}
}

// Category is the display bucket assigned after ranking.
type Category string

const (
	CategoryEricsson Category = "ERICSSON"
	CategoryTaiwan   Category = "TAIWAN"
	CategoryFocus    Category = "FOCUS"
	CategoryRANCore  Category = "RAN_CORE"
	CategoryNewTech  Category = "NEW_TECH"
	CategoryBusiness Category = "BUSINESS"
	CategoryOther    Category = "OTHER"
)

// Item is one news story flowing through the pipeline. Title, URL and
// DedupeKey never change after Normalize; the remaining fields are annotated
// by later stages.
type Item struct {
	SourceName  string
	Title       string
	URL         string
	PublishedAt time.Time
	Language    string // "en", "zh" or "other"
	Summary     string

	// DedupeKey identifies the underlying story; two items with the same
	// key are the same story regardless of source.
	DedupeKey string

	PriorityTier  Tier
	PriorityScore int
	RankPosition  int
	Category      Category
}

const maxSummaryRunes = 500

// Normalize converts raw feed entries into canonical items. Entries without
// a title or link are dropped and counted, not propagated. Titles keep their
// original casing for display and AI ranking fidelity.
func Normalize(raw []feed.RawItem, fetchedAt time.Time) ([]Item, int) {
	items := make([]Item, 0, len(raw))
	dropped := 0

	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		link := strings.TrimSpace(r.Link)
		if title == "" || link == "" {
			logger.Debug("dropping malformed entry", "source", r.SourceName, "error", ErrMalformedItem)
			dropped++
			continue
		}

		published := fetchedAt
		if r.Published != nil {
			published = *r.Published
		}

		summary := StripHTML(r.Summary)
		if runes := []rune(summary); len(runes) > maxSummaryRunes {
			summary = string(runes[:maxSummaryRunes])
		}

		items = append(items, Item{
			SourceName:  r.SourceName,
			Title:       title,
			URL:         link,
			PublishedAt: published,
			Language:    normalizeLang(r.SourceLang),
			Summary:     summary,
			DedupeKey:   MakeDedupeKey(link),
		})
	}

	if dropped > 0 {
		logger.Warn("dropped malformed entries", "count", dropped)
	}
	return items, dropped
}

// MakeDedupeKey derives the stable story identity from the canonical URL.
func MakeDedupeKey(url string) string {
	h := sha1.Sum([]byte(url))
	return hex.EncodeToString(h[:])[:12]
}

func normalizeLang(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "en", "":
		return "en"
	case "zh", "zh-tw", "zh-cn":
		return "zh"
	default:
		return "other"
	}
}
