// Package feed retrieves raw news entries from the configured RSS sources.
// Each source fails in isolation: a broken feed contributes zero items and a
// recorded error, never an aborted run.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/telecomnews/internal/logger"
)

// Some feeds reject the default Go user agent with 403.
var httpHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/rss+xml, application/xml, text/xml, */*",
	"Accept-Language": "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7",
}

// Source is one configured RSS source.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Lang string `yaml:"lang"` // "en", "zh" or "other"; defaults to "en"
}

// sourcesConfig is the YAML config structure:
//
// sources:
//   - name: Light Reading
//     url: https://...
//     lang: en
type sourcesConfig struct {
	Sources []Source `yaml:"sources"`
}

// LoadSources reads the RSS source list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg sourcesConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Lang == "" {
			cfg.Sources[i].Lang = "en"
		}
	}
	return cfg.Sources, nil
}

// RawItem is one feed entry before normalization.
type RawItem struct {
	Title      string
	Link       string
	Summary    string
	Published  *time.Time
	SourceName string
	SourceLang string
}

// FetchResult is the outcome of fetching a single source.
type FetchResult struct {
	Source string
	Items  []RawItem
	Err    error
}

// Fetcher downloads and parses the configured sources.
type Fetcher struct {
	client      *http.Client
	concurrency int
	lookback    time.Duration
}

func NewFetcher(timeout time.Duration, concurrency int, lookback time.Duration) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		lookback:    lookback,
	}
}

// FetchAll fetches every source with bounded parallelism and returns all raw
// items plus one error per failed source. Results keep the source-list order
// so downstream first-seen tie-breaks stay deterministic.
func FetchAll(ctx context.Context, f *Fetcher, sources []Source) ([]RawItem, []error) {
	results := make([]FetchResult, len(sources))

	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = f.fetchSource(ctx, src)
		}(i, src)
	}
	wg.Wait()

	var items []RawItem
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			logger.Warn("feed fetch failed", "source", res.Source, "error", res.Err)
			errs = append(errs, res.Err)
			continue
		}
		logger.Info("feed fetched", "source", res.Source, "items", len(res.Items))
		items = append(items, res.Items...)
	}

	logger.Info("feeds processed", "ok", len(sources)-len(errs), "total", len(sources), "items", len(items))
	return items, errs
}

func (f *Fetcher) fetchSource(ctx context.Context, src Source) FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{Source: src.Name, Err: fmt.Errorf("%s: %w", src.Name, err)}
	}
	for k, v := range httpHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{Source: src.Name, Err: fmt.Errorf("%s: %w", src.Name, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchResult{Source: src.Name, Err: fmt.Errorf("%s: HTTP %d", src.Name, resp.StatusCode)}
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return FetchResult{Source: src.Name, Err: fmt.Errorf("%s: parse: %w", src.Name, err)}
	}

	cutoff := time.Now().Add(-f.lookback)

	var items []RawItem
	for _, entry := range parsed.Items {
		published := entryTime(entry)

		// Entries with a known date outside the lookback window are stale.
		if published != nil && published.Before(cutoff) {
			continue
		}

		summary := entry.Description
		if summary == "" {
			summary = entry.Content
		}

		items = append(items, RawItem{
			Title:      entry.Title,
			Link:       entry.Link,
			Summary:    summary,
			Published:  published,
			SourceName: src.Name,
			SourceLang: src.Lang,
		})
	}

	return FetchResult{Source: src.Name, Items: items}
}

func entryTime(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed
	}
	return nil
}
