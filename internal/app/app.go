// Package app wires the pipeline together: fetch, normalize, deduplicate,
// score, rank, categorize, render, deliver. One Run call is one digest.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deusflow/telecomnews/internal/config"
	"github.com/deusflow/telecomnews/internal/feed"
	"github.com/deusflow/telecomnews/internal/gemini"
	"github.com/deusflow/telecomnews/internal/logger"
	"github.com/deusflow/telecomnews/internal/mail"
	"github.com/deusflow/telecomnews/internal/metrics"
	"github.com/deusflow/telecomnews/internal/news"
	"github.com/deusflow/telecomnews/internal/rank"
	"github.com/deusflow/telecomnews/internal/render"
)

type App struct {
	cfg     *config.Config
	sources []feed.Source
	fetcher *feed.Fetcher
	scorer  news.Scorer
	ranker  *rank.Ranker
	sender  *mail.Sender
	ai      *gemini.Client
}

// Options control delivery for test runs.
type Options struct {
	SkipDelivery bool   // render only, write HTML to OutputDir
	OutputDir    string // default "output"
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	sources, err := feed.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured in %s", cfg.SourcesConfigPath)
	}

	taxonomy := news.DefaultTaxonomy()
	if cfg.KeywordsConfigPath != "" {
		taxonomy, err = news.LoadTaxonomy(cfg.KeywordsConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load taxonomy: %w", err)
		}
	}

	a := &App{
		cfg:     cfg,
		sources: sources,
		fetcher: feed.NewFetcher(cfg.RequestTimeout, cfg.FetchConcurrency, cfg.NewsLookback),
		scorer:  news.Scorer{Taxonomy: taxonomy},
		sender:  mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
	}

	// Without an API key fine ranking is simply unavailable and every run
	// takes the deterministic fallback path.
	if cfg.GeminiAPIKey != "" {
		a.ai, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, ranking will use keyword fallback only")
	}

	a.ranker = &rank.Ranker{
		AI:          aiOrNil(a.ai),
		MaxAttempts: cfg.GeminiMaxRetries,
		RetryDelay:  cfg.GeminiRetryDelay,
		Timeout:     cfg.RequestTimeout,
	}
	return a, nil
}

// aiOrNil keeps the interface nil when no client exists; a typed nil would
// dodge the ranker's nil check.
func aiOrNil(c *gemini.Client) rank.TitleRanker {
	if c == nil {
		return nil
	}
	return c
}

func (a *App) Close() {
	if a.ai != nil {
		a.ai.Close()
	}
}

// Run executes one digest cycle. Source failures and AI unavailability
// degrade the output; only a completely empty item pool turns into an
// operator error notification.
func (a *App) Run(ctx context.Context, opts Options) error {
	start := time.Now()
	defer func() {
		metrics.Global.RecordProcessingTime(time.Since(start))
	}()

	date := render.DateString(start)

	raw, fetchErrs := feed.FetchAll(ctx, a.fetcher, a.sources)
	metrics.Global.AddItemsFetched(len(raw))
	for range fetchErrs {
		metrics.Global.IncrementSourceFailures()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	items, dropped := news.Normalize(raw, start)
	metrics.Global.AddMalformedDropped(dropped)

	before := len(items)
	items = news.Deduplicate(items)
	metrics.Global.AddDuplicatesFiltered(before - len(items))

	if len(items) == 0 {
		msg := fmt.Sprintf("no news items fetched from any source (%d sources, %d failed)",
			len(a.sources), len(fetchErrs))
		logger.Error("empty item pool", "sources", len(a.sources), "failed", len(fetchErrs))
		metrics.Global.SetError(msg)
		return a.notifyError(ctx, opts, "RSS 抓取失敗", msg)
	}

	a.scorer.Score(items)
	if err := ctx.Err(); err != nil {
		return err
	}

	ranked, usedFallback := a.ranker.Rank(ctx, items, a.cfg.MaxNewsDaily)
	news.Categorize(ranked)
	if err := ctx.Err(); err != nil {
		return err
	}

	digest := render.Digest{
		Date:         date,
		Items:        ranked,
		UsedFallback: usedFallback,
		Stats:        render.BuildStats(ranked),
	}

	html, err := render.DailyDigest(digest)
	if err != nil {
		metrics.Global.SetError(err.Error())
		return err
	}

	if opts.SkipDelivery {
		path, err := writeHTML(html, opts.OutputDir)
		if err != nil {
			return err
		}
		logger.Info("test mode: digest written", "path", path, "items", len(ranked))
		metrics.Global.SetLastRun()
		return nil
	}

	if err := a.sender.Send(ctx, a.cfg.Recipients, render.Subject(date), html); err != nil {
		metrics.Global.SetError(err.Error())
		return fmt.Errorf("send digest: %w", err)
	}

	logger.Info("daily digest sent", "items", len(ranked), "fallback", usedFallback,
		"duration", time.Since(start).Round(time.Millisecond))
	metrics.Global.SetLastRun()
	return nil
}

// notifyError sends the operator-visible failure email. The run itself still
// returns nil: a degraded run is not a process failure.
func (a *App) notifyError(ctx context.Context, opts Options, kind, details string) error {
	if opts.SkipDelivery {
		logger.Warn("test mode: skipping error notification", "kind", kind)
		return nil
	}

	timestamp := time.Now().In(time.FixedZone("Asia/Taipei", 8*3600)).Format("2006-01-02 15:04:05 (台北時間)")
	html, err := render.ErrorNotice(kind, details, timestamp, workflowRunURL())
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("⚠️ 電信日報系統錯誤 - %s", kind)
	if err := a.sender.Send(ctx, a.cfg.Recipients, subject, html); err != nil {
		logger.Error("failed to send error notification", "error", err)
		return err
	}
	logger.Info("error notification sent", "kind", kind)
	return nil
}

// workflowRunURL links the notification back to the CI run when executed
// inside GitHub Actions.
func workflowRunURL() string {
	server := os.Getenv("GITHUB_SERVER_URL")
	if server == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/actions/runs/%s",
		server, os.Getenv("GITHUB_REPOSITORY"), os.Getenv("GITHUB_RUN_ID"))
}

func writeHTML(html, dir string) (string, error) {
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("daily_%s.html", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// CheckFeeds fetches and scores without ranking or delivery; used by the
// -test-feeds CLI mode to eyeball source health.
func (a *App) CheckFeeds(ctx context.Context) error {
	raw, fetchErrs := feed.FetchAll(ctx, a.fetcher, a.sources)
	items, dropped := news.Normalize(raw, time.Now())
	items = news.Deduplicate(items)
	a.scorer.Score(items)

	top := rank.Fallback(items, 10)

	fmt.Printf("\nFetched %d items (%d malformed dropped, %d source errors)\n\n",
		len(items), dropped, len(fetchErrs))
	for _, it := range top {
		fmt.Printf("[%d] %s\n", it.RankPosition, truncate(it.Title, 70))
		fmt.Printf("    Source: %s  Tier: %s  Score: %d\n\n", it.SourceName, it.PriorityTier, it.PriorityScore)
	}
	for _, err := range fetchErrs {
		fmt.Printf("  - %v\n", err)
	}
	return nil
}

// CheckRank runs the AI ranker once over freshly fetched titles; used by the
// -test-rank CLI mode.
func (a *App) CheckRank(ctx context.Context) error {
	if a.ai == nil {
		return fmt.Errorf("GEMINI_API_KEY not set")
	}

	raw, _ := feed.FetchAll(ctx, a.fetcher, a.sources)
	items, _ := news.Normalize(raw, time.Now())
	items = news.Deduplicate(items)
	if len(items) == 0 {
		return fmt.Errorf("no items to rank")
	}
	a.scorer.Score(items)

	ranked, usedFallback := a.ranker.Rank(ctx, items, a.cfg.MaxNewsDaily)
	fmt.Printf("\nRanked %d of %d items (fallback=%t)\n\n", len(ranked), len(items), usedFallback)
	for _, it := range ranked {
		fmt.Printf("[%d] %s\n", it.RankPosition, truncate(it.Title, 70))
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n]) + "..."
}
