// Package render produces the HTML bodies for the daily digest email and
// the operator error notification. It only formats; ordering and category
// assignment happen upstream.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/deusflow/telecomnews/internal/news"
)

// Digest is the final artifact of one pipeline run.
type Digest struct {
	Date         string
	Items        []news.Item // in rank-position order
	UsedFallback bool
	Stats        Stats
}

// Stats feeds the statistics footer of the digest email.
type Stats struct {
	Total      int
	ByCategory map[news.Category]int
	BySource   map[string]int
}

// BuildStats counts the selected items per category and per source.
func BuildStats(items []news.Item) Stats {
	s := Stats{
		Total:      len(items),
		ByCategory: make(map[news.Category]int),
		BySource:   make(map[string]int),
	}
	for _, it := range items {
		s.ByCategory[it.Category]++
		s.BySource[it.SourceName]++
	}
	return s
}

// taipeiLocation is the digest's display timezone.
var taipeiLocation = time.FixedZone("Asia/Taipei", 8*3600)

// DateString formats t for the subject line and header in Taipei time.
func DateString(t time.Time) string {
	return t.In(taipeiLocation).Format("2006年01月02日 (Mon)")
}

// Subject returns the digest email subject for the given date string.
func Subject(date string) string {
	return fmt.Sprintf("📡 電信產業日報 - %s", date)
}

// Display order of category sections; items inside a section keep their rank
// order. Categories absent from the digest are skipped.
var sectionOrder = []news.Category{
	news.CategoryEricsson,
	news.CategoryTaiwan,
	news.CategoryFocus,
	news.CategoryRANCore,
	news.CategoryNewTech,
	news.CategoryBusiness,
	news.CategoryOther,
}

type categoryMeta struct {
	Title string
	Badge string
	Color string
}

var categoryInfo = map[news.Category]categoryMeta{
	news.CategoryEricsson: {"Ericsson 動態", "⭐ Ericsson", "#dc2626"},
	news.CategoryTaiwan:   {"台灣市場", "🇹🇼 台灣", "#0ea5e9"},
	news.CategoryFocus:    {"今日焦點", "🔥 焦點", "#f97316"},
	news.CategoryRANCore:  {"RAN / Core Network", "📡 RAN/Core", "#7c3aed"},
	news.CategoryNewTech:  {"新技術", "🚀 新技術", "#059669"},
	news.CategoryBusiness: {"商業動態", "💼 商業", "#ca8a04"},
	news.CategoryOther:    {"其他值得關注", "📌 其他", "#64748b"},
}

type section struct {
	Title string
	Badge string
	Color string
	Items []news.Item
}

type digestView struct {
	Date         string
	UsedFallback bool
	Sections     []section
	Stats        Stats
}

const digestTemplate = `<!DOCTYPE html>
<html lang="zh-TW">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
  body { margin: 0; padding: 0; background: #f1f5f9;
         font-family: "Segoe UI", "Microsoft JhengHei", system-ui, sans-serif; }
  .container { max-width: 640px; margin: 0 auto; padding: 16px; }
  .header { background: linear-gradient(135deg, #1e3a8a, #2563eb); color: #fff;
            border-radius: 8px 8px 0 0; padding: 24px; text-align: center; }
  .header h1 { margin: 0; font-size: 22px; }
  .header .date { margin-top: 6px; font-size: 14px; opacity: 0.85; }
  .section { background: #fff; margin-top: 16px; border-radius: 8px; padding: 16px; }
  .section-title { font-size: 16px; font-weight: 700; color: #1e293b;
                   border-bottom: 2px solid #e2e8f0; padding-bottom: 8px; }
  .card { border-left: 4px solid #2563eb; padding: 10px 12px; margin-top: 12px;
          background: #f8fafc; border-radius: 0 6px 6px 0; }
  .card .rank { color: #94a3b8; font-size: 12px; }
  .card a { color: #1d4ed8; text-decoration: none; font-weight: 600; font-size: 15px; }
  .card .summary { color: #475569; font-size: 13px; margin-top: 6px; }
  .card .meta { color: #94a3b8; font-size: 12px; margin-top: 6px; }
  .badge { display: inline-block; font-size: 11px; border-radius: 10px;
           padding: 2px 8px; color: #fff; margin-right: 4px; }
  .notice { margin-top: 16px; font-size: 12px; color: #92400e; background: #fef3c7;
            border-radius: 6px; padding: 10px; }
  .stats td { font-size: 13px; color: #475569; padding: 3px 10px 3px 0; }
  .footer { text-align: center; color: #94a3b8; font-size: 12px; padding: 16px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>📡 電信產業日報</h1>
    <div class="date">{{.Date}}</div>
  </div>
  {{if .UsedFallback}}<div class="notice">AI 排序暫時無法使用，本日排序由關鍵字優先級產生。</div>{{end}}
  {{range .Sections}}
  <div class="section">
    <div class="section-title">{{.Title}}</div>
    {{$color := .Color}}{{$badge := .Badge}}
    {{range .Items}}
    <div class="card" style="border-left-color: {{$color}}">
      <span class="rank">#{{.RankPosition}}</span>
      <span class="badge" style="background: {{$color}}">{{$badge}}</span>
      <div><a href="{{.URL}}">{{.Title}}</a></div>
      {{if .Summary}}<div class="summary">{{.Summary}}</div>{{end}}
      <div class="meta">{{.SourceName}} · {{.PublishedAt.Format "01-02 15:04"}}</div>
    </div>
    {{end}}
  </div>
  {{end}}
  <div class="section">
    <div class="section-title">📊 今日統計</div>
    <table class="stats">
      <tr><td>新聞總數</td><td>{{.Stats.Total}}</td></tr>
      {{range $cat, $n := .Stats.ByCategory}}<tr><td>{{$cat}}</td><td>{{$n}}</td></tr>{{end}}
    </table>
  </div>
  <div class="footer">電信產業自動摘要系統 · 每日 08:00 (台北時間)</div>
</div>
</body>
</html>
`

const errorTemplate = `<!DOCTYPE html>
<html lang="zh-TW">
<head><meta charset="utf-8"></head>
<body style="font-family: system-ui, sans-serif; background: #f1f5f9; padding: 16px;">
<div style="max-width: 560px; margin: 0 auto; background: #fff; border-radius: 8px; padding: 24px;">
  <h2 style="color: #dc2626; margin-top: 0;">⚠️ 電信日報系統錯誤</h2>
  <p><b>錯誤類型：</b>{{.Kind}}</p>
  <p><b>發生時間：</b>{{.Timestamp}}</p>
  <pre style="background: #f8fafc; padding: 12px; border-radius: 6px; white-space: pre-wrap;">{{.Details}}</pre>
  {{if .RunURL}}<p><a href="{{.RunURL}}">查看執行紀錄</a></p>{{end}}
</div>
</body>
</html>
`

var (
	digestTmpl = template.Must(template.New("digest").Parse(digestTemplate))
	errorTmpl  = template.Must(template.New("error").Parse(errorTemplate))
)

// DailyDigest renders the digest email body. Items are grouped into category
// sections for display; within each section rank order is preserved.
func DailyDigest(d Digest) (string, error) {
	byCategory := make(map[news.Category][]news.Item)
	for _, it := range d.Items {
		byCategory[it.Category] = append(byCategory[it.Category], it)
	}

	view := digestView{Date: d.Date, UsedFallback: d.UsedFallback, Stats: d.Stats}
	for _, cat := range sectionOrder {
		items := byCategory[cat]
		if len(items) == 0 {
			continue
		}
		meta := categoryInfo[cat]
		view.Sections = append(view.Sections, section{
			Title: meta.Title,
			Badge: meta.Badge,
			Color: meta.Color,
			Items: items,
		})
	}

	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// ErrorNotice renders the operator notification sent when a run cannot
// produce a digest, e.g. zero items across all sources.
func ErrorNotice(kind, details, timestamp, runURL string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Kind, Details, Timestamp, RunURL string
	}{kind, details, timestamp, runURL}

	if err := errorTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render error notice: %w", err)
	}
	return buf.String(), nil
}
