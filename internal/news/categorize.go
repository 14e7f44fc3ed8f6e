package news

import "strings"

// Category assignment is a totally ordered rule chain: the first matching
// rule wins, so an Ericsson story set in Taiwan lands under ERICSSON, never
// TAIWAN. Keep this slice ordered; it is the tie-break policy.
var categoryRules = []struct {
	category Category
	matches  func(it *Item, text string) bool
}{
	{CategoryEricsson, keywordRule("ericsson", "愛立信")},
	{CategoryTaiwan, keywordRule("taiwan", "台灣", "cht", "中華電", "台灣大", "遠傳", "ncc")},
	{CategoryFocus, func(it *Item, _ string) bool { return it.PriorityTier == TierHighest }},
	{CategoryRANCore, keywordRule(
		"open ran", "vran", "c-ran", "o-ran", "radio access network", "massive mimo",
		"5g core", "core network", "epc", "核心網", "5gc", "nef", "upf",
	)},
	{CategoryNewTech, keywordRule(
		"6g", "ai-ran", "network slicing", "mec", "redcap", "ntn", "衛星通訊",
		"private 5g", "edge computing", "digital twin",
	)},
	{CategoryBusiness, keywordRule(
		"earnings", "revenue", "財報", "profit", "loss", "營收", "quarterly",
		"partnership", "collaboration", "合作", "contract", "deal", "agreement", "alliance",
		"acquisition", "merger", "m&a", "併購", "收購", "takeover", "bankruptcy", "破產",
	)},
}

func keywordRule(keywords ...string) func(it *Item, text string) bool {
	return func(_ *Item, text string) bool {
		return containsAny(text, keywords)
	}
}

// Categorize assigns exactly one display category to every item. The digest
// renderer groups by category; the list order itself is never touched here.
func Categorize(items []Item) {
	for i := range items {
		items[i].Category = categorize(&items[i])
	}
}

func categorize(it *Item) Category {
	text := strings.ToLower(it.Title + " " + it.Summary)
	for _, rule := range categoryRules {
		if rule.matches(it, text) {
			return rule.category
		}
	}
	return CategoryOther
}
