package news

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule maps a named category to the keyword patterns that identify it.
// Patterns are matched case-insensitively against title + summary.
type Rule struct {
	Category string   `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

// TierRules groups the rules of one priority tier.
type TierRules struct {
	Tier  Tier
	Rules []Rule
}

// Taxonomy is the ordered priority taxonomy, most severe tier first. It is
// immutable after construction so the scorer stays a pure function of
// (item, taxonomy).
type Taxonomy struct {
	Tiers []TierRules
}

// DefaultTaxonomy returns the built-in telecom priority taxonomy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{Tiers: []TierRules{
		{
			Tier: TierHighest,
			Rules: []Rule{
				{Category: "ericsson", Patterns: []string{"ericsson", "愛立信"}},
				{Category: "taiwan", Patterns: []string{"taiwan", "台灣", "cht", "中華電", "台灣大", "遠傳", "ncc"}},
				{Category: "major_events", Patterns: []string{"bankruptcy", "破產", "ban", "禁令", "acquisition", "merger", "併購"}},
			},
		},
		{
			Tier: TierHigh,
			Rules: []Rule{
				{Category: "ran", Patterns: []string{"open ran", "vran", "c-ran", "o-ran", "radio access network", "massive mimo"}},
				{Category: "core", Patterns: []string{"5g core", "core network", "epc", "核心網", "5gc", "nef", "upf"}},
				{Category: "new_tech", Patterns: []string{
					"6g", "ai-ran", "network slicing", "mec", "redcap", "ntn", "衛星通訊",
					"private 5g", "edge computing", "digital twin",
				}},
				{Category: "financial", Patterns: []string{
					"earnings", "revenue", "財報", "q1", "q2", "q3", "q4", "profit",
					"loss", "營收", "quarterly",
				}},
				{Category: "partnership", Patterns: []string{
					"partnership", "collaboration", "合作", "contract", "deal",
					"agreement", "alliance",
				}},
				{Category: "ma", Patterns: []string{"acquisition", "merger", "m&a", "併購", "收購", "takeover"}},
			},
		},
	}}
}

// taxonomyConfig is the YAML config structure:
//
// tiers:
//   - tier: highest
//     rules:
//       - category: ericsson
//         patterns: [ericsson, 愛立信]
type taxonomyConfig struct {
	Tiers []struct {
		Tier  string `yaml:"tier"`
		Rules []Rule `yaml:"rules"`
	} `yaml:"tiers"`
}

// LoadTaxonomy reads a taxonomy override from a YAML file. Tiers must appear
// in severity order and only "highest" and "high" are scoreable; everything
// unmatched is NORMAL by definition.
func LoadTaxonomy(path string) (Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return Taxonomy{}, err
	}
	defer f.Close()

	var cfg taxonomyConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return Taxonomy{}, err
	}

	var tax Taxonomy
	for _, t := range cfg.Tiers {
		var tier Tier
		switch strings.ToLower(t.Tier) {
		case "highest":
			tier = TierHighest
		case "high":
			tier = TierHigh
		default:
			return Taxonomy{}, fmt.Errorf("unknown taxonomy tier %q", t.Tier)
		}
		tax.Tiers = append(tax.Tiers, TierRules{Tier: tier, Rules: t.Rules})
	}
	if len(tax.Tiers) == 0 {
		return Taxonomy{}, fmt.Errorf("taxonomy %s has no tiers", path)
	}
	return tax, nil
}

// Scorer annotates items with a priority tier and score.
type Scorer struct {
	Taxonomy Taxonomy
}

// Score evaluates tiers top-down for each item; the first tier with at least
// one matching rule wins. The score is the count of distinct matching
// categories within that tier, used only for tie-breaks, never for promotion
// across tiers. Items matching nothing get NORMAL with score 0. No items are
// dropped here.
func (s Scorer) Score(items []Item) {
	for i := range items {
		tier, score := s.scoreOne(&items[i])
		items[i].PriorityTier = tier
		items[i].PriorityScore = score
	}
}

func (s Scorer) scoreOne(it *Item) (Tier, int) {
	text := strings.ToLower(it.Title + " " + it.Summary)

	for _, tr := range s.Taxonomy.Tiers {
		matched := 0
		for _, rule := range tr.Rules {
			if containsAny(text, rule.Patterns) {
				matched++
			}
		}
		if matched > 0 {
			return tr.Tier, matched
		}
	}
	return TierNormal, 0
}

// containsAny distinguishes phrases and short words so that a token like
// "ban" cannot match inside "urban". The text must already be lowercased.
func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		// Phrases (contain a space) -> substring match
		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		// Short ASCII tokens (<=3) -> whole word match via word boundary
		if len(k) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
