// Package classify holds the bounty rule table: the structural filter, the
// content heuristic and the label fast path. Everything here is pure.
package classify

import (
	"regexp"
	"strings"
)

// RuleSet is the declarative table behind HasBountyDetails
type RuleSet struct {
	// Keywords are bounty-ish terms; at least one must appear
	Keywords []string

	// Monetary patterns match amounts such as "$500" or "200 USD"
	Monetary []*regexp.Regexp

	// Platforms are bounty platform domains
	Platforms []string

	// MinBodyLen and MinTitleLen accept otherwise plain content that is long enough
	MinBodyLen  int
	MinTitleLen int

	// Spam patterns run on the lowercased text, ShoutPatterns on the original case.
	// Either kind rejects regardless of keywords.
	Spam          []*regexp.Regexp
	ShoutPatterns []*regexp.Regexp

	// LabelMarkers identify bounty-style labels by substring
	LabelMarkers []string
}

var defaultRules = &RuleSet{
	Keywords: []string{
		"bounty", "bounties", "reward", "sponsor", "funded", "paid", "payout",
		"prize", "compensation",
	},
	Monetary: []*regexp.Regexp{
		regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(\.\d+)?\s?k?`),
		regexp.MustCompile(`\b\d[\d,]*(\.\d+)?\s?k?\s?(usd|usdc|usdt|eur|gbp|dollars?|euros?|eth|btc|sats)\b`),
		regexp.MustCompile(`(bounty|reward|payout|prize)\s*(of|:|=|-)?\s*[$€£]?\d+`),
	},
	Platforms: []string{
		"algora.io", "gitcoin.co", "issuehunt.io", "bountysource.com", "opire.dev",
		"polar.sh", "huntr.com", "huntr.dev", "boss.dev", "replit.com/bounties",
	},
	MinBodyLen:  50,
	MinTitleLen: 20,
	Spam: []*regexp.Regexp{
		regexp.MustCompile(`[!?]{3,}`),
		regexp.MustCompile(`\b(urgent|act now|click (here|now)|free money|limited time|guaranteed|100% free|get rich|earn \$?\d+ (per|a) day|dm me)\b`),
	},
	ShoutPatterns: []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Z]{2,}(\s+[A-Z]{2,}){3,}\b`),
	},
	LabelMarkers: []string{
		"bounty", "reward", "paid", "funded", "sponsored", "💰", "💎", "$",
	},
}

// DefaultRules returns the built-in rule table
func DefaultRules() *RuleSet {
	return defaultRules
}

// HasBountyDetails evaluates title and body against the default rules
func HasBountyDetails(title, body string) bool {
	return defaultRules.HasBountyDetails(title, body)
}

// HasBountyDetails requires a keyword, then supporting evidence (an amount,
// a platform domain or enough content), and rejects spam outright.
func (r *RuleSet) HasBountyDetails(title, body string) bool {
	original := title + " " + body
	text := strings.ToLower(original)

	if !r.hasKeyword(text) {
		return false
	}
	if r.IsSpam(original) {
		return false
	}
	return r.hasAmount(text) ||
		r.hasPlatform(text) ||
		len(body) > r.MinBodyLen ||
		len(title) > r.MinTitleLen
}

// IsSpam reports whether text trips any spam pattern
func (r *RuleSet) IsSpam(text string) bool {
	for _, re := range r.ShoutPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, re := range r.Spam {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func (r *RuleSet) hasKeyword(text string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (r *RuleSet) hasAmount(text string) bool {
	for _, re := range r.Monetary {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (r *RuleSet) hasPlatform(text string) bool {
	for _, domain := range r.Platforms {
		if strings.Contains(text, domain) {
			return true
		}
	}
	return false
}
