// Package redact masks secrets and personal identifiers in text before it
// reaches logs, persisted messages, or audit trails.
package redact

import (
	"log/slog"
	"regexp"
)

// Replacement is substituted for every pattern match.
const Replacement = "[REDACTED]"

// DefaultPatterns covers the secrets this deployment is known to handle:
// phone-like digit runs, vendor-prefixed API keys, provider key assignments,
// and Google OAuth token shapes.
var DefaultPatterns = []string{
	// Phone numbers (8-15 digits, optional +)
	`\b\+?\d{8,15}\b`,

	// Vendor-prefixed API keys (OpenAI/OpenRouter/Stripe/Slack styles)
	`\b(?:sk|rk|pk|xoxb)-[A-Za-z0-9_-]{12,}\b`,

	// KEY=value assignments for provider credentials
	`(?i)\b(?:OPENROUTER|OPENAI|ANTHROPIC|GOOGLE)_API_KEY\s*=\s*\S+`,

	// Google OAuth access and refresh tokens
	`\bya29\.[A-Za-z0-9_-]{20,}\b`,
	`\b1//[A-Za-z0-9_-]{20,}\b`,
}

// Redactor applies a compiled pattern set to strings.
type Redactor struct {
	patterns []*regexp.Regexp
}

// New compiles the default patterns plus any extras. Extras that fail to
// compile are skipped with a warning rather than aborting startup.
func New(extra []string, logger *slog.Logger) *Redactor {
	all := make([]string, 0, len(DefaultPatterns)+len(extra))
	all = append(all, DefaultPatterns...)
	all = append(all, extra...)

	patterns := make([]*regexp.Regexp, 0, len(all))
	for _, p := range all {
		re, err := regexp.Compile(p)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping invalid redaction pattern", "pattern", p, "error", err)
			}
			continue
		}
		patterns = append(patterns, re)
	}
	return &Redactor{patterns: patterns}
}

// Mask replaces every match of every pattern with the redaction marker.
func (r *Redactor) Mask(s string) string {
	for _, re := range r.patterns {
		s = re.ReplaceAllString(s, Replacement)
	}
	return s
}
