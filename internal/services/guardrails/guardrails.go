// Package guardrails classifies a query before any paid downstream call
// is made. All matching is against fixed, exported lists so policy can be
// reviewed and extended without touching control flow.
package guardrails

import (
	"regexp"
	"strings"
)

// User-facing rejection messages. These are part of the API contract.
const (
	MsgSensitiveInfo    = "Your message appears to contain sensitive or personal information. Please remove it and try again."
	MsgAbusiveLanguage  = "Your message contains language that is not allowed. Please rephrase."
	MsgRestrictedAdvice = "Sorry, I cannot provide legal, financial, or medical advice."
)

// SensitivePatterns match number shapes that look like personal
// identifiers. Emails are deliberately absent: users must be able to
// share an address for follow-up contact.
var SensitivePatterns = []string{
	`\b\d{3}[-.\s]?\d{2}[-.\s]?\d{4}\b`, // SSN
	`\b\d{16}\b`,                        // credit card
	`\b\d{10}\b`,                        // phone number
	`\b\d{5}(?:-\d{4})?\b`,              // US ZIP
	`\b(?:\d[ -]*?){13,16}\b`,           // credit card (loose)
	`\b(?:\d[ -]*?){9,12}\b`,            // bank account (loose)
}

// AbusiveWords blocks on case-insensitive substring containment.
var AbusiveWords = []string{
	"abuse", "hate", "kill", "suicide", "violence", "racist", "sexist", "terrorist", "attack",
	"idiot", "stupid", "dumb", "fool", "moron", "bastard", "bitch", "asshole", "slut", "whore",
}

// RestrictedAdviceTerms block requests for regulated advice on a
// word-boundary match.
var RestrictedAdviceTerms = []string{
	"legal", "lawyer", "attorney", "finance", "investment",
	"medical", "doctor", "diagnosis", "prescribe", "prescription",
}

var (
	sensitiveRegexps []*regexp.Regexp
	adviceRegexp     *regexp.Regexp
)

func init() {
	for _, pattern := range SensitivePatterns {
		sensitiveRegexps = append(sensitiveRegexps, regexp.MustCompile(`(?i)`+pattern))
	}
	adviceRegexp = regexp.MustCompile(`(?i)\b(` + strings.Join(RestrictedAdviceTerms, "|") + `)\b`)
}

// Check classifies a query. It returns the rejection message for the
// first matching classifier, or "" when the request may proceed.
func Check(query string) string {
	for _, re := range sensitiveRegexps {
		if re.MatchString(query) {
			return MsgSensitiveInfo
		}
	}

	lowered := strings.ToLower(query)
	for _, word := range AbusiveWords {
		if strings.Contains(lowered, word) {
			return MsgAbusiveLanguage
		}
	}

	if adviceRegexp.MatchString(query) {
		return MsgRestrictedAdvice
	}

	return ""
}
