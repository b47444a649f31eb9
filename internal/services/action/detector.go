// Package action scans a finished exchange for follow-up intent. All
// matching is case-insensitive substring containment against fixed lists;
// false positives only add a clarifying sentence or trigger a
// notification attempt and never block the primary answer.
package action

import (
	"regexp"
	"strings"

	"github.com/aarav0180/aven-backend/internal/models"
)

// ActionKeywords mark an answer as proposing a follow-up action.
var ActionKeywords = []string{
	"schedule", "meeting", "call", "contact support", "email support",
	"reach out", "get in touch", "contact us", "support team",
}

// FollowupPhrases are canned knowledge-base phrases that imply the team
// will follow up.
var FollowupPhrases = []string{
	"i've informed the team", "you can expect to hear from them", "a member of our team will call you",
	"we have received your request", "the team will contact you", "we will follow up", "you will be contacted",
	"we will get back to you", "thank you for your inquiry", "your reference number is", "we will reach out",
}

// AgreementKeywords mark the user's latest query as accepting a proposed
// action.
var AgreementKeywords = []string{
	"yes", "okay", "sure", "please do", "schedule", "contact", "meeting",
	"go ahead", "that would be great", "please", "do it",
}

// SchedulingKeywords distinguish a meeting request from a plain support
// hand-off.
var SchedulingKeywords = []string{"schedule", "meeting", "call"}

// GenericAddressPrefixes are role addresses excluded when scanning
// history for a bare contact email. An explicit /mail command is never
// filtered.
var GenericAddressPrefixes = []string{"support@", "noreply@", "no-reply@", "admin@", "info@"}

var (
	mailCommandRegexp = regexp.MustCompile(`/mail\s*([\w.-]+@[\w.-]+)`)
	emailRegexp       = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
)

// Detect derives the action signal for one request from the final answer,
// the user's latest query and the validated history.
func Detect(answer, query string, history []models.ConversationTurn) models.ActionSignal {
	return models.ActionSignal{
		AssistantProposedAction: proposesAction(answer),
		UserAgreed:              containsAny(query, AgreementKeywords),
		UserEmail:               ExtractEmail(query, history),
	}
}

// IsSchedulingIntent reports whether the answer asks for a meeting rather
// than a plain support hand-off.
func IsSchedulingIntent(answer string) bool {
	return containsAny(answer, SchedulingKeywords)
}

func proposesAction(answer string) bool {
	return containsAny(answer, ActionKeywords) || containsAny(answer, FollowupPhrases)
}

// ExtractEmail finds the user's contact address. Checked in priority
// order: /mail command in the current query, /mail in user history turns,
// a bare email in the current query, then a bare email in user history
// turns with generic role addresses excluded.
func ExtractEmail(query string, history []models.ConversationTurn) string {
	if m := mailCommandRegexp.FindStringSubmatch(query); m != nil {
		return m[1]
	}

	for _, turn := range history {
		if turn.Role != string(models.RoleUser) {
			continue
		}
		if m := mailCommandRegexp.FindStringSubmatch(turn.Content); m != nil {
			return m[1]
		}
	}

	if m := emailRegexp.FindString(query); m != "" {
		return m
	}

	for _, turn := range history {
		if turn.Role != string(models.RoleUser) {
			continue
		}
		if m := emailRegexp.FindString(turn.Content); m != "" && !isGenericAddress(m) {
			return m
		}
	}

	return ""
}

func isGenericAddress(email string) bool {
	lowered := strings.ToLower(email)
	for _, prefix := range GenericAddressPrefixes {
		if strings.Contains(lowered, prefix) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
