package models

import "strings"

// MaxHistoryTurns bounds the conversation passed to the orchestrator.
const MaxHistoryTurns = 10

// NormalizeRole lowercases a history role and resolves the "ai" alias to
// assistant. The second return is false for anything that is not a valid
// conversation role.
func NormalizeRole(role string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user":
		return RoleUser, true
	case "assistant", "ai":
		return RoleAssistant, true
	default:
		return "", false
	}
}

// SanitizeHistory truncates a conversation to the most recent
// MaxHistoryTurns entries, normalizes roles and drops turns that fail
// validation. Invalid turns are skipped silently, never erroring the
// whole request.
func SanitizeHistory(history []ConversationTurn) []ConversationTurn {
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}

	validated := make([]ConversationTurn, 0, len(history))
	for _, turn := range history {
		role, ok := NormalizeRole(turn.Role)
		if !ok || turn.Content == "" {
			continue
		}
		validated = append(validated, ConversationTurn{
			Role:      string(role),
			Content:   turn.Content,
			Timestamp: turn.Timestamp,
		})
	}
	return validated
}
