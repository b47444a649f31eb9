// Package prompt assembles the ordered message sequence sent to the
// model. The order is fixed: later system messages are additional
// grounding and the user query must come last so the model treats it as
// the active turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/aarav0180/aven-backend/internal/models"
)

// HistoryTurns is the maximum number of history turns summarized into
// the prompt.
const HistoryTurns = 6

// SystemPrompt is the fixed support-assistant persona.
const SystemPrompt = "You are Aven's dedicated and knowledgeable AI support assistant. Your primary role is to provide clear, " +
	"accurate, and helpful information to users based exclusively on Aven's official knowledge base. " +
	"Never guess, invent, or speculate on answers. If the information is not present in the provided knowledge " +
	"base, state honestly that you do not have that information. Provide answers that are direct, easy to " +
	"understand, and to the point, and cite the specific support documentation where the information can be " +
	"found, formatting URLs as clickable Markdown links with descriptive link text. You cannot access or request " +
	"personal account details; if a question requires them, state the limitation and direct the user to log in " +
	"or contact support. If a user asks to schedule a meeting or a call, ask for their email address and whether " +
	"they prefer a scheduled meeting or direct contact with the team. Maintain a transparent, user-focused, " +
	"informal yet professional tone. Never provide legal, financial, tax, or personal advice."

// Build assembles the prompt for one request. The optional tenant
// instructional message goes first, then the persona, then the retrieved
// context between delimiter markers, then a summary of the most recent
// history turns, and finally the user query.
func Build(query, context string, history []models.ConversationTurn, instructionalPrompt string) []models.Message {
	messages := make([]models.Message, 0, 5)

	if instructionalPrompt != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: instructionalPrompt})
	}

	messages = append(messages, models.Message{Role: models.RoleSystem, Content: SystemPrompt})

	messages = append(messages, models.Message{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf("Aven's Official Knowledge Base Context:\n---\n%s\n---", context),
	})

	if len(history) > 0 {
		recent := history
		if len(recent) > HistoryTurns {
			recent = recent[len(recent)-HistoryTurns:]
		}
		lines := make([]string, 0, len(recent))
		for _, turn := range recent {
			lines = append(lines, fmt.Sprintf("%s: %s", capitalize(turn.Role), turn.Content))
		}
		messages = append(messages, models.Message{
			Role:    models.RoleSystem,
			Content: fmt.Sprintf("Recent Conversation History:\n%s\n---", strings.Join(lines, "\n")),
		})
	}

	messages = append(messages, models.Message{Role: models.RoleUser, Content: query})
	return messages
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
