package prompt

import (
	"strings"
	"testing"

	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMinimal(t *testing.T) {
	messages := Build("Hi", "Ctx", nil, "")

	require.Len(t, messages, 3)

	// User query is the last message, verbatim.
	last := messages[len(messages)-1]
	assert.Equal(t, models.RoleUser, last.Role)
	assert.Equal(t, "Hi", last.Content)

	// Exactly one system message embeds the context.
	embedding := 0
	for _, msg := range messages[:len(messages)-1] {
		assert.Equal(t, models.RoleSystem, msg.Role)
		if strings.Contains(msg.Content, "Ctx") {
			embedding++
			assert.Contains(t, msg.Content, "---\nCtx\n---")
		}
	}
	assert.Equal(t, 1, embedding)
}

func TestBuildInstructionalFirst(t *testing.T) {
	messages := Build("Hi", "", nil, "Always answer in French.")

	// Instructional, persona, context wrapper (emitted even when the
	// retrieved context is empty), then the user query.
	require.Len(t, messages, 4)
	assert.Equal(t, models.RoleSystem, messages[0].Role)
	assert.Equal(t, "Always answer in French.", messages[0].Content)
	assert.Equal(t, SystemPrompt, messages[1].Content)
	assert.Contains(t, messages[2].Content, "Knowledge Base Context")
	assert.Equal(t, models.RoleUser, messages[3].Role)
}

func TestBuildHistorySummary(t *testing.T) {
	history := []models.ConversationTurn{
		{Role: "user", Content: "turn 1"},
		{Role: "assistant", Content: "turn 2"},
		{Role: "user", Content: "turn 3"},
		{Role: "assistant", Content: "turn 4"},
		{Role: "user", Content: "turn 5"},
		{Role: "assistant", Content: "turn 6"},
		{Role: "user", Content: "turn 7"},
	}

	messages := Build("Hi", "Ctx", history, "")
	require.Len(t, messages, 4)

	summary := messages[2].Content
	assert.Contains(t, summary, "Recent Conversation History:")
	assert.Contains(t, summary, "User: turn 7")
	assert.Contains(t, summary, "Assistant: turn 2")
	// Only the last 6 turns are summarized.
	assert.NotContains(t, summary, "turn 1")
}
