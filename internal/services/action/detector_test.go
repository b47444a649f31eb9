package action

import (
	"testing"

	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDetectProposedActionAndAgreement(t *testing.T) {
	answer := "I can schedule a meeting with the team for you."

	signal := Detect(answer, "yes please, a@b.com", nil)
	assert.True(t, signal.AssistantProposedAction)
	assert.True(t, signal.UserAgreed)
	assert.Equal(t, "a@b.com", signal.UserEmail)

	signal = Detect(answer, "what?", nil)
	assert.True(t, signal.AssistantProposedAction)
	assert.False(t, signal.UserAgreed)
}

func TestDetectFollowupPhrase(t *testing.T) {
	signal := Detect("We have received your request and the team will contact you.", "ok", nil)
	assert.True(t, signal.AssistantProposedAction)
	assert.True(t, signal.UserAgreed)
}

func TestDetectNoSignal(t *testing.T) {
	signal := Detect("Aven cards carry no annual fee.", "what?", nil)
	assert.False(t, signal.AssistantProposedAction)
	assert.False(t, signal.UserAgreed)
	assert.Empty(t, signal.UserEmail)
}

func TestIsSchedulingIntent(t *testing.T) {
	assert.True(t, IsSchedulingIntent("Let me schedule that call."))
	assert.False(t, IsSchedulingIntent("I have informed the support team."))
}

func TestExtractEmailMailCommandWinsOverHistory(t *testing.T) {
	history := []models.ConversationTurn{
		{Role: "user", Content: "my address is other@example.com"},
	}
	got := ExtractEmail("/mail a@b.com please contact me", history)
	assert.Equal(t, "a@b.com", got)
}

func TestExtractEmailMailCommandInHistory(t *testing.T) {
	history := []models.ConversationTurn{
		{Role: "assistant", Content: "write to /mail bot@internal.example"},
		{Role: "user", Content: "/mail me@example.com"},
	}
	// Assistant turns are never scanned.
	assert.Equal(t, "me@example.com", ExtractEmail("thanks", history))
}

func TestExtractEmailBareQueryBeatsHistory(t *testing.T) {
	history := []models.ConversationTurn{
		{Role: "user", Content: "old@example.com"},
	}
	assert.Equal(t, "new@example.com", ExtractEmail("use new@example.com", history))
}

func TestExtractEmailHistoryExcludesGenericAddresses(t *testing.T) {
	history := []models.ConversationTurn{
		{Role: "user", Content: "I wrote to support@aven.com already"},
		{Role: "user", Content: "you can reach me at jane@example.com"},
	}
	assert.Equal(t, "jane@example.com", ExtractEmail("any update?", history))
}

func TestExtractEmailGenericOKViaMailCommand(t *testing.T) {
	// The exclusion only applies to bare history scanning.
	assert.Equal(t, "admin@example.com", ExtractEmail("/mail admin@example.com", nil))
}

func TestExtractEmailNone(t *testing.T) {
	assert.Empty(t, ExtractEmail("no address here", nil))
}
