package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToChatHTMLBoldAndItalic(t *testing.T) {
	out := ToChatHTML("**bold** and *italic*")
	assert.Contains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "<i>italic</i>")
}

func TestToChatHTMLListsBecomeBullets(t *testing.T) {
	out := ToChatHTML("- first\n- second")
	assert.Contains(t, out, "• first")
	assert.Contains(t, out, "• second")
	assert.NotContains(t, out, "<li>")
	assert.NotContains(t, out, "<ul>")
}

func TestToChatHTMLStripsUnsupportedTags(t *testing.T) {
	out := ToChatHTML("# Heading\n\n### Deep heading\n\ntext")
	assert.NotContains(t, out, "<h1>")
	assert.NotContains(t, out, "<h3>")
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "Deep heading")
}

func TestToChatHTMLEmptyInput(t *testing.T) {
	assert.Equal(t, "", ToChatHTML(""))
}
