package telephony

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://caller.example.com"

func TestVoiceDocumentListen(t *testing.T) {
	doc := VoiceDocument{
		BaseURL:     base,
		Say:         []string{"Hi Pat, quick question.", "Is now a good time?"},
		Listen:      true,
		NoInputText: "No problem, bye for now.",
	}

	body, err := doc.Render()
	require.NoError(t, err)
	xml := string(body)

	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, "<Response>")
	assert.Contains(t, xml, base+"/speech-audio?text=Hi+Pat%2C+quick+question.")
	assert.Contains(t, xml, `input="speech"`)
	assert.Contains(t, xml, `action="`+base+`/call/utterance"`)
	assert.Contains(t, xml, `timeout="6"`)
	assert.Contains(t, xml, `speechTimeout="auto"`)
	assert.Contains(t, xml, "<Hangup>")

	// Prompts must precede the Gather; the no-input fallback must follow it.
	gatherAt := strings.Index(xml, "<Gather")
	require.Positive(t, gatherAt)
	assert.Less(t, strings.Index(xml, "quick+question"), gatherAt)
	assert.Greater(t, strings.Index(xml, "bye+for+now"), gatherAt)
}

func TestVoiceDocumentHangup(t *testing.T) {
	doc := VoiceDocument{
		BaseURL: base,
		Say:     []string{"Bye for now."},
	}

	body, err := doc.Render()
	require.NoError(t, err)
	xml := string(body)

	assert.NotContains(t, xml, "<Gather")
	assert.Contains(t, xml, "<Hangup>")
	assert.Contains(t, xml, "Bye+for+now")
}

func TestSpeechURLEscapesText(t *testing.T) {
	url := SpeechURL(base, `we have your address as 1 & 2 "Test" St`)
	assert.NotContains(t, url, `"`)
	assert.NotContains(t, url, "& ")
	assert.Contains(t, url, "speech-audio?text=")
}
