package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIDsJSONArray(t *testing.T) {
	ids, err := extractIDs(`["a1b2c3d4e5f6", "0123456789ab"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1b2c3d4e5f6", "0123456789ab"}, ids)
}

func TestExtractIDsArrayWithSurroundingProse(t *testing.T) {
	ids, err := extractIDs("I created the cards:\n[\"a1b2c3d4e5f6\"]\nLet me know if you need more.")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1b2c3d4e5f6"}, ids)
}

func TestExtractIDsSingleBareID(t *testing.T) {
	ids, err := extractIDs("  a1b2c3d4e5f6\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1b2c3d4e5f6"}, ids)
}

func TestExtractIDsFallbackScansProse(t *testing.T) {
	ids, err := extractIDs("Done! Created card a1b2c3d4e5f6 and also a1b2c3d4e5f6 again, plus 0123456789ab.")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1b2c3d4e5f6", "0123456789ab"}, ids, "duplicates collapse, order preserved")
}

func TestExtractIDsRejectsJunk(t *testing.T) {
	_, err := extractIDs("I could not complete the request.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entity IDs")

	// Uppercase and wrong-length hex are not board IDs.
	_, err = extractIDs("A1B2C3D4E5F6 or abc123")
	assert.Error(t, err)
}

func TestExtractIDsErrorTrimsLongResponse(t *testing.T) {
	_, err := extractIDs(strings.Repeat("z", 500))
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 300)
	assert.Contains(t, err.Error(), "...")
}

func TestRenderCreateCardsPrompt(t *testing.T) {
	out, err := renderPrompt(createCardsTmpl, promptData{Prompt: "add dark mode", Column: "todo"})
	require.NoError(t, err)
	assert.Contains(t, out, "add dark mode")
	assert.Contains(t, out, "in the todo column")

	out, err = renderPrompt(createCardsTmpl, promptData{Prompt: "add dark mode"})
	require.NoError(t, err)
	assert.NotContains(t, out, "column")
}

func TestRenderGenerateCardsPrompt(t *testing.T) {
	out, err := renderPrompt(generateCardsTmpl, promptData{PlanID: "a1b2c3d4e5f6", ExtraContext: "focus on backend"})
	require.NoError(t, err)
	assert.Contains(t, out, "plan a1b2c3d4e5f6")
	assert.Contains(t, out, "focus on backend")
}

func TestPayloadText(t *testing.T) {
	var env envelope
	env.Result.Payloads = []struct {
		Text string `json:"text"`
	}{{Text: "first"}, {Text: ""}, {Text: "second"}}

	assert.Equal(t, "first\nsecond", payloadText(env))
}
