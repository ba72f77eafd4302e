package layout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]Column{{Title: "Purpose"}, {Title: "Calls", Right: true}},
		[][]string{
			{"worksheet-gen", "12"},
			{"passthrough"},
		},
	)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Purpose")
	assert.Contains(t, lines[0], "Calls")
	assert.Contains(t, lines[1], "───")
	assert.Contains(t, lines[2], "worksheet-gen")
	assert.True(t, strings.HasSuffix(lines[2], "12"), "numeric column should be right aligned: %q", lines[2])
	assert.Equal(t, "passthrough", strings.TrimSpace(lines[3]))
}

func TestRenderSection(t *testing.T) {
	out := RenderSection("REQUEST", "", 10)
	assert.Contains(t, out, "REQUEST")
	assert.Contains(t, out, "(not captured)")

	out = RenderSection("RESPONSE", `{"past":[]}`, 10)
	assert.Contains(t, out, `{"past":[]}`)
}
