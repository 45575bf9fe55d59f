package viz

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/automerge-trellis/pkg/board"
)

var history = []board.Revision{
	{Index: 0, Hash: "aaaaaaaaaaaa", Author: "Yuri", Seq: 1, Action: board.ActionNewDocument},
	{Index: 1, Hash: "bbbbbbbbbbbb", Author: "Yuri", Seq: 2, Action: board.ActionCreateCard, Deps: []string{"aaaaaaaaaaaa"}},
	{Index: 2, Hash: "cccccccccccc", Seq: 1, Deps: []string{"aaaaaaaaaaaa"}},
}

func TestWriteDot(t *testing.T) {
	var buff bytes.Buffer
	require.NoError(t, WriteDot(history, &buff))
	out := buff.String()
	assert.True(t, strings.HasPrefix(out, `digraph "history" {`))
	assert.Contains(t, out, `"bbbbbbbbbbbb" [label="#1 bbbbbbbb Yuri@2 CREATE_CARD"]`)
	assert.Contains(t, out, `"aaaaaaaaaaaa" -> "cccccccccccc"`)
	assert.Contains(t, out, `[label="#2 cccccccc ?@1 -"]`)
}

func TestRenderHistorySvg(t *testing.T) {
	var buff bytes.Buffer
	require.NoError(t, RenderHistorySvg(history, &buff))
	assert.Contains(t, buff.String(), "<svg")
	assert.Contains(t, buff.String(), "CREATE_CARD")

	err := RenderHistorySvg([]board.Revision{{Hash: "x", Deps: []string{"missing"}}}, &bytes.Buffer{})
	assert.Error(t, err)
}
