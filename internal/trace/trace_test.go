package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrace_AppendOrder(t *testing.T) {
	tr := New()
	tr.Heading("Step %d", 1)
	tr.Add("   value %s", "x")
	tr.Blank()
	tr.Math("y = x")

	assert.Equal(t, []string{"**Step 1**", "   value x", "", "   $$y = x$$"}, tr.Lines())
	assert.Equal(t, 4, tr.Len())
	assert.True(t, tr.Contains("value x"))
	assert.False(t, tr.Contains("missing"))
}

func TestTrace_LinesIsACopy(t *testing.T) {
	tr := New()
	tr.Add("one")
	lines := tr.Lines()
	lines[0] = "changed"
	assert.Equal(t, "one", tr.Lines()[0])
}

func TestTrace_NilIsNoop(t *testing.T) {
	var tr *Trace
	tr.Add("ignored")
	tr.Blank()
	assert.Nil(t, tr.Lines())
	assert.Zero(t, tr.Len())
	assert.False(t, tr.Contains("ignored"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
}
