package ifds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeIDRoundTrip(t *testing.T) {
	ap := New(`app\routes\users.js`, "handler", "req", []string{"body", "id"}, 5)
	assert.Equal(t, "app/routes/users.js", ap.File, "backslashes must normalize on construction")

	id := ap.NodeID()
	parsed, ok := Parse(id, 5)
	require.True(t, ok)
	assert.True(t, ap.Equal(parsed))
}

func TestParseRejectsMalformedIDs(t *testing.T) {
	_, ok := Parse("missing-separators", 5)
	assert.False(t, ok)

	_, ok = Parse("file.js::fn::", 5)
	assert.False(t, ok, "empty base must be rejected")
}

func TestAppendFieldRespectsMaxLength(t *testing.T) {
	ap := New("a.js", "f", "req", []string{"a", "b"}, 3)
	next, ok := ap.AppendField("c")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, next.Fields)

	_, ok = next.AppendField("d")
	assert.False(t, ok, "appending past MaxLength must fail")
}

func TestStripFieldsClampsToLength(t *testing.T) {
	ap := New("a.js", "f", "req", []string{"a", "b"}, 5)
	assert.Equal(t, []string{"a"}, ap.StripFields(1).Fields)
	assert.Empty(t, ap.StripFields(10).Fields)
}

func TestMatchesIsPrefixAliasing(t *testing.T) {
	short := New("a.js", "f", "req", []string{"body"}, 5)
	long := New("a.js", "f", "req", []string{"body", "id"}, 5)
	other := New("a.js", "f", "res", []string{"body"}, 5)

	assert.True(t, short.Matches(long))
	assert.True(t, long.Matches(short))
	assert.False(t, short.Matches(other), "different base never matches")
}

func TestEqualIgnoresMaxLength(t *testing.T) {
	a := New("a.js", "f", "req", []string{"body"}, 3)
	b := New("a.js", "f", "req", []string{"body"}, 10)
	assert.True(t, a.Equal(b))
}

func TestChangeBasePreservesFields(t *testing.T) {
	ap := New("a.js", "f", "req", []string{"body", "id"}, 5)
	next := ap.ChangeBase("b.js", "g", "param")
	assert.Equal(t, "b.js", next.File)
	assert.Equal(t, "g", next.Function)
	assert.Equal(t, "param", next.Base)
	assert.Equal(t, []string{"body", "id"}, next.Fields)
}
