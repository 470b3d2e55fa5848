package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dios/internal/testutil"
)

func TestResolveDate(t *testing.T) {
	clk := testutil.ClockAt("2026-03-07")

	valid := map[string]string{
		"":            "2026-03-07",
		"  ":          "2026-03-07",
		"2026-03-02":  "2026-03-02",
		"today":       "2026-03-07",
		" yesterday ": "2026-03-06",
		"Yesterday":   "2026-03-06",
	}
	for in, want := range valid {
		d, err := resolveDate(in, clk)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}

	_, err := resolveDate("last monday", clk)
	assert.NoError(t, err)

	for _, in := range []string{"zzz", "foo today bar", "today please", "see you yesterday", "2026-13-01"} {
		_, err := resolveDate(in, clk)
		assert.ErrorIs(t, err, errInvalidDate, in)
	}
}

func TestWholeMatch(t *testing.T) {
	assert.True(t, wholeMatch("today", 0, "today"))
	assert.True(t, wholeMatch("next friday ", 0, "next friday"))
	assert.False(t, wholeMatch("foo today", 4, "today"))
	assert.False(t, wholeMatch("today bar", 0, "today"))
	assert.False(t, wholeMatch("today", 2, "today"))
}
