package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToday_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	c := Func(func() time.Time { return time.Date(2026, 10, 16, 2, 0, 0, 0, loc) })
	assert.Equal(t, "2026-10-15", Today(c).String())
}

func TestSystem_ReturnsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, System{}.Now().Location())
}
