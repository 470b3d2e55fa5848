package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("")
	assert.Equal(t, "batch-1", g.Generate())
	assert.Equal(t, "batch-2", g.Generate())

	g = NewSequenceGenerator("run")
	assert.Equal(t, "run-1", g.Generate())
}
