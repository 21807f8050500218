package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	plan := Parse("Apple apple, PIE")
	assert.Equal(t, []string{"apple", "pie"}, plan.Terms)
	assert.Equal(t, "Apple apple, PIE", plan.Literal)
	assert.False(t, plan.Empty())
}

func TestParseEmpty(t *testing.T) {
	plan := Parse("")
	assert.Empty(t, plan.Terms)
	assert.True(t, plan.Empty())
}

func TestParsePunctuationOnly(t *testing.T) {
	plan := Parse("***")
	assert.Empty(t, plan.Terms)
	assert.Equal(t, "***", plan.Literal)
	assert.False(t, plan.Empty())
}
