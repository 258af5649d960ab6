package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMasked(t *testing.T) {
	assert.Equal(t, "****5678", masked("OPENAI_API_KEY", "12345678"))
	assert.Equal(t, "NONE", masked("OPENAI_API_KEY", "NONE"))
	assert.Equal(t, "gpt-4o", masked("OPENAI_MODEL", "gpt-4o"))
	assert.Equal(t, "abc", masked("GEMINI_API_KEY", "abc"))
}
