package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEcho(t *testing.T) {
	assert.Equal(t, "hi", echo(input{Text: "hi"}))
	assert.Equal(t, "hi hi hi", echo(input{Text: "hi", Repeat: 3}))
	assert.Equal(t, "", echo(input{}))
}
