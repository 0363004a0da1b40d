package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsole_StatusLines(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Info("checking %s", "ports")
	c.Success("tests passed")
	c.Warn("port %d still bound", 3000)
	c.Fail("attempt %d failed", 2)
	c.Step("reinstalling dependencies")

	out := buf.String()
	assert.Contains(t, out, "checking ports")
	assert.Contains(t, out, "tests passed")
	assert.Contains(t, out, "port 3000 still bound")
	assert.Contains(t, out, "attempt 2 failed")
	assert.Contains(t, out, "reinstalling dependencies")
	assert.Equal(t, 5, strings.Count(out, "\n"))
}

func TestConsole_Tail(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Tail("l1\nl2\nl3\nl4\nl5\n", 3)
	out := buf.String()
	assert.NotContains(t, out, "l1")
	assert.NotContains(t, out, "l2")
	assert.Contains(t, out, "l3")
	assert.Contains(t, out, "l5")
	assert.Contains(t, out, "showing last 3 lines")
}

func TestConsole_TailShortOutput(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Tail("only line\n", 15)
	out := buf.String()
	assert.Contains(t, out, "only line")
	assert.NotContains(t, out, "showing last")
}
