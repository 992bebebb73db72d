package logging

import (
	"bytes"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", &buf)
	level.Info(logger).Log("msg", "hidden")
	level.Warn(logger).Log("msg", "shown", "key", 42)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "key=42")
	assert.Contains(t, out, "level=warn")
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("DEBUG", &buf)
	level.Debug(logger).Log("msg", "step")
	assert.Contains(t, buf.String(), "level=debug")
}

func TestValid(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error", "none", "Warning"} {
		assert.True(t, Valid(l), l)
	}
	assert.False(t, Valid("verbose"))
	assert.NotNil(t, OrNop(nil))
}
