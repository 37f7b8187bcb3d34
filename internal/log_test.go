package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"":        LogLevelInfo,
		"ERROR":   LogLevelError,
		"warn":    LogLevelWarn,
		"WARNING": LogLevelWarn,
		"DEBUG":   LogLevelDebug,
		" trace ": LogLevelTrace,
		"bogus":   LogLevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	l := NewLogger(LogLevelWarn)
	var buf bytes.Buffer
	l.Logrus().SetOutput(&buf)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.WithComponent("forest").Error("failed %s", "fit")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "component=forest")
	assert.Equal(t, LogLevelWarn, l.GetLevel())
}
