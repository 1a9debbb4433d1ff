package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"  nonsense ", zerolog.InfoLevel},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, parseLevel(c.in), "parseLevel(%q)", c.in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", Component: "harness", Writer: &buf})

	l.Info().Str("detector", "iqr").Int("anomalies", 3).Msg("detector finished")

	out := buf.String()
	assert.Contains(t, out, `"component":"harness"`)
	assert.Contains(t, out, `"detector":"iqr"`)
	assert.Contains(t, out, `"anomalies":3`)
	assert.Contains(t, out, `"message":"detector finished"`)
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Level: "info", Format: "json", Writer: &buf})

	harness := Named(base, "harness")
	harness.Info().Msg("detector finished")
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `"component"`))
	assert.Contains(t, out, `"component":"harness"`)

	buf.Reset()
	plain := Named(base, "")
	plain.Info().Msg("plain")
	assert.NotContains(t, buf.String(), `"component"`)
}

func TestNewConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", Format: "console", Writer: &buf})

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, "shown")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "JSON")

	opt := FromEnv()
	assert.Equal(t, "debug", opt.Level)
	assert.Equal(t, "json", opt.Format)
}
