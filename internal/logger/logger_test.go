package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"warning", LogLevelWarn},
		{"warn", LogLevelWarn},
		{"error", LogLevelError},
		{"", LogLevelInfo},
		{"verbose", LogLevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn, nil)

	log.Info("hidden")
	log.Warn("visible", String("rule", "coverage"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "rule=coverage")
}

func TestJSONLogger_FieldsAndModule(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewJSONLogger(&buf, LogLevelDebug, time.UTC).Module("alerting")

	log.Error("check failed", Uint64("rule_id", 7), Error(errors.New("boom")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "alerting", line["module"])
	assert.Equal(t, "check failed", line["msg"])
	assert.EqualValues(t, 7, line["rule_id"])
	assert.Equal(t, "boom", line["error"])
}

func TestErrorField_Nil(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "<nil>", Error(nil).Value)
}
