package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/supplycast/pkg/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Env: "staging", LogLevel: "info", LogFormat: "json"}

	log := NewWithWriter(cfg, &buf)
	log.WithField("execute_id", "abc").Info("claimed")

	entry := decode(t, &buf)
	assert.Equal(t, "staging", entry["env"])
	assert.Equal(t, "abc", entry["execute_id"])
	assert.Equal(t, "claimed", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Env: "development", LogLevel: "info", LogFormat: "console"}

	NewWithWriter(cfg, &buf).Warn("stale claim")

	assert.Contains(t, buf.String(), "stale claim")
	assert.False(t, strings.HasPrefix(buf.String(), "{"))
}

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log := &Logger{zlog: zerolog.New(&buf)}

	log.WithError(errors.New("fit failed")).
		WithFields(map[string]interface{}{"algorithm": "ALGO_03", "supplier": 42}).
		Error("row skipped")

	entry := decode(t, &buf)
	assert.Equal(t, "fit failed", entry["error"])
	assert.Equal(t, "ALGO_03", entry["algorithm"])
	assert.Equal(t, float64(42), entry["supplier"])
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	comp := Component(zerolog.New(&buf), "pipeline.chart")
	comp.Info().Msg("flush")

	entry := decode(t, &buf)
	assert.Equal(t, "pipeline.chart", entry["component"])
}

func TestAuditFile_Appends(t *testing.T) {
	dir := t.TempDir()
	af := NewAuditFile(filepath.Join(dir, "nested"), ChartProgressFile("1234_ACME"))
	af.now = func() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) }

	require.NoError(t, af.Printf("item %d of %d", 1, 2))
	require.NoError(t, af.Printf("item %d of %d", 2, 2))

	data, err := os.ReadFile(af.Path())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-03-01 10:30:00 - item 1 of 2", lines[0])
	assert.True(t, strings.HasSuffix(af.Path(), "log_graficos_1234_ACME.txt"))
}
