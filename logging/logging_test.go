package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	id := uuid.New()

	l := newBufferLogger(&buf).WithRun(id).WithWorker(3).WithK(5)
	l.LogIteration(context.Background(), 2, 1.5, true, 1)

	var entry map[string]any
	require.NoError(t, gojson.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, id.String(), entry["run"])
	assert.Equal(t, float64(3), entry["worker"])
	assert.Equal(t, float64(5), entry["k"])
	assert.Equal(t, float64(2), entry["iteration"])
	assert.Equal(t, true, entry["changed"])
}

func TestLogger_RunFinishedLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.LogRunFinished(context.Background(), "failed", time.Second, errors.New("boom"))

	var entry map[string]any
	require.NoError(t, gojson.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "boom", entry["error"])
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	assert.NotNil(t, OrNoop(nil))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nope"))
}
