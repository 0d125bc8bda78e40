package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "json", &buf)
	logger.Debug("loaded", "rows", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestNewLogger_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "text", &buf)
	logger.Info("hidden")
	assert.Empty(t, buf.String())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestMetrics(t *testing.T) {
	m := NewMetricsForTesting()
	m.ObserveQuery("average", "ok", time.Millisecond)
	m.ObserveQuery("average", "ok", time.Millisecond)
	m.ObserveQuery("forecast", "no_data", time.Millisecond)
	m.SetCorpus(10, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Queries.WithLabelValues("average", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Queries.WithLabelValues("forecast", "no_data")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.CorpusRecords))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CorpusSites))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveQuery("average", "ok", time.Second)
	m.ObserveLoad("city", time.Second)
	m.SetCorpus(1, 1)
}
