package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerWithWriter(&buf, "case-desk", "production")

	log.Info().Str("case_id", "c1").Msg("saved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "case-desk", entry["service"])
	assert.Equal(t, "c1", entry["case_id"])
	assert.Equal(t, "saved", entry["message"])
}

func TestLoggerFromContext_NoSpan(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerWithWriter(&buf, "case-desk", "production")

	LoggerFromContext(context.Background()).Info().Msg("plain")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestInitMetrics_NoopProvider(t *testing.T) {
	metrics, err := InitMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	RecordRequestMetric(ctx, metrics, "GET", "/api/documents", 200, time.Millisecond)
	RecordCacheHit(ctx, metrics, "case:abc")
	RecordBlobMetric(ctx, nil, "put", time.Millisecond)
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "case", keyPrefix("case:abc"))
	assert.Equal(t, "cases", keyPrefix("cases"))
}
