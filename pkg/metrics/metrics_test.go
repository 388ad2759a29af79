package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordGeneration(t *testing.T) {
	before := testutil.ToFloat64(GenerationsTotal.WithLabelValues("gemini-flash", "success"))
	tokensBefore := testutil.ToFloat64(LLMTokensTotal.WithLabelValues("gemini-flash", "out"))

	RecordGeneration("gemini-flash", "success", 1.5, 10, 20)

	assert.Equal(t, before+1, testutil.ToFloat64(GenerationsTotal.WithLabelValues("gemini-flash", "success")))
	assert.Equal(t, tokensBefore+20, testutil.ToFloat64(LLMTokensTotal.WithLabelValues("gemini-flash", "out")))
}

func TestSSEConnections(t *testing.T) {
	before := testutil.ToFloat64(SSEConnectionsActive)
	IncrementSSEConnections()
	assert.Equal(t, before+1, testutil.ToFloat64(SSEConnectionsActive))
	DecrementSSEConnections()
	assert.Equal(t, before, testutil.ToFloat64(SSEConnectionsActive))
}
