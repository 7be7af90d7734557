package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordPrediction("live", "TCS")
	r.RecordPrediction("live", "TCS")
	r.RecordPrediction("synthetic", "TCS")
	r.RecordFallback("timeout")
	r.RecordLastPrice("TCS", 4200)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.predictions.WithLabelValues("live", "TCS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.predictions.WithLabelValues("synthetic", "TCS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("timeout")))
	assert.Equal(t, 4200.0, testutil.ToFloat64(r.lastPrice.WithLabelValues("TCS")))
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
