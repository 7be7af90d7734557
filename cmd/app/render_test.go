package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
	"QuantPulse/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(shock bool) models.EnsembleResult {
	return usecase.NewSynthesizer(usecase.DefaultWeights()).Synthesize("RELIANCE", 2450, shock, time.Now())
}

func TestRenderResult(t *testing.T) {
	out := renderResult(sampleResult(true), models.ProvenanceSynthetic)

	assert.Contains(t, out, "RELIANCE")
	assert.Contains(t, out, "synthetic")
	assert.Contains(t, out, "SHOCK")
	assert.Contains(t, out, "2327.50")
	assert.Contains(t, out, "DOWN -5.00%")
}

func TestWriteResultJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(false), true))

	var res models.EnsembleResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &res))
	assert.Equal(t, "RELIANCE", res.Symbol)
	assert.Equal(t, 2450.0, res.CurrentPrice)
	assert.Equal(t, models.DirectionUp, res.Direction)
}
