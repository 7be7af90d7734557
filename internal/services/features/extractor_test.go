package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleReturns(t *testing.T) {
	assert.Nil(t, SimpleReturns([]float64{1}))
	r := SimpleReturns([]float64{100, 110, 99})
	assert.InDeltaSlice(t, []float64{0.1, -0.1}, r, 1e-12)
}

func TestSMA(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 4.5, SMA(xs, 2), 1e-12)
	assert.InDelta(t, 3.0, SMA(xs, 5), 1e-12)
	assert.Zero(t, SMA(xs, 6))
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.Zero(t, StdDev(nil))
}
