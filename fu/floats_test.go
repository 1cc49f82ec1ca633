package fu

import (
	"testing"

	"gotest.tools/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, Mean([]float64{1, 2, 3, 4}), 2.5)
}

func TestMse(t *testing.T) {
	assert.Equal(t, Mse([]float64{1, 2}, []float64{1, 4}), 2.0)
}

func TestFlatnr(t *testing.T) {
	r := Flatnr([][]float64{{1, 2}, {3}, {4, 5, 6}})
	assert.DeepEqual(t, r, []float64{1, 2, 3, 4, 5, 6})
}

func TestIsClose(t *testing.T) {
	assert.Assert(t, IsClose(1.0, 1.0+1e-9, 1e-8))
	assert.Assert(t, !IsClose(1.0, 1.1, 1e-8))
}
