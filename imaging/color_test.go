package imaging

import (
	"testing"

	"golang.org/x/xerrors"
	"gotest.tools/assert"

	"go-ml.dev/pkg/defectdetect/fu"
	"go-ml.dev/pkg/defectdetect/tensor"
)

func TestRGBToGrayscale(t *testing.T) {
	img := tensor.New(1, 2, 3)
	// pure red and pure white
	img.Set(255, 0, 0, 0)
	for c := 0; c < 3; c++ {
		img.Set(255, 0, 1, c)
	}
	g, err := RGBToGrayscale(img)
	assert.NilError(t, err)
	assert.Assert(t, g.Shape().Eq(tensor.Shape{1, 2}))
	assert.Assert(t, fu.IsClose(g.At(0, 0), 0.299*255, 1e-9))
	assert.Assert(t, fu.IsClose(g.At(0, 1), 255, 1e-9))
}

func TestRGBToGrayscaleRejectsNonRGB(t *testing.T) {
	_, err := RGBToGrayscale(tensor.New(2, 2))
	assert.Assert(t, xerrors.Is(err, ErrImageDimension))
	_, err = RGBToGrayscale(tensor.New(2, 2, 1))
	assert.Assert(t, xerrors.Is(err, ErrImageDimension))
}

func TestGrayscaleToBinary(t *testing.T) {
	img := tensor.From([]float64{
		10, 12, 11, 9,
		240, 250, 245, 238,
	}, 2, 4)
	b := GrayscaleToBinary(img)
	assert.DeepEqual(t, b.Data, []float64{0, 0, 0, 0, 1, 1, 1, 1})
}

func TestGrayscaleToBinaryFlat(t *testing.T) {
	img := tensor.From([]float64{5, 5, 5, 5}, 2, 2)
	b := GrayscaleToBinary(img)
	assert.DeepEqual(t, b.Data, []float64{0, 0, 0, 0})
}

func TestEnsureChannelDim(t *testing.T) {
	assert.NilError(t, EnsureChannelDim(tensor.New(3, 3, 1)))
	err := EnsureChannelDim(tensor.New(3, 3))
	assert.Assert(t, xerrors.Is(err, ErrImageDimension))
	assert.ErrorContains(t, err, "(3, 3)")
}
