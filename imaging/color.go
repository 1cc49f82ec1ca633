/*
Package imaging implements the pure color-space transforms applied to sample
images before training: RGB to grayscale and grayscale to binary.
*/
package imaging

import (
	"sort"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"go-ml.dev/pkg/defectdetect/fu"
	"go-ml.dev/pkg/defectdetect/tensor"
)

// ITU-R 601 luma weights
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

const otsuBins = 256

/*
RGBToGrayscale converts a 3-channel image to a single-channel one using
the ITU-R 601 luma weights. The result is rank-2: (rows, cols).
*/
func RGBToGrayscale(img *tensor.Image) (*tensor.Image, error) {
	if img.Rank() != 3 || img.Dims[2] != 3 {
		return nil, xerrors.Errorf("expected an image of shape (rows, cols, 3), got %v: %w",
			img.Shape(), ErrImageDimension)
	}
	rows, cols := img.Dims[0], img.Dims[1]
	r := tensor.New(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			k := (i*cols + j) * 3
			r.Data[i*cols+j] = lumaR*img.Data[k] + lumaG*img.Data[k+1] + lumaB*img.Data[k+2]
		}
	}
	return r, nil
}

/*
GrayscaleToBinary thresholds a grayscale image into {0, 1} values using
Otsu's method over a 256-bin intensity histogram.
*/
func GrayscaleToBinary(img *tensor.Image) *tensor.Image {
	th := otsuThreshold(img.Data)
	r := img.Clone()
	for i, v := range img.Data {
		if v > th {
			r.Data[i] = 1
		} else {
			r.Data[i] = 0
		}
	}
	return r
}

// otsuThreshold maximizes the between-class variance over histogram splits.
func otsuThreshold(values []float64) float64 {
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return lo
	}
	dividers := make([]float64, otsuBins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram requires the last divider to be strictly greater
	// than the largest value
	dividers[otsuBins] = hi + (hi-lo)*1e-9
	// stat.Histogram also requires the samples to be sorted ascending
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	hist := stat.Histogram(nil, dividers, sorted, nil)

	total := float64(len(values))
	mean := fu.Mean(values)
	var wb, sumb, best float64
	bestBin := otsuBins / 2
	for i := 0; i < otsuBins-1; i++ {
		center := (dividers[i] + dividers[i+1]) / 2
		wb += hist[i]
		if wb == 0 {
			continue
		}
		wf := total - wb
		if wf == 0 {
			break
		}
		sumb += center * hist[i]
		mb := sumb / wb
		mf := (mean*total - sumb) / wf
		between := wb * wf * (mb - mf) * (mb - mf)
		if between > best {
			best = between
			bestBin = i
		}
	}
	return dividers[bestBin+1]
}
