package nn

import (
	"math"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"
)

type loss interface {
	compute(logits *mat.Dense, labels []int) float64
	gradient(logits *mat.Dense, labels []int) *mat.Dense
	name() string
}

func lossByID(id string) (loss, error) {
	switch id {
	case "sparse_categorical_crossentropy":
		return sparseCategoricalCrossentropy{}, nil
	}
	return nil, xerrors.Errorf("unknown loss %q", id)
}

// sparseCategoricalCrossentropy expects raw logits and integer class labels.
type sparseCategoricalCrossentropy struct{}

func (sparseCategoricalCrossentropy) compute(logits *mat.Dense, labels []int) float64 {
	n, _ := logits.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		row := logits.RawRowView(i)
		sum += logSumExp(row) - row[labels[i]]
	}
	return sum / float64(n)
}

func (sparseCategoricalCrossentropy) gradient(logits *mat.Dense, labels []int) *mat.Dense {
	n, c := logits.Dims()
	g := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		softmaxRow(logits.RawRowView(i), g.RawRowView(i))
		g.Set(i, labels[i], g.At(i, labels[i])-1)
	}
	return g
}

func (sparseCategoricalCrossentropy) name() string { return "sparse_categorical_crossentropy" }

func logSumExp(row []float64) float64 {
	max := math.Inf(-1)
	for _, v := range row {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for _, v := range row {
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}
