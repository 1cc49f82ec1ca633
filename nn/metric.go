package nn

import (
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"
)

type metric interface {
	compute(logits *mat.Dense, labels []int) float64
	name() string
}

func metricByID(id string) (metric, error) {
	switch id {
	case "accuracy":
		return accuracyMetric{}, nil
	}
	return nil, xerrors.Errorf("unknown metric %q", id)
}

type accuracyMetric struct{}

func (accuracyMetric) compute(logits *mat.Dense, labels []int) float64 {
	n, _ := logits.Dims()
	if n == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if argmax(logits.RawRowView(i)) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

func (accuracyMetric) name() string { return "accuracy" }

func argmax(row []float64) int {
	k := 0
	for i, v := range row {
		if v > row[k] {
			k = i
		}
	}
	return k
}
