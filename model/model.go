/*
Package model implements the defect-detection training pipeline: generic
train/test splitting over a sample dataset and the label-aware image model
with its build/compile/fit/evaluate/plot orchestration.
*/
package model

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"

	"go-ml.dev/pkg/defectdetect/dataset"
)

/*
Split is a disjoint train/test partition of the sample table
*/
type Split struct {
	Train []dataset.Row
	Test  []dataset.Row
}

/*
Model holds a dataset reference and the generic train/test split logic
*/
type Model struct {
	Dataset dataset.Dataset
	Config  Config

	rng   *rand.Rand
	split *Split
}

func New(ds dataset.Dataset, cfg Config) *Model {
	return &Model{
		Dataset: ds,
		Config:  cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Model) Data() *dataset.Table { return m.Dataset.Samples }

/*
Split lazily computes the train/test partition using the configured
training fraction and caches it until the next data mutation
*/
func (m *Model) Split() (*Split, error) {
	if m.split == nil {
		s, err := m.resample(m.Config.TrainingFrac)
		if err != nil {
			return nil, err
		}
		m.split = s
	}
	return m.split, nil
}

func (m *Model) resample(frac float64) (*Split, error) {
	if frac <= 0 || frac >= 1 {
		return nil, zorros.Errorf("training fraction %v is out of (0, 1)", frac)
	}
	rows := m.Data().Rows()
	zlog.Info(fmt.Sprintf("splitting dataset into training (%.2f%%) and test (%.2f%%) parts",
		frac*100, (1-frac)*100))

	k := int(math.Round(frac * float64(len(rows))))
	perm := m.rng.Perm(len(rows))
	train := make([]dataset.Row, 0, k)
	inTrain := make(map[string]bool, k)
	for _, i := range perm[:k] {
		train = append(train, rows[i])
		inTrain[rows[i].ID] = true
	}
	test := make([]dataset.Row, 0, len(rows)-k)
	for _, r := range rows {
		if !inTrain[r.ID] {
			test = append(test, r)
		}
	}
	if len(train)+len(test) != len(rows) {
		return nil, zorros.Errorf("splitting of data into test/training sets resulted in information loss")
	}
	return &Split{Train: train, Test: test}, nil
}

/*
Amplify delegates to the dataset amplification routine
*/
func (m *Model) Amplify(axes ...dataset.Mirror) error {
	m.invalidate()
	return m.Dataset.Amplify(axes...)
}

/*
Filter delegates a query expression to the dataset
*/
func (m *Model) Filter(query string) error {
	m.invalidate()
	return m.Dataset.Filter(query)
}

// invalidate drops cached derived views after a data mutation
func (m *Model) invalidate() {
	m.split = nil
}
