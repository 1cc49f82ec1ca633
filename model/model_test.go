package model

import (
	"fmt"
	"testing"

	"gotest.tools/assert"

	"go-ml.dev/pkg/defectdetect/dataset"
	"go-ml.dev/pkg/defectdetect/tensor"
)

// grayRows builds n rank-2 sample images of one panel type with
// alternating pass/fail quality scores.
func grayRows(n, side int, panelType string) []dataset.Row {
	rows := make([]dataset.Row, n)
	for i := range rows {
		img := tensor.New(side, side)
		q := 0.0
		if i%2 == 0 {
			q = 1.0
			for k := range img.Data {
				img.Data[k] = 200
			}
		} else {
			for k := range img.Data {
				img.Data[k] = 20
			}
		}
		rows[i] = dataset.Row{ID: fmt.Sprintf("%s-%03d", panelType, i), Image: img, Type: panelType, Quality: q}
	}
	return rows
}

func grayDataset(t *testing.T, n, side int) dataset.Dataset {
	tab, err := dataset.NewTable(grayRows(n, side, "poly"))
	assert.NilError(t, err)
	return dataset.ELPV(tab)
}

func TestSplitInvariants(t *testing.T) {
	for _, frac := range []float64{0.2, 0.5, 0.65, 0.8} {
		cfg := DefaultConfig()
		cfg.TrainingFrac = frac
		m := New(grayDataset(t, 20, 4), cfg)
		s, err := m.Split()
		assert.NilError(t, err)
		assert.Equal(t, len(s.Train)+len(s.Test), 20)

		seen := map[string]int{}
		for _, r := range s.Train {
			seen[r.ID]++
		}
		for _, r := range s.Test {
			seen[r.ID]++
		}
		assert.Equal(t, len(seen), 20)
		for id, c := range seen {
			assert.Equal(t, c, 1, "sample %q covered %d times", id, c)
		}
	}
}

func TestSplitIsCached(t *testing.T) {
	m := New(grayDataset(t, 10, 4), DefaultConfig())
	a, err := m.Split()
	assert.NilError(t, err)
	b, err := m.Split()
	assert.NilError(t, err)
	assert.Assert(t, a == b)
}

func TestSplitRejectsBadFraction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrainingFrac = 1.5
	m := New(grayDataset(t, 10, 4), cfg)
	_, err := m.Split()
	assert.ErrorContains(t, err, "out of (0, 1)")
}

func TestFilterInvalidatesSplit(t *testing.T) {
	m := New(grayDataset(t, 10, 4), DefaultConfig())
	a, err := m.Split()
	assert.NilError(t, err)
	assert.NilError(t, m.Filter("proba>0.5"))
	b, err := m.Split()
	assert.NilError(t, err)
	assert.Assert(t, a != b)
	assert.Equal(t, len(b.Train)+len(b.Test), 5)
}
