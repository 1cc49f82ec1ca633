package model

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/xerrors"
	"gotest.tools/assert"

	"go-ml.dev/pkg/defectdetect/dataset"
	"go-ml.dev/pkg/defectdetect/tensor"
)

func rgbRows(n, side int) []dataset.Row {
	rows := grayRows(n, side, "mono")
	for i := range rows {
		img := tensor.New(side, side, 3)
		for k := range img.Data {
			img.Data[k] = float64((i*37 + k*11) % 256)
		}
		rows[i].Image = img
	}
	return rows
}

func rgbDataset(t *testing.T, n, side int) dataset.Dataset {
	tab, err := dataset.NewTable(rgbRows(n, side))
	assert.NilError(t, err)
	return dataset.ELPV(tab)
}

func TestToGrayscale(t *testing.T) {
	m := NewELPV(rgbDataset(t, 4, 6), DefaultConfig())
	assert.NilError(t, m.ToGrayscale())
	for _, r := range m.Data().Rows() {
		assert.Equal(t, r.Image.Rank(), 2)
	}
	// repeated conversion is a no-op
	assert.NilError(t, m.ToGrayscale())

	assert.NilError(t, m.ToBinary())
	err := m.ToGrayscale()
	assert.ErrorContains(t, err, "already converted to binary")
}

func TestToGrayscaleSkipsNonRGB(t *testing.T) {
	m := NewELPV(grayDataset(t, 4, 6), DefaultConfig())
	assert.NilError(t, m.ToGrayscale())
	assert.Equal(t, m.Data().Row(0).Image.Rank(), 2)
}

func TestToBinary(t *testing.T) {
	m := NewELPV(rgbDataset(t, 4, 6), DefaultConfig())
	assert.NilError(t, m.ToBinary())
	for _, r := range m.Data().Rows() {
		for _, v := range r.Image.Data {
			assert.Assert(t, v == 0 || v == 1, "binary image holds %v", v)
		}
	}
	// repeated conversion is a no-op
	assert.NilError(t, m.ToBinary())
}

func TestPartitionRows(t *testing.T) {
	rows := []dataset.Row{
		{ID: "a", Quality: 1.0},
		{ID: "b", Quality: 0.0},
		{ID: "c", Quality: 0.5},
		{ID: "d", Quality: 0.02},
	}
	p := partitionRows(rows, DefaultTolerance)
	assert.Equal(t, len(p.Pass), 1)
	assert.Equal(t, p.Pass[0].ID, "a")
	assert.Equal(t, len(p.Fail), 1)
	assert.Equal(t, p.Fail[0].ID, "b")
	// passing samples score above the review threshold too
	assert.Equal(t, len(p.Review), 3)
}

func TestClassIndex(t *testing.T) {
	assert.Equal(t, classIndex(0), 0)
	assert.Equal(t, classIndex(0.3), 1)
	assert.Equal(t, classIndex(1.0/3), 1)
	assert.Equal(t, classIndex(0.6), 2)
	assert.Equal(t, classIndex(1), 3)
}

func TestImageShapeSqueezeRemediation(t *testing.T) {
	rows := grayRows(4, 6, "poly")
	rows[1].Image = rows[1].Image.Unsqueeze()
	rows[3].Image = rows[3].Image.Unsqueeze()
	tab, err := dataset.NewTable(rows)
	assert.NilError(t, err)
	m := NewELPV(dataset.ELPV(tab), DefaultConfig())
	shape, err := m.ImageShape()
	assert.NilError(t, err)
	assert.Assert(t, shape.Eq(tensor.Shape{6, 6}))
}

func TestImageShapeIrreconcilable(t *testing.T) {
	rows := grayRows(2, 6, "poly")
	rows[1].Image = tensor.New(8, 8)
	tab, err := dataset.NewTable(rows)
	assert.NilError(t, err)
	m := NewELPV(dataset.ELPV(tab), DefaultConfig())
	_, err = m.ImageShape()
	var se *ShapeError
	assert.Assert(t, xerrors.As(err, &se))
	assert.ErrorContains(t, err, "(6, 6)")
	assert.ErrorContains(t, err, "(8, 8)")
}

func TestAmplifyRecoversChannelDim(t *testing.T) {
	m := NewELPV(grayDataset(t, 3, 6), DefaultConfig())
	assert.NilError(t, m.Amplify())
	assert.Equal(t, m.Data().Len(), 15)
	for _, r := range m.Data().Rows() {
		assert.Equal(t, r.Image.Rank(), 2)
	}
}

func TestLoadMissingWeights(t *testing.T) {
	m := NewELPV(grayDataset(t, 4, 6), DefaultConfig())
	path := filepath.Join(t.TempDir(), "absent.weights.xz")
	err := m.Load(path)
	assert.ErrorContains(t, err, "non-existing file")
	assert.Assert(t, xerrors.Is(err, os.ErrNotExist))
}

func TestLoadWithoutNetwork(t *testing.T) {
	m := NewELPV(grayDataset(t, 4, 6), DefaultConfig())
	path := filepath.Join(t.TempDir(), "orphan.weights.xz")
	assert.NilError(t, ioutil.WriteFile(path, []byte("x"), 0644))
	assert.NilError(t, m.Load(path))
}

func TestRemoveWeights(t *testing.T) {
	m := NewELPV(grayDataset(t, 4, 6), DefaultConfig())
	path := filepath.Join(t.TempDir(), "stale.weights.xz")
	assert.NilError(t, ioutil.WriteFile(path, []byte("x"), 0644))
	m.RemoveWeights(path)
	_, err := os.Stat(path)
	assert.Assert(t, os.IsNotExist(err))
	m.RemoveWeights(path) // absent file is fine
}
