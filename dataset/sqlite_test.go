package dataset

import (
	"path/filepath"
	"testing"

	"gotest.tools/assert"

	"go-ml.dev/pkg/defectdetect/tensor"
)

func TestSQLiteRoundTrip(t *testing.T) {
	img := tensor.From([]float64{1, 2, 3, 4}, 2, 2)
	rows := []Row{
		{ID: "s1", Image: img, Type: "poly", Quality: 1},
		{ID: "s2", Image: img.FlipH(), Type: "poly", Quality: 0},
	}
	tab, err := NewTable(rows)
	assert.NilError(t, err)

	path := filepath.Join(t.TempDir(), "samples.db")
	schema := ELPVSchema()
	assert.NilError(t, tab.SaveSQLite(path, schema))

	loaded, err := LoadSQLite(path, schema)
	assert.NilError(t, err)
	assert.Equal(t, loaded.Len(), 2)
	assert.Equal(t, loaded.Row(0).ID, "s1")
	assert.Equal(t, loaded.Row(1).Quality, 0.0)
	assert.DeepEqual(t, loaded.Row(1).Image.Data, []float64{2, 1, 4, 3})
	assert.Assert(t, loaded.Row(0).Image.Shape().Eq(tensor.Shape{2, 2}))
}
