package dataset

import (
	"testing"

	"golang.org/x/xerrors"
	"gotest.tools/assert"

	"go-ml.dev/pkg/defectdetect/imaging"
	"go-ml.dev/pkg/defectdetect/tensor"
)

func sampleRows(ch bool) []Row {
	dims := []int{4, 4}
	if ch {
		dims = append(dims, 1)
	}
	return []Row{
		{ID: "a", Image: tensor.New(dims...), Type: "poly", Quality: 1},
		{ID: "b", Image: tensor.New(dims...), Type: "poly", Quality: 0},
		{ID: "c", Image: tensor.New(dims...), Type: "mono", Quality: 0.5},
	}
}

func TestNewTableRejectsDuplicateIDs(t *testing.T) {
	img := tensor.New(2, 2)
	_, err := NewTable([]Row{{ID: "a", Image: img}, {ID: "a", Image: img}})
	assert.Assert(t, xerrors.Is(err, ErrDuplicateID))
}

func TestFilterByType(t *testing.T) {
	tab, err := NewTable(sampleRows(false))
	assert.NilError(t, err)
	assert.NilError(t, tab.Filter(ELPVSchema(), "type=='poly'"))
	assert.Equal(t, tab.Len(), 2)
	for _, r := range tab.Rows() {
		assert.Equal(t, r.Type, "poly")
	}
}

func TestFilterByQuality(t *testing.T) {
	tab, err := NewTable(sampleRows(false))
	assert.NilError(t, err)
	assert.NilError(t, tab.Filter(ELPVSchema(), "proba>0.4"))
	assert.Equal(t, tab.Len(), 2)
}

func TestFilterBadQuery(t *testing.T) {
	tab, _ := NewTable(sampleRows(false))
	assert.ErrorContains(t, tab.Filter(ELPVSchema(), "proba"), "no comparison operator")
	assert.ErrorContains(t, tab.Filter(ELPVSchema(), "nosuch=='x'"), "unknown string column")
	assert.ErrorContains(t, tab.Filter(ELPVSchema(), "type>'poly'"), "not applicable")
}

func TestAmplifyNeedsChannelDim(t *testing.T) {
	tab, _ := NewTable(sampleRows(false))
	err := tab.Amplify()
	assert.Assert(t, xerrors.Is(err, imaging.ErrImageDimension))
	assert.Equal(t, tab.Len(), 3)
}

func TestAmplify(t *testing.T) {
	tab, _ := NewTable(sampleRows(true))
	assert.NilError(t, tab.Amplify())
	// 3 originals + 4 mirrors each
	assert.Equal(t, tab.Len(), 15)
	seen := map[string]bool{}
	for _, r := range tab.Rows() {
		assert.Assert(t, !seen[r.ID], "identifier %q duplicated", r.ID)
		seen[r.ID] = true
	}
}

func TestAmplifySingleAxisKeepsLabels(t *testing.T) {
	tab, _ := NewTable(sampleRows(true))
	assert.NilError(t, tab.Amplify(MirrorHorizontal))
	assert.Equal(t, tab.Len(), 6)
	added := tab.Rows()[3:]
	assert.Equal(t, added[0].Type, "poly")
	assert.Equal(t, added[0].Quality, 1.0)
}

func TestDatasetTypes(t *testing.T) {
	tab, _ := NewTable(sampleRows(false))
	ds := ELPV(tab)
	assert.DeepEqual(t, ds.Types(), []string{"poly", "mono"})
}
