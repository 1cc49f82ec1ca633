package nn

import (
	"encoding/gob"
	"os"

	"github.com/ulikunitz/xz"
	"go-ml.dev/pkg/iokit"
	"golang.org/x/xerrors"
)

// weightsState is the persisted form of the network parameters:
// an xz-compressed gob stream of parameter shapes and values.
type weightsState struct {
	Shapes [][2]int
	Data   [][]float64
}

/*
SaveWeights persists the network parameters into the given output
*/
func (n *Sequential) SaveWeights(out iokit.Output) error {
	if !n.built {
		return xerrors.New("network must be built before saving weights")
	}
	state := weightsState{}
	for _, p := range n.params() {
		r, c := p.Dims()
		data := make([]float64, len(p.RawMatrix().Data))
		copy(data, p.RawMatrix().Data)
		state.Shapes = append(state.Shapes, [2]int{r, c})
		state.Data = append(state.Data, data)
	}
	wh, err := out.Create()
	if err != nil {
		return xerrors.Errorf("create weights file: %w", err)
	}
	defer wh.End()
	zw, err := xz.NewWriter(wh)
	if err != nil {
		return xerrors.Errorf("compress weights: %w", err)
	}
	if err = gob.NewEncoder(zw).Encode(&state); err != nil {
		return xerrors.Errorf("encode weights: %w", err)
	}
	if err = zw.Close(); err != nil {
		return xerrors.Errorf("compress weights: %w", err)
	}
	return wh.Commit()
}

/*
LoadWeights loads persisted parameters into an already-built network.
A missing file yields an error wrapping os.ErrNotExist.
*/
func (n *Sequential) LoadWeights(path string) error {
	if !n.built {
		return xerrors.New("network must be built before loading weights")
	}
	f, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("load weights from %q: %w", path, err)
	}
	defer f.Close()
	zr, err := xz.NewReader(f)
	if err != nil {
		return xerrors.Errorf("decompress weights %q: %w", path, err)
	}
	state := weightsState{}
	if err = gob.NewDecoder(zr).Decode(&state); err != nil {
		return xerrors.Errorf("decode weights %q: %w", path, err)
	}
	params := n.params()
	if len(params) != len(state.Data) {
		return xerrors.Errorf("weights %q hold %d parameter tensors, network has %d",
			path, len(state.Data), len(params))
	}
	for i, p := range params {
		r, c := p.Dims()
		if state.Shapes[i] != [2]int{r, c} {
			return xerrors.Errorf("weights %q: parameter %d has shape %v, network expects (%d, %d)",
				path, i, state.Shapes[i], r, c)
		}
		copy(p.RawMatrix().Data, state.Data[i])
	}
	return nil
}
