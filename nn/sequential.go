/*
Package nn implements the small feed-forward network stack used by the
defect-detection trainer: flatten/dense/softmax layers over gonum matrices,
sgd/adam optimizers, sparse categorical cross-entropy and the accuracy
metric, with xz-compressed weights persistence.
*/
package nn

import (
	"fmt"
	"math/rand"

	"go-ml.dev/pkg/zorros/zlog"
	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"

	"go-ml.dev/pkg/defectdetect/fu"
	"go-ml.dev/pkg/defectdetect/tensor"
)

const DefaultBatchSize = 32

/*
Sequential is a feed-forward stack of layers
*/
type Sequential struct {
	layers    []Layer
	input     tensor.Shape
	output    tensor.Shape
	built     bool
	compiled  bool
	device    Device
	rng       *rand.Rand
	optimizer optimizer
	loss      loss
	metrics   []metric
	batchSize int
}

func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{
		layers: layers,
		device: CPU,
		rng:    rand.New(rand.NewSource(1)),
	}
}

/*
Build finalizes the layer stack for the given input shape
*/
func (n *Sequential) Build(input tensor.Shape) error {
	if len(n.layers) == 0 {
		return xerrors.New("network must have at least one layer")
	}
	if len(input) == 0 {
		return xerrors.New("network input shape must be specified")
	}
	shape := input
	for i, l := range n.layers {
		out, err := l.build(shape, n.rng)
		if err != nil {
			return xerrors.Errorf("layer %d (%s): %w", i, l.name(), err)
		}
		shape = out
	}
	n.input, n.output = input, shape
	n.built = true
	return nil
}

/*
CompileConfig selects the training machinery attached to a built network
*/
type CompileConfig struct {
	Optimizer string
	Loss      string
	Metrics   []string
	BatchSize int
}

/*
Compile attaches optimizer, loss and metrics to a built network
*/
func (n *Sequential) Compile(cfg CompileConfig) (err error) {
	if !n.built {
		return xerrors.New("network must be built before compiling")
	}
	if n.optimizer, err = optimizerByID(cfg.Optimizer); err != nil {
		return
	}
	if n.loss, err = lossByID(cfg.Loss); err != nil {
		return
	}
	n.metrics = n.metrics[:0]
	for _, id := range cfg.Metrics {
		m, err := metricByID(id)
		if err != nil {
			return err
		}
		n.metrics = append(n.metrics, m)
	}
	if n.batchSize = cfg.BatchSize; n.batchSize <= 0 {
		n.batchSize = DefaultBatchSize
	}
	n.compiled = true
	return nil
}

func (n *Sequential) Compiled() bool { return n.compiled }
func (n *Sequential) Built() bool    { return n.built }

/*
TrainResult is the per-epoch history of a fit
*/
type TrainResult struct {
	History   map[string][]float64
	FinalLoss float64
}

/*
Fit trains the network for the given number of epochs
*/
func (n *Sequential) Fit(x [][]float64, labels []int, epochs int) (*TrainResult, error) {
	if !n.compiled {
		return nil, xerrors.New("network must be compiled before fitting")
	}
	if len(x) == 0 {
		return nil, xerrors.New("no training data")
	}
	if len(x) != len(labels) {
		return nil, xerrors.Errorf("%d samples vs %d labels", len(x), len(labels))
	}
	batch, err := toBatch(x)
	if err != nil {
		return nil, err
	}

	result := &TrainResult{History: map[string][]float64{}}
	count := len(x)
	for epoch := 0; epoch < epochs; epoch++ {
		order := n.rng.Perm(count)
		epochLoss := 0.0
		for at := 0; at < count; at += n.batchSize {
			end := at + n.batchSize
			if end > count {
				end = count
			}
			bx, by := pick(batch, labels, order[at:end])
			out, err := n.pass(bx, true)
			if err != nil {
				return nil, err
			}
			epochLoss += n.loss.compute(out, by) * float64(end-at)
			grad := n.loss.gradient(out, by)
			for i := len(n.layers) - 1; i >= 0; i-- {
				if grad, err = n.layers[i].backward(grad); err != nil {
					return nil, err
				}
			}
			n.optimizer.step(n.params(), n.gradients())
		}
		epochLoss /= float64(count)
		result.History["loss"] = append(result.History["loss"], epochLoss)
		result.FinalLoss = epochLoss

		line := fmt.Sprintf("[%3d] loss: %.5f", epoch, epochLoss)
		out, err := n.pass(batch, false)
		if err != nil {
			return nil, err
		}
		for _, m := range n.metrics {
			v := m.compute(out, labels)
			result.History[m.name()] = append(result.History[m.name()], v)
			line += fmt.Sprintf(", %s: %.5f", m.name(), v)
		}
		zlog.Info(line)
	}
	return result, nil
}

/*
Evaluate measures loss and metrics on the given samples
*/
func (n *Sequential) Evaluate(x [][]float64, labels []int) (float64, map[string]float64, error) {
	if !n.compiled {
		return 0, nil, xerrors.New("network must be compiled before evaluation")
	}
	batch, err := toBatch(x)
	if err != nil {
		return 0, nil, err
	}
	out, err := n.pass(batch, false)
	if err != nil {
		return 0, nil, err
	}
	metrics := map[string]float64{}
	for _, m := range n.metrics {
		metrics[m.name()] = m.compute(out, labels)
	}
	return n.loss.compute(out, labels), metrics, nil
}

/*
Predict runs inference returning one output row per sample
*/
func (n *Sequential) Predict(x [][]float64) ([][]float64, error) {
	if !n.built {
		return nil, xerrors.New("network must be built before prediction")
	}
	batch, err := toBatch(x)
	if err != nil {
		return nil, err
	}
	out, err := n.pass(batch, false)
	if err != nil {
		return nil, err
	}
	rows, cols := out.Dims()
	r := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		r[i] = make([]float64, cols)
		copy(r[i], out.RawRowView(i))
	}
	return r, nil
}

/*
WithSoftmax derives the probability model: the same layers (weights shared)
with a softmax stage appended
*/
func (n *Sequential) WithSoftmax() (*Sequential, error) {
	if !n.built {
		return nil, xerrors.New("network must be built before deriving a probability model")
	}
	sm := Softmax()
	if _, err := sm.build(n.output, n.rng); err != nil {
		return nil, err
	}
	p := &Sequential{
		layers: append(append([]Layer{}, n.layers...), sm),
		input:  n.input,
		output: n.output,
		built:  true,
		device: n.device,
		rng:    n.rng,
	}
	return p, nil
}

func (n *Sequential) pass(x *mat.Dense, training bool) (*mat.Dense, error) {
	out := x
	var err error
	for i, l := range n.layers {
		if out, err = l.forward(out, training); err != nil {
			return nil, xerrors.Errorf("layer %d (%s): %w", i, l.name(), err)
		}
	}
	return out, nil
}

func (n *Sequential) params() (r []*mat.Dense) {
	for _, l := range n.layers {
		r = append(r, l.params()...)
	}
	return
}

func (n *Sequential) gradients() (r []*mat.Dense) {
	for _, l := range n.layers {
		r = append(r, l.grads()...)
	}
	return
}

func toBatch(x [][]float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, xerrors.New("empty sample batch")
	}
	cols := len(x[0])
	for i, row := range x {
		if len(row) != cols {
			return nil, xerrors.Errorf("sample %d has %d features, expected %d", i, len(row), cols)
		}
	}
	return mat.NewDense(len(x), cols, fu.Flatnr(x)), nil
}

func pick(batch *mat.Dense, labels []int, idx []int) (*mat.Dense, []int) {
	_, cols := batch.Dims()
	bx := mat.NewDense(len(idx), cols, nil)
	by := make([]int, len(idx))
	for i, k := range idx {
		bx.SetRow(i, batch.RawRowView(k))
		by[i] = labels[k]
	}
	return bx, by
}
