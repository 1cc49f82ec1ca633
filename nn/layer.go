package nn

import (
	"math"
	"math/rand"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"

	"go-ml.dev/pkg/defectdetect/tensor"
)

/*
Layer is one network stage. Batches flow through layers as dense matrices
of batchSize rows.
*/
type Layer interface {
	build(in tensor.Shape, rng *rand.Rand) (out tensor.Shape, err error)
	forward(x *mat.Dense, training bool) (*mat.Dense, error)
	backward(grad *mat.Dense) (*mat.Dense, error)
	params() []*mat.Dense
	grads() []*mat.Dense
	name() string
}

/*
Flatten reshapes the network input of any image shape into a feature
vector per sample
*/
func Flatten() Layer { return &flattenLayer{} }

type flattenLayer struct {
	in tensor.Shape
}

func (f *flattenLayer) build(in tensor.Shape, _ *rand.Rand) (tensor.Shape, error) {
	if len(in) == 0 {
		return nil, xerrors.New("flatten: empty input shape")
	}
	f.in = in
	return tensor.Shape{in.Size()}, nil
}

func (f *flattenLayer) forward(x *mat.Dense, _ bool) (*mat.Dense, error) {
	_, c := x.Dims()
	if c != f.in.Size() {
		return nil, xerrors.Errorf("flatten: batch has %d features, input shape %v needs %d",
			c, f.in, f.in.Size())
	}
	return x, nil
}

func (f *flattenLayer) backward(grad *mat.Dense) (*mat.Dense, error) { return grad, nil }
func (f *flattenLayer) params() []*mat.Dense                         { return nil }
func (f *flattenLayer) grads() []*mat.Dense                          { return nil }
func (f *flattenLayer) name() string                                 { return "flatten" }

/*
Dense is a fully connected layer of the given width. An empty activation
id yields raw outputs (logits).
*/
func Dense(units int, activation string) Layer {
	return &denseLayer{units: units, actID: activation}
}

type denseLayer struct {
	units  int
	actID  string
	act    activation
	w, b   *mat.Dense
	gw, gb *mat.Dense
	x, pre *mat.Dense
}

func (d *denseLayer) build(in tensor.Shape, rng *rand.Rand) (tensor.Shape, error) {
	if d.units <= 0 {
		return nil, xerrors.Errorf("dense: invalid width %d", d.units)
	}
	if len(in) != 1 {
		return nil, xerrors.Errorf("dense: expected flat input, got shape %v", in)
	}
	act, err := activationByID(d.actID)
	if err != nil {
		return nil, err
	}
	d.act = act
	fanIn := in[0]
	// Glorot uniform init
	limit := math.Sqrt(6 / float64(fanIn+d.units))
	w := make([]float64, fanIn*d.units)
	for i := range w {
		w[i] = rng.Float64()*2*limit - limit
	}
	d.w = mat.NewDense(fanIn, d.units, w)
	d.b = mat.NewDense(1, d.units, nil)
	d.gw = mat.NewDense(fanIn, d.units, nil)
	d.gb = mat.NewDense(1, d.units, nil)
	return tensor.Shape{d.units}, nil
}

func (d *denseLayer) forward(x *mat.Dense, _ bool) (*mat.Dense, error) {
	if d.w == nil {
		return nil, xerrors.New("dense: layer is not built")
	}
	n, c := x.Dims()
	fanIn, _ := d.w.Dims()
	if c != fanIn {
		return nil, xerrors.Errorf("dense: input has %d features, weights expect %d", c, fanIn)
	}
	pre := mat.NewDense(n, d.units, nil)
	pre.Mul(x, d.w)
	for i := 0; i < n; i++ {
		for j := 0; j < d.units; j++ {
			pre.Set(i, j, pre.At(i, j)+d.b.At(0, j))
		}
	}
	d.x, d.pre = x, pre
	return d.act.forward(pre), nil
}

func (d *denseLayer) backward(grad *mat.Dense) (*mat.Dense, error) {
	if d.x == nil {
		return nil, xerrors.New("dense: backward before forward")
	}
	n, _ := d.x.Dims()
	gpre := d.act.backward(d.pre, grad)

	d.gw.Mul(d.x.T(), gpre)
	d.gw.Scale(1/float64(n), d.gw)

	for j := 0; j < d.units; j++ {
		s := 0.0
		for i := 0; i < n; i++ {
			s += gpre.At(i, j)
		}
		d.gb.Set(0, j, s/float64(n))
	}

	fanIn, _ := d.w.Dims()
	gx := mat.NewDense(n, fanIn, nil)
	gx.Mul(gpre, d.w.T())
	return gx, nil
}

func (d *denseLayer) params() []*mat.Dense { return []*mat.Dense{d.w, d.b} }
func (d *denseLayer) grads() []*mat.Dense  { return []*mat.Dense{d.gw, d.gb} }
func (d *denseLayer) name() string         { return "dense" }

/*
Softmax turns logits into class probabilities; appended to a fitted
network to derive its probability model
*/
func Softmax() Layer { return &softmaxLayer{} }

type softmaxLayer struct {
	out *mat.Dense
}

func (s *softmaxLayer) build(in tensor.Shape, _ *rand.Rand) (tensor.Shape, error) {
	return in, nil
}

func (s *softmaxLayer) forward(x *mat.Dense, _ bool) (*mat.Dense, error) {
	n, c := x.Dims()
	out := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		softmaxRow(x.RawRowView(i), out.RawRowView(i))
	}
	s.out = out
	return out, nil
}

func (s *softmaxLayer) backward(grad *mat.Dense) (*mat.Dense, error) {
	if s.out == nil {
		return nil, xerrors.New("softmax: backward before forward")
	}
	n, c := grad.Dims()
	gx := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		dot := 0.0
		for j := 0; j < c; j++ {
			dot += grad.At(i, j) * s.out.At(i, j)
		}
		for j := 0; j < c; j++ {
			gx.Set(i, j, s.out.At(i, j)*(grad.At(i, j)-dot))
		}
	}
	return gx, nil
}

func (s *softmaxLayer) params() []*mat.Dense { return nil }
func (s *softmaxLayer) grads() []*mat.Dense  { return nil }
func (s *softmaxLayer) name() string         { return "softmax" }

func softmaxRow(logits, out []float64) {
	max := math.Inf(-1)
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
}
