package nn

import (
	"math"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"
)

type activation interface {
	forward(x *mat.Dense) *mat.Dense
	backward(pre, grad *mat.Dense) *mat.Dense
	name() string
}

func activationByID(id string) (activation, error) {
	switch id {
	case "", "linear":
		return identityActivation{}, nil
	case "relu":
		return reluActivation{}, nil
	case "sigmoid":
		return sigmoidActivation{}, nil
	case "tanh":
		return tanhActivation{}, nil
	}
	return nil, xerrors.Errorf("unknown activation %q", id)
}

type identityActivation struct{}

func (identityActivation) forward(x *mat.Dense) *mat.Dense { return x }
func (identityActivation) backward(pre, grad *mat.Dense) *mat.Dense {
	return grad
}
func (identityActivation) name() string { return "linear" }

type reluActivation struct{}

func (reluActivation) forward(x *mat.Dense) *mat.Dense {
	var r mat.Dense
	r.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, x)
	return &r
}

func (reluActivation) backward(pre, grad *mat.Dense) *mat.Dense {
	r, c := grad.Dims()
	g := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if pre.At(i, j) > 0 {
				g.Set(i, j, grad.At(i, j))
			}
		}
	}
	return g
}

func (reluActivation) name() string { return "relu" }

type sigmoidActivation struct{}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

func (sigmoidActivation) forward(x *mat.Dense) *mat.Dense {
	var r mat.Dense
	r.Apply(func(_, _ int, v float64) float64 { return sigmoid(v) }, x)
	return &r
}

func (sigmoidActivation) backward(pre, grad *mat.Dense) *mat.Dense {
	r, c := grad.Dims()
	g := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s := sigmoid(pre.At(i, j))
			g.Set(i, j, grad.At(i, j)*s*(1-s))
		}
	}
	return g
}

func (sigmoidActivation) name() string { return "sigmoid" }

type tanhActivation struct{}

func (tanhActivation) forward(x *mat.Dense) *mat.Dense {
	var r mat.Dense
	r.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, x)
	return &r
}

func (tanhActivation) backward(pre, grad *mat.Dense) *mat.Dense {
	r, c := grad.Dims()
	g := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			h := math.Tanh(pre.At(i, j))
			g.Set(i, j, grad.At(i, j)*(1-h*h))
		}
	}
	return g
}

func (tanhActivation) name() string { return "tanh" }
