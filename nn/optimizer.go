package nn

import (
	"math"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/mat"
)

type optimizer interface {
	step(params, grads []*mat.Dense)
	name() string
}

func optimizerByID(id string) (optimizer, error) {
	switch id {
	case "sgd":
		return &sgdOptimizer{lr: 0.01}, nil
	case "adam":
		return &adamOptimizer{lr: 0.001, beta1: 0.9, beta2: 0.999, eps: 1e-8}, nil
	}
	return nil, xerrors.Errorf("unknown optimizer %q", id)
}

type sgdOptimizer struct {
	lr float64
}

func (s *sgdOptimizer) step(params, grads []*mat.Dense) {
	for i, p := range params {
		pd := p.RawMatrix().Data
		gd := grads[i].RawMatrix().Data
		for j := range pd {
			pd[j] -= s.lr * gd[j]
		}
	}
}

func (s *sgdOptimizer) name() string { return "sgd" }

type adamOptimizer struct {
	lr, beta1, beta2, eps float64
	m, v                  [][]float64
	t                     int
}

func (a *adamOptimizer) step(params, grads []*mat.Dense) {
	if a.m == nil {
		a.m = make([][]float64, len(params))
		a.v = make([][]float64, len(params))
		for i, p := range params {
			n := len(p.RawMatrix().Data)
			a.m[i] = make([]float64, n)
			a.v[i] = make([]float64, n)
		}
	}
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, p := range params {
		pd := p.RawMatrix().Data
		gd := grads[i].RawMatrix().Data
		for j := range pd {
			a.m[i][j] = a.beta1*a.m[i][j] + (1-a.beta1)*gd[j]
			a.v[i][j] = a.beta2*a.v[i][j] + (1-a.beta2)*gd[j]*gd[j]
			mhat := a.m[i][j] / c1
			vhat := a.v[i][j] / c2
			pd[j] -= a.lr * mhat / (math.Sqrt(vhat) + a.eps)
		}
	}
}

func (a *adamOptimizer) name() string { return "adam" }
