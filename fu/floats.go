package fu

import "math"

func Mean(a []float64) float64 {
	var c float64
	for _, x := range a {
		c += x
	}
	return c / float64(len(a))
}

func Mse(a, b []float64) float64 {
	var c float64
	for i, x := range a {
		q := x - b[i]
		c += q * q
	}
	return c / float64(len(a))
}

func Flatnr(a [][]float64) []float64 {
	n := 0
	for _, x := range a {
		n += len(x)
	}
	r := make([]float64, n)
	i := 0
	for _, x := range a {
		copy(r[i:i+len(x)], x)
		i += len(x)
	}
	return r
}

/*
IsClose compares two floats with the given absolute tolerance
*/
func IsClose(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
