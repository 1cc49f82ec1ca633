/*
Package tensor implements the dense float image tensor shared by the dataset
and the neural network trainer. Images are rank-2 (rows, cols) or rank-3
(rows, cols, channels) row-major tensors.
*/
package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

/*
Shape is a tensor shape, outermost dimension first
*/
type Shape []int

func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

func (s Shape) Eq(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i, d := range s {
		if d != o[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	q := make([]string, len(s))
	for i, d := range s {
		q[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(q, ", ") + ")"
}

/*
Image is a dense row-major image tensor
*/
type Image struct {
	Dims Shape
	Data []float64
}

func New(dims ...int) *Image {
	s := Shape(dims)
	return &Image{Dims: s, Data: make([]float64, s.Size())}
}

/*
From wraps an existing data slice with the given dims. It panics if the
slice length does not match the shape size.
*/
func From(data []float64, dims ...int) *Image {
	s := Shape(dims)
	if s.Size() != len(data) {
		panic(fmt.Sprintf("tensor: shape %v does not fit %d values", s, len(data)))
	}
	return &Image{Dims: s, Data: data}
}

func (m *Image) Rank() int    { return len(m.Dims) }
func (m *Image) Shape() Shape { return m.Dims }

func (m *Image) index(ix ...int) int {
	k := 0
	for i, v := range ix {
		k = k*m.Dims[i] + v
	}
	return k
}

func (m *Image) At(ix ...int) float64 {
	return m.Data[m.index(ix...)]
}

func (m *Image) Set(v float64, ix ...int) {
	m.Data[m.index(ix...)] = v
}

func (m *Image) Clone() *Image {
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	dims := make(Shape, len(m.Dims))
	copy(dims, m.Dims)
	return &Image{Dims: dims, Data: data}
}

/*
Squeeze drops every singleton dimension keeping the data intact.
A fully singleton tensor keeps one dimension.
*/
func (m *Image) Squeeze() *Image {
	dims := make(Shape, 0, len(m.Dims))
	for _, d := range m.Dims {
		if d != 1 {
			dims = append(dims, d)
		}
	}
	if len(dims) == 0 {
		dims = Shape{1}
	}
	return &Image{Dims: dims, Data: m.Data}
}

/*
Unsqueeze appends a trailing channel dimension: (rows, cols) -> (rows, cols, 1).
A tensor that already has three dimensions is returned as is.
*/
func (m *Image) Unsqueeze() *Image {
	if len(m.Dims) >= 3 {
		return m
	}
	dims := make(Shape, len(m.Dims), len(m.Dims)+1)
	copy(dims, m.Dims)
	dims = append(dims, 1)
	return &Image{Dims: dims, Data: m.Data}
}

// rows/cols/channels of a rank-2 or rank-3 image
func (m *Image) geometry() (rows, cols, ch int) {
	rows, cols, ch = m.Dims[0], m.Dims[1], 1
	if len(m.Dims) > 2 {
		ch = m.Dims[2]
	}
	return
}

/*
FlipH mirrors the image about its vertical axis (left-right)
*/
func (m *Image) FlipH() *Image {
	rows, cols, ch := m.geometry()
	r := m.Clone()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for c := 0; c < ch; c++ {
				r.Data[(i*cols+cols-1-j)*ch+c] = m.Data[(i*cols+j)*ch+c]
			}
		}
	}
	return r
}

/*
FlipV mirrors the image about its horizontal axis (top-bottom)
*/
func (m *Image) FlipV() *Image {
	rows, cols, ch := m.geometry()
	r := m.Clone()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for c := 0; c < ch; c++ {
				r.Data[((rows-1-i)*cols+j)*ch+c] = m.Data[(i*cols+j)*ch+c]
			}
		}
	}
	return r
}

/*
Transpose swaps rows and columns keeping channels in place
*/
func (m *Image) Transpose() *Image {
	rows, cols, ch := m.geometry()
	dims := make(Shape, len(m.Dims))
	copy(dims, m.Dims)
	dims[0], dims[1] = cols, rows
	r := &Image{Dims: dims, Data: make([]float64, len(m.Data))}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for c := 0; c < ch; c++ {
				r.Data[(j*rows+i)*ch+c] = m.Data[(i*cols+j)*ch+c]
			}
		}
	}
	return r
}

/*
Rot90 rotates the image counter-clockwise by k quarter turns
*/
func (m *Image) Rot90(k int) *Image {
	k = ((k % 4) + 4) % 4
	r := m
	for n := 0; n < k; n++ {
		r = r.Transpose().FlipV()
	}
	if k == 0 {
		r = m.Clone()
	}
	return r
}
