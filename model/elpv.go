package model

import (
	"fmt"
	"math"
	"os"
	"strings"

	"go-ml.dev/pkg/iokit"
	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"
	"golang.org/x/xerrors"

	"go-ml.dev/pkg/defectdetect/dataset"
	"go-ml.dev/pkg/defectdetect/fu"
	"go-ml.dev/pkg/defectdetect/imaging"
	"go-ml.dev/pkg/defectdetect/nn"
	"go-ml.dev/pkg/defectdetect/tensor"
)

// colorState tracks the non-reversible color conversions of the dataset
type colorState int

const (
	colorOriginal colorState = iota
	colorGrayscale
	colorBinary
)

// buildState tracks the monotonic build/compile/fit progress
type buildState int

const (
	stateInitial buildState = iota
	stateBuilt
	stateCompiled
	stateFitted
)

/*
DefaultClassNames are the ELPV quality classes in ascending score order
*/
var DefaultClassNames = []string{"Fail", "Review_A", "Review_B", "Pass"}

// the quality-score levels the ELPV labels take
var classLevels = []float64{0, 1.0 / 3, 2.0 / 3, 1}

/*
ShapeError reports irreconcilable image shapes in the training set
*/
type ShapeError struct {
	Shapes []tensor.Shape
}

func (e *ShapeError) Error() string {
	names := make([]string, len(e.Shapes))
	for i, s := range e.Shapes {
		names[i] = s.String()
	}
	return fmt.Sprintf("cannot train images which occur in different shapes (found shapes: %s)",
		strings.Join(names, ", "))
}

/*
ELPV is the label-aware image model for the ELPV solar-cell dataset
*/
type ELPV struct {
	Model
	ClassNames []string
	Tolerance  float64

	net   *nn.Sequential
	color colorState
	state buildState
}

func NewELPV(ds dataset.Dataset, cfg Config) *ELPV {
	return &ELPV{
		Model:      *New(ds, cfg),
		ClassNames: DefaultClassNames,
		Tolerance:  DefaultTolerance,
	}
}

func (m *ELPV) Compiled() bool { return m.state >= stateCompiled }
func (m *ELPV) Fitted() bool   { return m.state >= stateFitted }

/*
ToGrayscale non-reversibly converts the dataset images to grayscale.
It fails if the images were already converted to binary colors and skips
with a diagnostic when the images are not 3-channel.
*/
func (m *ELPV) ToGrayscale() error {
	if m.color == colorBinary {
		return zorros.Errorf("cannot convert to grayscale: already converted to binary colors")
	}
	if m.color == colorGrayscale {
		return nil
	}
	if m.Data().Len() == 0 {
		return zorros.Errorf("dataset has no samples")
	}
	first := m.Data().Row(0).Image
	if first.Rank() != 3 || first.Dims[2] != 3 {
		zlog.Warning("conversion to grayscale ignored; images don't have the expected (rgb) shape")
		return nil
	}
	zlog.Info("converting images to grayscale...")
	for i := 0; i < m.Data().Len(); i++ {
		g, err := imaging.RGBToGrayscale(m.Data().Row(i).Image)
		if err != nil {
			return zorros.Trace(err)
		}
		m.Data().SetImage(i, g)
	}
	m.color = colorGrayscale
	m.invalidate()
	zlog.Info("successfully converted image dataset to grayscale")
	return nil
}

/*
ToBinary non-reversibly converts the dataset images to binary colors,
ensuring grayscale conversion first
*/
func (m *ELPV) ToBinary() error {
	if m.color == colorBinary {
		return nil
	}
	if m.color != colorGrayscale {
		if err := m.ToGrayscale(); err != nil {
			return err
		}
	}
	zlog.Info("converting images to binary colors...")
	for i := 0; i < m.Data().Len(); i++ {
		m.Data().SetImage(i, imaging.GrayscaleToBinary(m.Data().Row(i).Image))
	}
	m.color = colorBinary
	m.invalidate()
	zlog.Info("successfully converted image dataset to binary colors")
	return nil
}

/*
UnsqueezeImages adds a trailing channel dimension to every image: NxM -> NxMx1
*/
func (m *ELPV) UnsqueezeImages() {
	zlog.Info("'un'-squeezing images: NxM -> NxMx1")
	for i := 0; i < m.Data().Len(); i++ {
		m.Data().SetImage(i, m.Data().Row(i).Image.Unsqueeze())
	}
	m.invalidate()
}

/*
SqueezeImages drops singleton dimensions from every image: NxMx1 -> NxM
*/
func (m *ELPV) SqueezeImages() {
	zlog.Info("squeezing images: NxMx1 -> NxM")
	for i := 0; i < m.Data().Len(); i++ {
		m.Data().SetImage(i, m.Data().Row(i).Image.Squeeze())
	}
	m.invalidate()
}

/*
Amplify enlarges the dataset; when amplification rejects images lacking a
channel dimension it unsqueezes, retries once and squeezes back
*/
func (m *ELPV) Amplify(axes ...dataset.Mirror) error {
	err := m.Model.Amplify(axes...)
	if xerrors.Is(err, imaging.ErrImageDimension) {
		m.UnsqueezeImages()
		if err = m.Model.Amplify(axes...); err != nil {
			return err
		}
		m.SqueezeImages()
		return nil
	}
	return err
}

/*
ImageShape resolves the single shape shared by all images, squeezing once
as remediation when multiple distinct shapes occur
*/
func (m *ELPV) ImageShape() (tensor.Shape, error) {
	if m.Data().Len() == 0 {
		return nil, zorros.Errorf("dataset has no samples")
	}
	shapes := m.distinctShapes()
	if len(shapes) > 1 {
		m.SqueezeImages()
		shapes = m.distinctShapes()
	}
	if len(shapes) > 1 {
		return nil, &ShapeError{Shapes: shapes}
	}
	return shapes[0], nil
}

func (m *ELPV) distinctShapes() (shapes []tensor.Shape) {
	for _, r := range m.Data().Rows() {
		known := false
		for _, s := range shapes {
			if s.Eq(r.Image.Shape()) {
				known = true
				break
			}
		}
		if !known {
			shapes = append(shapes, r.Image.Shape())
		}
	}
	return
}

/*
Partition groups rows by their quality score: pass is within tolerance of
1.0, review is strictly above 0.01, fail is within tolerance of 0.0.
The groups may overlap.
*/
type Partition struct {
	Pass   []dataset.Row
	Review []dataset.Row
	Fail   []dataset.Row
}

/*
TrainPartition partitions the training subset by quality score;
a non-positive tolerance selects the model default
*/
func (m *ELPV) TrainPartition(tolerance float64) (Partition, error) {
	s, err := m.Split()
	if err != nil {
		return Partition{}, err
	}
	return partitionRows(s.Train, m.tol(tolerance)), nil
}

/*
TestPartition partitions the test subset by quality score
*/
func (m *ELPV) TestPartition(tolerance float64) (Partition, error) {
	s, err := m.Split()
	if err != nil {
		return Partition{}, err
	}
	return partitionRows(s.Test, m.tol(tolerance)), nil
}

func (m *ELPV) tol(t float64) float64 {
	if t > 0 {
		return t
	}
	if m.Tolerance > 0 {
		return m.Tolerance
	}
	return DefaultTolerance
}

func partitionRows(rows []dataset.Row, tol float64) (p Partition) {
	for _, r := range rows {
		if fu.IsClose(r.Quality, 1, tol) {
			p.Pass = append(p.Pass, r)
		}
		if r.Quality > 0.01 {
			p.Review = append(p.Review, r)
		}
		if fu.IsClose(r.Quality, 0, tol) {
			p.Fail = append(p.Fail, r)
		}
	}
	return
}

// classIndex maps a quality score to the nearest class level
func classIndex(q float64) int {
	k := 0
	for i, lv := range classLevels {
		if math.Abs(q-lv) < math.Abs(q-classLevels[k]) {
			k = i
		}
	}
	return k
}

func flattenRows(rows []dataset.Row) (x [][]float64, y []int) {
	for _, r := range rows {
		x = append(x, r.Image.Data)
		y = append(y, classIndex(r.Quality))
	}
	return
}

/*
Build constructs the feed-forward network: flatten over the resolved image
shape, a hidden dense layer and a dense output layer emitting raw logits
*/
func (m *ELPV) Build() error {
	shape, err := m.ImageShape()
	if err != nil {
		return err
	}
	net := nn.NewSequential(
		nn.Flatten(),
		nn.Dense(m.Config.HiddenNodes, m.Config.Activation),
		nn.Dense(m.Config.OutputNodes, ""),
	)
	if err = net.Build(shape); err != nil {
		return zorros.Trace(err)
	}
	m.net = net
	if m.state < stateBuilt {
		m.state = stateBuilt
	}
	return nil
}

/*
Compile attaches optimizer, loss and metrics from the configuration,
building the network first when it does not exist yet. A second explicit
call recompiles; callers check Compiled() to avoid redundant work.
*/
func (m *ELPV) Compile() error {
	if m.net == nil {
		if err := m.Build(); err != nil {
			return err
		}
	}
	err := m.net.Compile(nn.CompileConfig{
		Optimizer: m.Config.Optimizer,
		Loss:      m.Config.Loss,
		Metrics:   m.Config.Metrics,
		BatchSize: m.Config.BatchSize,
	})
	if err != nil {
		return zorros.Trace(err)
	}
	if m.state < stateCompiled {
		m.state = stateCompiled
	}
	return nil
}

/*
Fit trains on the training subset for the configured epoch count,
compiling first if needed
*/
func (m *ELPV) Fit() (*nn.TrainResult, error) {
	if m.state < stateCompiled {
		if err := m.Compile(); err != nil {
			return nil, err
		}
	}
	s, err := m.Split()
	if err != nil {
		return nil, err
	}
	x, y := flattenRows(s.Train)
	r, err := m.net.Fit(x, y, m.Config.Epochs)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	m.state = stateFitted
	return r, nil
}

/*
Evaluation is the outcome of a model evaluation run
*/
type Evaluation struct {
	Loss        float64
	Accuracy    float64
	Probability *nn.Sequential
	Predictions [][]float64
}

/*
Evaluate compiles and fits, then measures loss and accuracy on the test
subset and derives the probability model and its predictions. Every call
forces a full training pass.
*/
func (m *ELPV) Evaluate() (*Evaluation, error) {
	if err := m.Compile(); err != nil {
		return nil, err
	}
	if _, err := m.Fit(); err != nil {
		return nil, err
	}
	return m.measure()
}

// measure evaluates the fitted network on the test subset without training
func (m *ELPV) measure() (*Evaluation, error) {
	s, err := m.Split()
	if err != nil {
		return nil, err
	}
	x, y := flattenRows(s.Test)
	loss, metrics, err := m.net.Evaluate(x, y)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	zlog.Info(fmt.Sprintf("test accuracy: %.1f", metrics["accuracy"]))
	prob, err := m.net.WithSoftmax()
	if err != nil {
		return nil, zorros.Trace(err)
	}
	preds, err := prob.Predict(x)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	return &Evaluation{
		Loss:        loss,
		Accuracy:    metrics["accuracy"],
		Probability: prob,
		Predictions: preds,
	}, nil
}

/*
Load loads persisted weights into an already-constructed network. A missing
weights file is a not-found error; a missing network is a silent no-op
(weights cannot attach to nothing).
*/
func (m *ELPV) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		return xerrors.Errorf("couldn't load model from non-existing file %q: %w", path, err)
	}
	if m.net == nil {
		return nil
	}
	return m.net.LoadWeights(path)
}

/*
Save persists the network weights to the given path
*/
func (m *ELPV) Save(path string) error {
	if m.net == nil {
		return zorros.Errorf("no network to save")
	}
	return m.net.SaveWeights(iokit.File(path))
}

/*
RemoveWeights deletes the persisted weights file if present
*/
func (m *ELPV) RemoveWeights(path string) {
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		os.Remove(path)
	}
}
