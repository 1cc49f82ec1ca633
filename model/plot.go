package model

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"go-ml.dev/pkg/defectdetect/fu"
	"go-ml.dev/pkg/defectdetect/tensor"
)

var (
	plotMatch    = color.RGBA{G: 0xa0, A: 0xff}
	plotMismatch = color.RGBA{R: 0xc0, A: 0xff}
)

/*
DefaultPlotPath is where the evaluation figure is written
*/
func DefaultPlotPath() string {
	return fu.ModelPath("elpv.evaluation.png")
}

/*
Plot renders the two-panel evaluation figure for the first test sample:
the image titled with predicted vs true class (colored by match) next to
the class-probability bar chart. The figure is written as PNG.
*/
func (m *ELPV) Plot(predictions [][]float64, path string) error {
	if len(predictions) == 0 {
		return zorros.Errorf("no predictions to plot")
	}
	if path == "" {
		path = DefaultPlotPath()
	}
	s, err := m.Split()
	if err != nil {
		return err
	}
	if len(s.Test) == 0 {
		return zorros.Errorf("no test samples to plot")
	}
	row, pred := s.Test[0], predictions[0]
	predicted := argmax(pred)
	truth := classIndex(row.Quality)
	zlog.Info(fmt.Sprintf("sample %s: predicted %s (%.3f), labeled %s",
		row.ID, m.className(predicted), pred[predicted], m.className(truth)))

	tone := plotMatch
	if predicted != truth {
		tone = plotMismatch
	}

	left, err := plot.New()
	if err != nil {
		return zorros.Trace(err)
	}
	left.Title.Text = fmt.Sprintf("%s (%s)", m.className(predicted), m.className(truth))
	left.Title.TextStyle.Color = tone
	left.HideAxes()
	rows, cols := row.Image.Dims[0], row.Image.Dims[1]
	left.Add(plotter.NewImage(renderImage(row.Image), 0, 0, float64(cols), float64(rows)))

	right, err := plot.New()
	if err != nil {
		return zorros.Trace(err)
	}
	right.Title.Text = "class probabilities"
	right.Y.Min, right.Y.Max = 0, 1
	bars, err := plotter.NewBarChart(plotter.Values(pred), vg.Points(8))
	if err != nil {
		return zorros.Trace(err)
	}
	bars.Color = tone
	right.Add(bars)
	names := make([]string, len(pred))
	for i := range names {
		names[i] = m.className(i)
	}
	right.NominalX(names...)

	canvas := vgimg.New(6*vg.Inch, 3*vg.Inch)
	tiles := draw.Tiles{Rows: 1, Cols: 2}
	panels := plot.Align([][]*plot.Plot{{left, right}}, tiles, draw.New(canvas))
	left.Draw(panels[0][0])
	right.Draw(panels[0][1])

	w, err := os.Create(path)
	if err != nil {
		return zorros.Wrapf(err, "create evaluation figure %q: %v", path, err)
	}
	defer w.Close()
	png := vgimg.PngCanvas{Canvas: canvas}
	if _, err = png.WriteTo(w); err != nil {
		return zorros.Wrapf(err, "write evaluation figure %q: %v", path, err)
	}
	zlog.Info(fmt.Sprintf("evaluation figure written to %s", path))
	return nil
}

func (m *ELPV) className(i int) string {
	if i < len(m.ClassNames) {
		return m.ClassNames[i]
	}
	return fmt.Sprintf("class %d", i)
}

func argmax(row []float64) int {
	k := 0
	for i, v := range row {
		if v > row[k] {
			k = i
		}
	}
	return k
}

// renderImage converts a sample tensor into a drawable image, scaling
// single-channel intensities into the full gray range.
func renderImage(img *tensor.Image) image.Image {
	rows, cols := img.Dims[0], img.Dims[1]
	ch := 1
	if img.Rank() > 2 {
		ch = img.Dims[2]
	}
	if ch == 3 {
		r := image.NewRGBA(image.Rect(0, 0, cols, rows))
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				r.Set(j, i, color.RGBA{
					R: clamp8(img.At(i, j, 0)),
					G: clamp8(img.At(i, j, 1)),
					B: clamp8(img.At(i, j, 2)),
					A: 0xff,
				})
			}
		}
		return r
	}
	lo, hi := img.Data[0], img.Data[0]
	for _, v := range img.Data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	r := image.NewGray(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := (img.Data[(i*cols+j)*ch] - lo) * scale
			r.SetGray(j, i, color.Gray{Y: uint8(v)})
		}
	}
	return r
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
