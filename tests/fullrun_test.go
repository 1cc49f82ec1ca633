package tests

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/assert"

	"go-ml.dev/pkg/defectdetect/dataset"
	"go-ml.dev/pkg/defectdetect/model"
	"go-ml.dev/pkg/defectdetect/tensor"
)

// cells builds a synthetic single-type sample table: bright gradients for
// passing cells, dark gradients for failing ones.
func cells(t *testing.T, n int, types ...string) dataset.Dataset {
	if len(types) == 0 {
		types = []string{"mono"}
	}
	rows := make([]dataset.Row, 0, n*len(types))
	for _, pt := range types {
		for i := 0; i < n; i++ {
			img := tensor.New(6, 6)
			base := 20.0
			q := 0.0
			if i%2 == 0 {
				base, q = 180.0, 1.0
			}
			for k := range img.Data {
				img.Data[k] = base + float64((i*13+k*7)%40)
			}
			rows = append(rows, dataset.Row{
				ID:      fmt.Sprintf("%s-%03d", pt, i),
				Image:   img,
				Type:    pt,
				Quality: q,
			})
		}
	}
	tab, err := dataset.NewTable(rows)
	assert.NilError(t, err)
	return dataset.ELPV(tab)
}

func quickConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.Epochs = 3
	cfg.HiddenNodes = 8
	cfg.OutputNodes = 4
	cfg.BatchSize = 4
	return cfg
}

func Test_FullRun(t *testing.T) {
	os.Unsetenv("DEFECTDETECT_GPU")
	os.Unsetenv("DEFECTDETECT_GPU_FAULT")
	dir := t.TempDir()
	opt := model.RunOptions{
		Amplify:     true,
		WeightsPath: filepath.Join(dir, "elpv.weights.xz"),
		PlotPath:    filepath.Join(dir, "elpv.evaluation.png"),
	}

	assert.NilError(t, model.FullRun(cells(t, 16), quickConfig(), opt))
	trained, err := ioutil.ReadFile(opt.WeightsPath)
	assert.NilError(t, err)
	assert.Assert(t, len(trained) > 0)
	fig, err := os.Stat(opt.PlotPath)
	assert.NilError(t, err)
	assert.Assert(t, fig.Size() > 0)

	// with weights cached the second run loads instead of retraining,
	// so it persists the very same weights back
	assert.NilError(t, model.FullRun(cells(t, 16), quickConfig(), opt))
	loaded, err := ioutil.ReadFile(opt.WeightsPath)
	assert.NilError(t, err)
	assert.DeepEqual(t, trained, loaded)
}

func Test_FullRunForcedRetrain(t *testing.T) {
	os.Unsetenv("DEFECTDETECT_GPU")
	dir := t.TempDir()
	opt := model.RunOptions{
		WeightsPath: filepath.Join(dir, "elpv.weights.xz"),
		PlotPath:    filepath.Join(dir, "elpv.evaluation.png"),
	}
	assert.NilError(t, model.FullRun(cells(t, 16), quickConfig(), opt))
	opt.ForceRetrain = true
	assert.NilError(t, model.FullRun(cells(t, 16), quickConfig(), opt))
}

func Test_FullRunRejectsMixedTypes(t *testing.T) {
	os.Unsetenv("DEFECTDETECT_GPU")
	dir := t.TempDir()
	opt := model.RunOptions{
		WeightsPath: filepath.Join(dir, "elpv.weights.xz"),
		PlotPath:    filepath.Join(dir, "elpv.evaluation.png"),
	}
	err := model.FullRun(cells(t, 8, "mono", "poly"), quickConfig(), opt)
	assert.ErrorContains(t, err, "only single-type training is supported")
	_, statErr := os.Stat(opt.WeightsPath)
	assert.Assert(t, os.IsNotExist(statErr))
}

func Test_FullRunAcceleratorFallback(t *testing.T) {
	os.Setenv("DEFECTDETECT_GPU", "gpu:0")
	os.Setenv("DEFECTDETECT_GPU_FAULT", "1")
	defer os.Unsetenv("DEFECTDETECT_GPU")
	defer os.Unsetenv("DEFECTDETECT_GPU_FAULT")

	dir := t.TempDir()
	opt := model.RunOptions{
		Amplify:     true,
		WeightsPath: filepath.Join(dir, "elpv.weights.xz"),
		PlotPath:    filepath.Join(dir, "elpv.evaluation.png"),
	}
	assert.NilError(t, model.FullRun(cells(t, 16), quickConfig(), opt))
	_, err := os.Stat(opt.WeightsPath)
	assert.NilError(t, err)
}
