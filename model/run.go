package model

import (
	"os"
	"time"

	"go-ml.dev/pkg/zorros"
	"go-ml.dev/pkg/zorros/zlog"
	"golang.org/x/xerrors"

	"go-ml.dev/pkg/defectdetect/dataset"
	"go-ml.dev/pkg/defectdetect/fu"
	"go-ml.dev/pkg/defectdetect/nn"
)

// pause between the accelerated attempt and the fallback attempt
const deviceFallbackPause = time.Second

/*
RunOptions controls the full orchestration entry point
*/
type RunOptions struct {
	Tolerance    float64
	Amplify      bool
	WeightsPath  string
	PlotPath     string
	ForceRetrain bool
}

/*
DefaultWeightsPath is where trained ELPV weights are cached
*/
func DefaultWeightsPath() string {
	return fu.ModelPath("elpv.weights.xz")
}

// devicePlan is the ordered list of execution targets: the accelerated
// device first when advertised, then the general-purpose fallback.
func devicePlan() []nn.Device {
	if nn.GPUAvailable() {
		return []nn.Device{nn.GPU, nn.CPU}
	}
	return []nn.Device{nn.CPU}
}

/*
FullRun trains and evaluates an ELPV model end to end: validates the
dataset holds exactly one panel type, converts colors per the configured
image type, optionally amplifies, trains (or loads cached weights),
persists the weights and plots the evaluation.
*/
func FullRun(ds dataset.Dataset, cfg Config, opt RunOptions) error {
	m := NewELPV(ds, cfg)
	if opt.Tolerance > 0 {
		m.Tolerance = opt.Tolerance
	}

	if types := ds.Types(); len(types) != 1 {
		return zorros.Errorf("training dataset holds %d panel types %v; only single-type training is supported",
			len(types), types)
	}

	switch cfg.ImgType() {
	case Grayscale:
		if err := m.ToGrayscale(); err != nil {
			return err
		}
	case Binary:
		if err := m.ToBinary(); err != nil {
			return err
		}
	}

	if opt.Amplify {
		if err := m.Amplify(); err != nil {
			return err
		}
	}

	weights := opt.WeightsPath
	if weights == "" {
		weights = DefaultWeightsPath()
	}

	var ev *Evaluation
	if _, err := os.Stat(weights); err == nil && !opt.ForceRetrain {
		if err = m.Build(); err != nil {
			return err
		}
		if err = m.Compile(); err != nil {
			return err
		}
		if err = m.Load(weights); err != nil {
			return err
		}
		if ev, err = m.measure(); err != nil {
			return err
		}
	} else {
		plan := devicePlan()
		for i, dev := range plan {
			ev, err = m.trainOn(dev)
			if err == nil {
				break
			}
			if i < len(plan)-1 && xerrors.Is(err, nn.ErrAcceleratorInternal) {
				zlog.Warning("it is likely that an attempt to run the model on the gpu failed; trying cpu training instead")
				time.Sleep(deviceFallbackPause)
				continue
			}
			return err
		}
	}

	if err := m.Save(weights); err != nil {
		return err
	}

	if err := m.Plot(ev.Predictions, opt.PlotPath); err != nil {
		return xerrors.Errorf("model was trained, but plotting failed: %w", err)
	}
	return nil
}

// trainOn builds the network from scratch on the given device and runs a
// full evaluation (compile + fit + measure).
func (m *ELPV) trainOn(dev nn.Device) (*Evaluation, error) {
	if err := m.Build(); err != nil {
		return nil, err
	}
	if err := m.net.Place(dev); err != nil {
		return nil, err
	}
	return m.Evaluate()
}
