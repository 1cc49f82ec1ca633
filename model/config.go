package model

import (
	"strings"

	"go-ml.dev/pkg/zorros"

	"go-ml.dev/pkg/defectdetect/nn"
)

/*
ImgType is the color mode the training images are converted to
*/
type ImgType int

const (
	Binary ImgType = iota
	Grayscale
	RGB
)

func (t ImgType) String() string {
	switch t {
	case Binary:
		return "BINARY"
	case Grayscale:
		return "GRAYSCALE"
	case RGB:
		return "RGB"
	}
	return "INVALID"
}

func ParseImgType(s string) (ImgType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BINARY":
		return Binary, nil
	case "GRAYSCALE":
		return Grayscale, nil
	case "RGB":
		return RGB, nil
	}
	return 0, zorros.Errorf("invalid image type %q; valid: BINARY, GRAYSCALE, RGB", s)
}

const (
	DefaultTrainingFrac = 0.65
	// float comparison error tolerance used by the label partition
	DefaultTolerance = 1e-8

	EpochsAccelerated = 1024
	EpochsFallback    = 64
)

/*
Config is the settings record of the defect-detection trainer
*/
type Config struct {
	Epochs       int
	TrainingFrac float64
	HiddenNodes  int
	OutputNodes  int
	Activation   string
	Optimizer    string
	Loss         string
	Metrics      []string
	BatchSize    int

	imgType ImgType
}

/*
DefaultConfig returns the trainer defaults; the epoch count depends on
whether an accelerated device is advertised
*/
func DefaultConfig() Config {
	epochs := EpochsFallback
	if nn.GPUAvailable() {
		epochs = EpochsAccelerated
	}
	return Config{
		Epochs:       epochs,
		TrainingFrac: DefaultTrainingFrac,
		HiddenNodes:  128,
		OutputNodes:  10,
		Activation:   "relu",
		Optimizer:    "adam",
		Loss:         "sparse_categorical_crossentropy",
		Metrics:      []string{"accuracy"},
		BatchSize:    nn.DefaultBatchSize,
	}
}

func (c *Config) ImgType() ImgType { return c.imgType }

/*
SetImgType validates membership in the enumerated set before assignment
*/
func (c *Config) SetImgType(t ImgType) error {
	switch t {
	case Binary, Grayscale, RGB:
		c.imgType = t
		return nil
	}
	return zorros.Errorf("invalid image type %d; valid: BINARY, GRAYSCALE, RGB", int(t))
}
