package imaging

import (
	"golang.org/x/xerrors"

	"go-ml.dev/pkg/defectdetect/tensor"
)

/*
ErrImageDimension reports an image whose dimensionality does not match the
operation, e.g. a geometric transform requiring a channel dimension.
*/
var ErrImageDimension = xerrors.New("unexpected image dimensions")

/*
EnsureChannelDim verifies that the image carries an explicit trailing
channel dimension: (rows, cols, channels).
*/
func EnsureChannelDim(img *tensor.Image) error {
	if img.Rank() != 3 {
		return xerrors.Errorf("image of shape %v has no channel dimension: %w",
			img.Shape(), ErrImageDimension)
	}
	return nil
}
