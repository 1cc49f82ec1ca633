package dataset

import (
	"fmt"

	"github.com/google/uuid"
	"go-ml.dev/pkg/zorros/zlog"

	"go-ml.dev/pkg/defectdetect/imaging"
	"go-ml.dev/pkg/defectdetect/tensor"
)

/*
Mirror selects a mirroring axis for dataset amplification
*/
type Mirror int

const (
	MirrorHorizontal Mirror = iota + 1 // left-right
	MirrorVertical                     // top-bottom
	MirrorDiagonal                     // main diagonal (transpose)
	MirrorAntiDiagonal                 // anti diagonal
)

/*
DefaultMirrorAxes amplifies about all four axes
*/
var DefaultMirrorAxes = []Mirror{MirrorHorizontal, MirrorVertical, MirrorDiagonal, MirrorAntiDiagonal}

func (a Mirror) apply(img *tensor.Image) *tensor.Image {
	switch a {
	case MirrorHorizontal:
		return img.FlipH()
	case MirrorVertical:
		return img.FlipV()
	case MirrorDiagonal:
		return img.Transpose()
	case MirrorAntiDiagonal:
		return img.Transpose().Rot90(2)
	}
	return img.Clone()
}

/*
Amplify enlarges the table in place, adding one mirrored copy of every row
per axis. New rows get fresh unique identifiers and inherit the type and
quality labels of their source. Images must carry an explicit channel
dimension; otherwise the table is left untouched and an error wrapping
imaging.ErrImageDimension is returned.
*/
func (t *Table) Amplify(axes ...Mirror) error {
	if len(axes) == 0 {
		axes = DefaultMirrorAxes
	}
	for _, r := range t.rows {
		if err := imaging.EnsureChannelDim(r.Image); err != nil {
			return err
		}
	}
	zlog.Info(fmt.Sprintf("amplifying %d samples about %d axes", len(t.rows), len(axes)))
	amplified := make([]Row, 0, len(t.rows)*len(axes))
	for _, r := range t.rows {
		for _, a := range axes {
			amplified = append(amplified, Row{
				ID:      uuid.New().String(),
				Image:   a.apply(r.Image),
				Type:    r.Type,
				Quality: r.Quality,
			})
		}
	}
	t.rows = append(t.rows, amplified...)
	return nil
}
