// Package segment is the boundary to the segmentation model. The model runs
// elsewhere; this package only defines the contract and an HTTP client for a
// model-serving sidecar.
package segment

import (
	"context"
	"errors"
	"image"

	"github.com/seeclickbuy/backend/geometry"
)

// ErrNoMask is returned when the segmenter produced no mask for the input.
// Callers treat this as "no object found" and fail the pipeline stage.
var ErrNoMask = errors.New("segmenter returned no mask")

type Point struct {
	X, Y int
}

type Box struct {
	X1, Y1, X2, Y2 int
}

type Segmenter interface {
	SegmentPoint(ctx context.Context, img image.Image, p Point) (*geometry.Mask, error)
	SegmentBox(ctx context.Context, img image.Image, b Box) (*geometry.Mask, error)
}
