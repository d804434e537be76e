// Package segmentation defines the boundary to the 2D instance
// segmentation oracle. The stitching core is agnostic to the concrete
// model behind the interface; it only requires that, given an image plane
// and a physical pixel size, the oracle returns an instance label map,
// optionally split into nucleus and cell channels.
package segmentation

import (
	"fmt"

	"cellstitch3d/internal/models"
	"cellstitch3d/pkg/volume"
)

// ImagePlane is one multi-channel 2D image handed to the oracle.
type ImagePlane struct {
	H, W     int
	Channels [][]float64
}

// Result is the oracle's output for one plane. Nuclei is nil unless the
// segmentation mode produces a separate nuclear channel.
type Result struct {
	Cells  *volume.Plane
	Nuclei *volume.Plane
}

// Oracle produces 2D instance segmentations. Implementations wrap a
// trained model; tests use stubs.
type Oracle interface {
	Segment(img ImagePlane, pixelSize float64, mode models.SegMode) (Result, error)
}

// SegmentStack runs the oracle over every plane of the channel volumes
// and assembles the per-plane label maps into stacks. All channels must
// share a shape. The nuclei stack is nil unless the mode requests the
// nuclear channel.
func SegmentStack(o Oracle, channels []*models.Volume, pixelSize float64, mode models.SegMode) (cells, nuclei *volume.Stack, err error) {
	if len(channels) == 0 {
		return nil, nil, fmt.Errorf("segmentation: no channels")
	}
	if !mode.Valid() {
		return nil, nil, fmt.Errorf("segmentation: unknown mode %q", mode)
	}
	d, h, w := channels[0].Depth, channels[0].Height, channels[0].Width
	for c, ch := range channels {
		if ch.Depth != d || ch.Height != h || ch.Width != w {
			return nil, nil, fmt.Errorf("segmentation: channel %d: %w", c, volume.ErrDimensionMismatch)
		}
	}

	cells = volume.NewStack(d, h, w)
	if mode == models.ModeNucleiCells {
		nuclei = volume.NewStack(d, h, w)
	}
	for z := 0; z < d; z++ {
		img := ImagePlane{H: h, W: w, Channels: make([][]float64, len(channels))}
		for c, ch := range channels {
			img.Channels[c] = ch.Plane(z)
		}
		res, err := o.Segment(img, pixelSize, mode)
		if err != nil {
			return nil, nil, fmt.Errorf("segmentation: plane %d: %w", z, err)
		}
		if res.Cells == nil {
			return nil, nil, fmt.Errorf("segmentation: plane %d: oracle returned no cell labels", z)
		}
		if err := cells.SetPlane(z, res.Cells); err != nil {
			return nil, nil, fmt.Errorf("segmentation: plane %d: %w", z, err)
		}
		if nuclei != nil {
			if res.Nuclei == nil {
				return nil, nil, fmt.Errorf("segmentation: plane %d: mode %q expects a nuclear channel", z, mode)
			}
			if err := nuclei.SetPlane(z, res.Nuclei); err != nil {
				return nil, nil, fmt.Errorf("segmentation: plane %d: %w", z, err)
			}
		}
	}
	return cells, nuclei, nil
}
