package preprocess

import (
	"math"

	"cellstitch3d/internal/models"
	"cellstitch3d/pkg/volume"
)

// The orthogonal views embed the Z axis inside their planes, so before
// segmentation those planes must be stretched by the anisotropy factor
// (z step over pixel size) to present roughly isotropic pixels, and the
// resulting label masks shrunk back afterwards. Intensities are resampled
// linearly; label masks use nearest neighbor so no label values are
// invented at boundaries.

// ScaleHeightLinear resamples every plane of the intensity volume along
// its row axis by the given factor.
func ScaleHeightLinear(v *models.Volume, factor float64) *models.Volume {
	outH := scaledSize(v.Height, factor)
	out := models.NewVolume(v.Depth, outH, v.Width)
	out.Voxel = v.Voxel
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < outH; y++ {
			y0, y1, t := linearCoord(y, outH, v.Height)
			for x := 0; x < v.Width; x++ {
				a := v.At(z, y0, x)
				b := v.At(z, y1, x)
				out.Set(z, y, x, (1-t)*a+t*b)
			}
		}
	}
	return out
}

// ScaleWidthLinear resamples every plane of the intensity volume along
// its column axis by the given factor.
func ScaleWidthLinear(v *models.Volume, factor float64) *models.Volume {
	outW := scaledSize(v.Width, factor)
	out := models.NewVolume(v.Depth, v.Height, outW)
	out.Voxel = v.Voxel
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for x := 0; x < outW; x++ {
				x0, x1, t := linearCoord(x, outW, v.Width)
				a := v.At(z, y, x0)
				b := v.At(z, y, x1)
				out.Set(z, y, x, (1-t)*a+t*b)
			}
		}
	}
	return out
}

// ScaleHeightNearest resamples every plane of a label stack along its row
// axis to exactly outH rows using nearest-neighbor lookup, so that masks
// scaled up for segmentation restore their original extent exactly.
func ScaleHeightNearest(s *volume.Stack, outH int) *volume.Stack {
	out := volume.NewStack(s.D, outH, s.W)
	for z := 0; z < s.D; z++ {
		for y := 0; y < outH; y++ {
			sy := nearestCoord(y, outH, s.H)
			for x := 0; x < s.W; x++ {
				out.Set(z, y, x, s.At(z, sy, x))
			}
		}
	}
	return out
}

// ScaleWidthNearest resamples every plane of a label stack along its
// column axis to exactly outW columns using nearest-neighbor lookup.
func ScaleWidthNearest(s *volume.Stack, outW int) *volume.Stack {
	out := volume.NewStack(s.D, s.H, outW)
	for z := 0; z < s.D; z++ {
		for y := 0; y < s.H; y++ {
			for x := 0; x < outW; x++ {
				sx := nearestCoord(x, outW, s.W)
				out.Set(z, y, x, s.At(z, y, sx))
			}
		}
	}
	return out
}

// PadHeight zero-pads the row axis symmetrically until the volume is at
// least minRows tall, returning the pad width applied on each side.
// Segmentation models expect a minimum plane extent; the pad is stripped
// from the resulting masks with CropHeight.
func PadHeight(v *models.Volume, minRows int) (*models.Volume, int) {
	if v.Height >= minRows {
		return v, 0
	}
	pad := (minRows - v.Height) / 2
	out := models.NewVolume(v.Depth, v.Height+2*pad, v.Width)
	out.Voxel = v.Voxel
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			copy(out.Data[(z*out.Height+y+pad)*out.Width:(z*out.Height+y+pad+1)*out.Width],
				v.Data[(z*v.Height+y)*v.Width:(z*v.Height+y+1)*v.Width])
		}
	}
	return out, pad
}

// CropHeight removes pad rows from the top and bottom of every plane of a
// label stack, the inverse of PadHeight on the mask side.
func CropHeight(s *volume.Stack, pad int) *volume.Stack {
	if pad == 0 {
		return s
	}
	out := volume.NewStack(s.D, s.H-2*pad, s.W)
	for z := 0; z < s.D; z++ {
		for y := 0; y < out.H; y++ {
			copy(out.Vox[(z*out.H+y)*out.W:(z*out.H+y+1)*out.W],
				s.Vox[(z*s.H+y+pad)*s.W:(z*s.H+y+pad+1)*s.W])
		}
	}
	return out
}

func scaledSize(n int, factor float64) int {
	out := int(math.Round(float64(n) * factor))
	if out < 1 {
		out = 1
	}
	return out
}

// linearCoord maps an output index to the two bracketing source indices
// and the interpolation weight, with the endpoints aligned.
func linearCoord(i, outN, inN int) (lo, hi int, t float64) {
	if inN == 1 || outN == 1 {
		return 0, 0, 0
	}
	pos := float64(i) * float64(inN-1) / float64(outN-1)
	lo = int(math.Floor(pos))
	hi = lo + 1
	if hi >= inN {
		hi = inN - 1
	}
	return lo, hi, pos - float64(lo)
}

// nearestCoord maps an output index to the nearest source index under the
// uniform pixel-center mapping.
func nearestCoord(i, outN, inN int) int {
	src := int((float64(i) + 0.5) * float64(inN) / float64(outN))
	if src >= inN {
		src = inN - 1
	}
	return src
}
