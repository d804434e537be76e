package preprocess

import (
	"math"
	"testing"

	"cellstitch3d/internal/models"
	"cellstitch3d/pkg/volume"
)

func TestScaleHeightLinearEndpoints(t *testing.T) {
	v := models.NewVolume(1, 3, 1)
	v.Set(0, 0, 0, 0)
	v.Set(0, 1, 0, 10)
	v.Set(0, 2, 0, 20)

	out := ScaleHeightLinear(v, 2.0)
	if out.Height != 6 {
		t.Fatalf("Expected 6 rows, got %d", out.Height)
	}
	if got := out.At(0, 0, 0); got != 0 {
		t.Errorf("Expected first row preserved, got %g", got)
	}
	if got := out.At(0, 5, 0); got != 20 {
		t.Errorf("Expected last row preserved, got %g", got)
	}
	// Interior samples stay within the source range and are monotone for
	// a monotone source column.
	prev := out.At(0, 0, 0)
	for y := 1; y < out.Height; y++ {
		cur := out.At(0, y, 0)
		if cur < prev {
			t.Errorf("Expected monotone resample, row %d: %g < %g", y, cur, prev)
		}
		prev = cur
	}
}

func TestScaleWidthLinearIdentity(t *testing.T) {
	v := models.NewVolume(1, 2, 4)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			v.Set(0, y, x, float64(y*4+x))
		}
	}

	out := ScaleWidthLinear(v, 1.0)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if got := out.At(0, y, x); math.Abs(got-v.At(0, y, x)) > 1e-12 {
				t.Errorf("Expected identity at (%d,%d), got %g", y, x, got)
			}
		}
	}
}

func TestScaleNearestRoundTrip(t *testing.T) {
	s := volume.NewStack(1, 4, 6)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			s.Set(0, y, x, int32(y*6+x+1))
		}
	}

	up := ScaleHeightNearest(s, 11)
	down := ScaleHeightNearest(up, 4)
	for i, v := range s.Vox {
		if down.Vox[i] != v {
			t.Fatalf("Height round trip changed voxel %d: %d vs %d", i, v, down.Vox[i])
		}
	}

	up = ScaleWidthNearest(s, 17)
	down = ScaleWidthNearest(up, 6)
	for i, v := range s.Vox {
		if down.Vox[i] != v {
			t.Fatalf("Width round trip changed voxel %d: %d vs %d", i, v, down.Vox[i])
		}
	}
}

func TestScaleNearestInventsNoLabels(t *testing.T) {
	s := volume.NewStack(1, 3, 3)
	s.Set(0, 1, 1, 5)
	s.Set(0, 2, 2, 9)

	up := ScaleHeightNearest(ScaleWidthNearest(s, 8), 8)
	for _, v := range up.Vox {
		if v != 0 && v != 5 && v != 9 {
			t.Fatalf("Nearest resample invented label %d", v)
		}
	}
}

func TestPadCropHeightRoundTrip(t *testing.T) {
	v := models.NewVolume(2, 3, 4)
	for i := range v.Data {
		v.Data[i] = float64(i)
	}

	padded, pad := PadHeight(v, 9)
	if pad != 3 || padded.Height != 9 {
		t.Fatalf("Expected pad 3 to 9 rows, got pad %d height %d", pad, padded.Height)
	}
	for z := 0; z < 2; z++ {
		for x := 0; x < 4; x++ {
			if padded.At(z, 0, x) != 0 || padded.At(z, 8, x) != 0 {
				t.Fatal("Expected zero padding rows")
			}
		}
	}
	if got := padded.At(1, 3+1, 2); got != v.At(1, 1, 2) {
		t.Errorf("Expected interior shifted by pad, got %g vs %g", got, v.At(1, 1, 2))
	}

	// Crop a mask stack of the padded shape back down.
	m := volume.NewStack(2, 9, 4)
	for z := 0; z < 2; z++ {
		for y := 0; y < 9; y++ {
			for x := 0; x < 4; x++ {
				m.Set(z, y, x, int32((z*9+y)*4+x+1))
			}
		}
	}
	cropped := CropHeight(m, pad)
	if cropped.H != 3 {
		t.Fatalf("Expected 3 rows after crop, got %d", cropped.H)
	}
	if got := cropped.At(1, 1, 2); got != m.At(1, 4, 2) {
		t.Errorf("Expected cropped value from padded row 4, got %d vs %d", got, m.At(1, 4, 2))
	}
}

func TestPadHeightNoop(t *testing.T) {
	v := models.NewVolume(1, 10, 4)
	padded, pad := PadHeight(v, 8)
	if pad != 0 || padded != v {
		t.Errorf("Expected no-op pad, got pad %d", pad)
	}
	s := volume.NewStack(1, 10, 4)
	if got := CropHeight(s, 0); got != s {
		t.Error("Expected zero crop to return the input stack")
	}
}
