package models

import "testing"

func TestAnisotropy(t *testing.T) {
	cases := []struct {
		v    VoxelSize
		want float64
	}{
		{VoxelSize{X: 0.5, Y: 0.5, Z: 2.0}, 4.0},
		{VoxelSize{X: 1, Y: 1, Z: 1}, 1.0},
		{VoxelSize{}, 1.0},
		{VoxelSize{X: 0.5}, 1.0},
		{VoxelSize{Z: 2}, 1.0},
	}
	for _, c := range cases {
		if got := c.v.Anisotropy(); got != c.want {
			t.Errorf("Anisotropy(%+v) = %g, want %g", c.v, got, c.want)
		}
	}
}

func TestSegModeValid(t *testing.T) {
	for _, m := range []SegMode{ModeNuclei, ModeCells, ModeNucleiCells} {
		if !m.Valid() {
			t.Errorf("Expected %q to be valid", m)
		}
	}
	if SegMode("membrane").Valid() {
		t.Error("Expected unknown mode to be invalid")
	}
}

func TestAxisString(t *testing.T) {
	if AxisZ.String() != "z" || AxisY.String() != "y" || AxisX.String() != "x" {
		t.Error("Unexpected axis names")
	}
}

func TestVolumeSwapZXInvolution(t *testing.T) {
	v := NewVolume(2, 3, 4)
	for i := range v.Data {
		v.Data[i] = float64(i)
	}
	v.Voxel = VoxelSize{X: 0.5, Y: 0.5, Z: 2}

	sw := v.SwapZX()
	if sw.Depth != 4 || sw.Height != 3 || sw.Width != 2 {
		t.Fatalf("Expected swapped shape 4x3x2, got %dx%dx%d", sw.Depth, sw.Height, sw.Width)
	}
	if sw.Voxel.X != 2 || sw.Voxel.Z != 0.5 {
		t.Errorf("Expected voxel sizes swapped with the axes, got %+v", sw.Voxel)
	}
	if got := sw.At(3, 2, 1); got != v.At(1, 2, 3) {
		t.Errorf("Expected sw[3,2,1] == v[1,2,3], got %g vs %g", got, v.At(1, 2, 3))
	}

	back := sw.SwapZX()
	for i, val := range v.Data {
		if back.Data[i] != val {
			t.Fatalf("SwapZX not an involution at voxel %d", i)
		}
	}
}

func TestVolumeSwapZYInvolution(t *testing.T) {
	v := NewVolume(2, 3, 4)
	for i := range v.Data {
		v.Data[i] = float64(i)
	}

	sw := v.SwapZY()
	if sw.Depth != 3 || sw.Height != 2 || sw.Width != 4 {
		t.Fatalf("Expected swapped shape 3x2x4, got %dx%dx%d", sw.Depth, sw.Height, sw.Width)
	}
	if got := sw.At(2, 1, 3); got != v.At(1, 2, 3) {
		t.Errorf("Expected sw[2,1,3] == v[1,2,3], got %g vs %g", got, v.At(1, 2, 3))
	}

	back := sw.SwapZY()
	for i, val := range v.Data {
		if back.Data[i] != val {
			t.Fatalf("SwapZY not an involution at voxel %d", i)
		}
	}
}
