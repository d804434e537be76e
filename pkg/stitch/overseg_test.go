package stitch

import (
	"testing"

	"cellstitch3d/pkg/volume"
)

// TestOversegMergesSingleSliceLabel covers the canonical repair: a label
// occupying only slice 3 of a 5-slice stack, overlapping a label in
// slice 2 and nothing in slice 4, is absorbed into the slice 2 label.
func TestOversegMergesSingleSliceLabel(t *testing.T) {
	masks := volume.NewStack(5, 10, 10)
	// Label 1 spans slices 0-2 over a 5x5 block.
	for z := 0; z <= 2; z++ {
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				masks.Set(z, y, x, 1)
			}
		}
	}
	// Label 9 occupies only slice 3, 80% on top of label 1's block.
	for y := 0; y < 5; y++ {
		for x := 1; x < 6; x++ {
			masks.Set(3, y, x, 9)
		}
	}

	if err := CorrectOverseg(masks); err != nil {
		t.Fatalf("CorrectOverseg returned error: %v", err)
	}

	if got := masks.Plane(3).Labels(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected slice 3 relabeled to 1, got %v", got)
	}
	for z := 0; z <= 2; z++ {
		if got := masks.Plane(z).Labels(); len(got) != 1 || got[0] != 1 {
			t.Errorf("Expected slice %d untouched, got %v", z, got)
		}
	}
}

// TestOversegFirstSliceUsesNextNeighbor checks the z=0 special case: the
// only available neighbor is z+1.
func TestOversegFirstSliceUsesNextNeighbor(t *testing.T) {
	masks := volume.NewStack(3, 6, 6)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			masks.Set(0, y, x, 5)
		}
	}
	for z := 1; z < 3; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				masks.Set(z, y, x, 2)
			}
		}
	}

	if err := CorrectOverseg(masks); err != nil {
		t.Fatalf("CorrectOverseg returned error: %v", err)
	}
	if got := masks.Plane(0).Labels(); len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected slice 0 merged into label 2, got %v", got)
	}
}

// TestOversegNoContactLeftAlone keeps a background-isolated single-slice
// label unchanged: there is no eligible merge target.
func TestOversegNoContactLeftAlone(t *testing.T) {
	masks := volume.NewStack(4, 8, 8)
	for z := 0; z < 4; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				masks.Set(z, y, x, 1)
			}
		}
	}
	// Label 7 exists only in slice 2, in a corner nothing else
	// touches.
	masks.Set(2, 7, 7, 7)
	masks.Set(2, 7, 6, 7)

	if err := CorrectOverseg(masks); err != nil {
		t.Fatalf("CorrectOverseg returned error: %v", err)
	}
	if masks.At(2, 7, 7) != 7 || masks.At(2, 7, 6) != 7 {
		t.Errorf("Expected isolated label 7 untouched, got %d/%d",
			masks.At(2, 7, 7), masks.At(2, 7, 6))
	}
}

// TestOversegIdempotent runs the corrector twice; the second pass must
// not change anything.
func TestOversegIdempotent(t *testing.T) {
	masks := volume.NewStack(4, 8, 8)
	for z := 0; z < 3; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				masks.Set(z, y, x, 1)
			}
		}
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			masks.Set(3, y, x, 6)
		}
	}

	if err := CorrectOverseg(masks); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	after := masks.Clone()
	if err := CorrectOverseg(masks); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	for i, v := range masks.Vox {
		if v != after.Vox[i] {
			t.Fatalf("Second pass changed voxel %d: %d vs %d", i, after.Vox[i], v)
		}
	}
}

// TestOversegSingleSliceStack has no neighbor at all; the corrector must
// be a no-op rather than index out of range.
func TestOversegSingleSliceStack(t *testing.T) {
	masks := volume.NewStack(1, 4, 4)
	masks.Set(0, 1, 1, 3)

	if err := CorrectOverseg(masks); err != nil {
		t.Fatalf("CorrectOverseg returned error: %v", err)
	}
	if masks.At(0, 1, 1) != 3 {
		t.Errorf("Expected single-slice stack untouched, got %d", masks.At(0, 1, 1))
	}
}
