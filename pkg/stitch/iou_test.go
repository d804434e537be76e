package stitch

import (
	"testing"

	"cellstitch3d/pkg/volume"
)

// TestStitchByIoUInheritsLabels checks that a well-overlapping object
// keeps one label down the stack.
func TestStitchByIoUInheritsLabels(t *testing.T) {
	masks := volume.NewStack(3, 12, 12)
	for z := 0; z < 3; z++ {
		masks.SetPlane(z, diskPlane(12, 12, 6, 6, 3, int32(z+1)))
	}

	maxLabel, err := StitchByIoU(masks, DefaultIoUThreshold)
	if err != nil {
		t.Fatalf("StitchByIoU returned error: %v", err)
	}

	if lbls := masks.Labels(); len(lbls) != 1 || lbls[0] != 1 {
		t.Errorf("Expected single label 1, got %v", lbls)
	}
	if maxLabel != 1 {
		t.Errorf("Expected counter 1 with no minted labels, got %d", maxLabel)
	}
}

// TestStitchByIoUBelowThreshold mints a new label when the overlap is
// too small.
func TestStitchByIoUBelowThreshold(t *testing.T) {
	masks := volume.NewStack(2, 10, 10)
	masks.SetPlane(0, diskPlane(10, 10, 2, 2, 1, 1))
	masks.SetPlane(1, diskPlane(10, 10, 7, 7, 1, 1))

	maxLabel, err := StitchByIoU(masks, DefaultIoUThreshold)
	if err != nil {
		t.Fatalf("StitchByIoU returned error: %v", err)
	}

	if got := masks.Plane(1).Labels(); len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected disjoint object to get new label 2, got %v", got)
	}
	if maxLabel != 2 {
		t.Errorf("Expected counter 2, got %d", maxLabel)
	}
}

// TestStitchByIoUEmptySlices carries labels across an empty slice by
// minting fresh identities on the far side.
func TestStitchByIoUEmptySlices(t *testing.T) {
	masks := volume.NewStack(3, 10, 10)
	masks.SetPlane(0, diskPlane(10, 10, 5, 5, 2, 1))
	masks.SetPlane(2, diskPlane(10, 10, 5, 5, 2, 1))

	maxLabel, err := StitchByIoU(masks, DefaultIoUThreshold)
	if err != nil {
		t.Fatalf("StitchByIoU returned error: %v", err)
	}

	if got := masks.Plane(2).Labels(); len(got) != 1 || got[0] == 1 {
		t.Errorf("Expected fresh label after the gap, got %v", got)
	}
	if maxLabel != 2 {
		t.Errorf("Expected counter 2, got %d", maxLabel)
	}
}

// TestStitchByIoUZeroDepth rejects an empty stack outright.
func TestStitchByIoUZeroDepth(t *testing.T) {
	if _, err := StitchByIoU(&volume.Stack{}, DefaultIoUThreshold); err == nil {
		t.Error("Expected error for zero-depth stack")
	}
}
