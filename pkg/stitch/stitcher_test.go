package stitch

import (
	"errors"
	"testing"

	"cellstitch3d/pkg/volume"
)

// cylinderStacks builds an xy stack with one disk per slice plus
// orthogonal stacks that fully agree, the benign fixture for the
// sequential walk.
func cylinderStacks(d, h, w int, lbls []int32) (xy, yz, xz *volume.Stack) {
	xy = volume.NewStack(d, h, w)
	yz = volume.NewStack(d, h, w)
	xz = volume.NewStack(d, h, w)
	for z := 0; z < d; z++ {
		if lbls[z] == 0 {
			continue
		}
		disk := diskPlane(h, w, h/2, w/2, h/4, lbls[z])
		xy.SetPlane(z, disk)
		// Orthogonal views agree everywhere: constant label across
		// slices produces no disagreement votes.
		agree := volume.NewPlane(h, w)
		for i := range agree.Pix {
			agree.Pix[i] = 1
		}
		yz.SetPlane(z, agree)
		xz.SetPlane(z, agree)
	}
	return xy, yz, xz
}

// TestStitcherSingleObject stitches a cylinder: every slice ends up with
// the first slice's label.
func TestStitcherSingleObject(t *testing.T) {
	xy, yz, xz := cylinderStacks(4, 16, 16, []int32{1, 1, 2, 1})

	st := NewStitcher()
	maxLabel, err := st.Stitch(xy, yz, xz)
	if err != nil {
		t.Fatalf("Stitch returned error: %v", err)
	}

	lbls := xy.Labels()
	if len(lbls) != 1 || lbls[0] != 1 {
		t.Errorf("Expected single label 1 after stitching, got %v", lbls)
	}
	if maxLabel < 2 {
		t.Errorf("Expected max label >= initial stack max, got %d", maxLabel)
	}
}

// TestStitcherEmptyStack is the fatal precondition: an all-zero stack
// must fail before any stitching is attempted.
func TestStitcherEmptyStack(t *testing.T) {
	xy := volume.NewStack(5, 8, 8)
	yz := volume.NewStack(5, 8, 8)
	xz := volume.NewStack(5, 8, 8)

	if _, err := NewStitcher().Stitch(xy, yz, xz); !errors.Is(err, ErrEmptyStack) {
		t.Errorf("Expected ErrEmptyStack, got %v", err)
	}
}

// TestStitcherBridgesGaps checks that an empty mid-stack frame is left
// untouched and the next non-empty frame stitches directly against the
// last finalized one, preserving label continuity across the gap.
func TestStitcherBridgesGaps(t *testing.T) {
	xy, yz, xz := cylinderStacks(5, 16, 16, []int32{0, 1, 0, 2, 0})

	maxLabel, err := NewStitcher().Stitch(xy, yz, xz)
	if err != nil {
		t.Fatalf("Stitch returned error: %v", err)
	}

	if n := xy.Plane(0).NonzeroCount(); n != 0 {
		t.Errorf("Expected leading empty slice untouched, got %d foreground pixels", n)
	}
	if n := xy.Plane(2).NonzeroCount(); n != 0 {
		t.Errorf("Expected mid-stack empty slice untouched, got %d foreground pixels", n)
	}
	if got := xy.Plane(3).Labels(); len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected slice 3 to inherit label 1 across the gap, got %v", got)
	}
	if maxLabel < 2 {
		t.Errorf("Expected non-decreasing counter, got %d", maxLabel)
	}
}

// TestStitcherShapeMismatch rejects orthogonal stacks of a different
// shape.
func TestStitcherShapeMismatch(t *testing.T) {
	xy := volume.NewStack(2, 8, 8)
	yz := volume.NewStack(2, 8, 9)
	xz := volume.NewStack(2, 8, 8)

	if _, err := NewStitcher().Stitch(xy, yz, xz); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch, got %v", err)
	}
}

// TestStitcherDeterminism runs the same input twice and demands
// identical labelings.
func TestStitcherDeterminism(t *testing.T) {
	build := func() (*volume.Stack, *volume.Stack, *volume.Stack) {
		xy := volume.NewStack(3, 16, 16)
		yz := volume.NewStack(3, 16, 16)
		xz := volume.NewStack(3, 16, 16)
		for z := 0; z < 3; z++ {
			xy.SetPlane(z, diskPlane(16, 16, 6, 6, 3, int32(z+1)))
			p := xy.Plane(z)
			// A second, disjoint object per slice.
			for y := 12; y < 15; y++ {
				for x := 12; x < 15; x++ {
					p.Set(y, x, int32(10+z))
				}
			}
			// Orthogonal views disagree on the corner object only.
			dis := volume.NewPlane(16, 16)
			for y := 0; y < 16; y++ {
				for x := 0; x < 16; x++ {
					if y >= 12 && x >= 12 {
						dis.Set(y, x, int32(z+1))
					} else {
						dis.Set(y, x, 1)
					}
				}
			}
			yz.SetPlane(z, dis)
			xz.SetPlane(z, dis)
		}
		return xy, yz, xz
	}

	xy1, yz1, xz1 := build()
	xy2, yz2, xz2 := build()

	max1, err := NewStitcher().Stitch(xy1, yz1, xz1)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	max2, err := NewStitcher().Stitch(xy2, yz2, xz2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if max1 != max2 {
		t.Errorf("Expected identical final counters, got %d and %d", max1, max2)
	}
	for i, v := range xy1.Vox {
		if v != xy2.Vox[i] {
			t.Fatalf("Labelings diverge at voxel %d: %d vs %d", i, v, xy2.Vox[i])
		}
	}
}

// TestStitcherUniquenessGrowth verifies that labels minted during the
// pass never collide with labels created earlier.
func TestStitcherUniquenessGrowth(t *testing.T) {
	// Objects jump around so nothing overlaps between slices and the
	// orthogonal views disagree everywhere: every slice after the
	// first mints fresh labels.
	xy := volume.NewStack(3, 16, 16)
	yz := volume.NewStack(3, 16, 16)
	xz := volume.NewStack(3, 16, 16)
	corners := [][2]int{{3, 3}, {3, 12}, {12, 3}}
	for z := 0; z < 3; z++ {
		xy.SetPlane(z, diskPlane(16, 16, corners[z][0], corners[z][1], 2, 1))
		dis := volume.NewPlane(16, 16)
		for i := range dis.Pix {
			dis.Pix[i] = int32(z*2 + 1)
		}
		yz.SetPlane(z, dis)
		xz.SetPlane(z, dis)
	}

	before := xy.MaxLabel()
	maxLabel, err := NewStitcher().Stitch(xy, yz, xz)
	if err != nil {
		t.Fatalf("Stitch returned error: %v", err)
	}

	if maxLabel != before+2 {
		t.Errorf("Expected two minted labels (counter %d), got %d", before+2, maxLabel)
	}
	seen := make(map[int32]int)
	for z := 0; z < 3; z++ {
		for _, l := range xy.Plane(z).Labels() {
			seen[l]++
		}
	}
	if len(seen) != 3 {
		t.Errorf("Expected 3 distinct labels across slices, got %v", seen)
	}
}
