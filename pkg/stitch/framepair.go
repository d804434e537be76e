package stitch

import (
	"fmt"

	"cellstitch3d/pkg/volume"
)

// DisagreementMask marks, for the boundary between two consecutive Z
// slices, the pixels where one auxiliary orthogonal segmentation is
// non-background in both slices yet assigns them different labels. It is
// read-only evidence consumed by the voting step.
type DisagreementMask struct {
	H, W int
	Bits []bool
}

// NotStitched builds the disagreement mask for one orthogonal view from
// its planes at the previous and current slice positions.
func NotStitched(prev, curr *volume.Plane) (*DisagreementMask, error) {
	if err := prev.SameShape(curr); err != nil {
		return nil, fmt.Errorf("disagreement mask: %w", err)
	}
	m := &DisagreementMask{H: prev.H, W: prev.W, Bits: make([]bool, len(prev.Pix))}
	for p, a := range prev.Pix {
		b := curr.Pix[p]
		m.Bits[p] = a != 0 && b != 0 && a != b
	}
	return m, nil
}

// DecisionKind tags the outcome of the per-label merge decision.
type DecisionKind int

const (
	// Merged means the frame1 label inherits an existing frame0 label.
	Merged DecisionKind = iota

	// NewLabel means a fresh, globally unique label was minted.
	NewLabel
)

// Decision records the outcome for one frame1 label: either a merge into
// the frame0 label Target, or a newly minted Target label.
type Decision struct {
	Label  int32
	Kind   DecisionKind
	Target int32
}

// FramePair matches the labels of a frame against an already finalized
// reference frame and decides, per label, whether to merge or to mint.
// MaxLabel is the running global counter threaded through the stitching
// pass; it is read and advanced by Stitch and must never decrease.
type FramePair struct {
	Frame0   *Frame
	Frame1   *Frame
	MaxLabel int32
}

// NewFramePair wraps a finalized reference plane and the plane to be
// relabeled. The effective counter starts at the largest of the supplied
// running maximum and the labels already present in either frame.
func NewFramePair(mask0, mask1 *volume.Plane, maxLabel int32) (*FramePair, error) {
	if err := mask0.SameShape(mask1); err != nil {
		return nil, fmt.Errorf("frame pair: %w", err)
	}
	fp := &FramePair{
		Frame0:   NewFrame(mask0),
		Frame1:   NewFrame(mask1),
		MaxLabel: maxLabel,
	}
	if m := fp.Frame0.MaxLabel(); m > fp.MaxLabel {
		fp.MaxLabel = m
	}
	if m := fp.Frame1.MaxLabel(); m > fp.MaxLabel {
		fp.MaxLabel = m
	}
	return fp, nil
}

// Stitch relabels frame1 against frame0 and returns the relabeled plane
// together with the per-label decision records. Frame0 is never mutated;
// the result is written to a fresh plane in one batched relabel pass.
//
// For each nonzero frame1 label the transport plan's hard assignment
// yields a set of frame0 nominees; the nominee with the lowest IoU cost
// wins, ties going to the smaller label. The merge is accepted only when
// the fraction of the label's pixels on which the two orthogonal views
// agree reaches pVotes; otherwise, and whenever no nominee exists, a new
// label is minted from the running counter.
func (fp *FramePair) Stitch(yzNot, xzNot *DisagreementMask, pVotes float64) (*volume.Plane, []Decision, error) {
	mask1 := fp.Frame1.Mask
	out := volume.NewPlane(mask1.H, mask1.W)
	lbls1 := fp.Frame1.Labels()
	if len(lbls1) == 0 {
		return out, nil, nil
	}
	if yzNot.H != mask1.H || yzNot.W != mask1.W || xzNot.H != mask1.H || xzNot.W != mask1.W {
		return nil, nil, fmt.Errorf("frame pair: disagreement mask: %w", ErrDimensionMismatch)
	}
	lbls0 := fp.Frame0.Labels()

	ov, err := Overlap(fp.Frame0.Mask, mask1)
	if err != nil {
		return nil, nil, err
	}
	cm := NewCostMatrix(ov, lbls0, lbls1)
	dist0, dist1 := cm.Distributions()
	plan, err := Plan(dist0, dist1, cm.C)
	if err != nil {
		return nil, nil, err
	}
	assign := HardAssignment(plan)

	// Per-label pixel counts and orthogonal disagreement tallies,
	// gathered in one pass over the plane.
	sizes := make(map[int32]int64, len(lbls1))
	yzCnt := make(map[int32]int64, len(lbls1))
	xzCnt := make(map[int32]int64, len(lbls1))
	for p, v := range mask1.Pix {
		if v == 0 {
			continue
		}
		sizes[v]++
		if yzNot.Bits[p] {
			yzCnt[v]++
		}
		if xzNot.Bits[p] {
			xzCnt[v]++
		}
	}

	decisions := make([]Decision, 0, len(lbls1))
	relabel := make(map[int32]int32, len(lbls1))
	for j, l1 := range lbls1 {
		nominee := -1
		for i := range lbls0 {
			if assign[i] != j {
				continue
			}
			if nominee < 0 || cm.Cost(i, j) < cm.Cost(nominee, j) {
				nominee = i
			}
		}

		// Each orthogonal view contributes half a vote per pixel.
		notStitched := float64(yzCnt[l1])/2 + float64(xzCnt[l1])/2
		agreed := notStitched <= (1-pVotes)*float64(sizes[l1])

		var d Decision
		if nominee >= 0 && agreed {
			d = Decision{Label: l1, Kind: Merged, Target: lbls0[nominee]}
		} else {
			fp.MaxLabel++
			d = Decision{Label: l1, Kind: NewLabel, Target: fp.MaxLabel}
		}
		decisions = append(decisions, d)
		relabel[l1] = d.Target
	}

	for p, v := range mask1.Pix {
		if v != 0 {
			out.Pix[p] = relabel[v]
		}
	}
	return out, decisions, nil
}
