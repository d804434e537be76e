package stitch

import (
	"fmt"

	"cellstitch3d/pkg/volume"
)

// DefaultIoUThreshold is the minimum IoU for the single-axis stitcher to
// inherit a label from the previous slice.
const DefaultIoUThreshold = 0.25

// StitchByIoU runs the simpler single-axis threshold stitch over the
// stack, in place: each slice's labels inherit the previous slice's label
// when their IoU reaches the threshold and the candidate is the previous
// label's best claimant, otherwise a new label is minted from the running
// maximum. No orthogonal evidence is consulted. Returns the final value
// of the label counter.
func StitchByIoU(masks *volume.Stack, threshold float64) (int32, error) {
	if masks.D == 0 {
		return 0, ErrEmptyStack
	}
	maxLabel := masks.Plane(0).MaxLabel()

	for z := 0; z < masks.D-1; z++ {
		prev := masks.Plane(z)
		curr := masks.Plane(z + 1)
		lblsPrev := prev.Labels()
		lblsCurr := curr.Labels()
		if len(lblsCurr) == 0 {
			continue
		}
		if len(lblsPrev) == 0 {
			// Nothing to match against: carry every label forward
			// under a fresh identity to preserve global uniqueness.
			relabel := make(map[int32]int32, len(lblsCurr))
			for _, l := range lblsCurr {
				maxLabel++
				relabel[l] = maxLabel
			}
			applyRelabel(curr, relabel)
			continue
		}

		ov, err := Overlap(prev, curr)
		if err != nil {
			return 0, fmt.Errorf("iou stitch pair (%d,%d): %w", z, z+1, err)
		}
		cm := NewCostMatrix(ov, lblsPrev, lblsCurr)

		// For every previous label, its best current claimant. A
		// current label may only inherit from a previous label whose
		// best claimant it is, so one previous label never seeds two
		// current labels.
		bestClaim := make([]int, len(lblsPrev))
		for i := range lblsPrev {
			bestClaim[i] = -1
			bestIoU := 0.0
			for j := range lblsCurr {
				if iou := 1 - cm.Cost(i, j); iou >= threshold && iou > bestIoU {
					bestIoU = iou
					bestClaim[i] = j
				}
			}
		}

		relabel := make(map[int32]int32, len(lblsCurr))
		for j, l1 := range lblsCurr {
			best := -1
			bestIoU := 0.0
			for i := range lblsPrev {
				if bestClaim[i] != j {
					continue
				}
				if iou := 1 - cm.Cost(i, j); iou > bestIoU {
					bestIoU = iou
					best = i
				}
			}
			if best >= 0 {
				relabel[l1] = lblsPrev[best]
			} else {
				maxLabel++
				relabel[l1] = maxLabel
			}
		}
		applyRelabel(curr, relabel)

		if m := curr.MaxLabel(); m > maxLabel {
			maxLabel = m
		}
	}
	return maxLabel, nil
}

func applyRelabel(p *volume.Plane, relabel map[int32]int32) {
	for i, v := range p.Pix {
		if v == 0 {
			continue
		}
		if nv, ok := relabel[v]; ok {
			p.Pix[i] = nv
		}
	}
}
