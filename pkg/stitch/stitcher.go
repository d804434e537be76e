package stitch

import (
	"fmt"

	"cellstitch3d/pkg/volume"
)

// Stitcher walks a Z-ordered label stack and reconciles every consecutive
// pair of non-empty frames, using two orthogonal mask stacks as
// corroborating evidence. The stack is mutated in place; each frame's
// relabeling depends on the previous frame already being finalized, so
// the walk is strictly sequential.
type Stitcher struct {
	// PVotes is the minimum orthogonal-agreement fraction required to
	// accept a transport-proposed merge, in (0,1].
	PVotes float64

	// Verbose enables per-pair progress output.
	Verbose bool
}

// NewStitcher returns a stitcher with the default voting threshold.
func NewStitcher() *Stitcher {
	return &Stitcher{PVotes: DefaultPVotes}
}

// DefaultPVotes is the default orthogonal-agreement supermajority.
const DefaultPVotes = 0.75

// Stitch runs the sequential pass over xy, reading the yz and xz stacks
// as orthogonal evidence. All three stacks must share the xy shape. The
// final value of the global label counter is returned; every label minted
// during the pass was strictly greater than the counter at the moment of
// minting, so labels are unique across the whole stack.
//
// Empty frames are skipped without breaking continuity: the next
// non-empty frame stitches directly against the last finalized one. An
// all-empty stack fails with ErrEmptyStack before any mutation.
func (st *Stitcher) Stitch(xy, yz, xz *volume.Stack) (int32, error) {
	if err := xy.SameShape(yz); err != nil {
		return 0, fmt.Errorf("stitch: yz stack: %w", err)
	}
	if err := xy.SameShape(xz); err != nil {
		return 0, fmt.Errorf("stitch: xz stack: %w", err)
	}

	prev := 0
	for prev < xy.D && NewFrame(xy.Plane(prev)).IsEmpty() {
		prev++
	}
	if prev == xy.D {
		return 0, ErrEmptyStack
	}

	maxLabel := xy.MaxLabel()
	for curr := prev + 1; curr < xy.D; curr++ {
		if NewFrame(xy.Plane(curr)).IsEmpty() {
			continue
		}
		if st.Verbose {
			fmt.Printf("===Stitching frame %d with frame %d ...===\n", curr, prev)
		}

		yzNot, err := NotStitched(yz.Plane(prev), yz.Plane(curr))
		if err != nil {
			return 0, fmt.Errorf("stitch pair (%d,%d): %w", prev, curr, err)
		}
		xzNot, err := NotStitched(xz.Plane(prev), xz.Plane(curr))
		if err != nil {
			return 0, fmt.Errorf("stitch pair (%d,%d): %w", prev, curr, err)
		}

		fp, err := NewFramePair(xy.Plane(prev), xy.Plane(curr), maxLabel)
		if err != nil {
			return 0, fmt.Errorf("stitch pair (%d,%d): %w", prev, curr, err)
		}
		relabeled, _, err := fp.Stitch(yzNot, xzNot, st.PVotes)
		if err != nil {
			return 0, fmt.Errorf("stitch pair (%d,%d): %w", prev, curr, err)
		}
		if err := xy.SetPlane(curr, relabeled); err != nil {
			return 0, fmt.Errorf("stitch pair (%d,%d): %w", prev, curr, err)
		}
		maxLabel = fp.MaxLabel
		prev = curr
	}
	return maxLabel, nil
}
