package stitch

import (
	"cellstitch3d/pkg/volume"
)

// Frame is a read-only view over one 2D label plane. Labels are arbitrary
// positive integers at creation; they become globally meaningful only
// after the stitching pass has relabeled them.
type Frame struct {
	Mask *volume.Plane
}

// NewFrame wraps a label plane. The plane is not copied.
func NewFrame(mask *volume.Plane) *Frame {
	return &Frame{Mask: mask}
}

// Labels returns the sorted nonzero labels present in the frame.
func (f *Frame) Labels() []int32 {
	return f.Mask.Labels()
}

// IsEmpty reports whether the frame contains no foreground pixel.
func (f *Frame) IsEmpty() bool {
	for _, v := range f.Mask.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// MaxLabel returns the largest label in the frame, 0 if empty.
func (f *Frame) MaxLabel() int32 {
	return f.Mask.MaxLabel()
}
