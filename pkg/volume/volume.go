// Package volume provides the label plane and label stack types shared by
// the segmentation, stitching and postprocessing stages. A plane is a 2D
// integer instance-label image where 0 is background; a stack is a
// Z-ordered sequence of planes over the same grid, stored as one
// contiguous row-major slab so that orthogonal reslicing and per-plane
// views are cheap.
package volume

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDimensionMismatch is returned when two planes or stacks that must
// share a shape do not.
var ErrDimensionMismatch = errors.New("volume: dimension mismatch")

// Plane is a single 2D integer label image. Pix is row-major with H rows
// and W columns. Label 0 is background and never denotes a real object.
type Plane struct {
	H, W int
	Pix  []int32
}

// NewPlane allocates an all-background plane of the given shape.
func NewPlane(h, w int) *Plane {
	return &Plane{H: h, W: w, Pix: make([]int32, h*w)}
}

// At returns the label at row y, column x.
func (p *Plane) At(y, x int) int32 { return p.Pix[y*p.W+x] }

// Set writes the label at row y, column x.
func (p *Plane) Set(y, x int, v int32) { p.Pix[y*p.W+x] = v }

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	q := NewPlane(p.H, p.W)
	copy(q.Pix, p.Pix)
	return q
}

// SameShape returns ErrDimensionMismatch unless q has the same dimensions.
func (p *Plane) SameShape(q *Plane) error {
	if p.H != q.H || p.W != q.W {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, p.H, p.W, q.H, q.W)
	}
	return nil
}

// MaxLabel returns the largest label in the plane, 0 if empty.
func (p *Plane) MaxLabel() int32 {
	var max int32
	for _, v := range p.Pix {
		if v > max {
			max = v
		}
	}
	return max
}

// NonzeroCount returns the number of foreground pixels.
func (p *Plane) NonzeroCount() int {
	n := 0
	for _, v := range p.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Labels returns the sorted set of nonzero labels present in the plane.
func (p *Plane) Labels() []int32 {
	return sortedLabels(p.Pix)
}

// Stack is a Z-ordered sequence of label planes over a common grid,
// stored as a single slab indexed [z][y][x].
type Stack struct {
	D, H, W int
	Vox     []int32
}

// NewStack allocates an all-background stack of the given shape.
func NewStack(d, h, w int) *Stack {
	return &Stack{D: d, H: h, W: w, Vox: make([]int32, d*h*w)}
}

// FromPlanes assembles a stack from planes of identical shape.
func FromPlanes(planes []*Plane) (*Stack, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("%w: no planes", ErrDimensionMismatch)
	}
	h, w := planes[0].H, planes[0].W
	s := NewStack(len(planes), h, w)
	for z, p := range planes {
		if err := planes[0].SameShape(p); err != nil {
			return nil, fmt.Errorf("plane %d: %w", z, err)
		}
		copy(s.Vox[z*h*w:(z+1)*h*w], p.Pix)
	}
	return s, nil
}

// At returns the label at slice z, row y, column x.
func (s *Stack) At(z, y, x int) int32 { return s.Vox[(z*s.H+y)*s.W+x] }

// Set writes the label at slice z, row y, column x.
func (s *Stack) Set(z, y, x int, v int32) { s.Vox[(z*s.H+y)*s.W+x] = v }

// Plane returns a view of slice z sharing the stack's backing array.
// Writes through the view mutate the stack.
func (s *Stack) Plane(z int) *Plane {
	n := s.H * s.W
	return &Plane{H: s.H, W: s.W, Pix: s.Vox[z*n : (z+1)*n : (z+1)*n]}
}

// SetPlane copies the contents of p into slice z.
func (s *Stack) SetPlane(z int, p *Plane) error {
	if p.H != s.H || p.W != s.W {
		return fmt.Errorf("%w: plane %dx%d into stack %dx%d", ErrDimensionMismatch, p.H, p.W, s.H, s.W)
	}
	n := s.H * s.W
	copy(s.Vox[z*n:(z+1)*n], p.Pix)
	return nil
}

// Clone returns a deep copy of the stack.
func (s *Stack) Clone() *Stack {
	t := NewStack(s.D, s.H, s.W)
	copy(t.Vox, s.Vox)
	return t
}

// SameShape returns ErrDimensionMismatch unless t has the same dimensions.
func (s *Stack) SameShape(t *Stack) error {
	if s.D != t.D || s.H != t.H || s.W != t.W {
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d",
			ErrDimensionMismatch, s.D, s.H, s.W, t.D, t.H, t.W)
	}
	return nil
}

// MaxLabel returns the largest label anywhere in the stack, 0 if empty.
func (s *Stack) MaxLabel() int32 {
	var max int32
	for _, v := range s.Vox {
		if v > max {
			max = v
		}
	}
	return max
}

// NonzeroCount returns the number of foreground voxels.
func (s *Stack) NonzeroCount() int {
	n := 0
	for _, v := range s.Vox {
		if v != 0 {
			n++
		}
	}
	return n
}

// Labels returns the sorted set of nonzero labels present in the stack.
func (s *Stack) Labels() []int32 {
	return sortedLabels(s.Vox)
}

// SwapZX returns a new stack with the Z and X axes exchanged, so that the
// planes of the result are the YZ planes of s indexed by X. The operation
// is an involution: applying it to the result recovers s.
func (s *Stack) SwapZX() *Stack {
	t := NewStack(s.W, s.H, s.D)
	for z := 0; z < s.D; z++ {
		for y := 0; y < s.H; y++ {
			row := s.Vox[(z*s.H+y)*s.W:]
			for x := 0; x < s.W; x++ {
				t.Vox[(x*t.H+y)*t.W+z] = row[x]
			}
		}
	}
	return t
}

// SwapZY returns a new stack with the Z and Y axes exchanged, so that the
// planes of the result are the ZX planes of s indexed by Y. The operation
// is an involution.
func (s *Stack) SwapZY() *Stack {
	t := NewStack(s.H, s.D, s.W)
	for z := 0; z < s.D; z++ {
		for y := 0; y < s.H; y++ {
			copy(t.Vox[(y*t.H+z)*t.W:(y*t.H+z+1)*t.W], s.Vox[(z*s.H+y)*s.W:(z*s.H+y+1)*s.W])
		}
	}
	return t
}

func sortedLabels(pix []int32) []int32 {
	seen := make(map[int32]struct{})
	for _, v := range pix {
		if v != 0 {
			seen[v] = struct{}{}
		}
	}
	lbls := make([]int32, 0, len(seen))
	for v := range seen {
		lbls = append(lbls, v)
	}
	sort.Slice(lbls, func(i, j int) bool { return lbls[i] < lbls[j] })
	return lbls
}
