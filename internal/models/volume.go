package models

// Volume is a single-channel 3D intensity volume as a 1D array in
// row-major [z][y][x] order. Multi-channel images are handled as a slice
// of Volumes, one per channel. The stitching core never inspects
// intensity values; Volumes exist only on the preprocessing and
// segmentation side of the pipeline.
type Volume struct {
	// Data is the voxel intensity data.
	Data []float64

	// Width, Height and Depth are the dimensions of the volume in
	// voxels.
	Width, Height, Depth int

	// Voxel is the physical size of each voxel in microns.
	Voxel VoxelSize
}

// NewVolume allocates a zero-filled volume of the given shape.
func NewVolume(depth, height, width int) *Volume {
	return &Volume{
		Data:   make([]float64, depth*height*width),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Plane returns the z-th plane as a view into the backing array.
func (v *Volume) Plane(z int) []float64 {
	n := v.Height * v.Width
	return v.Data[z*n : (z+1)*n : (z+1)*n]
}

// At returns the intensity at slice z, row y, column x.
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[(z*v.Height+y)*v.Width+x]
}

// Set writes the intensity at slice z, row y, column x.
func (v *Volume) Set(z, y, x int, val float64) {
	v.Data[(z*v.Height+y)*v.Width+x] = val
}

// SwapZX returns a new volume with the Z and X axes exchanged, used to
// present YZ planes to the per-axis segmentation. The operation is an
// involution.
func (v *Volume) SwapZX() *Volume {
	t := NewVolume(v.Width, v.Height, v.Depth)
	t.Voxel = VoxelSize{X: v.Voxel.Z, Y: v.Voxel.Y, Z: v.Voxel.X}
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			row := v.Data[(z*v.Height+y)*v.Width:]
			for x := 0; x < v.Width; x++ {
				t.Data[(x*t.Height+y)*t.Width+z] = row[x]
			}
		}
	}
	return t
}

// SwapZY returns a new volume with the Z and Y axes exchanged, used to
// present ZX planes to the per-axis segmentation. The operation is an
// involution.
func (v *Volume) SwapZY() *Volume {
	t := NewVolume(v.Height, v.Depth, v.Width)
	t.Voxel = VoxelSize{X: v.Voxel.X, Y: v.Voxel.Z, Z: v.Voxel.Y}
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			copy(t.Data[(y*t.Height+z)*t.Width:(y*t.Height+z+1)*t.Width],
				v.Data[(z*v.Height+y)*v.Width:(z*v.Height+y+1)*v.Width])
		}
	}
	return t
}
