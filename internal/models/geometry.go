package models

import "fmt"

// Axis identifies one of the three scan axes of a volume. The stitching
// axis is always Z; the X and Y axes provide the two auxiliary orthogonal
// segmentations used as corroborating evidence during stitching.
type Axis int

const (
	AxisZ Axis = iota
	AxisY
	AxisX
)

// String returns the conventional lower-case axis name.
func (a Axis) String() string {
	switch a {
	case AxisZ:
		return "z"
	case AxisY:
		return "y"
	case AxisX:
		return "x"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// VoxelSize is the physical size of a voxel in microns per pixel.
type VoxelSize struct {
	// X and Y are the in-plane pixel sizes. They are assumed equal for
	// the anisotropy calculation; X is used.
	X, Y float64

	// Z is the step between consecutive slices.
	Z float64
}

// Anisotropy returns the ratio between the slice step and the in-plane
// pixel size. A value above 1 means the volume is coarser along Z and the
// orthogonal planes must be upscaled before segmentation.
func (v VoxelSize) Anisotropy() float64 {
	if v.X <= 0 || v.Z <= 0 {
		return 1
	}
	return v.Z / v.X
}

// SegMode selects which instance channels the segmentation oracle returns.
type SegMode string

const (
	// ModeNuclei returns nuclear masks only.
	ModeNuclei SegMode = "nuclei"

	// ModeCells returns all cell masks, including cells without a
	// detected nucleus.
	ModeCells SegMode = "cells"

	// ModeNucleiCells returns cell masks restricted to cells with a
	// detected nucleus, plus the nuclear masks themselves.
	ModeNucleiCells SegMode = "nuclei_cells"
)

// Valid reports whether m is one of the supported segmentation modes.
func (m SegMode) Valid() bool {
	switch m {
	case ModeNuclei, ModeCells, ModeNucleiCells:
		return true
	}
	return false
}
