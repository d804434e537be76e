package stitch

import (
	"errors"

	"cellstitch3d/pkg/volume"
)

// ErrDimensionMismatch is returned when two planes that are compared or
// stitched do not share a shape. It aliases the volume package sentinel so
// callers can check either.
var ErrDimensionMismatch = volume.ErrDimensionMismatch

// ErrEmptyStack is returned when no non-empty frame exists anywhere in the
// input stack. Stitching an all-background volume has no defined result.
var ErrEmptyStack = errors.New("stitch: no non-empty frame in stack")

// ErrInfeasibleTransport is returned when a pairwise match is attempted
// between frames where one side carries zero label mass. This indicates an
// upstream invariant violation: callers must skip empty frames before
// requesting a transport plan.
var ErrInfeasibleTransport = errors.New("stitch: infeasible transport between frames")
