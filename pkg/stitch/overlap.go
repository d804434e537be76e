package stitch

import (
	"fmt"

	"cellstitch3d/pkg/volume"
)

// OverlapMatrix is a pixelwise contingency table between two label planes
// x and y: entry [i][j] counts the pixels where x carries label i and y
// carries label j. Row 0 and column 0 belong to background. The table is
// built fresh per slice pair and discarded afterwards.
type OverlapMatrix struct {
	Rows, Cols int
	counts     []int64
}

// Overlap computes the contingency table between two planes of identical
// shape by scatter-accumulation over all pixels. The table has dimensions
// (max(x)+1) x (max(y)+1).
func Overlap(x, y *volume.Plane) (*OverlapMatrix, error) {
	if err := x.SameShape(y); err != nil {
		return nil, fmt.Errorf("overlap: %w", err)
	}
	rows := int(x.MaxLabel()) + 1
	cols := int(y.MaxLabel()) + 1
	ov := &OverlapMatrix{
		Rows:   rows,
		Cols:   cols,
		counts: make([]int64, rows*cols),
	}
	for p, xv := range x.Pix {
		ov.counts[int(xv)*cols+int(y.Pix[p])]++
	}
	return ov, nil
}

// At returns the co-occurrence count for labels i (first plane) and j
// (second plane). Labels outside the table count as zero overlap.
func (ov *OverlapMatrix) At(i, j int32) int64 {
	if int(i) >= ov.Rows || int(j) >= ov.Cols {
		return 0
	}
	return ov.counts[int(i)*ov.Cols+int(j)]
}

// RowSum returns the total pixel count of label i in the first plane.
func (ov *OverlapMatrix) RowSum(i int32) int64 {
	if int(i) >= ov.Rows {
		return 0
	}
	var sum int64
	row := ov.counts[int(i)*ov.Cols : (int(i)+1)*ov.Cols]
	for _, c := range row {
		sum += c
	}
	return sum
}

// ColSum returns the total pixel count of label j in the second plane.
func (ov *OverlapMatrix) ColSum(j int32) int64 {
	if int(j) >= ov.Cols {
		return 0
	}
	var sum int64
	for i := 0; i < ov.Rows; i++ {
		sum += ov.counts[i*ov.Cols+int(j)]
	}
	return sum
}

// ArgmaxCol returns the first-plane label with the largest overlap against
// second-plane label j, ties broken by the smaller label. Background (row
// 0) participates; callers that must not merge into background check the
// result themselves.
func (ov *OverlapMatrix) ArgmaxCol(j int32) int32 {
	var best int32
	var bestCount int64 = -1
	for i := 0; i < ov.Rows; i++ {
		if c := ov.counts[i*ov.Cols+int(j)]; c > bestCount {
			bestCount = c
			best = int32(i)
		}
	}
	return best
}
