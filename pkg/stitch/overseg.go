package stitch

import (
	"fmt"
	"runtime"
	"sort"

	"cellstitch3d/pkg/volume"
)

// CorrectOverseg repairs oversegmentation in a finalized stack: a label
// occupying exactly one Z slice is a strong signal of a spurious split,
// since real objects span multiple slices. Every such label is reassigned
// to the label it touches most in the single available neighbor slice
// (z-1, or z+1 for the first slice). When the dominant neighbor is
// background the label has no eligible merge target and is left alone.
//
// Labels are grouped by slice so each neighbor-pair contingency table is
// computed once regardless of how many labels it resolves. The groups are
// independent, so their tables are computed across workers against a
// snapshot of the stack; write-backs are applied serially in ascending Z.
// The pass is idempotent up to the documented residual case of adjacent
// single-slice labels.
func CorrectOverseg(masks *volume.Stack) error {
	return CorrectOversegParallel(masks, runtime.NumCPU())
}

// CorrectOversegParallel is CorrectOverseg with an explicit worker count.
func CorrectOversegParallel(masks *volume.Stack, numWorkers int) error {
	if masks.D < 2 {
		// A single-slice stack has no adjacent slice to merge into.
		return nil
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	groups := singleSliceLabels(masks)
	if len(groups) == 0 {
		return nil
	}
	zs := make([]int, 0, len(groups))
	for z := range groups {
		zs = append(zs, z)
	}
	sort.Ints(zs)

	snapshot := masks.Clone()

	type groupResult struct {
		z       int
		relabel map[int32]int32
		err     error
	}
	tasks := make(chan int)
	results := make(chan groupResult)

	for w := 0; w < numWorkers; w++ {
		go func() {
			for z := range tasks {
				relabel, err := groupRelabeling(snapshot, z, groups[z])
				results <- groupResult{z: z, relabel: relabel, err: err}
			}
		}()
	}
	go func() {
		for _, z := range zs {
			tasks <- z
		}
		close(tasks)
	}()

	collected := make(map[int]map[int32]int32, len(zs))
	for range zs {
		res := <-results
		if res.err != nil {
			return fmt.Errorf("overseg correction at slice %d: %w", res.z, res.err)
		}
		collected[res.z] = res.relabel
	}

	// Serialized write-back, one slice at a time, in Z order.
	for _, z := range zs {
		relabel := collected[z]
		if len(relabel) == 0 {
			continue
		}
		plane := masks.Plane(z)
		for p, v := range plane.Pix {
			if nv, ok := relabel[v]; ok {
				plane.Pix[p] = nv
			}
		}
	}
	return nil
}

// singleSliceLabels finds every label with depth exactly 1 and groups the
// labels by the slice they occupy.
func singleSliceLabels(masks *volume.Stack) map[int][]int32 {
	firstZ := make(map[int32]int)
	depth := make(map[int32]int)
	for z := 0; z < masks.D; z++ {
		for _, v := range masks.Plane(z).Labels() {
			if _, seen := firstZ[v]; !seen {
				firstZ[v] = z
			}
			depth[v]++
		}
	}
	groups := make(map[int][]int32)
	for lbl, d := range depth {
		if d == 1 {
			z := firstZ[lbl]
			groups[z] = append(groups[z], lbl)
		}
	}
	for z := range groups {
		sort.Slice(groups[z], func(i, j int) bool { return groups[z][i] < groups[z][j] })
	}
	return groups
}

// groupRelabeling computes, for the single-slice labels of slice z, the
// neighbor label each should take: the mode of spatial contact with the
// reference slice. Labels whose dominant contact is background are
// omitted from the result.
func groupRelabeling(masks *volume.Stack, z int, lbls []int32) (map[int32]int32, error) {
	ref := z - 1
	if z == 0 {
		ref = z + 1
	}
	ov, err := Overlap(masks.Plane(ref), masks.Plane(z))
	if err != nil {
		return nil, err
	}
	relabel := make(map[int32]int32, len(lbls))
	for _, lbl := range lbls {
		if target := ov.ArgmaxCol(lbl); target != 0 {
			relabel[lbl] = target
		}
	}
	return relabel, nil
}
