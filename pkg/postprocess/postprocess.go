// Package postprocess cleans up a stitched label volume: it fills
// enclosed holes inside each object, discards objects below a minimum
// size, and optionally restricts the result to cells colocalized with a
// nucleus mask. All operations relabel compactly so downstream consumers
// see dense label ids.
package postprocess

import (
	"fmt"
	"runtime"
	"sort"

	"cellstitch3d/pkg/volume"
)

// DefaultMinSize is the default minimum voxel count per object.
const DefaultMinSize = 15

// FillHolesAndPruneSmall fills 2D holes in every mask slice by slice and
// removes masks smaller than minSize voxels, relabeling the survivors
// densely from 1. Set minSize to -1 to keep small masks. The per-label
// hole filling is independent between labels and fans out across workers;
// reads go against a snapshot and the relabeling write-back is
// sequential, so the result is deterministic.
func FillHolesAndPruneSmall(masks *volume.Stack, minSize, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}

	if minSize > 0 {
		pruneSmall(masks, minSize)
	}

	lbls := masks.Labels()
	if len(lbls) == 0 {
		return nil
	}
	snapshot := masks.Clone()

	type fillResult struct {
		idx    int
		voxels []int
		err    error
	}
	tasks := make(chan int)
	results := make(chan fillResult)

	for w := 0; w < numWorkers; w++ {
		go func() {
			for idx := range tasks {
				voxels, err := filledVoxels(snapshot, lbls[idx])
				results <- fillResult{idx: idx, voxels: voxels, err: err}
			}
		}()
	}
	go func() {
		for i := range lbls {
			tasks <- i
		}
		close(tasks)
	}()

	filled := make([][]int, len(lbls))
	for range lbls {
		res := <-results
		if res.err != nil {
			return fmt.Errorf("postprocess: label %d: %w", lbls[res.idx], res.err)
		}
		filled[res.idx] = res.voxels
	}

	// Dense relabel in ascending original-label order.
	for i := range masks.Vox {
		masks.Vox[i] = 0
	}
	for j, voxels := range filled {
		for _, p := range voxels {
			masks.Vox[p] = int32(j + 1)
		}
	}
	return nil
}

func pruneSmall(masks *volume.Stack, minSize int) {
	counts := make(map[int32]int)
	for _, v := range masks.Vox {
		if v != 0 {
			counts[v]++
		}
	}
	small := make(map[int32]bool)
	for lbl, n := range counts {
		if n < minSize {
			small[lbl] = true
		}
	}
	if len(small) == 0 {
		return
	}
	for i, v := range masks.Vox {
		if small[v] {
			masks.Vox[i] = 0
		}
	}
}

// filledVoxels returns the voxel indices of the label plus any pixels
// enclosed by it within each slice of its bounding box. A hole is a
// non-label region with no path to the bounding-box border.
func filledVoxels(masks *volume.Stack, lbl int32) ([]int, error) {
	z0, z1, y0, y1, x0, x1, found := boundingBox(masks, lbl)
	if !found {
		return nil, nil
	}
	var voxels []int
	bh, bw := y1-y0+1, x1-x0+1
	outside := make([]bool, bh*bw)
	queue := make([]int, 0, bh*bw)

	for z := z0; z <= z1; z++ {
		for i := range outside {
			outside[i] = false
		}
		queue = queue[:0]

		// Seed the flood fill from every non-label border pixel of
		// the bounding box.
		for by := 0; by < bh; by++ {
			for bx := 0; bx < bw; bx++ {
				if by != 0 && by != bh-1 && bx != 0 && bx != bw-1 {
					continue
				}
				if masks.At(z, y0+by, x0+bx) != lbl {
					outside[by*bw+bx] = true
					queue = append(queue, by*bw+bx)
				}
			}
		}
		for len(queue) > 0 {
			p := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			by, bx := p/bw, p%bw
			for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				ny, nx := by+d[0], bx+d[1]
				if ny < 0 || ny >= bh || nx < 0 || nx >= bw {
					continue
				}
				np := ny*bw + nx
				if outside[np] || masks.At(z, y0+ny, x0+nx) == lbl {
					continue
				}
				outside[np] = true
				queue = append(queue, np)
			}
		}

		// Everything not reachable from the border belongs to the
		// filled mask: the label itself plus its enclosed holes.
		for by := 0; by < bh; by++ {
			for bx := 0; bx < bw; bx++ {
				if masks.At(z, y0+by, x0+bx) == lbl || !outside[by*bw+bx] {
					voxels = append(voxels, ((z*masks.H)+y0+by)*masks.W+x0+bx)
				}
			}
		}
	}
	sort.Ints(voxels)
	return voxels, nil
}

func boundingBox(masks *volume.Stack, lbl int32) (z0, z1, y0, y1, x0, x1 int, found bool) {
	z0, y0, x0 = masks.D, masks.H, masks.W
	z1, y1, x1 = -1, -1, -1
	for z := 0; z < masks.D; z++ {
		for y := 0; y < masks.H; y++ {
			for x := 0; x < masks.W; x++ {
				if masks.At(z, y, x) != lbl {
					continue
				}
				if z < z0 {
					z0 = z
				}
				if z > z1 {
					z1 = z
				}
				if y < y0 {
					y0 = y
				}
				if y > y1 {
					y1 = y
				}
				if x < x0 {
					x0 = x
				}
				if x > x1 {
					x1 = x
				}
			}
		}
	}
	return z0, z1, y0, y1, x0, x1, z1 >= 0
}

// KeepColocalized returns a fresh stack holding only the cells that
// overlap the nucleus mask anywhere in the volume, relabeled densely from
// 1 in ascending original-label order. Cells without a detected nucleus
// are dropped entirely.
func KeepColocalized(cells, nuclei *volume.Stack) (*volume.Stack, error) {
	if err := cells.SameShape(nuclei); err != nil {
		return nil, fmt.Errorf("postprocess: nuclei mask: %w", err)
	}
	hasNucleus := make(map[int32]bool)
	for i, v := range cells.Vox {
		if v != 0 && nuclei.Vox[i] != 0 {
			hasNucleus[v] = true
		}
	}
	keep := make([]int32, 0, len(hasNucleus))
	for lbl := range hasNucleus {
		keep = append(keep, lbl)
	}
	sort.Slice(keep, func(i, j int) bool { return keep[i] < keep[j] })
	relabel := make(map[int32]int32, len(keep))
	for i, lbl := range keep {
		relabel[lbl] = int32(i + 1)
	}

	out := volume.NewStack(cells.D, cells.H, cells.W)
	for i, v := range cells.Vox {
		if nv, ok := relabel[v]; ok {
			out.Vox[i] = nv
		}
	}
	return out, nil
}
