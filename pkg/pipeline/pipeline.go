// Package pipeline orchestrates the full 2D-to-3D segmentation
// reconciliation: per-axis 2D segmentation through the oracle, the
// cross-view transport stitch (or the simpler IoU stitch), and the
// cleanup passes. The stitching core itself lives in pkg/stitch; this
// package owns the plumbing between the stages.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"

	"cellstitch3d/internal/models"
	"cellstitch3d/pkg/labelio"
	"cellstitch3d/pkg/postprocess"
	"cellstitch3d/pkg/preprocess"
	"cellstitch3d/pkg/segmentation"
	"cellstitch3d/pkg/stitch"
	"cellstitch3d/pkg/volume"
)

// Params holds the pipeline configuration.
type Params struct {
	// Oracle is the 2D instance segmentation model boundary.
	Oracle segmentation.Oracle

	// Method selects "cellstitch" (cross-view transport stitch) or
	// "iou" (single-axis threshold stitch).
	Method string

	// SegMode selects the oracle output channels.
	SegMode models.SegMode

	// Voxel carries the physical pixel size and Z step; its anisotropy
	// drives the orthogonal-plane resampling.
	Voxel models.VoxelSize

	// PStitchingVotes is the orthogonal-agreement threshold for the
	// cellstitch method.
	PStitchingVotes float64

	// IoUThreshold is the inherit threshold for the iou method.
	IoUThreshold float64

	// BleachCorrect enables histogram-based degradation correction
	// before segmentation, with BleachMatch selecting the reference.
	BleachCorrect bool
	BleachMatch   preprocess.MatchMode

	// Filter enables hole filling and small-object pruning with
	// MinSize as the voxel threshold.
	Filter  bool
	MinSize int

	// MinPlaneExtent pads orthogonal planes to at least this many rows
	// before segmentation when positive, for oracles with a minimum
	// input extent.
	MinPlaneExtent int

	// NumCores bounds the worker count of the parallel cleanup steps.
	NumCores int

	// SaveIntermediaryResults writes the raw per-axis masks and a PNG
	// slice sequence of the final result into IntermediaryDir.
	SaveIntermediaryResults bool
	IntermediaryDir         string

	// Verbose enables per-stage progress output.
	Verbose bool
}

// Stats summarizes a finished stitching run.
type Stats struct {
	// NumObjects is the number of distinct labels in the result.
	NumObjects int

	// MaxLabel is the final value of the global label counter.
	MaxLabel int32

	// ForegroundVoxels counts the non-background voxels.
	ForegroundVoxels int

	// MeanObjectSize and StdObjectSize describe the voxel-size
	// distribution of the stitched objects.
	MeanObjectSize float64
	StdObjectSize  float64
}

// Pipeline runs the segmentation and stitching stages over one image.
type Pipeline struct {
	params *Params
	stats  Stats
}

// New creates a pipeline instance with the provided parameters.
func New(params *Params) *Pipeline {
	return &Pipeline{params: params}
}

// Stats returns the summary of the last completed run.
func (pl *Pipeline) Stats() Stats { return pl.stats }

// Run executes the full pipeline over a multi-channel image volume in
// [z][y][x] order and returns the stitched, label-consistent stack. The
// caller receives either a fully finalized stack or an explicit failure;
// there is no partial result.
func (pl *Pipeline) Run(channels []*models.Volume) (*volume.Stack, error) {
	p := pl.params
	if p.Oracle == nil {
		return nil, fmt.Errorf("pipeline: no segmentation oracle configured")
	}

	// Step 1: bleach correction.
	if p.BleachCorrect {
		pl.logf("Step 1: Correcting signal degradation over Z...")
		if err := preprocess.HistogramCorrect(channels, p.BleachMatch); err != nil {
			return nil, fmt.Errorf("pipeline: bleach correction: %w", err)
		}
	}

	// Step 2: segment the YX planes along the Z axis.
	pl.logf("Step 2: Segmenting YX planes (Z-axis)...")
	yxMasks, nuclei, err := segmentation.SegmentStack(p.Oracle, channels, p.Voxel.X, p.SegMode)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	pl.saveMasks("yx_masks", yxMasks)
	if nuclei != nil {
		pl.saveMasks("nuclei_masks", nuclei)
	}

	var stitched *volume.Stack
	switch p.Method {
	case "iou":
		pl.logf("Step 3: Running IoU stitching...")
		maxLabel, err := stitch.StitchByIoU(yxMasks, p.IoUThreshold)
		if err != nil {
			return nil, fmt.Errorf("pipeline: iou stitch: %w", err)
		}
		pl.stats.MaxLabel = maxLabel
		stitched = yxMasks

	case "cellstitch":
		// Steps 3-4: segment the orthogonal views.
		pl.logf("Step 3: Segmenting YZ planes (X-axis)...")
		yzMasks, err := pl.segmentOrthogonal(channels, swapZX)
		if err != nil {
			return nil, fmt.Errorf("pipeline: yz segmentation: %w", err)
		}
		pl.saveMasks("yz_masks", yzMasks)

		pl.logf("Step 4: Segmenting ZX planes (Y-axis)...")
		xzMasks, err := pl.segmentOrthogonal(channels, swapZY)
		if err != nil {
			return nil, fmt.Errorf("pipeline: xz segmentation: %w", err)
		}
		pl.saveMasks("xz_masks", xzMasks)

		// Step 5: the cross-view stitch itself.
		pl.logf("Step 5: Running CellStitch stitching...")
		st := stitch.NewStitcher()
		st.PVotes = p.PStitchingVotes
		st.Verbose = p.Verbose
		maxLabel, err := st.Stitch(yxMasks, yzMasks, xzMasks)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		pl.stats.MaxLabel = maxLabel
		stitched = yxMasks

	default:
		return nil, fmt.Errorf("pipeline: incompatible stitching method %q (supported: \"iou\", \"cellstitch\")", p.Method)
	}

	// Step 6: hole filling and small-object pruning.
	if p.Filter {
		pl.logf("Step 6: Filling holes and removing small masks...")
		if err := postprocess.FillHolesAndPruneSmall(stitched, p.MinSize, p.NumCores); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	// Step 7: keep only cells with a detected nucleus.
	if nuclei != nil {
		pl.logf("Step 7: Filtering cells by nucleus colocalization...")
		stitched, err = postprocess.KeepColocalized(stitched, nuclei)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	// Step 8: oversegmentation repair, only meaningful after the
	// cross-view stitch.
	if p.Method == "cellstitch" {
		pl.logf("Step 8: Correcting oversegmentation...")
		if err := stitch.CorrectOversegParallel(stitched, p.NumCores); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	pl.collectStats(stitched)
	pl.saveSlices("stitched_slices", stitched)
	return stitched, nil
}

// RunPrecomputed runs the stitching and cleanup stages over per-axis
// masks produced by an external segmentation run, skipping the oracle
// entirely. yz, xz and nuclei may be nil when the method does not need
// them. The yx stack is mutated in place and returned unless the nucleus
// filter replaces it.
func (pl *Pipeline) RunPrecomputed(yx, yz, xz, nuclei *volume.Stack) (*volume.Stack, error) {
	p := pl.params

	stitched := yx
	switch p.Method {
	case "iou":
		pl.logf("Step 1: Running IoU stitching...")
		maxLabel, err := stitch.StitchByIoU(yx, p.IoUThreshold)
		if err != nil {
			return nil, fmt.Errorf("pipeline: iou stitch: %w", err)
		}
		pl.stats.MaxLabel = maxLabel

	case "cellstitch":
		if yz == nil || xz == nil {
			return nil, fmt.Errorf("pipeline: cellstitch method requires yz and xz masks")
		}
		pl.logf("Step 1: Running CellStitch stitching...")
		st := stitch.NewStitcher()
		st.PVotes = p.PStitchingVotes
		st.Verbose = p.Verbose
		maxLabel, err := st.Stitch(yx, yz, xz)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		pl.stats.MaxLabel = maxLabel

	default:
		return nil, fmt.Errorf("pipeline: incompatible stitching method %q (supported: \"iou\", \"cellstitch\")", p.Method)
	}

	if p.Filter {
		pl.logf("Step 2: Filling holes and removing small masks...")
		if err := postprocess.FillHolesAndPruneSmall(stitched, p.MinSize, p.NumCores); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	if nuclei != nil {
		pl.logf("Step 3: Filtering cells by nucleus colocalization...")
		var err error
		stitched, err = postprocess.KeepColocalized(stitched, nuclei)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	if p.Method == "cellstitch" {
		pl.logf("Step 4: Correcting oversegmentation...")
		if err := stitch.CorrectOversegParallel(stitched, p.NumCores); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	pl.collectStats(stitched)
	pl.saveSlices("stitched_slices", stitched)
	return stitched, nil
}

// axisSwap reorients a volume or mask stack so the requested orthogonal
// planes become the stacking planes. Both swaps are involutions.
type axisSwap int

const (
	swapZX axisSwap = iota
	swapZY
)

// segmentOrthogonal presents one orthogonal view to the oracle: reorient,
// stretch the embedded Z axis by the anisotropy, optionally pad, segment,
// then undo everything on the mask side with nearest-neighbor lookups.
func (pl *Pipeline) segmentOrthogonal(channels []*models.Volume, dir axisSwap) (*volume.Stack, error) {
	p := pl.params
	anisotropy := p.Voxel.Anisotropy()

	swapped := make([]*models.Volume, len(channels))
	for c, ch := range channels {
		if dir == swapZX {
			swapped[c] = ch.SwapZX()
		} else {
			swapped[c] = ch.SwapZY()
		}
	}
	origH := swapped[0].Height
	origW := swapped[0].Width

	pad := 0
	for c := range swapped {
		if dir == swapZX {
			// Z sits in the plane columns of the ZX-swapped view.
			swapped[c] = preprocess.ScaleWidthLinear(swapped[c], anisotropy)
		} else {
			// Z sits in the plane rows of the ZY-swapped view.
			swapped[c] = preprocess.ScaleHeightLinear(swapped[c], anisotropy)
		}
		if p.MinPlaneExtent > 0 {
			swapped[c], pad = preprocess.PadHeight(swapped[c], p.MinPlaneExtent)
		}
	}

	// Orthogonal views only need the cell channel; nuclei are taken
	// from the YX pass.
	mode := p.SegMode
	if mode == models.ModeNucleiCells {
		mode = models.ModeCells
	}
	masks, _, err := segmentation.SegmentStack(p.Oracle, swapped, p.Voxel.X, mode)
	if err != nil {
		return nil, err
	}

	if pad > 0 {
		masks = preprocess.CropHeight(masks, pad)
	}
	if dir == swapZX {
		masks = preprocess.ScaleWidthNearest(masks, origW)
		return masks.SwapZX(), nil
	}
	masks = preprocess.ScaleHeightNearest(masks, origH)
	return masks.SwapZY(), nil
}

func (pl *Pipeline) collectStats(s *volume.Stack) {
	lbls := s.Labels()
	sizes := make(map[int32]int)
	for _, v := range s.Vox {
		if v != 0 {
			sizes[v]++
		}
	}
	sizeList := make([]float64, 0, len(lbls))
	fg := 0
	for _, lbl := range lbls {
		sizeList = append(sizeList, float64(sizes[lbl]))
		fg += sizes[lbl]
	}
	pl.stats.NumObjects = len(lbls)
	pl.stats.ForegroundVoxels = fg
	if m := s.MaxLabel(); m > pl.stats.MaxLabel {
		pl.stats.MaxLabel = m
	}
	if len(sizeList) > 0 {
		pl.stats.MeanObjectSize = stat.Mean(sizeList, nil)
	}
	if len(sizeList) > 1 {
		pl.stats.StdObjectSize = stat.StdDev(sizeList, nil)
	}
}

func (pl *Pipeline) logf(format string, args ...any) {
	if pl.params.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func (pl *Pipeline) saveMasks(name string, s *volume.Stack) {
	if !pl.params.SaveIntermediaryResults {
		return
	}
	if err := os.MkdirAll(pl.params.IntermediaryDir, 0755); err != nil {
		fmt.Printf("Warning: failed to create intermediary directory: %v\n", err)
		return
	}
	path := filepath.Join(pl.params.IntermediaryDir, name+".csv3d")
	if err := labelio.WriteVolume(path, s); err != nil {
		fmt.Printf("Warning: failed to save %s: %v\n", name, err)
	}
}

func (pl *Pipeline) saveSlices(name string, s *volume.Stack) {
	if !pl.params.SaveIntermediaryResults {
		return
	}
	dir := filepath.Join(pl.params.IntermediaryDir, name)
	if err := labelio.SaveSliceSequence(s, dir); err != nil {
		fmt.Printf("Warning: failed to save %s: %v\n", name, err)
	}
}
