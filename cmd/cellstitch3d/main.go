package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"
	"time"

	"cellstitch3d/pkg/config"
	"cellstitch3d/pkg/labelio"
	"cellstitch3d/pkg/pipeline"
	"cellstitch3d/pkg/volume"
)

func main() {
	// Parse command line arguments
	yxPath := flag.String("yx", "", "Label volume with the per-slice YX masks (required)")
	yzPath := flag.String("yz", "", "Label volume with the YZ orthogonal masks (cellstitch method)")
	xzPath := flag.String("xz", "", "Label volume with the XZ orthogonal masks (cellstitch method)")
	nucleiPath := flag.String("nuclei", "", "Optional nucleus mask volume for colocalization filtering")
	outputPath := flag.String("output", "cellstitch_masks.csv3d", "Output label volume filename")
	configPath := flag.String("config", "", "Optional YAML configuration file")
	method := flag.String("method", "", "Stitching method: \"iou\" or \"cellstitch\" (overrides config)")
	votes := flag.Float64("votes", 0, "Orthogonal-agreement threshold in (0,1] (overrides config)")
	minSize := flag.Int("min-size", 0, "Minimum object size in voxels (overrides config)")
	numCores := flag.Int("cores", runtime.NumCPU(), "Number of CPU cores to use for postprocessing")
	slicesDir := flag.String("slices-dir", "", "Directory to save colored PNG slices of the result")
	verbose := flag.Bool("verbose", false, "Verbose progress output")
	flag.Parse()

	if *yxPath == "" {
		flag.Usage()
		log.Fatal("missing required -yx label volume")
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *method != "" {
		cfg.Stitching.Method = *method
	}
	if *votes > 0 {
		cfg.Stitching.PStitchingVotes = *votes
	}
	if *minSize != 0 {
		cfg.Filtering.MinSize = *minSize
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("CELLSTITCH3D: CROSS-VIEW LABEL RECONCILIATION")
	fmt.Println("================================")

	yx, err := labelio.ReadVolume(*yxPath)
	if err != nil {
		log.Fatalf("Failed to read YX masks: %v", err)
	}
	var yz, xz, nuclei *volume.Stack
	if cfg.Stitching.Method == "cellstitch" {
		if *yzPath == "" || *xzPath == "" {
			log.Fatal("cellstitch method requires -yz and -xz mask volumes")
		}
		if yz, err = labelio.ReadVolume(*yzPath); err != nil {
			log.Fatalf("Failed to read YZ masks: %v", err)
		}
		if xz, err = labelio.ReadVolume(*xzPath); err != nil {
			log.Fatalf("Failed to read XZ masks: %v", err)
		}
	}
	if *nucleiPath != "" {
		if nuclei, err = labelio.ReadVolume(*nucleiPath); err != nil {
			log.Fatalf("Failed to read nucleus masks: %v", err)
		}
	}

	params := &pipeline.Params{
		Method:                  cfg.Stitching.Method,
		PStitchingVotes:         cfg.Stitching.PStitchingVotes,
		IoUThreshold:            cfg.Stitching.IoUThreshold,
		Filter:                  cfg.Filtering.Enabled,
		MinSize:                 cfg.Filtering.MinSize,
		NumCores:                *numCores,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         "cellstitch_intermediary",
		Verbose:                 cfg.Output.Verbose,
	}
	pl := pipeline.New(params)

	fmt.Printf("Stitching %d slices of %dx%d with method %q...\n",
		yx.D, yx.H, yx.W, cfg.Stitching.Method)
	startTime := time.Now()
	stitched, err := pl.RunPrecomputed(yx, yz, xz, nuclei)
	if err != nil {
		log.Fatalf("Stitching failed: %v", err)
	}
	processingTime := time.Since(startTime)

	if err := labelio.WriteVolume(*outputPath, stitched); err != nil {
		log.Fatalf("Failed to write output volume: %v", err)
	}

	stats := pl.Stats()
	fmt.Printf("\nStitching completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output label volume saved to: %s\n\n", *outputPath)
	fmt.Printf("Result summary:\n")
	fmt.Printf("===============\n")
	fmt.Printf("Objects: %d\n", stats.NumObjects)
	fmt.Printf("Max label: %d\n", stats.MaxLabel)
	fmt.Printf("Foreground voxels: %d\n", stats.ForegroundVoxels)
	fmt.Printf("Mean object size: %.1f voxels\n", stats.MeanObjectSize)
	fmt.Printf("Object size stddev: %.1f voxels\n", stats.StdObjectSize)

	if *slicesDir != "" {
		fmt.Printf("\nSaving colored slices to: %s\n", *slicesDir)
		if err := labelio.SaveSliceSequence(stitched, *slicesDir); err != nil {
			log.Printf("Warning: failed to save slices: %v", err)
		}
	}
}
