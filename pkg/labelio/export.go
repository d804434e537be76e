package labelio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"cellstitch3d/pkg/volume"
)

// LabelImage renders one label plane as a color image, background black
// and every label a deterministic color derived from its identity, so
// the same object keeps the same color across slices and runs.
func LabelImage(p *volume.Plane) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, p.W, p.H))
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			img.Set(x, y, labelColor(p.At(y, x)))
		}
	}
	return img
}

// labelColor hashes a label into a stable, reasonably bright color.
func labelColor(lbl int32) color.RGBA {
	if lbl == 0 {
		return color.RGBA{A: 255}
	}
	h := uint32(lbl) * 2654435761 // Knuth multiplicative hash
	r := uint8(h>>24) | 0x40
	g := uint8(h>>16) | 0x40
	b := uint8(h>>8) | 0x40
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// SaveSliceSequence writes every Z slice of the stack as a PNG into dir,
// numbered by slice index. Useful for eyeballing a stitched result
// without a volume viewer.
func SaveSliceSequence(s *volume.Stack, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("labelio: %w", err)
	}
	for z := 0; z < s.D; z++ {
		name := filepath.Join(dir, fmt.Sprintf("%03d.png", z))
		if err := savePNG(name, LabelImage(s.Plane(z))); err != nil {
			return fmt.Errorf("labelio: slice %d: %w", z, err)
		}
	}
	return nil
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
