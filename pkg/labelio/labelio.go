// Package labelio reads and writes labeled integer volumes. The on-disk
// format is deliberately minimal: a short header with the volume shape
// followed by the raw little-endian label data. The stitching pipeline's
// only contract with persistence is "an integer label volume of the
// stack's shape", so anything that round-trips that is acceptable.
package labelio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"cellstitch3d/pkg/volume"
)

// magic identifies a label volume file.
var magic = [4]byte{'C', 'S', '3', 'D'}

type header struct {
	Magic   [4]byte
	Version uint32
	D, H, W uint32
}

const formatVersion = 1

// WriteVolume writes the stack to path, creating or truncating the file.
func WriteVolume(path string, s *volume.Stack) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("labelio: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	hdr := header{
		Magic:   magic,
		Version: formatVersion,
		D:       uint32(s.D),
		H:       uint32(s.H),
		W:       uint32(s.W),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("labelio: write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, s.Vox); err != nil {
		return fmt.Errorf("labelio: write voxels: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("labelio: %w", err)
	}
	return nil
}

// ReadVolume reads a label volume written by WriteVolume.
func ReadVolume(path string) (*volume.Stack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("labelio: %w", err)
	}
	defer f.Close()
	return readVolume(bufio.NewReader(f))
}

func readVolume(r io.Reader) (*volume.Stack, error) {
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("labelio: read header: %w", err)
	}
	if hdr.Magic != magic {
		return nil, fmt.Errorf("labelio: not a label volume file")
	}
	if hdr.Version != formatVersion {
		return nil, fmt.Errorf("labelio: unsupported version %d", hdr.Version)
	}
	s := volume.NewStack(int(hdr.D), int(hdr.H), int(hdr.W))
	if err := binary.Read(r, binary.LittleEndian, s.Vox); err != nil {
		return nil, fmt.Errorf("labelio: read voxels: %w", err)
	}
	return s, nil
}
