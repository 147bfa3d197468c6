package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"path/filepath"

	"github.com/banshee-data/sphericalharmonics/internal/fsutil"
	"github.com/banshee-data/sphericalharmonics/internal/harmonic"
)

// FileName is the deterministic output name for idx.
func FileName(idx harmonic.Index) string {
	return fmt.Sprintf("sphericalharmonic-%d_%d.png", idx.L, idx.M)
}

// PNGEncoder writes each image as a lossless PNG into Dir. Opaque RGBA
// buffers are stored as 8-bit-per-channel truecolour. Files are written
// through FileSystem.WriteFile, which is atomic on the OS filesystem.
type PNGEncoder struct {
	FS          fsutil.FileSystem
	Dir         string
	Compression png.CompressionLevel
}

// Encode implements Encoder.
func (e *PNGEncoder) Encode(ctx context.Context, img *Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.Dir != "" {
		if err := e.FS.MkdirAll(e.Dir, 0755); err != nil {
			return "", fmt.Errorf("create output dir %s: %w", e.Dir, err)
		}
	}
	path := filepath.Join(e.Dir, FileName(img.Index))

	// Encode fully before anything reaches the output path.
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: e.Compression}
	if err := enc.Encode(&buf, img.Pixels); err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := e.FS.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
