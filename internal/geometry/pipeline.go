package geometry

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
)

// ErrDecode indicates the file is not a decodable image.
var ErrDecode = errors.New("geometry: decode failed")

// ImagePipeline extracts hit-box triangles from image files.
type ImagePipeline struct {
	// AlphaThreshold is the alpha a pixel must exceed to count as opaque.
	AlphaThreshold uint8
}

// NewImagePipeline returns a pipeline using DefaultAlphaThreshold.
func NewImagePipeline() *ImagePipeline {
	return &ImagePipeline{AlphaThreshold: DefaultAlphaThreshold}
}

// Process decodes the image at path and returns its triangles.
func (p *ImagePipeline) Process(ctx context.Context, path string, epsilon float64) ([]Triangle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Extract(ctx, img, epsilon)
}

// Extract runs trace, simplify and triangulate on an already decoded image.
func (p *ImagePipeline) Extract(ctx context.Context, img image.Image, epsilon float64) ([]Triangle, error) {
	outline, err := TraceOutline(img, p.AlphaThreshold)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	simplified := Simplify(outline, epsilon)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Triangulate(simplified)
}
