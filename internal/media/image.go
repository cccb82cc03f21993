package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	_ "image/gif"
	_ "image/jpeg"
)

const (
	// BlockFactor is the pixelation block size: the image is downsampled by
	// this factor and blown back up with nearest-neighbor sampling.
	BlockFactor = 8
	// lumaThreshold binarizes the pixelated luminance.
	lumaThreshold = 128
)

// Pixelate produces the stylized raster all image messages carry: block
// pixelation, luminance, hard threshold, recolored to green on black.
// Output dimensions equal input dimensions. The transform is deterministic;
// applying it to its own output is lossy but reproducible.
func Pixelate(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	green := color.RGBA{G: 255, A: 255}
	black := color.RGBA{A: 255}

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			// Nearest-neighbor against the block's origin pixel: every
			// pixel in a block reads the same source sample.
			sx := bounds.Min.X + (x/BlockFactor)*BlockFactor
			sy := bounds.Min.Y + (y/BlockFactor)*BlockFactor
			if luma(src.At(sx, sy)) >= lumaThreshold {
				out.SetRGBA(x, y, green)
			} else {
				out.SetRGBA(x, y, black)
			}
		}
	}
	return out
}

// luma computes integer Rec.601 luminance of a color in 0..255.
func luma(c color.Color) int {
	r, g, b, _ := c.RGBA()
	// RGBA returns 16-bit channels.
	return int(299*(r>>8)+587*(g>>8)+114*(b>>8)) / 1000
}

// ImageDataURI encodes an image as a self-contained PNG data URI.
func ImageDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeImageMessage decodes an uploaded raster, applies the pixelation
// transform and returns the embeddable payload.
func EncodeImageMessage(r io.Reader) (string, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return ImageDataURI(Pixelate(src))
}
