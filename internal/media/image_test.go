package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPixelateBrightInputAllGreen(t *testing.T) {
	// Solid white: luminance 255, above threshold everywhere.
	src := solidImage(32, 24, color.White)
	out := Pixelate(src)

	if out.Bounds().Dx() != 32 || out.Bounds().Dy() != 24 {
		t.Fatalf("dimensions = %dx%d, want 32x24", out.Bounds().Dx(), out.Bounds().Dy())
	}
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			c := out.RGBAAt(x, y)
			if c.R != 0 || c.B != 0 || c.G != 255 {
				t.Fatalf("pixel (%d,%d) = %+v, want pure green", x, y, c)
			}
		}
	}
}

func TestPixelateDarkInputAllBlack(t *testing.T) {
	src := solidImage(16, 16, color.Black)
	out := Pixelate(src)

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := out.RGBAAt(x, y)
			if c.R != 0 || c.G != 0 || c.B != 0 {
				t.Fatalf("pixel (%d,%d) = %+v, want black", x, y, c)
			}
		}
	}
}

func TestPixelateBlockStructure(t *testing.T) {
	// Only the origin pixel of the first block is bright; the block's
	// origin sample decides the entire block.
	src := solidImage(16, 16, color.Black)
	src.Set(0, 0, color.White)
	out := Pixelate(src)

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := out.RGBAAt(x, y)
			inFirstBlock := x < BlockFactor && y < BlockFactor
			if inFirstBlock && c.G != 255 {
				t.Fatalf("pixel (%d,%d) = %+v, want green (first block)", x, y, c)
			}
			if !inFirstBlock && c.G != 0 {
				t.Fatalf("pixel (%d,%d) = %+v, want black (outside first block)", x, y, c)
			}
		}
	}
}

func TestPixelateDeterministic(t *testing.T) {
	src := solidImage(40, 40, color.RGBA{R: 200, G: 180, B: 90, A: 255})
	src.Set(3, 7, color.Black)
	src.Set(21, 33, color.White)

	a := Pixelate(src)
	b := Pixelate(src)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("same input produced different outputs")
	}
}

func TestPixelateOddDimensions(t *testing.T) {
	// Dimensions that are not block multiples still map 1:1.
	src := solidImage(13, 9, color.White)
	out := Pixelate(src)
	if out.Bounds().Dx() != 13 || out.Bounds().Dy() != 9 {
		t.Errorf("dimensions = %dx%d, want 13x9", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestEncodeImageMessage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(16, 16, color.White)); err != nil {
		t.Fatal(err)
	}

	uri, err := EncodeImageMessage(&buf)
	if err != nil {
		t.Fatalf("EncodeImageMessage() error = %v", err)
	}
	const prefix = "data:image/png;base64,"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		t.Errorf("payload prefix = %q, want %q", uri[:min(len(uri), len(prefix))], prefix)
	}
}

func TestEncodeImageMessageBadInput(t *testing.T) {
	if _, err := EncodeImageMessage(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected decode error for garbage input")
	}
}
