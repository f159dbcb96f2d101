package watermark

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestApplyProducesJPEG(t *testing.T) {
	out, err := Apply(samplePNG(t), "Shaker Heights Police - 2024-03-01")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 200 || bounds.Dy() != 120 {
		t.Errorf("dimensions changed: %v", bounds)
	}
}

func TestApplyRejectsGarbage(t *testing.T) {
	if _, err := Apply([]byte("not an image"), "text"); err == nil {
		t.Error("expected decode error")
	}
}
