// Package watermark stamps uploaded mugshots with an identifying line of
// text before they are stored.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const jpegQuality = 90

// Apply decodes a PNG or JPEG image, draws the text bottom-center and
// returns the result re-encoded as JPEG.
func Apply(img []byte, text string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	x := bounds.Min.X + (bounds.Dx()-width)/2
	y := bounds.Max.Y - face.Height

	// Shadow first so the label stays readable on light photos.
	drawString(dst, face, text, x+1, y+1, color.Black)
	drawString(dst, face, text, x, y, color.White)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func drawString(dst draw.Image, face font.Face, text string, x, y int, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
