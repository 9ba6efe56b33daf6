// Package imaging provides the bitmap primitives shared by the matcher and
// the OCR backends: region cropping, grayscale conversion, proportional
// resizing and the pre-recognition enhancement pass.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Box is an axis-aligned crop rectangle in pixel coordinates at a specific DPI.
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ParseBox parses a "x,y,w,h" string into a Box. Width and height must be
// positive; a malformed box is a configuration error that aborts the run
// before any page is processed.
func ParseBox(s string) (Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Box{}, fmt.Errorf("invalid box %q: expected x,y,w,h", s)
	}

	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Box{}, fmt.Errorf("invalid box %q: %w", s, err)
		}
		vals[i] = v
	}

	box := Box{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	if box.Width <= 0 || box.Height <= 0 {
		return Box{}, fmt.Errorf("invalid box %q: width/height must be > 0", s)
	}
	return box, nil
}

// String returns the box in its "x,y,w,h" input form.
func (b Box) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", b.X, b.Y, b.Width, b.Height)
}

// Crop extracts the sub-image covered by box, clamped to the image bounds.
// A box that collapses to zero area after clamping yields a 1x1 white bitmap
// instead of an error, so one misconfigured region cannot abort a run.
func Crop(img image.Image, box Box) image.Image {
	bounds := img.Bounds()

	x := box.X
	y := box.Y
	w := box.Width
	h := box.Height
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+w > bounds.Dx() {
		w = bounds.Dx() - x
	}
	if y+h > bounds.Dy() {
		h = bounds.Dy() - y
	}
	if w <= 0 || h <= 0 {
		blank := image.NewRGBA(image.Rect(0, 0, 1, 1))
		blank.Set(0, 0, color.White)
		return blank
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	src := image.Rect(bounds.Min.X+x, bounds.Min.Y+y, bounds.Min.X+x+w, bounds.Min.Y+y+h)
	draw.Draw(out, out.Bounds(), img, src.Min, draw.Src)
	return out
}

// Grayscale converts an image to 8-bit grayscale.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

// ResizeToWidth resizes an image proportionally to the given width.
func ResizeToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || width <= 0 {
		return img
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, bounds, xdraw.Src, nil)
	return out
}

// GrayResizeToWidth converts to grayscale and resizes proportionally to the
// given width. This is the normalization step both template matching passes
// share so the search cost is independent of the render DPI.
func GrayResizeToWidth(img image.Image, width int) *image.Gray {
	g := Grayscale(img)
	bounds := g.Bounds()
	if bounds.Dx() == 0 || width <= 0 {
		return g
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	out := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), g, bounds, xdraw.Src, nil)
	return out
}

// DownscaleMax shrinks an image so its longest side does not exceed maxSide.
// Images already within the bound are returned unchanged.
func DownscaleMax(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if maxSide <= 0 || longest <= maxSide {
		return img
	}

	scale := float64(maxSide) / float64(longest)
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(out, out.Bounds(), img, bounds, xdraw.Src, nil)
	return out
}

// EncodePNG encodes an image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
