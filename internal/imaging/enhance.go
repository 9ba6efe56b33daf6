package imaging

import "image"

// Enhancement levels for the pre-recognition pass.
const (
	EnhanceLight  = 1
	EnhanceMedium = 2
	EnhanceStrong = 3
)

// Enhance applies the pre-recognition enhancement pass used by the local
// Tesseract backend: grayscale, contrast boost, and for level >= medium a
// sharpen pass followed by a binary threshold.
func Enhance(img image.Image, level int) *image.Gray {
	if level < EnhanceLight {
		level = EnhanceLight
	}
	if level > EnhanceStrong {
		level = EnhanceStrong
	}

	g := Grayscale(img)

	// 2.0 for light, 2.5 for medium, 3.0 for strong
	factor := 1.5 + float64(level)*0.5
	g = adjustContrast(g, factor)

	if level >= EnhanceMedium {
		g = sharpen(g)
		g = threshold(g, 128)
	}

	return g
}

// adjustContrast scales pixel values around the midpoint by factor.
func adjustContrast(g *image.Gray, factor float64) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		scaled := 128.0 + (float64(v)-128.0)*factor
		out.Pix[i] = clampByte(scaled)
	}
	return out
}

// sharpen applies a 3x3 sharpening kernel. Border pixels are copied as-is.
func sharpen(g *image.Gray) *image.Gray {
	bounds := g.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	out := image.NewGray(bounds)
	copy(out.Pix, g.Pix)

	// kernel: center 5, orthogonal neighbors -1
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := int(g.Pix[y*g.Stride+x])
			up := int(g.Pix[(y-1)*g.Stride+x])
			down := int(g.Pix[(y+1)*g.Stride+x])
			left := int(g.Pix[y*g.Stride+x-1])
			right := int(g.Pix[y*g.Stride+x+1])
			out.Pix[y*out.Stride+x] = clampInt(5*c - up - down - left - right)
		}
	}
	return out
}

// threshold binarizes the image: values above the threshold become white,
// everything else black.
func threshold(g *image.Gray, t uint8) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		if v > t {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampInt(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
