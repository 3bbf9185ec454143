package editor

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Barrier colours on the base map: two water shades and mountains.
// Grey borders (#7F7F7F) are not barriers.
var barrierColors = [...]color.RGBA{
	{R: 0x00, G: 0xA2, B: 0xE8, A: 0xFF},
	{R: 0x99, G: 0xD9, B: 0xEA, A: 0xFF},
	{R: 0x00, G: 0x00, B: 0x00, A: 0xFF},
}

// BarrierMask marks pixels the bucket tool cannot cross. It is immutable once built.
type BarrierMask struct {
	width  int
	height int
	bits   []bool
}

// ComputeBarrierMask classifies every pixel of img, anchored at its top-left
// corner, into a width x height mask. Pixels outside img are not barriers.
func ComputeBarrierMask(img image.Image, width, height int) *BarrierMask {
	m := &BarrierMask{width: width, height: height, bits: make([]bool, width*height)}
	b := img.Bounds()
	w, h := min(width, b.Dx()), min(height, b.Dy())

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w*4]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+4]
				m.bits[y*width+x] = isBarrier(p[0], p[1], p[2])
			}
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w*4]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+4]
				m.bits[y*width+x] = isBarrier(p[0], p[1], p[2])
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				m.bits[y*width+x] = isBarrier(c.R, c.G, c.B)
			}
		}
	}
	return m
}

func isBarrier(r, g, b uint8) bool {
	for _, c := range barrierColors {
		if r == c.R && g == c.G && b == c.B {
			return true
		}
	}
	return false
}

// LoadBarrierMask decodes a base map image and computes its mask.
func LoadBarrierMask(r io.Reader, width, height int) (*BarrierMask, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base map: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("base map is %dx%d (%s), want %dx%d", b.Dx(), b.Dy(), format, width, height)
	}
	return ComputeBarrierMask(img, width, height), nil
}

// At reports whether (x, y) is a barrier. Out-of-range coordinates are not.
func (m *BarrierMask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.bits[y*m.width+x]
}

// Count returns the number of barrier pixels.
func (m *BarrierMask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

func (m *BarrierMask) Size() (int, int) { return m.width, m.height }
