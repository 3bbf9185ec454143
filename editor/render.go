package editor

import (
	"image"
	"image/color"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"golang.org/x/image/draw"
)

// Renderer rasterises region ownership into an RGBA overlay. Unowned pixels are transparent.
// The buffer is alpha-premultiplied, as image.RGBA and ebiten expect.
type Renderer struct {
	img *image.RGBA
}

// NewRenderer allocates an overlay buffer of the given size.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Image returns the overlay buffer. It is overwritten by Render and Flush.
func (r *Renderer) Image() *image.RGBA {
	return r.img
}

// Render redraws the whole overlay and discards pending dirty state.
func (r *Renderer) Render(s *State) {
	s.TakeDirty()
	r.paint(s, r.img.Bounds())
}

// Flush redraws only what changed since the last Render or Flush and returns that area.
// The result is identical to a full Render.
func (r *Renderer) Flush(s *State) image.Rectangle {
	rect, full := s.TakeDirty()
	if full {
		rect = r.img.Bounds()
	}
	rect = rect.Intersect(r.img.Bounds())
	if rect.Empty() {
		return image.Rectangle{}
	}
	r.paint(s, rect)
	return rect
}

func (r *Renderer) paint(s *State, rect image.Rectangle) {
	var (
		lastID  typedef.RegionID
		lastPix [4]uint8
		haveID  bool
	)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := r.img.Pix[y*r.img.Stride:]
		for x := rect.Min.X; x < rect.Max.X; x++ {
			id := s.owner[y*s.width+x]
			p := row[x*4 : x*4+4 : x*4+4]
			if id == typedef.NoRegion {
				p[0], p[1], p[2], p[3] = 0, 0, 0, 0
				continue
			}
			if !haveID || id != lastID {
				lastID, haveID = id, true
				lastPix = premultiply(s.regionColor(id))
			}
			p[0], p[1], p[2], p[3] = lastPix[0], lastPix[1], lastPix[2], lastPix[3]
		}
	}
}

func (s *State) regionColor(id typedef.RegionID) color.NRGBA {
	c := s.palette.Color(id)
	if id == s.selected {
		c.A = SelectedAlpha
	}
	return c
}

func premultiply(c color.NRGBA) [4]uint8 {
	a := uint32(c.A)
	return [4]uint8{
		uint8((uint32(c.R)*a + 127) / 255),
		uint8((uint32(c.G)*a + 127) / 255),
		uint8((uint32(c.B)*a + 127) / 255),
		c.A,
	}
}

// Thumbnail scales the current overlay to fit within maxW x maxH.
func (r *Renderer) Thumbnail(maxW, maxH int) *image.RGBA {
	b := r.img.Bounds()
	scale := min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	w, h := max(1, int(float64(b.Dx())*scale)), max(1, int(float64(b.Dy())*scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), r.img, b, draw.Src, nil)
	return dst
}
