package editor

import (
	"image"
	"image/color"
	"sort"
	"testing"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T, w, h int) *State {
	t.Helper()
	s, err := New(Options{Width: w, Height: h, BrushSize: 1, ColorSeed: 42})
	require.NoError(t, err)
	s.SetBarrierMask(ComputeBarrierMask(image.NewRGBA(image.Rect(0, 0, w, h)), w, h))
	return s
}

// maskFrom builds a barrier mask with the listed pixels painted as water.
func maskFrom(w, h int, barriers ...typedef.Coord) *BarrierMask {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for _, c := range barriers {
		img.Set(c.X, c.Y, color.RGBA{R: 0x00, G: 0xA2, B: 0xE8, A: 0xFF})
	}
	return ComputeBarrierMask(img, w, h)
}

func mustLoad(t *testing.T, s *State, data typedef.PixelData) {
	t.Helper()
	require.NoError(t, s.Load(data))
}

func pt(x, y int) typedef.Coord { return typedef.Coord{X: x, Y: y} }

// modelView is an order-independent view of the ownership model.
type modelView struct {
	owner   []typedef.RegionID
	regions map[typedef.RegionID][]typedef.Coord
	names   map[typedef.RegionID]string
}

func viewOf(s *State) modelView {
	v := modelView{
		owner:   append([]typedef.RegionID(nil), s.owner...),
		regions: make(map[typedef.RegionID][]typedef.Coord),
		names:   make(map[typedef.RegionID]string),
	}
	for _, id := range s.Regions() {
		coords := s.Pixels(id)
		sortCoords(coords)
		v.regions[id] = coords
		v.names[id] = s.RegionName(id)
	}
	return v
}

func sortCoords(c []typedef.Coord) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Y != c[j].Y {
			return c[i].Y < c[j].Y
		}
		return c[i].X < c[j].X
	})
}

func requireConsistent(t *testing.T, s *State) {
	t.Helper()
	require.NoError(t, s.CheckConsistency())
}
