package editor

import "math"

const (
	MinScale      = 0.2
	MaxScale      = 10.0
	ZoomInFactor  = 1.1
	ZoomOutFactor = 0.9
)

// Viewport maps between screen and map coordinates. Screen = map*Scale + Offset.
type Viewport struct {
	Scale   float64
	OffsetX float64
	OffsetY float64

	mapW int
	mapH int
}

// NewViewport creates a 1:1 viewport for a map of the given size.
func NewViewport(mapW, mapH int) *Viewport {
	return &Viewport{Scale: 1, mapW: mapW, mapH: mapH}
}

// ScreenToMap returns the map pixel under a screen point. The result may be off the map.
func (v *Viewport) ScreenToMap(sx, sy float64) (int, int) {
	return int(math.Floor((sx - v.OffsetX) / v.Scale)), int(math.Floor((sy - v.OffsetY) / v.Scale))
}

// MapToScreen returns the screen position of a map point.
func (v *Viewport) MapToScreen(mx, my float64) (float64, float64) {
	return mx*v.Scale + v.OffsetX, my*v.Scale + v.OffsetY
}

// ZoomAt multiplies the scale by factor, clamped to [MinScale, MaxScale],
// keeping the map point under (sx, sy) fixed.
func (v *Viewport) ZoomAt(sx, sy, factor float64) {
	next := clampScale(v.Scale * factor)
	if next == v.Scale {
		return
	}
	mx := (sx - v.OffsetX) / v.Scale
	my := (sy - v.OffsetY) / v.Scale
	v.Scale = next
	v.OffsetX = sx - mx*next
	v.OffsetY = sy - my*next
}

// Pan moves the map by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.OffsetX += dx
	v.OffsetY += dy
}

// Fit scales the whole map into a container and centres it.
func (v *Viewport) Fit(containerW, containerH int) {
	if containerW <= 0 || containerH <= 0 || v.mapW <= 0 || v.mapH <= 0 {
		return
	}
	v.Scale = clampScale(math.Min(float64(containerW)/float64(v.mapW), float64(containerH)/float64(v.mapH)))
	v.OffsetX = (float64(containerW) - float64(v.mapW)*v.Scale) / 2
	v.OffsetY = (float64(containerH) - float64(v.mapH)*v.Scale) / 2
}

func clampScale(s float64) float64 {
	return math.Max(MinScale, math.Min(MaxScale, s))
}
