package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenToMap(t *testing.T) {
	v := NewViewport(100, 100)
	v.Scale = 2
	v.OffsetX, v.OffsetY = 10, 20

	x, y := v.ScreenToMap(10, 20)
	assert.Equal(t, [2]int{0, 0}, [2]int{x, y})
	x, y = v.ScreenToMap(13.9, 21.9)
	assert.Equal(t, [2]int{1, 0}, [2]int{x, y})
	x, y = v.ScreenToMap(9, 19)
	assert.Equal(t, [2]int{-1, -1}, [2]int{x, y})
}

func TestZoomKeepsCursorAnchored(t *testing.T) {
	v := NewViewport(100, 100)
	v.OffsetX, v.OffsetY = 5, 7

	mx, my := (300-v.OffsetX)/v.Scale, (200-v.OffsetY)/v.Scale
	v.ZoomAt(300, 200, ZoomInFactor)
	assert.InDelta(t, 1.1, v.Scale, 1e-9)
	sx, sy := v.MapToScreen(mx, my)
	assert.InDelta(t, 300, sx, 1e-9)
	assert.InDelta(t, 200, sy, 1e-9)

	for i := 0; i < 100; i++ {
		v.ZoomAt(300, 200, ZoomInFactor)
	}
	assert.Equal(t, MaxScale, v.Scale)

	for i := 0; i < 200; i++ {
		v.ZoomAt(0, 0, ZoomOutFactor)
	}
	assert.Equal(t, MinScale, v.Scale)
}

func TestPanAndFit(t *testing.T) {
	v := NewViewport(200, 100)
	v.Pan(3, -4)
	assert.Equal(t, 3.0, v.OffsetX)
	assert.Equal(t, -4.0, v.OffsetY)

	v.Fit(400, 400)
	assert.Equal(t, 2.0, v.Scale)
	assert.Equal(t, 0.0, v.OffsetX)
	assert.Equal(t, 100.0, v.OffsetY)

	v.Fit(0, 10)
	assert.Equal(t, 2.0, v.Scale)
}
