package editor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBarrierMaskColors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 1))
	img.Set(0, 0, color.NRGBA{R: 0x00, G: 0xA2, B: 0xE8, A: 0xFF})
	img.Set(1, 0, color.NRGBA{R: 0x99, G: 0xD9, B: 0xEA, A: 0xFF})
	img.Set(2, 0, color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xFF})
	img.Set(3, 0, color.NRGBA{R: 0x7F, G: 0x7F, B: 0x7F, A: 0xFF})
	img.Set(4, 0, color.NRGBA{R: 0x00, G: 0xA2, B: 0xE9, A: 0xFF})

	m := ComputeBarrierMask(img, 5, 1)
	assert.True(t, m.At(0, 0))
	assert.True(t, m.At(1, 0))
	assert.True(t, m.At(2, 0))
	assert.False(t, m.At(3, 0), "grey borders do not block fills")
	assert.False(t, m.At(4, 0))
	assert.False(t, m.At(9, 9))
	assert.Equal(t, 3, m.Count())
}

func TestComputeBarrierMaskGenericImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	img.Set(1, 1, color.Gray{Y: 0})
	img.Set(0, 0, color.Gray{Y: 200})
	img.Set(2, 2, color.Gray{Y: 200})
	img.Set(0, 1, color.Gray{Y: 200})

	m := ComputeBarrierMask(img, 4, 4)
	assert.True(t, m.At(1, 1))
	assert.False(t, m.At(0, 0))
	assert.False(t, m.At(3, 3), "pixels outside the image are open")
}

func TestLoadBarrierMaskPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(3, 1, color.RGBA{A: 0xFF})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	m, err := LoadBarrierMask(bytes.NewReader(buf.Bytes()), 4, 2)
	require.NoError(t, err)
	assert.True(t, m.At(3, 1))

	_, err = LoadBarrierMask(bytes.NewReader(buf.Bytes()), 5, 2)
	assert.Error(t, err)

	_, err = LoadBarrierMask(bytes.NewReader([]byte("not an image")), 4, 2)
	assert.Error(t, err)
}

func TestSetBarrierMaskRejectsWrongSize(t *testing.T) {
	s := newTestState(t, 4, 4)
	s.SetBarrierMask(maskFrom(3, 3))
	assert.Nil(t, s.BarrierMask())
}
