package app

import (
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	fontCache    = make(map[float64]font.Face)
	fontCacheMux sync.Mutex
	parsedFont   *opentype.Font
	fontLoadOnce sync.Once
)

func initFont() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		logrus.WithError(err).Warn("failed to parse UI font, using fallback")
		return
	}
	parsedFont = f
}

// loadFont returns a cached face of the given size, or a bitmap fallback.
func loadFont(size float64) font.Face {
	fontLoadOnce.Do(initFont)

	fontCacheMux.Lock()
	defer fontCacheMux.Unlock()
	if face, ok := fontCache[size]; ok {
		return face
	}
	if parsedFont == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		logrus.WithError(err).Warn("failed to create font face, using fallback")
		return basicfont.Face7x13
	}
	fontCache[size] = face
	return face
}

// TextRenderer provides helper methods for text rendering
type TextRenderer struct {
	face font.Face
}

// NewTextRenderer creates a new text renderer for the given font face
func NewTextRenderer(face font.Face) *TextRenderer {
	return &TextRenderer{face: face}
}

// DrawText draws text with its baseline at y.
func (tr *TextRenderer) DrawText(screen *ebiten.Image, textStr string, x, y int, clr color.Color) {
	text.Draw(screen, textStr, tr.face, x, y, clr)
}

// MeasureString returns the pixel width of the given text
func (tr *TextRenderer) MeasureString(str string) int {
	return text.BoundString(tr.face, str).Dx()
}

// LineHeight returns the pixel height of a line of text
func (tr *TextRenderer) LineHeight() int {
	metrics := tr.face.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

// Ellipsize shortens str with "..." until it fits maxWidth.
func (tr *TextRenderer) Ellipsize(str string, maxWidth int) string {
	if tr.MeasureString(str) <= maxWidth {
		return str
	}
	runes := []rune(str)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if s := string(runes) + "..."; tr.MeasureString(s) <= maxWidth {
			return s
		}
	}
	return ""
}
