package app

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/TheNaotagrey/Asgaria/session"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font"
)

const (
	toastPadding    = 12
	toastLineHeight = 18
	toastCloseSize  = 18
	toastFontSize   = 14
)

// Toast is a single notification in the top-right corner.
type Toast struct {
	ID          string
	Lines       []string
	Colour      color.RGBA
	AutoCloseAt *time.Time
	X, Y        int
	Width       int
	Height      int
	Background  color.RGBA
	Border      color.RGBA
}

// ToastBuilder provides a fluent interface for building toasts
type ToastBuilder struct {
	toast *Toast
	tm    *ToastManager
	text  string
}

// ToastManager lays out, expires and draws toasts.
type ToastManager struct {
	toasts    []*Toast
	nextID    int
	maxToasts int
	margin    int
	screenW   int
}

func NewToastManager() *ToastManager {
	return &ToastManager{maxToasts: 5, margin: 15}
}

// NewToast starts a toast with the default style.
func (tm *ToastManager) NewToast(msg string) *ToastBuilder {
	tm.nextID++
	return &ToastBuilder{
		tm:   tm,
		text: msg,
		toast: &Toast{
			ID:         fmt.Sprintf("toast_%d", tm.nextID),
			Colour:     color.RGBA{255, 255, 255, 255},
			Background: color.RGBA{40, 40, 50, 240},
			Border:     color.RGBA{70, 130, 255, 255},
		},
	}
}

// AutoClose sets the toast to automatically close after the specified duration
func (tb *ToastBuilder) AutoClose(d time.Duration) *ToastBuilder {
	at := time.Now().Add(d)
	tb.toast.AutoCloseAt = &at
	return tb
}

func (tb *ToastBuilder) Border(c color.RGBA) *ToastBuilder {
	tb.toast.Border = c
	return tb
}

func (tb *ToastBuilder) Colour(c color.RGBA) *ToastBuilder {
	tb.toast.Colour = c
	return tb
}

// Show lays the toast out and adds it to the manager.
func (tb *ToastBuilder) Show() {
	face := loadFont(toastFontSize)
	maxWidth := min(500, max(250, tb.tm.screenW/3))
	tb.toast.Lines = wrapText(tb.text, face, maxWidth-toastPadding*2-toastCloseSize)

	width := 0
	for _, line := range tb.toast.Lines {
		width = max(width, text.BoundString(face, line).Dx())
	}
	tb.toast.Width = max(250, width+toastPadding*2+toastCloseSize)
	tb.toast.Height = len(tb.toast.Lines)*toastLineHeight + toastPadding*2
	tb.tm.add(tb.toast)
}

// Notify shows a session notice styled by its level.
func (tm *ToastManager) Notify(n session.Notice) {
	b := tm.NewToast(n.Text)
	switch n.Level {
	case session.LevelError:
		b.Border(color.RGBA{220, 70, 70, 255}).AutoClose(10 * time.Second)
	case session.LevelWarn:
		b.Border(color.RGBA{230, 180, 60, 255}).AutoClose(7 * time.Second)
	default:
		b.AutoClose(4 * time.Second)
	}
	b.Show()
}

func (tm *ToastManager) add(t *Toast) {
	if len(tm.toasts) >= tm.maxToasts {
		tm.toasts = tm.toasts[1:]
	}
	tm.toasts = append(tm.toasts, t)
	tm.reposition()
}

// Remove removes a toast by ID.
func (tm *ToastManager) Remove(id string) {
	for i, t := range tm.toasts {
		if t.ID == id {
			tm.toasts = append(tm.toasts[:i], tm.toasts[i+1:]...)
			tm.reposition()
			return
		}
	}
}

// Contains reports whether a screen point is over a toast.
func (tm *ToastManager) Contains(x, y int) bool {
	for _, t := range tm.toasts {
		if x >= t.X && x <= t.X+t.Width && y >= t.Y && y <= t.Y+t.Height {
			return true
		}
	}
	return false
}

func (tm *ToastManager) reposition() {
	y := tm.margin
	for _, t := range tm.toasts {
		t.X = tm.screenW - t.Width - tm.margin
		t.Y = y
		y += t.Height + tm.margin
	}
}

// Update expires toasts and handles the close buttons. It reports whether the
// click was consumed.
func (tm *ToastManager) Update(screenW int) bool {
	if screenW != tm.screenW {
		tm.screenW = screenW
		tm.reposition()
	}

	now := time.Now()
	active := tm.toasts[:0]
	for _, t := range tm.toasts {
		if t.AutoCloseAt == nil || now.Before(*t.AutoCloseAt) {
			active = append(active, t)
		}
	}
	if len(active) != len(tm.toasts) {
		tm.toasts = active
		tm.reposition()
	}

	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return false
	}
	mx, my := ebiten.CursorPosition()
	for _, t := range tm.toasts {
		cx, cy := t.X+t.Width-toastCloseSize-5, t.Y+5
		if mx >= cx && mx <= cx+toastCloseSize && my >= cy && my <= cy+toastCloseSize {
			tm.Remove(t.ID)
			return true
		}
	}
	return tm.Contains(mx, my)
}

// Draw renders all active toasts
func (tm *ToastManager) Draw(screen *ebiten.Image) {
	face := loadFont(toastFontSize)
	mx, my := ebiten.CursorPosition()
	for _, t := range tm.toasts {
		vector.DrawFilledRect(screen, float32(t.X), float32(t.Y), float32(t.Width), float32(t.Height), t.Background, false)
		vector.StrokeRect(screen, float32(t.X), float32(t.Y), float32(t.Width), float32(t.Height), 2, t.Border, false)

		for i, line := range t.Lines {
			text.Draw(screen, line, face, t.X+toastPadding, t.Y+toastPadding+toastLineHeight*(i+1)-4, t.Colour)
		}

		cx, cy := t.X+t.Width-toastCloseSize-5, t.Y+5
		closeColour := color.RGBA{180, 60, 60, 255}
		if mx >= cx && mx <= cx+toastCloseSize && my >= cy && my <= cy+toastCloseSize {
			closeColour = color.RGBA{210, 90, 90, 255}
		}
		vector.DrawFilledRect(screen, float32(cx), float32(cy), toastCloseSize, toastCloseSize, closeColour, false)
		b := text.BoundString(face, "x")
		text.Draw(screen, "x", face, cx+(toastCloseSize-b.Dx())/2, cy+(toastCloseSize+b.Dy())/2, color.White)
	}
}

// wrapText wraps text to fit within maxWidth, respecting word boundaries and \n characters
func wrapText(str string, face font.Face, maxWidth int) []string {
	var lines []string
	for _, paragraph := range strings.Split(str, "\n") {
		if text.BoundString(face, paragraph).Dx() <= maxWidth {
			lines = append(lines, paragraph)
			continue
		}
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}
		current := words[0]
		for _, w := range words[1:] {
			next := current + " " + w
			if text.BoundString(face, next).Dx() <= maxWidth {
				current = next
				continue
			}
			lines = append(lines, current)
			current = w
		}
		lines = append(lines, current)
	}
	return lines
}
