package app

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/TheNaotagrey/Asgaria/editor"
	"github.com/TheNaotagrey/Asgaria/session"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// dragThreshold is how far a click may move before it becomes a pan.
const dragThreshold = 4

func (g *Game) handleKeys() {
	k := g.keys
	s := g.sess

	if ctrlJustPressed(ebiten.KeyZ) {
		s.Undo()
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		s.Escape()
		return
	}

	switch {
	case bindingJustPressed(k.EditMode):
		s.ToggleEditMode()
		if s.EditMode() {
			g.info("Edit mode on")
		} else {
			g.info("Edit mode off")
		}
	case bindingJustPressed(k.Brush):
		g.setTool(editor.ToolBrush)
	case bindingJustPressed(k.Eraser):
		g.setTool(editor.ToolEraser)
	case bindingJustPressed(k.Bucket):
		g.setTool(editor.ToolBucket)
	case bindingJustPressed(k.NewRegion):
		if id := s.NewRegion(); id != "" {
			g.info(fmt.Sprintf("Created barony %s", id))
		}
	case bindingJustPressed(k.DeleteRegion):
		s.DeleteSelected()
	case bindingJustPressed(k.Merge):
		s.ArmMerge()
	case bindingJustPressed(k.Rename):
		g.panel.focusField(s, 1)
	case bindingJustPressed(k.RandomColors):
		s.RandomColors()
	case bindingJustPressed(k.Filter):
		if f := s.CycleFilter(); f != "" {
			g.info("Colour filter: " + f)
		} else {
			g.info("Colour filter off")
		}
	case bindingJustPressed(k.ToggleMap):
		if g.base.toggle() {
			s.State().SetBarrierMask(g.base.mask())
		}
	case bindingJustPressed(k.Fit):
		g.fit()
	case bindingJustPressed(k.BrushGrow):
		s.GrowBrush(1)
	case bindingJustPressed(k.BrushShrink):
		s.GrowBrush(-1)
	case bindingJustPressed(k.Save):
		s.Save()
	case bindingJustPressed(k.Retry):
		s.Retry()
	case bindingJustPressed(k.ExportJSON):
		g.exportJSON()
	case bindingJustPressed(k.ImportJSON):
		g.importJSON()
	case bindingJustPressed(k.CopyImage):
		if err := copyImage(g.renderer.Image()); err != nil {
			g.notifyErr("Copy image", err)
		} else {
			g.info("Overlay copied to the clipboard")
		}
	case bindingJustPressed(k.Snapshot):
		if path, err := g.SaveSnapshot(); err != nil {
			g.notifyErr("Snapshot", err)
		} else {
			g.info("Snapshot saved to " + path)
		}
	}
}

func (g *Game) setTool(t editor.Tool) {
	if !g.sess.EditMode() {
		g.toasts.Notify(session.Notice{Level: session.LevelWarn, Text: fmt.Sprintf("Press %s to enter edit mode first", g.keys.EditMode)})
		return
	}
	g.sess.SetTool(t)
}

func (g *Game) exportJSON() {
	raw, err := g.sess.State().ExportJSON()
	if err != nil {
		g.notifyErr("Export", err)
		return
	}
	if err := copyText(string(raw)); err != nil {
		g.notifyErr("Export", err)
		return
	}
	g.info(fmt.Sprintf("Copied %d baronies as JSON", len(g.sess.State().Regions())))
}

func (g *Game) importJSON() {
	raw, err := pasteText()
	if err != nil {
		g.notifyErr("Import", err)
		return
	}
	if err := g.sess.ImportJSON([]byte(raw)); err != nil {
		g.notifyErr("Import", err)
		return
	}
	g.info(fmt.Sprintf("Imported %d baronies. Save to send them to the backend.", len(g.sess.State().Regions())))
}

func (g *Game) mapPoint(sx, sy int) (int, int) {
	return g.view.ScreenToMap(float64(sx), float64(sy))
}

func (g *Game) handleMouse() {
	s := g.sess
	mx, my := ebiten.CursorPosition()
	overPanel := g.panel.contains(mx, my, g.screenW)

	if _, wy := ebiten.Wheel(); wy != 0 && !overPanel {
		factor := editor.ZoomOutFactor
		if wy > 0 {
			factor = editor.ZoomInFactor
		}
		g.view.ZoomAt(float64(mx), float64(my), factor)
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && image.Pt(mx, my).In(g.panel.minimapRect) {
		g.centreOnMinimap(mx, my)
		return
	}

	// Middle drag, Space+drag, or a left drag without a painting tool pans the map.
	toolActive := s.EditMode() && s.Tool() != editor.ToolNone && !ebiten.IsKeyPressed(ebiten.KeySpace)
	if !overPanel && (inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonMiddle) ||
		(inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && !toolActive)) {
		g.panning = true
		g.lastX, g.lastY = mx, my
		g.pressX, g.pressY = mx, my
		g.moved = false
	}
	if g.panning {
		if mx != g.lastX || my != g.lastY {
			if abs(mx-g.pressX) > dragThreshold || abs(my-g.pressY) > dragThreshold {
				g.moved = true
			}
			if g.moved {
				g.view.Pan(float64(mx-g.lastX), float64(my-g.lastY))
			}
			g.lastX, g.lastY = mx, my
		}
		leftUp := inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft)
		if leftUp || inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonMiddle) {
			g.panning = false
			if leftUp && !g.moved {
				// A click without movement selects, or completes a merge.
				s.Press(g.mapPoint(g.pressX, g.pressY))
			}
		}
		return
	}
	if overPanel {
		return
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		s.Press(g.mapPoint(mx, my))
	} else if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && s.Painting() {
		s.DragTo(g.mapPoint(mx, my))
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		s.Release()
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		s.EraseAt(g.mapPoint(mx, my))
	}
}

func (g *Game) centreOnMinimap(mx, my int) {
	r := g.panel.minimapRect
	st := g.sess.State()
	fx := float64(mx-r.Min.X) / float64(r.Dx())
	fy := float64(my-r.Min.Y) / float64(r.Dy())
	sx, sy := g.view.MapToScreen(fx*float64(st.Width()), fy*float64(st.Height()))
	cx, cy := float64(g.screenW-panelWidth)/2, float64(g.screenH)/2
	g.view.Pan(cx-sx, cy-sy)
}

// drawBrushCursor outlines the brush square under the cursor.
func (g *Game) drawBrushCursor(screen *ebiten.Image) {
	s := g.sess
	if !s.EditMode() || (s.Tool() != editor.ToolBrush && s.Tool() != editor.ToolEraser) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if g.panel.contains(mx, my, g.screenW) {
		return
	}
	x, y := g.mapPoint(mx, my)
	half := s.State().BrushSize() / 2
	size := float64(half*2 + 1)
	sx, sy := g.view.MapToScreen(float64(x-half), float64(y-half))
	side := float32(math.Max(1, size*g.view.Scale))
	c := color.RGBA{255, 255, 255, 200}
	if s.Tool() == editor.ToolEraser {
		c = color.RGBA{255, 120, 120, 200}
	}
	vector.StrokeRect(screen, float32(sx), float32(sy), side, side, 1, c, false)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
