package app

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/TheNaotagrey/Asgaria/session"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	panelWidth     = 300
	panelFontSize  = 14
	fieldHeight    = 22
	legendMaxRows  = 12
	minimapHeight  = 160
	minimapRefresh = time.Second
)

var (
	panelBackground = color.RGBA{28, 30, 38, 245}
	panelText       = color.RGBA{230, 230, 235, 255}
	panelMuted      = color.RGBA{150, 150, 160, 255}
	fieldBackground = color.RGBA{45, 48, 60, 255}
	fieldFocus      = color.RGBA{70, 130, 255, 255}
)

type formField struct {
	label string
	value *string
}

// panel is the right-hand side bar: status, barony form, legend and minimap.
type panel struct {
	tr *TextRenderer

	form      session.Form
	formFor   typedef.RegionID
	focus     int
	fieldRect []image.Rectangle

	minimap     *ebiten.Image
	minimapAt   time.Time
	minimapRect image.Rectangle
}

func newPanel() *panel {
	return &panel{tr: NewTextRenderer(loadFont(panelFontSize)), focus: -1}
}

func (p *panel) fields() []formField {
	return []formField{
		{"ID", &p.form.ID},
		{"Name", &p.form.Name},
		{"Seigneur", &p.form.Seigneur},
		{"Religion pop", &p.form.ReligionPop},
		{"Culture", &p.form.Culture},
		{"County", &p.form.County},
		{"Duchy", &p.form.Duchy},
	}
}

// editing reports whether a form field has keyboard focus.
func (p *panel) editing() bool {
	return p.focus >= 0
}

// sync reloads the form when the selection changes, unless the user is typing.
func (p *panel) sync(s *session.Session) {
	sel := s.State().Selected()
	if sel == p.formFor && (p.editing() || sel == typedef.NoRegion) {
		return
	}
	if sel != p.formFor {
		p.focus = -1
	}
	p.formFor = sel
	if f, ok := s.SelectedForm(); ok {
		p.form = f
	} else {
		p.form = session.Form{}
	}
}

// focusField starts editing the given field, or the name field when i is out of range.
func (p *panel) focusField(s *session.Session, i int) {
	if s.State().Selected() == typedef.NoRegion || !s.EditMode() {
		return
	}
	if i < 0 || i >= len(p.fields()) {
		i = 1
	}
	p.focus = i
}

// contains reports whether a screen point is on the panel.
func (p *panel) contains(x, y, screenW int) bool {
	return x >= screenW-panelWidth
}

// update handles clicks and typing. It returns true when input was consumed.
func (p *panel) update(s *session.Session, screenW int, apply func()) bool {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		mx, my := ebiten.CursorPosition()
		if !p.contains(mx, my, screenW) {
			p.focus = -1
			return false
		}
		p.focus = -1
		if image.Pt(mx, my).In(p.minimapRect) {
			return false
		}
		for i, r := range p.fieldRect {
			if image.Pt(mx, my).In(r) {
				p.focusField(s, i)
			}
		}
		return true
	}
	if !p.editing() {
		return false
	}

	fields := p.fields()
	f := fields[p.focus]
	*f.value += string(ebiten.AppendInputChars(nil))
	if repeatPressed(ebiten.KeyBackspace) && len(*f.value) > 0 {
		r := []rune(*f.value)
		*f.value = string(r[:len(r)-1])
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		if ebiten.IsKeyPressed(ebiten.KeyShift) {
			p.focus = (p.focus + len(fields) - 1) % len(fields)
		} else {
			p.focus = (p.focus + 1) % len(fields)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter), inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter):
		p.focus = -1
		apply()
		p.formFor = typedef.NoRegion
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		p.focus = -1
		p.formFor = typedef.NoRegion
	}
	return true
}

func repeatPressed(key ebiten.Key) bool {
	d := inpututil.KeyPressDuration(key)
	return d == 1 || (d >= 30 && d%3 == 0)
}

type panelInfo struct {
	pending  int
	failed   int
	baseMap  string
	keybinds typedef.Keybinds
}

func (p *panel) draw(screen *ebiten.Image, s *session.Session, thumb func(w, h int) *image.RGBA, info panelInfo) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	x0 := sw - panelWidth
	vector.DrawFilledRect(screen, float32(x0), 0, panelWidth, float32(sh), panelBackground, false)

	lh := p.tr.LineHeight() + 4
	x, y := x0+12, 12+lh
	line := func(str string, c color.Color) {
		p.tr.DrawText(screen, p.tr.Ellipsize(str, panelWidth-24), x, y, c)
		y += lh
	}

	st := s.State()
	mode := "View"
	if s.EditMode() {
		mode = "Edit"
	}
	line(fmt.Sprintf("%s mode  (%s)", mode, info.keybinds.EditMode), panelText)
	line(fmt.Sprintf("Tool: %s   Brush: %d", s.Tool(), st.BrushSize()), panelMuted)
	if base := s.MergeBase(); base != typedef.NoRegion {
		line(fmt.Sprintf("Merging into %s: click a barony", base), fieldFocus)
	}
	filter := s.Filter()
	if filter == "" {
		filter = "none"
	}
	line(fmt.Sprintf("Filter: %s   Map: %s", filter, info.baseMap), panelMuted)

	status := fmt.Sprintf("Revision %d", s.Revision())
	if s.Unsaved() {
		status += ", unsaved changes"
	}
	line(status, panelMuted)
	if info.pending > 0 || info.failed > 0 {
		c := panelMuted
		if info.failed > 0 {
			c = color.RGBA{230, 120, 110, 255}
		}
		line(fmt.Sprintf("Requests: %d pending, %d failed (%s to retry)", info.pending, info.failed, info.keybinds.Retry), c)
	}
	y += lh / 2

	p.fieldRect = p.fieldRect[:0]
	sel := st.Selected()
	if sel == typedef.NoRegion {
		line(fmt.Sprintf("%d baronies. Click one to select.", len(st.Regions())), panelMuted)
	} else {
		line(fmt.Sprintf("Barony %s: %d pixels", sel, st.PixelCount(sel)), panelText)
		for i, f := range p.fields() {
			p.tr.DrawText(screen, f.label, x, y, panelMuted)
			r := image.Rect(x+100, y-lh+6, x0+panelWidth-12, y-lh+6+fieldHeight)
			p.fieldRect = append(p.fieldRect, r)
			border := fieldBackground
			val := *f.value
			if i == p.focus {
				border = fieldFocus
				if time.Now().UnixMilli()/500%2 == 0 {
					val += "|"
				}
			}
			vector.DrawFilledRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), fieldBackground, false)
			vector.StrokeRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), 1, border, false)
			p.tr.DrawText(screen, p.tr.Ellipsize(val, r.Dx()-8), r.Min.X+4, y, panelText)
			y += fieldHeight + 4
		}
		if s.EditMode() {
			line(fmt.Sprintf("Enter applies. %s new, %s merge, Del deletes.", info.keybinds.NewRegion, info.keybinds.Merge), panelMuted)
		}
	}
	y += lh / 2

	if legend := st.Legend(); len(legend) > 0 {
		line("Legend", panelText)
		for i, e := range legend {
			if i == legendMaxRows {
				line(fmt.Sprintf("... %d more groups", len(legend)-legendMaxRows), panelMuted)
				break
			}
			vector.DrawFilledRect(screen, float32(x), float32(y-lh+6), 12, 12, e.Color, false)
			x += 18
			line(fmt.Sprintf("%s (%d)", e.Label, e.Count), panelText)
			x -= 18
		}
	}

	p.drawMinimap(screen, thumb, x0, sh)
}

func (p *panel) drawMinimap(screen *ebiten.Image, thumb func(w, h int) *image.RGBA, x0, sh int) {
	if time.Since(p.minimapAt) > minimapRefresh || p.minimap == nil {
		img := thumb(panelWidth-24, minimapHeight)
		if p.minimap != nil {
			p.minimap.Deallocate()
		}
		p.minimap = ebiten.NewImageFromImage(img)
		p.minimapAt = time.Now()
	}
	b := p.minimap.Bounds()
	mx, my := x0+12, sh-12-b.Dy()
	p.minimapRect = image.Rect(mx, my, mx+b.Dx(), my+b.Dy())
	vector.DrawFilledRect(screen, float32(mx), float32(my), float32(b.Dx()), float32(b.Dy()), color.RGBA{15, 15, 20, 255}, false)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(mx), float64(my))
	screen.DrawImage(p.minimap, op)
	vector.StrokeRect(screen, float32(mx), float32(my), float32(b.Dx()), float32(b.Dy()), 1, panelMuted, false)
}
