// Package app is the ebiten front end of the barony editor.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/TheNaotagrey/Asgaria/client"
	"github.com/TheNaotagrey/Asgaria/editor"
	"github.com/TheNaotagrey/Asgaria/session"
	"github.com/TheNaotagrey/Asgaria/storage"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus"
)

// Backend is the part of the REST client the GUI reads from.
type Backend interface {
	GetPixels(ctx context.Context) (typedef.PixelData, int64, error)
	ListBaronies(ctx context.Context) ([]typedef.Barony, error)
}

// Queue reports the dispatcher backlog.
type Queue interface {
	Pending() int
	Failed() int
}

// Options wires the GUI to the session and backend.
type Options struct {
	Session  *session.Session
	Backend  Backend
	Queue    Queue
	Results  <-chan client.Result
	Events   <-chan client.Event
	Keybinds typedef.Keybinds
	// Startup replaces the backend pixels when set. Metadata still comes from the backend.
	Startup *editor.Snapshot

	MapImage      string
	BlankMapImage string
}

type loaded struct {
	pixels   typedef.PixelData
	revision int64
	baronies []typedef.Barony
	err      error
	metaOnly bool
}

// Game implements ebiten.Game.
type Game struct {
	ctx     context.Context
	sess    *session.Session
	backend Backend
	queue   Queue
	results <-chan client.Result
	events  <-chan client.Event
	loads   chan loaded
	keys    typedef.Keybinds

	renderer *editor.Renderer
	overlay  *ebiten.Image
	base     *baseMaps
	view     *editor.Viewport
	toasts   *ToastManager
	panel    *panel

	screenW, screenH int
	panning          bool
	moved            bool
	lastX, lastY     int
	pressX, pressY   int
	loading          bool

	log *logrus.Entry
}

// New builds the game and starts loading from the backend.
func New(ctx context.Context, opts Options) *Game {
	st := opts.Session.State()
	g := &Game{
		ctx:      ctx,
		sess:     opts.Session,
		backend:  opts.Backend,
		queue:    opts.Queue,
		results:  opts.Results,
		events:   opts.Events,
		loads:    make(chan loaded, 4),
		keys:     opts.Keybinds,
		renderer: editor.NewRenderer(st.Width(), st.Height()),
		overlay:  ebiten.NewImage(st.Width(), st.Height()),
		base:     loadBaseMaps(opts.MapImage, opts.BlankMapImage, st.Width(), st.Height()),
		view:     editor.NewViewport(st.Width(), st.Height()),
		toasts:   NewToastManager(),
		panel:    newPanel(),
		log:      logrus.WithField("component", "app"),
	}
	st.SetBarrierMask(g.base.mask())
	if g.base.current() == nil {
		g.toasts.NewToast("No base map found: bucket fill is disabled").Border(color.RGBA{230, 180, 60, 255}).AutoClose(10 * time.Second).Show()
	}
	if opts.Startup != nil {
		if err := g.sess.RestoreSnapshot(opts.Startup); err != nil {
			g.notifyErr("Snapshot rejected", err)
			opts.Startup = nil
		} else {
			g.info(fmt.Sprintf("Loaded snapshot with %d baronies. Save to send it to the backend.", len(st.Regions())))
		}
	}
	g.reload(opts.Startup != nil)
	return g
}

// reload fetches pixels and metadata, or only metadata, in the background.
func (g *Game) reload(metaOnly bool) {
	if g.backend == nil || g.loading {
		return
	}
	g.loading = true
	go func() {
		ctx, cancel := context.WithTimeout(g.ctx, client.DefaultTimeout)
		defer cancel()
		res := loaded{metaOnly: metaOnly}
		if !metaOnly {
			res.pixels, res.revision, res.err = g.backend.GetPixels(ctx)
		}
		if res.err == nil {
			res.baronies, res.err = g.backend.ListBaronies(ctx)
		}
		g.loads <- res
	}()
}

// Update advances one frame.
func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.drainBackground()

	if g.toasts.Update(g.screenW) {
		return nil
	}
	g.panel.sync(g.sess)
	if g.panel.update(g.sess, g.screenW, g.applyForm) {
		g.flushNotices()
		return nil
	}
	if !g.panel.editing() {
		g.handleKeys()
	}
	g.handleMouse()
	g.flushNotices()
	return nil
}

func (g *Game) drainBackground() {
	for {
		select {
		case res := <-g.loads:
			g.loading = false
			g.applyLoad(res)
		case res, ok := <-g.results:
			if !ok {
				g.results = nil
				continue
			}
			g.sess.HandleResult(res)
		case ev, ok := <-g.events:
			if !ok {
				g.events = nil
				continue
			}
			if g.sess.ApplyEvent(ev) {
				g.reload(false)
			}
		default:
			return
		}
	}
}

func (g *Game) applyLoad(res loaded) {
	if res.err != nil {
		g.log.WithError(res.err).Error("failed to load from backend")
		g.toasts.Notify(session.Notice{Level: session.LevelError, Text: fmt.Sprintf("Could not load from backend: %v", res.err)})
		return
	}
	if !res.metaOnly {
		if err := g.sess.LoadPixels(res.pixels); err != nil {
			g.toasts.Notify(session.Notice{Level: session.LevelError, Text: fmt.Sprintf("Backend pixel data rejected: %v", err)})
			return
		}
		g.sess.SetRevision(res.revision)
	}
	g.sess.SetMeta(res.baronies)
	g.log.WithFields(logrus.Fields{"baronies": len(res.baronies), "revision": res.revision}).Info("loaded from backend")
}

func (g *Game) applyForm() {
	res, err := g.sess.UpdateSelected(g.panel.form)
	if err != nil {
		g.toasts.Notify(session.Notice{Level: session.LevelError, Text: err.Error()})
		return
	}
	if res.Kind == editor.UpdateSwapped {
		g.toasts.Notify(session.Notice{Text: fmt.Sprintf("Swapped baronies %s and %s", res.Touched[1], res.Touched[0])})
	}
}

func (g *Game) flushNotices() {
	for _, n := range g.sess.Notices() {
		g.toasts.Notify(n)
	}
}

func (g *Game) notifyErr(prefix string, err error) {
	g.toasts.Notify(session.Notice{Level: session.LevelError, Text: fmt.Sprintf("%s: %v", prefix, err)})
}

func (g *Game) info(text string) {
	g.toasts.Notify(session.Notice{Text: text})
}

// Draw renders the map, overlay, panel and toasts.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{18, 20, 26, 255})

	st := g.sess.State()
	if rect := g.renderer.Flush(st); !rect.Empty() {
		sub := g.renderer.Image().SubImage(rect).(*image.RGBA)
		g.overlay.SubImage(rect).(*ebiten.Image).WritePixels(packRect(sub, rect))
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(g.view.Scale, g.view.Scale)
	op.GeoM.Translate(g.view.OffsetX, g.view.OffsetY)
	if g.view.Scale >= 2 {
		op.Filter = ebiten.FilterNearest
	} else {
		op.Filter = ebiten.FilterLinear
	}
	if m := g.base.current(); m != nil {
		screen.DrawImage(m.img, op)
	}
	screen.DrawImage(g.overlay, op)

	g.drawBrushCursor(screen)

	info := panelInfo{keybinds: g.keys, baseMap: "none"}
	if g.queue != nil {
		info.pending, info.failed = g.queue.Pending(), g.queue.Failed()
	}
	if m := g.base.current(); m != nil {
		info.baseMap = m.name
	}
	g.panel.draw(screen, g.sess, g.renderer.Thumbnail, info)
	g.toasts.Draw(screen)
}

// packRect copies a sub-rectangle of img into a tightly packed buffer.
func packRect(img *image.RGBA, rect image.Rectangle) []byte {
	w := rect.Dx() * 4
	out := make([]byte, 0, w*rect.Dy())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := img.PixOffset(rect.Min.X, y)
		out = append(out, img.Pix[off:off+w]...)
	}
	return out
}

// Layout keeps a 1:1 pixel mapping and refits the map when the window changes.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.screenW || outsideHeight != g.screenH {
		g.screenW, g.screenH = outsideWidth, outsideHeight
		g.fit()
	}
	return outsideWidth, outsideHeight
}

func (g *Game) fit() {
	g.view.Fit(max(1, g.screenW-panelWidth), g.screenH)
}

// SaveSnapshot writes the current model to the snapshot directory with a thumbnail next to it.
func (g *Game) SaveSnapshot() (string, error) {
	return SaveSnapshot(g.sess.State(), g.renderer.Thumbnail(512, 512))
}

// SaveSnapshot writes st as an LZ4 snapshot under storage.SnapshotDir, plus thumb as PNG when set.
func SaveSnapshot(st *editor.State, thumb image.Image) (string, error) {
	name := "pixels-" + time.Now().Format("20060102-150405")
	path := filepath.Join(storage.SnapshotDir(), name+editor.SnapshotExt)
	if err := editor.SaveSnapshotFile(path, st.Snapshot()); err != nil {
		return "", err
	}
	if thumb != nil {
		if err := writeThumbnail(filepath.Join(storage.SnapshotDir(), name+".png"), thumb); err != nil {
			logrus.WithError(err).Warn("failed to write snapshot thumbnail")
		}
	}
	return path, nil
}

func writeThumbnail(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Run opens the window and blocks until it is closed or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	ebiten.SetWindowTitle("Asgaria barony editor")
	ebiten.SetWindowSize(1440, 900)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	g := New(ctx, opts)
	err := ebiten.RunGameWithOptions(g, &ebiten.RunGameOptions{})
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}
	return err
}
