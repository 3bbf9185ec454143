// Package editor implements the barony painting engine: pixel ownership,
// edit tools, region operations, undo, colouring and rendering.
//
// A State is not safe for concurrent use. The GUI owns it from its update
// loop and hands deep copies (Export, Snapshot) to background workers.
package editor

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/sirupsen/logrus"
)

const (
	DefaultWidth  = 1724
	DefaultHeight = 1291

	MinBrushSize     = 1
	MaxBrushSize     = 64
	DefaultBrushSize = 5
)

// Options configures a new State.
type Options struct {
	Width     int
	Height    int
	BrushSize int
	// AllowUnboundedFill lets the bucket tool run without a barrier mask.
	AllowUnboundedFill bool
	// ColorSeed seeds the random colour generator. Zero picks a time-based seed.
	ColorSeed uint64
}

type region struct {
	name   string
	pixels []int32
}

// State is the editor model: ownership grid, regions, barrier mask, palette, selection and undo log.
type State struct {
	width  int
	height int

	// owner[y*width+x] is the region owning the pixel.
	owner []typedef.RegionID
	// slot[y*width+x] is the pixel's position in its owner's pixel list, -1 when unowned.
	slot    []int32
	regions map[typedef.RegionID]*region

	barrier        *BarrierMask
	allowUnbounded bool

	palette   *Palette
	undo      UndoLog
	selected  typedef.RegionID
	brushSize int

	dirty      image.Rectangle
	fullRedraw bool

	log *logrus.Entry
}

// New creates an empty State with a fixed-size ownership grid.
func New(opts Options) (*State, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid map size %dx%d", opts.Width, opts.Height)
	}
	if opts.BrushSize == 0 {
		opts.BrushSize = DefaultBrushSize
	}

	n := opts.Width * opts.Height
	s := &State{
		width:          opts.Width,
		height:         opts.Height,
		owner:          make([]typedef.RegionID, n),
		slot:           make([]int32, n),
		regions:        make(map[typedef.RegionID]*region),
		allowUnbounded: opts.AllowUnboundedFill,
		palette:        NewPalette(opts.ColorSeed),
		fullRedraw:     true,
		log:            logrus.WithField("component", "editor"),
	}
	for i := range s.slot {
		s.slot[i] = -1
	}
	s.SetBrushSize(opts.BrushSize)
	return s, nil
}

func (s *State) Width() int  { return s.width }
func (s *State) Height() int { return s.height }

// InBounds reports whether (x, y) lies on the map.
func (s *State) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.width && y < s.height
}

// OwnerAt returns the region owning (x, y), or NoRegion.
func (s *State) OwnerAt(x, y int) typedef.RegionID {
	if !s.InBounds(x, y) {
		return typedef.NoRegion
	}
	return s.owner[y*s.width+x]
}

// HasRegion reports whether the region exists, even with no pixels.
func (s *State) HasRegion(id typedef.RegionID) bool {
	_, ok := s.regions[id]
	return ok
}

// Regions returns every region id, numeric ids first.
func (s *State) Regions() []typedef.RegionID {
	ids := make([]typedef.RegionID, 0, len(s.regions))
	for id := range s.regions {
		ids = append(ids, id)
	}
	typedef.SortRegionIDs(ids)
	return ids
}

// RegionName returns the display name of a region.
func (s *State) RegionName(id typedef.RegionID) string {
	if r, ok := s.regions[id]; ok {
		return r.name
	}
	return ""
}

// SetRegionNames sets display names for existing regions without recording undo.
// It is used when metadata arrives from the backend.
func (s *State) SetRegionNames(names map[typedef.RegionID]string) {
	for id, name := range names {
		if r, ok := s.regions[id]; ok {
			r.name = name
		}
	}
}

// PixelCount returns how many pixels a region owns.
func (s *State) PixelCount(id typedef.RegionID) int {
	if r, ok := s.regions[id]; ok {
		return len(r.pixels)
	}
	return 0
}

// Pixels returns a copy of a region's pixel list.
func (s *State) Pixels(id typedef.RegionID) []typedef.Coord {
	r, ok := s.regions[id]
	if !ok {
		return nil
	}
	return s.coords(r.pixels)
}

// Bounds returns the bounding rectangle of a region's pixels.
func (s *State) Bounds(id typedef.RegionID) image.Rectangle {
	r, ok := s.regions[id]
	if !ok {
		return image.Rectangle{}
	}
	var rect image.Rectangle
	for _, off := range r.pixels {
		x, y := int(off)%s.width, int(off)/s.width
		rect = rect.Union(image.Rect(x, y, x+1, y+1))
	}
	return rect
}

// Selected returns the selected region, or NoRegion.
func (s *State) Selected() typedef.RegionID {
	return s.selected
}

// Select changes the selected region. NoRegion clears the selection.
func (s *State) Select(id typedef.RegionID) error {
	if id != typedef.NoRegion && !s.HasRegion(id) {
		return fmt.Errorf("select %q: %w", id, ErrRegionNotFound)
	}
	s.setSelected(id)
	return nil
}

func (s *State) setSelected(id typedef.RegionID) {
	if id == s.selected {
		return
	}
	// Selection changes the alpha of both regions.
	s.markRegionDirty(s.selected)
	s.selected = id
	s.markRegionDirty(id)
}

// BrushSize returns the current brush side length.
func (s *State) BrushSize() int {
	return s.brushSize
}

// SetBrushSize sets the brush side length, clamped to [MinBrushSize, MaxBrushSize].
func (s *State) SetBrushSize(size int) {
	s.brushSize = max(MinBrushSize, min(MaxBrushSize, size))
}

// BarrierMask returns the active barrier mask, or nil when none is loaded.
func (s *State) BarrierMask() *BarrierMask {
	return s.barrier
}

// SetBarrierMask replaces the barrier mask. Nil marks the mask unavailable.
func (s *State) SetBarrierMask(m *BarrierMask) {
	if m != nil && (m.width != s.width || m.height != s.height) {
		s.log.WithFields(logrus.Fields{
			"mask": fmt.Sprintf("%dx%d", m.width, m.height),
			"map":  fmt.Sprintf("%dx%d", s.width, s.height),
		}).Warn("barrier mask size does not match map, ignoring")
		m = nil
	}
	s.barrier = m
}

// Palette returns the colour palette.
func (s *State) Palette() *Palette {
	return s.palette
}

// RandomizeColors assigns random hues to every region, or to every group when a grouping is active.
func (s *State) RandomizeColors() {
	s.palette.Randomize(s.Regions())
	s.fullRedraw = true
}

// SetGrouping colours regions by group. Nil restores per-region colours.
func (s *State) SetGrouping(g GroupFunc) {
	s.palette.SetGrouping(g)
	s.fullRedraw = true
}

// Legend returns the legend for the active grouping, or nil.
func (s *State) Legend() []LegendEntry {
	return s.palette.Legend(s.Regions())
}

// Undo reverts the most recent recorded action.
func (s *State) Undo() error {
	rec, ok := s.undo.pop()
	if !ok {
		return ErrNothingToUndo
	}
	rec.revert(s)
	s.log.WithField("kind", rec.Kind()).Debug("undo")
	return nil
}

// UndoDepth returns the number of records in the undo log.
func (s *State) UndoDepth() int {
	return s.undo.Len()
}

// TakeDirty returns and resets the area changed since the last call.
// full is true when everything must be redrawn.
func (s *State) TakeDirty() (rect image.Rectangle, full bool) {
	rect, full = s.dirty, s.fullRedraw
	s.dirty = image.Rectangle{}
	s.fullRedraw = false
	return rect, full
}

// Load replaces the whole model with data. Names are kept for ids that survive.
// Malformed data leaves the model unchanged.
func (s *State) Load(data typedef.PixelData) error {
	if err := s.validate(data); err != nil {
		return err
	}

	names := make(map[typedef.RegionID]string, len(s.regions))
	for id, r := range s.regions {
		names[id] = r.name
	}

	for i := range s.owner {
		s.owner[i] = typedef.NoRegion
		s.slot[i] = -1
	}
	s.regions = make(map[typedef.RegionID]*region, len(data))

	overlaps := 0
	for _, id := range data.IDs() {
		r := s.ensureRegion(id)
		r.name = names[id]
		for _, c := range data[id] {
			off := int32(c.Y*s.width + c.X)
			if s.owner[off] != typedef.NoRegion && s.owner[off] != id {
				overlaps++
			}
			s.setOwner(off, id)
		}
	}

	s.undo.Clear()
	s.selected = typedef.NoRegion
	s.palette.Reset()
	s.fullRedraw = true

	entry := s.log.WithFields(logrus.Fields{
		"regions": len(s.regions),
		"pixels":  data.PixelCount(),
	})
	if overlaps > 0 {
		entry.WithField("overlaps", overlaps).Warn("pixel data had overlapping regions, later ids won")
	} else {
		entry.Info("pixel data loaded")
	}
	return nil
}

func (s *State) validate(data typedef.PixelData) error {
	for id, coords := range data {
		if id == typedef.NoRegion {
			return fmt.Errorf("%w: empty region id", ErrMalformedPixelData)
		}
		for _, c := range coords {
			if !s.InBounds(c.X, c.Y) {
				return fmt.Errorf("%w: region %q has pixel (%d,%d) outside %dx%d",
					ErrMalformedPixelData, id, c.X, c.Y, s.width, s.height)
			}
		}
	}
	return nil
}

// Export returns a deep copy of the forward ownership map.
func (s *State) Export() typedef.PixelData {
	out := make(typedef.PixelData, len(s.regions))
	for id, r := range s.regions {
		out[id] = s.coords(r.pixels)
	}
	return out
}

// ImportJSON parses pixel JSON and loads it. Malformed input leaves the model unchanged.
func (s *State) ImportJSON(raw []byte) error {
	var data typedef.PixelData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPixelData, err)
	}
	return s.Load(data)
}

// ExportJSON returns the pixel map as indented JSON.
func (s *State) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Export(), "", "  ")
}

func (s *State) coords(offs []int32) []typedef.Coord {
	out := make([]typedef.Coord, len(offs))
	for i, off := range offs {
		out[i] = typedef.Coord{X: int(off) % s.width, Y: int(off) / s.width}
	}
	return out
}

func (s *State) offset(c typedef.Coord) int32 {
	return int32(c.Y*s.width + c.X)
}

func (s *State) markDirty(off int32) {
	x, y := int(off)%s.width, int(off)/s.width
	s.dirty = s.dirty.Union(image.Rect(x, y, x+1, y+1))
}

func (s *State) markRegionDirty(id typedef.RegionID) {
	if id == typedef.NoRegion {
		return
	}
	s.dirty = s.dirty.Union(s.Bounds(id))
}
