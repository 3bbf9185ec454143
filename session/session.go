// Package session holds the interactive editing state that sits between raw
// input and the editor model: edit mode, the active tool, merge mode, the
// metadata cache and the queue of backend writes.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/TheNaotagrey/Asgaria/client"
	"github.com/TheNaotagrey/Asgaria/editor"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/sirupsen/logrus"
)

// Jobs queues backend writes. *client.Dispatcher implements it.
type Jobs interface {
	Submit(job client.Job)
	Retry() int
}

// Grouper builds a palette grouping from barony metadata. *javascript.Rule implements it.
type Grouper interface {
	Name() string
	GroupFunc(ctx context.Context, meta map[typedef.RegionID]typedef.Barony) editor.GroupFunc
}

// FilterScript is the filter name of the scripted colour rule.
const FilterScript = "script"

// Session is the editor's interaction state. It is not safe for concurrent use.
type Session struct {
	state *editor.State
	jobs  Jobs
	rule  Grouper
	meta  map[typedef.RegionID]typedef.Barony

	editMode  bool
	tool      editor.Tool
	painting  bool
	mergeBase typedef.RegionID
	filter    string
	edits     uint64
	saved     uint64
	metaUndo  []metaChange
	revision  int64

	notices []Notice
	log     *logrus.Entry
}

// New creates a session around state. rule may be nil.
func New(state *editor.State, jobs Jobs, rule Grouper) *Session {
	return &Session{
		state: state,
		jobs:  jobs,
		rule:  rule,
		meta:  make(map[typedef.RegionID]typedef.Barony),
		log:   logrus.WithField("component", "session"),
	}
}

func (s *Session) State() *editor.State        { return s.state }
func (s *Session) EditMode() bool              { return s.editMode }
func (s *Session) Tool() editor.Tool           { return s.tool }
func (s *Session) Painting() bool              { return s.painting }
func (s *Session) MergeBase() typedef.RegionID { return s.mergeBase }
func (s *Session) Filter() string              { return s.filter }

// Unsaved reports edits the backend has not confirmed, including ones in a pending save.
func (s *Session) Unsaved() bool { return s.edits != s.saved }

func (s *Session) Meta(id typedef.RegionID) (typedef.Barony, bool) {
	b, ok := s.meta[id]
	return b, ok
}

// ToggleEditMode flips edit mode. Leaving it clears the tool, merge mode and the selection.
func (s *Session) ToggleEditMode() {
	s.editMode = !s.editMode
	if !s.editMode {
		s.tool = editor.ToolNone
		s.painting = false
		s.mergeBase = typedef.NoRegion
		s.state.Select(typedef.NoRegion)
	}
}

// SetTool activates a tool. It is ignored outside edit mode and disarms merge mode.
func (s *Session) SetTool(t editor.Tool) {
	if !s.editMode {
		return
	}
	s.tool = t
	s.mergeBase = typedef.NoRegion
}

// Escape clears the selection, painting, merge mode and the tool.
func (s *Session) Escape() {
	s.state.Select(typedef.NoRegion)
	s.painting = false
	s.mergeBase = typedef.NoRegion
	s.tool = editor.ToolNone
}

// Press handles a primary click at map coordinates.
func (s *Session) Press(x, y int) {
	if !s.state.InBounds(x, y) {
		return
	}
	owner := s.state.OwnerAt(x, y)
	if !s.editMode {
		s.state.Select(owner)
		return
	}

	switch s.tool {
	case editor.ToolBrush:
		if s.state.Selected() == typedef.NoRegion {
			return
		}
		s.painting = true
		s.stroke(x, y, false)
	case editor.ToolEraser:
		s.painting = true
		s.stroke(x, y, true)
	case editor.ToolBucket:
		s.fill(x, y)
	default:
		if s.mergeBase != typedef.NoRegion {
			if owner != typedef.NoRegion && owner != s.mergeBase {
				s.merge(s.mergeBase, owner)
				s.mergeBase = typedef.NoRegion
			}
			return
		}
		s.state.Select(owner)
	}
}

// DragTo continues a brush or eraser stroke.
func (s *Session) DragTo(x, y int) {
	if !s.painting || !s.editMode {
		return
	}
	switch s.tool {
	case editor.ToolBrush:
		s.stroke(x, y, false)
	case editor.ToolEraser:
		s.stroke(x, y, true)
	}
}

// Release ends a stroke.
func (s *Session) Release() {
	s.painting = false
}

// EraseAt handles a secondary click: it erases whatever the active tool.
func (s *Session) EraseAt(x, y int) {
	if !s.editMode || !s.state.InBounds(x, y) {
		return
	}
	s.stroke(x, y, true)
}

func (s *Session) stroke(x, y int, erase bool) {
	var (
		n   int
		err error
	)
	if erase {
		n, err = s.state.Erase(x, y)
	} else {
		n, err = s.state.Paint(x, y)
	}
	if err != nil {
		if !errors.Is(err, editor.ErrOutOfBounds) {
			s.warn(err.Error())
		}
		return
	}
	if n > 0 {
		s.touch()
	}
}

func (s *Session) fill(x, y int) {
	res, err := s.state.BucketFill(x, y)
	switch {
	case errors.Is(err, editor.ErrNoSelection):
		return
	case errors.Is(err, editor.ErrBarrierMaskUnavailable):
		s.errorf("Bucket fill disabled: no barrier mask for the base map")
		return
	case err != nil:
		s.errorf("Bucket fill failed: %v", err)
		return
	}
	if res.Filled > 0 {
		s.touch()
	}
	if res.Degraded {
		s.warn(fmt.Sprintf("Filled %d pixels without a barrier mask", res.Filled))
	}
}

// SetBrushSize sets the brush size, clamped by the model.
func (s *Session) SetBrushSize(n int) {
	s.state.SetBrushSize(n)
}

// GrowBrush changes the brush size by delta.
func (s *Session) GrowBrush(delta int) {
	s.state.SetBrushSize(s.state.BrushSize() + delta)
}

// Undo reverts the last action. When the action changed barony metadata the
// previous records are written back to the backend.
func (s *Session) Undo() {
	depth := s.state.UndoDepth()
	if err := s.state.Undo(); err != nil {
		return
	}
	s.touch()

	n := len(s.metaUndo)
	if n == 0 || s.metaUndo[n-1].depth != depth {
		return
	}
	change := s.metaUndo[n-1]
	s.metaUndo = s.metaUndo[:n-1]
	for id, before := range change.before {
		s.restoreMeta(id, before)
	}
	s.applyNames()
	s.refreshFilter()
}

// metaChange holds the metadata a recorded action replaced, keyed by region.
// A nil value means the record did not exist.
type metaChange struct {
	depth  int
	before map[typedef.RegionID]*typedef.Barony
}

func (s *Session) captureMeta(ids ...typedef.RegionID) map[typedef.RegionID]*typedef.Barony {
	out := make(map[typedef.RegionID]*typedef.Barony, len(ids))
	for _, id := range ids {
		if b, ok := s.meta[id]; ok {
			out[id] = &b
		} else {
			out[id] = nil
		}
	}
	return out
}

// pushMeta ties captured metadata to the record the editor just pushed.
func (s *Session) pushMeta(before map[typedef.RegionID]*typedef.Barony) {
	s.metaUndo = append(s.metaUndo, metaChange{depth: s.state.UndoDepth(), before: before})
}

func (s *Session) restoreMeta(id typedef.RegionID, before *typedef.Barony) {
	n, ok := id.Numeric()
	if !ok {
		return
	}
	if before == nil {
		delete(s.meta, id)
		s.jobs.Submit(client.DeleteBaronyJob(n))
		return
	}
	s.meta[id] = *before
	s.jobs.Submit(client.PutBaronyJob(n, before.Fields()))
}

// NewRegion creates an empty region, selects it and switches to the brush.
func (s *Session) NewRegion() typedef.RegionID {
	if !s.editMode {
		return typedef.NoRegion
	}
	id := s.state.NextRegionID()
	before := s.captureMeta(id)
	s.state.CreateRegion()
	s.pushMeta(before)
	if n, ok := id.Numeric(); ok {
		s.meta[id] = typedef.Barony{ID: n}
		s.jobs.Submit(client.PutBaronyJob(n, typedef.BaronyFields{}))
	}
	s.tool = editor.ToolBrush
	s.mergeBase = typedef.NoRegion
	s.touch()
	return id
}

// DeleteSelected removes the selected region locally and on the backend.
func (s *Session) DeleteSelected() {
	id := s.state.Selected()
	if !s.editMode || id == typedef.NoRegion {
		return
	}
	before := s.captureMeta(id)
	if err := s.state.DeleteRegion(id); err != nil {
		s.errorf("Delete failed: %v", err)
		return
	}
	s.pushMeta(before)
	delete(s.meta, id)
	if n, ok := id.Numeric(); ok {
		s.jobs.Submit(client.DeleteBaronyJob(n))
	}
	s.touch()
}

// ArmMerge arms merge mode with the selection as base. The next primary click
// on another region merges it into the base.
func (s *Session) ArmMerge() bool {
	base := s.state.Selected()
	if !s.editMode || base == typedef.NoRegion {
		return false
	}
	s.tool = editor.ToolNone
	s.mergeBase = base
	s.info(fmt.Sprintf("Merge mode: click the barony to merge into %s", base))
	return true
}

func (s *Session) merge(base, absorbed typedef.RegionID) {
	before := s.captureMeta(absorbed)
	if err := s.state.MergeRegions(base, absorbed); err != nil {
		s.errorf("Merge failed: %v", err)
		return
	}
	s.pushMeta(before)
	delete(s.meta, absorbed)
	if n, ok := absorbed.Numeric(); ok {
		s.jobs.Submit(client.DeleteBaronyJob(n))
	}
	s.touch()
}

func (s *Session) touch() { s.edits++ }

// Save queues a full pixel save.
func (s *Session) Save() {
	job := client.SavePixelsJob(s.state.Export())
	job.Seq = s.edits
	s.jobs.Submit(job)
}

// Retry resubmits failed backend writes.
func (s *Session) Retry() {
	if n := s.jobs.Retry(); n > 0 {
		s.info(fmt.Sprintf("Retrying %d failed request(s)", n))
	} else {
		s.info("Nothing to retry")
	}
}

// RandomColors picks random hues for regions or groups.
func (s *Session) RandomColors() {
	s.state.RandomizeColors()
}

// Filters returns the filter cycle, starting with no filter.
func (s *Session) Filters() []string {
	out := append([]string{""}, editor.Filters...)
	if s.rule != nil {
		out = append(out, FilterScript)
	}
	return out
}

// SetFilter applies a colour filter by name. The empty name restores per-region colours.
func (s *Session) SetFilter(name string) error {
	switch name {
	case "":
		s.state.SetGrouping(nil)
	case FilterScript:
		if s.rule == nil {
			return fmt.Errorf("no colour script loaded")
		}
		s.state.SetGrouping(s.rule.GroupFunc(context.Background(), s.metaSnapshot()))
	default:
		g, err := editor.FieldGrouping(name, s.metaSnapshot(), nil)
		if err != nil {
			return err
		}
		s.state.SetGrouping(g)
	}
	s.filter = name
	return nil
}

// CycleFilter moves to the next colour filter.
func (s *Session) CycleFilter() string {
	filters := s.Filters()
	next := 0
	for i, f := range filters {
		if f == s.filter {
			next = (i + 1) % len(filters)
			break
		}
	}
	if err := s.SetFilter(filters[next]); err != nil {
		s.errorf("Filter: %v", err)
		s.SetFilter("")
	}
	return s.filter
}

func (s *Session) refreshFilter() {
	if s.filter != "" {
		if err := s.SetFilter(s.filter); err != nil {
			s.SetFilter("")
		}
	}
}

func (s *Session) metaSnapshot() map[typedef.RegionID]typedef.Barony {
	out := make(map[typedef.RegionID]typedef.Barony, len(s.meta))
	for id, b := range s.meta {
		out[id] = b
	}
	return out
}

// LoadPixels replaces the model with data from the backend or a file.
func (s *Session) LoadPixels(data typedef.PixelData) error {
	if err := s.state.Load(data); err != nil {
		return err
	}
	s.painting = false
	s.mergeBase = typedef.NoRegion
	s.metaUndo = nil
	s.edits++
	s.saved = s.edits
	s.applyNames()
	s.refreshFilter()
	return nil
}

// ImportJSON replaces the model with clipboard JSON.
func (s *Session) ImportJSON(raw []byte) error {
	if err := s.state.ImportJSON(raw); err != nil {
		return err
	}
	s.painting = false
	s.mergeBase = typedef.NoRegion
	s.metaUndo = nil
	s.touch()
	s.applyNames()
	s.refreshFilter()
	return nil
}

// RestoreSnapshot replaces the model with a local snapshot.
func (s *Session) RestoreSnapshot(snap *editor.Snapshot) error {
	if err := s.state.Restore(snap); err != nil {
		return err
	}
	s.painting = false
	s.mergeBase = typedef.NoRegion
	s.metaUndo = nil
	s.touch()
	s.applyNames()
	s.refreshFilter()
	return nil
}

// SetMeta replaces the metadata cache and names regions from it.
func (s *Session) SetMeta(list []typedef.Barony) {
	s.meta = make(map[typedef.RegionID]typedef.Barony, len(list))
	for _, b := range list {
		s.meta[b.RegionID()] = b
	}
	s.applyNames()
	s.refreshFilter()
}

func (s *Session) applyNames() {
	names := make(map[typedef.RegionID]string, len(s.meta))
	for id, b := range s.meta {
		names[id] = b.Name
	}
	s.state.SetRegionNames(names)
}

// Notices returns and clears pending user messages.
func (s *Session) Notices() []Notice {
	out := s.notices
	s.notices = nil
	return out
}
