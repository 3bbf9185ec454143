package editor

import "github.com/TheNaotagrey/Asgaria/typedef"

// Record is one undoable action. The set of implementations is closed.
type Record interface {
	Kind() string
	revert(s *State)
}

// PixelChange is a single ownership transition. NoRegion means unowned.
type PixelChange struct {
	At  typedef.Coord
	Old typedef.RegionID
	New typedef.RegionID
}

// PaintRecord covers brush, eraser and bucket strokes.
type PaintRecord struct {
	Changes []PixelChange
}

// DeleteRecord holds a removed region.
type DeleteRecord struct {
	ID     typedef.RegionID
	Name   string
	Pixels []typedef.Coord
}

// MergeRecord holds the region absorbed into Base.
type MergeRecord struct {
	Base     typedef.RegionID
	Absorbed typedef.RegionID
	Name     string
	Pixels   []typedef.Coord
}

// SwapRecord holds the names of two regions before their pixels and names were exchanged.
type SwapRecord struct {
	First      typedef.RegionID
	Second     typedef.RegionID
	FirstName  string
	SecondName string
}

// CreateRecord holds a newly created region.
type CreateRecord struct {
	ID typedef.RegionID
}

// RenameRecord holds a name change, and an id change when OldID != NewID.
type RenameRecord struct {
	OldID   typedef.RegionID
	NewID   typedef.RegionID
	OldName string
	NewName string
}

func (PaintRecord) Kind() string  { return "paint" }
func (DeleteRecord) Kind() string { return "delete" }
func (MergeRecord) Kind() string  { return "merge" }
func (SwapRecord) Kind() string   { return "swap" }
func (CreateRecord) Kind() string { return "create" }
func (RenameRecord) Kind() string { return "rename" }

func (r PaintRecord) revert(s *State) {
	for i := len(r.Changes) - 1; i >= 0; i-- {
		c := r.Changes[i]
		off := s.offset(c.At)
		if c.Old == typedef.NoRegion {
			s.clearOwner(off)
		} else {
			s.setOwner(off, c.Old)
		}
	}
}

func (r DeleteRecord) revert(s *State) {
	reg := s.ensureRegion(r.ID)
	reg.name = r.Name
	for _, c := range r.Pixels {
		s.setOwner(s.offset(c), r.ID)
	}
}

func (r MergeRecord) revert(s *State) {
	reg := s.ensureRegion(r.Absorbed)
	reg.name = r.Name
	for _, c := range r.Pixels {
		s.setOwner(s.offset(c), r.Absorbed)
	}
}

func (r SwapRecord) revert(s *State) {
	swapPixels(s, r.First, r.Second)
	s.regions[r.First].name = r.FirstName
	s.regions[r.Second].name = r.SecondName
	if s.selected == r.Second {
		s.setSelected(r.First)
	}
}

func (r CreateRecord) revert(s *State) {
	s.dropRegion(r.ID)
}

func (r RenameRecord) revert(s *State) {
	if r.OldID == r.NewID {
		if reg, ok := s.regions[r.OldID]; ok {
			reg.name = r.OldName
		}
		return
	}
	s.movePixels(r.NewID, r.OldID)
	s.regions[r.OldID].name = r.OldName
	wasSelected := s.selected == r.NewID
	delete(s.regions, r.NewID)
	s.palette.Forget(r.NewID)
	if wasSelected {
		s.selected = typedef.NoRegion
		s.setSelected(r.OldID)
	}
}

// UndoLog is a LIFO of records. There is no redo.
type UndoLog struct {
	records []Record
}

// push appends rec unless it carries no change.
func (l *UndoLog) push(rec Record) {
	if p, ok := rec.(PaintRecord); ok && len(p.Changes) == 0 {
		return
	}
	l.records = append(l.records, rec)
}

func (l *UndoLog) pop() (Record, bool) {
	if len(l.records) == 0 {
		return nil, false
	}
	rec := l.records[len(l.records)-1]
	l.records[len(l.records)-1] = nil
	l.records = l.records[:len(l.records)-1]
	return rec, true
}

// Peek returns the most recent record without removing it.
func (l *UndoLog) Peek() (Record, bool) {
	if len(l.records) == 0 {
		return nil, false
	}
	return l.records[len(l.records)-1], true
}

func (l *UndoLog) Len() int { return len(l.records) }

func (l *UndoLog) Clear() { l.records = nil }

// LastRecord returns the most recent undo record.
func (s *State) LastRecord() (Record, bool) {
	return s.undo.Peek()
}
