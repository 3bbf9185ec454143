package editor

import (
	"fmt"
	"strconv"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/sirupsen/logrus"
)

// UpdateKind describes what UpdateRegion did.
type UpdateKind int

const (
	UpdateNone UpdateKind = iota
	UpdateRenamed
	UpdateMoved
	UpdateSwapped
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateRenamed:
		return "renamed"
	case UpdateMoved:
		return "moved"
	case UpdateSwapped:
		return "swapped"
	default:
		return "none"
	}
}

// UpdateResult reports the outcome of UpdateRegion and which regions now carry new metadata.
type UpdateResult struct {
	Kind    UpdateKind
	Touched []typedef.RegionID
}

// NextRegionID returns the largest numeric region id plus one, or "1".
func (s *State) NextRegionID() typedef.RegionID {
	var maxID int64
	for id := range s.regions {
		if n, ok := id.Numeric(); ok && n > maxID {
			maxID = n
		}
	}
	return typedef.RegionID(strconv.FormatInt(maxID+1, 10))
}

// CreateRegion adds an empty region with the next free id and selects it.
func (s *State) CreateRegion() typedef.RegionID {
	id := s.NextRegionID()
	s.ensureRegion(id)
	s.setSelected(id)
	s.undo.push(CreateRecord{ID: id})
	s.log.WithField("region", id).Debug("region created")
	return id
}

// DeleteRegion removes a region and unassigns its pixels.
func (s *State) DeleteRegion(id typedef.RegionID) error {
	r, ok := s.regions[id]
	if !ok {
		return fmt.Errorf("delete %q: %w", id, ErrRegionNotFound)
	}
	rec := DeleteRecord{ID: id, Name: r.name, Pixels: s.coords(r.pixels)}
	s.dropRegion(id)
	s.undo.push(rec)
	s.log.WithFields(logrus.Fields{"region": id, "pixels": len(rec.Pixels)}).Debug("region deleted")
	return nil
}

// MergeRegions moves every pixel of absorbed into base, removes absorbed and selects base.
func (s *State) MergeRegions(base, absorbed typedef.RegionID) error {
	if base == absorbed {
		return ErrSameRegion
	}
	if !s.HasRegion(base) {
		return fmt.Errorf("merge into %q: %w", base, ErrRegionNotFound)
	}
	r, ok := s.regions[absorbed]
	if !ok {
		return fmt.Errorf("merge %q: %w", absorbed, ErrRegionNotFound)
	}

	rec := MergeRecord{Base: base, Absorbed: absorbed, Name: r.name, Pixels: s.coords(r.pixels)}
	s.movePixels(absorbed, base)
	delete(s.regions, absorbed)
	s.palette.Forget(absorbed)
	if s.selected == absorbed {
		s.selected = typedef.NoRegion
	}
	s.setSelected(base)
	s.undo.push(rec)
	s.log.WithFields(logrus.Fields{"base": base, "absorbed": absorbed, "pixels": len(rec.Pixels)}).Debug("regions merged")
	return nil
}

// UpdateRegion changes the id and name of oldID.
//
// Same id: only the name changes. Fresh id: pixels move to newID and oldID is
// removed. Existing id: the two regions exchange pixel sets, oldID takes newID's
// former name and newID takes newName. In the last two cases newID becomes selected.
func (s *State) UpdateRegion(oldID, newID typedef.RegionID, newName string) (UpdateResult, error) {
	if newID == typedef.NoRegion {
		return UpdateResult{}, ErrEmptyRegionID
	}
	old, ok := s.regions[oldID]
	if !ok {
		return UpdateResult{}, fmt.Errorf("update %q: %w", oldID, ErrRegionNotFound)
	}

	if newID == oldID {
		if old.name == newName {
			return UpdateResult{Kind: UpdateNone}, nil
		}
		s.undo.push(RenameRecord{OldID: oldID, NewID: oldID, OldName: old.name, NewName: newName})
		old.name = newName
		return UpdateResult{Kind: UpdateRenamed, Touched: []typedef.RegionID{oldID}}, nil
	}

	if other, exists := s.regions[newID]; exists {
		rec := SwapRecord{First: oldID, Second: newID, FirstName: old.name, SecondName: other.name}
		swapPixels(s, oldID, newID)
		old.name = rec.SecondName
		other.name = newName
		s.palette.Forget(oldID)
		s.palette.Forget(newID)
		s.setSelected(newID)
		s.undo.push(rec)
		return UpdateResult{Kind: UpdateSwapped, Touched: []typedef.RegionID{newID, oldID}}, nil
	}

	rec := RenameRecord{OldID: oldID, NewID: newID, OldName: old.name, NewName: newName}
	s.movePixels(oldID, newID)
	s.regions[newID].name = newName
	wasSelected := s.selected == oldID
	delete(s.regions, oldID)
	s.palette.Forget(oldID)
	if wasSelected {
		s.selected = typedef.NoRegion
	}
	s.setSelected(newID)
	s.undo.push(rec)
	return UpdateResult{Kind: UpdateMoved, Touched: []typedef.RegionID{newID}}, nil
}

// swapPixels exchanges the pixel sets of a and b. Both regions must exist.
func swapPixels(s *State, a, b typedef.RegionID) {
	ra, rb := s.regions[a], s.regions[b]
	for _, off := range ra.pixels {
		s.owner[off] = b
		s.markDirty(off)
	}
	for _, off := range rb.pixels {
		s.owner[off] = a
		s.markDirty(off)
	}
	// Slots are positions within the list, so they stay valid when the lists trade places.
	ra.pixels, rb.pixels = rb.pixels, ra.pixels
}
