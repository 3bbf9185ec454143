package editor

import (
	"fmt"

	"github.com/TheNaotagrey/Asgaria/typedef"
)

// SetPixel assigns (x, y) to id without recording undo. It reports whether ownership changed.
func (s *State) SetPixel(x, y int, id typedef.RegionID) (bool, error) {
	if !s.InBounds(x, y) {
		return false, fmt.Errorf("set pixel (%d,%d): %w", x, y, ErrOutOfBounds)
	}
	if id == typedef.NoRegion {
		return s.clearOwner(int32(y*s.width + x)), nil
	}
	return s.setOwner(int32(y*s.width+x), id), nil
}

// ClearPixel makes (x, y) unowned without recording undo. It reports whether ownership changed.
func (s *State) ClearPixel(x, y int) (bool, error) {
	if !s.InBounds(x, y) {
		return false, fmt.Errorf("clear pixel (%d,%d): %w", x, y, ErrOutOfBounds)
	}
	return s.clearOwner(int32(y*s.width + x)), nil
}

func (s *State) setOwner(off int32, id typedef.RegionID) bool {
	if s.owner[off] == id {
		return false
	}
	s.detach(off)
	r := s.ensureRegion(id)
	s.slot[off] = int32(len(r.pixels))
	r.pixels = append(r.pixels, off)
	s.owner[off] = id
	s.markDirty(off)
	return true
}

func (s *State) clearOwner(off int32) bool {
	if s.owner[off] == typedef.NoRegion {
		return false
	}
	s.detach(off)
	s.owner[off] = typedef.NoRegion
	s.markDirty(off)
	return true
}

// detach removes off from its owner's pixel list by swapping in the last entry.
func (s *State) detach(off int32) {
	prev := s.owner[off]
	if prev == typedef.NoRegion {
		return
	}
	r := s.regions[prev]
	i := s.slot[off]
	last := len(r.pixels) - 1
	moved := r.pixels[last]
	r.pixels[i] = moved
	s.slot[moved] = i
	r.pixels = r.pixels[:last]
	s.slot[off] = -1
}

func (s *State) ensureRegion(id typedef.RegionID) *region {
	r, ok := s.regions[id]
	if !ok {
		r = &region{}
		s.regions[id] = r
	}
	return r
}

// dropRegion clears every pixel of id and removes it.
func (s *State) dropRegion(id typedef.RegionID) {
	r, ok := s.regions[id]
	if !ok {
		return
	}
	for len(r.pixels) > 0 {
		s.clearOwner(r.pixels[len(r.pixels)-1])
	}
	delete(s.regions, id)
	s.palette.Forget(id)
	if s.selected == id {
		s.selected = typedef.NoRegion
	}
}

// movePixels reassigns every pixel of from to to, creating to if needed.
func (s *State) movePixels(from, to typedef.RegionID) {
	r, ok := s.regions[from]
	if !ok {
		return
	}
	s.ensureRegion(to)
	for len(r.pixels) > 0 {
		s.setOwner(r.pixels[len(r.pixels)-1], to)
	}
}

// CheckConsistency verifies that the forward lists and the inverse index agree.
func (s *State) CheckConsistency() error {
	seen := 0
	for id, r := range s.regions {
		if id == typedef.NoRegion {
			return fmt.Errorf("region with empty id")
		}
		for i, off := range r.pixels {
			if s.owner[off] != id {
				return fmt.Errorf("pixel %d listed under %q but index says %q", off, id, s.owner[off])
			}
			if s.slot[off] != int32(i) {
				return fmt.Errorf("pixel %d of %q has slot %d, want %d", off, id, s.slot[off], i)
			}
		}
		seen += len(r.pixels)
	}
	owned := 0
	for off, id := range s.owner {
		if id == typedef.NoRegion {
			if s.slot[off] != -1 {
				return fmt.Errorf("unowned pixel %d has slot %d", off, s.slot[off])
			}
			continue
		}
		if _, ok := s.regions[id]; !ok {
			return fmt.Errorf("pixel %d owned by missing region %q", off, id)
		}
		owned++
	}
	if owned != seen {
		return fmt.Errorf("index has %d owned pixels but lists hold %d", owned, seen)
	}
	return nil
}
