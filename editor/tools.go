package editor

import (
	"github.com/TheNaotagrey/Asgaria/typedef"
)

// Tool is an edit tool selectable in the GUI.
type Tool int

const (
	ToolNone Tool = iota
	ToolBrush
	ToolEraser
	ToolBucket
)

func (t Tool) String() string {
	switch t {
	case ToolBrush:
		return "brush"
	case ToolEraser:
		return "eraser"
	case ToolBucket:
		return "bucket"
	default:
		return "none"
	}
}

// ApplyBrush paints target, or erases when erase is set, over the square brush
// centred on (cx, cy). The square is clipped to the map. All changes are recorded
// as one paint record. It returns the number of pixels changed.
func (s *State) ApplyBrush(cx, cy int, target typedef.RegionID, erase bool) (int, error) {
	if !erase && target == typedef.NoRegion {
		return 0, ErrNoSelection
	}
	if !erase && !s.HasRegion(target) {
		return 0, ErrRegionNotFound
	}

	half := s.brushSize / 2
	var changes []PixelChange
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			x, y := cx+dx, cy+dy
			if !s.InBounds(x, y) {
				continue
			}
			off := int32(y*s.width + x)
			old := s.owner[off]
			if erase {
				if old == typedef.NoRegion {
					continue
				}
				s.clearOwner(off)
				changes = append(changes, PixelChange{At: typedef.Coord{X: x, Y: y}, Old: old})
				continue
			}
			if old == target {
				continue
			}
			s.setOwner(off, target)
			changes = append(changes, PixelChange{At: typedef.Coord{X: x, Y: y}, Old: old, New: target})
		}
	}

	s.undo.push(PaintRecord{Changes: changes})
	return len(changes), nil
}

// Paint applies the brush with the selected region.
func (s *State) Paint(cx, cy int) (int, error) {
	return s.ApplyBrush(cx, cy, s.selected, false)
}

// Erase clears owned pixels under the brush.
func (s *State) Erase(cx, cy int) (int, error) {
	return s.ApplyBrush(cx, cy, typedef.NoRegion, true)
}
