package editor

import (
	"fmt"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/sirupsen/logrus"
)

// FillResult contains the outcome of a bucket fill.
type FillResult struct {
	Filled int
	// Degraded is set when the fill ran without a barrier mask.
	Degraded bool
}

// BucketFill floods the 4-connected area around (x, y) with the selected region.
//
// When the seed is owned by another region, every connected pixel still owned
// by that region is taken. When the seed is unowned, connected unowned pixels
// are filled. Barrier pixels are never entered. Seeding inside the selected
// region does nothing.
func (s *State) BucketFill(x, y int) (FillResult, error) {
	if !s.InBounds(x, y) {
		return FillResult{}, fmt.Errorf("bucket fill (%d,%d): %w", x, y, ErrOutOfBounds)
	}
	if s.selected == typedef.NoRegion {
		return FillResult{}, ErrNoSelection
	}
	degraded := false
	if s.barrier == nil {
		if !s.allowUnbounded {
			return FillResult{}, ErrBarrierMaskUnavailable
		}
		degraded = true
	}

	fillID := s.selected
	seed := int32(y*s.width + x)
	matchID := s.owner[seed]
	if matchID == fillID {
		return FillResult{Degraded: degraded}, nil
	}

	visited := make([]uint64, (len(s.owner)+63)/64)
	stack := []int32{seed}
	var changes []PixelChange

	for len(stack) > 0 {
		off := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[off>>6]&(1<<(off&63)) != 0 {
			continue
		}
		visited[off>>6] |= 1 << (off & 63)

		if s.barrier != nil && s.barrier.bits[off] {
			continue
		}
		if s.owner[off] != matchID {
			continue
		}

		s.setOwner(off, fillID)
		cx, cy := int(off)%s.width, int(off)/s.width
		changes = append(changes, PixelChange{At: typedef.Coord{X: cx, Y: cy}, Old: matchID, New: fillID})

		if cx+1 < s.width {
			stack = append(stack, off+1)
		}
		if cx > 0 {
			stack = append(stack, off-1)
		}
		if cy+1 < s.height {
			stack = append(stack, off+int32(s.width))
		}
		if cy > 0 {
			stack = append(stack, off-int32(s.width))
		}
	}

	s.undo.push(PaintRecord{Changes: changes})

	if degraded && len(changes) > 0 {
		s.log.WithFields(logrus.Fields{"region": fillID, "pixels": len(changes)}).Warn("bucket fill ran without barrier mask")
	}
	return FillResult{Filled: len(changes), Degraded: degraded}, nil
}
