package editor

import "errors"

var (
	// ErrOutOfBounds is returned for coordinates outside the map.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrNoSelection is returned when an operation needs a selected region.
	ErrNoSelection = errors.New("no region selected")
	// ErrRegionNotFound is returned when a region id does not exist.
	ErrRegionNotFound = errors.New("region not found")
	// ErrEmptyRegionID is returned when a rename targets the empty id.
	ErrEmptyRegionID = errors.New("region id must not be empty")
	// ErrSameRegion is returned when merging a region into itself.
	ErrSameRegion = errors.New("cannot merge a region into itself")
	// ErrBarrierMaskUnavailable is returned by the bucket tool when the base map could not be analysed.
	ErrBarrierMaskUnavailable = errors.New("barrier mask unavailable")
	// ErrMalformedPixelData is returned when imported pixel data cannot be applied.
	ErrMalformedPixelData = errors.New("malformed pixel data")
	// ErrNothingToUndo is returned when the undo log is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
)
