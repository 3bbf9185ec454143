package typedef

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// RegionID identifies a barony on the pixel map. The empty string means "unowned".
type RegionID string

const NoRegion RegionID = ""

// Numeric returns the id as an integer when it is purely numeric.
func (id RegionID) Numeric() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Coord is a pixel coordinate on the base map. It is encoded as a JSON [x, y] pair.
type Coord struct {
	X int
	Y int
}

func (c Coord) MarshalJSON() ([]byte, error) {
	return []byte("[" + strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y) + "]"), nil
}

func (c *Coord) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coordinate must be an [x, y] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate must have exactly 2 elements, got %d", len(pair))
	}
	c.X, c.Y = pair[0], pair[1]
	return nil
}

// PixelData is the forward ownership map exchanged with the backend: region id to its pixel list.
type PixelData map[RegionID][]Coord

// IDs returns the region ids sorted numerically where possible, then lexically.
func (p PixelData) IDs() []RegionID {
	ids := make([]RegionID, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	SortRegionIDs(ids)
	return ids
}

// PixelCount returns the total number of pixels across all regions.
func (p PixelData) PixelCount() int {
	total := 0
	for _, coords := range p {
		total += len(coords)
	}
	return total
}

// Clone returns a deep copy.
func (p PixelData) Clone() PixelData {
	out := make(PixelData, len(p))
	for id, coords := range p {
		cp := make([]Coord, len(coords))
		copy(cp, coords)
		out[id] = cp
	}
	return out
}

// SortRegionIDs orders numeric ids by value before any non-numeric ids.
func SortRegionIDs(ids []RegionID) {
	sort.Slice(ids, func(i, j int) bool {
		a, aok := ids[i].Numeric()
		b, bok := ids[j].Numeric()
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		default:
			return ids[i] < ids[j]
		}
	})
}

// Barony is the metadata record stored by the backend for a region.
type Barony struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	SeigneurID    *int64 `json:"seigneur_id"`
	ReligionPopID *int64 `json:"religion_pop_id"`
	DuchyID       *int64 `json:"duchy_id"`
	CountyID      *int64 `json:"county_id"`
	CultureID     *int64 `json:"culture_id"`
}

// RegionID returns the pixel-map id for this record.
func (b Barony) RegionID() RegionID {
	return RegionID(strconv.FormatInt(b.ID, 10))
}

// BaronyFields is the writable part of a Barony, as sent by PUT /api/baronies/:id.
type BaronyFields struct {
	Name          string `json:"name"`
	SeigneurID    *int64 `json:"seigneur_id"`
	ReligionPopID *int64 `json:"religion_pop_id"`
	DuchyID       *int64 `json:"duchy_id"`
	CountyID      *int64 `json:"county_id"`
	CultureID     *int64 `json:"culture_id"`
}

// Apply copies the writable fields onto b.
func (f BaronyFields) Apply(b *Barony) {
	b.Name = f.Name
	b.SeigneurID = f.SeigneurID
	b.ReligionPopID = f.ReligionPopID
	b.DuchyID = f.DuchyID
	b.CountyID = f.CountyID
	b.CultureID = f.CultureID
}

// Fields returns the writable part of b.
func (b Barony) Fields() BaronyFields {
	return BaronyFields{
		Name:          b.Name,
		SeigneurID:    b.SeigneurID,
		ReligionPopID: b.ReligionPopID,
		DuchyID:       b.DuchyID,
		CountyID:      b.CountyID,
		CultureID:     b.CultureID,
	}
}

// Int64 is a helper for building optional id fields.
func Int64(v int64) *int64 {
	return &v
}
