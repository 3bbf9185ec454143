package editor

import (
	"fmt"
	"strconv"

	"github.com/TheNaotagrey/Asgaria/typedef"
)

// Filter names accepted by FieldGrouping.
const (
	FilterSeigneur = "seigneur"
	FilterReligion = "religion"
	FilterCulture  = "culture"
	FilterCounty   = "county"
	FilterDuchy    = "duchy"
)

// Filters lists the built-in metadata filters in menu order.
var Filters = []string{FilterSeigneur, FilterReligion, FilterCulture, FilterCounty, FilterDuchy}

var filterLabels = map[string]string{
	FilterSeigneur: "Seigneur",
	FilterReligion: "Religion",
	FilterCulture:  "Culture",
	FilterCounty:   "County",
	FilterDuchy:    "Duchy",
}

func filterField(name string, b typedef.Barony) *int64 {
	switch name {
	case FilterSeigneur:
		return b.SeigneurID
	case FilterReligion:
		return b.ReligionPopID
	case FilterCulture:
		return b.CultureID
	case FilterCounty:
		return b.CountyID
	case FilterDuchy:
		return b.DuchyID
	}
	return nil
}

// FieldGrouping groups regions by one of the barony metadata fields.
// names optionally maps a field value to a display label.
func FieldGrouping(filter string, meta map[typedef.RegionID]typedef.Barony, names map[int64]string) (GroupFunc, error) {
	prefix, ok := filterLabels[filter]
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", filter)
	}
	return func(id typedef.RegionID) (string, string) {
		b, ok := meta[id]
		if !ok {
			return "", ""
		}
		v := filterField(filter, b)
		if v == nil {
			return "", ""
		}
		key := strconv.FormatInt(*v, 10)
		if name, ok := names[*v]; ok && name != "" {
			return key, name
		}
		return key, prefix + " " + key
	}, nil
}
