package typedef

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordJSON(t *testing.T) {
	raw, err := json.Marshal(PixelData{"4": {{X: 3, Y: 9}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"4":[[3,9]]}`, string(raw))

	var data PixelData
	require.NoError(t, json.Unmarshal([]byte(`{"1":[[0,1],[2,3]]}`), &data))
	assert.Equal(t, []Coord{{X: 0, Y: 1}, {X: 2, Y: 3}}, data["1"])

	for _, bad := range []string{`{"1":[[1]]}`, `{"1":[[1,2,3]]}`, `{"1":[{"x":1}]}`, `{"1":[["a","b"]]}`} {
		assert.Error(t, json.Unmarshal([]byte(bad), &data), bad)
	}
}

func TestSortRegionIDs(t *testing.T) {
	ids := []RegionID{"b", "10", "2", "a", "1"}
	SortRegionIDs(ids)
	assert.Equal(t, []RegionID{"1", "2", "10", "a", "b"}, ids)
}

func TestPixelDataHelpers(t *testing.T) {
	p := PixelData{"2": {{X: 1, Y: 1}}, "1": {{X: 0, Y: 0}, {X: 1, Y: 0}}}
	assert.Equal(t, []RegionID{"1", "2"}, p.IDs())
	assert.Equal(t, 3, p.PixelCount())

	c := p.Clone()
	c["1"][0] = Coord{X: 9, Y: 9}
	assert.Equal(t, Coord{X: 0, Y: 0}, p["1"][0])
}

func TestRegionIDNumeric(t *testing.T) {
	n, ok := RegionID("42").Numeric()
	assert.True(t, ok)
	assert.EqualValues(t, 42, n)

	_, ok = RegionID("north").Numeric()
	assert.False(t, ok)
	assert.Equal(t, RegionID("7"), Barony{ID: 7}.RegionID())
}

func TestBaronyFieldsRoundTrip(t *testing.T) {
	b := Barony{ID: 3, Name: "Vale", CountyID: Int64(4)}
	var out Barony
	b.Fields().Apply(&out)
	out.ID = 3
	assert.Equal(t, b, out)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"name":"Vale","seigneur_id":null,"religion_pop_id":null,"duchy_id":null,"county_id":4,"culture_id":null}`, string(raw))
}

func TestCanonicalizeBinding(t *testing.T) {
	cases := map[string]string{
		" m ":     "M",
		"f2":      "F2",
		"esc":     "ESCAPE",
		"PgUp":    "PAGEUP",
		"":        "",
		"arrowUp": "UP",
	}
	for in, want := range cases {
		got, ok := CanonicalizeBinding(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"F13", "CTRL", "1", "ab"} {
		_, ok := CanonicalizeBinding(bad)
		assert.False(t, ok, bad)
	}
}

func TestNormalizeKeybinds(t *testing.T) {
	k := Keybinds{Brush: "q", Eraser: "bogus", Save: ""}
	NormalizeKeybinds(&k)
	assert.Equal(t, "Q", k.Brush)
	assert.Equal(t, DefaultKeybinds().Eraser, k.Eraser)
	// Empty means disabled and is kept.
	assert.Equal(t, "", k.Save)

	NormalizeKeybinds(nil)
}
