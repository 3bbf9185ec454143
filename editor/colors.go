package editor

import (
	"image/color"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/cespare/xxhash/v2"
)

const (
	DefaultAlpha  = 100
	SelectedAlpha = 180

	colorSaturation = 65
	colorLightness  = 65
)

// HSLToRGB converts a hue in degrees and saturation/lightness percentages to 8-bit RGB.
func HSLToRGB(h, s, l float64) (uint8, uint8, uint8) {
	s /= 100
	l /= 100
	k := func(n float64) float64 { return math.Mod(n+h/30, 12) }
	a := s * math.Min(l, 1-l)
	f := func(n float64) uint8 {
		c := l - a*math.Max(-1, math.Min(k(n)-3, math.Min(9-k(n), 1)))
		return uint8(math.Round(255 * c))
	}
	return f(0), f(8), f(4)
}

// Hue returns the deterministic hue for an id: (n*137) mod 360 for numeric ids,
// a hash of the id otherwise.
func Hue(id typedef.RegionID) float64 {
	if n, ok := id.Numeric(); ok {
		return float64(((n*137)%360 + 360) % 360)
	}
	return float64(xxhash.Sum64String(string(id)) % 360)
}

// GenerateColor returns the deterministic translucent colour for id.
func GenerateColor(id typedef.RegionID) color.NRGBA {
	return hueColor(Hue(id))
}

func hueColor(h float64) color.NRGBA {
	r, g, b := HSLToRGB(h, colorSaturation, colorLightness)
	return color.NRGBA{R: r, G: g, B: b, A: DefaultAlpha}
}

// GroupFunc maps a region to its colour group. An empty key means "no group".
type GroupFunc func(id typedef.RegionID) (key, label string)

// LegendEntry is one colour group shown in the legend.
type LegendEntry struct {
	Key   string
	Label string
	Color color.NRGBA
	Count int
}

// Palette assigns colours to regions. Colours are generated on first use.
type Palette struct {
	cache     map[typedef.RegionID]color.NRGBA
	overrides map[typedef.RegionID]color.NRGBA

	grouping    GroupFunc
	groupColors map[string]color.NRGBA
	groupLabels map[string]string

	rng *rand.Rand
}

// NewPalette creates a palette. A zero seed uses the clock.
func NewPalette(seed uint64) *Palette {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Palette{
		cache:       make(map[typedef.RegionID]color.NRGBA),
		overrides:   make(map[typedef.RegionID]color.NRGBA),
		groupColors: make(map[string]color.NRGBA),
		groupLabels: make(map[string]string),
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Color returns the colour of id with the default alpha.
func (p *Palette) Color(id typedef.RegionID) color.NRGBA {
	if p.grouping != nil {
		key, label := p.groupOf(id)
		c, ok := p.groupColors[key]
		if !ok {
			c = GenerateColor(typedef.RegionID(key))
			p.groupColors[key] = c
			p.groupLabels[key] = label
		}
		return c
	}
	if c, ok := p.overrides[id]; ok {
		return c
	}
	c, ok := p.cache[id]
	if !ok {
		c = GenerateColor(id)
		p.cache[id] = c
	}
	return c
}

func (p *Palette) groupOf(id typedef.RegionID) (string, string) {
	key, label := p.grouping(id)
	if key == "" {
		key = "0"
	}
	if label == "" {
		label = "N/A"
	}
	return key, label
}

// Randomize picks a random hue per region, or per group when grouping is active.
func (p *Palette) Randomize(ids []typedef.RegionID) {
	if p.grouping != nil {
		p.groupColors = make(map[string]color.NRGBA)
		for _, id := range ids {
			key, label := p.groupOf(id)
			if _, ok := p.groupColors[key]; ok {
				continue
			}
			p.groupColors[key] = hueColor(float64(p.rng.IntN(360)))
			p.groupLabels[key] = label
		}
		return
	}
	for _, id := range ids {
		p.overrides[id] = hueColor(float64(p.rng.IntN(360)))
	}
}

// SetGrouping switches to group colouring. Nil restores deterministic per-region colours.
func (p *Palette) SetGrouping(g GroupFunc) {
	p.grouping = g
	p.groupColors = make(map[string]color.NRGBA)
	p.groupLabels = make(map[string]string)
	p.overrides = make(map[typedef.RegionID]color.NRGBA)
}

// Grouped reports whether group colouring is active.
func (p *Palette) Grouped() bool {
	return p.grouping != nil
}

// Legend lists the groups of ids, sorted by key. It is nil without a grouping.
func (p *Palette) Legend(ids []typedef.RegionID) []LegendEntry {
	if p.grouping == nil {
		return nil
	}
	counts := make(map[string]int)
	for _, id := range ids {
		p.Color(id)
		key, _ := p.groupOf(id)
		counts[key]++
	}
	entries := make([]LegendEntry, 0, len(counts))
	for key, n := range counts {
		entries = append(entries, LegendEntry{Key: key, Label: p.groupLabels[key], Color: p.groupColors[key], Count: n})
	}
	keys := make([]typedef.RegionID, len(entries))
	for i, e := range entries {
		keys[i] = typedef.RegionID(e.Key)
	}
	order := make(map[string]int, len(keys))
	typedef.SortRegionIDs(keys)
	for i, k := range keys {
		order[string(k)] = i
	}
	sort.Slice(entries, func(i, j int) bool { return order[entries[i].Key] < order[entries[j].Key] })
	return entries
}

// Forget drops any cached or random colour for id.
func (p *Palette) Forget(id typedef.RegionID) {
	delete(p.cache, id)
	delete(p.overrides, id)
}

// Reset drops every random colour and cached entry. Grouping is kept.
func (p *Palette) Reset() {
	p.cache = make(map[typedef.RegionID]color.NRGBA)
	p.overrides = make(map[typedef.RegionID]color.NRGBA)
	p.groupColors = make(map[string]color.NRGBA)
	p.groupLabels = make(map[string]string)
}
