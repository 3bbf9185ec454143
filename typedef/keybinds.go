package typedef

import (
	"strconv"
	"strings"
)

// Keybinds stores user-configurable keyboard shortcuts for editor actions.
// Undo is always Ctrl+Z and is not configurable.
type Keybinds struct {
	EditMode     string `json:"editMode,omitempty"`
	Brush        string `json:"brush,omitempty"`
	Eraser       string `json:"eraser,omitempty"`
	Bucket       string `json:"bucket,omitempty"`
	NewRegion    string `json:"newRegion,omitempty"`
	DeleteRegion string `json:"deleteRegion,omitempty"`
	Merge        string `json:"merge,omitempty"`
	Rename       string `json:"rename,omitempty"`
	RandomColors string `json:"randomColors,omitempty"`
	Filter       string `json:"filter,omitempty"`
	ToggleMap    string `json:"toggleMap,omitempty"`
	Fit          string `json:"fit,omitempty"`
	BrushGrow    string `json:"brushGrow,omitempty"`
	BrushShrink  string `json:"brushShrink,omitempty"`
	Save         string `json:"save,omitempty"`
	Retry        string `json:"retry,omitempty"`
	ExportJSON   string `json:"exportJson,omitempty"`
	ImportJSON   string `json:"importJson,omitempty"`
	CopyImage    string `json:"copyImage,omitempty"`
	Snapshot     string `json:"snapshot,omitempty"`
}

// DefaultKeybinds returns the baseline key configuration.
func DefaultKeybinds() Keybinds {
	return Keybinds{
		EditMode:     "M",
		Brush:        "B",
		Eraser:       "E",
		Bucket:       "F",
		NewRegion:    "N",
		DeleteRegion: "DELETE",
		Merge:        "G",
		Rename:       "F2",
		RandomColors: "R",
		Filter:       "L",
		ToggleMap:    "T",
		Fit:          "HOME",
		BrushGrow:    "PAGEUP",
		BrushShrink:  "PAGEDOWN",
		Save:         "S",
		Retry:        "Y",
		ExportJSON:   "X",
		ImportJSON:   "I",
		CopyImage:    "C",
		Snapshot:     "P",
	}
}

// CanonicalizeBinding trims, uppercases, and validates supported key names.
// Allowed values: empty string (disabled), single letters A-Z, function keys F1-F12, and common names like SPACE, ESCAPE, ENTER, TAB, BACKSPACE, DELETE, INSERT, HOME, END, PAGEUP, PAGEDOWN, and arrow keys (UP/DOWN/LEFT/RIGHT).
// Returns the canonical uppercase name and true when valid.
func CanonicalizeBinding(binding string) (string, bool) {
	val := strings.TrimSpace(binding)
	if val == "" {
		return "", true // empty means unbound/disabled
	}
	upper := strings.ToUpper(val)

	// Single-letter A-Z
	if len(upper) == 1 {
		ch := upper[0]
		if ch >= 'A' && ch <= 'Z' {
			return upper, true
		}
	}

	// Function keys F1-F12
	if strings.HasPrefix(upper, "F") && len(upper) > 1 {
		if n, err := strconv.Atoi(upper[1:]); err == nil && n >= 1 && n <= 12 {
			return "F" + strconv.Itoa(n), true
		}
	}

	switch upper {
	case "SPACE", "SPACEBAR":
		return "SPACE", true
	case "ESC", "ESCAPE":
		return "ESCAPE", true
	case "ENTER", "RETURN":
		return "ENTER", true
	case "TAB":
		return "TAB", true
	case "BACKSPACE":
		return "BACKSPACE", true
	case "DELETE", "DEL":
		return "DELETE", true
	case "INSERT", "INS":
		return "INSERT", true
	case "HOME":
		return "HOME", true
	case "END":
		return "END", true
	case "PAGEUP", "PGUP":
		return "PAGEUP", true
	case "PAGEDOWN", "PGDN":
		return "PAGEDOWN", true
	case "UP", "ARROWUP":
		return "UP", true
	case "DOWN", "ARROWDOWN":
		return "DOWN", true
	case "LEFT", "ARROWLEFT":
		return "LEFT", true
	case "RIGHT", "ARROWRIGHT":
		return "RIGHT", true
	default:
		return "", false
	}
}

// NormalizeKeybinds uppercases, canonicalizes, and fills defaults when missing or invalid.
func NormalizeKeybinds(k *Keybinds) {
	if k == nil {
		return
	}
	defaults := DefaultKeybinds()
	normalize := func(target *string, fallback string) {
		if val, ok := CanonicalizeBinding(*target); ok {
			*target = val
			return
		}
		if val, ok := CanonicalizeBinding(fallback); ok {
			*target = val
		} else {
			*target = fallback
		}
	}

	normalize(&k.EditMode, defaults.EditMode)
	normalize(&k.Brush, defaults.Brush)
	normalize(&k.Eraser, defaults.Eraser)
	normalize(&k.Bucket, defaults.Bucket)
	normalize(&k.NewRegion, defaults.NewRegion)
	normalize(&k.DeleteRegion, defaults.DeleteRegion)
	normalize(&k.Merge, defaults.Merge)
	normalize(&k.Rename, defaults.Rename)
	normalize(&k.RandomColors, defaults.RandomColors)
	normalize(&k.Filter, defaults.Filter)
	normalize(&k.ToggleMap, defaults.ToggleMap)
	normalize(&k.Fit, defaults.Fit)
	normalize(&k.BrushGrow, defaults.BrushGrow)
	normalize(&k.BrushShrink, defaults.BrushShrink)
	normalize(&k.Save, defaults.Save)
	normalize(&k.Retry, defaults.Retry)
	normalize(&k.ExportJSON, defaults.ExportJSON)
	normalize(&k.ImportJSON, defaults.ImportJSON)
	normalize(&k.CopyImage, defaults.CopyImage)
	normalize(&k.Snapshot, defaults.Snapshot)
}
