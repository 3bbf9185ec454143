package app

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/TheNaotagrey/Asgaria/storage"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"
)

const keybindsFile = "keybinds.json"

// LoadKeybinds reads keybinds.json from the data directory. Missing or invalid
// entries fall back to the defaults, and a default file is written on first run.
func LoadKeybinds() typedef.Keybinds {
	k := typedef.DefaultKeybinds()
	data, err := storage.ReadDataFile(keybindsFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if out, err := json.MarshalIndent(k, "", "  "); err == nil {
			if err := storage.WriteDataFile(keybindsFile, out, 0o644); err != nil {
				logrus.WithError(err).Warn("failed to write default keybinds")
			}
		}
		return k
	case err != nil:
		logrus.WithError(err).Warn("failed to read keybinds, using defaults")
		return k
	}
	if err := json.Unmarshal(data, &k); err != nil {
		logrus.WithError(err).Warn("invalid keybinds file, using defaults")
		return typedef.DefaultKeybinds()
	}
	typedef.NormalizeKeybinds(&k)
	return k
}

// keyFromBinding converts a canonical binding (letter, F-key, or named key) to an ebiten.Key.
func keyFromBinding(binding string) (ebiten.Key, bool) {
	canonical, ok := typedef.CanonicalizeBinding(binding)
	if !ok || canonical == "" {
		return 0, false
	}

	if len(canonical) == 1 {
		return ebiten.KeyA + ebiten.Key(canonical[0]-'A'), true
	}

	if strings.HasPrefix(canonical, "F") {
		n, err := strconv.Atoi(canonical[1:])
		if err == nil && n >= 1 && n <= 12 {
			return ebiten.KeyF1 + ebiten.Key(n-1), true
		}
	}

	switch canonical {
	case "SPACE":
		return ebiten.KeySpace, true
	case "ESCAPE":
		return ebiten.KeyEscape, true
	case "ENTER":
		return ebiten.KeyEnter, true
	case "TAB":
		return ebiten.KeyTab, true
	case "BACKSPACE":
		return ebiten.KeyBackspace, true
	case "DELETE":
		return ebiten.KeyDelete, true
	case "INSERT":
		return ebiten.KeyInsert, true
	case "HOME":
		return ebiten.KeyHome, true
	case "END":
		return ebiten.KeyEnd, true
	case "PAGEUP":
		return ebiten.KeyPageUp, true
	case "PAGEDOWN":
		return ebiten.KeyPageDown, true
	case "UP":
		return ebiten.KeyArrowUp, true
	case "DOWN":
		return ebiten.KeyArrowDown, true
	case "LEFT":
		return ebiten.KeyArrowLeft, true
	case "RIGHT":
		return ebiten.KeyArrowRight, true
	default:
		return 0, false
	}
}

// bindingJustPressed reports whether the configured binding was just pressed this frame.
// Bindings do not fire while Ctrl is held so they never shadow Ctrl shortcuts.
func bindingJustPressed(binding string) bool {
	if ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta) {
		return false
	}
	if k, ok := keyFromBinding(binding); ok {
		return inpututil.IsKeyJustPressed(k)
	}
	return false
}

// ctrlJustPressed reports Ctrl (or Cmd) plus key.
func ctrlJustPressed(key ebiten.Key) bool {
	return (ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)) &&
		inpututil.IsKeyJustPressed(key)
}
