package app

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/TheNaotagrey/Asgaria/editor"
	"github.com/TheNaotagrey/Asgaria/storage"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus"
)

// baseMap is one of the two background images. The mask is derived from the image itself.
type baseMap struct {
	name string
	img  *ebiten.Image
	mask *editor.BarrierMask
}

// baseMaps holds the labelled and blank backgrounds and which one is shown.
type baseMaps struct {
	maps   [2]*baseMap
	active int
}

func loadBaseMaps(labelled, blank string, width, height int) *baseMaps {
	b := &baseMaps{}
	for i, path := range []string{labelled, blank} {
		if path == "" {
			continue
		}
		m, err := loadBaseMap(path, width, height)
		if err != nil {
			logrus.WithError(err).WithField("path", path).Warn("base map unavailable")
			continue
		}
		b.maps[i] = m
	}
	if b.maps[0] == nil && b.maps[1] != nil {
		b.active = 1
	}
	return b
}

func resolveAsset(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return storage.DataFile(path)
}

func loadBaseMap(path string, width, height int) (*baseMap, error) {
	f, err := os.Open(resolveAsset(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("%s is %dx%d, map is %dx%d", path, b.Dx(), b.Dy(), width, height)
	}
	m := &baseMap{
		name: filepath.Base(path),
		img:  ebiten.NewImageFromImage(img),
		mask: editor.ComputeBarrierMask(img, width, height),
	}
	logrus.WithFields(logrus.Fields{"map": m.name, "barriers": m.mask.Count()}).Info("base map loaded")
	return m, nil
}

// current returns the displayed map, or nil when none loaded.
func (b *baseMaps) current() *baseMap {
	return b.maps[b.active]
}

// toggle switches between the labelled and blank map when both exist.
func (b *baseMaps) toggle() bool {
	other := 1 - b.active
	if b.maps[other] == nil {
		return false
	}
	b.active = other
	return true
}

// mask returns the barrier mask of the displayed map, or nil.
func (b *baseMaps) mask() *editor.BarrierMask {
	if m := b.current(); m != nil {
		return m.mask
	}
	return nil
}
