package app

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	textclip "github.com/atotto/clipboard"
	"github.com/sirupsen/logrus"
	"golang.design/x/clipboard"
)

var (
	imageClipOnce sync.Once
	imageClipErr  error
)

// copyText puts pixel JSON on the system clipboard.
func copyText(s string) error {
	return textclip.WriteAll(s)
}

// pasteText reads the system clipboard as text.
func pasteText() (string, error) {
	return textclip.ReadAll()
}

// copyImage places img on the clipboard as PNG.
func copyImage(img image.Image) error {
	imageClipOnce.Do(func() {
		imageClipErr = clipboard.Init()
		if imageClipErr != nil {
			logrus.WithError(imageClipErr).Warn("image clipboard unavailable")
		}
	})
	if imageClipErr != nil {
		return fmt.Errorf("image clipboard: %w", imageClipErr)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	clipboard.Write(clipboard.FmtImage, buf.Bytes())
	return nil
}
