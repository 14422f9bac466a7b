package mtrengine

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// captureName names a capture after the wall clock and the map date shown.
func captureName(taken, shown time.Time) string {
	return fmt.Sprintf("mtr-%s-%s.png", taken.Format("20060102-150405"), shown.Format("2006-01-02"))
}

// captureFrame copies the finished frame and writes it as a PNG in the
// background.
func (e *Engine) captureFrame(img *ebiten.Image, taken, shown time.Time) {
	if e.FrameCaptureDir == "" {
		log.Printf("[CAPTURE] No capture directory configured")
		return
	}
	if err := os.MkdirAll(e.FrameCaptureDir, 0o755); err != nil {
		log.Printf("[CAPTURE] Error creating capture directory: %v", err)
		return
	}
	path := filepath.Join(e.FrameCaptureDir, captureName(taken, shown))

	// The screen is reused next frame, so read it out before handing it off.
	rgba := image.NewRGBA(img.Bounds())
	img.ReadPixels(rgba.Pix)

	go func() {
		if err := writePNG(path, rgba); err != nil {
			log.Printf("[CAPTURE] %v", err)
			return
		}
		log.Printf("[CAPTURE] Captured frame: %s", path)
	}()
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close capture file: %w", cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode capture: %w", err)
	}
	return nil
}
