package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/personalens/personalens/internal/browser"
	apperrors "github.com/personalens/personalens/internal/errors"
)

// Exporter converts HTML reports to PNG screenshots through a scoped
// browser page, optionally writing a downscaled thumbnail alongside.
type Exporter struct {
	Manager       *browser.Manager
	ViewportWidth int

	// ThumbnailSize is the max dimension of the thumbnail; zero disables
	// thumbnail generation.
	ThumbnailSize int
}

// ExportPNG renders htmlPath to a PNG at outputPath. An empty outputPath
// places the image next to the report. Returns the PNG path.
func (e *Exporter) ExportPNG(ctx context.Context, htmlPath, outputPath string) (string, error) {
	if e == nil || e.Manager == nil {
		return "", apperrors.Transient(browser.ServiceName, "exporter is not configured", nil)
	}

	absPath, err := filepath.Abs(htmlPath)
	if err != nil {
		return "", apperrors.Transient(browser.ServiceName, "resolve report path", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return "", apperrors.NotFound(browser.ServiceName, htmlPath, "report file does not exist")
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(absPath, filepath.Ext(absPath)) + ".png"
	}

	width := e.ViewportWidth
	if width <= 0 {
		width = 900
	}

	var shot []byte
	err = e.Manager.WithPage(ctx, func(ctx context.Context, page browser.Page) error {
		var renderErr error
		shot, renderErr = page.RenderPNG(ctx, "file://"+absPath, width)
		return renderErr
	})
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(outputPath, shot, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}

	if e.ThumbnailSize > 0 {
		thumbPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".thumbnail.png"
		if err := writeThumbnail(shot, thumbPath, e.ThumbnailSize); err != nil {
			return outputPath, fmt.Errorf("write thumbnail: %w", err)
		}
	}

	return outputPath, nil
}

// writeThumbnail downscales a PNG so the larger dimension fits maxSize.
// Images already small enough are copied unscaled.
func writeThumbnail(pngData []byte, outPath string, maxSize int) error {
	srcImg, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return err
	}

	bounds := srcImg.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return errors.New("invalid image dimensions")
	}

	longest := width
	if height > longest {
		longest = height
	}
	scale := float64(maxSize) / float64(longest)
	if scale > 1 {
		scale = 1
	}
	newW := int(float64(width) * scale)
	newH := int(float64(height) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), srcImg, bounds, draw.Over, nil)

	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close() // nolint:errcheck

	return png.Encode(outFile, dst)
}
