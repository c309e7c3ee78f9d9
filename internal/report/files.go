package report

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"mi-bci/internal/pipeline"

	"golang.org/x/image/tiff"
)

// SupportedFormats returns the image extensions Save can write.
func SupportedFormats() []string {
	return []string{".png", ".tif", ".tiff"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// Save encodes img by the file extension of path.
func Save(path string, img image.Image) error {
	if !IsSupportedFormat(path) {
		return fmt.Errorf("unsupported image format: %s", filepath.Ext(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return f.Close()
}

// WriteHeatmaps saves one heatmap per model into dir, named
// <run>-<model>.<ext>, and returns the written paths.
func WriteHeatmaps(dir string, res *pipeline.Result, ext string, scale int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}
	var paths []string
	for _, m := range res.Models() {
		img, err := ModelHeatmap(m, res.LabelNames, scale)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s-%s%s", shortID(res.RunID), strings.ToLower(m.Name), ext)
		path := filepath.Join(dir, name)
		if err := Save(path, img); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func shortID(id string) string {
	if id == "" {
		return "run"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
