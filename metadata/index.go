package metadata

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MediaDir is the directory the generator prefers when it exists.
const MediaDir = "media"

// Index lists the images directly inside root/media, or inside root itself
// when there is no media directory. Filenames are relative to root using
// forward slashes. Files that are not decodable images are skipped.
func Index(root string, logger *log.Logger) ([]Record, error) {
	if logger == nil {
		logger = log.Default()
	}
	dir, prefix := root, ""
	if fi, err := os.Stat(filepath.Join(root, MediaDir)); err == nil && fi.IsDir() {
		dir, prefix = filepath.Join(root, MediaDir), MediaDir
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("metadata: index %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]Record, 0, len(names))
	for _, name := range names {
		cfg, err := decodeConfig(filepath.Join(dir, name))
		if err != nil {
			logger.Debug("skipping non-image", "file", name, "err", err)
			continue
		}
		out = append(out, Record{Filename: path.Join(prefix, name), Width: cfg.Width, Height: cfg.Height})
	}
	return out, nil
}

func decodeConfig(p string) (image.Config, error) {
	f, err := os.Open(p)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}

// Write stores records as a metadata document at p.
func Write(p string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("metadata: encode: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("metadata: write %s: %w", p, err)
	}
	return nil
}
