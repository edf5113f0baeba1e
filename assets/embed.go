// Package assets holds files compiled into the binary.
package assets

import (
	"embed"
	"path/filepath"
	"strings"
)

//go:embed *.yaml
var assetsFS embed.FS

// SampleConfig is the name of the commented default configuration.
const SampleConfig = "mosaic.yaml"

// LoadFile loads an embedded asset by assets-relative path.
func LoadFile(path string) ([]byte, error) {
	return assetsFS.ReadFile(cleanAssetPath(path))
}

func cleanAssetPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, "assets/"); ok {
		return after
	}
	return s
}
