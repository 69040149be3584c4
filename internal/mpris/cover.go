//go:build linux

package mpris

import (
	"os"
	"path/filepath"
)

var (
	coverBases = []string{"cover", "folder", "front"}
	coverExts  = []string{".jpg", ".jpeg", ".png"}
)

// coverArtURL returns a file:// URL for album art stored next to the
// track, or empty string when none exists. Base names are tried in
// priority order across all extensions.
func coverArtURL(trackPath string) string {
	dir := filepath.Dir(trackPath)
	for _, base := range coverBases {
		for _, ext := range coverExts {
			path := filepath.Join(dir, base+ext)
			if _, err := os.Stat(path); err == nil {
				return "file://" + path
			}
		}
	}
	return ""
}
