// Package library discovers playable audio files on disk.
package library

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/dhowden/tag"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/ldelacroix/cadenza/internal/source"
)

// Track is one discovered audio file.
type Track struct {
	Path  string
	Title string
	Size  int64
}

// Scan walks root recursively and returns every supported audio file,
// sorted by path. Unreadable entries are skipped so one bad directory
// does not abort the scan.
func Scan(root string) ([]Track, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "scan", Path: root, Err: os.ErrInvalid}
	}

	var tracks []Track
	var totalBytes int64

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		// Skip any walk errors, continuing to scan other paths
		if walkErr != nil {
			return nil //nolint:nilerr // intentionally skipping errors
		}
		if d.IsDir() {
			return nil
		}
		if !source.IsSupported(path) {
			return nil
		}

		fi, infoErr := d.Info()
		// Skip files we can't stat
		if infoErr != nil {
			return nil //nolint:nilerr // intentionally skipping errors
		}

		tracks = append(tracks, Track{
			Path:  path,
			Title: readTitle(path),
			Size:  fi.Size(),
		})
		totalBytes += fi.Size()
		return nil
	})

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Path < tracks[j].Path })

	logrus.WithFields(logrus.Fields{
		"root":   root,
		"tracks": len(tracks),
		"size":   humanize.Bytes(uint64(totalBytes)),
	}).Info("library scan complete")

	return tracks, nil
}

// readTitle returns the tagged title, falling back to the file name when
// the file has no readable tags.
func readTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return filepath.Base(path)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil || m.Title() == "" {
		return filepath.Base(path)
	}
	return m.Title()
}
