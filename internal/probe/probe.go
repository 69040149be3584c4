// Package probe determines the total playable duration of audio files.
// Every failure maps to "duration unknown"; probing never hard-errors.
package probe

import (
	"time"

	"github.com/ldelacroix/cadenza/internal/source"
)

// Duration returns the total duration of the track at path, or false if it
// cannot be determined. MP3 duration comes from go-mp3's sample index;
// the other formats report their decoder length. Costs stay well below a
// full decode pass since no samples are produced.
func Duration(path string) (time.Duration, bool) {
	src, err := source.Open(path, 0)
	if err != nil {
		return 0, false
	}
	defer src.Close()

	n := src.Len()
	if n <= 0 {
		return 0, false
	}
	return src.Format().SampleRate.D(n), true
}
