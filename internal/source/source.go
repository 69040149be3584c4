// Package source opens audio files as sample streams, optionally starting
// mid-track. Formats fall in two classes: those whose decoders seek
// reliably by sample position (MP3 via the go-mp3 sample index, WAV with
// its fixed-size PCM frames) and those where in-place seeking is not
// trusted (FLAC, Ogg Vorbis) and an offset is reached by decoding from the
// start and discarding samples.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const (
	extMP3  = ".mp3"
	extFLAC = ".flac"
	extWAV  = ".wav"
	extOGG  = ".ogg"
	extOGA  = ".oga"
)

// Fallback format when stream metadata is missing. Downstream timing
// depends on the sample rate, so an absent rate must still yield something
// playable.
const (
	fallbackSampleRate  = 44100
	fallbackNumChannels = 2
)

// Source is a decoded sample stream for one file. It is finite and not
// restartable; reaching the end of the stream is the track-finished signal.
type Source struct {
	beep.StreamSeekCloser

	format   beep.Format
	fastSeek bool
	file     *os.File
}

// IsSupported reports whether the file extension names a playable format.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extMP3, extFLAC, extWAV, extOGG, extOGA:
		return true
	}
	return false
}

// Open decodes path starting at offset. For fast-seek formats the decoder
// is repositioned directly; for the rest, samples up to the offset are
// decoded and discarded.
func Open(path string, offset time.Duration) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsSupported(path) {
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		fastSeek bool
	)

	switch ext {
	case extMP3:
		streamer, format, err = decodeMP3(f)
		fastSeek = true
	case extWAV:
		streamer, format, err = wav.Decode(f)
		fastSeek = true
	case extFLAC:
		// Some taggers prepend an ID3v2 tag that the FLAC decoder chokes on.
		if err = skipID3v2(f); err == nil {
			streamer, format, err = flac.Decode(f)
		}
	case extOGG, extOGA:
		streamer, format, err = vorbis.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	if format.SampleRate == 0 {
		format.SampleRate = fallbackSampleRate
	}
	if format.NumChannels == 0 {
		format.NumChannels = fallbackNumChannels
	}

	s := &Source{
		StreamSeekCloser: streamer,
		format:           format,
		fastSeek:         fastSeek,
		file:             f,
	}

	if offset > 0 {
		if err := s.skipTo(offset); err != nil {
			s.Close()
			return nil, err
		}
	}

	return s, nil
}

// Format returns the stream's sample rate and channel layout.
func (s *Source) Format() beep.Format { return s.format }

// FastSeek reports whether in-place repositioning is reliable for this
// source. When false the caller must rebuild the source at the target
// offset instead of calling Seek.
func (s *Source) FastSeek() bool { return s.fastSeek }

// Close releases the decoder and the underlying file.
func (s *Source) Close() error {
	err := s.StreamSeekCloser.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Source) skipTo(offset time.Duration) error {
	target := s.format.SampleRate.N(offset)
	if n := s.Len(); n > 0 && target > n {
		target = n
	}
	if s.fastSeek {
		return s.Seek(target)
	}
	return discard(s.StreamSeekCloser, target)
}

// discard pulls and drops samples until n have been consumed or the stream
// ends. Startup cost scales with the offset, which is the price of
// correctness for formats without trustworthy seek tables.
func discard(s beep.Streamer, n int) error {
	buf := make([][2]float64, 2048)
	for n > 0 {
		chunk := min(len(buf), n)
		read, ok := s.Stream(buf[:chunk])
		n -= read
		if !ok {
			return s.Err()
		}
	}
	return nil
}

// skipID3v2 advances r past an ID3v2 tag if one is present, otherwise
// rewinds to the start.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil || n < 10 || string(header[0:3]) != "ID3" {
		_, serr := r.Seek(0, io.SeekStart)
		return serr
	}

	// Syncsafe integer: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
