package source

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWAV writes a canonical 16-bit stereo PCM WAV file with the given
// number of frames at 44100Hz and returns its path.
func writeTestWAV(t *testing.T, frames int) string {
	t.Helper()

	const (
		sampleRate = 44100
		channels   = 2
		bitDepth   = 16
	)
	dataSize := frames * channels * bitDepth / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*bitDepth/8))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitDepth/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitDepth))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for i := 0; i < frames*channels; i++ {
		binary.Write(&buf, binary.LittleEndian, int16(1000))
	}

	path := filepath.Join(t.TempDir(), "test.wav")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestOpen_WAV(t *testing.T) {
	path := writeTestWAV(t, 44100) // one second

	src, err := Open(path, 0)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 44100, int(src.Format().SampleRate))
	assert.Equal(t, 2, src.Format().NumChannels)
	assert.True(t, src.FastSeek())
	assert.Equal(t, 44100, src.Len())
	assert.Equal(t, 0, src.Position())
}

func TestOpen_WAVAtOffset(t *testing.T) {
	path := writeTestWAV(t, 44100)

	src, err := Open(path, 250*time.Millisecond)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 11025, src.Position())
}

func TestOpen_OffsetPastEndClampsToLength(t *testing.T) {
	path := writeTestWAV(t, 4410) // 100ms

	src, err := Open(path, time.Minute)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, src.Len(), src.Position())
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	_, err := Open("/tmp/whatever.txt", 0)
	assert.Error(t, err)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.wav"), 0)
	assert.Error(t, err)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0o644))

	_, err := Open(path, 0)
	assert.Error(t, err)
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"track.mp3", true},
		{"track.MP3", true},
		{"track.flac", true},
		{"track.wav", true},
		{"track.ogg", true},
		{"track.oga", true},
		{"track.m4a", false},
		{"track.txt", false},
		{"track", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.path))
		})
	}
}

// countingStreamer tracks how many samples have been pulled.
type countingStreamer struct {
	total    int
	consumed int
}

func (c *countingStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	remaining := c.total - c.consumed
	if remaining <= 0 {
		return 0, false
	}
	n = min(len(samples), remaining)
	c.consumed += n
	return n, true
}

func (c *countingStreamer) Err() error { return nil }

func TestDiscard_ConsumesExactly(t *testing.T) {
	s := &countingStreamer{total: 10000}
	require.NoError(t, discard(s, 5000))
	assert.Equal(t, 5000, s.consumed)
}

func TestDiscard_StopsAtEndOfStream(t *testing.T) {
	s := &countingStreamer{total: 100}
	require.NoError(t, discard(s, 5000))
	assert.Equal(t, 100, s.consumed)
}

func TestSkipID3v2(t *testing.T) {
	t.Run("no tag rewinds to start", func(t *testing.T) {
		r := bytes.NewReader([]byte("RIFFxxxxWAVEfmt and then some"))
		require.NoError(t, skipID3v2(r))
		pos, _ := r.Seek(0, 1)
		assert.Equal(t, int64(0), pos)
	})

	t.Run("tag is skipped", func(t *testing.T) {
		// 10-byte header declaring a 100-byte tag body (syncsafe).
		data := append([]byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 100}, make([]byte, 200)...)
		r := bytes.NewReader(data)
		require.NoError(t, skipID3v2(r))
		pos, _ := r.Seek(0, 1)
		assert.Equal(t, int64(110), pos)
	})

	t.Run("short file rewinds", func(t *testing.T) {
		r := bytes.NewReader([]byte("ID3"))
		require.NoError(t, skipID3v2(r))
		pos, _ := r.Seek(0, 1)
		assert.Equal(t, int64(0), pos)
	})
}
