package probe

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

func writeWAV(t *testing.T, frames int) string {
	t.Helper()

	const (
		sampleRate = 44100
		channels   = 2
	)
	dataSize := frames * channels * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	path := filepath.Join(t.TempDir(), "probe.wav")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestDuration_WAV(t *testing.T) {
	path := writeWAV(t, 88200) // two seconds

	d, ok := Duration(path)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d)
}

func TestDuration_MissingFile(t *testing.T) {
	_, ok := Duration(filepath.Join(t.TempDir(), "missing.wav"))
	assert.False(t, ok)
}

func TestDuration_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.flac")
	require.NoError(t, os.WriteFile(path, []byte("definitely not flac"), 0o644))

	_, ok := Duration(path)
	assert.False(t, ok)
}

func TestDuration_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, ok := Duration(path)
	assert.False(t, ok)
}
