package source

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/go-mp3"
)

// mp3Streamer adapts go-mp3's PCM reader to beep.StreamSeekCloser. The
// library maintains a frame index, so Seek is sample-accurate and cheap,
// which puts MP3 in the fast-seek class.
type mp3Streamer struct {
	decoder *mp3.Decoder
	err     error
	buf     []byte
}

func decodeMP3(r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if decoder.SampleRate() <= 0 {
		return nil, beep.Format{}, errors.New("mp3: invalid sample rate")
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(decoder.SampleRate()),
		NumChannels: 2, // go-mp3 always emits stereo
		Precision:   2,
	}
	return &mp3Streamer{decoder: decoder}, format, nil
}

func (m *mp3Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if m.err != nil {
		return 0, false
	}

	const bytesPerSample = 4 // stereo 16-bit
	need := len(samples) * bytesPerSample
	if len(m.buf) < need {
		m.buf = make([]byte, need)
	}

	read, err := io.ReadFull(m.decoder, m.buf[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		m.err = err
		return 0, false
	}

	n = read / bytesPerSample
	if n == 0 {
		return 0, false
	}

	for i := range n {
		off := i * bytesPerSample
		left := int16(binary.LittleEndian.Uint16(m.buf[off:]))
		right := int16(binary.LittleEndian.Uint16(m.buf[off+2:]))
		samples[i][0] = float64(left) / (1 << 15)
		samples[i][1] = float64(right) / (1 << 15)
	}
	return n, true
}

func (m *mp3Streamer) Err() error { return m.err }

func (m *mp3Streamer) Len() int {
	if count := m.decoder.SampleCount(); count > 0 {
		return int(count)
	}
	return 0
}

func (m *mp3Streamer) Position() int {
	return int(m.decoder.SamplePosition())
}

func (m *mp3Streamer) Seek(p int) error {
	if p < 0 {
		p = 0
	}
	if l := m.Len(); l > 0 && p > l {
		p = l
	}
	if err := m.decoder.SeekToSample(int64(p)); err != nil {
		return err
	}
	m.err = nil
	return nil
}

func (m *mp3Streamer) Close() error { return nil }
