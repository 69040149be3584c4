package output

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/gopxl/beep/v2"
)

const (
	// StreamSampleRate is the fixed rate every stream is opened at. Sources
	// with a different rate are resampled by the sink before reaching us.
	StreamSampleRate = 44100

	streamChannels = 2
	bytesPerFrame  = streamChannels * 2 // s16le
)

// Devices enumerates the playback devices known to the audio backend.
func Devices() ([]Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate playback devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// malgoStream feeds an installed beep.Streamer to a miniaudio device.
type malgoStream struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu      sync.Mutex
	src     beep.Streamer
	samples [][2]float64
}

// Open opens a stream on the named playback device. An empty name, or a
// name that matches no device, selects the system default.
func Open(deviceName string) (Stream, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = streamChannels
	cfg.SampleRate = StreamSampleRate

	if deviceName != "" {
		if id, ok := findDeviceID(ctx, deviceName); ok {
			cfg.Playback.DeviceID = id.Pointer()
		}
	}

	s := &malgoStream{ctx: ctx}

	device, err := malgo.InitDevice(ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: s.fill,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("open playback device: %w", err)
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("start playback device: %w", err)
	}

	return s, nil
}

func findDeviceID(ctx *malgo.AllocatedContext, name string) (malgo.DeviceID, bool) {
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceID{}, false
	}
	for _, info := range infos {
		if info.Name() == name {
			return info.ID, true
		}
	}
	return malgo.DeviceID{}, false
}

// fill is the device data callback. It pulls samples from the installed
// streamer under the stream lock and writes interleaved s16le frames,
// padding with silence when the streamer is absent or drained.
func (s *malgoStream) fill(out, _ []byte, frameCount uint32) {
	frames := int(frameCount)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.samples) < frames {
		s.samples = make([][2]float64, frames)
	}
	buf := s.samples[:frames]

	var n int
	if s.src != nil {
		n, _ = s.src.Stream(buf)
	}
	for i := n; i < frames; i++ {
		buf[i] = [2]float64{}
	}

	for i, sample := range buf {
		writeFrame(out[i*bytesPerFrame:], sample)
	}
}

func writeFrame(dst []byte, sample [2]float64) {
	for ch := range 2 {
		v := clampSample(sample[ch])
		val := int16(v * (1<<15 - 1))
		dst[ch*2] = byte(val)
		dst[ch*2+1] = byte(val >> 8)
	}
}

func clampSample(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *malgoStream) SampleRate() int { return StreamSampleRate }

func (s *malgoStream) Play(src beep.Streamer) {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
}

func (s *malgoStream) Clear() {
	s.mu.Lock()
	s.src = nil
	s.mu.Unlock()
}

func (s *malgoStream) Lock()   { s.mu.Lock() }
func (s *malgoStream) Unlock() { s.mu.Unlock() }

func (s *malgoStream) Close() error {
	s.Clear()
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		err := s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
		return err
	}
	return nil
}
