package engine

import (
	"math"
	"sync/atomic"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

const resampleQuality = 4

// sink is the active playback chain for one track: source → speed
// resampler → pause control → volume, followed by a callback that marks
// the sink drained once the source is exhausted. All mutators must be
// called under the output stream's lock.
type sink struct {
	src     audioSource
	speed   *beep.Resampler
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	drained atomic.Bool
}

func newSink(src audioSource, streamRate int, level, speedMult float64) *sink {
	s := &sink{src: src}
	s.speed = beep.ResampleRatio(resampleQuality, baseRatio(src, streamRate)*speedMult, src)
	s.ctrl = &beep.Ctrl{Streamer: s.speed}
	s.volume = &effects.Volume{
		Streamer: s.ctrl,
		Base:     2,
		Volume:   levelToGain(level),
		Silent:   level <= 0,
	}
	return s
}

// streamer returns the chain to hand to the output stream.
func (s *sink) streamer() beep.Streamer {
	return beep.Seq(s.volume, beep.Callback(func() {
		s.drained.Store(true)
	}))
}

func (s *sink) setPaused(paused bool) {
	s.ctrl.Paused = paused
}

func (s *sink) paused() bool {
	return s.ctrl.Paused
}

func (s *sink) setVolume(level float64) {
	s.volume.Volume = levelToGain(level)
	s.volume.Silent = level <= 0
}

func (s *sink) setSpeed(streamRate int, multiplier float64) {
	s.speed.SetRatio(baseRatio(s.src, streamRate) * multiplier)
}

// baseRatio resamples the source rate to the device rate at 1x speed.
func baseRatio(src audioSource, streamRate int) float64 {
	return float64(src.Format().SampleRate) / float64(streamRate)
}

// levelToGain maps a linear 0..1 level onto beep's base-2 logarithmic
// volume: 1.0 → 0 (unchanged), 0.5 → -1 (half), 0.25 → -2.
func levelToGain(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
