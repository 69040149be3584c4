// Package session is the externally-visible playback facade: the playlist,
// current index, volume, speed and play/pause flags behind one mutex.
// Validation happens here, synchronously, before any command is sent to
// the engine; engine-internal failures are only observable as unchanged
// state on the next Status call.
package session

import (
	"sync"
	"time"

	"github.com/ldelacroix/cadenza/internal/engine"
	"github.com/ldelacroix/cadenza/internal/output"
	"github.com/ldelacroix/cadenza/internal/probe"
)

// Transport is the slice of the engine the session drives. Command sends
// are fire-and-forget; Elapsed and Finished are the read-only surface.
type Transport interface {
	Play(path string, volume float64, offset time.Duration)
	Pause()
	Resume()
	Stop()
	SetVolume(level float64)
	SetSpeed(multiplier float64)
	Seek(target time.Duration)
	SetDevice(name string)
	Elapsed() time.Duration
	Finished() bool
	Close()
}

var _ Transport = (*engine.Engine)(nil)

// Volume and speed bounds; out-of-range values are clamped, never
// rejected.
const (
	MinSpeed = 0.25
	MaxSpeed = 3.0
)

// Track is one playlist entry.
type Track struct {
	Path  string
	Title string
}

// TrackInfo describes the track a transport operation landed on.
type TrackInfo struct {
	Path        string
	Title       string
	Index       int
	Duration    time.Duration
	HasDuration bool
}

// Status is a point-in-time snapshot of the whole session.
type Status struct {
	Playing     bool
	Paused      bool
	Finished    bool
	TrackTitle  string
	Index       int
	Volume      float64
	Speed       float64
	PlaylistLen int
	Elapsed     time.Duration
	Duration    time.Duration
	HasDuration bool
}

type probeFunc func(path string) (time.Duration, bool)

type devicesFunc func() ([]output.Device, error)

// Session guards the playlist and transport flags and forwards commands to
// the engine. Safe for concurrent use.
type Session struct {
	mu sync.Mutex

	transport Transport
	probe     probeFunc
	devices   devicesFunc

	playlist    []Track
	index       int
	volume      float64
	speed       float64
	playing     bool
	paused      bool
	trackTitle  string
	duration    time.Duration
	hasDuration bool
}

// New creates a session over the given transport.
func New(t Transport) *Session {
	return &Session{
		transport: t,
		probe:     probe.Duration,
		devices:   output.Devices,
		volume:    1,
		speed:     1,
	}
}

// SetPlaylist replaces the playlist and rewinds the index. Playback of an
// already-loaded track is not interrupted.
func (s *Session) SetPlaylist(tracks []Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlist = append([]Track(nil), tracks...)
	s.index = 0
}

// Play starts the track at index from the given offset.
func (s *Session) Play(index int, offset time.Duration) (TrackInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playLocked(index, offset)
}

func (s *Session) playLocked(index int, offset time.Duration) (TrackInfo, error) {
	if index < 0 || index >= len(s.playlist) {
		return TrackInfo{}, ErrInvalidIndex
	}

	track := s.playlist[index]
	duration, known := s.probe(track.Path)

	s.transport.Play(track.Path, s.volume, offset)

	s.index = index
	s.playing = true
	s.paused = false
	s.trackTitle = track.Title
	s.duration = duration
	s.hasDuration = known

	return TrackInfo{
		Path:        track.Path,
		Title:       track.Title,
		Index:       index,
		Duration:    duration,
		HasDuration: known,
	}, nil
}

// TogglePause flips between paused and playing, returning the new paused
// state.
func (s *Session) TogglePause() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return false, ErrNothingPlaying
	}

	if s.paused {
		s.transport.Resume()
		s.paused = false
	} else {
		s.transport.Pause()
		s.paused = true
	}
	return s.paused, nil
}

// Stop ends playback and clears the current track.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transport.Stop()
	s.playing = false
	s.paused = false
	s.trackTitle = ""
	s.duration = 0
	s.hasDuration = false
}

// Next advances to the following track, wrapping at the end of the
// playlist.
func (s *Session) Next() (TrackInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.playlist) == 0 {
		return TrackInfo{}, ErrEmptyPlaylist
	}
	return s.playLocked((s.index+1)%len(s.playlist), 0)
}

// Previous steps back one track, wrapping at the start of the playlist.
func (s *Session) Previous() (TrackInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.playlist)
	if n == 0 {
		return TrackInfo{}, ErrEmptyPlaylist
	}
	return s.playLocked((s.index-1+n)%n, 0)
}

// SetVolume clamps level to [0,1], applies it and returns the clamped
// value.
func (s *Session) SetVolume(level float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	level = clamp(level, 0, 1)
	s.volume = level
	s.transport.SetVolume(level)
	return level
}

// SetSpeed clamps the multiplier to [MinSpeed,MaxSpeed], applies it and
// returns the clamped value.
func (s *Session) SetSpeed(multiplier float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	multiplier = clamp(multiplier, MinSpeed, MaxSpeed)
	s.speed = multiplier
	s.transport.SetSpeed(multiplier)
	return multiplier
}

// Seek moves playback to the absolute position, clamped to the known
// track duration (unclamped above when the duration is unknown).
func (s *Session) Seek(position time.Duration) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekLocked(position)
}

func (s *Session) seekLocked(position time.Duration) (time.Duration, error) {
	if !s.playing {
		return 0, ErrNothingPlaying
	}

	if position < 0 {
		position = 0
	}
	if s.hasDuration && position > s.duration {
		position = s.duration
	}

	s.transport.Seek(position)
	return position, nil
}

// SeekRelative moves playback by delta from the current elapsed position.
func (s *Session) SeekRelative(delta time.Duration) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return 0, ErrNothingPlaying
	}
	return s.seekLocked(s.transport.Elapsed() + delta)
}

// Status returns a snapshot of the session and engine state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Playing:     s.playing,
		Paused:      s.paused,
		Finished:    s.transport.Finished(),
		TrackTitle:  s.trackTitle,
		Index:       s.index,
		Volume:      s.volume,
		Speed:       s.speed,
		PlaylistLen: len(s.playlist),
		Elapsed:     s.transport.Elapsed(),
		Duration:    s.duration,
		HasDuration: s.hasDuration,
	}
}

// Tracks returns a copy of the playlist.
func (s *Session) Tracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Track(nil), s.playlist...)
}

// OutputDevices lists the available playback devices. Informational; no
// playback side effect.
func (s *Session) OutputDevices() ([]output.Device, error) {
	return s.devices()
}

// SetOutputDevice switches playback to the named device, or the system
// default when name is empty. Fire-and-forget.
func (s *Session) SetOutputDevice(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport.SetDevice(name)
}

// Close shuts the underlying engine down.
func (s *Session) Close() {
	s.transport.Close()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
