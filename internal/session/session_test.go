package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldelacroix/cadenza/internal/output"
)

// newTestSession builds a session over a mock transport with a canned
// duration per path (zero duration means unknown).
func newTestSession(durations map[string]time.Duration, tracks ...Track) (*Session, *MockTransport) {
	m := NewMockTransport()
	s := New(m)
	s.probe = func(path string) (time.Duration, bool) {
		d, ok := durations[path]
		return d, ok
	}
	s.devices = func() ([]output.Device, error) {
		return []output.Device{{Name: "Built-in", IsDefault: true}}, nil
	}
	s.SetPlaylist(tracks)
	return s, m
}

func twoTracks() (map[string]time.Duration, []Track) {
	durations := map[string]time.Duration{
		"/a.mp3":  30 * time.Second,
		"/b.flac": 45 * time.Second,
	}
	tracks := []Track{
		{Path: "/a.mp3", Title: "a.mp3"},
		{Path: "/b.flac", Title: "b.flac"},
	}
	return durations, tracks
}

func TestPlay_ValidIndex(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	info, err := s.Play(0, 0)
	require.NoError(t, err)

	assert.Equal(t, "/a.mp3", info.Path)
	assert.Equal(t, 0, info.Index)
	assert.Equal(t, 30*time.Second, info.Duration)
	assert.True(t, info.HasDuration)

	require.Len(t, m.PlayCalls, 1)
	assert.Equal(t, MockPlay{Path: "/a.mp3", Volume: 1, Offset: 0}, m.PlayCalls[0])

	st := s.Status()
	assert.True(t, st.Playing)
	assert.False(t, st.Paused)
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 30*time.Second, st.Duration)
}

func TestPlay_AtOffset(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	_, err := s.Play(1, 12*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, m.PlayCalls[0].Offset)
}

func TestPlay_InvalidIndexLeavesStateUnchanged(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	_, err := s.Play(1, 0)
	require.NoError(t, err)
	before := s.Status()

	_, err = s.Play(2, 0)
	assert.ErrorIs(t, err, ErrInvalidIndex)
	_, err = s.Play(-1, 0)
	assert.ErrorIs(t, err, ErrInvalidIndex)

	assert.Equal(t, before, s.Status())
	assert.Len(t, m.PlayCalls, 1, "no command sent for invalid indices")
}

func TestNextPrevious_WrapModularly(t *testing.T) {
	durations, tracks := twoTracks()
	s, _ := newTestSession(durations, tracks...)

	info, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, info.Index)
	assert.Equal(t, 45*time.Second, info.Duration)

	info, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, info.Index, "next wraps to the start")

	info, err = s.Previous()
	require.NoError(t, err)
	assert.Equal(t, 1, info.Index, "previous wraps to the end")
}

func TestNextPrevious_EmptyPlaylist(t *testing.T) {
	s, _ := newTestSession(nil)

	_, err := s.Next()
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
	_, err = s.Previous()
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
}

func TestTogglePause_Cycle(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	_, err := s.Play(0, 0)
	require.NoError(t, err)

	paused, err := s.TogglePause()
	require.NoError(t, err)
	assert.True(t, paused)
	assert.Equal(t, 1, m.PauseCount)

	paused, err = s.TogglePause()
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, 1, m.ResumeCount)
	assert.False(t, s.Status().Paused)
}

func TestTogglePause_NothingPlaying(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	before := s.Status()
	_, err := s.TogglePause()
	assert.ErrorIs(t, err, ErrNothingPlaying)
	assert.Equal(t, before, s.Status())
	assert.Zero(t, m.PauseCount)
}

func TestStop_ClearsTransportFlags(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	_, err := s.Play(1, 0)
	require.NoError(t, err)
	s.Stop()

	st := s.Status()
	assert.False(t, st.Playing)
	assert.False(t, st.Paused)
	assert.Empty(t, st.TrackTitle)
	assert.False(t, st.HasDuration)
	assert.Equal(t, 1, st.Index, "index survives stop")
	assert.Equal(t, 1, m.StopCount)
}

func TestSetVolume_Clamps(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{0, 0},
		{1, 1},
		{-3, 0},
		{1.7, 1},
	}

	for _, tt := range tests {
		s, m := newTestSession(nil)
		got := s.SetVolume(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, s.Status().Volume)
		assert.Equal(t, []float64{tt.want}, m.VolumeCalls)
	}
}

func TestSetSpeed_Clamps(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1, 1},
		{0.25, 0.25},
		{3, 3},
		{0.1, 0.25},
		{10, 3},
	}

	for _, tt := range tests {
		s, _ := newTestSession(nil)
		got := s.SetSpeed(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, s.Status().Speed)
	}
}

func TestPlay_CarriesCurrentVolume(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	s.SetVolume(0.3)
	_, err := s.Play(0, 0)
	require.NoError(t, err)

	assert.Equal(t, 0.3, m.PlayCalls[0].Volume)
}

func TestSeek_ClampsToDuration(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	_, err := s.Play(0, 0) // 30s track
	require.NoError(t, err)

	got, err := s.Seek(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, got)

	got, err = s.Seek(100 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, got)

	got, err = s.Seek(-5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), got)

	assert.Equal(t, []time.Duration{10 * time.Second, 30 * time.Second, 0}, m.SeekCalls)
}

func TestSeek_UnclampedAboveWhenDurationUnknown(t *testing.T) {
	s, m := newTestSession(nil, Track{Path: "/mystery.ogg", Title: "mystery"})

	_, err := s.Play(0, 0) // probe reports unknown
	require.NoError(t, err)

	got, err := s.Seek(9999 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 9999*time.Second, got)
	assert.Equal(t, []time.Duration{9999 * time.Second}, m.SeekCalls)
}

func TestSeek_NothingPlaying(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	_, err := s.Seek(10 * time.Second)
	assert.ErrorIs(t, err, ErrNothingPlaying)
	assert.Empty(t, m.SeekCalls)
}

func TestSeekRelative_ClampsBothWays(t *testing.T) {
	durations := map[string]time.Duration{"/long.mp3": 100 * time.Second}
	s, m := newTestSession(durations, Track{Path: "/long.mp3", Title: "long"})

	_, err := s.Play(0, 0)
	require.NoError(t, err)
	m.ElapsedValue = 10 * time.Second

	got, err := s.SeekRelative(-20 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), got)

	got, err = s.SeekRelative(200 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Second, got)

	got, err = s.SeekRelative(15 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Second, got)
}

func TestSeekRelative_NothingPlaying(t *testing.T) {
	durations, tracks := twoTracks()
	s, _ := newTestSession(durations, tracks...)

	_, err := s.SeekRelative(5 * time.Second)
	assert.ErrorIs(t, err, ErrNothingPlaying)
}

func TestStatus_Snapshot(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	_, err := s.Play(1, 0)
	require.NoError(t, err)
	m.ElapsedValue = 7 * time.Second

	st := s.Status()
	assert.True(t, st.Playing)
	assert.Equal(t, "b.flac", st.TrackTitle)
	assert.Equal(t, 1, st.Index)
	assert.Equal(t, 2, st.PlaylistLen)
	assert.Equal(t, 7*time.Second, st.Elapsed)
	assert.Equal(t, 45*time.Second, st.Duration)
}

func TestStatus_FinishedReflectsEngine(t *testing.T) {
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	_, err := s.Play(0, 0)
	require.NoError(t, err)
	assert.False(t, s.Status().Finished)

	m.FinishedValue = true
	assert.True(t, s.Status().Finished)
}

func TestScenario_TwoTrackAlbum(t *testing.T) {
	// playlist = [A(30s), B(45s)]: play(0) shows 30s, next() shows 45s,
	// seek(40)+seekRelative(10) clamps to 45.
	durations, tracks := twoTracks()
	s, m := newTestSession(durations, tracks...)

	info, err := s.Play(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Index)
	assert.Equal(t, 30*time.Second, info.Duration)

	info, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, info.Index)
	assert.Equal(t, 45*time.Second, info.Duration)

	got, err := s.Seek(40 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, got)

	m.ElapsedValue = 40 * time.Second
	got, err = s.SeekRelative(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, got)
}

func TestSetPlaylist_RewindsIndex(t *testing.T) {
	durations, tracks := twoTracks()
	s, _ := newTestSession(durations, tracks...)

	_, err := s.Play(1, 0)
	require.NoError(t, err)

	s.SetPlaylist([]Track{{Path: "/c.wav", Title: "c"}})
	st := s.Status()
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 1, st.PlaylistLen)
}

func TestOutputDevices(t *testing.T) {
	s, _ := newTestSession(nil)

	devices, err := s.OutputDevices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Built-in", devices[0].Name)
	assert.True(t, devices[0].IsDefault)
}

func TestSetOutputDevice_Forwards(t *testing.T) {
	s, m := newTestSession(nil)

	s.SetOutputDevice("USB DAC")
	s.SetOutputDevice("")

	assert.Equal(t, []string{"USB DAC", ""}, m.DeviceCalls)
}

func TestClose(t *testing.T) {
	s, m := newTestSession(nil)
	s.Close()
	assert.True(t, m.Closed)
}

func TestPlay_ProbeFailureStillPlays(t *testing.T) {
	// A track whose duration cannot be determined still plays; duration is
	// simply unknown.
	s, m := newTestSession(nil, Track{Path: "/odd.wav", Title: "odd"})

	info, err := s.Play(0, 0)
	require.NoError(t, err)
	assert.False(t, info.HasDuration)
	assert.Len(t, m.PlayCalls, 1)
}
