//go:build linux

package mpris

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/ldelacroix/cadenza/internal/session"
)

// Adapter exposes the playback session on the desktop D-Bus as an MPRIS
// media player.
type Adapter struct {
	server *server.Server
}

// New creates and starts a new MPRIS adapter.
func New(sess *session.Session) (*Adapter, error) {
	a := &Adapter{}

	rootAdapter := &rootAdapter{}
	playerAdapter := &playerAdapter{session: sess}

	a.server = server.NewServer("cadenza", rootAdapter, playerAdapter)

	// Start the server in background
	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil // Track list interface not implemented
}

func (r *rootAdapter) Identity() (string, error) {
	return "Cadenza", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav", "audio/ogg"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
type playerAdapter struct {
	session *session.Session
}

func (p *playerAdapter) Next() error {
	_, err := p.session.Next()
	if errors.Is(err, session.ErrEmptyPlaylist) {
		return nil
	}
	return err
}

func (p *playerAdapter) Previous() error {
	_, err := p.session.Previous()
	if errors.Is(err, session.ErrEmptyPlaylist) {
		return nil
	}
	return err
}

func (p *playerAdapter) Pause() error {
	st := p.session.Status()
	if !st.Playing || st.Paused {
		return nil
	}
	_, err := p.session.TogglePause()
	return err
}

func (p *playerAdapter) PlayPause() error {
	_, err := p.session.TogglePause()
	if errors.Is(err, session.ErrNothingPlaying) {
		return nil
	}
	return err
}

func (p *playerAdapter) Stop() error {
	p.session.Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	st := p.session.Status()
	switch {
	case st.Playing && st.Paused:
		_, err := p.session.TogglePause()
		return err
	case !st.Playing && st.PlaylistLen > 0:
		_, err := p.session.Play(st.Index, 0)
		return err
	}
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	_, err := p.session.SeekRelative(time.Duration(offset) * time.Microsecond)
	if errors.Is(err, session.ErrNothingPlaying) {
		return nil
	}
	return err
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	_, err := p.session.Seek(time.Duration(position) * time.Microsecond)
	if errors.Is(err, session.ErrNothingPlaying) {
		return nil
	}
	return err
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	st := p.session.Status()
	switch {
	case st.Playing && st.Paused:
		return types.PlaybackStatusPaused, nil
	case st.Playing:
		return types.PlaybackStatusPlaying, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return p.session.Status().Speed, nil
}

func (p *playerAdapter) SetRate(rate float64) error {
	p.session.SetSpeed(rate)
	return nil
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	st := p.session.Status()
	if !st.Playing {
		return types.Metadata{}, nil
	}

	tracks := p.session.Tracks()
	if st.Index < 0 || st.Index >= len(tracks) {
		return types.Metadata{}, nil
	}
	track := tracks[st.Index]

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(track.Path)),
		Title:   track.Title,
	}
	if st.HasDuration {
		meta.Length = types.Microseconds(st.Duration.Microseconds())
	}

	if art := coverArtURL(track.Path); art != "" {
		meta.ArtUrl = art
	}

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.session.Status().Volume, nil
}

func (p *playerAdapter) SetVolume(volume float64) error {
	p.session.SetVolume(volume)
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.session.Status().Elapsed.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return session.MinSpeed, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return session.MaxSpeed, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return p.session.Status().PlaylistLen > 0, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.session.Status().PlaylistLen > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.session.Status().PlaylistLen > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(path string) string {
	h := fnv.New64a()
	h.Write([]byte(path))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
