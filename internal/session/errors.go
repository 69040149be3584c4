package session

import "errors"

var (
	// ErrInvalidIndex is returned when a track index falls outside the
	// current playlist bounds.
	ErrInvalidIndex = errors.New("invalid track index")

	// ErrEmptyPlaylist is returned by transport operations that need at
	// least one track.
	ErrEmptyPlaylist = errors.New("playlist is empty")

	// ErrNothingPlaying is returned by pause/seek operations when no track
	// is active.
	ErrNothingPlaying = errors.New("no track is playing")
)
