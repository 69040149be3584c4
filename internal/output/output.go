// Package output owns the connection to a playback device. A Stream is
// bound to one device for its whole lifetime; switching devices means
// closing the stream and opening a new one.
package output

import "github.com/gopxl/beep/v2"

// Device describes an available playback device.
type Device struct {
	Name      string
	IsDefault bool
}

// Stream is a live audio output. The installed streamer is pulled from the
// device's data callback; Lock/Unlock must be held around any mutation of
// the streamer graph (pause flags, volume, seeks).
type Stream interface {
	// SampleRate returns the rate the device was opened at.
	SampleRate() int

	// Play installs the streamer that feeds the device, replacing any
	// previous one. Silence is emitted once the streamer drains.
	Play(s beep.Streamer)

	// Clear removes the current streamer, leaving the device on silence.
	Clear()

	// Lock and Unlock guard the streamer graph against the data callback.
	Lock()
	Unlock()

	// Close stops the device and releases it.
	Close() error
}
