// Package engine drives audio playback from a single worker goroutine.
// The worker is the only owner of the output stream and the active sink;
// everyone else talks to it through an unbounded FIFO command queue and a
// narrow read-only surface (Elapsed, Finished). The worker waits for
// commands with a bounded timeout so it can notice a drained sink even
// when no commands arrive.
package engine

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/sirupsen/logrus"

	"github.com/ldelacroix/cadenza/internal/output"
	"github.com/ldelacroix/cadenza/internal/source"
)

// pollInterval bounds the wait for the next command. Anything in the
// 50-250ms range works; lower values detect track completion sooner at the
// cost of more wakeups.
const pollInterval = 100 * time.Millisecond

// audioStream is the slice of output.Stream the engine needs. Narrowed to
// an interface so tests can run the worker against a fake device.
type audioStream interface {
	SampleRate() int
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
	Close() error
}

// audioSource is a decoded sample stream with format metadata and a
// declared seek class.
type audioSource interface {
	beep.StreamSeekCloser
	Format() beep.Format
	FastSeek() bool
}

type openStreamFunc func(device string) (audioStream, error)

type openSourceFunc func(path string, offset time.Duration) (audioSource, error)

// Engine is the playback worker. All exported methods are safe for
// concurrent use; command senders never block on processing.
type Engine struct {
	queue *commandQueue

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}

	// Reader-visible playback state, guarded by mu. Mutated only by the
	// worker goroutine.
	mu       sync.Mutex
	clock    clock
	track    string
	finished bool
	volume   float64

	// Worker-private; touched only from run().
	stream audioStream
	sink   *sink
	device string
	speed  float64

	openStream openStreamFunc
	openSource openSourceFunc
	log        *logrus.Entry
}

// New creates an engine and starts its worker. The output stream is opened
// lazily on the first Play so a missing audio backend does not fail
// startup.
func New() *Engine {
	return newEngine(
		func(device string) (audioStream, error) {
			return output.Open(device)
		},
		func(path string, offset time.Duration) (audioSource, error) {
			return source.Open(path, offset)
		},
	)
}

func newEngine(openStream openStreamFunc, openSource openSourceFunc) *Engine {
	e := &Engine{
		queue:      newCommandQueue(),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		volume:     1,
		speed:      1,
		openStream: openStream,
		openSource: openSource,
		log:        logrus.WithField("component", "engine"),
	}
	go e.run()
	return e
}

// Play starts playback of path at the given volume and start offset,
// replacing whatever was playing. On decode failure the engine state is
// left untouched.
func (e *Engine) Play(path string, volume float64, offset time.Duration) {
	e.queue.push(command{kind: cmdPlay, path: path, volume: volume, offset: offset})
}

// Pause freezes playback and the clock.
func (e *Engine) Pause() {
	e.queue.push(command{kind: cmdPause})
}

// Resume continues paused playback.
func (e *Engine) Resume() {
	e.queue.push(command{kind: cmdResume})
}

// Stop discards the active sink and resets the clock.
func (e *Engine) Stop() {
	e.queue.push(command{kind: cmdStop})
}

// SetVolume applies the level to the active sink, if any. It does not
// carry over to a later Play, which brings its own volume.
func (e *Engine) SetVolume(level float64) {
	e.queue.push(command{kind: cmdSetVolume, volume: level})
}

// SetSpeed changes the playback rate of the active sink. Elapsed-time
// bookkeeping stays wall-clock based and is not affected.
func (e *Engine) SetSpeed(multiplier float64) {
	e.queue.push(command{kind: cmdSetSpeed, speed: multiplier})
}

// Seek moves playback to the absolute target position.
func (e *Engine) Seek(target time.Duration) {
	e.queue.push(command{kind: cmdSeek, offset: target})
}

// SetDevice rebinds the output to the named device (empty means system
// default), restarting the current track at its captured position if
// playback was active.
func (e *Engine) SetDevice(name string) {
	e.queue.push(command{kind: cmdSetDevice, device: name})
}

// Elapsed returns the current playback position.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.elapsed(time.Now())
}

// Finished reports whether the loaded track ran to completion.
func (e *Engine) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

// Close stops the worker and releases the output device.
func (e *Engine) Close() {
	e.quitOnce.Do(func() { close(e.quit) })
	<-e.done
}

func (e *Engine) run() {
	for {
		e.checkDrained()

		select {
		case <-e.queue.wake:
			for {
				c, ok := e.queue.pop()
				if !ok {
					break
				}
				e.handle(c)
			}
		case <-time.After(pollInterval):
		case <-e.quit:
			e.teardown()
			close(e.done)
			return
		}
	}
}

func (e *Engine) handle(c command) {
	switch c.kind {
	case cmdPlay:
		e.handlePlay(c.path, c.volume, c.offset)
	case cmdPause:
		e.handlePause()
	case cmdResume:
		e.handleResume()
	case cmdStop:
		e.handleStop()
	case cmdSetVolume:
		e.handleSetVolume(c.volume)
	case cmdSetSpeed:
		e.handleSetSpeed(c.speed)
	case cmdSeek:
		e.handleSeek(c.offset)
	case cmdSetDevice:
		e.handleSetDevice(c.device)
	}
}

// checkDrained marks the track finished once the sink reports an exhausted
// stream. Idempotent; re-evaluated on every loop iteration.
func (e *Engine) checkDrained() {
	if e.sink == nil || !e.sink.drained.Load() {
		return
	}
	e.mu.Lock()
	if e.track != "" && !e.finished {
		e.finished = true
	}
	e.mu.Unlock()
}

func (e *Engine) handlePlay(path string, volume float64, offset time.Duration) {
	if !e.ensureStream() {
		return
	}

	src, err := e.openSource(path, offset)
	if err != nil {
		e.log.WithError(err).WithField("path", path).Debug("play: open failed")
		return
	}

	e.discardSink()
	e.installSink(src, volume)

	now := time.Now()
	e.mu.Lock()
	e.clock.start(now, offset)
	e.track = path
	e.finished = false
	e.volume = volume
	e.mu.Unlock()
}

func (e *Engine) handlePause() {
	if e.sink == nil || e.sink.paused() {
		return
	}
	e.stream.Lock()
	e.sink.setPaused(true)
	e.stream.Unlock()

	now := time.Now()
	e.mu.Lock()
	e.clock.pause(now)
	e.mu.Unlock()
}

func (e *Engine) handleResume() {
	if e.sink == nil || !e.sink.paused() {
		return
	}
	e.stream.Lock()
	e.sink.setPaused(false)
	e.stream.Unlock()

	now := time.Now()
	e.mu.Lock()
	e.clock.resume(now)
	e.mu.Unlock()
}

func (e *Engine) handleStop() {
	e.discardSink()

	e.mu.Lock()
	e.clock.reset()
	e.track = ""
	e.finished = false
	e.mu.Unlock()
}

func (e *Engine) handleSetVolume(level float64) {
	e.mu.Lock()
	e.volume = level
	e.mu.Unlock()
	if e.sink == nil {
		return
	}
	e.stream.Lock()
	e.sink.setVolume(level)
	e.stream.Unlock()
}

func (e *Engine) handleSetSpeed(multiplier float64) {
	e.speed = multiplier
	if e.sink == nil {
		return
	}
	e.stream.Lock()
	e.sink.setSpeed(e.stream.SampleRate(), multiplier)
	e.stream.Unlock()
}

func (e *Engine) handleSeek(target time.Duration) {
	e.mu.Lock()
	track := e.track
	volume := e.volume
	e.mu.Unlock()

	if track == "" || e.sink == nil {
		return
	}

	// A drained sink's chain has already run to completion, so in-place
	// repositioning cannot restart audio; only a fresh sink can.
	if e.sink.src.FastSeek() && !e.sink.drained.Load() && e.fastSeek(target) {
		now := time.Now()
		e.mu.Lock()
		e.clock.start(now, target)
		e.mu.Unlock()
		return
	}

	// Rebuild path: new source at the target offset, volume preserved.
	src, err := e.openSource(track, target)
	if err != nil {
		e.log.WithError(err).WithField("path", track).Debug("seek: rebuild failed")
		return
	}

	e.discardSink()
	e.installSink(src, volume)

	now := time.Now()
	e.mu.Lock()
	e.clock.start(now, target)
	e.finished = false
	e.mu.Unlock()
}

// fastSeek repositions the live source in place. Any error counts as a
// full failure and sends the caller down the rebuild path.
func (e *Engine) fastSeek(target time.Duration) bool {
	src := e.sink.src
	pos := src.Format().SampleRate.N(target)
	if l := src.Len(); l > 0 && pos > l {
		pos = l
	}

	e.stream.Lock()
	err := src.Seek(pos)
	e.stream.Unlock()

	if err != nil {
		e.log.WithError(err).Debug("seek: fast path failed, rebuilding")
		return false
	}
	return true
}

func (e *Engine) handleSetDevice(name string) {
	now := time.Now()
	e.mu.Lock()
	track := e.track
	position := e.clock.elapsed(now)
	volume := e.volume
	e.mu.Unlock()

	wasActive := e.sink != nil && track != ""
	wasPaused := wasActive && e.sink.paused()

	e.discardSink()
	if e.stream != nil {
		_ = e.stream.Close()
		e.stream = nil
	}
	e.device = name

	stream, err := e.openStream(name)
	if err != nil {
		// Continue with no output; the next Play retries the open.
		e.log.WithError(err).WithField("device", name).Debug("device switch failed")
		e.mu.Lock()
		e.clock.reset()
		e.track = ""
		e.finished = false
		e.mu.Unlock()
		return
	}
	e.stream = stream

	if !wasActive {
		return
	}

	src, err := e.openSource(track, position)
	if err != nil {
		e.log.WithError(err).WithField("path", track).Debug("device switch: reopen failed")
		e.mu.Lock()
		e.clock.reset()
		e.track = ""
		e.finished = false
		e.mu.Unlock()
		return
	}

	e.installSink(src, volume)

	now = time.Now()
	e.mu.Lock()
	e.clock.start(now, position)
	e.finished = false
	if wasPaused {
		e.clock.pause(now)
	}
	e.mu.Unlock()

	if wasPaused {
		e.stream.Lock()
		e.sink.setPaused(true)
		e.stream.Unlock()
	}
}

// ensureStream opens the output lazily, retrying after a failed device
// switch. Returns false when no output can be opened.
func (e *Engine) ensureStream() bool {
	if e.stream != nil {
		return true
	}
	stream, err := e.openStream(e.device)
	if err != nil {
		e.log.WithError(err).WithField("device", e.device).Debug("output unavailable")
		return false
	}
	e.stream = stream
	return true
}

func (e *Engine) installSink(src audioSource, volume float64) {
	s := newSink(src, e.stream.SampleRate(), volume, e.speed)
	e.sink = s
	e.stream.Play(s.streamer())
}

func (e *Engine) discardSink() {
	if e.sink == nil {
		return
	}
	if e.stream != nil {
		e.stream.Clear()
	}
	_ = e.sink.src.Close()
	e.sink = nil
}

func (e *Engine) teardown() {
	e.discardSink()
	if e.stream != nil {
		_ = e.stream.Close()
		e.stream = nil
	}
}
