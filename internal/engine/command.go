package engine

import (
	"sync"
	"time"
)

// commandKind tags the variant carried by a command.
type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdResume
	cmdStop
	cmdSetVolume
	cmdSetSpeed
	cmdSeek
	cmdSetDevice
)

// command is one transport instruction for the engine worker. Unused
// fields are zero for kinds that do not carry them.
type command struct {
	kind   commandKind
	path   string
	volume float64
	speed  float64
	offset time.Duration
	device string
}

// commandQueue is an unbounded FIFO between callers and the worker.
// Senders never block; the worker waits on the wake channel with a timeout
// so drained-sink detection keeps running between commands.
type commandQueue struct {
	mu      sync.Mutex
	pending []command
	wake    chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{wake: make(chan struct{}, 1)}
}

func (q *commandQueue) push(c command) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *commandQueue) pop() (command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return command{}, false
	}
	c := q.pending[0]
	q.pending = q.pending[1:]
	return c, true
}
