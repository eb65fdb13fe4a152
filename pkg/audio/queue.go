package audio

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueClosed is returned by Push after Close has been called.
var ErrQueueClosed = errors.New("audio: queue closed")

// Queue is the bounded handoff between the audio source callback and the
// consumer loop. Push never blocks: when the queue is full the oldest frame
// is dropped so that a stalled consumer can never back-pressure the audio
// device callback. Pop blocks with a caller-supplied done channel so the
// consumer observes shutdown within one tick.
//
// Queue is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	frames  chan Frame
	dropped int
	closed  bool

	warnDrop sync.Once
}

// NewQueue creates a queue holding at most capacity frames.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{frames: make(chan Frame, capacity)}
}

// Push enqueues frame, evicting the oldest pending frame when full.
func (q *Queue) Push(frame Frame) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	for {
		select {
		case q.frames <- frame:
			return nil
		default:
		}
		select {
		case <-q.frames:
			q.dropped++
			q.warnDrop.Do(func() {
				slog.Warn("audio queue full, dropping oldest frame", "capacity", cap(q.frames))
			})
		default:
		}
	}
}

// TryPop returns the next frame without blocking. ok is false when the queue
// is empty.
func (q *Queue) TryPop() (Frame, bool) {
	select {
	case f, open := <-q.frames:
		if !open {
			return Frame{}, false
		}
		return f, true
	default:
		return Frame{}, false
	}
}

// Dropped reports how many frames have been evicted by Push so far.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Len reports the number of frames currently queued.
func (q *Queue) Len() int { return len(q.frames) }

// Close marks the queue closed. Pending frames remain poppable; further Push
// calls fail with ErrQueueClosed. Calling Close more than once is safe.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
