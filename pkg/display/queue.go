// Package display carries the text the character is speaking to whatever
// shows it: a terminal view, the web dashboard, or the log.
//
// Producers push onto a Queue from any goroutine; exactly one renderer
// drains it on a fixed poll interval.
package display

import "sync"

// DefaultQueueSize bounds pending updates between polls.
const DefaultQueueSize = 32

// Queue is a bounded FIFO of display updates. Pushing never blocks: when
// the queue is full the oldest update is discarded, since only the latest
// text matters on screen.
type Queue struct {
	mu      sync.Mutex
	ch      chan string
	dropped uint64
}

// NewQueue creates a queue holding up to size updates.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan string, size)}
}

// Push enqueues text. The empty string means "clear".
func (q *Queue) Push(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case q.ch <- text:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped++
		default:
		}
	}
}

// Drain returns every pending update in order without blocking.
func (q *Queue) Drain() []string {
	var out []string
	for {
		select {
		case t := <-q.ch:
			out = append(out, t)
		default:
			return out
		}
	}
}

// Len returns the number of pending updates.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns how many updates were discarded on overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
