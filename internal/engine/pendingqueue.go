package engine

import (
	"sync"

	"github.com/visiona/frametimeline/fence"
)

type pendingEntry struct {
	fence fence.Fence
	frame *DisplayFrame
}

// pendingPresentQueue is a FIFO of (fence, DisplayFrame) pairs awaiting a
// display signal. Drain only ever looks at the front entry: if it hasn't
// signaled yet, nothing behind it is touched either, so history always
// comes out in present order even if a later fence happens to signal
// first.
type pendingPresentQueue struct {
	mu      sync.Mutex
	entries []pendingEntry
}

func newPendingPresentQueue() *pendingPresentQueue {
	return &pendingPresentQueue{}
}

// enqueue appends a (fence, frame) pair to the back of the queue.
func (q *pendingPresentQueue) enqueue(f fence.Fence, frame *DisplayFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, pendingEntry{fence: f, frame: frame})
}

// drain pops every resolved entry off the front of the queue, in order,
// calling onResolved for each. It stops at the first unsignaled fence.
func (q *pendingPresentQueue) drain(onResolved func(*DisplayFrame, int64)) {
	for {
		entry, ok := q.popFrontIfSignaled()
		if !ok {
			return
		}
		onResolved(entry.frame, entry.signalTime)
	}
}

type resolvedEntry struct {
	frame      *DisplayFrame
	signalTime int64
}

func (q *pendingPresentQueue) popFrontIfSignaled() (resolvedEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return resolvedEntry{}, false
	}
	front := q.entries[0]
	signalTime, signaled := front.fence.SignalTime()
	if !signaled {
		return resolvedEntry{}, false
	}
	q.entries = q.entries[1:]
	return resolvedEntry{frame: front.frame, signalTime: signalTime}, true
}

// len returns the number of entries still pending.
func (q *pendingPresentQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
