// Package txqueue implements the outbound frame priority queue (C4):
// a heap keyed by (CAN ID ascending, insertion sequence ascending), so a
// numerically lower CAN ID — higher bus priority — always pops first, and
// frames of one transfer leave in emission order.
package txqueue

import (
	"container/heap"
	"errors"

	"github.com/cyphalcan/transport/pkg/frame"
)

// ErrQueueFull is returned by Push when the queue is at capacity. The
// caller is expected to surface this as backpressure; frames already
// queued are never dropped to make room.
var ErrQueueFull = errors.New("txqueue: queue is full")

type entry struct {
	frame frame.Frame
	seq   uint64
}

// heapSlice implements container/heap.Interface. There is no suitable
// third-party priority-heap library among the example repos' dependencies,
// and the stdlib heap is the idiomatic choice for this — see DESIGN.md.
type heapSlice []entry

func (h heapSlice) Len() int { return len(h) }

func (h heapSlice) Less(i, j int) bool {
	if h[i].frame.ID != h[j].frame.ID {
		return h[i].frame.ID < h[j].frame.ID
	}
	return h[i].seq < h[j].seq
}

func (h heapSlice) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *heapSlice) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *heapSlice) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is a bounded priority queue of outbound CAN frames.
type Queue struct {
	heap     heapSlice
	capacity int
	nextSeq  uint64
}

// New creates a Queue that holds at most capacity frames.
func New(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

// Push enqueues a frame. Pushes beyond capacity fail with ErrQueueFull and
// leave the queue unchanged — already-queued frames are never evicted to
// make room.
func (q *Queue) Push(f frame.Frame) error {
	if len(q.heap) >= q.capacity {
		return ErrQueueFull
	}
	heap.Push(&q.heap, entry{frame: f, seq: q.nextSeq})
	q.nextSeq++
	return nil
}

// Peek returns the highest-priority frame without removing it.
func (q *Queue) Peek() (frame.Frame, bool) {
	if len(q.heap) == 0 {
		return frame.Frame{}, false
	}
	return q.heap[0].frame, true
}

// Pop removes and returns the highest-priority frame.
func (q *Queue) Pop() (frame.Frame, bool) {
	if len(q.heap) == 0 {
		return frame.Frame{}, false
	}
	e := heap.Pop(&q.heap).(entry)
	return e.frame, true
}

// Len returns the number of queued frames.
func (q *Queue) Len() int { return len(q.heap) }

// Capacity returns the queue's maximum size.
func (q *Queue) Capacity() int { return q.capacity }
