package pass

import "github.com/gogpu/wgpu/hal"

// Semaphore orders submissions. It is signaled by the submission index a
// queue returns; waiting on it means the GPU work up to that index must
// complete first. Queue submission order provides that guarantee on a
// single queue; across queues the Manager polls Complete before submitting.
type Semaphore struct {
	Label string

	queue hal.Queue
	value uint64
}

// NewSemaphore returns an unsignaled semaphore.
func NewSemaphore(label string) *Semaphore {
	return &Semaphore{Label: label}
}

// Signal records that submission index on q signals the semaphore.
func (s *Semaphore) Signal(q hal.Queue, index uint64) {
	s.queue, s.value = q, index
}

// Value returns the last signaling submission index.
func (s *Semaphore) Value() uint64 { return s.value }

// Queue returns the queue that last signaled the semaphore.
func (s *Semaphore) Queue() hal.Queue { return s.queue }

// Complete reports whether the signaling submission has finished.
func (s *Semaphore) Complete() bool {
	return s.queue == nil || s.queue.PollCompleted() >= s.value
}

func (s *Semaphore) String() string {
	if s == nil {
		return "<none>"
	}
	return s.Label
}

// Submission records one queue submission of a frame.
type Submission struct {
	Pass      string
	Wait      *Semaphore
	Signal    *Semaphore
	Index     uint64
	Offscreen bool
}
