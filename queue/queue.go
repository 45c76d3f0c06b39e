// Package queue is a durable Redis-backed work queue. Delivery is
// at-least-once: jobs move from the pending list into a per-worker processing
// list and are removed only after completion; anything left in a processing
// list when a worker restarts is pushed back for redelivery. That reclaim is
// the visibility window here, so a crashed worker's job waits for the next
// worker start rather than a timer.
package queue

import (
	"context"
	"time"
)

type Kind string

const (
	KindClick Kind = "click"
	KindChat  Kind = "chat"
)

// Job is one queued orchestrator invocation.
type Job struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	ClickID     string `json:"click_id"`
	Base64Image string `json:"base64_image,omitempty"`
	EnqueuedAt  int64  `json:"enqueued_at"`

	raw string // wire payload, kept for acknowledgement
}

// Enqueuer is the producer side, all the API server needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Consumer is the worker side.
type Consumer interface {
	// Dequeue blocks up to timeout for the next job. A nil job with a nil
	// error means the timeout elapsed with nothing pending.
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
	// Ack removes a completed (or permanently failed) job from the
	// processing list.
	Ack(ctx context.Context, job *Job) error
	// Reclaim returns this worker's stranded in-flight jobs to the pending
	// list and reports how many were moved.
	Reclaim(ctx context.Context) (int, error)
}
