package engine

import (
	"context"
	"time"
)

// Job is a unit of deferred work the JobQueue hands back to a worker: either
// a child execution to start (sub-workflow suspension resolves to one) or a
// resume signal for a previously suspended execution (delay/timeout firing,
// or a child workflow completing).
type Job struct {
	ID            string                 `json:"id"`
	Kind          string                 `json:"kind"` // "start_execution" | "resume_execution"
	WorkflowID    string                 `json:"workflow_id,omitempty"`
	TriggerNodeID string                 `json:"trigger_node_id,omitempty"`
	ExecutionID   string                 `json:"execution_id,omitempty"` // set for resume jobs
	Payload       map[string]interface{} `json:"payload,omitempty"`
	NotBefore     time.Time              `json:"not_before,omitempty"`
}

// JobQueue enqueues and dequeues Jobs with at-least-once delivery and
// dedup-by-id semantics (§4.9): enqueueing the same Job.ID twice is a no-op
// the second time, so a crash-recovery rescan can safely re-enqueue.
type JobQueue interface {
	// Enqueue schedules a job for immediate (or, if NotBefore is set, delayed)
	// delivery. Returns false if a job with the same ID is already queued.
	Enqueue(ctx context.Context, job Job) (bool, error)
	// Dequeue blocks (up to the context deadline) for the next ready job.
	Dequeue(ctx context.Context) (*Job, error)
	// Cancel removes a not-yet-delivered job by ID.
	Cancel(ctx context.Context, jobID string) error
	// Len reports the number of jobs currently queued (ready + delayed).
	Len(ctx context.Context) (int, error)
}
