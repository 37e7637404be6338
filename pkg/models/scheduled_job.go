package models

import (
	"fmt"
	"time"
)

// ScheduledJobStatus is the lifecycle state of a ScheduledJob.
type ScheduledJobStatus string

const (
	ScheduledJobStatusActive ScheduledJobStatus = "active"
	ScheduledJobStatusPaused ScheduledJobStatus = "paused"
	ScheduledJobStatusDone   ScheduledJobStatus = "done"
	ScheduledJobStatusDead   ScheduledJobStatus = "dead"
)

// ScheduledJob is a durable, self-rescheduling record describing a recurring
// firing of a specific trigger node: (id, workflow_id, trigger_node_id,
// interval_seconds, repeat_count, repeat_done, retry_max, retry_done,
// status, last_run_at?, next_run_at?, last_error?, payload?).
type ScheduledJob struct {
	ID             string                 `json:"id"`
	WorkflowID     string                 `json:"workflow_id"`
	TriggerNodeID  string                 `json:"trigger_node_id"`
	IntervalSeconds int                   `json:"interval_seconds"`
	RepeatCount    int                    `json:"repeat_count"` // 0 = unbounded
	RepeatDone     int                    `json:"repeat_done"`
	RetryMax       int                    `json:"retry_max"`
	RetryDone      int                    `json:"retry_done"`
	Status         ScheduledJobStatus     `json:"status"`
	LastRunAt      *time.Time             `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time             `json:"next_run_at,omitempty"`
	LastError      string                 `json:"last_error,omitempty"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// EnqueueKey is the deterministic job-queue key for the job's current
// (repeat_done, retry_done) pair, guaranteeing at most one enqueued
// occurrence per state transition per the JobQueue's dedup contract.
func (j *ScheduledJob) EnqueueKey() string {
	return fmt.Sprintf("sched-%s-n%d-rc%d", j.ID, j.RepeatDone, j.RetryDone)
}

// Exhausted reports whether the job has satisfied its bounded repeat count.
func (j *ScheduledJob) Exhausted() bool {
	return j.RepeatCount > 0 && j.RepeatDone >= j.RepeatCount
}

// RetriesExhausted reports whether the job has exceeded its retry budget.
func (j *ScheduledJob) RetriesExhausted() bool {
	return j.RetryDone > j.RetryMax
}

// BackoffDuration computes the retry backoff after RetryDone failed
// attempts, capped at 10x the base interval.
func (j *ScheduledJob) BackoffDuration() time.Duration {
	base := time.Duration(j.IntervalSeconds) * time.Second
	backoff := base
	for i := 0; i < j.RetryDone; i++ {
		backoff *= 2
		if cap := 10 * base; backoff > cap {
			return cap
		}
	}
	return backoff
}
