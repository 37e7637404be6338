package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/internal/infrastructure/storage"
	storagemodels "github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
	pkgengine "github.com/theuselessai/pipelit/pkg/engine"
	"github.com/theuselessai/pipelit/pkg/models"
)

// DefaultTickInterval is how often Scheduler polls for due jobs when none is
// given explicitly.
const DefaultTickInterval = 5 * time.Second

// jobStore is the slice of *storage.ScheduledJobRepository the Scheduler
// actually uses, declared here so tests can supply a fake without a database.
type jobStore interface {
	Get(ctx context.Context, id uuid.UUID) (*storagemodels.ScheduledJobModel, error)
	Update(ctx context.Context, job *storagemodels.ScheduledJobModel) error
	FindDue(ctx context.Context) ([]*storagemodels.ScheduledJobModel, error)
}

// Scheduler advances ScheduledJob rows: it polls for rows whose NextRunAt
// has elapsed, enqueues a start_execution Job for each, and reschedules or
// retires the row depending on RepeatCount/RetryMax. A row unseen since its
// last recorded NextRunAt (including one with NextRunAt unset) is treated as
// due, which doubles as crash recovery: a fresh process's first poll
// re-enqueues anything that should have fired while nothing was running.
type Scheduler struct {
	repo         jobStore
	queue        pkgengine.JobQueue
	tickInterval time.Duration
}

// New builds a Scheduler backed by repo and queue.
func New(repo *storage.ScheduledJobRepository, queue pkgengine.JobQueue) *Scheduler {
	return &Scheduler{repo: repo, queue: queue, tickInterval: DefaultTickInterval}
}

// WithTickInterval overrides the poll cadence (tests shrink this).
func (s *Scheduler) WithTickInterval(d time.Duration) *Scheduler {
	s.tickInterval = d
	return s
}

// Run polls for due jobs until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		if err := s.ProcessDue(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessDue enqueues a start_execution job for every currently-due active
// ScheduledJob and advances its run counters.
func (s *Scheduler) ProcessDue(ctx context.Context) error {
	rows, err := s.repo.FindDue(ctx)
	if err != nil {
		return fmt.Errorf("find due scheduled jobs: %w", err)
	}

	for _, row := range rows {
		job := modelToDomain(row)

		payload := make(map[string]interface{}, len(job.Payload)+1)
		for k, v := range job.Payload {
			payload[k] = v
		}
		payload["_trigger_event"] = models.TriggerEvent{
			Kind:           models.TriggerEventSchedule,
			ArrivalTime:    time.Now(),
			ScheduledJobID: job.ID,
			TriggerNodeID:  job.TriggerNodeID,
		}

		_, enqueueErr := s.queue.Enqueue(ctx, pkgengine.Job{
			ID:            job.EnqueueKey(),
			Kind:          "start_execution",
			WorkflowID:    job.WorkflowID,
			TriggerNodeID: job.TriggerNodeID,
			Payload:       payload,
		})

		now := time.Now()
		job.LastRunAt = &now
		if enqueueErr != nil {
			job.RetryDone++
			job.LastError = enqueueErr.Error()
			if job.RetriesExhausted() {
				job.Status = models.ScheduledJobStatusDead
			} else {
				backoff := job.BackoffDuration()
				next := now.Add(backoff)
				job.NextRunAt = &next
			}
		} else {
			job.RepeatDone++
			job.RetryDone = 0
			job.LastError = ""
			if job.Exhausted() {
				job.Status = models.ScheduledJobStatusDone
				job.NextRunAt = nil
			} else {
				next := now.Add(time.Duration(job.IntervalSeconds) * time.Second)
				job.NextRunAt = &next
			}
		}

		applyDomainToModel(job, row)
		if err := s.repo.Update(ctx, row); err != nil {
			return fmt.Errorf("update scheduled job %s: %w", job.ID, err)
		}
	}
	return nil
}

// Pause suspends a scheduled job; ProcessDue skips non-active rows.
func (s *Scheduler) Pause(ctx context.Context, jobID string) error {
	return s.setStatus(ctx, jobID, models.ScheduledJobStatusPaused)
}

// Resume reactivates a paused scheduled job, making it due immediately.
func (s *Scheduler) Resume(ctx context.Context, jobID string) error {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return fmt.Errorf("invalid scheduled job id %q: %w", jobID, err)
	}
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	row.Status = string(models.ScheduledJobStatusActive)
	row.NextRunAt = nil
	return s.repo.Update(ctx, row)
}

func (s *Scheduler) setStatus(ctx context.Context, jobID string, status models.ScheduledJobStatus) error {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return fmt.Errorf("invalid scheduled job id %q: %w", jobID, err)
	}
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	row.Status = string(status)
	return s.repo.Update(ctx, row)
}
