package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemodels "github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
	pkgengine "github.com/theuselessai/pipelit/pkg/engine"
)

// fakeJobStore is an in-memory jobStore so Scheduler can be exercised without
// a database.
type fakeJobStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*storagemodels.ScheduledJobModel
}

func newFakeJobStore(rows ...*storagemodels.ScheduledJobModel) *fakeJobStore {
	s := &fakeJobStore{rows: make(map[uuid.UUID]*storagemodels.ScheduledJobModel)}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *fakeJobStore) Get(ctx context.Context, id uuid.UUID) (*storagemodels.ScheduledJobModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return row, nil
}

func (s *fakeJobStore) Update(ctx context.Context, job *storagemodels.ScheduledJobModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[job.ID] = job
	return nil
}

func (s *fakeJobStore) FindDue(ctx context.Context) ([]*storagemodels.ScheduledJobModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*storagemodels.ScheduledJobModel
	now := time.Now()
	for _, row := range s.rows {
		if row.Status != "active" {
			continue
		}
		if row.NextRunAt == nil || !row.NextRunAt.After(now) {
			due = append(due, row)
		}
	}
	return due, nil
}

// fakeQueue records enqueued jobs and can be made to fail on demand.
type fakeQueue struct {
	mu      sync.Mutex
	jobs    []pkgengine.Job
	failNow bool
}

func (q *fakeQueue) Enqueue(ctx context.Context, job pkgengine.Job) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failNow {
		return false, errors.New("enqueue failed")
	}
	q.jobs = append(q.jobs, job)
	return true, nil
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*pkgengine.Job, error) { return nil, nil }
func (q *fakeQueue) Cancel(ctx context.Context, jobID string) error      { return nil }
func (q *fakeQueue) Len(ctx context.Context) (int, error)                { return len(q.jobs), nil }

func newRow(interval, repeatCount, retryMax int) *storagemodels.ScheduledJobModel {
	return &storagemodels.ScheduledJobModel{
		ID:              uuid.New(),
		WorkflowID:      uuid.New(),
		TriggerNodeID:   "trigger-1",
		IntervalSeconds: interval,
		RepeatCount:     repeatCount,
		RetryMax:        retryMax,
		Status:          "active",
	}
}

func TestScheduler_ProcessDue_EnqueuesAndReschedules(t *testing.T) {
	row := newRow(60, 0, 3)
	store := newFakeJobStore(row)
	queue := &fakeQueue{}
	s := &Scheduler{repo: store, queue: queue, tickInterval: DefaultTickInterval}

	require.NoError(t, s.ProcessDue(context.Background()))

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "start_execution", queue.jobs[0].Kind)
	assert.Equal(t, row.WorkflowID.String(), queue.jobs[0].WorkflowID)

	updated, err := store.Get(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RepeatDone)
	assert.Equal(t, 0, updated.RetryDone)
	assert.NotNil(t, updated.NextRunAt)
	assert.Equal(t, "active", updated.Status)
}

func TestScheduler_ProcessDue_ExhaustsRepeatCount(t *testing.T) {
	row := newRow(60, 1, 3)
	store := newFakeJobStore(row)
	queue := &fakeQueue{}
	s := &Scheduler{repo: store, queue: queue, tickInterval: DefaultTickInterval}

	require.NoError(t, s.ProcessDue(context.Background()))

	updated, err := store.Get(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", updated.Status)
	assert.Nil(t, updated.NextRunAt)
}

func TestScheduler_ProcessDue_BacksOffOnEnqueueFailure(t *testing.T) {
	row := newRow(60, 0, 3)
	store := newFakeJobStore(row)
	queue := &fakeQueue{failNow: true}
	s := &Scheduler{repo: store, queue: queue, tickInterval: DefaultTickInterval}

	require.NoError(t, s.ProcessDue(context.Background()))

	updated, err := store.Get(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RetryDone)
	assert.Equal(t, "active", updated.Status)
	assert.NotEmpty(t, updated.LastError)
	require.NotNil(t, updated.NextRunAt)
	assert.True(t, updated.NextRunAt.After(time.Now()))
}

func TestScheduler_ProcessDue_DiesAfterRetriesExhausted(t *testing.T) {
	row := newRow(60, 0, 1)
	row.RetryDone = 1
	store := newFakeJobStore(row)
	queue := &fakeQueue{failNow: true}
	s := &Scheduler{repo: store, queue: queue, tickInterval: DefaultTickInterval}

	require.NoError(t, s.ProcessDue(context.Background()))

	updated, err := store.Get(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, "dead", updated.Status)
}

func TestScheduler_PauseAndResume(t *testing.T) {
	row := newRow(60, 0, 3)
	store := newFakeJobStore(row)
	queue := &fakeQueue{}
	s := &Scheduler{repo: store, queue: queue, tickInterval: DefaultTickInterval}

	require.NoError(t, s.Pause(context.Background(), row.ID.String()))
	paused, err := store.Get(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, "paused", paused.Status)

	require.NoError(t, s.Resume(context.Background(), row.ID.String()))
	resumed, err := store.Get(context.Background(), row.ID)
	require.NoError(t, err)
	assert.Equal(t, "active", resumed.Status)
	assert.Nil(t, resumed.NextRunAt)
}
