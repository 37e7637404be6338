package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
	"github.com/uptrace/bun"
)

// ErrScheduledJobNotFound is returned when a scheduled job id has no row.
var ErrScheduledJobNotFound = errors.New("scheduled job not found")

// ScheduledJobRepository persists ScheduledJobModel rows using Bun ORM.
type ScheduledJobRepository struct {
	db *bun.DB
}

// NewScheduledJobRepository creates a new ScheduledJobRepository.
func NewScheduledJobRepository(db *bun.DB) *ScheduledJobRepository {
	return &ScheduledJobRepository{db: db}
}

// Create inserts a new scheduled job.
func (r *ScheduledJobRepository) Create(ctx context.Context, job *models.ScheduledJobModel) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(job).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create scheduled job: %w", err)
	}
	return nil
}

// Get loads a scheduled job by ID.
func (r *ScheduledJobRepository) Get(ctx context.Context, id uuid.UUID) (*models.ScheduledJobModel, error) {
	job := new(models.ScheduledJobModel)
	err := r.db.NewSelect().Model(job).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduledJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing scheduled job.
func (r *ScheduledJobRepository) Update(ctx context.Context, job *models.ScheduledJobModel) error {
	_, err := r.db.NewUpdate().
		Model(job).
		Column("repeat_done", "retry_done", "status", "last_run_at", "next_run_at", "last_error", "updated_at").
		Where("id = ?", job.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update scheduled job: %w", err)
	}
	return nil
}

// Delete removes a scheduled job.
func (r *ScheduledJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().Model((*models.ScheduledJobModel)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// FindDue returns active jobs whose next_run_at has elapsed (or is unset,
// which crash recovery treats as immediately due).
func (r *ScheduledJobRepository) FindDue(ctx context.Context) ([]*models.ScheduledJobModel, error) {
	var jobs []*models.ScheduledJobModel
	err := r.db.NewSelect().
		Model(&jobs).
		Where("status = ?", "active").
		Where("next_run_at IS NULL OR next_run_at <= now()").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load due scheduled jobs: %w", err)
	}
	return jobs, nil
}

// FindActive returns every job not in a terminal state, for startup
// crash-recovery rescans.
func (r *ScheduledJobRepository) FindActive(ctx context.Context) ([]*models.ScheduledJobModel, error) {
	var jobs []*models.ScheduledJobModel
	err := r.db.NewSelect().
		Model(&jobs).
		Where("status IN (?)", bun.In([]string{"active", "paused"})).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active scheduled jobs: %w", err)
	}
	return jobs, nil
}
