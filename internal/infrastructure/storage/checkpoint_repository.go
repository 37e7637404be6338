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

// ErrCheckpointNotFound is returned when a thread/checkpoint id pair has no
// matching row.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// CheckpointRepository persists CheckpointModel rows using Bun ORM.
type CheckpointRepository struct {
	db *bun.DB
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(db *bun.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Create inserts a new checkpoint row.
func (r *CheckpointRepository) Create(ctx context.Context, cp *models.CheckpointModel) error {
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	_, err := r.db.NewInsert().Model(cp).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	return nil
}

// Latest loads the most recently created checkpoint for a thread.
func (r *CheckpointRepository) Latest(ctx context.Context, threadID string) (*models.CheckpointModel, error) {
	cp := new(models.CheckpointModel)
	err := r.db.NewSelect().Model(cp).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest checkpoint: %w", err)
	}
	return cp, nil
}

// Get loads a specific checkpoint by (thread_id, id).
func (r *CheckpointRepository) Get(ctx context.Context, threadID string, id uuid.UUID) (*models.CheckpointModel, error) {
	cp := new(models.CheckpointModel)
	err := r.db.NewSelect().Model(cp).
		Where("thread_id = ? AND id = ?", threadID, id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// Delete removes a checkpoint row.
func (r *CheckpointRepository) Delete(ctx context.Context, threadID string, id uuid.UUID) error {
	_, err := r.db.NewDelete().Model((*models.CheckpointModel)(nil)).
		Where("thread_id = ? AND id = ?", threadID, id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
