// Package checkpoint provides Checkpointer implementations for the two
// lifetimes an execution's suspension can need: a durable, Postgres-backed
// history for long-lived conversations, and an ephemeral, Redis-backed store
// for a single in-flight suspension.
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/internal/infrastructure/storage"
	storagemodels "github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
	pkgengine "github.com/theuselessai/pipelit/pkg/engine"
	"github.com/theuselessai/pipelit/pkg/models"
)

// Durable implements pkgengine.Checkpointer against the durable Postgres
// store, chaining each new save onto the previous one via ParentCheckpoint.
type Durable struct {
	repo *storage.CheckpointRepository
}

var _ pkgengine.Checkpointer = (*Durable)(nil)

// NewDurable builds a Durable checkpointer backed by repo.
func NewDurable(repo *storage.CheckpointRepository) *Durable {
	return &Durable{repo: repo}
}

// Save persists cp, chaining it to the thread's prior checkpoint if one
// exists.
func (d *Durable) Save(ctx context.Context, cp *models.Checkpoint) (string, error) {
	row := &storagemodels.CheckpointModel{
		ThreadID: cp.ThreadID,
		Step:     cp.Step,
		Source:   cp.Source,
		Blob:     cp.Blob,
	}

	if prev, err := d.repo.Latest(ctx, cp.ThreadID); err == nil {
		row.ParentCheckpoint = &prev.ID
	} else if !errors.Is(err, storage.ErrCheckpointNotFound) {
		return "", fmt.Errorf("lookup prior checkpoint: %w", err)
	}

	if err := d.repo.Create(ctx, row); err != nil {
		return "", err
	}
	return row.ID.String(), nil
}

// Latest returns the most recently saved checkpoint for a thread.
func (d *Durable) Latest(ctx context.Context, threadID string) (*models.Checkpoint, error) {
	row, err := d.repo.Latest(ctx, threadID)
	if errors.Is(err, storage.ErrCheckpointNotFound) {
		return nil, models.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, err
	}
	return toCheckpoint(row), nil
}

// Load returns a specific checkpoint by (thread_id, checkpoint_id).
func (d *Durable) Load(ctx context.Context, threadID, checkpointID string) (*models.Checkpoint, error) {
	id, err := uuid.Parse(checkpointID)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint id %q: %w", checkpointID, err)
	}

	row, err := d.repo.Get(ctx, threadID, id)
	if errors.Is(err, storage.ErrCheckpointNotFound) {
		return nil, models.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, err
	}
	return toCheckpoint(row), nil
}

// Delete removes a checkpoint row.
func (d *Durable) Delete(ctx context.Context, threadID, checkpointID string) error {
	id, err := uuid.Parse(checkpointID)
	if err != nil {
		return fmt.Errorf("invalid checkpoint id %q: %w", checkpointID, err)
	}
	return d.repo.Delete(ctx, threadID, id)
}

func toCheckpoint(row *storagemodels.CheckpointModel) *models.Checkpoint {
	cp := &models.Checkpoint{
		ThreadID:     row.ThreadID,
		CheckpointID: row.ID.String(),
		Step:         row.Step,
		Source:       row.Source,
		Blob:         row.Blob,
		CreatedAt:    row.CreatedAt,
	}
	if row.ParentCheckpoint != nil {
		cp.ParentCheckpoint = row.ParentCheckpoint.String()
	}
	return cp
}
