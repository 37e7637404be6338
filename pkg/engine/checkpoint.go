package engine

import (
	"context"

	"github.com/theuselessai/pipelit/pkg/models"
)

// Checkpointer persists and retrieves Checkpoint rows keyed by thread_id
// (§4.6). Two lifetimes are distinguished: durable checkpoints back a
// conversation's long-lived history (one per turn, chained via
// ParentCheckpoint) and survive process restarts; ephemeral checkpoints back
// a single in-flight suspension (sub-workflow wait, timed delay) and may be
// dropped once the execution resumes or its TTL lapses.
type Checkpointer interface {
	// Save persists a checkpoint, returning its assigned CheckpointID.
	Save(ctx context.Context, cp *models.Checkpoint) (string, error)
	// Latest returns the most recently saved checkpoint for a thread, or
	// ErrCheckpointNotFound if none exists.
	Latest(ctx context.Context, threadID string) (*models.Checkpoint, error)
	// Load returns a specific checkpoint by (thread_id, checkpoint_id).
	Load(ctx context.Context, threadID, checkpointID string) (*models.Checkpoint, error)
	// Delete removes a checkpoint once it is no longer needed (ephemeral
	// checkpoints are deleted on successful resume).
	Delete(ctx context.Context, threadID, checkpointID string) error
}
