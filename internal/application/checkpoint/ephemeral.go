package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	pkgengine "github.com/theuselessai/pipelit/pkg/engine"
	"github.com/theuselessai/pipelit/pkg/models"
)

// DefaultEphemeralTTL bounds how long a single-suspension checkpoint lives
// before it is reaped, in case its resume job is lost.
const DefaultEphemeralTTL = 24 * time.Hour

// Ephemeral implements pkgengine.Checkpointer against Redis. It stores one
// key per thread holding its single most recent checkpoint; unlike Durable
// it keeps no history and expires untouched entries.
type Ephemeral struct {
	client *redis.Client
	ttl    time.Duration
}

var _ pkgengine.Checkpointer = (*Ephemeral)(nil)

// NewEphemeral builds an Ephemeral checkpointer backed by client, with ttl
// applied to every saved key (DefaultEphemeralTTL if ttl <= 0).
func NewEphemeral(client *redis.Client, ttl time.Duration) *Ephemeral {
	if ttl <= 0 {
		ttl = DefaultEphemeralTTL
	}
	return &Ephemeral{client: client, ttl: ttl}
}

func threadKey(threadID string) string {
	return "checkpoint:thread:" + threadID
}

// Save overwrites the thread's single stored checkpoint.
func (e *Ephemeral) Save(ctx context.Context, cp *models.Checkpoint) (string, error) {
	if cp.CheckpointID == "" {
		cp.CheckpointID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	blob, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint: %w", err)
	}

	if err := e.client.Set(ctx, threadKey(cp.ThreadID), blob, e.ttl).Err(); err != nil {
		return "", fmt.Errorf("save checkpoint: %w", err)
	}
	return cp.CheckpointID, nil
}

// Latest returns the thread's stored checkpoint.
func (e *Ephemeral) Latest(ctx context.Context, threadID string) (*models.Checkpoint, error) {
	raw, err := e.client.Get(ctx, threadKey(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Load returns the thread's checkpoint if its id matches, since Ephemeral
// keeps no history beyond the single most recent save.
func (e *Ephemeral) Load(ctx context.Context, threadID, checkpointID string) (*models.Checkpoint, error) {
	cp, err := e.Latest(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if cp.CheckpointID != checkpointID {
		return nil, models.ErrCheckpointNotFound
	}
	return cp, nil
}

// Delete removes the thread's stored checkpoint if its id matches.
func (e *Ephemeral) Delete(ctx context.Context, threadID, checkpointID string) error {
	cp, err := e.Latest(ctx, threadID)
	if errors.Is(err, models.ErrCheckpointNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if cp.CheckpointID != checkpointID {
		return nil
	}
	return e.client.Del(ctx, threadKey(threadID)).Err()
}
