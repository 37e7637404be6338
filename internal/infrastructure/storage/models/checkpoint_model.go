package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CheckpointModel is a durable state snapshot row keyed by thread_id, with
// an optional parent for chained history (§4.6 durable checkpoints).
type CheckpointModel struct {
	bun.BaseModel `bun:"table:checkpoints,alias:cp"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	ThreadID         string     `bun:"thread_id,notnull" json:"thread_id" validate:"required"`
	ParentCheckpoint *uuid.UUID `bun:"parent_checkpoint,type:uuid" json:"parent_checkpoint,omitempty"`
	Step             int        `bun:"step,notnull,default:0" json:"step"`
	Source           string     `bun:"source" json:"source,omitempty"`
	Blob             []byte     `bun:"blob,type:bytea" json:"blob"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// TableName returns the table name for CheckpointModel.
func (CheckpointModel) TableName() string { return "checkpoints" }

// BeforeInsert hook sets id/timestamp defaults.
func (c *CheckpointModel) BeforeInsert(ctx interface{}) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}
