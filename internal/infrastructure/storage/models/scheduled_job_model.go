package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ScheduledJobModel is the durable row backing a recurring trigger firing
// (§4.11): one row per (workflow, trigger node) schedule, self-rescheduling
// via NextRunAt.
type ScheduledJobModel struct {
	bun.BaseModel `bun:"table:scheduled_jobs,alias:sj"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	WorkflowID      uuid.UUID  `bun:"workflow_id,notnull,type:uuid" json:"workflow_id"`
	TriggerNodeID   string     `bun:"trigger_node_id,notnull" json:"trigger_node_id"`
	IntervalSeconds int        `bun:"interval_seconds,notnull" json:"interval_seconds"`
	RepeatCount     int        `bun:"repeat_count,notnull,default:0" json:"repeat_count"`
	RepeatDone      int        `bun:"repeat_done,notnull,default:0" json:"repeat_done"`
	RetryMax        int        `bun:"retry_max,notnull,default:0" json:"retry_max"`
	RetryDone       int        `bun:"retry_done,notnull,default:0" json:"retry_done"`
	Status          string     `bun:"status,notnull,default:'active'" json:"status" validate:"required,oneof=active paused done dead"`
	LastRunAt       *time.Time `bun:"last_run_at" json:"last_run_at,omitempty"`
	NextRunAt       *time.Time `bun:"next_run_at" json:"next_run_at,omitempty"`
	LastError       string     `bun:"last_error" json:"last_error,omitempty"`
	Payload         JSONBMap   `bun:"payload,type:jsonb,default:'{}'" json:"payload,omitempty"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// TableName returns the table name for ScheduledJobModel.
func (ScheduledJobModel) TableName() string { return "scheduled_jobs" }

// BeforeInsert hook sets id/timestamp defaults.
func (s *ScheduledJobModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Payload == nil {
		s.Payload = make(JSONBMap)
	}
	if s.Status == "" {
		s.Status = "active"
	}
	return nil
}

// BeforeUpdate hook refreshes UpdatedAt.
func (s *ScheduledJobModel) BeforeUpdate(ctx interface{}) error {
	s.UpdatedAt = time.Now()
	return nil
}
