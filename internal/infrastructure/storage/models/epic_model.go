package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EpicModel is the durable cost container a set of executions may share a
// budget against (§4.10).
type EpicModel struct {
	bun.BaseModel `bun:"table:epics,alias:ep"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name         string    `bun:"name" json:"name,omitempty"`
	BudgetTokens int64     `bun:"budget_tokens,default:0" json:"budget_tokens,omitempty"`
	BudgetUSD    float64   `bun:"budget_usd,default:0" json:"budget_usd,omitempty"`
	SpentTokens  int64     `bun:"spent_tokens,default:0" json:"spent_tokens"`
	SpentUSD     float64   `bun:"spent_usd,default:0" json:"spent_usd"`
	Status       string    `bun:"status,notnull,default:'active'" json:"status" validate:"required,oneof=active failed closed"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// TableName returns the table name for EpicModel.
func (EpicModel) TableName() string { return "epics" }

// BeforeInsert hook to set timestamps and defaults.
func (e *EpicModel) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = "active"
	}
	return nil
}

// BeforeUpdate hook to refresh the timestamp.
func (e *EpicModel) BeforeUpdate(ctx interface{}) error {
	e.UpdatedAt = time.Now()
	return nil
}

// BudgetExceeded reports whether cumulative spend crosses either budget axis.
func (e *EpicModel) BudgetExceeded() bool {
	if e.BudgetTokens > 0 && e.SpentTokens >= e.BudgetTokens {
		return true
	}
	if e.BudgetUSD > 0 && e.SpentUSD >= e.BudgetUSD {
		return true
	}
	return false
}
