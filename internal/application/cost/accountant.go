// Package cost implements the CostAccountant budget gate (§4.10): it tracks
// token/USD spend per Epic and blocks node execution once a budget is
// exhausted.
package cost

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/internal/infrastructure/storage"
	pkgengine "github.com/theuselessai/pipelit/pkg/engine"
	"github.com/theuselessai/pipelit/pkg/models"
)

// Accountant implements pkgengine.CostAccountant against a durable Epic
// store. It is safe for concurrent use: the underlying repository serializes
// concurrent usage updates to the same epic with a row lock.
type Accountant struct {
	repo *storage.EpicRepository
}

var _ pkgengine.CostAccountant = (*Accountant)(nil)

// New builds an Accountant backed by repo.
func New(repo *storage.EpicRepository) *Accountant {
	return &Accountant{repo: repo}
}

// CheckBudget loads the epic and reports ErrBudgetExceeded if its recorded
// spend has already crossed a configured budget axis.
func (a *Accountant) CheckBudget(ctx context.Context, epicID string) error {
	id, err := uuid.Parse(epicID)
	if err != nil {
		return fmt.Errorf("invalid epic id %q: %w", epicID, err)
	}

	epic, err := a.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load epic %s: %w", epicID, err)
	}

	if epic.BudgetExceeded() {
		return &models.RuntimeNodeError{
			Kind:    models.ErrBudgetExceeded,
			Message: fmt.Sprintf("epic %s: spent_tokens=%d/%d spent_usd=%.4f/%.4f", epicID, epic.SpentTokens, epic.BudgetTokens, epic.SpentUSD, epic.BudgetUSD),
		}
	}

	return nil
}

// RecordUsage adds usage to the epic's running totals.
func (a *Accountant) RecordUsage(ctx context.Context, epicID string, usage models.TokenUsage) error {
	id, err := uuid.Parse(epicID)
	if err != nil {
		return fmt.Errorf("invalid epic id %q: %w", epicID, err)
	}

	if _, err := a.repo.AddUsage(ctx, id, usage.Total(), usage.CostUSD); err != nil {
		return fmt.Errorf("record usage for epic %s: %w", epicID, err)
	}
	return nil
}
