package engine

import (
	"context"

	"github.com/theuselessai/pipelit/pkg/models"
)

// CostAccountant tracks spend against an Epic's budget and gates node
// execution on it (§4.10, SPEC_FULL.md PART D). The Executor consults
// CheckBudget before running any node whose execution carries an epic id,
// and calls RecordUsage whenever a node emits `_token_usage`.
type CostAccountant interface {
	// CheckBudget returns a *models.RuntimeNodeError wrapping
	// models.ErrBudgetExceeded if the named epic's spend has crossed its
	// configured budget. A zero-value/unknown epic id is never over budget.
	CheckBudget(ctx context.Context, epicID string) error
	// RecordUsage adds usage to the epic's running totals, transitioning its
	// status to EpicStatusFailed if this pushes it over budget.
	RecordUsage(ctx context.Context, epicID string, usage models.TokenUsage) error
}

// NoopCostAccountant accepts all spend unconditionally. Used when no Epic
// budgeting is configured for a deployment.
type NoopCostAccountant struct{}

func (NoopCostAccountant) CheckBudget(ctx context.Context, epicID string) error { return nil }
func (NoopCostAccountant) RecordUsage(ctx context.Context, epicID string, usage models.TokenUsage) error {
	return nil
}
