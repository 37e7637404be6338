package models

import "time"

// EpicStatus is the lifecycle state of a cost-tracking Epic.
type EpicStatus string

const (
	EpicStatusActive EpicStatus = "active"
	EpicStatusFailed EpicStatus = "failed" // budget exceeded
	EpicStatusClosed EpicStatus = "closed"
)

// Epic groups related executions under a shared cost budget. Executions may
// declare an owning epic via metadata; the CostAccountant enforces budgets
// before each node runs.
type Epic struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	BudgetTokens int64     `json:"budget_tokens,omitempty"` // 0 = unbounded
	BudgetUSD   float64    `json:"budget_usd,omitempty"`     // 0 = unbounded
	SpentTokens int64      `json:"spent_tokens"`
	SpentUSD    float64    `json:"spent_usd"`
	Status      EpicStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BudgetExceeded reports whether the epic's cumulative spend has crossed
// either configured budget. A zero budget means "no limit" on that axis.
func (e *Epic) BudgetExceeded() bool {
	if e.BudgetTokens > 0 && e.SpentTokens >= e.BudgetTokens {
		return true
	}
	if e.BudgetUSD > 0 && e.SpentUSD >= e.BudgetUSD {
		return true
	}
	return false
}

// TokenUsage is the shape of a node's `_token_usage` reserved output key,
// routed to the CostAccountant by StateStore.RecordNodeOutput.
type TokenUsage struct {
	Input   int64   `json:"input"`
	Output  int64   `json:"output"`
	CostUSD float64 `json:"cost_usd"`
}

// Total returns the combined input+output token count.
func (u TokenUsage) Total() int64 { return u.Input + u.Output }
