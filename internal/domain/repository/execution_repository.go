package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
)

// ExecutionRepository persists executions and their per-node records.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.ExecutionModel) error
	Update(ctx context.Context, execution *models.ExecutionModel) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.ExecutionModel, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*models.ExecutionModel, error)
	FindByWorkflowID(ctx context.Context, workflowID uuid.UUID, limit, offset int) ([]*models.ExecutionModel, error)
	FindByStatus(ctx context.Context, status string, limit, offset int) ([]*models.ExecutionModel, error)
	FindAll(ctx context.Context, limit, offset int) ([]*models.ExecutionModel, error)
	FindRunning(ctx context.Context) ([]*models.ExecutionModel, error)

	Count(ctx context.Context) (int, error)
	CountByWorkflowID(ctx context.Context, workflowID uuid.UUID) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)

	CreateNodeExecution(ctx context.Context, nodeExecution *models.NodeExecutionModel) error
	UpdateNodeExecution(ctx context.Context, nodeExecution *models.NodeExecutionModel) error
	DeleteNodeExecution(ctx context.Context, id uuid.UUID) error
	FindNodeExecutionByID(ctx context.Context, id uuid.UUID) (*models.NodeExecutionModel, error)
	FindNodeExecutionsByExecutionID(ctx context.Context, executionID uuid.UUID) ([]*models.NodeExecutionModel, error)
	FindNodeExecutionsByWave(ctx context.Context, executionID uuid.UUID, wave int) ([]*models.NodeExecutionModel, error)
	FindNodeExecutionsByStatus(ctx context.Context, executionID uuid.UUID, status string) ([]*models.NodeExecutionModel, error)

	GetStatistics(ctx context.Context, workflowID *uuid.UUID, from, to time.Time) (*ExecutionStatistics, error)
}

// ExecutionStatistics holds aggregated execution counts over a time range.
type ExecutionStatistics struct {
	TotalExecutions int            `json:"total_executions"`
	CompletedCount  int            `json:"completed_count"`
	FailedCount     int            `json:"failed_count"`
	CancelledCount  int            `json:"cancelled_count"`
	RunningCount    int            `json:"running_count"`
	PendingCount    int            `json:"pending_count"`
	AverageDuration *time.Duration `json:"average_duration,omitempty"`
	SuccessRate     float64        `json:"success_rate"`
	FailureRate     float64        `json:"failure_rate"`
}
