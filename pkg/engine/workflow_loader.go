package engine

import (
	"context"
	"fmt"

	"github.com/theuselessai/pipelit/pkg/models"
)

// WorkflowLoader resolves a workflow slug/id to its definition. Sub-workflow
// nodes use it to fetch the child workflow they delegate to.
type WorkflowLoader interface {
	LoadWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error)
}

// MockWorkflowLoader serves workflows from an in-memory map. Used in tests.
type MockWorkflowLoader struct {
	workflows map[string]*models.Workflow
}

// NewMockWorkflowLoader creates a loader backed by the given workflow set.
func NewMockWorkflowLoader(workflows map[string]*models.Workflow) *MockWorkflowLoader {
	return &MockWorkflowLoader{workflows: workflows}
}

// LoadWorkflow returns the workflow registered under workflowID.
func (l *MockWorkflowLoader) LoadWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	wf, ok := l.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("workflow %q not found", workflowID)
	}
	return wf, nil
}

// NilWorkflowLoader rejects every lookup. Used where sub-workflow delegation
// is intentionally unsupported (e.g. the standalone executor).
type NilWorkflowLoader struct{}

// NewNilWorkflowLoader creates a loader that always errors.
func NewNilWorkflowLoader() *NilWorkflowLoader {
	return &NilWorkflowLoader{}
}

// LoadWorkflow always returns an error.
func (l *NilWorkflowLoader) LoadWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return nil, fmt.Errorf("sub-workflow delegation is not available: no workflow loader configured (wanted %q)", workflowID)
}
