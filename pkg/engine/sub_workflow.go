package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/pkg/models"
)

const (
	// NodeTypeSubWorkflow identifies a node that delegates to a child workflow.
	NodeTypeSubWorkflow = "sub_workflow"
)

// subWorkflowConfig holds parsed configuration for a sub_workflow node.
type subWorkflowConfig struct {
	WorkflowID string
	Timeout    time.Duration
}

// executeSubWorkflow delegates to a single child workflow and propagates its
// final output back as the node's own output.
//
// On a fresh visit, if a JobQueue is attached the child is enqueued as an
// independent job and this node suspends the parent via SuspendForChild; the
// parent resumes once something calls Resume for this execution with the
// child's output already injected via SetSubWorkflowResult (the caller is
// responsible for routing the child's ExecutionStatusCompleted/Failed event
// to that injection). Without a JobQueue, delegation falls back to running
// the child synchronously in the calling goroutine tree — a correct but
// blocking degradation, not the steady-state path.
func (de *DAGExecutor) executeSubWorkflow(
	ctx context.Context,
	execState *ExecutionState,
	node *models.Node,
	opts *ExecutionOptions,
) error {
	if output, ok := execState.GetSubWorkflowResult(node.ID); ok {
		execState.SetNodeOutput(node.ID, output)
		execState.SetNodeStatus(node.ID, models.NodeExecutionStatusCompleted)
		return nil
	}

	cfg, err := parseSubWorkflowConfig(node)
	if err != nil {
		return fmt.Errorf("invalid sub_workflow config: %w", err)
	}

	if de.jobQueue != nil {
		return de.executeSubWorkflowAsync(ctx, execState, node, opts, cfg)
	}
	return de.executeSubWorkflowSync(ctx, execState, node, opts, cfg)
}

// executeSubWorkflowAsync enqueues the child execution as a job and returns a
// Suspend sentinel; ExecutionManager persists a checkpoint and reports the
// parent execution as interrupted rather than failed or completed.
func (de *DAGExecutor) executeSubWorkflowAsync(
	ctx context.Context,
	execState *ExecutionState,
	node *models.Node,
	opts *ExecutionOptions,
	cfg *subWorkflowConfig,
) error {
	parentNodes := GetRegularParentNodes(execState.Workflow, node)
	nodeCtx := PrepareNodeContext(execState, node, parentNodes, opts)

	job := Job{
		ID:            fmt.Sprintf("subwf-%s-%s", execState.ExecutionID, node.ID),
		Kind:          "start_execution",
		WorkflowID:    cfg.WorkflowID,
		TriggerNodeID: node.ID,
		Payload:       ToMapInterface(nodeCtx.DirectParentOutput),
	}

	enqueued, err := de.jobQueue.Enqueue(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to enqueue child workflow %s: %w", cfg.WorkflowID, err)
	}

	de.safeNotify(ctx, ExecutionEvent{
		Type:        EventTypeSubWorkflowStarted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		NodeID:      node.ID,
		NodeName:    node.Name,
		NodeType:    node.Type,
		Timestamp:   time.Now(),
		Status:      "suspended",
		Message:     fmt.Sprintf("enqueued child workflow %s (job %s, already queued: %v)", cfg.WorkflowID, job.ID, !enqueued),
	})

	return SuspendForChild(node.ID, cfg.WorkflowID, job.Payload)
}

// executeSubWorkflowSync runs the child workflow to completion in the calling
// goroutine tree. Used when no JobQueue is attached.
func (de *DAGExecutor) executeSubWorkflowSync(
	ctx context.Context,
	execState *ExecutionState,
	node *models.Node,
	opts *ExecutionOptions,
	cfg *subWorkflowConfig,
) error {
	parentNodes := GetRegularParentNodes(execState.Workflow, node)
	nodeCtx := PrepareNodeContext(execState, node, parentNodes, opts)

	childWF, err := de.workflowLoader.LoadWorkflow(ctx, cfg.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to load child workflow %s: %w", cfg.WorkflowID, err)
	}

	clonedWF, err := childWF.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone child workflow %s: %w", cfg.WorkflowID, err)
	}

	childExecID := uuid.New().String()

	childCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		childCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	childState := NewExecutionState(childExecID, clonedWF.ID, clonedWF, nodeCtx.DirectParentOutput, execState.Variables)
	childState.ParentExecutionID = execState.ExecutionID
	childState.ParentNodeID = node.ID
	childState.Resources = execState.Resources

	de.safeNotify(ctx, ExecutionEvent{
		Type:        EventTypeSubWorkflowStarted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		NodeID:      node.ID,
		NodeName:    node.Name,
		NodeType:    node.Type,
		Timestamp:   time.Now(),
		Status:      "running",
		Message:     fmt.Sprintf("delegating to child workflow %s (execution %s)", cfg.WorkflowID, childExecID),
	})

	startTime := time.Now()
	childErr := de.Execute(childCtx, childState, opts)
	duration := time.Since(startTime).Milliseconds()

	if childErr != nil {
		de.safeNotify(ctx, ExecutionEvent{
			Type:        EventTypeSubWorkflowFailed,
			ExecutionID: execState.ExecutionID,
			WorkflowID:  execState.WorkflowID,
			NodeID:      node.ID,
			NodeName:    node.Name,
			NodeType:    node.Type,
			Timestamp:   time.Now(),
			Status:      "failed",
			DurationMs:  duration,
			Error:       childErr,
		})
		return fmt.Errorf("child workflow %s (execution %s) failed: %w", cfg.WorkflowID, childExecID, childErr)
	}

	output := collectChildOutput(childState)
	execState.SetSubWorkflowResult(node.ID, output)

	execState.SetNodeOutput(node.ID, output)
	execState.SetNodeInput(node.ID, nodeCtx.DirectParentOutput)
	execState.SetNodeConfig(node.ID, node.Config)
	execState.SetNodeStatus(node.ID, models.NodeExecutionStatusCompleted)

	de.safeNotify(ctx, ExecutionEvent{
		Type:        EventTypeSubWorkflowCompleted,
		ExecutionID: execState.ExecutionID,
		WorkflowID:  execState.WorkflowID,
		NodeID:      node.ID,
		NodeName:    node.Name,
		NodeType:    node.Type,
		Timestamp:   time.Now(),
		Status:      "completed",
		DurationMs:  duration,
		Output:      ToMapInterface(output),
	})

	return nil
}

// collectChildOutput gathers output from the terminal nodes of a completed
// child execution (nodes with no outgoing propagating edge). A single
// terminal node's output is returned unwrapped; multiple terminal nodes are
// namespaced by node ID.
func collectChildOutput(state *ExecutionState) any {
	hasOutgoing := make(map[string]bool)
	for _, edge := range state.Workflow.Edges {
		if edge.PropagatesExecution() {
			hasOutgoing[edge.From] = true
		}
	}

	outputs := make(map[string]any)
	for _, node := range state.Workflow.Nodes {
		if hasOutgoing[node.ID] {
			continue
		}
		if output, ok := state.GetNodeOutput(node.ID); ok {
			outputs[node.ID] = output
		}
	}

	if len(outputs) == 1 {
		for _, v := range outputs {
			return v
		}
	}
	return outputs
}

// parseSubWorkflowConfig extracts and validates sub_workflow config from node.
func parseSubWorkflowConfig(node *models.Node) (*subWorkflowConfig, error) {
	cfg := &subWorkflowConfig{}

	wfID, ok := node.Config["workflow_id"].(string)
	if !ok || wfID == "" {
		return nil, fmt.Errorf("workflow_id is required")
	}
	cfg.WorkflowID = wfID

	if tp, ok := node.Config["timeout_seconds"]; ok {
		switch v := tp.(type) {
		case float64:
			cfg.Timeout = time.Duration(v) * time.Second
		case int:
			cfg.Timeout = time.Duration(v) * time.Second
		case int64:
			cfg.Timeout = time.Duration(v) * time.Second
		}
	}

	return cfg, nil
}
