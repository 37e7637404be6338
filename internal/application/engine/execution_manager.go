package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/internal/application/observer"
	"github.com/theuselessai/pipelit/internal/domain/repository"
	storagemodels "github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
	pkgengine "github.com/theuselessai/pipelit/pkg/engine"
	"github.com/theuselessai/pipelit/pkg/executor"
	"github.com/theuselessai/pipelit/pkg/models"
)

// ExecutionOptions is the options type accepted by ExecutionManager.Execute.
type ExecutionOptions = pkgengine.ExecutionOptions

// DefaultExecutionOptions returns execution options with sensible defaults.
func DefaultExecutionOptions() *ExecutionOptions {
	return pkgengine.DefaultExecutionOptions()
}

// ExecutionManager manages workflow execution lifecycle
type ExecutionManager struct {
	executorManager executor.Manager
	workflowRepo    repository.WorkflowRepository
	executionRepo   repository.ExecutionRepository
	eventRepo       repository.EventRepository
	dagExecutor     *pkgengine.DAGExecutor
	observerManager *observer.ObserverManager
	checkpointer    pkgengine.Checkpointer // nil disables suspend/resume persistence
	jobQueue        pkgengine.JobQueue     // nil disables async resume scheduling
}

// WithCheckpointer attaches durable suspend-state persistence; without it, a
// suspended execution's state is lost once the process holding it exits.
// The same Checkpointer is handed to the DAGExecutor so timed/delay node
// suspensions can be resumed consistently with top-level persistSuspend.
func (em *ExecutionManager) WithCheckpointer(cp pkgengine.Checkpointer) *ExecutionManager {
	em.checkpointer = cp
	em.dagExecutor.WithCheckpointer(cp)
	return em
}

// WithJobQueue attaches async resume scheduling for suspended executions,
// and enables sub_workflow nodes to delegate asynchronously rather than
// blocking the parent execution for the child's full duration.
func (em *ExecutionManager) WithJobQueue(q pkgengine.JobQueue) *ExecutionManager {
	em.jobQueue = q
	em.dagExecutor.WithJobQueue(q)
	return em
}

// WithCostAccountant attaches Epic budget enforcement to the underlying
// DAGExecutor.
func (em *ExecutionManager) WithCostAccountant(ca pkgengine.CostAccountant) *ExecutionManager {
	em.dagExecutor.WithCostAccountant(ca)
	return em
}

// WithWorkflowLoader attaches sub-workflow resolution to the underlying
// DAGExecutor.
func (em *ExecutionManager) WithWorkflowLoader(loader pkgengine.WorkflowLoader) *ExecutionManager {
	em.dagExecutor.WithWorkflowLoader(loader)
	return em
}

// NewExecutionManager creates a new execution manager
func NewExecutionManager(
	executorManager executor.Manager,
	workflowRepo repository.WorkflowRepository,
	executionRepo repository.ExecutionRepository,
	eventRepo repository.EventRepository,
	observerManager *observer.ObserverManager,
) *ExecutionManager {
	nodeExecutor := pkgengine.NewNodeExecutor(executorManager)
	notifier := NewObserverNotifier(observerManager)
	dagExecutor := pkgengine.NewDAGExecutor(nodeExecutor, pkgengine.NewExprConditionEvaluator(), notifier).
		WithGraphCompiler(pkgengine.NewGraphCompiler(pkgengine.DefaultPortRegistry()))

	return &ExecutionManager{
		executorManager: executorManager,
		workflowRepo:    workflowRepo,
		executionRepo:   executionRepo,
		eventRepo:       eventRepo,
		dagExecutor:     dagExecutor,
		observerManager: observerManager,
	}
}

// Execute executes a workflow
func (em *ExecutionManager) Execute(
	ctx context.Context,
	workflowID string,
	input map[string]interface{},
	opts *ExecutionOptions,
) (*models.Execution, error) {
	// Use default options if not provided
	if opts == nil {
		opts = DefaultExecutionOptions()
	}

	// 1. Load workflow
	workflowUUID, err := uuid.Parse(workflowID)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow ID: %w", err)
	}

	workflowModel, err := em.workflowRepo.FindByIDWithRelations(ctx, workflowUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	// Convert storage model to domain model
	workflow := WorkflowModelToDomain(workflowModel)

	// 2. Create execution record
	execution := &models.Execution{
		ID:           uuid.New().String(),
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
		Status:       models.ExecutionStatusRunning,
		Input:        input,
		Variables:    em.mergeVariables(workflow.Variables, opts.Variables),
		StartedAt:    time.Now(),
	}

	// Convert to storage model and save execution
	executionModel := ExecutionDomainToModel(execution)
	if err := em.executionRepo.Create(ctx, executionModel); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	// Notify execution started
	if em.observerManager != nil {
		event := observer.Event{
			Type:        observer.EventTypeExecutionStarted,
			ExecutionID: execution.ID,
			WorkflowID:  execution.WorkflowID,
			Timestamp:   execution.StartedAt,
			Status:      string(execution.Status),
			Input:       execution.Input,
			Variables:   execution.Variables,
		}
		em.observerManager.Notify(ctx, event)
	}

	// 3. Build execution state
	execState := pkgengine.NewExecutionState(
		execution.ID,
		workflow.ID,
		workflow,
		input,
		execution.Variables,
	)

	// 4. Execute DAG
	execErr := em.dagExecutor.Execute(ctx, execState, opts)

	// 5. Update execution with results
	now := time.Now()
	execution.CompletedAt = &now
	execution.Duration = execution.CalculateDuration()

	var suspend *pkgengine.Suspend
	switch {
	case execErr != nil && errors.As(execErr, &suspend):
		execution.Status = models.ExecutionStatusInterrupted
		em.persistSuspend(ctx, execution, execState, suspend)
		execErr = nil
	case execErr != nil:
		execution.Status = models.ExecutionStatusFailed
		execution.Error = execErr.Error()
	default:
		execution.Status = models.ExecutionStatusCompleted
		// Set output to final node's output
		execution.Output = em.getFinalOutput(execState)
	}

	// Build node executions (need workflow model for UUID mapping)
	execution.NodeExecutions = em.buildNodeExecutions(execState, workflow, workflowModel)

	// Convert to storage model and update execution
	executionModel = ExecutionDomainToModel(execution)
	if err := em.executionRepo.Update(ctx, executionModel); err != nil {
		return nil, fmt.Errorf("failed to update execution: %w", err)
	}

	// Notify execution completion
	if em.observerManager != nil {
		duration := execution.Duration
		eventType := observer.EventTypeExecutionCompleted
		if execErr != nil {
			eventType = observer.EventTypeExecutionFailed
		}

		event := observer.Event{
			Type:        eventType,
			ExecutionID: execution.ID,
			WorkflowID:  execution.WorkflowID,
			Timestamp:   time.Now(),
			Status:      string(execution.Status),
			Output:      execution.Output,
			DurationMs:  &duration,
			Variables:   execution.Variables,
		}

		if execErr != nil {
			event.Error = execErr
		}

		em.observerManager.Notify(ctx, event)
	}

	return execution, execErr
}

// Resume continues a previously interrupted execution from its latest
// checkpoint. It requires a Checkpointer to have been attached; without one,
// an interrupted execution has no recoverable state and Resume fails.
func (em *ExecutionManager) Resume(
	ctx context.Context,
	executionID string,
	opts *ExecutionOptions,
) (*models.Execution, error) {
	if em.checkpointer == nil {
		return nil, fmt.Errorf("resume requires a checkpointer")
	}
	if opts == nil {
		opts = DefaultExecutionOptions()
	}

	execUUID, err := uuid.Parse(executionID)
	if err != nil {
		return nil, fmt.Errorf("invalid execution ID: %w", err)
	}
	executionModel, err := em.executionRepo.FindByID(ctx, execUUID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", executionID, err)
	}
	execution := ExecutionModelToDomain(executionModel)

	workflowUUID, err := uuid.Parse(execution.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow ID %q on execution %s: %w", execution.WorkflowID, executionID, err)
	}
	workflowModel, err := em.workflowRepo.FindByIDWithRelations(ctx, workflowUUID)
	if err != nil {
		return nil, fmt.Errorf("load workflow: %w", err)
	}
	workflow := WorkflowModelToDomain(workflowModel)

	threadID := models.ThreadIDFor(execution.TriggeredBy, execution.ID, execution.WorkflowID)
	checkpoint, err := em.checkpointer.Latest(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for thread %s: %w", threadID, err)
	}

	var snapshot resumeSnapshot
	if err := json.Unmarshal(checkpoint.Blob, &snapshot); err != nil {
		return nil, fmt.Errorf("decode checkpoint blob: %w", err)
	}

	execState := pkgengine.NewExecutionState(execution.ID, workflow.ID, workflow, execution.Input, snapshot.Variables)
	for nodeID, output := range snapshot.NodeOutputs {
		execState.NodeOutputs[nodeID] = output
	}
	for nodeID, status := range snapshot.NodeStatus {
		execState.NodeStatus[nodeID] = status
	}
	execState.RootPatch = snapshot.RootPatch
	execState.Messages = snapshot.Messages

	execution.Status = models.ExecutionStatusRunning
	executionModel = ExecutionDomainToModel(execution)
	if err := em.executionRepo.Update(ctx, executionModel); err != nil {
		return nil, fmt.Errorf("mark execution running: %w", err)
	}

	execErr := em.dagExecutor.Execute(ctx, execState, opts)

	now := time.Now()
	execution.CompletedAt = &now
	execution.Duration = execution.CalculateDuration()

	var suspend *pkgengine.Suspend
	switch {
	case execErr != nil && errors.As(execErr, &suspend):
		execution.Status = models.ExecutionStatusInterrupted
		em.persistSuspend(ctx, execution, execState, suspend)
		execErr = nil
	case execErr != nil:
		execution.Status = models.ExecutionStatusFailed
		execution.Error = execErr.Error()
	default:
		execution.Status = models.ExecutionStatusCompleted
		execution.Output = em.getFinalOutput(execState)
	}

	execution.NodeExecutions = em.buildNodeExecutions(execState, workflow, workflowModel)
	executionModel = ExecutionDomainToModel(execution)
	if err := em.executionRepo.Update(ctx, executionModel); err != nil {
		return nil, fmt.Errorf("failed to update execution: %w", err)
	}

	return execution, execErr
}

// resumeSnapshot mirrors snapshotState's shape for decoding a checkpoint blob.
type resumeSnapshot struct {
	Variables   map[string]interface{}                `json:"variables"`
	NodeOutputs map[string]interface{}                `json:"node_outputs"`
	NodeStatus  map[string]models.NodeExecutionStatus  `json:"node_status"`
	RootPatch   map[string]interface{}                 `json:"root_patch"`
	Messages    []interface{}                           `json:"messages"`
}

// persistSuspend snapshots execution state into a checkpoint and, if a
// JobQueue is attached, enqueues the job that will eventually resume this
// execution (a child workflow completing, or a delay elapsing). Both steps
// are best-effort: a missing Checkpointer/JobQueue degrades to an execution
// that simply stays "interrupted" until something external calls Resume.
func (em *ExecutionManager) persistSuspend(
	ctx context.Context,
	execution *models.Execution,
	execState *pkgengine.ExecutionState,
	suspend *pkgengine.Suspend,
) {
	threadID := models.ThreadIDFor(execution.TriggeredBy, execution.ID, execution.WorkflowID)

	if em.checkpointer != nil {
		blob, err := json.Marshal(snapshotState(execState))
		if err == nil {
			_, _ = em.checkpointer.Save(ctx, &models.Checkpoint{
				ThreadID: threadID,
				Step:     len(execState.NodeOutputs),
				Source:   string(suspend.Reason),
				Blob:     blob,
			})
		}
	}

	if em.jobQueue == nil {
		return
	}

	job := pkgengine.Job{
		ID:          fmt.Sprintf("resume-%s-%s", execution.ID, suspend.NodeID),
		Kind:        "resume_execution",
		ExecutionID: execution.ID,
	}
	if suspend.Reason == pkgengine.SuspendReasonDelay {
		job.NotBefore = time.Now().Add(time.Duration(suspend.DelaySeconds * float64(time.Second)))
	}
	_, _ = em.jobQueue.Enqueue(ctx, job)
}

// snapshotState captures everything Resume needs to rebuild an ExecutionState.
func snapshotState(execState *pkgengine.ExecutionState) map[string]interface{} {
	return map[string]interface{}{
		"execution_id": execState.ExecutionID,
		"workflow_id":  execState.WorkflowID,
		"variables":    execState.Variables,
		"node_outputs": execState.NodeOutputs,
		"node_status":  execState.NodeStatus,
		"root_patch":   execState.RootPatch,
		"messages":     execState.Messages,
	}
}

// mergeVariables merges workflow and execution variables.
// Execution variables override workflow variables.
func (em *ExecutionManager) mergeVariables(
	workflowVars map[string]interface{},
	executionVars map[string]interface{},
) map[string]interface{} {
	merged := make(map[string]interface{})

	// Copy workflow variables
	for k, v := range workflowVars {
		merged[k] = v
	}

	// Execution variables override workflow variables
	for k, v := range executionVars {
		merged[k] = v
	}

	return merged
}

// getFinalOutput gets output from leaf nodes (nodes with no outgoing edges)
func (em *ExecutionManager) getFinalOutput(execState *pkgengine.ExecutionState) map[string]interface{} {
	// Find leaf nodes (nodes with no outgoing edges)
	leafNodes := em.findLeafNodes(execState.Workflow)

	if len(leafNodes) == 0 {
		return nil
	}

	// If single leaf, return its output
	if len(leafNodes) == 1 {
		if output, ok := execState.GetNodeOutput(leafNodes[0].ID); ok {
			if outputMap, ok := output.(map[string]interface{}); ok {
				return outputMap
			}
		}
	}

	// Multiple leaves - merge outputs namespaced by node ID
	merged := make(map[string]interface{})
	for _, node := range leafNodes {
		if output, ok := execState.GetNodeOutput(node.ID); ok {
			merged[node.ID] = output
		}
	}

	return merged
}

// findLeafNodes finds nodes with no outgoing edges
func (em *ExecutionManager) findLeafNodes(workflow *models.Workflow) []*models.Node {
	hasOutgoing := make(map[string]bool)
	for _, edge := range workflow.Edges {
		hasOutgoing[edge.From] = true
	}

	leaves := []*models.Node{}
	for _, node := range workflow.Nodes {
		if !hasOutgoing[node.ID] {
			leaves = append(leaves, node)
		}
	}

	return leaves
}

// buildNodeExecutions builds NodeExecution records from execution state
func (em *ExecutionManager) buildNodeExecutions(
	execState *pkgengine.ExecutionState,
	workflow *models.Workflow,
	workflowModel *storagemodels.WorkflowModel,
) []*models.NodeExecution {
	// Build map from logical ID to UUID
	logicalToUUID := make(map[string]string)
	for _, nodeModel := range workflowModel.Nodes {
		logicalToUUID[nodeModel.NodeID] = nodeModel.ID.String()
	}

	nodeExecs := make([]*models.NodeExecution, 0, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		// Get the UUID for this logical node ID
		nodeUUID, ok := logicalToUUID[node.ID]
		if !ok {
			// Skip nodes that don't have a UUID mapping
			continue
		}

		nodeExec := &models.NodeExecution{
			ID:          uuid.New().String(),
			ExecutionID: execState.ExecutionID,
			NodeID:      nodeUUID, // Use UUID instead of logical ID
			NodeName:    node.Name,
			NodeType:    node.Type,
		}

		// Get status
		if status, ok := execState.GetNodeStatus(node.ID); ok {
			nodeExec.Status = status
		}

		// Get output
		if output, ok := execState.GetNodeOutput(node.ID); ok {
			if outputMap, ok := output.(map[string]interface{}); ok {
				nodeExec.Output = outputMap
			}
		}

		// Get error
		if err, ok := execState.GetNodeError(node.ID); ok {
			nodeExec.Error = err.Error()
		}

		// Get timestamps
		if startTime, ok := execState.GetNodeStartTime(node.ID); ok {
			nodeExec.StartedAt = startTime
		}
		if endTime, ok := execState.GetNodeEndTime(node.ID); ok {
			nodeExec.CompletedAt = &endTime
		}

		nodeExecs = append(nodeExecs, nodeExec)
	}

	return nodeExecs
}
