package engine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/theuselessai/pipelit/pkg/models"
)

// ExecutionState tracks runtime state of workflow execution.
// Thread-safe via RWMutex. Used by both standalone and full engine modes.
type ExecutionState struct {
	ExecutionID string
	WorkflowID  string
	Workflow    *models.Workflow
	Input       map[string]interface{}
	Variables   map[string]interface{}
	Resources   map[string]interface{} // alias -> resource data for template resolution

	// Node execution tracking
	NodeOutputs         map[string]interface{}                // nodeID -> output
	NodeInputs          map[string]interface{}                // nodeID -> input (passed to executor)
	NodeErrors          map[string]error                      // nodeID -> error
	NodeStatus          map[string]models.NodeExecutionStatus // nodeID -> status
	NodeStartTimes      map[string]time.Time                  // nodeID -> start time
	NodeEndTimes        map[string]time.Time                  // nodeID -> end time
	NodeConfigs         map[string]map[string]interface{}     // nodeID -> original config
	NodeResolvedConfigs map[string]map[string]interface{}     // nodeID -> resolved config

	// Loop tracking
	LoopIterations map[string]int         // edgeID -> iteration count
	LoopInputs     map[string]interface{} // nodeID -> loop input override

	// Sub-workflow delegation
	ParentExecutionID  string                 // set on a child execution's state
	ParentNodeID       string                 // sub-workflow node in the parent that spawned this child
	SubWorkflowResults map[string]interface{} // sub-workflow nodeID -> completed child output

	// EpicID names the cost container the CostAccountant gates this
	// execution's nodes against; empty means unbudgeted.
	EpicID string

	// Reserved-key dispatch state (§4.5). NodeRoutes is the `_route` each
	// route-emitter node wrote, keyed by node ID (a compile-time check ensures
	// at most one route-emitter per wave, so this never races within a wave);
	// Messages is the append-only `_messages` list; RootPatch accumulates
	// `_state_patch` merges; TokenUsage accumulates `_token_usage` per node for
	// the CostAccountant to read.
	NodeRoutes  map[string]string
	Messages    []interface{}
	RootPatch   map[string]interface{}
	TokenUsage  map[string]models.TokenUsage // nodeID -> usage emitted by that node
	ResumeInput string

	mu sync.RWMutex
}

// NewExecutionState creates a new execution state.
func NewExecutionState(executionID, workflowID string, workflow *models.Workflow, input, variables map[string]interface{}) *ExecutionState {
	return &ExecutionState{
		ExecutionID:         executionID,
		WorkflowID:          workflowID,
		Workflow:            workflow,
		Input:               input,
		Variables:           variables,
		Resources:           make(map[string]interface{}),
		NodeOutputs:         make(map[string]interface{}),
		NodeInputs:          make(map[string]interface{}),
		NodeErrors:          make(map[string]error),
		NodeStatus:          make(map[string]models.NodeExecutionStatus),
		NodeStartTimes:      make(map[string]time.Time),
		NodeEndTimes:        make(map[string]time.Time),
		NodeConfigs:         make(map[string]map[string]interface{}),
		NodeResolvedConfigs: make(map[string]map[string]interface{}),
		LoopIterations:      make(map[string]int),
		LoopInputs:          make(map[string]interface{}),
		SubWorkflowResults:  make(map[string]interface{}),
		RootPatch:           make(map[string]interface{}),
		TokenUsage:          make(map[string]models.TokenUsage),
		NodeRoutes:          make(map[string]string),
	}
}

// Reserved output keys dispatched by RecordNodeOutput (§4.5).
const (
	reservedKeyRoute       = "_route"
	reservedKeyMessages    = "_messages"
	reservedKeyStatePatch  = "_state_patch"
	reservedKeySubworkflow = "_subworkflow"
	reservedKeyDelay       = "_delay_seconds"
	reservedKeyTokenUsage  = "_token_usage"
)

// RecordNodeOutput applies StateStore's record_node_output semantics: it
// strips underscore-prefixed keys out of the value stored in the public
// node_outputs view, and applies each reserved key's own effect. It returns a
// non-nil *Suspend if the node's raw output requested suspension via
// `_subworkflow` or `_delay_seconds`; the caller (Executor) is responsible for
// actually persisting a checkpoint and enqueueing the continuation.
func (es *ExecutionState) RecordNodeOutput(nodeID string, raw map[string]interface{}) (*Suspend, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	public := make(map[string]interface{}, len(raw))
	var suspend *Suspend

	for key, value := range raw {
		switch key {
		case reservedKeyRoute:
			if route, ok := value.(string); ok {
				es.NodeRoutes[nodeID] = route
			}
		case reservedKeyMessages:
			switch v := value.(type) {
			case []interface{}:
				es.Messages = append(es.Messages, v...)
			default:
				es.Messages = append(es.Messages, v)
			}
		case reservedKeyStatePatch:
			if patch := ToMapInterface(value); patch != nil {
				for k, v := range patch {
					es.RootPatch[k] = v
				}
			}
		case reservedKeySubworkflow:
			childSlug, payload := parseSubworkflowSignal(value)
			suspend = SuspendForChild(nodeID, childSlug, payload)
		case reservedKeyDelay:
			if seconds, ok := asNumber(value); ok {
				suspend = DelaySuspend(nodeID, seconds)
			}
		case reservedKeyTokenUsage:
			if usage, ok := parseTokenUsage(value); ok {
				es.TokenUsage[nodeID] = usage
			}
		default:
			public[key] = value
		}
	}

	es.NodeOutputs[nodeID] = public
	return suspend, nil
}

func parseSubworkflowSignal(value interface{}) (string, map[string]interface{}) {
	m := ToMapInterface(value)
	if m == nil {
		return "", nil
	}
	slug, _ := m["slug"].(string)
	payload, _ := m["payload"].(map[string]interface{})
	return slug, payload
}

func parseTokenUsage(value interface{}) (models.TokenUsage, bool) {
	m := ToMapInterface(value)
	if m == nil {
		return models.TokenUsage{}, false
	}
	usage := models.TokenUsage{}
	if v, ok := asNumber(m["input"]); ok {
		usage.Input = int64(v)
	}
	if v, ok := asNumber(m["output"]); ok {
		usage.Output = int64(v)
	}
	if v, ok := asNumber(m["cost_usd"]); ok {
		usage.CostUSD = v
	}
	return usage, true
}

// SetSubWorkflowResult records a completed child workflow's output under the
// sub-workflow node that spawned it.
func (es *ExecutionState) SetSubWorkflowResult(nodeID string, output interface{}) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.SubWorkflowResults[nodeID] = output
}

// GetSubWorkflowResult returns the completed child output for a sub-workflow node, if any.
func (es *ExecutionState) GetSubWorkflowResult(nodeID string) (interface{}, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	output, ok := es.SubWorkflowResults[nodeID]
	return output, ok
}

// SetNodeOutput safely sets node output.
func (es *ExecutionState) SetNodeOutput(nodeID string, output interface{}) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.NodeOutputs[nodeID] = output
}

// GetNodeOutput safely gets node output.
func (es *ExecutionState) GetNodeOutput(nodeID string) (interface{}, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	output, ok := es.NodeOutputs[nodeID]
	return output, ok
}

// SetNodeError safely sets node error.
func (es *ExecutionState) SetNodeError(nodeID string, err error) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.NodeErrors[nodeID] = err
}

// GetNodeError safely gets node error.
func (es *ExecutionState) GetNodeError(nodeID string) (error, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	err, ok := es.NodeErrors[nodeID]
	return err, ok
}

// SetNodeStatus safely sets node status.
func (es *ExecutionState) SetNodeStatus(nodeID string, status models.NodeExecutionStatus) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.NodeStatus[nodeID] = status
}

// GetNodeStatus safely gets node status.
func (es *ExecutionState) GetNodeStatus(nodeID string) (models.NodeExecutionStatus, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	status, ok := es.NodeStatus[nodeID]
	return status, ok
}

// SetNodeStartTime safely sets node start time.
func (es *ExecutionState) SetNodeStartTime(nodeID string, t time.Time) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.NodeStartTimes[nodeID] = t
}

// GetNodeStartTime safely gets node start time.
func (es *ExecutionState) GetNodeStartTime(nodeID string) (time.Time, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	t, ok := es.NodeStartTimes[nodeID]
	return t, ok
}

// SetNodeEndTime safely sets node end time.
func (es *ExecutionState) SetNodeEndTime(nodeID string, t time.Time) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.NodeEndTimes[nodeID] = t
}

// GetNodeEndTime safely gets node end time.
func (es *ExecutionState) GetNodeEndTime(nodeID string) (time.Time, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	t, ok := es.NodeEndTimes[nodeID]
	return t, ok
}

// SetNodeInput safely sets node input.
func (es *ExecutionState) SetNodeInput(nodeID string, input interface{}) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.NodeInputs[nodeID] = input
}

// GetNodeInput safely gets node input.
func (es *ExecutionState) GetNodeInput(nodeID string) (interface{}, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	input, ok := es.NodeInputs[nodeID]
	return input, ok
}

// SetNodeConfig safely sets node original config.
func (es *ExecutionState) SetNodeConfig(nodeID string, config map[string]interface{}) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.NodeConfigs[nodeID] = config
}

// GetNodeConfig safely gets node original config.
func (es *ExecutionState) GetNodeConfig(nodeID string) (map[string]interface{}, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	config, ok := es.NodeConfigs[nodeID]
	return config, ok
}

// SetNodeResolvedConfig safely sets node resolved config.
func (es *ExecutionState) SetNodeResolvedConfig(nodeID string, config map[string]interface{}) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.NodeResolvedConfigs[nodeID] = config
}

// GetNodeResolvedConfig safely gets node resolved config.
func (es *ExecutionState) GetNodeResolvedConfig(nodeID string) (map[string]interface{}, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	config, ok := es.NodeResolvedConfigs[nodeID]
	return config, ok
}

// GetLoopIteration returns the current iteration count for a loop edge.
func (es *ExecutionState) GetLoopIteration(edgeID string) int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.LoopIterations[edgeID]
}

// IncrementLoopIteration increments and returns the new iteration count for a loop edge.
func (es *ExecutionState) IncrementLoopIteration(edgeID string) int {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.LoopIterations[edgeID]++
	return es.LoopIterations[edgeID]
}

// SetLoopInput sets a loop input override for a node.
func (es *ExecutionState) SetLoopInput(nodeID string, input interface{}) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.LoopInputs[nodeID] = input
}

// GetLoopInput returns the loop input for a node, if any.
func (es *ExecutionState) GetLoopInput(nodeID string) (interface{}, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	input, ok := es.LoopInputs[nodeID]
	return input, ok
}

// ClearLoopInput removes the loop input for a node.
func (es *ExecutionState) ClearLoopInput(nodeID string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.LoopInputs, nodeID)
}

// ResetNodeForLoop clears all execution state for a node so it can be re-executed in a loop.
func (es *ExecutionState) ResetNodeForLoop(nodeID string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.NodeOutputs, nodeID)
	delete(es.NodeInputs, nodeID)
	delete(es.NodeErrors, nodeID)
	delete(es.NodeStatus, nodeID)
	delete(es.NodeStartTimes, nodeID)
	delete(es.NodeEndTimes, nodeID)
	delete(es.NodeConfigs, nodeID)
	delete(es.NodeResolvedConfigs, nodeID)
}

// ClearNodeOutput removes output for a specific node (for memory optimization).
func (es *ExecutionState) ClearNodeOutput(nodeID string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.NodeOutputs, nodeID)
}

// GetTotalMemoryUsage estimates total memory used by node outputs.
func (es *ExecutionState) GetTotalMemoryUsage() int64 {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var total int64
	for _, output := range es.NodeOutputs {
		total += EstimateSize(output)
	}
	return total
}

// GetRoute returns the `_route` a specific node emitted, if any.
func (es *ExecutionState) GetRoute(nodeID string) (string, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	route, ok := es.NodeRoutes[nodeID]
	return route, ok
}

// GetMessages returns a copy of the appended `_messages` list.
func (es *ExecutionState) GetMessages() []interface{} {
	es.mu.RLock()
	defer es.mu.RUnlock()
	out := make([]interface{}, len(es.Messages))
	copy(out, es.Messages)
	return out
}

// GetTokenUsage returns the token usage a specific node emitted, if any.
func (es *ExecutionState) GetTokenUsage(nodeID string) (models.TokenUsage, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	u, ok := es.TokenUsage[nodeID]
	return u, ok
}

// TotalTokenUsage sums token usage across all nodes that have emitted it so far.
func (es *ExecutionState) TotalTokenUsage() models.TokenUsage {
	es.mu.RLock()
	defer es.mu.RUnlock()
	var total models.TokenUsage
	for _, u := range es.TokenUsage {
		total.Input += u.Input
		total.Output += u.Output
		total.CostUSD += u.CostUSD
	}
	return total
}

// SetResumeInput stores the `_resume_input` value a resumed execution is
// waiting on (e.g. the human-confirmation reply text).
func (es *ExecutionState) SetResumeInput(input string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.ResumeInput = input
}

// GetResumeInput returns the resume input set for this execution, if any.
func (es *ExecutionState) GetResumeInput() (string, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.ResumeInput, es.ResumeInput != ""
}

// ToMapInterface converts any value to map[string]interface{}.
// Fast path for already-map values, JSON roundtrip for structs.
func ToMapInterface(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{"value": v}
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]interface{}{"value": v}
	}
	return result
}
