package engine

import (
	"github.com/theuselessai/pipelit/pkg/models"
)

// LoopFrame describes one loop construct: the loop node itself, its body
// entry node (the far end of the loop_body edge), and the loop_return edge
// that jumps back to it.
type LoopFrame struct {
	LoopNodeID  string
	BodyNodeID  string
	ReturnEdge  *models.Edge
}

// RouteMap maps a route-emitter node ID to its condition_value -> target
// node IDs, plus the fallback target (the `__other__` edge), if any.
type RouteMap struct {
	Targets  map[string][]string // condition_value -> target node IDs
	Fallback []string            // target node IDs for the __other__ edge
}

// NodeBuildRecord is the compiler's per-node summary consumed by the
// Executor: whether the node can suspend, and which wave it falls in.
type NodeBuildRecord struct {
	NodeID     string
	WaveIndex  int
	CanSuspend bool
	RouteEmitter bool
}

// Plan is GraphCompiler's output: everything the Executor needs to run a
// specific trigger node's reachable subgraph without re-deriving structure
// mid-run.
type Plan struct {
	WorkflowID     string
	TriggerNodeID  string
	Reachable      map[string]bool // node IDs reachable forward from the trigger
	ScopedWorkflow *models.Workflow // wf narrowed to Reachable nodes/edges
	Waves          [][]*models.Node
	Nodes          map[string]*NodeBuildRecord
	Routes         map[string]*RouteMap // route-emitter node ID -> its RouteMap
	Loops          []LoopFrame
}

// GraphCompiler turns a workflow and a chosen trigger node into a Plan,
// validating typed-port compatibility and raising BuildError on any of the
// conditions in §4.2/§4.3.
type GraphCompiler struct {
	validator *EdgeValidator
	registry  *PortRegistry
}

// NewGraphCompiler builds a compiler backed by the given registry.
func NewGraphCompiler(registry *PortRegistry) *GraphCompiler {
	return &GraphCompiler{validator: NewEdgeValidator(registry), registry: registry}
}

// Compile validates the workflow and produces a Plan scoped to everything
// forward-reachable from triggerNodeID. A workflow with nodes unreachable
// from the chosen trigger is not an error: those nodes are simply excluded
// from the Plan (they belong to a different trigger's subgraph).
func (c *GraphCompiler) Compile(workflow *models.Workflow, triggerNodeID string) (*Plan, error) {
	if _, err := workflow.GetNode(triggerNodeID); err != nil {
		return nil, &models.BuildError{Kind: models.ErrBuildIncompatibleEdge, NodeID: triggerNodeID, Message: "trigger node not found"}
	}

	if err := c.validator.ValidateWorkflow(workflow); err != nil {
		return nil, err
	}

	fullDAG := BuildDAG(workflow)
	reachable := reachableFrom(fullDAG, triggerNodeID)

	scoped := scopeWorkflow(workflow, reachable)
	scopedDAG := BuildDAG(scoped)

	waves, err := TopologicalSort(scopedDAG)
	if err != nil {
		return nil, &models.BuildError{Kind: models.ErrBuildCyclicGraph, Message: err.Error()}
	}

	plan := &Plan{
		WorkflowID:     workflow.ID,
		TriggerNodeID:  triggerNodeID,
		Reachable:      reachable,
		ScopedWorkflow: scoped,
		Waves:          waves,
		Nodes:          make(map[string]*NodeBuildRecord),
		Routes:         make(map[string]*RouteMap),
	}

	routeEmittersPerWave := make(map[int]int)
	for waveIdx, wave := range waves {
		for _, node := range wave {
			caps, _ := c.registry.Lookup(node.Type)
			rec := &NodeBuildRecord{
				NodeID:       node.ID,
				WaveIndex:    waveIdx,
				CanSuspend:   caps.CanSuspend,
				RouteEmitter: caps.RouteEmitter,
			}
			plan.Nodes[node.ID] = rec
			if caps.RouteEmitter {
				routeEmittersPerWave[waveIdx]++
			}
		}
	}

	for waveIdx, count := range routeEmittersPerWave {
		if count > 1 {
			return nil, &models.BuildError{Kind: models.ErrBuildCyclicGraph,
				Message: "multiple route-emitters in the same execution wave"}
		}
		_ = waveIdx
	}

	for _, edge := range scoped.Edges {
		if !edge.IsConditional() {
			continue
		}
		rm, ok := plan.Routes[edge.From]
		if !ok {
			rm = &RouteMap{Targets: make(map[string][]string)}
			plan.Routes[edge.From] = rm
		}
		if edge.ConditionValue == models.RouteFallback {
			rm.Fallback = append(rm.Fallback, edge.To)
		} else {
			rm.Targets[edge.ConditionValue] = append(rm.Targets[edge.ConditionValue], edge.To)
		}
	}

	for _, loopEdge := range scopedDAG.LoopEdges {
		bodyEntry := loopBodyEntry(scoped, loopEdge.To)
		plan.Loops = append(plan.Loops, LoopFrame{
			LoopNodeID: loopEdge.To,
			BodyNodeID: bodyEntry,
			ReturnEdge: loopEdge,
		})
	}

	return plan, nil
}

// reachableFrom does a forward BFS over execution-propagating edges starting
// at rootID, returning the set of node IDs reachable (including rootID).
func reachableFrom(dag *DAG, rootID string) map[string]bool {
	seen := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, childID := range dag.Edges[id] {
			if !seen[childID] {
				seen[childID] = true
				queue = append(queue, childID)
			}
		}
	}
	return seen
}

// scopeWorkflow returns a shallow copy of wf containing only nodes in
// reachable and edges whose endpoints are both in reachable.
func scopeWorkflow(wf *models.Workflow, reachable map[string]bool) *models.Workflow {
	scoped := &models.Workflow{
		ID:        wf.ID,
		Name:      wf.Name,
		Variables: wf.Variables,
		Resources: wf.Resources,
	}
	for _, n := range wf.Nodes {
		if reachable[n.ID] {
			scoped.Nodes = append(scoped.Nodes, n)
		}
	}
	for _, e := range wf.Edges {
		if reachable[e.From] && reachable[e.To] {
			scoped.Edges = append(scoped.Edges, e)
		}
	}
	return scoped
}

// loopBodyEntry finds the target of the loop_body edge sourced at loopNodeID.
func loopBodyEntry(wf *models.Workflow, loopNodeID string) string {
	for _, e := range wf.Edges {
		if e.From == loopNodeID && e.IsLoopBody() {
			return e.To
		}
	}
	return ""
}
