package engine

import (
	"fmt"

	"github.com/theuselessai/pipelit/pkg/models"
)

// EdgeValidator checks a workflow's edges against the typed-port compatibility
// rules (§4.2), using a PortRegistry to resolve each node's component_type
// capabilities. It is invoked by GraphCompiler before layering the graph.
type EdgeValidator struct {
	registry *PortRegistry
}

// NewEdgeValidator builds a validator backed by the given registry.
func NewEdgeValidator(registry *PortRegistry) *EdgeValidator {
	return &EdgeValidator{registry: registry}
}

// ValidateEdge applies the four rejection cases from §4.2:
//  1. a sub-component edge (llm/tool/memory/output_parser) naming a handle the
//     target does not declare
//  2. a plain data edge whose source output type and target input type are
//     incompatible under DataType.Compatible
//  3. a conditional edge (condition_value set) whose source node is not a
//     registered route-emitter
//  4. a loop_return edge targeting a node other than the loop it returns to
func (v *EdgeValidator) ValidateEdge(wf *models.Workflow, edge *models.Edge) error {
	sourceNode, err := wf.GetNode(edge.From)
	if err != nil {
		return &models.BuildError{Kind: models.ErrBuildIncompatibleEdge, NodeID: edge.From, Message: "edge source node not found"}
	}
	targetNode, err := wf.GetNode(edge.To)
	if err != nil {
		return &models.BuildError{Kind: models.ErrBuildIncompatibleEdge, NodeID: edge.To, Message: "edge target node not found"}
	}

	sourceCaps, sourceKnown := v.registry.Lookup(sourceNode.Type)
	targetCaps, targetKnown := v.registry.Lookup(targetNode.Type)
	if !sourceKnown {
		return &models.BuildError{Kind: models.ErrBuildMissingCapability, NodeID: sourceNode.ID, Message: fmt.Sprintf("unregistered component_type %q", sourceNode.Type)}
	}
	if !targetKnown {
		return &models.BuildError{Kind: models.ErrBuildMissingCapability, NodeID: targetNode.ID, Message: fmt.Sprintf("unregistered component_type %q", targetNode.Type)}
	}

	if edge.IsSubComponent() {
		if _, ok := targetCaps.InputPort(edge.TargetPort); edge.TargetPort != "" && !ok {
			return &models.BuildError{Kind: models.ErrBuildIncompatibleEdge, NodeID: targetNode.ID,
				Message: fmt.Sprintf("sub-component edge names unknown handle %q", edge.TargetPort)}
		}
	}

	if edge.IsConditional() && !sourceCaps.RouteEmitter {
		return &models.BuildError{Kind: models.ErrBuildIncompatibleEdge, NodeID: sourceNode.ID,
			Message: fmt.Sprintf("conditional edge sourced from non-route-emitter %q", sourceNode.Type)}
	}

	if edge.IsLoopReturn() && !targetCaps.IsLoopBody {
		return &models.BuildError{Kind: models.ErrBuildIncompatibleEdge, NodeID: targetNode.ID,
			Message: "loop_return edge must target the originating loop node"}
	}

	if edge.EdgeLabel == models.EdgeLabelData && !edge.IsConditional() {
		sourcePort, sOK := sourceCaps.OutputPort(edge.SourcePort)
		targetPort, tOK := targetCaps.InputPort(edge.TargetPort)
		if sOK && tOK && !sourcePort.Type.Compatible(targetPort.Type) {
			return &models.BuildError{Kind: models.ErrBuildIncompatibleEdge, NodeID: edge.ID,
				Message: fmt.Sprintf("%s output %s (%s) incompatible with %s input %s (%s)",
					sourceNode.ID, edge.SourcePort, sourcePort.Type, targetNode.ID, edge.TargetPort, targetPort.Type)}
		}
	}

	return nil
}

// ValidateWorkflow runs ValidateEdge over every edge and also checks required
// inputs are connected (BUILD_BROKEN_INPUT), returning the first error found.
func (v *EdgeValidator) ValidateWorkflow(wf *models.Workflow) error {
	connected := make(map[string]map[string]bool) // nodeID -> input port -> connected

	for _, edge := range wf.Edges {
		if err := v.ValidateEdge(wf, edge); err != nil {
			return err
		}
		if connected[edge.To] == nil {
			connected[edge.To] = make(map[string]bool)
		}
		// An edge with no explicit target_port binds to a node's sole default
		// input; mark every declared input port satisfied in that case.
		if edge.TargetPort == "" {
			if targetNode, err := wf.GetNode(edge.To); err == nil {
				if caps, ok := v.registry.Lookup(targetNode.Type); ok {
					for _, p := range caps.Inputs {
						connected[edge.To][p.Name] = true
					}
				}
			}
		} else {
			connected[edge.To][edge.TargetPort] = true
		}
	}

	for _, node := range wf.Nodes {
		caps, ok := v.registry.Lookup(node.Type)
		if !ok {
			continue
		}
		for _, req := range caps.RequiredInputs() {
			if !connected[node.ID][req.Name] {
				return &models.BuildError{Kind: models.ErrBuildBrokenInput, NodeID: node.ID,
					Message: fmt.Sprintf("required input %q not connected", req.Name)}
			}
		}
	}

	return nil
}
