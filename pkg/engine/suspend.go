package engine

import "fmt"

// SuspendReason classifies why a node yielded control instead of completing.
type SuspendReason string

const (
	SuspendReasonHumanConfirmation SuspendReason = "human_confirmation"
	SuspendReasonSubworkflow       SuspendReason = "subworkflow"
	SuspendReasonDelay             SuspendReason = "delay"
)

// Suspend is returned (wrapped, via %w) by node execution instead of a
// terminal error when a node cannot complete synchronously. The executor
// recognizes it with errors.As and persists a checkpoint instead of failing
// the execution; ExecutionManager reports the run as interrupted, not failed.
type Suspend struct {
	Reason       SuspendReason
	NodeID       string
	ChildSlug    string
	ChildPayload map[string]interface{}
	DelaySeconds float64
}

func (s *Suspend) Error() string {
	switch s.Reason {
	case SuspendReasonSubworkflow:
		return fmt.Sprintf("node %s suspended for sub-workflow %s", s.NodeID, s.ChildSlug)
	case SuspendReasonDelay:
		return fmt.Sprintf("node %s suspended for %.0fs delay", s.NodeID, s.DelaySeconds)
	default:
		return fmt.Sprintf("node %s suspended for input", s.NodeID)
	}
}

// SuspendForInput signals a node is waiting on human confirmation before it
// can resume (spec scenario: human-in-the-loop confirm node).
func SuspendForInput(nodeID string) *Suspend {
	return &Suspend{Reason: SuspendReasonHumanConfirmation, NodeID: nodeID}
}

// SuspendForChild signals a sub-workflow node has enqueued a child execution
// and is waiting for it to complete.
func SuspendForChild(nodeID, childSlug string, payload map[string]interface{}) *Suspend {
	return &Suspend{Reason: SuspendReasonSubworkflow, NodeID: nodeID, ChildSlug: childSlug, ChildPayload: payload}
}

// DelaySuspend signals a node requested the executor resume it after a
// delay (e.g. a wait node), driven by the `_delay_seconds` reserved output key.
func DelaySuspend(nodeID string, seconds float64) *Suspend {
	return &Suspend{Reason: SuspendReasonDelay, NodeID: nodeID, DelaySeconds: seconds}
}
