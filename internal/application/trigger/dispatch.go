package trigger

import (
	"context"
	"fmt"
	"strings"

	engineapp "github.com/theuselessai/pipelit/internal/application/engine"
	"github.com/theuselessai/pipelit/internal/domain/repository"
	pkgengine "github.com/theuselessai/pipelit/pkg/engine"
	"github.com/theuselessai/pipelit/pkg/models"
)

// triggerComponentPrefix marks a node as a trigger entry point (§4.8);
// the suffix after the prefix is the event kind it listens for, e.g.
// "trigger_telegram" matches telegram-message events.
const triggerComponentPrefix = "trigger_"

// Dispatch resolves inbound events against the trigger nodes of every active
// workflow and enqueues a start_execution Job for whichever one wins. It
// never executes a workflow itself; a worker pulling from the same JobQueue
// does that, keeping dispatch decoupled from execution latency.
type Dispatch struct {
	workflowRepo repository.WorkflowRepository
	queue        pkgengine.JobQueue
}

// NewDispatch builds a Dispatch backed by the given workflow repository and
// job queue.
func NewDispatch(workflowRepo repository.WorkflowRepository, queue pkgengine.JobQueue) *Dispatch {
	return &Dispatch{workflowRepo: workflowRepo, queue: queue}
}

// Handle resolves event against the trigger nodes of all active workflows
// and enqueues the winning binding's start_execution job. It returns false,
// nil if no trigger node claims the event (not an error: most events have no
// subscriber).
func (d *Dispatch) Handle(ctx context.Context, event models.TriggerEvent) (bool, error) {
	if event.Kind == models.TriggerEventChat {
		return false, fmt.Errorf("chat events are not resolved by Dispatch; route them to a named trigger directly")
	}

	candidates, err := d.candidates(ctx)
	if err != nil {
		return false, fmt.Errorf("gather trigger candidates: %w", err)
	}

	binding, ok := pkgengine.ResolveTrigger(event, candidates)
	if !ok {
		return false, nil
	}

	jobID := event.CorrelationID
	if jobID == "" {
		jobID = fmt.Sprintf("trigger-%s-%s-%d", binding.WorkflowID, binding.TriggerNodeID, event.ArrivalTime.UnixNano())
	}

	payload := make(map[string]interface{}, len(event.Payload)+1)
	for k, v := range event.Payload {
		payload[k] = v
	}
	payload["_trigger_event"] = event

	job := pkgengine.Job{
		ID:            jobID,
		Kind:          "start_execution",
		WorkflowID:    binding.WorkflowID,
		TriggerNodeID: binding.TriggerNodeID,
		Payload:       payload,
	}
	if _, err := d.queue.Enqueue(ctx, job); err != nil {
		return false, fmt.Errorf("enqueue start_execution job: %w", err)
	}
	return true, nil
}

// candidates scans every active workflow's nodes for trigger_* components
// and builds the TriggerBinding set TriggerResolver matches against.
func (d *Dispatch) candidates(ctx context.Context) ([]pkgengine.TriggerBinding, error) {
	active := "active"
	workflows, err := d.workflowRepo.FindAllWithFilters(ctx, repository.WorkflowFilters{Status: &active}, 0, 0)
	if err != nil {
		return nil, err
	}

	var bindings []pkgengine.TriggerBinding
	for _, wm := range workflows {
		workflow := engineapp.WorkflowModelToDomain(wm)
		for _, node := range workflow.Nodes {
			if !strings.HasPrefix(node.Type, triggerComponentPrefix) {
				continue
			}
			bindings = append(bindings, pkgengine.TriggerBinding{
				WorkflowID:    workflow.ID,
				TriggerNodeID: node.ID,
				ComponentType: node.Type,
				Rule:          matchRuleFromConfig(node.Config),
			})
		}
	}
	return bindings, nil
}

// matchRuleFromConfig reads a trigger node's TriggerMatchRule out of its
// config map, using the same keys models.TriggerMatchRule marshals to.
func matchRuleFromConfig(config map[string]interface{}) models.TriggerMatchRule {
	var rule models.TriggerMatchRule
	if config == nil {
		return rule
	}
	if v, ok := config["priority"].(float64); ok {
		rule.Priority = int(v)
	}
	if v, ok := config["allowed_user_ids"].([]interface{}); ok {
		for _, id := range v {
			if s, ok := id.(string); ok {
				rule.AllowedUserIDs = append(rule.AllowedUserIDs, s)
			}
		}
	}
	if v, ok := config["text_regex"].(string); ok {
		rule.TextRegex = v
	}
	if v, ok := config["command_prefix"].(string); ok {
		rule.CommandPrefix = v
	}
	if v, ok := config["source_workflow"].(string); ok {
		rule.SourceWorkflow = v
	}
	if v, ok := config["scheduled_job_id"].(string); ok {
		rule.ScheduledJobID = v
	}
	return rule
}
