package engine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/theuselessai/pipelit/pkg/models"
)

// triggerComponentTypes maps an inbound event kind to the trigger node
// component_type it may bind to (§4.8). Chat events are resolved by the
// caller directly against a named trigger and never reach here.
var triggerComponentTypes = map[models.TriggerEventKind]string{
	models.TriggerEventTelegramMessage: "trigger_telegram",
	models.TriggerEventSchedule:        "trigger_schedule",
	models.TriggerEventManual:          "trigger_manual",
	models.TriggerEventWorkflow:        "trigger_workflow",
	models.TriggerEventError:           "trigger_error",
}

// TriggerBinding is one candidate (workflow, trigger node) pair the resolver
// may route an event to, along with the match rule narrowing which events
// bind to it.
type TriggerBinding struct {
	WorkflowID    string
	TriggerNodeID string
	ComponentType string
	Rule          models.TriggerMatchRule
}

// TriggerResolver is a pure function from an inbound event and the set of
// candidate bindings across all active workflows to the single binding the
// event should dispatch to. It has no side effects; TriggerDispatch is
// responsible for anything that follows from a resolution.
func ResolveTrigger(event models.TriggerEvent, candidates []TriggerBinding) (*TriggerBinding, bool) {
	componentType, ok := triggerComponentTypes[event.Kind]
	if !ok {
		return nil, false
	}

	matching := make([]TriggerBinding, 0, len(candidates))
	for _, c := range candidates {
		if c.ComponentType == componentType && matchesRule(event, c.Rule) {
			matching = append(matching, c)
		}
	}
	if len(matching) == 0 {
		return nil, false
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Rule.Priority > matching[j].Rule.Priority
	})

	return &matching[0], true
}

func matchesRule(event models.TriggerEvent, rule models.TriggerMatchRule) bool {
	if len(rule.AllowedUserIDs) > 0 {
		allowed := false
		for _, id := range rule.AllowedUserIDs {
			if id == event.UserID {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if rule.TextRegex != "" {
		re, err := regexp.Compile(rule.TextRegex)
		if err != nil || !re.MatchString(event.Text) {
			return false
		}
	}

	if rule.CommandPrefix != "" && !strings.HasPrefix(event.Text, rule.CommandPrefix) {
		return false
	}

	if rule.SourceWorkflow != "" && rule.SourceWorkflow != event.SourceWorkflow {
		return false
	}

	if rule.ScheduledJobID != "" && rule.ScheduledJobID != event.ScheduledJobID {
		return false
	}

	return true
}
