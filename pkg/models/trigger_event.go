package models

import "time"

// TriggerEventKind classifies an inbound trigger event.
type TriggerEventKind string

const (
	TriggerEventTelegramMessage TriggerEventKind = "telegram-message"
	TriggerEventSchedule        TriggerEventKind = "schedule"
	TriggerEventManual          TriggerEventKind = "manual"
	TriggerEventWorkflow        TriggerEventKind = "workflow"
	TriggerEventError           TriggerEventKind = "error"
	TriggerEventChat            TriggerEventKind = "chat"
)

// TriggerEvent is the inbound event TriggerResolver maps to a (workflow,
// trigger_node) pair, and TriggerDispatch turns into an ExecutionRecord.
// Chat events skip TriggerResolver: the caller names the workflow and
// trigger node directly.
type TriggerEvent struct {
	Kind        TriggerEventKind       `json:"kind"`
	ArrivalTime time.Time              `json:"arrival_time"`
	Payload     map[string]interface{} `json:"payload"`

	// Match hints, populated depending on Kind.
	UserID          string `json:"user_id,omitempty"`
	ChatID          string `json:"chat_id,omitempty"`
	Text            string `json:"text,omitempty"`
	ScheduledJobID  string `json:"scheduled_job_id,omitempty"`
	TriggerNodeID   string `json:"trigger_node_id,omitempty"`
	SourceWorkflow  string `json:"source_workflow_id,omitempty"`
	SourceNodeID    string `json:"source_node_id,omitempty"`
	WorkflowSlug    string `json:"workflow_slug,omitempty"`
	CorrelationID   string `json:"correlation_id,omitempty"`
	SourceNodeType  string `json:"source_node_type,omitempty"`
	ExecutionID     string `json:"execution_id,omitempty"`
	ErrorCode       string `json:"error_code,omitempty"`
	ErrorMessage    string `json:"message,omitempty"`
}

// TriggerMatchRule narrows which inbound events bind to a trigger node of
// the matching component_type. All set fields must match; unset fields are
// ignored. Priority breaks ties when more than one trigger node of the same
// component_type could match a given event.
type TriggerMatchRule struct {
	Priority        int      `json:"priority,omitempty"`
	AllowedUserIDs  []string `json:"allowed_user_ids,omitempty"`
	TextRegex       string   `json:"text_regex,omitempty"`
	CommandPrefix   string   `json:"command_prefix,omitempty"`
	SourceWorkflow  string   `json:"source_workflow,omitempty"`
	ScheduledJobID  string   `json:"scheduled_job_id,omitempty"`
}
