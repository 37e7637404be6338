package models

import "time"

// Checkpoint is an opaque state snapshot keyed by thread id, with an
// optional parent for chained (durable conversation) history. The
// Checkpointer never interprets Blob; it is whatever the Executor
// serialized (execution state + position).
type Checkpoint struct {
	ThreadID         string    `json:"thread_id"`
	CheckpointID     string    `json:"checkpoint_id"`
	ParentCheckpoint string    `json:"parent_checkpoint_id,omitempty"`
	Step             int       `json:"step"`
	Source           string    `json:"source"` // e.g. "human_confirmation", "subworkflow", "delay", "conversation"
	Blob             []byte    `json:"blob"`
	CreatedAt        time.Time `json:"created_at"`
}

// ThreadID derives the canonical checkpoint grouping key from
// (user_identity, channel_identity, workflow_id) so the same user talking
// to the same workflow continues the same conversation.
func ThreadIDFor(userIdentity, channelIdentity, workflowID string) string {
	return userIdentity + ":" + channelIdentity + ":" + workflowID
}
