// Package scheduler implements the durable interval-scheduling state machine
// (§4.11): it advances ScheduledJob rows through their run/retry/backoff
// lifecycle and dispatches a trigger event each time one comes due.
package scheduler

import (
	storagemodels "github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
	"github.com/theuselessai/pipelit/pkg/models"
)

func modelToDomain(m *storagemodels.ScheduledJobModel) *models.ScheduledJob {
	if m == nil {
		return nil
	}
	return &models.ScheduledJob{
		ID:              m.ID.String(),
		WorkflowID:      m.WorkflowID.String(),
		TriggerNodeID:   m.TriggerNodeID,
		IntervalSeconds: m.IntervalSeconds,
		RepeatCount:     m.RepeatCount,
		RepeatDone:      m.RepeatDone,
		RetryMax:        m.RetryMax,
		RetryDone:       m.RetryDone,
		Status:          models.ScheduledJobStatus(m.Status),
		LastRunAt:       m.LastRunAt,
		NextRunAt:       m.NextRunAt,
		LastError:       m.LastError,
		Payload:         map[string]interface{}(m.Payload),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func applyDomainToModel(job *models.ScheduledJob, m *storagemodels.ScheduledJobModel) {
	m.RepeatDone = job.RepeatDone
	m.RetryDone = job.RetryDone
	m.Status = string(job.Status)
	m.LastRunAt = job.LastRunAt
	m.NextRunAt = job.NextRunAt
	m.LastError = job.LastError
}
