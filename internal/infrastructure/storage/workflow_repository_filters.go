package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/theuselessai/pipelit/internal/domain/repository"
	"github.com/theuselessai/pipelit/internal/infrastructure/storage/models"
	"github.com/uptrace/bun"
)

// applyWorkflowFilters narrows a select query by status and owning user,
// optionally including unowned workflows alongside a user's own.
func applyWorkflowFilters(q *bun.SelectQuery, filters repository.WorkflowFilters) *bun.SelectQuery {
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		if filters.IncludeUnowned {
			q = q.Where("created_by = ? OR created_by IS NULL", *filters.CreatedBy)
		} else {
			q = q.Where("created_by = ?", *filters.CreatedBy)
		}
	}
	return q
}

// FindAllWithFilters retrieves workflows matching the given filters with pagination
func (r *WorkflowRepository) FindAllWithFilters(ctx context.Context, filters repository.WorkflowFilters, limit, offset int) ([]*models.WorkflowModel, error) {
	var workflows []*models.WorkflowModel
	q := r.db.NewSelect().Model(&workflows)
	q = applyWorkflowFilters(q, filters)
	q = q.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return workflows, nil
}

// CountWithFilters returns the count of workflows matching the given filters
func (r *WorkflowRepository) CountWithFilters(ctx context.Context, filters repository.WorkflowFilters) (int, error) {
	q := r.db.NewSelect().Model((*models.WorkflowModel)(nil))
	q = applyWorkflowFilters(q, filters)
	return q.Count(ctx)
}

// AssignResource attaches a resource to a workflow under the given alias
func (r *WorkflowRepository) AssignResource(ctx context.Context, workflowID uuid.UUID, resource *models.WorkflowResourceModel, assignedBy *uuid.UUID) error {
	resource.WorkflowID = workflowID
	resource.AssignedBy = assignedBy
	_, err := r.db.NewInsert().Model(resource).Exec(ctx)
	return err
}

// UnassignResource detaches a resource from a workflow
func (r *WorkflowRepository) UnassignResource(ctx context.Context, workflowID, resourceID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*models.WorkflowResourceModel)(nil)).
		Where("workflow_id = ? AND resource_id = ?", workflowID, resourceID).
		Exec(ctx)
	return err
}

// UnassignResourceFromAllWorkflows removes a resource from every workflow it's
// assigned to, returning how many assignments were removed.
func (r *WorkflowRepository) UnassignResourceFromAllWorkflows(ctx context.Context, resourceID uuid.UUID) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.WorkflowResourceModel)(nil)).
		Where("resource_id = ?", resourceID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetWorkflowResources lists the resources assigned to a workflow
func (r *WorkflowRepository) GetWorkflowResources(ctx context.Context, workflowID uuid.UUID) ([]*models.WorkflowResourceModel, error) {
	var resources []*models.WorkflowResourceModel
	err := r.db.NewSelect().
		Model(&resources).
		Where("workflow_id = ?", workflowID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return resources, nil
}

// UpdateResourceAlias renames a workflow's resource assignment
func (r *WorkflowRepository) UpdateResourceAlias(ctx context.Context, workflowID, resourceID uuid.UUID, newAlias string) error {
	_, err := r.db.NewUpdate().
		Model((*models.WorkflowResourceModel)(nil)).
		Set("alias = ?", newAlias).
		Where("workflow_id = ? AND resource_id = ?", workflowID, resourceID).
		Exec(ctx)
	return err
}

// ResourceExists reports whether a resource is currently assigned to a workflow
func (r *WorkflowRepository) ResourceExists(ctx context.Context, workflowID, resourceID uuid.UUID) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*models.WorkflowResourceModel)(nil)).
		Where("workflow_id = ? AND resource_id = ?", workflowID, resourceID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetResourceByAlias finds a workflow's resource assignment by alias
func (r *WorkflowRepository) GetResourceByAlias(ctx context.Context, workflowID uuid.UUID, alias string) (*models.WorkflowResourceModel, error) {
	resource := &models.WorkflowResourceModel{}
	err := r.db.NewSelect().
		Model(resource).
		Where("workflow_id = ? AND alias = ?", workflowID, alias).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return resource, nil
}
