package db

import (
	"context"

	rec "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
)

const maxTaskListing = 500

func (r *Repository) CreateTask(ctx context.Context, task *models.Task) error {
	record := taskToRecord(task)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return translate(err)
	}
	task.CreatedAt = record.CreatedAt
	task.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *Repository) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task rec.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return taskFromRecord(&task), nil
}

func (r *Repository) GetTaskByClientID(ctx context.Context, companyID uuid.UUID, clientID string) (*models.Task, error) {
	var task rec.Task
	err := r.db.WithContext(ctx).
		First(&task, "company_id = ? AND client_id = ?", companyID, clientID).Error
	if err != nil {
		return nil, translate(err)
	}
	return taskFromRecord(&task), nil
}

// ListTasks returns open tasks first, then by newest.
func (r *Repository) ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error) {
	query := r.db.WithContext(ctx).Where("company_id = ?", filter.CompanyID)
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	limit := filter.Limit
	if limit <= 0 || limit > maxTaskListing {
		limit = maxTaskListing
	}

	var records []rec.Task
	err := query.
		Order("CASE WHEN status = 'open' THEN 0 ELSE 1 END").
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, translate(err)
	}
	tasks := make([]*models.Task, 0, len(records))
	for i := range records {
		tasks = append(tasks, taskFromRecord(&records[i]))
	}
	return tasks, nil
}

func (r *Repository) UpdateTask(ctx context.Context, update *models.TaskUpdate) error {
	updates := map[string]any{}
	if update.Title != nil {
		updates["title"] = *update.Title
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.ProjectID != nil {
		updates["project_id"] = *update.ProjectID
	}
	if update.ClearAssignee {
		updates["assigned_to"] = nil
	} else if update.AssignedTo != nil {
		updates["assigned_to"] = *update.AssignedTo
	}
	if update.DueDate != nil {
		updates["due_date"] = *update.DueDate
	}
	if update.Status != nil {
		updates["status"] = string(*update.Status)
	}
	if update.ClearComplete {
		updates["completed_at"] = nil
		updates["completed_by"] = nil
	} else {
		if update.CompletedAt != nil {
			updates["completed_at"] = *update.CompletedAt
		}
		if update.CompletedBy != nil {
			updates["completed_by"] = *update.CompletedBy
		}
	}
	if len(updates) == 0 {
		_, err := r.GetTask(ctx, update.ID)
		return err
	}
	result := r.db.WithContext(ctx).Model(&rec.Task{}).Where("id = ?", update.ID).Updates(updates)
	return updateResult(result)
}

func (r *Repository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rec.Task{}, "id = ?", id)
	return updateResult(result)
}
