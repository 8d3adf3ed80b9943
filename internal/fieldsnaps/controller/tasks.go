package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskService struct {
	base
}

func NewTaskService(repo Repository, producer EventProducer, logger *zap.Logger) *TaskService {
	return &TaskService{base: newBase(repo, producer, logger, "task_service")}
}

// TaskInput is a new to-do.
type TaskInput struct {
	Title       string
	Description string
	ProjectID   *uuid.UUID
	PhotoID     *uuid.UUID
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
	ClientID    string
}

// checkRefs makes sure every referenced record belongs to the company.
func (s *TaskService) checkRefs(ctx context.Context, actor *Actor, projectID, photoID, assignee *uuid.UUID) error {
	if projectID != nil {
		project, err := s.repo.GetProject(ctx, *projectID)
		if err != nil {
			return wrap("get project", err)
		}
		if err := s.scope(actor, project.CompanyID); err != nil {
			return err
		}
	}
	if photoID != nil {
		photo, err := s.repo.GetPhoto(ctx, *photoID)
		if err != nil {
			return wrap("get photo", err)
		}
		if err := s.scope(actor, photo.CompanyID); err != nil {
			return err
		}
	}
	if assignee != nil {
		user, err := s.repo.GetUser(ctx, *assignee)
		if errors.Is(err, e.ErrNotFound) {
			return fmt.Errorf("%w: assignee not found", e.ErrInvalidInput)
		}
		if err != nil {
			return wrap("get assignee", err)
		}
		if user.CompanyID == nil || !actor.Owns(*user.CompanyID) {
			return fmt.Errorf("%w: assignee is not a company member", e.ErrInvalidInput)
		}
	}
	return nil
}

// CreateTask stores a to-do. A repeated create with the same client ID
// returns the stored task and created=false.
func (s *TaskService) CreateTask(ctx context.Context, actor *Actor, in TaskInput) (*models.Task, bool, error) {
	company, err := s.writable(ctx, actor)
	if err != nil {
		return nil, false, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validLength("title", in.Title, 1, 200); err != nil {
		return nil, false, err
	}
	if len(in.Description) > 5000 {
		return nil, false, fmt.Errorf("%w: description too long", e.ErrInvalidInput)
	}
	if in.ClientID != "" {
		existing, err := s.repo.GetTaskByClientID(ctx, company.ID, in.ClientID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, e.ErrNotFound) {
			return nil, false, wrap("look up task", err)
		}
	}
	if err := s.checkRefs(ctx, actor, in.ProjectID, in.PhotoID, in.AssignedTo); err != nil {
		return nil, false, err
	}

	task := &models.Task{
		ID:          uuid.New(),
		CompanyID:   company.ID,
		ProjectID:   in.ProjectID,
		PhotoID:     in.PhotoID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		AssignedTo:  in.AssignedTo,
		CreatedBy:   actor.UserID,
		Status:      models.TaskOpen,
		DueDate:     in.DueDate,
		ClientID:    in.ClientID,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		if errors.Is(err, e.ErrDuplicateName) && in.ClientID != "" {
			if existing, lookupErr := s.repo.GetTaskByClientID(ctx, company.ID, in.ClientID); lookupErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, wrap("create task", err)
	}

	s.emit(events.New(events.TaskCreated, company.ID, actor.UserID, "task", task.ID,
		fmt.Sprintf("created to-do %q", task.Title)).WithProject(task.ProjectID))
	if task.AssignedTo != nil {
		s.emitAssigned(actor, task)
	}
	return task, true, nil
}

func (s *TaskService) emitAssigned(actor *Actor, task *models.Task) {
	s.emit(events.New(events.TaskAssigned, task.CompanyID, actor.UserID, "task", task.ID,
		fmt.Sprintf("assigned to-do %q", task.Title)).
		WithProject(task.ProjectID).
		With(events.KeyAssigneeID, *task.AssignedTo))
}

func (s *TaskService) GetTask(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, wrap("get task", err)
	}
	if err := s.scope(actor, task.CompanyID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, actor *Actor, filter models.TaskFilter) ([]*models.Task, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	if filter.Status != nil && *filter.Status != models.TaskOpen && *filter.Status != models.TaskCompleted {
		return nil, fmt.Errorf("%w: unknown status %q", e.ErrInvalidInput, *filter.Status)
	}
	filter.CompanyID = companyID
	tasks, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	return tasks, nil
}

// UpdateTask edits the to-do. Status changes go through CompleteTask and
// ReopenTask.
func (s *TaskService) UpdateTask(ctx context.Context, actor *Actor, update *models.TaskUpdate) (*models.Task, error) {
	if _, err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	current, err := s.GetTask(ctx, actor, update.ID)
	if err != nil {
		return nil, err
	}
	if update.Status != nil || update.CompletedAt != nil || update.CompletedBy != nil || update.ClearComplete {
		return nil, fmt.Errorf("%w: use complete or reopen to change status", e.ErrInvalidInput)
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if err := validLength("title", title, 1, 200); err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if update.Description != nil && len(*update.Description) > 5000 {
		return nil, fmt.Errorf("%w: description too long", e.ErrInvalidInput)
	}
	var assignee *uuid.UUID
	if !update.ClearAssignee {
		assignee = update.AssignedTo
	}
	if err := s.checkRefs(ctx, actor, update.ProjectID, nil, assignee); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTask(ctx, update); err != nil {
		return nil, wrap("update task", err)
	}
	updated, err := s.repo.GetTask(ctx, update.ID)
	if err != nil {
		return nil, err
	}

	reassigned := assignee != nil && (current.AssignedTo == nil || *current.AssignedTo != *assignee)
	if reassigned {
		s.emitAssigned(actor, updated)
	}
	return updated, nil
}

// CompleteTask marks the to-do done. Completing a completed task is a no-op.
func (s *TaskService) CompleteTask(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Task, error) {
	if _, err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	task, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskCompleted {
		return task, nil
	}
	status := models.TaskCompleted
	now := s.now()
	err = s.repo.UpdateTask(ctx, &models.TaskUpdate{
		ID:          id,
		Status:      &status,
		CompletedAt: &now,
		CompletedBy: &actor.UserID,
	})
	if err != nil {
		return nil, wrap("complete task", err)
	}
	updated, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	s.emit(events.New(events.TaskCompleted, updated.CompanyID, actor.UserID, "task", updated.ID,
		fmt.Sprintf("completed to-do %q", updated.Title)).
		WithProject(updated.ProjectID).
		With(events.KeyCreatedBy, updated.CreatedBy))
	return updated, nil
}

func (s *TaskService) ReopenTask(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Task, error) {
	if _, err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	task, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskOpen {
		return task, nil
	}
	status := models.TaskOpen
	if err := s.repo.UpdateTask(ctx, &models.TaskUpdate{ID: id, Status: &status, ClearComplete: true}); err != nil {
		return nil, wrap("reopen task", err)
	}
	return s.repo.GetTask(ctx, id)
}

func (s *TaskService) DeleteTask(ctx context.Context, actor *Actor, id uuid.UUID) error {
	if _, err := s.writable(ctx, actor); err != nil {
		return err
	}
	task, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return err
	}
	if task.CreatedBy != actor.UserID && !actor.Role.CanManage() {
		return fmt.Errorf("%w: only the creator or an admin can delete a to-do", e.ErrForbidden)
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return wrap("delete task", err)
	}
	return nil
}
