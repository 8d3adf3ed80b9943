package controller

import (
	"context"
	"testing"

	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/fieldsnaps/fieldsnaps/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTaskService_CreateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewTaskService(f.repo, f.producer, zaptest.NewLogger(t))
	project := f.project(t, nil, nil)
	foreign, err := NewProjectService(f.repo, f.producer, zaptest.NewLogger(t)).
		CreateProject(ctx, f.outsider, &models.Project{Name: "Elsewhere"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		input      TaskInput
		wantErr    error
		wantEvents []events.EventType
	}{
		{
			name:       "unassigned",
			input:      TaskInput{Title: "Order drywall"},
			wantEvents: []events.EventType{events.TaskCreated},
		},
		{
			name:       "assigned on a project",
			input:      TaskInput{Title: "Patch ceiling", ProjectID: &project.ID, AssignedTo: &f.member.UserID},
			wantEvents: []events.EventType{events.TaskCreated, events.TaskAssigned},
		},
		{
			name:    "assignee from another company",
			input:   TaskInput{Title: "Patch ceiling", AssignedTo: &f.outsider.UserID},
			wantErr: e.ErrInvalidInput,
		},
		{
			name:    "unknown assignee",
			input:   TaskInput{Title: "Patch ceiling", AssignedTo: utils.Ptr(uuid.New())},
			wantErr: e.ErrInvalidInput,
		},
		{
			name:    "project from another company",
			input:   TaskInput{Title: "Patch ceiling", ProjectID: &foreign.ID},
			wantErr: e.ErrForbidden,
		},
		{
			name:    "blank title",
			input:   TaskInput{Title: " "},
			wantErr: e.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.producer.reset()
			task, created, err := svc.CreateTask(ctx, f.owner, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, models.TaskOpen, task.Status)
			assert.Equal(t, tt.wantEvents, f.producer.types())
		})
	}

	t.Run("assignment event names the assignee", func(t *testing.T) {
		f.producer.reset()
		_, _, err := svc.CreateTask(ctx, f.owner, TaskInput{Title: "Haul debris", AssignedTo: &f.member.UserID})
		require.NoError(t, err)
		assignee, ok := f.producer.last().UUID(events.KeyAssigneeID)
		require.True(t, ok)
		assert.Equal(t, f.member.UserID, assignee)
	})

	t.Run("replay by client id", func(t *testing.T) {
		in := TaskInput{Title: "Photo punch list", ClientID: "device-42"}
		first, created, err := svc.CreateTask(ctx, f.member, in)
		require.NoError(t, err)
		require.True(t, created)

		again, created, err := svc.CreateTask(ctx, f.member, in)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
	})
}

func TestTaskService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewTaskService(f.repo, f.producer, zaptest.NewLogger(t))

	task, _, err := svc.CreateTask(ctx, f.owner, TaskInput{Title: "Seal windows"})
	require.NoError(t, err)

	t.Run("status cannot change through update", func(t *testing.T) {
		status := models.TaskCompleted
		_, err := svc.UpdateTask(ctx, f.owner, &models.TaskUpdate{ID: task.ID, Status: &status})
		assert.ErrorIs(t, err, e.ErrInvalidInput)
	})

	t.Run("reassignment emits task.assigned", func(t *testing.T) {
		f.producer.reset()
		updated, err := svc.UpdateTask(ctx, f.owner, &models.TaskUpdate{ID: task.ID, AssignedTo: &f.member.UserID})
		require.NoError(t, err)
		assert.Equal(t, f.member.UserID, *updated.AssignedTo)
		assert.Equal(t, []events.EventType{events.TaskAssigned}, f.producer.types())

		f.producer.reset()
		_, err = svc.UpdateTask(ctx, f.owner, &models.TaskUpdate{ID: task.ID, AssignedTo: &f.member.UserID})
		require.NoError(t, err)
		assert.Empty(t, f.producer.types(), "same assignee is not a new assignment")
	})

	t.Run("complete and reopen", func(t *testing.T) {
		f.producer.reset()
		done, err := svc.CompleteTask(ctx, f.member, task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskCompleted, done.Status)
		require.NotNil(t, done.CompletedBy)
		assert.Equal(t, f.member.UserID, *done.CompletedBy)

		event := f.producer.last()
		assert.Equal(t, events.TaskCompleted, event.Type)
		creator, _ := event.UUID(events.KeyCreatedBy)
		assert.Equal(t, f.owner.UserID, creator)

		f.producer.reset()
		again, err := svc.CompleteTask(ctx, f.member, task.ID)
		require.NoError(t, err)
		assert.Equal(t, done.CompletedAt, again.CompletedAt)
		assert.Empty(t, f.producer.types())

		reopened, err := svc.ReopenTask(ctx, f.member, task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskOpen, reopened.Status)
		assert.Nil(t, reopened.CompletedAt)
	})

	t.Run("listing filters", func(t *testing.T) {
		open := models.TaskOpen
		list, err := svc.ListTasks(ctx, f.member, models.TaskFilter{AssignedTo: &f.member.UserID, Status: &open})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, task.ID, list[0].ID)

		_, err = svc.ListTasks(ctx, f.member, models.TaskFilter{Status: utils.Ptr(models.TaskStatus("blocked"))})
		assert.ErrorIs(t, err, e.ErrInvalidInput)

		list, err = svc.ListTasks(ctx, f.outsider, models.TaskFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := svc.GetTask(ctx, f.outsider, task.ID)
		assert.ErrorIs(t, err, e.ErrForbidden)

		assert.ErrorIs(t, svc.DeleteTask(ctx, f.member, task.ID), e.ErrForbidden)
		require.NoError(t, svc.DeleteTask(ctx, f.owner, task.ID))

		_, err = svc.GetTask(ctx, f.owner, task.ID)
		assert.ErrorIs(t, err, e.ErrNotFound)
	})
}
