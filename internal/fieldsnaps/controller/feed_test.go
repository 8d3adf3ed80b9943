package controller

import (
	"context"
	"testing"

	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/fieldsnaps/fieldsnaps/internal/pkg/bg"
	"github.com/fieldsnaps/fieldsnaps/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func actions(entries []*models.ActivityLog) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Action)
	}
	return out
}

func TestFeed_TaskLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	dispatcher := events.NewLocalDispatcher(events.NewProjector(f.repo, logger).Handle, bg.Sync{}, logger)

	projects := NewProjectService(f.repo, dispatcher, logger)
	tasks := NewTaskService(f.repo, dispatcher, logger)
	feed := NewActivityService(f.repo, logger)
	notifications := NewNotificationService(f.repo, logger)

	project, err := projects.CreateProject(ctx, f.owner, &models.Project{Name: "Harbor View Deck"})
	require.NoError(t, err)
	task, _, err := tasks.CreateTask(ctx, f.owner, TaskInput{
		Title:      "Seal deck boards",
		ProjectID:  &project.ID,
		AssignedTo: &f.member.UserID,
	})
	require.NoError(t, err)

	unread, err := notifications.UnreadCount(ctx, f.member)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	_, err = tasks.CompleteTask(ctx, f.member, task.ID)
	require.NoError(t, err)

	entries, err := feed.Feed(ctx, f.owner, nil, models.FeedCursor{}, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		string(events.ProjectCreated),
		string(events.TaskCreated),
		string(events.TaskAssigned),
		string(events.TaskCompleted),
	}, actions(entries))

	scoped, err := feed.Feed(ctx, f.member, &project.ID, models.FeedCursor{}, 2)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	_, err = feed.Feed(ctx, f.outsider, &project.ID, models.FeedCursor{}, 0)
	assert.ErrorIs(t, err, e.ErrForbidden)

	others, err := feed.Feed(ctx, f.outsider, nil, models.FeedCursor{}, 0)
	require.NoError(t, err)
	assert.Empty(t, others, "feeds never cross companies")

	ownerInbox, err := notifications.List(ctx, f.owner, true, 0)
	require.NoError(t, err)
	require.Len(t, ownerInbox, 1)
	assert.Equal(t, string(events.TaskCompleted), ownerInbox[0].Type)
	assert.Equal(t, task.ID, ownerInbox[0].EntityID)

	// Completing again changes nothing and notifies nobody.
	_, err = tasks.CompleteTask(ctx, f.member, task.ID)
	require.NoError(t, err)
	ownerInbox, err = notifications.List(ctx, f.owner, false, 0)
	require.NoError(t, err)
	assert.Len(t, ownerInbox, 1)
}

func TestNotificationService_MarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	dispatcher := events.NewLocalDispatcher(events.NewProjector(f.repo, logger).Handle, bg.Sync{}, logger)
	tasks := NewTaskService(f.repo, dispatcher, logger)
	svc := NewNotificationService(f.repo, logger)

	for _, title := range []string{"Pull permits", "Order trusses", "Book crane"} {
		_, _, err := tasks.CreateTask(ctx, f.owner, TaskInput{Title: title, AssignedTo: utils.Ptr(f.member.UserID)})
		require.NoError(t, err)
	}

	inbox, err := svc.List(ctx, f.member, false, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 3)

	require.NoError(t, svc.MarkRead(ctx, f.member, inbox[0].ID))
	require.NoError(t, svc.MarkRead(ctx, f.member, inbox[0].ID), "marking twice is fine")
	assert.ErrorIs(t, svc.MarkRead(ctx, f.owner, inbox[1].ID), e.ErrNotFound, "other users' notifications are invisible")
	assert.ErrorIs(t, svc.MarkRead(ctx, f.member, uuid.New()), e.ErrNotFound)

	unread, err := svc.UnreadCount(ctx, f.member)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	n, err := svc.MarkAllRead(ctx, f.member)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	unreadOnly, err := svc.List(ctx, f.member, true, 0)
	require.NoError(t, err)
	assert.Empty(t, unreadOnly)
}

func TestFeedLimit(t *testing.T) {
	assert.Equal(t, defaultFeedLimit, feedLimit(0))
	assert.Equal(t, 10, feedLimit(10))
	assert.Equal(t, maxFeedLimit, feedLimit(1000))
}
