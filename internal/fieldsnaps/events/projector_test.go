package events

import (
	"context"
	"testing"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/dbtest"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func seedCompany(t *testing.T, repo *db.Repository) *models.Company {
	t.Helper()
	company := &models.Company{
		ID:                 uuid.New(),
		Name:               "Ridgeline Builders " + uuid.NewString()[:6],
		OwnerID:            uuid.New(),
		InviteCode:         uuid.NewString()[:8],
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndsAt:        time.Now().UTC().Add(24 * time.Hour),
	}
	require.NoError(t, repo.CreateCompany(context.Background(), company))
	return company
}

func TestProjector(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.New(t)
	company := seedCompany(t, repo)
	projector := NewProjector(repo, zaptest.NewLogger(t))

	actor, other := uuid.New(), uuid.New()
	taskID := uuid.New()

	tests := []struct {
		name      string
		event     Event
		recipient *uuid.UUID
	}{
		{
			name:  "project created only logs activity",
			event: New(ProjectCreated, company.ID, actor, "project", uuid.New(), "created project"),
		},
		{
			name:      "task assigned notifies assignee",
			event:     New(TaskAssigned, company.ID, actor, "task", taskID, "assigned Pour footings").With(KeyAssigneeID, other),
			recipient: &other,
		},
		{
			name:  "self assignment is silent",
			event: New(TaskAssigned, company.ID, actor, "task", taskID, "assigned Pour footings").With(KeyAssigneeID, actor),
		},
		{
			name:      "task completed notifies creator",
			event:     New(TaskCompleted, company.ID, other, "task", taskID, "completed Pour footings").With(KeyCreatedBy, actor),
			recipient: &actor,
		},
		{
			name:  "creator completing own task is silent",
			event: New(TaskCompleted, company.ID, actor, "task", taskID, "completed Pour footings").With(KeyCreatedBy, actor),
		},
		{
			name:      "subscription change notifies owner",
			event:     New(SubscriptionChanged, company.ID, uuid.Nil, "company", company.ID, "subscription is now active").With(KeyStatus, "active"),
			recipient: &company.OwnerID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := map[uuid.UUID]int64{}
			for _, u := range []uuid.UUID{actor, other, company.OwnerID} {
				before[u], _ = repo.CountUnreadNotifications(ctx, u)
			}

			require.NoError(t, projector.Handle(ctx, tt.event))

			for u, n := range before {
				after, err := repo.CountUnreadNotifications(ctx, u)
				require.NoError(t, err)
				if tt.recipient != nil && *tt.recipient == u {
					assert.Equal(t, n+1, after)
				} else {
					assert.Equal(t, n, after)
				}
			}
		})
	}

	feed, err := repo.ListActivity(ctx, company.ID, nil, models.FeedCursor{}, 50)
	require.NoError(t, err)
	assert.Len(t, feed, len(tests))
}

func TestProjectorIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := dbtest.New(t)
	company := seedCompany(t, repo)
	projector := NewProjector(repo, zaptest.NewLogger(t))

	assignee := uuid.New()
	event := New(TaskAssigned, company.ID, uuid.New(), "task", uuid.New(), "assigned Frame walls").With(KeyAssigneeID, assignee)

	require.NoError(t, projector.Handle(ctx, event))
	require.NoError(t, projector.Handle(ctx, event))

	count, err := repo.CountUnreadNotifications(ctx, assignee)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	feed, err := repo.ListActivity(ctx, company.ID, nil, models.FeedCursor{}, 50)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, assignee.String(), feed[0].Metadata[KeyAssigneeID])
}
