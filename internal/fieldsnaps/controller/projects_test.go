package controller

import (
	"context"
	"errors"
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

func TestProjectService_CreateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProjectService(f.repo, f.producer, zaptest.NewLogger(t))

	tests := []struct {
		name    string
		input   *models.Project
		wantErr error
	}{
		{name: "defaults the radius", input: &models.Project{Name: "Oak Ave"}},
		{name: "with location", input: &models.Project{Name: "Pine Ct", Latitude: utils.Ptr(39.75), Longitude: utils.Ptr(-105.0), GeofenceRadiusM: 300}},
		{name: "empty name", input: &models.Project{Name: "   "}, wantErr: e.ErrInvalidInput},
		{name: "radius too small", input: &models.Project{Name: "Elm", GeofenceRadiusM: 10}, wantErr: e.ErrInvalidInput},
		{name: "half a coordinate", input: &models.Project{Name: "Elm", Latitude: utils.Ptr(1.0)}, wantErr: e.ErrInvalidInput},
		{name: "latitude out of range", input: &models.Project{Name: "Elm", Latitude: utils.Ptr(91.0), Longitude: utils.Ptr(0.0)}, wantErr: e.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.producer.reset()
			p, err := svc.CreateProject(ctx, f.member, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.producer.types())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.company.ID, p.CompanyID)
			assert.Equal(t, f.member.UserID, p.CreatedBy)
			assert.GreaterOrEqual(t, p.GeofenceRadiusM, 25)
			assert.Equal(t, []events.EventType{events.ProjectCreated}, f.producer.types())
			assert.Equal(t, p.ID, *f.producer.last().ProjectID)
		})
	}
}

func TestProjectService_Scoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProjectService(f.repo, f.producer, zaptest.NewLogger(t))
	p := f.project(t, nil, nil)

	_, err := svc.GetProject(ctx, f.outsider, p.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)

	_, err = svc.UpdateProject(ctx, f.outsider, &models.ProjectUpdate{ID: p.ID, Name: utils.Ptr("Mine now")})
	assert.ErrorIs(t, err, e.ErrForbidden)

	_, err = svc.GetProject(ctx, f.owner, uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)

	list, err := svc.ListProjects(ctx, f.outsider, true)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.ListProjects(ctx, &Actor{UserID: uuid.New()}, false)
	assert.ErrorIs(t, err, e.ErrForbidden)
}

func TestProjectService_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProjectService(f.repo, f.producer, zaptest.NewLogger(t))
	p := f.project(t, nil, nil)

	_, err := svc.UpdateProject(ctx, f.member, &models.ProjectUpdate{ID: p.ID, GeofenceRadiusM: utils.Ptr(9000)})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	updated, err := svc.UpdateProject(ctx, f.member, &models.ProjectUpdate{ID: p.ID, Completed: utils.Ptr(true), Name: utils.Ptr(" Done ")})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Done", updated.Name)

	active, err := svc.ListProjects(ctx, f.owner, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, svc.DeleteProject(ctx, f.member, p.ID), e.ErrForbidden)

	f.producer.reset()
	require.NoError(t, svc.DeleteProject(ctx, f.owner, p.ID))
	assert.Equal(t, []events.EventType{events.ProjectDeleted}, f.producer.types())

	_, err = svc.GetProject(ctx, f.owner, p.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestProjectService_ExpiredTrialBlocksWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProjectService(f.repo, f.producer, zaptest.NewLogger(t))
	p := f.project(t, nil, nil)
	svc.now = afterTrial

	_, err := svc.CreateProject(ctx, f.owner, &models.Project{Name: "Blocked"})
	assert.ErrorIs(t, err, e.ErrPaymentRequired)

	got, err := svc.GetProject(ctx, f.owner, p.ID)
	require.NoError(t, err, "reads stay available")
	assert.Equal(t, p.ID, got.ID)
}

// brokenRepo fails company lookups.
type brokenRepo struct {
	Repository
	err error
}

func (r *brokenRepo) GetCompany(context.Context, uuid.UUID) (*models.Company, error) {
	return nil, r.err
}

func TestProjectService_RepositoryFailure(t *testing.T) {
	f := newFixture(t)
	dbErr := errors.New("connection reset")
	svc := NewProjectService(&brokenRepo{Repository: f.repo, err: dbErr}, f.producer, zaptest.NewLogger(t))

	_, err := svc.CreateProject(context.Background(), f.owner, &models.Project{Name: "Anything"})
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to load company")
}
