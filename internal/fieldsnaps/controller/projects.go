package controller

import (
	"context"
	"fmt"
	"strings"

	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/geofence"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProjectService struct {
	base
}

func NewProjectService(repo Repository, producer EventProducer, logger *zap.Logger) *ProjectService {
	return &ProjectService{base: newBase(repo, producer, logger, "project_service")}
}

func validateProject(p *models.Project) error {
	if err := validLength("name", p.Name, 1, 120); err != nil {
		return err
	}
	if len(p.Description) > 3000 {
		return fmt.Errorf("%w: description too long", e.ErrInvalidInput)
	}
	if len(p.Address) > 300 {
		return fmt.Errorf("%w: address too long", e.ErrInvalidInput)
	}
	if err := validCoordinates(p.Latitude, p.Longitude); err != nil {
		return err
	}
	if p.GeofenceRadiusM < geofence.MinRadiusM || p.GeofenceRadiusM > geofence.MaxRadiusM {
		return fmt.Errorf("%w: geofence radius must be %d to %d meters",
			e.ErrInvalidInput, geofence.MinRadiusM, geofence.MaxRadiusM)
	}
	return nil
}

func (s *ProjectService) CreateProject(ctx context.Context, actor *Actor, project *models.Project) (*models.Project, error) {
	company, err := s.writable(ctx, actor)
	if err != nil {
		return nil, err
	}
	project.Name = strings.TrimSpace(project.Name)
	if project.GeofenceRadiusM == 0 {
		project.GeofenceRadiusM = models.DefaultGeofenceRadiusM
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	project.ID = uuid.New()
	project.CompanyID = company.ID
	project.CreatedBy = actor.UserID
	project.Completed = false
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, wrap("create project", err)
	}

	s.emit(events.New(events.ProjectCreated, company.ID, actor.UserID, "project", project.ID,
		fmt.Sprintf("created project %s", project.Name)).WithProject(&project.ID))
	return project, nil
}

func (s *ProjectService) GetProject(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, wrap("get project", err)
	}
	if err := s.scope(actor, project.CompanyID); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, actor *Actor, includeCompleted bool) ([]*models.Project, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	projects, err := s.repo.ListProjects(ctx, companyID, models.ProjectFilter{IncludeCompleted: includeCompleted})
	if err != nil {
		return nil, wrap("list projects", err)
	}
	return projects, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, actor *Actor, update *models.ProjectUpdate) (*models.Project, error) {
	if _, err := s.writable(ctx, actor); err != nil {
		return nil, err
	}
	current, err := s.GetProject(ctx, actor, update.ID)
	if err != nil {
		return nil, err
	}

	// Validate the project as it will look after the update.
	next := *current
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
		next.Name = trimmed
	}
	if update.Description != nil {
		next.Description = *update.Description
	}
	if update.Address != nil {
		next.Address = *update.Address
	}
	if update.Latitude != nil {
		next.Latitude = update.Latitude
	}
	if update.Longitude != nil {
		next.Longitude = update.Longitude
	}
	if update.GeofenceRadiusM != nil {
		next.GeofenceRadiusM = *update.GeofenceRadiusM
	}
	if err := validateProject(&next); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProject(ctx, update); err != nil {
		return nil, wrap("update project", err)
	}
	updated, err := s.repo.GetProject(ctx, update.ID)
	if err != nil {
		s.logger.Error("Failed to reload project",
			zap.Error(err),
			zap.String("project_id", update.ID.String()),
		)
		return nil, err
	}
	return updated, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, actor *Actor, id uuid.UUID) error {
	if err := s.requireManager(actor); err != nil {
		return err
	}
	if _, err := s.writable(ctx, actor); err != nil {
		return err
	}
	project, err := s.GetProject(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return wrap("delete project", err)
	}

	s.emit(events.New(events.ProjectDeleted, project.CompanyID, actor.UserID, "project", project.ID,
		fmt.Sprintf("deleted project %s", project.Name)).WithProject(&project.ID))
	return nil
}
