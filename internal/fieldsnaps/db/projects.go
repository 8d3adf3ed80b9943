package db

import (
	"context"

	rec "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
)

func (r *Repository) CreateProject(ctx context.Context, project *models.Project) error {
	record := projectToRecord(project)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return translate(err)
	}
	project.CreatedAt = record.CreatedAt
	project.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *Repository) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project rec.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	out := projectFromRecord(&project)
	count, err := r.CountPhotos(ctx, id)
	if err != nil {
		return nil, err
	}
	out.PhotoCount = count
	return out, nil
}

// ListProjects returns the company's projects, most recently updated first,
// with their photo counts.
func (r *Repository) ListProjects(ctx context.Context, companyID uuid.UUID, filter models.ProjectFilter) ([]*models.Project, error) {
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if !filter.IncludeCompleted {
		query = query.Where("completed = ?", false)
	}

	var records []rec.Project
	if err := query.Order("updated_at DESC").Find(&records).Error; err != nil {
		return nil, translate(err)
	}
	if len(records) == 0 {
		return []*models.Project{}, nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].ID)
	}
	var counts []struct {
		ProjectID uuid.UUID
		Total     int64
	}
	err := r.db.WithContext(ctx).Model(&rec.Photo{}).
		Select("project_id, COUNT(*) AS total").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&counts).Error
	if err != nil {
		return nil, translate(err)
	}
	byProject := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byProject[c.ProjectID] = c.Total
	}

	projects := make([]*models.Project, 0, len(records))
	for i := range records {
		p := projectFromRecord(&records[i])
		p.PhotoCount = byProject[p.ID]
		projects = append(projects, p)
	}
	return projects, nil
}

func (r *Repository) UpdateProject(ctx context.Context, update *models.ProjectUpdate) error {
	updates := map[string]any{}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.Address != nil {
		updates["address"] = *update.Address
	}
	if update.Latitude != nil {
		updates["latitude"] = *update.Latitude
	}
	if update.Longitude != nil {
		updates["longitude"] = *update.Longitude
	}
	if update.GeofenceRadiusM != nil {
		updates["geofence_radius_m"] = *update.GeofenceRadiusM
	}
	if update.Completed != nil {
		updates["completed"] = *update.Completed
	}
	if len(updates) == 0 {
		_, err := r.GetProject(ctx, update.ID)
		return err
	}
	result := r.db.WithContext(ctx).Model(&rec.Project{}).Where("id = ?", update.ID).Updates(updates)
	return updateResult(result)
}

func (r *Repository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rec.Project{}, "id = ?", id)
	return updateResult(result)
}
