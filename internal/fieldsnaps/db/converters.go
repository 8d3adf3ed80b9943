package db

import (
	"encoding/json"

	rec "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"gorm.io/datatypes"
)

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func userToRecord(u *models.User) *rec.User {
	return &rec.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CompanyID: u.CompanyID,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userFromRecord(r *rec.User) *models.User {
	return &models.User{
		ID:        r.ID,
		Email:     r.Email,
		FullName:  r.FullName,
		CompanyID: r.CompanyID,
		Role:      models.Role(r.Role),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func companyToRecord(c *models.Company) *rec.Company {
	return &rec.Company{
		ID:                   c.ID,
		Name:                 c.Name,
		OwnerID:              c.OwnerID,
		InviteCode:           c.InviteCode,
		SubscriptionStatus:   string(c.SubscriptionStatus),
		TrialEndsAt:          c.TrialEndsAt,
		CurrentPeriodEnd:     c.CurrentPeriodEnd,
		StripeCustomerID:     optString(c.StripeCustomerID),
		StripeSubscriptionID: optString(c.StripeSubscriptionID),
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

func companyFromRecord(r *rec.Company) *models.Company {
	return &models.Company{
		ID:                   r.ID,
		Name:                 r.Name,
		OwnerID:              r.OwnerID,
		InviteCode:           r.InviteCode,
		SubscriptionStatus:   models.SubscriptionStatus(r.SubscriptionStatus),
		TrialEndsAt:          r.TrialEndsAt,
		CurrentPeriodEnd:     r.CurrentPeriodEnd,
		StripeCustomerID:     derefString(r.StripeCustomerID),
		StripeSubscriptionID: derefString(r.StripeSubscriptionID),
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func projectToRecord(p *models.Project) *rec.Project {
	return &rec.Project{
		ID:              p.ID,
		CompanyID:       p.CompanyID,
		Name:            p.Name,
		Description:     p.Description,
		Address:         p.Address,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		GeofenceRadiusM: p.GeofenceRadiusM,
		Completed:       p.Completed,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func projectFromRecord(r *rec.Project) *models.Project {
	return &models.Project{
		ID:              r.ID,
		CompanyID:       r.CompanyID,
		Name:            r.Name,
		Description:     r.Description,
		Address:         r.Address,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		GeofenceRadiusM: r.GeofenceRadiusM,
		Completed:       r.Completed,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func photoToRecord(p *models.Photo) *rec.Photo {
	return &rec.Photo{
		ID:           p.ID,
		CompanyID:    p.CompanyID,
		ProjectID:    p.ProjectID,
		UploadedBy:   p.UploadedBy,
		Caption:      p.Caption,
		ContentType:  p.ContentType,
		Width:        p.Width,
		Height:       p.Height,
		SizeBytes:    p.SizeBytes,
		Quality:      p.Quality,
		StorageKey:   p.StorageKey,
		ThumbnailKey: p.ThumbnailKey,
		TakenAt:      p.TakenAt,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		ClientID:     optString(p.ClientID),
		CreatedAt:    p.CreatedAt,
	}
}

func photoFromRecord(r *rec.Photo) *models.Photo {
	return &models.Photo{
		ID:           r.ID,
		CompanyID:    r.CompanyID,
		ProjectID:    r.ProjectID,
		UploadedBy:   r.UploadedBy,
		Caption:      r.Caption,
		ContentType:  r.ContentType,
		Width:        r.Width,
		Height:       r.Height,
		SizeBytes:    r.SizeBytes,
		Quality:      r.Quality,
		StorageKey:   r.StorageKey,
		ThumbnailKey: r.ThumbnailKey,
		TakenAt:      r.TakenAt,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		ClientID:     derefString(r.ClientID),
		CreatedAt:    r.CreatedAt,
	}
}

func taskToRecord(t *models.Task) *rec.Task {
	return &rec.Task{
		ID:          t.ID,
		CompanyID:   t.CompanyID,
		ProjectID:   t.ProjectID,
		PhotoID:     t.PhotoID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		CompletedBy: t.CompletedBy,
		ClientID:    optString(t.ClientID),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func taskFromRecord(r *rec.Task) *models.Task {
	return &models.Task{
		ID:          r.ID,
		CompanyID:   r.CompanyID,
		ProjectID:   r.ProjectID,
		PhotoID:     r.PhotoID,
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		CreatedBy:   r.CreatedBy,
		Status:      models.TaskStatus(r.Status),
		DueDate:     r.DueDate,
		CompletedAt: r.CompletedAt,
		CompletedBy: r.CompletedBy,
		ClientID:    derefString(r.ClientID),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func contractorFromRecord(r *rec.Contractor) *models.Contractor {
	return &models.Contractor{
		ID:        r.ID,
		CompanyID: r.CompanyID,
		Name:      r.Name,
		Trade:     r.Trade,
		Email:     r.Email,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt,
	}
}

func timeEntryToRecord(t *models.TimeEntry) *rec.TimeEntry {
	return &rec.TimeEntry{
		ID:              t.ID,
		CompanyID:       t.CompanyID,
		UserID:          t.UserID,
		ProjectID:       t.ProjectID,
		Type:            string(t.Type),
		Timestamp:       t.Timestamp,
		Latitude:        t.Latitude,
		Longitude:       t.Longitude,
		Source:          string(t.Source),
		OutsideGeofence: t.OutsideGeofence,
		ClientID:        optString(t.ClientID),
		CreatedAt:       t.CreatedAt,
	}
}

func timeEntryFromRecord(r *rec.TimeEntry) *models.TimeEntry {
	return &models.TimeEntry{
		ID:              r.ID,
		CompanyID:       r.CompanyID,
		UserID:          r.UserID,
		ProjectID:       r.ProjectID,
		Type:            models.PunchType(r.Type),
		Timestamp:       r.Timestamp,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		Source:          models.PunchSource(r.Source),
		OutsideGeofence: r.OutsideGeofence,
		ClientID:        derefString(r.ClientID),
		CreatedAt:       r.CreatedAt,
	}
}

func activityToRecord(a *models.ActivityLog) (*rec.ActivityLog, error) {
	var meta datatypes.JSON
	if len(a.Metadata) > 0 {
		raw, err := json.Marshal(a.Metadata)
		if err != nil {
			return nil, err
		}
		meta = datatypes.JSON(raw)
	}
	return &rec.ActivityLog{
		ID:         a.ID,
		CompanyID:  a.CompanyID,
		ProjectID:  a.ProjectID,
		UserID:     a.UserID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Summary:    a.Summary,
		Metadata:   meta,
		CreatedAt:  a.CreatedAt,
	}, nil
}

func activityFromRecord(r *rec.ActivityLog) *models.ActivityLog {
	a := &models.ActivityLog{
		ID:         r.ID,
		CompanyID:  r.CompanyID,
		ProjectID:  r.ProjectID,
		UserID:     r.UserID,
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Summary:    r.Summary,
		CreatedAt:  r.CreatedAt,
	}
	if len(r.Metadata) > 0 {
		// Metadata is written by activityToRecord; a decode failure leaves it empty.
		_ = json.Unmarshal(r.Metadata, &a.Metadata)
	}
	return a
}

func notificationToRecord(n *models.Notification) *rec.Notification {
	return &rec.Notification{
		ID:         n.ID,
		CompanyID:  n.CompanyID,
		UserID:     n.UserID,
		Type:       n.Type,
		Title:      n.Title,
		Body:       n.Body,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		ReadAt:     n.ReadAt,
		CreatedAt:  n.CreatedAt,
	}
}

func notificationFromRecord(r *rec.Notification) *models.Notification {
	return &models.Notification{
		ID:         r.ID,
		CompanyID:  r.CompanyID,
		UserID:     r.UserID,
		Type:       r.Type,
		Title:      r.Title,
		Body:       r.Body,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		ReadAt:     r.ReadAt,
		CreatedAt:  r.CreatedAt,
	}
}
