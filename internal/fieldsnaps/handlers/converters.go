package handlers

import (
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/controller"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
)

type userResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	FullName  string      `json:"fullName"`
	CompanyID *uuid.UUID  `json:"companyId"`
	Role      models.Role `json:"role,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

func toUser(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CompanyID: u.CompanyID,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func toUsers(users []*models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

type companyResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	Name               string                    `json:"name"`
	OwnerID            uuid.UUID                 `json:"ownerId"`
	InviteCode         string                    `json:"inviteCode,omitempty"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscriptionStatus"`
	TrialEndsAt        time.Time                 `json:"trialEndsAt"`
	CurrentPeriodEnd   *time.Time                `json:"currentPeriodEnd,omitempty"`
	CreatedAt          time.Time                 `json:"createdAt"`
}

// toCompany hides the invite code from plain members.
func toCompany(c *models.Company, viewer *controller.Actor) companyResponse {
	out := companyResponse{
		ID:                 c.ID,
		Name:               c.Name,
		OwnerID:            c.OwnerID,
		SubscriptionStatus: c.SubscriptionStatus,
		TrialEndsAt:        c.TrialEndsAt,
		CurrentPeriodEnd:   c.CurrentPeriodEnd,
		CreatedAt:          c.CreatedAt,
	}
	if viewer != nil && viewer.Role.CanManage() {
		out.InviteCode = c.InviteCode
	}
	return out
}

type profileResponse struct {
	User    userResponse     `json:"user"`
	Company *companyResponse `json:"company"`
}

func toProfile(p *controller.Profile, viewer *controller.Actor) profileResponse {
	out := profileResponse{User: toUser(p.User)}
	if p.Company != nil {
		company := toCompany(p.Company, viewer)
		out.Company = &company
	}
	return out
}

type contractorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Trade     string    `json:"trade"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toContractors(in []*models.Contractor) []contractorResponse {
	out := make([]contractorResponse, 0, len(in))
	for _, c := range in {
		out = append(out, toContractor(c))
	}
	return out
}

func toContractor(c *models.Contractor) contractorResponse {
	return contractorResponse{ID: c.ID, Name: c.Name, Trade: c.Trade, Email: c.Email, Phone: c.Phone, CreatedAt: c.CreatedAt}
}

type projectRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Address         *string  `json:"address"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	GeofenceRadiusM *int     `json:"geofenceRadius"`
	Completed       *bool    `json:"completed"`
}

func (p projectRequest) toModel() *models.Project {
	project := &models.Project{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
	if p.Name != nil {
		project.Name = *p.Name
	}
	if p.Description != nil {
		project.Description = *p.Description
	}
	if p.Address != nil {
		project.Address = *p.Address
	}
	if p.GeofenceRadiusM != nil {
		project.GeofenceRadiusM = *p.GeofenceRadiusM
	}
	return project
}

func (p projectRequest) toUpdate(id uuid.UUID) *models.ProjectUpdate {
	return &models.ProjectUpdate{
		ID:              id,
		Name:            p.Name,
		Description:     p.Description,
		Address:         p.Address,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		GeofenceRadiusM: p.GeofenceRadiusM,
		Completed:       p.Completed,
	}
}

type projectResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Address         string    `json:"address"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	GeofenceRadiusM int       `json:"geofenceRadius"`
	Completed       bool      `json:"completed"`
	CreatedBy       uuid.UUID `json:"createdBy"`
	PhotoCount      int64     `json:"photoCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toProject(p *models.Project) projectResponse {
	return projectResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Address:         p.Address,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		GeofenceRadiusM: p.GeofenceRadiusM,
		Completed:       p.Completed,
		CreatedBy:       p.CreatedBy,
		PhotoCount:      p.PhotoCount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func toProjects(in []*models.Project) []projectResponse {
	out := make([]projectResponse, 0, len(in))
	for _, p := range in {
		out = append(out, toProject(p))
	}
	return out
}

type photoResponse struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"projectId"`
	UploadedBy   uuid.UUID `json:"uploadedBy"`
	Caption      string    `json:"caption"`
	ContentType  string    `json:"contentType"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	SizeBytes    int64     `json:"sizeBytes"`
	Quality      float64   `json:"quality"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	TakenAt      time.Time `json:"takenAt"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	ClientID     string    `json:"clientId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toPhoto(p *models.Photo) photoResponse {
	base := "/api/photos/" + p.ID.String()
	return photoResponse{
		ID:           p.ID,
		ProjectID:    p.ProjectID,
		UploadedBy:   p.UploadedBy,
		Caption:      p.Caption,
		ContentType:  p.ContentType,
		Width:        p.Width,
		Height:       p.Height,
		SizeBytes:    p.SizeBytes,
		Quality:      p.Quality,
		URL:          base + "/content",
		ThumbnailURL: base + "/thumbnail",
		TakenAt:      p.TakenAt,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		ClientID:     p.ClientID,
		CreatedAt:    p.CreatedAt,
	}
}

func toPhotos(in []*models.Photo) []photoResponse {
	out := make([]photoResponse, 0, len(in))
	for _, p := range in {
		out = append(out, toPhoto(p))
	}
	return out
}

type taskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ProjectID   *uuid.UUID `json:"projectId"`
	PhotoID     *uuid.UUID `json:"photoId"`
	AssignedTo  *uuid.UUID `json:"assignedTo"`
	Unassign    bool       `json:"unassign"`
	DueDate     *time.Time `json:"dueDate"`
	Status      *string    `json:"status"`
	ClientID    string     `json:"clientId"`
}

func (t taskRequest) toInput() controller.TaskInput {
	in := controller.TaskInput{
		ProjectID:  t.ProjectID,
		PhotoID:    t.PhotoID,
		AssignedTo: t.AssignedTo,
		DueDate:    t.DueDate,
		ClientID:   t.ClientID,
	}
	if t.Title != nil {
		in.Title = *t.Title
	}
	if t.Description != nil {
		in.Description = *t.Description
	}
	return in
}

func (t taskRequest) toUpdate(id uuid.UUID) *models.TaskUpdate {
	update := &models.TaskUpdate{
		ID:            id,
		Title:         t.Title,
		Description:   t.Description,
		ProjectID:     t.ProjectID,
		AssignedTo:    t.AssignedTo,
		ClearAssignee: t.Unassign,
		DueDate:       t.DueDate,
	}
	if t.Status != nil {
		status := models.TaskStatus(*t.Status)
		update.Status = &status
	}
	return update
}

type taskResponse struct {
	ID          uuid.UUID         `json:"id"`
	ProjectID   *uuid.UUID        `json:"projectId"`
	PhotoID     *uuid.UUID        `json:"photoId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	AssignedTo  *uuid.UUID        `json:"assignedTo"`
	CreatedBy   uuid.UUID         `json:"createdBy"`
	Status      models.TaskStatus `json:"status"`
	DueDate     *time.Time        `json:"dueDate"`
	CompletedAt *time.Time        `json:"completedAt"`
	CompletedBy *uuid.UUID        `json:"completedBy"`
	ClientID    string            `json:"clientId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func toTask(t *models.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		PhotoID:     t.PhotoID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		CompletedBy: t.CompletedBy,
		ClientID:    t.ClientID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTasks(in []*models.Task) []taskResponse {
	out := make([]taskResponse, 0, len(in))
	for _, t := range in {
		out = append(out, toTask(t))
	}
	return out
}

type punchRequest struct {
	ProjectID *uuid.UUID `json:"projectId"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	At        *time.Time `json:"timestamp"`
	ClientID  string     `json:"clientId"`
}

func (p punchRequest) toModel() models.Punch {
	return models.Punch{
		ProjectID: p.ProjectID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		At:        p.At,
		ClientID:  p.ClientID,
	}
}

type geofenceEventRequest struct {
	punchRequest
	Identifier string `json:"identifier"`
	Action     string `json:"action"`
}

type timeEntryResponse struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"userId"`
	ProjectID       *uuid.UUID         `json:"projectId"`
	Type            models.PunchType   `json:"type"`
	Timestamp       time.Time          `json:"timestamp"`
	Latitude        *float64           `json:"latitude"`
	Longitude       *float64           `json:"longitude"`
	Source          models.PunchSource `json:"source"`
	OutsideGeofence bool               `json:"outsideGeofence"`
	ClientID        string             `json:"clientId,omitempty"`
}

func toTimeEntry(t *models.TimeEntry) *timeEntryResponse {
	if t == nil {
		return nil
	}
	return &timeEntryResponse{
		ID:              t.ID,
		UserID:          t.UserID,
		ProjectID:       t.ProjectID,
		Type:            t.Type,
		Timestamp:       t.Timestamp,
		Latitude:        t.Latitude,
		Longitude:       t.Longitude,
		Source:          t.Source,
		OutsideGeofence: t.OutsideGeofence,
		ClientID:        t.ClientID,
	}
}

type clockStatusResponse struct {
	State     models.ClockState  `json:"state"`
	ProjectID *uuid.UUID         `json:"projectId"`
	Since     *time.Time         `json:"since"`
	LastEntry *timeEntryResponse `json:"lastEntry"`
}

func toClockStatus(s *models.ClockStatus) clockStatusResponse {
	return clockStatusResponse{
		State:     s.State,
		ProjectID: s.ProjectID,
		Since:     s.Since,
		LastEntry: toTimeEntry(s.LastEntry),
	}
}

type timesheetResponse struct {
	From          time.Time            `json:"from"`
	To            time.Time            `json:"to"`
	Entries       []*timeEntryResponse `json:"entries"`
	WorkedMinutes float64              `json:"workedMinutes"`
	BreakMinutes  float64              `json:"breakMinutes"`
}

func toTimesheet(t *models.Timesheet) timesheetResponse {
	out := timesheetResponse{
		From:          t.From,
		To:            t.To,
		Entries:       make([]*timeEntryResponse, 0, len(t.Entries)),
		WorkedMinutes: t.Worked.Minutes(),
		BreakMinutes:  t.Breaks.Minutes(),
	}
	for _, entry := range t.Entries {
		out.Entries = append(out.Entries, toTimeEntry(entry))
	}
	return out
}

type notificationResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	EntityType string     `json:"entityType"`
	EntityID   uuid.UUID  `json:"entityId"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"readAt"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toNotifications(in []*models.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(in))
	for _, n := range in {
		out = append(out, notificationResponse{
			ID:         n.ID,
			Type:       n.Type,
			Title:      n.Title,
			Body:       n.Body,
			EntityType: n.EntityType,
			EntityID:   n.EntityID,
			Read:       n.ReadAt != nil,
			ReadAt:     n.ReadAt,
			CreatedAt:  n.CreatedAt,
		})
	}
	return out
}

type activityResponse struct {
	ID         uuid.UUID      `json:"id"`
	ProjectID  *uuid.UUID     `json:"projectId"`
	UserID     uuid.UUID      `json:"userId"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   uuid.UUID      `json:"entityId"`
	Summary    string         `json:"summary"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func toActivity(in []*models.ActivityLog) []activityResponse {
	out := make([]activityResponse, 0, len(in))
	for _, a := range in {
		out = append(out, activityResponse{
			ID:         a.ID,
			ProjectID:  a.ProjectID,
			UserID:     a.UserID,
			Action:     a.Action,
			EntityType: a.EntityType,
			EntityID:   a.EntityID,
			Summary:    a.Summary,
			Metadata:   a.Metadata,
			CreatedAt:  a.CreatedAt,
		})
	}
	return out
}
