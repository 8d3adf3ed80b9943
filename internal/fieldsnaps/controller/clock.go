package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/geofence"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxTimesheetWindow = 62 * 24 * time.Hour
	maxClockSkew       = 5 * time.Minute
)

// GeofenceAction is what the device reported for a fence.
type GeofenceAction string

const (
	GeofenceEnter GeofenceAction = "enter"
	GeofenceExit  GeofenceAction = "exit"
)

// ClockService runs the time clock state machine:
//
//	clocked_out -clock_in-> clocked_in -break_start-> on_break -break_end-> clocked_in -clock_out-> clocked_out
//
// Clocking out while on break records the break end first.
type ClockService struct {
	base
}

func NewClockService(repo Repository, producer EventProducer, logger *zap.Logger) *ClockService {
	return &ClockService{base: newBase(repo, producer, logger, "clock_service")}
}

func (s *ClockService) Status(ctx context.Context, actor *Actor) (*models.ClockStatus, error) {
	if _, err := actor.Company(); err != nil {
		return nil, err
	}
	last, err := s.repo.LastTimeEntry(ctx, actor.UserID)
	if errors.Is(err, e.ErrNotFound) {
		return &models.ClockStatus{State: models.ClockedOut}, nil
	}
	if err != nil {
		return nil, wrap("load clock status", err)
	}
	status := &models.ClockStatus{
		State:     models.StateAfter(last.Type),
		LastEntry: last,
	}
	if status.State != models.ClockedOut {
		status.ProjectID = last.ProjectID
		since := last.Timestamp
		status.Since = &since
	}
	return status, nil
}

func allowed(state models.ClockState, t models.PunchType) bool {
	switch t {
	case models.PunchClockIn:
		return state == models.ClockedOut
	case models.PunchBreakStart:
		return state == models.ClockedIn
	case models.PunchBreakEnd:
		return state == models.OnBreak
	case models.PunchClockOut:
		return state == models.ClockedIn || state == models.OnBreak
	default:
		return false
	}
}

// Punch records a manual clock entry.
func (s *ClockService) Punch(ctx context.Context, actor *Actor, t models.PunchType, punch models.Punch) (*models.TimeEntry, error) {
	return s.punch(ctx, actor, t, models.SourceManual, punch)
}

func (s *ClockService) punch(ctx context.Context, actor *Actor, t models.PunchType, source models.PunchSource, punch models.Punch) (*models.TimeEntry, error) {
	company, err := s.writable(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := validCoordinates(punch.Latitude, punch.Longitude); err != nil {
		return nil, err
	}
	if punch.ClientID != "" {
		existing, err := s.repo.GetTimeEntryByClientID(ctx, company.ID, punch.ClientID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, e.ErrNotFound) {
			return nil, wrap("look up time entry", err)
		}
	}

	status, err := s.Status(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !allowed(status.State, t) {
		return nil, fmt.Errorf("%w: cannot %s while %s", e.ErrInvalidTransition, t, status.State)
	}

	at := s.now()
	if punch.At != nil {
		at = punch.At.UTC()
		if at.After(s.now().Add(maxClockSkew)) {
			return nil, fmt.Errorf("%w: punch is in the future", e.ErrInvalidInput)
		}
	}
	if status.LastEntry != nil && at.Before(status.LastEntry.Timestamp) {
		return nil, fmt.Errorf("%w: punch precedes the previous entry", e.ErrInvalidInput)
	}

	projectID := punch.ProjectID
	if projectID == nil && t != models.PunchClockIn {
		projectID = status.ProjectID
	}
	var project *models.Project
	if projectID != nil {
		project, err = s.repo.GetProject(ctx, *projectID)
		if err != nil {
			return nil, wrap("get project", err)
		}
		if err := s.scope(actor, project.CompanyID); err != nil {
			return nil, err
		}
	}

	entry := &models.TimeEntry{
		ID:        uuid.New(),
		CompanyID: company.ID,
		UserID:    actor.UserID,
		ProjectID: projectID,
		Type:      t,
		Timestamp: at,
		Latitude:  punch.Latitude,
		Longitude: punch.Longitude,
		Source:    source,
		ClientID:  punch.ClientID,
	}
	entry.OutsideGeofence = outsideFence(project, punch)

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if t == models.PunchClockOut && status.State == models.OnBreak {
			// Same timestamp as the clock out; creation order breaks the tie.
			breakEnd := *entry
			breakEnd.ID = uuid.New()
			breakEnd.Type = models.PunchBreakEnd
			breakEnd.ClientID = ""
			breakEnd.CreatedAt = s.now()
			entry.CreatedAt = breakEnd.CreatedAt.Add(time.Millisecond)
			if err := tx.CreateTimeEntry(ctx, &breakEnd); err != nil {
				return err
			}
		}
		return tx.CreateTimeEntry(ctx, entry)
	})
	if err != nil {
		return nil, wrap("record time entry", err)
	}

	s.logger.Info("clock punch",
		zap.String("user_id", actor.UserID.String()),
		zap.String("type", string(t)),
		zap.String("source", string(source)),
		zap.Bool("outside_geofence", entry.OutsideGeofence),
	)
	switch t {
	case models.PunchClockIn:
		s.emit(events.New(events.ClockIn, company.ID, actor.UserID, "time_entry", entry.ID,
			clockSummary("clocked in", project)).WithProject(projectID))
	case models.PunchClockOut:
		s.emit(events.New(events.ClockOut, company.ID, actor.UserID, "time_entry", entry.ID,
			clockSummary("clocked out", project)).WithProject(projectID))
	}
	return entry, nil
}

func clockSummary(verb string, project *models.Project) string {
	if project == nil {
		return verb
	}
	return fmt.Sprintf("%s at %s", verb, project.Name)
}

func outsideFence(project *models.Project, punch models.Punch) bool {
	if project == nil || punch.Latitude == nil || punch.Longitude == nil {
		return false
	}
	fence, ok := geofence.ForProject(project)
	if !ok {
		return false
	}
	return !fence.Contains(geofence.Point{Latitude: *punch.Latitude, Longitude: *punch.Longitude})
}

// HandleGeofenceEvent applies a fence crossing reported by the device. It
// returns a nil entry when the crossing changes nothing.
func (s *ClockService) HandleGeofenceEvent(ctx context.Context, actor *Actor, projectID uuid.UUID, action GeofenceAction, punch models.Punch) (*models.TimeEntry, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, wrap("get project", err)
	}
	if err := s.scope(actor, project.CompanyID); err != nil {
		return nil, err
	}
	status, err := s.Status(ctx, actor)
	if err != nil {
		return nil, err
	}
	punch.ProjectID = &projectID

	switch action {
	case GeofenceEnter:
		if status.State != models.ClockedOut {
			return nil, nil
		}
		return s.punch(ctx, actor, models.PunchClockIn, models.SourceGeofence, punch)
	case GeofenceExit:
		if status.State == models.ClockedOut || status.ProjectID == nil || *status.ProjectID != projectID {
			return nil, nil
		}
		return s.punch(ctx, actor, models.PunchClockOut, models.SourceGeofence, punch)
	default:
		return nil, fmt.Errorf("%w: geofence action must be enter or exit", e.ErrInvalidInput)
	}
}

// Timesheet lists the actor's entries in [from, to) with worked and break
// totals. Open segments run to the end of the window or now, whichever is
// earlier.
func (s *ClockService) Timesheet(ctx context.Context, actor *Actor, from, to time.Time) (*models.Timesheet, error) {
	if _, err := actor.Company(); err != nil {
		return nil, err
	}
	from, to = from.UTC(), to.UTC()
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: from must be before to", e.ErrInvalidInput)
	}
	if to.Sub(from) > maxTimesheetWindow {
		return nil, fmt.Errorf("%w: window longer than %d days", e.ErrInvalidInput, int(maxTimesheetWindow.Hours()/24))
	}
	start := models.ClockedOut
	prior, err := s.repo.LastTimeEntryBefore(ctx, actor.UserID, from)
	switch {
	case err == nil:
		start = models.StateAfter(prior.Type)
	case !errors.Is(err, e.ErrNotFound):
		return nil, wrap("load clock state", err)
	}
	entries, err := s.repo.ListTimeEntries(ctx, actor.UserID, from, to)
	if err != nil {
		return nil, wrap("list time entries", err)
	}

	end := to
	if now := s.now(); now.Before(end) {
		end = now
	}
	worked, breaks := summarize(start, entries, from, end)
	return &models.Timesheet{From: from, To: to, Entries: entries, Worked: worked, Breaks: breaks}, nil
}

// summarize splits the window into worked and break time, starting in state
// at from.
func summarize(state models.ClockState, entries []*models.TimeEntry, from, end time.Time) (worked, breaks time.Duration) {
	add := func(until, since time.Time) {
		if !until.After(since) {
			return
		}
		switch state {
		case models.ClockedIn:
			worked += until.Sub(since)
		case models.OnBreak:
			breaks += until.Sub(since)
		}
	}

	since := from
	for _, entry := range entries {
		add(entry.Timestamp, since)
		state = models.StateAfter(entry.Type)
		since = entry.Timestamp
	}
	add(end, since)
	return worked, breaks
}

// GeofenceConfig returns the tracking preset for mode ("" is balanced).
func (s *ClockService) GeofenceConfig(mode string) (geofence.Config, error) {
	cfg, err := geofence.Preset(geofence.Mode(mode))
	if err != nil {
		return geofence.Config{}, fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	return cfg, nil
}

// Geofences lists the fences the device should register, nearest first when
// origin is known.
func (s *ClockService) Geofences(ctx context.Context, actor *Actor, origin *geofence.Point) ([]geofence.Fence, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	projects, err := s.repo.ListProjects(ctx, companyID, models.ProjectFilter{})
	if err != nil {
		return nil, wrap("list projects", err)
	}
	return geofence.ForProjects(projects, origin), nil
}
