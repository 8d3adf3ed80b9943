// Package controller implements the FieldSnaps service layer: tenant scoping,
// role and subscription checks, validation, and event production on top of
// the repository.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventProducer accepts domain events without blocking.
type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the storage the services need.
type Repository interface {
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, update *models.UserUpdate) error
	SetUserCompany(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID, role models.Role) error
	AttachUserToCompany(ctx context.Context, userID, companyID uuid.UUID, role models.Role) error
	ListCompanyUsers(ctx context.Context, companyID uuid.UUID) ([]*models.User, error)

	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetCompanyByInviteCode(ctx context.Context, code string) (*models.Company, error)
	GetCompanyByStripeCustomer(ctx context.Context, customerID string) (*models.Company, error)
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error
	CompanyExistsByName(ctx context.Context, name string) (bool, error)

	CreateContractor(ctx context.Context, contractor *models.Contractor) error
	ListContractors(ctx context.Context, companyID uuid.UUID) ([]*models.Contractor, error)
	DeleteContractor(ctx context.Context, companyID, id uuid.UUID) error

	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, companyID uuid.UUID, filter models.ProjectFilter) ([]*models.Project, error)
	UpdateProject(ctx context.Context, update *models.ProjectUpdate) error
	DeleteProject(ctx context.Context, id uuid.UUID) error

	CreatePhoto(ctx context.Context, photo *models.Photo) error
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	GetPhotoByClientID(ctx context.Context, companyID uuid.UUID, clientID string) (*models.Photo, error)
	ListPhotos(ctx context.Context, projectID uuid.UUID, page models.Page) ([]*models.Photo, error)
	UpdatePhotoCaption(ctx context.Context, id uuid.UUID, caption string) error
	DeletePhoto(ctx context.Context, id uuid.UUID) error

	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetTaskByClientID(ctx context.Context, companyID uuid.UUID, clientID string) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, update *models.TaskUpdate) error
	DeleteTask(ctx context.Context, id uuid.UUID) error

	CreateTimeEntry(ctx context.Context, entry *models.TimeEntry) error
	GetTimeEntryByClientID(ctx context.Context, companyID uuid.UUID, clientID string) (*models.TimeEntry, error)
	LastTimeEntry(ctx context.Context, userID uuid.UUID) (*models.TimeEntry, error)
	LastTimeEntryBefore(ctx context.Context, userID uuid.UUID, at time.Time) (*models.TimeEntry, error)
	ListTimeEntries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*models.TimeEntry, error)

	ListActivity(ctx context.Context, companyID uuid.UUID, projectID *uuid.UUID, cursor models.FeedCursor, limit int) ([]*models.ActivityLog, error)
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// Actor is the signed-in user a request runs as.
type Actor struct {
	UserID    uuid.UUID
	Email     string
	FullName  string
	CompanyID *uuid.UUID
	Role      models.Role
}

// Company returns the actor's company, or ErrForbidden when the user has not
// joined one yet.
func (a *Actor) Company() (uuid.UUID, error) {
	if a == nil || a.CompanyID == nil {
		return uuid.Nil, fmt.Errorf("%w: join or create a company first", e.ErrForbidden)
	}
	return *a.CompanyID, nil
}

// Owns reports whether a record of companyID is visible to the actor.
func (a *Actor) Owns(companyID uuid.UUID) bool {
	return a != nil && a.CompanyID != nil && *a.CompanyID == companyID
}

// base is shared by every service.
type base struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

func newBase(repo Repository, producer EventProducer, logger *zap.Logger, name string) base {
	return base{
		repo:     repo,
		producer: producer,
		logger:   logger.Named(name),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// scope fails with ErrForbidden when a record belongs to another company.
// Records of other tenants are reported as forbidden, not hidden.
func (b *base) scope(actor *Actor, companyID uuid.UUID) error {
	if !actor.Owns(companyID) {
		return fmt.Errorf("%w: record belongs to another company", e.ErrForbidden)
	}
	return nil
}

// writable loads the actor's company and checks the subscription allows
// changes right now.
func (b *base) writable(ctx context.Context, actor *Actor) (*models.Company, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	company, err := b.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	if !company.AllowsWrites(b.now()) {
		return nil, fmt.Errorf("%w: subscription is %s", e.ErrPaymentRequired, company.SubscriptionStatus)
	}
	return company, nil
}

func (b *base) requireManager(actor *Actor) error {
	if !actor.Role.CanManage() {
		return fmt.Errorf("%w: owner or admin role required", e.ErrForbidden)
	}
	return nil
}

func (b *base) emit(event events.Event) {
	if b.producer == nil {
		return
	}
	b.producer.Produce(event)
}

// wrap adds context to unexpected errors and passes domain errors through.
func wrap(op string, err error) error {
	for _, sentinel := range []error{e.ErrNotFound, e.ErrDuplicateName, e.ErrForbidden, e.ErrInvalidInput} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func validLength(field, value string, minLen, maxLen int) error {
	n := len([]rune(value))
	if n < minLen || n > maxLen {
		return fmt.Errorf("%w: %s must be %d to %d characters", e.ErrInvalidInput, field, minLen, maxLen)
	}
	return nil
}

func validCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return fmt.Errorf("%w: latitude and longitude go together", e.ErrInvalidInput)
	}
	if lat != nil && (*lat < -90 || *lat > 90 || *lng < -180 || *lng > 180) {
		return fmt.Errorf("%w: coordinates out of range", e.ErrInvalidInput)
	}
	return nil
}
