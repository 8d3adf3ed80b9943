package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const inviteCodeLength = 8

// CompanyService manages the tenant: the company record, its members and
// its contractor list.
type CompanyService struct {
	base
	trialDays int
}

func NewCompanyService(repo Repository, trialDays int, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		base:      newBase(repo, nil, logger, "company_service"),
		trialDays: trialDays,
	}
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength])
}

// CreateCompany starts a trial company owned by the actor.
func (s *CompanyService) CreateCompany(ctx context.Context, actor *Actor, name string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if err := validLength("name", name, 2, 100); err != nil {
		return nil, err
	}
	if actor.CompanyID != nil {
		return nil, fmt.Errorf("%w: user already belongs to a company", e.ErrConflict)
	}

	exists, err := s.repo.CompanyExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check name existence: %w", err)
	}
	if exists {
		return nil, e.ErrDuplicateName
	}

	now := s.now()
	company := &models.Company{
		ID:                 uuid.New(),
		Name:               name,
		OwnerID:            actor.UserID,
		InviteCode:         newInviteCode(),
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndsAt:        now.Add(time.Duration(s.trialDays) * 24 * time.Hour),
	}
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.CreateCompany(ctx, company); err != nil {
			return err
		}
		return tx.AttachUserToCompany(ctx, actor.UserID, company.ID, models.RoleOwner)
	})
	if err != nil {
		return nil, wrap("create company", err)
	}
	actor.CompanyID, actor.Role = &company.ID, models.RoleOwner

	s.logger.Info("company created",
		zap.String("company_id", company.ID.String()),
		zap.String("owner_id", actor.UserID.String()),
		zap.Time("trial_ends_at", company.TrialEndsAt),
	)
	return company, nil
}

func (s *CompanyService) GetCompany(ctx context.Context, actor *Actor) (*models.Company, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, wrap("get company", err)
	}
	return company, nil
}

// UpdateCompany renames the company. Billing fields change only through
// BillingService.
func (s *CompanyService) UpdateCompany(ctx context.Context, actor *Actor, name string) (*models.Company, error) {
	if err := s.requireManager(actor); err != nil {
		return nil, err
	}
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validLength("name", name, 2, 100); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCompany(ctx, &models.CompanyUpdate{ID: companyID, Name: &name}); err != nil {
		return nil, wrap("update company", err)
	}
	return s.repo.GetCompany(ctx, companyID)
}

// JoinCompany attaches the actor to the company with the invite code as a
// member.
func (s *CompanyService) JoinCompany(ctx context.Context, actor *Actor, inviteCode string) (*models.Company, error) {
	if actor.CompanyID != nil {
		return nil, fmt.Errorf("%w: user already belongs to a company", e.ErrConflict)
	}
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, fmt.Errorf("%w: invite code required", e.ErrInvalidInput)
	}
	company, err := s.repo.GetCompanyByInviteCode(ctx, code)
	if errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown invite code", e.ErrNotFound)
	}
	if err != nil {
		return nil, wrap("find company", err)
	}
	if err := s.repo.AttachUserToCompany(ctx, actor.UserID, company.ID, models.RoleMember); err != nil {
		return nil, wrap("join company", err)
	}
	actor.CompanyID, actor.Role = &company.ID, models.RoleMember

	s.logger.Info("user joined company",
		zap.String("company_id", company.ID.String()),
		zap.String("user_id", actor.UserID.String()),
	)
	return company, nil
}

// RotateInviteCode invalidates the old code.
func (s *CompanyService) RotateInviteCode(ctx context.Context, actor *Actor) (*models.Company, error) {
	if actor.Role != models.RoleOwner {
		return nil, fmt.Errorf("%w: only the owner can rotate the invite code", e.ErrForbidden)
	}
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	code := newInviteCode()
	if err := s.repo.UpdateCompany(ctx, &models.CompanyUpdate{ID: companyID, InviteCode: &code}); err != nil {
		return nil, wrap("rotate invite code", err)
	}
	return s.repo.GetCompany(ctx, companyID)
}

func (s *CompanyService) ListMembers(ctx context.Context, actor *Actor) ([]*models.User, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListCompanyUsers(ctx, companyID)
	if err != nil {
		return nil, wrap("list members", err)
	}
	return users, nil
}

func (s *CompanyService) member(ctx context.Context, actor *Actor, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, wrap("get member", err)
	}
	if user.CompanyID == nil || !actor.Owns(*user.CompanyID) {
		return nil, fmt.Errorf("%w: user is not a member", e.ErrNotFound)
	}
	return user, nil
}

// UpdateMemberRole is owner only; ownership itself cannot be handed over
// this way.
func (s *CompanyService) UpdateMemberRole(ctx context.Context, actor *Actor, userID uuid.UUID, role models.Role) (*models.User, error) {
	if actor.Role != models.RoleOwner {
		return nil, fmt.Errorf("%w: only the owner can change roles", e.ErrForbidden)
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, fmt.Errorf("%w: role must be admin or member", e.ErrInvalidInput)
	}
	user, err := s.member(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleOwner {
		return nil, fmt.Errorf("%w: the owner's role cannot change", e.ErrConflict)
	}
	if err := s.repo.UpdateUser(ctx, &models.UserUpdate{ID: userID, Role: &role}); err != nil {
		return nil, wrap("update role", err)
	}
	return s.repo.GetUser(ctx, userID)
}

// RemoveMember detaches a user from the company. The owner cannot be removed.
func (s *CompanyService) RemoveMember(ctx context.Context, actor *Actor, userID uuid.UUID) error {
	if err := s.requireManager(actor); err != nil {
		return err
	}
	user, err := s.member(ctx, actor, userID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleOwner {
		return fmt.Errorf("%w: the owner cannot be removed", e.ErrConflict)
	}
	if user.Role == models.RoleAdmin && actor.Role != models.RoleOwner {
		return fmt.Errorf("%w: only the owner can remove an admin", e.ErrForbidden)
	}
	if err := s.repo.SetUserCompany(ctx, userID, nil, ""); err != nil {
		return wrap("remove member", err)
	}
	s.logger.Info("member removed",
		zap.String("company_id", user.CompanyID.String()),
		zap.String("user_id", userID.String()),
	)
	return nil
}

// ContractorInput is a new contractor.
type ContractorInput struct {
	Name  string
	Trade string
	Email string
	Phone string
}

func (s *CompanyService) CreateContractor(ctx context.Context, actor *Actor, in ContractorInput) (*models.Contractor, error) {
	company, err := s.writable(ctx, actor)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validLength("name", in.Name, 1, 120); err != nil {
		return nil, err
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: invalid email", e.ErrInvalidInput)
	}
	contractor := &models.Contractor{
		ID:        uuid.New(),
		CompanyID: company.ID,
		Name:      in.Name,
		Trade:     strings.TrimSpace(in.Trade),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
	}
	if err := s.repo.CreateContractor(ctx, contractor); err != nil {
		return nil, wrap("create contractor", err)
	}
	return contractor, nil
}

func (s *CompanyService) ListContractors(ctx context.Context, actor *Actor) ([]*models.Contractor, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, err
	}
	out, err := s.repo.ListContractors(ctx, companyID)
	if err != nil {
		return nil, wrap("list contractors", err)
	}
	return out, nil
}

func (s *CompanyService) DeleteContractor(ctx context.Context, actor *Actor, id uuid.UUID) error {
	company, err := s.writable(ctx, actor)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteContractor(ctx, company.ID, id); err != nil {
		return wrap("delete contractor", err)
	}
	return nil
}
