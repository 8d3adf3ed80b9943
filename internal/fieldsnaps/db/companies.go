package db

import (
	"context"
	"errors"
	"fmt"

	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	rec "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/models"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// UpsertUser stores the user on first sight and keeps the email in sync with
// the auth provider afterwards. Company and role are never touched here.
// Concurrent first sightings of the same user both succeed.
func (r *Repository) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	record := userToRecord(user)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 1 {
		return userFromRecord(record), nil
	}

	var existing rec.User
	if err := r.db.WithContext(ctx).First(&existing, "id = ?", user.ID).Error; err != nil {
		return nil, translate(err)
	}

	updates := map[string]any{}
	if user.Email != "" && user.Email != existing.Email {
		updates["email"] = user.Email
	}
	if existing.FullName == "" && user.FullName != "" {
		updates["full_name"] = user.FullName
	}
	if len(updates) > 0 {
		result := r.db.WithContext(ctx).Model(&rec.User{}).Where("id = ?", existing.ID).Updates(updates)
		if result.Error != nil {
			return nil, translate(result.Error)
		}
		return r.GetUser(ctx, existing.ID)
	}
	return userFromRecord(&existing), nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user rec.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return userFromRecord(&user), nil
}

func (r *Repository) UpdateUser(ctx context.Context, update *models.UserUpdate) error {
	updates := map[string]any{}
	if update.FullName != nil {
		updates["full_name"] = *update.FullName
	}
	if update.Role != nil {
		updates["role"] = string(*update.Role)
	}
	if len(updates) == 0 {
		_, err := r.GetUser(ctx, update.ID)
		return err
	}
	result := r.db.WithContext(ctx).Model(&rec.User{}).Where("id = ?", update.ID).Updates(updates)
	return updateResult(result)
}

// SetUserCompany attaches the user to a company with a role, or detaches the
// user when companyID is nil.
func (r *Repository) SetUserCompany(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID, role models.Role) error {
	updates := map[string]any{"company_id": nil, "role": ""}
	if companyID != nil {
		updates["company_id"] = *companyID
		updates["role"] = string(role)
	}
	result := r.db.WithContext(ctx).Model(&rec.User{}).Where("id = ?", userID).Updates(updates)
	return updateResult(result)
}

// AttachUserToCompany gives a user without a company its first membership.
// It returns ErrConflict when the user already belongs to a company, which
// guards against requests that checked membership on a stale read.
func (r *Repository) AttachUserToCompany(ctx context.Context, userID, companyID uuid.UUID, role models.Role) error {
	result := r.db.WithContext(ctx).Model(&rec.User{}).
		Where("id = ? AND company_id IS NULL", userID).
		Updates(map[string]any{"company_id": companyID, "role": string(role)})
	err := updateResult(result)
	if !errors.Is(err, e.ErrNotFound) {
		return err
	}
	if _, err := r.GetUser(ctx, userID); err != nil {
		return err
	}
	return fmt.Errorf("%w: user already belongs to a company", e.ErrConflict)
}

func (r *Repository) ListCompanyUsers(ctx context.Context, companyID uuid.UUID) ([]*models.User, error) {
	var records []rec.User
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, translate(err)
	}
	users := make([]*models.User, 0, len(records))
	for i := range records {
		users = append(users, userFromRecord(&records[i]))
	}
	return users, nil
}

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	record := companyToRecord(company)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return translate(err)
	}
	company.CreatedAt = record.CreatedAt
	company.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company rec.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return companyFromRecord(&company), nil
}

func (r *Repository) GetCompanyByInviteCode(ctx context.Context, code string) (*models.Company, error) {
	var company rec.Company
	if err := r.db.WithContext(ctx).First(&company, "invite_code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return companyFromRecord(&company), nil
}

func (r *Repository) GetCompanyByStripeCustomer(ctx context.Context, customerID string) (*models.Company, error) {
	var company rec.Company
	if err := r.db.WithContext(ctx).First(&company, "stripe_customer_id = ?", customerID).Error; err != nil {
		return nil, translate(err)
	}
	return companyFromRecord(&company), nil
}

func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error {
	updates := map[string]any{}
	if update.Name != nil {
		updates["name"] = *update.Name
	}
	if update.InviteCode != nil {
		updates["invite_code"] = *update.InviteCode
	}
	if update.SubscriptionStatus != nil {
		updates["subscription_status"] = string(*update.SubscriptionStatus)
	}
	if update.CurrentPeriodEnd != nil {
		updates["current_period_end"] = *update.CurrentPeriodEnd
	}
	if update.StripeCustomerID != nil {
		updates["stripe_customer_id"] = *update.StripeCustomerID
	}
	if update.StripeSubscriptionID != nil {
		updates["stripe_subscription_id"] = *update.StripeSubscriptionID
	}
	if len(updates) == 0 {
		_, err := r.GetCompany(ctx, update.ID)
		return err
	}
	result := r.db.WithContext(ctx).Model(&rec.Company{}).Where("id = ?", update.ID).Updates(updates)
	return updateResult(result)
}

func (r *Repository) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&rec.Company{}).
		Where("LOWER(name) = LOWER(?)", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) CreateContractor(ctx context.Context, contractor *models.Contractor) error {
	record := &rec.Contractor{
		ID:        contractor.ID,
		CompanyID: contractor.CompanyID,
		Name:      contractor.Name,
		Trade:     contractor.Trade,
		Email:     contractor.Email,
		Phone:     contractor.Phone,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return translate(err)
	}
	contractor.CreatedAt = record.CreatedAt
	return nil
}

func (r *Repository) ListContractors(ctx context.Context, companyID uuid.UUID) ([]*models.Contractor, error) {
	var records []rec.Contractor
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name ASC").
		Find(&records).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]*models.Contractor, 0, len(records))
	for i := range records {
		out = append(out, contractorFromRecord(&records[i]))
	}
	return out, nil
}

func (r *Repository) DeleteContractor(ctx context.Context, companyID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rec.Contractor{}, "id = ? AND company_id = ?", id, companyID)
	return updateResult(result)
}
