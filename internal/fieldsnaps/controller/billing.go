package controller

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/billing"
	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"go.uber.org/zap"
)

// BillingGateway is the payment provider.
type BillingGateway interface {
	CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (*billing.Update, error)
}

type BillingService struct {
	base
	gateway BillingGateway
}

// NewBillingService accepts a nil gateway; checkout, portal and webhooks then
// fail with ErrConflict.
func NewBillingService(repo Repository, gateway BillingGateway, producer EventProducer, logger *zap.Logger) *BillingService {
	return &BillingService{
		base:    newBase(repo, producer, logger, "billing_service"),
		gateway: gateway,
	}
}

var errBillingDisabled = fmt.Errorf("%w: billing is not configured", e.ErrConflict)

// Subscription returns the company and whether it may write right now.
func (s *BillingService) Subscription(ctx context.Context, actor *Actor) (*models.Company, bool, error) {
	companyID, err := actor.Company()
	if err != nil {
		return nil, false, err
	}
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return nil, false, wrap("get company", err)
	}
	return company, company.AllowsWrites(s.now()), nil
}

func validURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http" && u.Scheme != "capacitor") {
		return fmt.Errorf("%w: %s must be an absolute URL", e.ErrInvalidInput, field)
	}
	return nil
}

func (s *BillingService) CreateCheckoutSession(ctx context.Context, actor *Actor, successURL, cancelURL string) (string, error) {
	if s.gateway == nil {
		return "", errBillingDisabled
	}
	if err := s.requireManager(actor); err != nil {
		return "", err
	}
	if err := validURL("success URL", successURL); err != nil {
		return "", err
	}
	if err := validURL("cancel URL", cancelURL); err != nil {
		return "", err
	}
	company, _, err := s.Subscription(ctx, actor)
	if err != nil {
		return "", err
	}
	if company.SubscriptionStatus == models.SubscriptionActive {
		return "", fmt.Errorf("%w: subscription already active", e.ErrConflict)
	}

	req := billing.CheckoutRequest{
		CompanyID:     company.ID,
		CustomerID:    company.StripeCustomerID,
		CustomerEmail: actor.Email,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
	}
	if company.SubscriptionStatus == models.SubscriptionTrial && company.TrialEndsAt.After(s.now()) {
		trialEnd := company.TrialEndsAt
		req.TrialEnd = &trialEnd
	}
	checkoutURL, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", err
	}
	return checkoutURL, nil
}

func (s *BillingService) CreatePortalSession(ctx context.Context, actor *Actor, returnURL string) (string, error) {
	if s.gateway == nil {
		return "", errBillingDisabled
	}
	if err := s.requireManager(actor); err != nil {
		return "", err
	}
	if err := validURL("return URL", returnURL); err != nil {
		return "", err
	}
	company, _, err := s.Subscription(ctx, actor)
	if err != nil {
		return "", err
	}
	if company.StripeCustomerID == "" {
		return "", fmt.Errorf("%w: no billing account yet, start a checkout first", e.ErrConflict)
	}
	return s.gateway.CreatePortalSession(ctx, company.StripeCustomerID, returnURL)
}

// HandleWebhook verifies and applies a Stripe event. Events for unknown
// companies and status changes that break the lifecycle are logged and
// acknowledged so Stripe stops retrying them.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return errBillingDisabled
	}
	update, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if update == nil {
		return nil
	}
	logger := s.logger.With(
		zap.String("stripe_event_id", update.EventID),
		zap.String("stripe_event_type", update.EventType),
	)

	company, err := s.companyFor(ctx, update)
	if errors.Is(err, e.ErrNotFound) {
		logger.Warn("webhook for unknown company", zap.String("customer_id", update.CustomerID))
		return nil
	}
	if err != nil {
		return err
	}

	change := &models.CompanyUpdate{ID: company.ID}
	if update.CustomerID != "" && update.CustomerID != company.StripeCustomerID {
		change.StripeCustomerID = &update.CustomerID
	}
	if update.SubscriptionID != "" && update.SubscriptionID != company.StripeSubscriptionID {
		change.StripeSubscriptionID = &update.SubscriptionID
	}
	if update.CurrentPeriodEnd != nil {
		change.CurrentPeriodEnd = update.CurrentPeriodEnd
	}
	previous := company.SubscriptionStatus
	statusChanged := false
	if update.Status != "" && update.Status != previous {
		if previous.CanTransition(update.Status) {
			change.SubscriptionStatus = &update.Status
			statusChanged = true
		} else {
			logger.Warn("skipping invalid subscription transition",
				zap.String("company_id", company.ID.String()),
				zap.String("from", string(previous)),
				zap.String("to", string(update.Status)),
			)
		}
	}

	if err := s.repo.UpdateCompany(ctx, change); err != nil {
		return wrap("apply billing update", err)
	}
	if statusChanged {
		logger.Info("subscription changed",
			zap.String("company_id", company.ID.String()),
			zap.String("from", string(previous)),
			zap.String("to", string(update.Status)),
		)
		s.emit(events.New(events.SubscriptionChanged, company.ID, company.OwnerID, "company", company.ID,
			fmt.Sprintf("subscription is now %s", update.Status)).
			With(events.KeyStatus, string(update.Status)).
			With(events.KeyPrevious, string(previous)))
	}
	return nil
}

func (s *BillingService) companyFor(ctx context.Context, update *billing.Update) (*models.Company, error) {
	if update.CompanyID != nil {
		company, err := s.repo.GetCompany(ctx, *update.CompanyID)
		if err == nil || !errors.Is(err, e.ErrNotFound) || update.CustomerID == "" {
			return company, err
		}
	}
	if update.CustomerID == "" {
		return nil, e.ErrNotFound
	}
	return s.repo.GetCompanyByStripeCustomer(ctx, update.CustomerID)
}
