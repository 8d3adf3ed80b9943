// Package billing talks to Stripe: hosted checkout and customer portal
// sessions, and verified webhook events translated into subscription updates.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	fserrors "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const metadataCompanyID = "company_id"

// CheckoutRequest describes a subscription checkout for a company.
type CheckoutRequest struct {
	CompanyID     uuid.UUID
	CustomerID    string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	TrialEnd      *time.Time
}

// Update is what a webhook event means for a company's subscription. Empty
// fields are unknown and leave the stored value alone.
type Update struct {
	EventID          string
	EventType        string
	CompanyID        *uuid.UUID
	CustomerID       string
	SubscriptionID   string
	Status           models.SubscriptionStatus
	CurrentPeriodEnd *time.Time
}

// Client wraps the Stripe API for one account and price.
type Client struct {
	api           *client.API
	priceID       string
	webhookSecret string
	logger        *zap.Logger
}

func NewClient(secretKey, priceID, webhookSecret string, logger *zap.Logger) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return newClient(api, priceID, webhookSecret, logger)
}

func newClient(api *client.API, priceID, webhookSecret string, logger *zap.Logger) *Client {
	return &Client{
		api:           api,
		priceID:       priceID,
		webhookSecret: webhookSecret,
		logger:        logger.Named("stripe"),
	}
}

// CreateCheckoutSession returns the hosted checkout URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.CompanyID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(c.priceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataCompanyID: req.CompanyID.String()},
		},
	}
	if req.TrialEnd != nil && time.Until(*req.TrialEnd) > 48*time.Hour {
		// Stripe rejects trial ends less than two days out.
		params.SubscriptionData.TrialEnd = stripe.Int64(req.TrialEnd.Unix())
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(metadataCompanyID, req.CompanyID.String())
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	c.logger.Info("checkout session created",
		zap.String("company_id", req.CompanyID.String()),
		zap.String("session_id", sess.ID),
	)
	return sess.URL, nil
}

// CreatePortalSession returns the customer portal URL.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return sess.URL, nil
}

// ParseWebhook verifies the Stripe-Signature header and translates the
// event. Event types that do not affect subscriptions return nil. Without a
// webhook secret every event is refused.
func (c *Client) ParseWebhook(payload []byte, signature string) (*Update, error) {
	if c.webhookSecret == "" {
		c.logger.Error("Webhook received but no webhook secret is configured")
		return nil, fmt.Errorf("%w: webhook secret not configured", fserrors.ErrConflict)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: webhook signature: %v", fserrors.ErrInvalidInput, err)
	}
	return translateEvent(event)
}

func translateEvent(event stripe.Event) (*Update, error) {
	update := &Update{EventID: event.ID, EventType: string(event.Type)}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", fserrors.ErrInvalidInput, err)
		}
		update.CompanyID = parseCompanyID(sess.ClientReferenceID, sess.Metadata)
		if sess.Customer != nil {
			update.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			update.SubscriptionID = sess.Subscription.ID
		}
		if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
			update.Status = models.SubscriptionActive
		}

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", fserrors.ErrInvalidInput, err)
		}
		update.CompanyID = parseCompanyID("", sub.Metadata)
		update.SubscriptionID = sub.ID
		if sub.Customer != nil {
			update.CustomerID = sub.Customer.ID
		}
		update.Status = MapStatus(sub.Status)
		if event.Type == "customer.subscription.deleted" {
			update.Status = models.SubscriptionCanceled
		}
		if sub.CurrentPeriodEnd > 0 {
			end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			update.CurrentPeriodEnd = &end
		}

	case "invoice.paid", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: invoice: %v", fserrors.ErrInvalidInput, err)
		}
		if inv.Customer != nil {
			update.CustomerID = inv.Customer.ID
		}
		if inv.Subscription != nil {
			update.SubscriptionID = inv.Subscription.ID
		}
		update.Status = models.SubscriptionActive
		if event.Type == "invoice.payment_failed" {
			update.Status = models.SubscriptionPastDue
		}

	default:
		return nil, nil
	}
	return update, nil
}

// MapStatus folds Stripe's subscription statuses onto ours. Unknown statuses
// map to the empty status.
func MapStatus(s stripe.SubscriptionStatus) models.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusTrialing:
		return models.SubscriptionTrial
	case stripe.SubscriptionStatusActive:
		return models.SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return models.SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionCanceled
	default:
		return ""
	}
}

func parseCompanyID(ref string, metadata map[string]string) *uuid.UUID {
	if ref == "" {
		ref = metadata[metadataCompanyID]
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil
	}
	return &id
}
