// Package models defines the core domain models of FieldSnaps: companies and
// their members, projects, photos, to-dos, time clock entries, and the
// activity and notification records derived from them.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the billing state of a company.
type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionTrial:    {SubscriptionActive, SubscriptionPastDue, SubscriptionCanceled},
	SubscriptionActive:   {SubscriptionPastDue, SubscriptionCanceled},
	SubscriptionPastDue:  {SubscriptionActive, SubscriptionCanceled},
	SubscriptionCanceled: {SubscriptionActive},
}

// Valid reports whether s is a known status.
func (s SubscriptionStatus) Valid() bool {
	_, ok := subscriptionTransitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is allowed.
// Staying in the same status is always allowed.
func (s SubscriptionStatus) CanTransition(next SubscriptionStatus) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range subscriptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Company defines the domain model for a customer company. Every user belongs
// to at most one company.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID
	// Name is the company's display name.
	Name string
	// OwnerID is the user who created the company.
	OwnerID uuid.UUID
	// InviteCode lets crew members join the company.
	InviteCode string
	// SubscriptionStatus is the current billing state.
	SubscriptionStatus SubscriptionStatus
	// TrialEndsAt is when the free trial stops allowing writes.
	TrialEndsAt time.Time
	// CurrentPeriodEnd is the end of the paid period, when known.
	CurrentPeriodEnd *time.Time
	// StripeCustomerID links the company to its billing customer.
	StripeCustomerID string
	// StripeSubscriptionID links the company to its billing subscription.
	StripeSubscriptionID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AllowsWrites reports whether the company's subscription permits creating
// or changing data at the given time. Past-due companies keep full access
// while billing retries the payment.
func (c *Company) AllowsWrites(now time.Time) bool {
	switch c.SubscriptionStatus {
	case SubscriptionActive, SubscriptionPastDue:
		return true
	case SubscriptionTrial:
		return now.Before(c.TrialEndsAt)
	default:
		return false
	}
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates.
type CompanyUpdate struct {
	ID                   uuid.UUID
	Name                 *string
	InviteCode           *string
	SubscriptionStatus   *SubscriptionStatus
	CurrentPeriodEnd     *time.Time
	StripeCustomerID     *string
	StripeSubscriptionID *string
}

// Contractor is a subcontractor a company works with.
type Contractor struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Trade     string
	Email     string
	Phone     string
	CreatedAt time.Time
}
