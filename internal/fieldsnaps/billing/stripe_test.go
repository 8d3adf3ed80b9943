package billing

import (
	"fmt"
	"testing"
	"time"

	fserrors "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap/zaptest"
)

const testSecret = "whsec_test"

func sign(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	return signWith(t, testSecret, payload)
}

func signWith(t *testing.T, secret, payload string) ([]byte, string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func eventJSON(eventType, object string) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":%s}}`, eventType, object)
}

func TestParseWebhook(t *testing.T) {
	companyID := uuid.New()
	c := newClient(nil, "price_123", testSecret, zaptest.NewLogger(t))

	tests := []struct {
		name   string
		event  string
		want   *Update
		period bool
	}{
		{
			name: "checkout completed",
			event: eventJSON("checkout.session.completed", fmt.Sprintf(
				`{"id":"cs_1","object":"checkout.session","client_reference_id":%q,"customer":"cus_1","subscription":"sub_1","payment_status":"paid"}`,
				companyID)),
			want: &Update{CompanyID: &companyID, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: models.SubscriptionActive},
		},
		{
			name: "subscription updated to past due",
			event: eventJSON("customer.subscription.updated", fmt.Sprintf(
				`{"id":"sub_1","object":"subscription","customer":"cus_1","status":"past_due","current_period_end":1767225600,"metadata":{"company_id":%q}}`,
				companyID)),
			want:   &Update{CompanyID: &companyID, CustomerID: "cus_1", SubscriptionID: "sub_1", Status: models.SubscriptionPastDue},
			period: true,
		},
		{
			name:  "subscription deleted",
			event: eventJSON("customer.subscription.deleted", `{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active"}`),
			want:  &Update{CustomerID: "cus_1", SubscriptionID: "sub_1", Status: models.SubscriptionCanceled},
		},
		{
			name:  "invoice payment failed",
			event: eventJSON("invoice.payment_failed", `{"id":"in_1","object":"invoice","customer":"cus_1","subscription":"sub_1"}`),
			want:  &Update{CustomerID: "cus_1", SubscriptionID: "sub_1", Status: models.SubscriptionPastDue},
		},
		{
			name:  "invoice paid",
			event: eventJSON("invoice.paid", `{"id":"in_1","object":"invoice","customer":"cus_1","subscription":"sub_1"}`),
			want:  &Update{CustomerID: "cus_1", SubscriptionID: "sub_1", Status: models.SubscriptionActive},
		},
		{
			name:  "unrelated event is ignored",
			event: eventJSON("customer.created", `{"id":"cus_1","object":"customer"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, header := sign(t, tt.event)
			got, err := c.ParseWebhook(payload, header)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, "evt_1", got.EventID)
			assert.Equal(t, tt.want.CompanyID, got.CompanyID)
			assert.Equal(t, tt.want.CustomerID, got.CustomerID)
			assert.Equal(t, tt.want.SubscriptionID, got.SubscriptionID)
			assert.Equal(t, tt.want.Status, got.Status)
			if tt.period {
				require.NotNil(t, got.CurrentPeriodEnd)
				assert.Equal(t, int64(1767225600), got.CurrentPeriodEnd.Unix())
			}
		})
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	c := newClient(nil, "price_123", testSecret, zaptest.NewLogger(t))
	payload, header := sign(t, eventJSON("invoice.paid", `{"id":"in_1","object":"invoice"}`))

	_, err := c.ParseWebhook(append(payload, ' '), header)
	assert.ErrorIs(t, err, fserrors.ErrInvalidInput)

	_, err = c.ParseWebhook(payload, "")
	assert.ErrorIs(t, err, fserrors.ErrInvalidInput)
}

func TestParseWebhookWithoutSecret(t *testing.T) {
	c := newClient(nil, "price_123", "", zaptest.NewLogger(t))
	checkout := fmt.Sprintf(`{"id":"cs_1","object":"checkout.session","mode":"subscription","client_reference_id":%q,"customer":"cus_1","subscription":"sub_1"}`, uuid.NewString())
	payload, header := signWith(t, "", eventJSON("checkout.session.completed", checkout))

	update, err := c.ParseWebhook(payload, header)
	assert.ErrorIs(t, err, fserrors.ErrConflict)
	assert.Nil(t, update, "events signed with an empty key are refused")
}

func TestMapStatus(t *testing.T) {
	cases := map[stripe.SubscriptionStatus]models.SubscriptionStatus{
		stripe.SubscriptionStatusTrialing:          models.SubscriptionTrial,
		stripe.SubscriptionStatusActive:            models.SubscriptionActive,
		stripe.SubscriptionStatusPastDue:           models.SubscriptionPastDue,
		stripe.SubscriptionStatusUnpaid:            models.SubscriptionPastDue,
		stripe.SubscriptionStatusIncomplete:        models.SubscriptionPastDue,
		stripe.SubscriptionStatusCanceled:          models.SubscriptionCanceled,
		stripe.SubscriptionStatusIncompleteExpired: models.SubscriptionCanceled,
		stripe.SubscriptionStatus("paused"):       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, MapStatus(in), string(in))
	}
}
