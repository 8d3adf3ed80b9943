package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/auth"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/billing"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/controller"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/dbtest"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/storage"
	"github.com/fieldsnaps/fieldsnaps/internal/pkg/bg"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "handler-test-secret-with-enough-bytes"

// fakeGateway stands in for Stripe.
type fakeGateway struct {
	update *billing.Update
	err    error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req billing.CheckoutRequest) (string, error) {
	return "https://checkout.stripe.test/" + req.CompanyID.String(), nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}

func (g *fakeGateway) ParseWebhook(_ []byte, _ string) (*billing.Update, error) {
	return g.update, g.err
}

type testEnv struct {
	t       *testing.T
	server  *httptest.Server
	repo    *db.Repository
	gateway *fakeGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := dbtest.New(t)
	store, err := storage.NewLocalStore(t.TempDir(), logger)
	require.NoError(t, err)
	dispatcher := events.NewLocalDispatcher(events.NewProjector(repo, logger).Handle, bg.Sync{}, logger)
	gateway := &fakeGateway{}

	api := NewAPI(Services{
		Users:         controller.NewUserService(repo, logger),
		Companies:     controller.NewCompanyService(repo, 14, logger),
		Projects:      controller.NewProjectService(repo, dispatcher, logger),
		Photos:        controller.NewPhotoService(repo, store, dispatcher, 200<<10, logger),
		Tasks:         controller.NewTaskService(repo, dispatcher, logger),
		Clock:         controller.NewClockService(repo, dispatcher, logger),
		Notifications: controller.NewNotificationService(repo, logger),
		Activity:      controller.NewActivityService(repo, logger),
		Billing:       controller.NewBillingService(repo, gateway, dispatcher, logger),
	}, repo, logger)

	handler, err := NewHTTPHandler(api, HTTPConfig{
		JWTSecret:      testSecret,
		JWTAudience:    auth.DefaultAudience,
		AllowedOrigins: []string{"https://app.fieldsnaps.test"},
	}, logger)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &testEnv{t: t, server: server, repo: repo, gateway: gateway}
}

// user is a signed-in client.
type user struct {
	env   *testEnv
	id    uuid.UUID
	token string
}

func (env *testEnv) newUser(name string) *user {
	env.t.Helper()
	id := uuid.New()
	token, err := auth.GenerateToken(id, name+"@example.com", name, testSecret, time.Hour)
	require.NoError(env.t, err)
	return &user{env: env, id: id, token: token}
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func (u *user) do(method, path string, body any, out any) int {
	u.env.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(u.env.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, u.env.server.URL+path, reader)
	require.NoError(u.env.t, err)
	req.Header.Set("Content-Type", "application/json")
	return u.env.send(req, u.token, out)
}

func (env *testEnv) send(req *http.Request, token string, out any) int {
	env.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.server.Client().Do(req)
	require.NoError(env.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(env.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// companyWithOwner creates a signed-in owner of a new company.
func (env *testEnv) companyWithOwner(owner, company string) (*user, companyResponse) {
	env.t.Helper()
	u := env.newUser(owner)
	var c companyResponse
	require.Equal(env.t, http.StatusCreated, u.do(http.MethodPost, "/api/companies", map[string]string{"name": company}, &c))
	return u, c
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
