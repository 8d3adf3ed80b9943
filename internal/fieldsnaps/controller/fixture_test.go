package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/auth"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db/dbtest"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/events"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingProducer keeps every produced event.
type recordingProducer struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingProducer) Produce(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingProducer) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingProducer) last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func (p *recordingProducer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// fixture is a company with an owner and a member, plus an outsider who
// runs a different company.
type fixture struct {
	repo     *db.Repository
	producer *recordingProducer
	users    *UserService
	company  *models.Company
	owner    *Actor
	member   *Actor
	outsider *Actor
}

func claims(name string) *auth.Claims {
	return &auth.Claims{
		Email:            name + "@example.com",
		UserMetadata:     auth.UserMetadata{FullName: name},
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	repo := dbtest.New(t)

	f := &fixture{repo: repo, producer: &recordingProducer{}, users: NewUserService(repo, logger)}
	companies := NewCompanyService(repo, 14, logger)

	var err error
	f.owner, err = f.users.Resolve(ctx, claims("Olivia"))
	require.NoError(t, err)
	f.company, err = companies.CreateCompany(ctx, f.owner, "Ridgeline Builders")
	require.NoError(t, err)

	f.member, err = f.users.Resolve(ctx, claims("Marco"))
	require.NoError(t, err)
	_, err = companies.JoinCompany(ctx, f.member, f.company.InviteCode)
	require.NoError(t, err)

	f.outsider, err = f.users.Resolve(ctx, claims("Oscar"))
	require.NoError(t, err)
	_, err = companies.CreateCompany(ctx, f.outsider, "Summit Roofing")
	require.NoError(t, err)
	return f
}

func (f *fixture) project(t *testing.T, lat, lng *float64) *models.Project {
	t.Helper()
	svc := NewProjectService(f.repo, f.producer, zaptest.NewLogger(t))
	p, err := svc.CreateProject(context.Background(), f.owner, &models.Project{
		Name:      "Maple Street Remodel " + uuid.NewString()[:4],
		Latitude:  lat,
		Longitude: lng,
	})
	require.NoError(t, err)
	return p
}

// afterTrial returns a clock past the fixture's trial.
func afterTrial() time.Time {
	return time.Now().UTC().Add(15 * 24 * time.Hour)
}
