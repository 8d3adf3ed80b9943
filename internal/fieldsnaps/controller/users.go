package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/auth"
	e "github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/errors"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/models"
	"go.uber.org/zap"
)

// Profile is the signed-in user with their company, if any.
type Profile struct {
	User    *models.User
	Company *models.Company
}

type UserService struct {
	base
}

func NewUserService(repo Repository, logger *zap.Logger) *UserService {
	return &UserService{base: newBase(repo, nil, logger, "user_service")}
}

// Resolve maps validated token claims to an Actor, recording the user on
// first sight.
func (s *UserService) Resolve(ctx context.Context, claims *auth.Claims) (*Actor, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", e.ErrUnauthenticated)
	}
	user, err := s.repo.UpsertUser(ctx, &models.User{
		ID:       userID,
		Email:    strings.ToLower(claims.Email),
		FullName: strings.TrimSpace(claims.UserMetadata.FullName),
	})
	if err != nil {
		return nil, wrap("resolve user", err)
	}
	return actorFor(user), nil
}

func actorFor(user *models.User) *Actor {
	return &Actor{
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		CompanyID: user.CompanyID,
		Role:      user.Role,
	}
}

func (s *UserService) Me(ctx context.Context, actor *Actor) (*Profile, error) {
	user, err := s.repo.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, wrap("get user", err)
	}
	profile := &Profile{User: user}
	if user.CompanyID != nil {
		company, err := s.repo.GetCompany(ctx, *user.CompanyID)
		if err != nil {
			return nil, wrap("get company", err)
		}
		profile.Company = company
	}
	return profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *Actor, fullName string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	if err := validLength("full name", fullName, 1, 100); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateUser(ctx, &models.UserUpdate{ID: actor.UserID, FullName: &fullName}); err != nil {
		return nil, wrap("update user", err)
	}
	return s.repo.GetUser(ctx, actor.UserID)
}
