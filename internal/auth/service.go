// Package auth implements login, registration and the current-user surface.
package auth

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-admin/aegis/internal/activity"
	"github.com/aegis-admin/aegis/internal/roles"
	"github.com/aegis-admin/aegis/internal/settings"
	"github.com/aegis-admin/aegis/internal/shared"
	"github.com/aegis-admin/aegis/internal/users"
)

// Service wraps authentication business rules.
type Service struct {
	users    *users.Service
	roles    *roles.Service
	settings settings.Store
	recorder activity.Recorder
}

// NewService constructs a new Service.
func NewService(userSvc *users.Service, roleSvc *roles.Service, store settings.Store, recorder activity.Recorder) *Service {
	return &Service{users: userSvc, roles: roleSvc, settings: store, recorder: recorder}
}

// Authenticate validates email/password credentials. Inactive accounts fail
// with the same error as bad credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if !user.Active() {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a self-service account with the default role. Refused
// when the features.registration setting is off.
func (s *Service) Register(ctx context.Context, name, email, password string) (users.User, error) {
	enabled, err := s.settings.Bool(ctx, "features.registration", true)
	if err != nil {
		return users.User{}, err
	}
	if !enabled {
		return users.User{}, shared.ErrRegistrationDisabled
	}
	defaultRole, err := s.roles.FindBySlug(ctx, roles.DefaultSlug)
	if err != nil {
		return users.User{}, err
	}
	active := true
	user, err := s.users.Create(ctx, users.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		RoleID:   &defaultRole.ID,
		IsActive: &active,
	})
	if err != nil {
		return users.User{}, err
	}
	s.record(ctx, "registered", user)
	return user, nil
}

// RecordLogin stores last-login metadata and logs the event.
func (s *Service) RecordLogin(ctx context.Context, user users.User, ip string) {
	if err := s.users.RecordLogin(ctx, user.ID, ip); err == nil {
		s.record(shared.ContextWithActorID(ctx, user.ID), "login", user)
	}
}

// RecordLogout logs the logout event.
func (s *Service) RecordLogout(ctx context.Context, userID int64) {
	if user, err := s.users.Get(ctx, userID); err == nil {
		s.record(shared.ContextWithActorID(ctx, userID), "logout", user)
	}
}

// LoadPrincipal exposes principal loading for the current-user endpoint.
func (s *Service) LoadPrincipal(ctx context.Context, userID int64) (*users.Principal, error) {
	return s.users.LoadPrincipal(ctx, userID)
}

func (s *Service) record(ctx context.Context, action string, user users.User) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, activity.Entry{
		ActorID:  shared.ActorIDFromContext(ctx),
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(user.ID, 10),
	})
}
