package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-admin/aegis/internal/activity"
	"github.com/aegis-admin/aegis/internal/permissions"
	"github.com/aegis-admin/aegis/internal/roles"
	"github.com/aegis-admin/aegis/internal/shared"
)

// RoleDirectory resolves role references for assignment.
type RoleDirectory interface {
	FindBySlug(ctx context.Context, slug string) (roles.Role, error)
}

// PermissionDirectory resolves permission references for direct grants.
type PermissionDirectory interface {
	FindBySlug(ctx context.Context, slug string) (permissions.Permission, error)
	FindByIDs(ctx context.Context, ids []int64) ([]permissions.Permission, error)
}

// SessionRevoker invalidates every credential issued to a principal. The
// session/token store itself lives outside this package.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// CreateUserInput carries attributes for user creation.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	RoleID   *int64
	IsActive *bool
}

// UpdateUserInput carries a partial user update.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	roleDir  RoleDirectory
	permDir  PermissionDirectory
	recorder activity.Recorder
	revoker  SessionRevoker
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roleDir RoleDirectory, permDir PermissionDirectory, recorder activity.Recorder, revoker SessionRevoker) *Service {
	return &Service{repo: repo, roleDir: roleDir, permDir: permDir, recorder: recorder, revoker: revoker}
}

// List returns users matching the filters with pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
	users, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 15
	}
	return users, shared.NewPagination(filters.Page, perPage, total), nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// GetByEmail fetches a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Create inserts a new user, hashing the supplied password. The role is
// optional at admin creation time.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return User{}, errors.New("users: name and email required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	user, err := s.repo.Create(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       input.RoleID,
		IsActive:     input.IsActive,
	})
	if err != nil {
		return User{}, err
	}
	s.record(ctx, "created", user, nil, map[string]any{"name": user.Name, "email": user.Email})
	return user, nil
}

// Update applies a partial update; an empty password leaves the hash alone.
func (s *Service) Update(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	updates := make(map[string]any)
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, fmt.Errorf("users: hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return User{}, err
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, "updated", user,
		map[string]any{"name": before.Name, "email": before.Email},
		map[string]any{"name": user.Name, "email": user.Email})
	return user, nil
}

// Delete removes a user entirely. Deactivation is the softer alternative that
// keeps the record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.revoker != nil {
		if err := s.revoker.RevokeUser(ctx, strconv.FormatInt(id, 10)); err != nil {
			return fmt.Errorf("users: revoke sessions: %w", err)
		}
	}
	s.record(ctx, "deleted", user, map[string]any{"email": user.Email}, nil)
	return nil
}

// AssignRole points the user at the given role, replacing any prior role.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleSlug string) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	role, err := s.roleDir.FindBySlug(ctx, roleSlug)
	if err != nil {
		return err
	}
	if err := s.repo.SetRole(ctx, userID, &role.ID); err != nil {
		return err
	}
	s.record(ctx, "role_assigned", user,
		map[string]any{"role_id": user.RoleID},
		map[string]any{"role": role.Slug})
	return nil
}

// RemoveRole clears the user's role. Direct permissions are untouched.
func (s *Service) RemoveRole(ctx context.Context, userID int64) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.SetRole(ctx, userID, nil); err != nil {
		return err
	}
	s.record(ctx, "role_removed", user, map[string]any{"role_id": user.RoleID}, nil)
	return nil
}

// GivePermission grants a direct permission; a no-op when already granted.
// Direct grants are additive only: they never mask or revoke role grants.
func (s *Service) GivePermission(ctx context.Context, userID int64, permSlug string) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	perm, err := s.permDir.FindBySlug(ctx, permSlug)
	if err != nil {
		return err
	}
	if err := s.repo.AttachPermission(ctx, userID, perm.ID); err != nil {
		return err
	}
	s.record(ctx, "permission_granted", user, nil, map[string]any{"permission": perm.Slug})
	return nil
}

// RevokePermission removes a direct permission; a no-op when absent. The same
// permission granted through the role stays in effect.
func (s *Service) RevokePermission(ctx context.Context, userID int64, permSlug string) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	perm, err := s.permDir.FindBySlug(ctx, permSlug)
	if err != nil {
		return err
	}
	if err := s.repo.DetachPermission(ctx, userID, perm.ID); err != nil {
		return err
	}
	s.record(ctx, "permission_revoked", user, map[string]any{"permission": perm.Slug}, nil)
	return nil
}

// SyncPermissions replaces the user's direct set with exactly the given ids.
// Unknown ids fail with NotFound before anything is touched.
func (s *Service) SyncPermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	ids := dedupeIDs(permissionIDs)
	if len(ids) > 0 {
		found, err := s.permDir.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			return fmt.Errorf("%w: unknown permission id in sync set", shared.ErrNotFound)
		}
	}
	before, err := s.repo.DirectPermissionIDs(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.ReplacePermissions(ctx, userID, ids); err != nil {
		return err
	}
	s.record(ctx, "permissions_synced", user,
		map[string]any{"permission_ids": before},
		map[string]any{"permission_ids": ids})
	return nil
}

// Activate flips the active flag on.
func (s *Service) Activate(ctx context.Context, userID int64) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, userID, true); err != nil {
		return err
	}
	s.record(ctx, "activated", user, map[string]any{"is_active": user.Active()}, map[string]any{"is_active": true})
	return nil
}

// Deactivate flips the active flag off and revokes every session issued to
// the principal, so the very next authorization check fails.
func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, userID, false); err != nil {
		return err
	}
	s.record(ctx, "deactivated", user, map[string]any{"is_active": user.Active()}, map[string]any{"is_active": false})
	if s.revoker != nil {
		if err := s.revoker.RevokeUser(ctx, strconv.FormatInt(userID, 10)); err != nil {
			return fmt.Errorf("users: revoke sessions: %w", err)
		}
	}
	return nil
}

// DirectPermissionSlugs lists the user's direct grants.
func (s *Service) DirectPermissionSlugs(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.DirectPermissionSlugs(ctx, userID)
}

// LoadPrincipal materializes the user's authorization context. Called on
// every gated request; reads fresh state each time.
func (s *Service) LoadPrincipal(ctx context.Context, userID int64) (*Principal, error) {
	return s.repo.LoadPrincipal(ctx, userID)
}

// RecordLogin stores last-login metadata and logs the event.
func (s *Service) RecordLogin(ctx context.Context, userID int64, ip string) error {
	if err := s.repo.RecordLogin(ctx, userID, ip, time.Now().UTC()); err != nil {
		return err
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, user User, oldValues, newValues map[string]any) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, activity.Entry{
		ActorID:     shared.ActorIDFromContext(ctx),
		Action:      action,
		Entity:      "user",
		EntityID:    strconv.FormatInt(user.ID, 10),
		OldValues:   oldValues,
		NewValues:   newValues,
		Description: fmt.Sprintf("User %q %s", user.Email, action),
	})
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
