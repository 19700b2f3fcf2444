package roles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aegis-admin/aegis/internal/activity"
	"github.com/aegis-admin/aegis/internal/permissions"
	"github.com/aegis-admin/aegis/internal/shared"
	"github.com/aegis-admin/aegis/internal/slug"
)

// PermissionDirectory resolves permission references for grant operations.
type PermissionDirectory interface {
	FindBySlug(ctx context.Context, slug string) (permissions.Permission, error)
	FindByIDs(ctx context.Context, ids []int64) ([]permissions.Permission, error)
}

// CreateRoleInput carries attributes for role creation.
type CreateRoleInput struct {
	Name          string
	Description   *string
	PermissionIDs []int64
}

// UpdateRoleInput carries a partial role update. The slug is intentionally not
// updatable: it is generated once at creation and stays stable.
type UpdateRoleInput struct {
	Name        *string
	Description *string
}

// Service handles role business logic.
type Service struct {
	repo     RepositoryPort
	perms    PermissionDirectory
	recorder activity.Recorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, perms PermissionDirectory, recorder activity.Recorder) *Service {
	return &Service{repo: repo, perms: perms, recorder: recorder}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get fetches a role with its permission set and user count.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	perms, err := s.repo.Permissions(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	count, err := s.repo.UserCount(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Role: role, Permissions: perms, UserCount: count}, nil
}

// FindBySlug fetches a role by slug.
func (s *Service) FindBySlug(ctx context.Context, roleSlug string) (Role, error) {
	return s.repo.FindBySlug(ctx, roleSlug)
}

// Create inserts a new role with an auto-derived slug, optionally with an
// initial permission set.
func (s *Service) Create(ctx context.Context, input CreateRoleInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	role, err := s.repo.Create(ctx, name, slug.Make(name), input.Description)
	if err != nil {
		return Role{}, err
	}
	if len(input.PermissionIDs) > 0 {
		if err := s.SyncPermissions(ctx, role.ID, input.PermissionIDs); err != nil {
			return Role{}, err
		}
	}
	s.record(ctx, "created", role, nil, map[string]any{"name": role.Name, "slug": role.Slug})
	return role, nil
}

// Update changes name and/or description. Renames never regenerate the slug.
func (s *Service) Update(ctx context.Context, id int64, input UpdateRoleInput) (Role, error) {
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return Role{}, errors.New("roles: role name required")
		}
		input.Name = &trimmed
	}
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, err
	}
	role, err := s.repo.Update(ctx, id, input.Name, input.Description)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, "updated", role,
		map[string]any{"name": before.Name, "description": before.Description},
		map[string]any{"name": role.Name, "description": role.Description})
	return role, nil
}

// Delete removes a role. The admin role is refused unconditionally; a role
// with assigned users is refused until they are reassigned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.Protected() {
		return fmt.Errorf("%w: cannot delete the %s role", shared.ErrProtectedResource, ProtectedSlug)
	}
	count, err := s.repo.UserCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: role has %d assigned users", shared.ErrHasDependents, count)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "deleted", role, map[string]any{"name": role.Name, "slug": role.Slug}, nil)
	return nil
}

// SyncPermissions replaces the role's permission set with exactly the given
// ids. Unknown ids fail with NotFound before anything is touched.
func (s *Service) SyncPermissions(ctx context.Context, id int64, permissionIDs []int64) error {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	ids := dedupeIDs(permissionIDs)
	if err := s.verifyIDs(ctx, ids); err != nil {
		return err
	}
	before, err := s.repo.PermissionSlugs(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.ReplacePermissions(ctx, id, ids); err != nil {
		return err
	}
	s.record(ctx, "permissions_synced", role,
		map[string]any{"permissions": before},
		map[string]any{"permission_ids": ids})
	return nil
}

// GivePermission attaches a permission to the role; a no-op when already
// granted.
func (s *Service) GivePermission(ctx context.Context, id int64, permSlug string) error {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	perm, err := s.perms.FindBySlug(ctx, permSlug)
	if err != nil {
		return err
	}
	if err := s.repo.AttachPermission(ctx, id, perm.ID); err != nil {
		return err
	}
	s.record(ctx, "permission_granted", role, nil, map[string]any{"permission": perm.Slug})
	return nil
}

// RevokePermission detaches a permission from the role; a no-op when absent.
func (s *Service) RevokePermission(ctx context.Context, id int64, permSlug string) error {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	perm, err := s.perms.FindBySlug(ctx, permSlug)
	if err != nil {
		return err
	}
	if err := s.repo.DetachPermission(ctx, id, perm.ID); err != nil {
		return err
	}
	s.record(ctx, "permission_revoked", role, map[string]any{"permission": perm.Slug}, nil)
	return nil
}

// HasPermission reports whether the slug is in the role's permission set.
func (s *Service) HasPermission(ctx context.Context, id int64, permSlug string) (bool, error) {
	set, err := s.permissionSet(ctx, id)
	if err != nil {
		return false, err
	}
	_, ok := set[permSlug]
	return ok, nil
}

// HasAnyPermission reports whether at least one slug is in the role's set.
func (s *Service) HasAnyPermission(ctx context.Context, id int64, slugs []string) (bool, error) {
	set, err := s.permissionSet(ctx, id)
	if err != nil {
		return false, err
	}
	for _, sl := range slugs {
		if _, ok := set[sl]; ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAllPermissions reports whether every slug is in the role's set.
func (s *Service) HasAllPermissions(ctx context.Context, id int64, slugs []string) (bool, error) {
	set, err := s.permissionSet(ctx, id)
	if err != nil {
		return false, err
	}
	for _, sl := range slugs {
		if _, ok := set[sl]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) permissionSet(ctx context.Context, id int64) (map[string]struct{}, error) {
	slugs, err := s.repo.PermissionSlugs(ctx, id)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(slugs))
	for _, sl := range slugs {
		set[sl] = struct{}{}
	}
	return set, nil
}

func (s *Service) verifyIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.perms.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return fmt.Errorf("%w: unknown permission id in sync set", shared.ErrNotFound)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, role Role, oldValues, newValues map[string]any) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, activity.Entry{
		ActorID:     shared.ActorIDFromContext(ctx),
		Action:      action,
		Entity:      "role",
		EntityID:    strconv.FormatInt(role.ID, 10),
		OldValues:   oldValues,
		NewValues:   newValues,
		Description: fmt.Sprintf("Role %q %s", role.Name, action),
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
