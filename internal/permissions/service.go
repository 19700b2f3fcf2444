package permissions

import (
	"context"
	"errors"
	"strings"

	"github.com/aegis-admin/aegis/internal/slug"
)

// Service handles permission catalog business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// FindOrCreate upserts a permission keyed by slug(name). Calling it twice with
// the same name yields the same stored row; group and description of an
// existing entry are left untouched.
func (s *Service) FindOrCreate(ctx context.Context, name string, group, description *string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, errors.New("permissions: name required")
	}
	return s.repo.Upsert(ctx, name, slug.Make(name), group, description)
}

// FindBySlug fetches a permission by slug.
func (s *Service) FindBySlug(ctx context.Context, permSlug string) (Permission, error) {
	return s.repo.FindBySlug(ctx, permSlug)
}

// FindByIDs fetches permissions by id. Ids with no matching row are absent
// from the result.
func (s *Service) FindByIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.FindByIDs(ctx, ids)
}

// List returns all permissions ordered by group then name.
func (s *Service) List(ctx context.Context) ([]Permission, error) {
	return s.repo.List(ctx)
}

// ListGrouped partitions the catalog by group tag, preserving the
// group-then-name ordering. Ungrouped permissions come first under the empty
// group name.
func (s *Service) ListGrouped(ctx context.Context) ([]Group, error) {
	perms, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var groups []Group
	for _, p := range perms {
		name := ""
		if p.Group != nil {
			name = *p.Group
		}
		if len(groups) == 0 || groups[len(groups)-1].Name != name {
			groups = append(groups, Group{Name: name})
		}
		last := &groups[len(groups)-1]
		last.Permissions = append(last.Permissions, p)
	}
	return groups, nil
}
