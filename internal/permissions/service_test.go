package permissions

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegis-admin/aegis/internal/shared"
)

type memoryPermissionRepo struct {
	nextID int64
	bySlug map[string]Permission
}

func newMemoryPermissionRepo() *memoryPermissionRepo {
	return &memoryPermissionRepo{bySlug: make(map[string]Permission)}
}

func (r *memoryPermissionRepo) Upsert(ctx context.Context, name, permSlug string, group, description *string) (Permission, error) {
	if existing, ok := r.bySlug[permSlug]; ok {
		return existing, nil
	}
	r.nextID++
	p := Permission{
		ID:          r.nextID,
		Name:        name,
		Slug:        permSlug,
		Group:       group,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	r.bySlug[permSlug] = p
	return p, nil
}

func (r *memoryPermissionRepo) FindBySlug(ctx context.Context, permSlug string) (Permission, error) {
	p, ok := r.bySlug[permSlug]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryPermissionRepo) FindByIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	var out []Permission
	for _, p := range r.bySlug {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (r *memoryPermissionRepo) List(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(r.bySlug))
	for _, p := range r.bySlug {
		out = append(out, p)
	}
	// group (nil first) then name, matching the SQL ordering.
	sort.Slice(out, func(i, j int) bool {
		gi, gj := "", ""
		if out[i].Group != nil {
			gi = *out[i].Group
		}
		if out[j].Group != nil {
			gj = *out[j].Group
		}
		if gi != gj {
			return gi < gj
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func strPtr(s string) *string { return &s }

func TestFindOrCreateDerivesSlug(t *testing.T) {
	svc := NewService(newMemoryPermissionRepo())

	p, err := svc.FindOrCreate(context.Background(), "  View Users  ", strPtr("users"), nil)
	require.NoError(t, err)
	require.Equal(t, "View Users", p.Name)
	require.Equal(t, "view-users", p.Slug)
}

func TestFindOrCreateIsIdempotent(t *testing.T) {
	svc := NewService(newMemoryPermissionRepo())

	first, err := svc.FindOrCreate(context.Background(), "Edit Users", strPtr("users"), nil)
	require.NoError(t, err)
	second, err := svc.FindOrCreate(context.Background(), "Edit Users", strPtr("admin"), strPtr("changed"))
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "users", *second.Group)
	require.Nil(t, second.Description)
}

func TestFindOrCreateRejectsBlankName(t *testing.T) {
	svc := NewService(newMemoryPermissionRepo())

	_, err := svc.FindOrCreate(context.Background(), "   ", nil, nil)
	require.Error(t, err)
}

func TestFindByIDsEmptyInput(t *testing.T) {
	svc := NewService(newMemoryPermissionRepo())

	perms, err := svc.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestListGroupedPartitionsByGroup(t *testing.T) {
	repo := newMemoryPermissionRepo()
	svc := NewService(repo)

	ctx := context.Background()
	_, err := svc.FindOrCreate(ctx, "View Users", strPtr("users"), nil)
	require.NoError(t, err)
	_, err = svc.FindOrCreate(ctx, "Edit Users", strPtr("users"), nil)
	require.NoError(t, err)
	_, err = svc.FindOrCreate(ctx, "View Roles", strPtr("roles"), nil)
	require.NoError(t, err)
	_, err = svc.FindOrCreate(ctx, "Access Dashboard", nil, nil)
	require.NoError(t, err)

	groups, err := svc.ListGrouped(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	require.Equal(t, "", groups[0].Name)
	require.Len(t, groups[0].Permissions, 1)
	require.Equal(t, "access-dashboard", groups[0].Permissions[0].Slug)

	require.Equal(t, "roles", groups[1].Name)
	require.Equal(t, "users", groups[2].Name)
	require.Len(t, groups[2].Permissions, 2)
	require.Equal(t, "edit-users", groups[2].Permissions[0].Slug)
	require.Equal(t, "view-users", groups[2].Permissions[1].Slug)
}

func TestListGroupedEmptyCatalog(t *testing.T) {
	svc := NewService(newMemoryPermissionRepo())

	groups, err := svc.ListGrouped(context.Background())
	require.NoError(t, err)
	require.Empty(t, groups)
}
