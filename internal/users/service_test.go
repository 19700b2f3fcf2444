package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-admin/aegis/internal/activity"
	"github.com/aegis-admin/aegis/internal/permissions"
	"github.com/aegis-admin/aegis/internal/roles"
	"github.com/aegis-admin/aegis/internal/shared"
)

type memoryUserRepo struct {
	users     map[int64]User
	userPerms map[int64][]int64
	nextID    int64
	replaced  bool
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:     make(map[int64]User),
		userPerms: make(map[int64][]int64),
	}
}

func (r *memoryUserRepo) Get(ctx context.Context, id int64) (User, error) {
	user, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (r *memoryUserRepo) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	out := make([]User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, len(out), nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user User) (User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return User{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	if name, ok := updates["name"].(string); ok {
		user.Name = name
	}
	if email, ok := updates["email"].(string); ok {
		user.Email = email
	}
	if hash, ok := updates["password_hash"].(string); ok {
		user.PasswordHash = hash
	}
	r.users[id] = user
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) SetRole(ctx context.Context, id int64, roleID *int64) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.RoleID = roleID
	r.users[id] = user
	return nil
}

func (r *memoryUserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.IsActive = &active
	r.users[id] = user
	return nil
}

func (r *memoryUserRepo) RecordLogin(ctx context.Context, id int64, ip string, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.LastLoginAt = &at
	user.LastLoginIP = &ip
	r.users[id] = user
	return nil
}

func (r *memoryUserRepo) DirectPermissionSlugs(ctx context.Context, userID int64) ([]string, error) {
	var slugs []string
	for _, id := range r.userPerms[userID] {
		slugs = append(slugs, testPermDirectory[id])
	}
	return slugs, nil
}

func (r *memoryUserRepo) DirectPermissionIDs(ctx context.Context, userID int64) ([]int64, error) {
	return append([]int64(nil), r.userPerms[userID]...), nil
}

func (r *memoryUserRepo) AttachPermission(ctx context.Context, userID, permissionID int64) error {
	for _, id := range r.userPerms[userID] {
		if id == permissionID {
			return nil
		}
	}
	r.userPerms[userID] = append(r.userPerms[userID], permissionID)
	return nil
}

func (r *memoryUserRepo) DetachPermission(ctx context.Context, userID, permissionID int64) error {
	kept := r.userPerms[userID][:0]
	for _, id := range r.userPerms[userID] {
		if id != permissionID {
			kept = append(kept, id)
		}
	}
	r.userPerms[userID] = kept
	return nil
}

func (r *memoryUserRepo) ReplacePermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	r.replaced = true
	r.userPerms[userID] = append([]int64(nil), permissionIDs...)
	return nil
}

func (r *memoryUserRepo) LoadPrincipal(ctx context.Context, userID int64) (*Principal, error) {
	user, ok := r.users[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	direct := make(map[string]struct{})
	for _, id := range r.userPerms[userID] {
		direct[testPermDirectory[id]] = struct{}{}
	}
	return &Principal{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Active: user.Active(),
		Direct: direct,
	}, nil
}

var testPermDirectory = map[int64]string{
	1: "view-users",
	2: "edit-users",
}

type stubPermDirectory struct{}

func (stubPermDirectory) FindBySlug(ctx context.Context, slug string) (permissions.Permission, error) {
	for id, s := range testPermDirectory {
		if s == slug {
			return permissions.Permission{ID: id, Slug: s}, nil
		}
	}
	return permissions.Permission{}, shared.ErrNotFound
}

func (stubPermDirectory) FindByIDs(ctx context.Context, ids []int64) ([]permissions.Permission, error) {
	var out []permissions.Permission
	for _, id := range ids {
		if slug, ok := testPermDirectory[id]; ok {
			out = append(out, permissions.Permission{ID: id, Slug: slug})
		}
	}
	return out, nil
}

type stubRoleDirectory struct{}

func (stubRoleDirectory) FindBySlug(ctx context.Context, slug string) (roles.Role, error) {
	if slug == "editor" {
		return roles.Role{ID: 3, Name: "Editor", Slug: "editor"}, nil
	}
	return roles.Role{}, shared.ErrNotFound
}

type captureRevoker struct {
	revoked []string
}

func (c *captureRevoker) RevokeUser(ctx context.Context, userID string) error {
	c.revoked = append(c.revoked, userID)
	return nil
}

type captureRecorder struct {
	entries []activity.Entry
}

func (c *captureRecorder) Record(ctx context.Context, entry activity.Entry) {
	c.entries = append(c.entries, entry)
}

func newUserService(repo *memoryUserRepo) (*Service, *captureRevoker, *captureRecorder) {
	revoker := &captureRevoker{}
	rec := &captureRecorder{}
	svc := NewService(repo, stubRoleDirectory{}, stubPermDirectory{}, rec, revoker)
	return svc, revoker, rec
}

func seedUser(t *testing.T, svc *Service) User {
	t.Helper()
	user, err := svc.Create(context.Background(), CreateUserInput{
		Name:     "Jamie",
		Email:    "jamie@test.local",
		Password: "supersecret",
	})
	require.NoError(t, err)
	return user
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, rec := newUserService(repo)

	user := seedUser(t, svc)
	require.NotEqual(t, "supersecret", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))
	require.Equal(t, "created", rec.entries[len(rec.entries)-1].Action)
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _ := newUserService(repo)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Name:     "Jamie",
		Email:    "  Jamie@Test.Local ",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.Equal(t, "jamie@test.local", user.Email)
}

func TestAssignAndRemoveRole(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _ := newUserService(repo)
	user := seedUser(t, svc)

	require.NoError(t, svc.AssignRole(context.Background(), user.ID, "editor"))
	stored, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RoleID)
	require.EqualValues(t, 3, *stored.RoleID)

	err = svc.AssignRole(context.Background(), user.ID, "no-such-role")
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.RemoveRole(context.Background(), user.ID))
	stored, err = svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Nil(t, stored.RoleID)
}

func TestDirectPermissionLifecycle(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _ := newUserService(repo)
	user := seedUser(t, svc)

	require.NoError(t, svc.GivePermission(context.Background(), user.ID, "edit-users"))
	require.NoError(t, svc.GivePermission(context.Background(), user.ID, "edit-users"))
	require.Len(t, repo.userPerms[user.ID], 1)

	require.NoError(t, svc.RevokePermission(context.Background(), user.ID, "edit-users"))
	require.Empty(t, repo.userPerms[user.ID])
}

func TestSyncDirectPermissionsValidatesIDs(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _ := newUserService(repo)
	user := seedUser(t, svc)

	require.NoError(t, svc.SyncPermissions(context.Background(), user.ID, []int64{1, 2}))
	repo.replaced = false

	err := svc.SyncPermissions(context.Background(), user.ID, []int64{1, 404})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.False(t, repo.replaced)
	require.Len(t, repo.userPerms[user.ID], 2)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, revoker, _ := newUserService(repo)
	user := seedUser(t, svc)

	require.NoError(t, svc.Deactivate(context.Background(), user.ID))
	require.Equal(t, []string{"1"}, revoker.revoked)

	stored, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.False(t, stored.Active())

	// Reactivation must not revoke anything further.
	require.NoError(t, svc.Activate(context.Background(), user.ID))
	require.Len(t, revoker.revoked, 1)
	stored, err = svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, stored.Active())
}

func TestDeleteRevokesSessions(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, revoker, _ := newUserService(repo)
	user := seedUser(t, svc)

	require.NoError(t, svc.Delete(context.Background(), user.ID))
	require.Equal(t, []string{"1"}, revoker.revoked)
	_, err := svc.Get(context.Background(), user.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateUserEmptyPasswordKeepsHash(t *testing.T) {
	repo := newMemoryUserRepo()
	svc, _, _ := newUserService(repo)
	user := seedUser(t, svc)

	empty := ""
	newName := "Jamie Q"
	updated, err := svc.Update(context.Background(), user.ID, UpdateUserInput{Name: &newName, Password: &empty})
	require.NoError(t, err)
	require.Equal(t, user.PasswordHash, updated.PasswordHash)
	require.Equal(t, "Jamie Q", updated.Name)
}
