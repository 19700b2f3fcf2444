package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-admin/aegis/internal/platform/db"
	"github.com/aegis-admin/aegis/internal/shared"
)

// ListFilters narrows user listings.
type ListFilters struct {
	Search   string
	RoleID   *int64
	IsActive *bool
	Page     int
	PerPage  int
}

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	SetRole(ctx context.Context, id int64, roleID *int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	RecordLogin(ctx context.Context, id int64, ip string, at time.Time) error

	DirectPermissionSlugs(ctx context.Context, userID int64) ([]string, error)
	DirectPermissionIDs(ctx context.Context, userID int64) ([]int64, error)
	AttachPermission(ctx context.Context, userID, permissionID int64) error
	DetachPermission(ctx context.Context, userID, permissionID int64) error
	ReplacePermissions(ctx context.Context, userID int64, permissionIDs []int64) error

	LoadPrincipal(ctx context.Context, userID int64) (*Principal, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role_id, is_active, last_login_at, last_login_ip, created_at, updated_at`

// Get fetches a user by ID.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail fetches a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// List returns users matching the filters plus the total match count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argPos := 1

	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", argPos, argPos))
		args = append(args, pattern)
		argPos++
	}
	if filters.RoleID != nil {
		conditions = append(conditions, fmt.Sprintf("role_id = $%d", argPos))
		args = append(args, *filters.RoleID)
		argPos++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("COALESCE(is_active, TRUE) = $%d", argPos))
		args = append(args, *filters.IsActive)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 15
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argPos, argPos+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Create inserts a new user. A colliding email yields shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		user.Name, user.Email, user.PasswordHash, user.RoleID, user.IsActive)
	created, err := scanUser(row)
	if err != nil {
		return User{}, mapPgError(err)
	}
	return created, nil
}

// Update applies a partial column update.
func (r *Repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	setClause := ""
	args := []any{}
	argPos := 1
	for _, col := range []string{"name", "email", "password_hash"} {
		val, ok := updates[col]
		if !ok {
			continue
		}
		if setClause != "" {
			setClause += ", "
		}
		setClause += fmt.Sprintf("%s = $%d", col, argPos)
		args = append(args, val)
		argPos++
	}
	if setClause == "" {
		return nil
	}
	setClause += ", updated_at = NOW()"
	args = append(args, id)
	tag, err := r.pool.Exec(ctx, fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", setClause, argPos), args...)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a user; direct permission links cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetRole points the user at a role, or clears it when roleID is nil.
func (r *Repository) SetRole(ctx context.Context, id int64, roleID *int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role_id = $1, updated_at = NOW() WHERE id = $2`, roleID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordLogin stores last-login metadata.
func (r *Repository) RecordLogin(ctx context.Context, id int64, ip string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $1, last_login_ip = $2 WHERE id = $3`, at, ip, id)
	return err
}

// DirectPermissionSlugs lists the slugs granted straight to the user.
func (r *Repository) DirectPermissionSlugs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.slug FROM user_permission up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStrings(rows)
}

// DirectPermissionIDs lists the permission ids granted straight to the user.
func (r *Repository) DirectPermissionIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT permission_id FROM user_permission WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AttachPermission grants a direct permission, idempotently.
func (r *Repository) AttachPermission(ctx context.Context, userID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_permission (user_id, permission_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, permissionID)
	return err
}

// DetachPermission revokes a direct permission, idempotently.
func (r *Repository) DetachPermission(ctx context.Context, userID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_permission WHERE user_id = $1 AND permission_id = $2`, userID, permissionID)
	return err
}

// ReplacePermissions swaps the direct set for exactly the given ids in one
// transaction, so no reader ever observes a partially synced set.
func (r *Repository) ReplacePermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_permission WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_permission (user_id, permission_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, pid); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadPrincipal materializes the authorization context for one user: the
// current account flags, the direct grant set, and the optional role with its
// permission set. Three reads, no caching.
func (r *Repository) LoadPrincipal(ctx context.Context, userID int64) (*Principal, error) {
	user, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	direct, err := r.DirectPermissionSlugs(ctx, userID)
	if err != nil {
		return nil, err
	}

	principal := &Principal{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Active: user.Active(),
		Direct: toSet(direct),
	}

	if user.RoleID != nil {
		var role PrincipalRole
		err := r.pool.QueryRow(ctx, `SELECT id, slug, name FROM roles WHERE id = $1`, *user.RoleID).
			Scan(&role.ID, &role.Slug, &role.Name)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Dangling role reference behaves like no role at all.
				return principal, nil
			}
			return nil, err
		}
		rows, err := r.pool.Query(ctx, `
			SELECT p.slug FROM role_permission rp
			JOIN permissions p ON p.id = rp.permission_id
			WHERE rp.role_id = $1`, role.ID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		slugs, err := collectStrings(rows)
		if err != nil {
			return nil, err
		}
		role.Permissions = toSet(slugs)
		principal.Role = &role
	}

	return principal, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.IsActive,
		&u.LastLoginAt, &u.LastLoginIP, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func toSet(slugs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		set[s] = struct{}{}
	}
	return set
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
