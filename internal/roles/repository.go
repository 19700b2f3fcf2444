package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-admin/aegis/internal/permissions"
	"github.com/aegis-admin/aegis/internal/platform/db"
	"github.com/aegis-admin/aegis/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	FindBySlug(ctx context.Context, slug string) (Role, error)
	Create(ctx context.Context, name, slug string, description *string) (Role, error)
	Update(ctx context.Context, id int64, name *string, description *string) (Role, error)
	Delete(ctx context.Context, id int64) error
	UserCount(ctx context.Context, id int64) (int, error)

	PermissionSlugs(ctx context.Context, roleID int64) ([]string, error)
	Permissions(ctx context.Context, roleID int64) ([]permissions.Permission, error)
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, slug, description, created_at, updated_at`

// List returns all roles ordered by name.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Get fetches a role by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	return r.one(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

// FindBySlug fetches a role by slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (Role, error) {
	return r.one(ctx, `SELECT `+roleColumns+` FROM roles WHERE slug = $1`, slug)
}

// Create inserts a new role. A slug collision yields shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, name, slug string, description *string) (Role, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING `+roleColumns, name, slug, description)
	role, err := scanRole(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Role{}, shared.ErrDuplicate
		}
		return Role{}, err
	}
	return role, nil
}

// Update changes name and/or description. The slug is never touched.
func (r *Repository) Update(ctx context.Context, id int64, name *string, description *string) (Role, error) {
	setClause := "updated_at = NOW()"
	args := []any{}
	argPos := 1
	if name != nil {
		setClause += fmt.Sprintf(", name = $%d", argPos)
		args = append(args, *name)
		argPos++
	}
	if description != nil {
		setClause += fmt.Sprintf(", description = $%d", argPos)
		args = append(args, *description)
		argPos++
	}
	args = append(args, id)
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("UPDATE roles SET %s WHERE id = $%d RETURNING %s", setClause, argPos, roleColumns), args...)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// Delete removes a role; role_permission links cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UserCount returns how many users currently carry the role.
func (r *Repository) UserCount(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, id).Scan(&count)
	return count, err
}

// PermissionSlugs lists the slugs in the role's permission set.
func (r *Repository) PermissionSlugs(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.slug FROM role_permission rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

// Permissions lists the full permission rows in the role's set.
func (r *Repository) Permissions(ctx context.Context, roleID int64) ([]permissions.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.slug, p."group", p.description, p.created_at, p.updated_at
		FROM role_permission rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p."group" NULLS FIRST, p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []permissions.Permission
	for rows.Next() {
		var p permissions.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Group, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// AttachPermission grants a permission to the role, idempotently.
func (r *Repository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permission (role_id, permission_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, permissionID)
	return err
}

// DetachPermission revokes a permission from the role, idempotently.
func (r *Repository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permission WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	return err
}

// ReplacePermissions swaps the role's permission set for exactly the given ids
// in one transaction.
func (r *Repository) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permission WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permission (role_id, permission_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, pid); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) one(ctx context.Context, query string, arg any) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Slug, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	return role, nil
}

var _ RepositoryPort = (*Repository)(nil)
