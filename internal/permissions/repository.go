package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-admin/aegis/internal/shared"
)

// RepositoryPort defines data access methods for the permission catalog.
type RepositoryPort interface {
	Upsert(ctx context.Context, name, slug string, group, description *string) (Permission, error)
	FindBySlug(ctx context.Context, slug string) (Permission, error)
	FindByIDs(ctx context.Context, ids []int64) ([]Permission, error)
	List(ctx context.Context) ([]Permission, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts the permission unless its slug already exists, in which case
// the stored row is returned unchanged.
func (r *Repository) Upsert(ctx context.Context, name, slug string, group, description *string) (Permission, error) {
	// ON CONFLICT DO UPDATE with a no-op assignment so RETURNING yields the
	// existing row instead of nothing.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, slug, "group", description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, name, slug, "group", description, created_at, updated_at`,
		name, slug, group, description)
	return scanPermission(row)
}

// FindBySlug fetches a permission by slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (Permission, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, "group", description, created_at, updated_at
		FROM permissions WHERE slug = $1`, slug)
	perm, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return perm, nil
}

// FindByIDs fetches the permissions matching the given ids. Missing ids are
// simply absent from the result; callers compare lengths to detect them.
func (r *Repository) FindByIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, slug, "group", description, created_at, updated_at
		FROM permissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// List returns the whole catalog ordered by group then name. Ungrouped
// permissions sort first.
func (r *Repository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, slug, "group", description, created_at, updated_at
		FROM permissions ORDER BY "group" NULLS FIRST, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Group, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Permission{}, err
	}
	return p, nil
}

func collectPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Group, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

var _ RepositoryPort = (*Repository)(nil)
