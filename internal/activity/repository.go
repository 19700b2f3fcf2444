package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilters narrows activity listings.
type ListFilters struct {
	ActorID *int64
	Entity  string
	Action  string
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// Record is a stored entry with its identity.
type Record struct {
	ID int64 `json:"id"`
	Entry
}

// RepositoryPort defines persistence for activity entries.
type RepositoryPort interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, filters ListFilters) ([]Record, int, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists one entry.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	oldJSON, err := marshalValues(entry.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := marshalValues(entry.NewValues)
	if err != nil {
		return err
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO activity_logs (actor_id, action, entity, entity_id, old_values, new_values, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, oldJSON, newJSON, entry.Description, at)
	return err
}

// List returns entries newest first plus the total match count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Record, int, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argPos := 1

	if filters.ActorID != nil {
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", argPos))
		args = append(args, *filters.ActorID)
		argPos++
	}
	if filters.Entity != "" {
		conditions = append(conditions, fmt.Sprintf("entity = $%d", argPos))
		args = append(args, filters.Entity)
		argPos++
	}
	if filters.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argPos))
		args = append(args, filters.Action)
		argPos++
	}
	if !filters.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", argPos))
		args = append(args, filters.From)
		argPos++
	}
	if !filters.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at <= $%d", argPos))
		args = append(args, filters.To)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activity_logs "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 50 {
		perPage = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, action, entity, entity_id, old_values, new_values, description, occurred_at
		FROM activity_logs %s
		ORDER BY occurred_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var oldJSON, newJSON []byte
		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.Action, &rec.Entity, &rec.EntityID, &oldJSON, &newJSON, &rec.Description, &rec.At); err != nil {
			return nil, 0, err
		}
		if len(oldJSON) > 0 {
			_ = json.Unmarshal(oldJSON, &rec.OldValues)
		}
		if len(newJSON) > 0 {
			_ = json.Unmarshal(newJSON, &rec.NewValues)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func marshalValues(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

var _ RepositoryPort = (*Repository)(nil)
