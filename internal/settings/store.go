// Package settings reads application settings persisted in PostgreSQL.
package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads typed setting values by key.
type Store interface {
	Bool(ctx context.Context, key string, fallback bool) (bool, error)
	String(ctx context.Context, key string, fallback string) (string, error)
}

// PgStore is a Store backed by the settings table.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore constructs a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Bool reads a boolean setting. Missing keys yield the fallback.
func (s *PgStore) Bool(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, err := s.get(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		return fallback, err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return fallback, nil
	}
}

// String reads a string setting. Missing keys yield the fallback.
func (s *PgStore) String(ctx context.Context, key string, fallback string) (string, error) {
	raw, err := s.get(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		return fallback, err
	}
	return raw, nil
}

func (s *PgStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	return value, err
}
