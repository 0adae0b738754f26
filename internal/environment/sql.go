package environment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQL stores facts in the environment_info table of the relational store
type SQL struct {
	db *sqlx.DB
}

// NewSQL creates the environment_info table if needed and returns the store
func NewSQL(ctx context.Context, db *sqlx.DB) (*SQL, error) {
	idType := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		idType = "BIGSERIAL PRIMARY KEY"
	}
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS environment_info (
			id `+idType+`,
			env_key TEXT NOT NULL,
			item_primary BIGINT NOT NULL,
			item_secondary BIGINT NOT NULL DEFAULT 0,
			symmetric BOOLEAN NOT NULL DEFAULT FALSE,
			value DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(env_key, item_primary, item_secondary, symmetric)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create environment_info table: %w", err)
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Write(ctx context.Context, key string, value float64, item, itemSecondary int64, symmetric bool) error {
	item, itemSecondary = pair(item, itemSecondary, symmetric)
	query := s.db.Rebind(`
		INSERT INTO environment_info (env_key, item_primary, item_secondary, symmetric, value, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (env_key, item_primary, item_secondary, symmetric)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`)
	if _, err := s.db.ExecContext(ctx, query, key, item, itemSecondary, symmetric, value); err != nil {
		return fmt.Errorf("failed to write %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	return nil
}

func (s *SQL) Read(ctx context.Context, key string, item, itemSecondary int64) (float64, bool, error) {
	a, b := pair(item, itemSecondary, true)
	query := s.db.Rebind(`
		SELECT value FROM environment_info
		WHERE env_key = ? AND (
			(item_primary = ? AND item_secondary = ? AND symmetric = ?) OR
			(item_primary = ? AND item_secondary = ? AND symmetric = ?)
		)
		ORDER BY symmetric
		LIMIT 1
	`)
	var value float64
	err := s.db.GetContext(ctx, &value, query, key, item, itemSecondary, false, a, b, true)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	return value, true, nil
}

func (s *SQL) Delete(ctx context.Context, key string, item, itemSecondary int64) error {
	a, b := pair(item, itemSecondary, true)
	query := s.db.Rebind(`
		DELETE FROM environment_info
		WHERE env_key = ? AND (
			(item_primary = ? AND item_secondary = ? AND symmetric = ?) OR
			(item_primary = ? AND item_secondary = ? AND symmetric = ?)
		)
	`)
	if _, err := s.db.ExecContext(ctx, query, key, item, itemSecondary, false, a, b, true); err != nil {
		return fmt.Errorf("failed to delete %s(%d, %d): %w", key, item, itemSecondary, err)
	}
	return nil
}

func (s *SQL) Edges(ctx context.Context, key string) ([]Edge, error) {
	edges := []Edge{}
	query := s.db.Rebind(`
		SELECT env_key, item_primary, item_secondary, value
		FROM environment_info
		WHERE env_key = ?
		ORDER BY item_primary, item_secondary
	`)
	if err := s.db.SelectContext(ctx, &edges, query, key); err != nil {
		return nil, fmt.Errorf("failed to list %s edges: %w", key, err)
	}
	return edges, nil
}

// Close is a no-op, the connection belongs to the database package
func (s *SQL) Close() error {
	return nil
}
