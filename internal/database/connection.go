package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/flashcards/internal/config"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database
func Connect(cfg config.Database) error {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case "postgres":
		db, err = sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	default:
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(cfg.DSN); dir != "." && !strings.HasPrefix(cfg.DSN, ":memory:") {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err = sqlx.Connect("sqlite3", cfg.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		// Enable foreign keys
		if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}

		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)
	}

	DB = db

	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		err := DB.Close()
		DB = nil
		return err
	}
	return nil
}

// rebind converts ? placeholders to the driver's bindvar type
func rebind(query string) string {
	return DB.Rebind(query)
}

// insertReturningID runs an INSERT ... RETURNING id statement
func insertReturningID(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := q.QueryRowxContext(ctx, rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// selectIn expands the IN (?) clause of query for values and scans into dest.
// Nothing is queried when values is empty.
func selectIn[T any](ctx context.Context, q sqlx.QueryerContext, dest interface{}, query string, values []T, args ...interface{}) error {
	if len(values) == 0 {
		return nil
	}
	query, inArgs, err := sqlx.In(query, append([]interface{}{values}, args...)...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, rebind(query), inArgs...)
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	idType := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if DB.DriverName() == "postgres" {
		idType = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		name  string
		query string
	}{
		{"items", `
			CREATE TABLE IF NOT EXISTS items (
				id ` + idType + `,
				item_type TEXT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`},
		{"item_relations", `
			CREATE TABLE IF NOT EXISTS item_relations (
				id ` + idType + `,
				parent_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
				child_id BIGINT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
				source VARCHAR(20) NOT NULL DEFAULT 'manual',
				UNIQUE(parent_id, child_id)
			)`},
		{"item_relations child index", `
			CREATE INDEX IF NOT EXISTS item_relations_child_idx ON item_relations (child_id)`},
		{"terms", `
			CREATE TABLE IF NOT EXISTS terms (
				id ` + idType + `,
				identifier TEXT NOT NULL,
				item_id BIGINT NOT NULL REFERENCES items(id),
				lang VARCHAR(2) NOT NULL,
				name TEXT NOT NULL,
				type VARCHAR(50),
				UNIQUE(identifier, lang),
				UNIQUE(item_id, lang)
			)`},
		{"contexts", `
			CREATE TABLE IF NOT EXISTS contexts (
				id ` + idType + `,
				identifier TEXT NOT NULL,
				item_id BIGINT NOT NULL REFERENCES items(id),
				lang VARCHAR(2) NOT NULL,
				name TEXT,
				content TEXT,
				UNIQUE(identifier, lang),
				UNIQUE(item_id, lang)
			)`},
		{"flashcards", `
			CREATE TABLE IF NOT EXISTS flashcards (
				id ` + idType + `,
				identifier TEXT NOT NULL,
				item_id BIGINT NOT NULL REFERENCES items(id),
				lang VARCHAR(2) NOT NULL,
				term_id BIGINT NOT NULL REFERENCES terms(id),
				context_id BIGINT NOT NULL REFERENCES contexts(id),
				description TEXT,
				UNIQUE(identifier, lang),
				UNIQUE(item_id, lang)
			)`},
		{"categories", `
			CREATE TABLE IF NOT EXISTS categories (
				id ` + idType + `,
				identifier TEXT NOT NULL,
				item_id BIGINT NOT NULL REFERENCES items(id),
				lang VARCHAR(2) NOT NULL,
				name TEXT NOT NULL,
				type VARCHAR(50),
				UNIQUE(identifier, lang),
				UNIQUE(item_id, lang)
			)`},
		{"category_subcategories", `
			CREATE TABLE IF NOT EXISTS category_subcategories (
				category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
				subcategory_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
				PRIMARY KEY (category_id, subcategory_id)
			)`},
		{"category_terms", `
			CREATE TABLE IF NOT EXISTS category_terms (
				category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
				term_id BIGINT NOT NULL REFERENCES terms(id) ON DELETE CASCADE,
				PRIMARY KEY (category_id, term_id)
			)`},
		{"flashcard_answers", `
			CREATE TABLE IF NOT EXISTS flashcard_answers (
				id ` + idType + `,
				item_id BIGINT NOT NULL UNIQUE REFERENCES items(id),
				user_id BIGINT NOT NULL,
				item_asked_id BIGINT NOT NULL REFERENCES items(id),
				item_answered_id BIGINT REFERENCES items(id),
				direction VARCHAR(3) NOT NULL,
				meta TEXT,
				response_time BIGINT NOT NULL DEFAULT 0,
				answered_at TIMESTAMP NOT NULL
			)`},
		{"flashcard_answer_options", `
			CREATE TABLE IF NOT EXISTS flashcard_answer_options (
				answer_id BIGINT NOT NULL REFERENCES flashcard_answers(id) ON DELETE CASCADE,
				term_id BIGINT NOT NULL REFERENCES terms(id),
				PRIMARY KEY (answer_id, term_id)
			)`},
		{"user_progress", `
			CREATE TABLE IF NOT EXISTS user_progress (
				id ` + idType + `,
				user_id BIGINT NOT NULL,
				item_id BIGINT NOT NULL REFERENCES items(id),
				easiness_factor DOUBLE PRECISION DEFAULT 2.5,
				interval_days INTEGER DEFAULT 1,
				repetitions INTEGER DEFAULT 0,
				last_quality INTEGER DEFAULT 3,
				consecutive_right INTEGER DEFAULT 0,
				is_learned BOOLEAN DEFAULT FALSE,
				last_review_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				next_review_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(user_id, item_id)
			)`},
	}

	for _, s := range statements {
		if _, err := DB.Exec(s.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}

	return nil
}
