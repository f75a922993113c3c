package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	slug        TEXT NOT NULL,
	collection  TEXT NOT NULL CHECK (collection IN ('Signature', 'Limited', 'Classic')),
	price       BIGINT NOT NULL CHECK (price >= 0),
	currency    TEXT NOT NULL DEFAULT 'Kz',
	badge       TEXT NULL CHECK (badge IN ('BEST SELLER', 'LIMITED', 'NEW')),
	status      TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'active', 'archived')),
	description TEXT NULL,
	highlights  TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT products_slug_key UNIQUE (slug)
);

CREATE INDEX IF NOT EXISTS products_status_created_idx ON products (status, created_at DESC);

CREATE TABLE IF NOT EXISTS product_images (
	id         UUID PRIMARY KEY,
	product_id UUID NOT NULL REFERENCES products (id) ON DELETE CASCADE,
	url        TEXT NOT NULL,
	path       TEXT NOT NULL,
	sort_order INT NOT NULL CHECK (sort_order >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT product_images_path_key UNIQUE (path),
	CONSTRAINT product_images_order_key UNIQUE (product_id, sort_order) DEFERRABLE INITIALLY DEFERRED
);

CREATE TABLE IF NOT EXISTS newsletter_subscribers (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT newsletter_subscribers_email_key UNIQUE (email)
);
`

// OpenPostgres connects to dsn and verifies the connection
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the tables when they do not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// uniqueViolation reports whether err is a unique constraint failure,
// returning the violated constraint name
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}
