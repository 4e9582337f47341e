package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 10 * time.Second
)

// PostgresSource loads the initial catalog from a products table. The
// catalog is served from memory afterwards; nothing is written back.
type PostgresSource struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresSource, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := NewPostgresSource(db)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, nil
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresSource) Close() error { return s.db.Close() }

func (s *PostgresSource) Load(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, description, price, category, COALESCE(brand, ''),
			       stock, COALESCE(rating, 0), COALESCE(array_to_json(tags)::text, '[]'),
			       created_at, COALESCE(cost_price, price * 0.7),
			       COALESCE(supplier, 'Unknown'), COALESCE(internal_notes, ''), admin_only
			FROM products
			ORDER BY created_at ASC, id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 256)
		for rows.Next() {
			var (
				p    Product
				tags string
			)
			if err := rows.Scan(
				&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Brand,
				&p.Stock, &p.Rating, &tags,
				&p.CreatedAt, &p.CostPrice,
				&p.Supplier, &p.InternalNotes, &p.AdminOnly,
			); err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
				return fmt.Errorf("product %s tags: %w", p.ID, err)
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
