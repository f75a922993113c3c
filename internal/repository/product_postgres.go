package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eveul/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const productColumns = `id, name, slug, collection, price, currency, badge, status, description, highlights, created_at, updated_at`

type postgresProductRepository struct{ db *sql.DB }

func NewPostgresProductRepository(db *sql.DB) ProductRepository {
	return &postgresProductRepository{db: db}
}

func scanProduct(scan func(...interface{}) error) (*domain.Product, error) {
	p := &domain.Product{}
	var badge, description sql.NullString
	var highlights pq.StringArray
	err := scan(&p.ID, &p.Name, &p.Slug, &p.Collection, &p.Price, &p.Currency,
		&badge, &p.Status, &description, &highlights, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if badge.Valid {
		b := domain.Badge(badge.String)
		p.Badge = &b
	}
	if description.Valid {
		p.Description = &description.String
	}
	p.Highlights = append([]string{}, highlights...)
	return p, nil
}

func (r *postgresProductRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []interface{}{}
	n := 1
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status=$%d`, n)
		args = append(args, filter.Status)
		n++
	}
	if filter.Collection != "" {
		query += fmt.Sprintf(` AND collection=$%d`, n)
		args = append(args, filter.Collection)
		n++
	}
	if filter.ExcludeID != "" {
		if uid, err := uuid.Parse(filter.ExcludeID); err == nil {
			query += fmt.Sprintf(` AND id<>$%d`, n)
			args = append(args, uid)
			n++
		}
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, n)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *postgresProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrProductNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, uid)
	return productOrNotFound(scanProduct(row.Scan))
}

func (r *postgresProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE slug=$1`, slug)
	return productOrNotFound(scanProduct(row.Scan))
}

func (r *postgresProductRepository) Add(ctx context.Context, p *domain.Product) error {
	id := uuid.New()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products
		  (id, name, slug, collection, price, currency, badge, status, description, highlights)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		id, p.Name, p.Slug, p.Collection, p.Price, p.Currency,
		p.Badge, p.Status, p.Description, pq.StringArray(append([]string{}, p.Highlights...)),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return productWriteError(err)
	}
	p.ID = id.String()
	return nil
}

func (r *postgresProductRepository) Update(ctx context.Context, p *domain.Product) error {
	uid, err := uuid.Parse(p.ID)
	if err != nil {
		return domain.ErrProductNotFound
	}
	err = r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name=$1, slug=$2, collection=$3, price=$4, currency=$5, badge=$6,
		    status=$7, description=$8, highlights=$9, updated_at=NOW()
		WHERE id=$10
		RETURNING created_at, updated_at`,
		p.Name, p.Slug, p.Collection, p.Price, p.Currency, p.Badge,
		p.Status, p.Description, pq.StringArray(append([]string{}, p.Highlights...)), uid,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return productWriteError(err)
	}
	return nil
}

func (r *postgresProductRepository) Ping(ctx context.Context) error {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM products LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func productOrNotFound(p *domain.Product, err error) (*domain.Product, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	return p, err
}

func productWriteError(err error) error {
	if constraint, ok := uniqueViolation(err); ok && constraint == "products_slug_key" {
		return domain.ErrSlugTaken
	}
	return err
}
