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

const imageColumns = `id, product_id, url, path, sort_order, created_at`

type postgresImageRepository struct{ db *sql.DB }

// PostgresImageRepository is both an ImageRepository and a SortOrderBatcher
type PostgresImageRepository interface {
	ImageRepository
	SortOrderBatcher
}

func NewPostgresImageRepository(db *sql.DB) PostgresImageRepository {
	return &postgresImageRepository{db: db}
}

func scanImage(scan func(...interface{}) error) (*domain.ProductImage, error) {
	img := &domain.ProductImage{}
	err := scan(&img.ID, &img.ProductID, &img.URL, &img.Path, &img.SortOrder, &img.CreatedAt)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (r *postgresImageRepository) GetByID(ctx context.Context, id string) (*domain.ProductImage, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrImageNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM product_images WHERE id=$1`, uid)
	img, err := scanImage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrImageNotFound
	}
	return img, err
}

func (r *postgresImageRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.ProductImage, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return []*domain.ProductImage{}, nil
	}
	return r.query(ctx, `
		SELECT `+imageColumns+` FROM product_images
		WHERE product_id=$1
		ORDER BY sort_order, created_at, id`, uid)
}

func (r *postgresImageRepository) PrimaryImages(ctx context.Context, productIDs []string) (map[string]*domain.ProductImage, error) {
	out := make(map[string]*domain.ProductImage, len(productIDs))
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return out, nil
	}

	images, err := r.query(ctx, `
		SELECT DISTINCT ON (product_id) `+imageColumns+` FROM product_images
		WHERE product_id = ANY($1::uuid[])
		ORDER BY product_id, sort_order, created_at, id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		out[img.ProductID] = img
	}
	return out, nil
}

func (r *postgresImageRepository) MaxSortOrder(ctx context.Context, productID string) (int, error) {
	uid, err := uuid.Parse(productID)
	if err != nil {
		return -1, nil
	}
	var maxOrder int
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) FROM product_images WHERE product_id=$1`, uid).Scan(&maxOrder)
	return maxOrder, err
}

func (r *postgresImageRepository) Add(ctx context.Context, img *domain.ProductImage) error {
	pid, err := uuid.Parse(img.ProductID)
	if err != nil {
		return domain.ErrProductNotFound
	}
	id := uuid.New()
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO product_images (id, product_id, url, path, sort_order)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		id, pid, img.URL, img.Path, img.SortOrder,
	).Scan(&img.CreatedAt)
	if err != nil {
		return err
	}
	img.ID = id.String()
	return nil
}

func (r *postgresImageRepository) UpdateSortOrder(ctx context.Context, id string, sortOrder int) error {
	return r.ApplySortOrders(ctx, []SortUpdate{{ID: id, SortOrder: sortOrder}})
}

// ApplySortOrders runs every update in one transaction. The
// (product_id, sort_order) uniqueness is checked at commit, so positions
// may be swapped freely inside the batch.
func (r *postgresImageRepository) ApplySortOrders(ctx context.Context, updates []SortUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, u := range updates {
		uid, err := uuid.Parse(u.ID)
		if err != nil {
			return domain.ErrImageNotFound
		}
		res, err := tx.ExecContext(ctx, `UPDATE product_images SET sort_order=$1 WHERE id=$2`, u.SortOrder, uid)
		if err != nil {
			return fmt.Errorf("update sort order of %s: %w", u.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrImageNotFound
		}
	}

	return tx.Commit()
}

func (r *postgresImageRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.ErrImageNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM product_images WHERE id=$1`, uid)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

func (r *postgresImageRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.ProductImage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := []*domain.ProductImage{}
	for rows.Next() {
		img, err := scanImage(rows.Scan)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
