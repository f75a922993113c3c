package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eveul/storefront/internal/domain"
	"github.com/google/uuid"
)

type memoryImage struct {
	image *domain.ProductImage
	seq   uint64 // insertion order, breaks created_at ties
}

type memoryImageRepository struct {
	images map[string]*memoryImage
	seq    uint64
	mutex  sync.RWMutex
}

// NewMemoryImageRepository returns an in-process image store. It applies
// sort order updates one row at a time and does not implement SortOrderBatcher.
func NewMemoryImageRepository() ImageRepository {
	return &memoryImageRepository{images: make(map[string]*memoryImage)}
}

func (r *memoryImageRepository) GetByID(ctx context.Context, id string) (*domain.ProductImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	img, ok := r.images[id]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	return img.image.Clone(), nil
}

func (r *memoryImageRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.ProductImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rows := r.productRows(productID)
	out := make([]*domain.ProductImage, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.image.Clone())
	}
	return out, nil
}

func (r *memoryImageRepository) PrimaryImages(ctx context.Context, productIDs []string) (map[string]*domain.ProductImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make(map[string]*domain.ProductImage, len(productIDs))
	for _, id := range productIDs {
		if rows := r.productRows(id); len(rows) > 0 {
			out[id] = rows[0].image.Clone()
		}
	}
	return out, nil
}

func (r *memoryImageRepository) MaxSortOrder(ctx context.Context, productID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	maxOrder := -1
	for _, row := range r.images {
		if row.image.ProductID == productID && row.image.SortOrder > maxOrder {
			maxOrder = row.image.SortOrder
		}
	}
	return maxOrder, nil
}

func (r *memoryImageRepository) Add(ctx context.Context, image *domain.ProductImage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.seq++
	image.ID = uuid.NewString()
	image.CreatedAt = time.Now().UTC()
	r.images[image.ID] = &memoryImage{image: image.Clone(), seq: r.seq}
	return nil
}

func (r *memoryImageRepository) UpdateSortOrder(ctx context.Context, id string, sortOrder int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	img, ok := r.images[id]
	if !ok {
		return domain.ErrImageNotFound
	}
	img.image.SortOrder = sortOrder
	return nil
}

func (r *memoryImageRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.images[id]; !ok {
		return domain.ErrImageNotFound
	}
	delete(r.images, id)
	return nil
}

// productRows returns the product's rows in list order. Callers hold the lock.
func (r *memoryImageRepository) productRows(productID string) []*memoryImage {
	var rows []*memoryImage
	for _, row := range r.images {
		if row.image.ProductID == productID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.image.SortOrder != b.image.SortOrder {
			return a.image.SortOrder < b.image.SortOrder
		}
		if !a.image.CreatedAt.Equal(b.image.CreatedAt) {
			return a.image.CreatedAt.Before(b.image.CreatedAt)
		}
		return a.seq < b.seq
	})
	return rows
}
