package repository

import (
	"context"
	"sync"
	"time"

	"github.com/eveul/storefront/internal/domain"
	"github.com/google/uuid"
)

type memoryProductRepository struct {
	products []*domain.Product // insertion order, oldest first
	mutex    sync.RWMutex
}

func NewMemoryProductRepository() ProductRepository {
	return &memoryProductRepository{}
}

func (r *memoryProductRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []*domain.Product
	for i := len(r.products) - 1; i >= 0; i-- {
		p := r.products[i]
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Collection != "" && p.Collection != filter.Collection {
			continue
		}
		if filter.ExcludeID != "" && p.ID == filter.ExcludeID {
			continue
		}
		out = append(out, p.Clone())
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}

	return out, nil
}

func (r *memoryProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, product := range r.products {
		if product.ID == id {
			return product.Clone(), nil
		}
	}

	return nil, domain.ErrProductNotFound
}

func (r *memoryProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, product := range r.products {
		if product.Slug == slug {
			return product.Clone(), nil
		}
	}

	return nil, domain.ErrProductNotFound
}

func (r *memoryProductRepository) Add(ctx context.Context, product *domain.Product) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.slugTaken(product.Slug, "") {
		return domain.ErrSlugTaken
	}

	now := time.Now().UTC()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products = append(r.products, product.Clone())
	return nil
}

func (r *memoryProductRepository) Update(ctx context.Context, product *domain.Product) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, p := range r.products {
		if p.ID == product.ID {
			if r.slugTaken(product.Slug, product.ID) {
				return domain.ErrSlugTaken
			}
			product.CreatedAt = p.CreatedAt
			product.UpdatedAt = time.Now().UTC()
			r.products[i] = product.Clone()
			return nil
		}
	}

	return domain.ErrProductNotFound
}

func (r *memoryProductRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *memoryProductRepository) slugTaken(slug, exceptID string) bool {
	for _, p := range r.products {
		if p.Slug == slug && p.ID != exceptID {
			return true
		}
	}
	return false
}
