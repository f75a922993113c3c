package repository

import (
	"context"

	"github.com/eveul/storefront/internal/domain"
)

// ProductFilter narrows a product listing. Zero values match everything.
type ProductFilter struct {
	Status     domain.Status
	Collection domain.Collection
	ExcludeID  string
	Limit      int
}

// ProductRepository stores products. Listings are ordered newest first.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	// Add assigns ID and timestamps. Returns domain.ErrSlugTaken on a duplicate slug.
	Add(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Ping(ctx context.Context) error
}

// ImageRepository stores product image metadata.
// Image lists are ordered by sort order, then creation time.
type ImageRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ProductImage, error)
	ListByProduct(ctx context.Context, productID string) ([]*domain.ProductImage, error)
	// PrimaryImages returns the lowest-ordered image of each product that has one
	PrimaryImages(ctx context.Context, productIDs []string) (map[string]*domain.ProductImage, error)
	// MaxSortOrder returns -1 when the product has no images
	MaxSortOrder(ctx context.Context, productID string) (int, error)
	// Add assigns ID and CreatedAt
	Add(ctx context.Context, image *domain.ProductImage) error
	UpdateSortOrder(ctx context.Context, id string, sortOrder int) error
	Delete(ctx context.Context, id string) error
}

// SortUpdate moves one image to a new position
type SortUpdate struct {
	ID        string
	SortOrder int
}

// SortOrderBatcher is implemented by image stores that can apply a whole
// renumbering atomically. Either every update is applied or none is.
type SortOrderBatcher interface {
	ApplySortOrders(ctx context.Context, updates []SortUpdate) error
}

// SubscriberRepository stores newsletter signups
type SubscriberRepository interface {
	// Add returns domain.ErrAlreadySubscribed when the email is taken
	Add(ctx context.Context, subscriber *domain.Subscriber) error
}
