package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/eveul/storefront/internal/cache"
	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/events"
	"github.com/eveul/storefront/internal/repository"
	"github.com/hashicorp/go-hclog"
)

const (
	// catalogPrefix namespaces every cached public read
	catalogPrefix = "catalog:"
	// relatedLimit is how many related watches a product page shows
	relatedLimit = 4
)

type ProductService interface {
	CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error)
	SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Product, error)
	Publish(ctx context.Context, id string) (*domain.Product, error)
	Unpublish(ctx context.Context, id string) (*domain.Product, error)
	Archive(ctx context.Context, id string) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*ProductDetail, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	Catalog(ctx context.Context, collection domain.Collection) ([]*CatalogCard, error)
	ProductPage(ctx context.Context, slug string) (*ProductPage, error)
	Ping(ctx context.Context) error
	Close() error
}

// CatalogCard is the public summary of an active product
//
// swagger:model
type CatalogCard struct {
	ID         string            `json:"id"`
	Slug       string            `json:"slug"`
	Name       string            `json:"name"`
	Collection domain.Collection `json:"collection"`
	Price      int64             `json:"price"`
	Currency   string            `json:"currency"`
	Badge      *domain.Badge     `json:"badge"`
	// URL of the primary image, null when the product has no images
	Image *string `json:"image"`
}

// ProductPage is everything the public product page shows
//
// swagger:model
type ProductPage struct {
	Product *domain.Product        `json:"product"`
	Images  []*domain.ProductImage `json:"images"`
	Related []*CatalogCard         `json:"related"`
}

// ProductDetail is a product with its ordered images, for the admin editor
//
// swagger:model
type ProductDetail struct {
	Product *domain.Product        `json:"product"`
	Images  []*domain.ProductImage `json:"images"`
}

type productService struct {
	products   repository.ProductRepository
	images     repository.ImageRepository
	cache      cache.Cache
	cacheTTL   time.Duration
	validation *domain.Validation
	eventBus   *events.EventBus[any]
	logger     hclog.Logger
	subscriber events.Subscriber[any]
	wg         sync.WaitGroup
	once       sync.Once
}

func NewProductService(
	products repository.ProductRepository,
	images repository.ImageRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	validation *domain.Validation,
	eventBus *events.EventBus[any],
	logger hclog.Logger) ProductService {
	ps := &productService{
		products:   products,
		images:     images,
		cache:      c,
		cacheTTL:   cacheTTL,
		validation: validation,
		eventBus:   eventBus,
		logger:     logger,
	}

	ps.subscriber = eventBus.Subscribe()

	ps.wg.Add(1)
	go ps.handleCatalogChanges(ps.subscriber)

	return ps
}

// handleCatalogChanges drops cached public reads whenever the catalog changes
func (s *productService) handleCatalogChanges(subscriber events.Subscriber[any]) {
	defer s.wg.Done()
	for event := range subscriber {
		name, ok := events.Name(event)
		if !ok {
			continue
		}
		s.logger.Debug("Catalog changed, invalidating cache", "event", name)
		s.invalidate(context.Background())
	}
}

func (s *productService) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	const op = "service.CreateProduct"
	s.logger.Debug("Creating product", "name", in.Name)

	product := &domain.Product{Status: domain.StatusDraft}
	if err := s.apply(op, in, product); err != nil {
		return nil, err
	}

	if err := s.products.Add(ctx, product); err != nil {
		return nil, s.writeError(op, product, err)
	}

	s.invalidate(ctx)
	s.eventBus.Publish(events.ProductCreated{ProductID: product.ID, Slug: product.Slug})
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (*domain.Product, error) {
	const op = "service.UpdateProduct"
	s.logger.Debug("Updating product", "id", id)

	product, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(op, in, product); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, s.writeError(op, product, err)
	}

	s.invalidate(ctx)
	s.eventBus.Publish(events.ProductUpdated{ProductID: product.ID, Slug: product.Slug})
	return product, nil
}

func (s *productService) SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Product, error) {
	const op = "service.SetStatus"
	s.logger.Debug("Changing product status", "id", id, "status", status)

	if !status.Valid() {
		return nil, domain.E(domain.InvalidInput, op, "status must be one of draft, active, archived", nil)
	}

	product, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if product.Status == status {
		return product, nil
	}

	product.Status = status
	if err := s.products.Update(ctx, product); err != nil {
		return nil, s.writeError(op, product, err)
	}

	s.invalidate(ctx)
	s.eventBus.Publish(events.ProductStatusChanged{ProductID: product.ID, Status: status})
	return product, nil
}

func (s *productService) Publish(ctx context.Context, id string) (*domain.Product, error) {
	return s.SetStatus(ctx, id, domain.StatusActive)
}

func (s *productService) Unpublish(ctx context.Context, id string) (*domain.Product, error) {
	return s.SetStatus(ctx, id, domain.StatusDraft)
}

func (s *productService) Archive(ctx context.Context, id string) (*domain.Product, error) {
	return s.SetStatus(ctx, id, domain.StatusArchived)
}

func (s *productService) GetProduct(ctx context.Context, id string) (*ProductDetail, error) {
	const op = "service.GetProduct"

	product, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}

	images, err := s.images.ListByProduct(ctx, product.ID)
	if err != nil {
		s.logger.Error("Unable to list product images", "id", id, "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to list images", err)
	}

	return &ProductDetail{Product: product, Images: images}, nil
}

func (s *productService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	const op = "service.ListProducts"

	products, err := s.products.List(ctx, repository.ProductFilter{})
	if err != nil {
		s.logger.Error("Unable to list products", "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to list products", err)
	}
	if products == nil {
		products = []*domain.Product{}
	}
	return products, nil
}

// Catalog lists active products, newest first, optionally from one collection
func (s *productService) Catalog(ctx context.Context, collection domain.Collection) ([]*CatalogCard, error) {
	const op = "service.Catalog"

	if collection != "" && !collection.Valid() {
		return nil, domain.E(domain.InvalidInput, op, "unknown collection", nil)
	}

	key := catalogPrefix + "list:" + string(collection)
	var cards []*CatalogCard
	if s.cached(ctx, key, &cards) {
		return cards, nil
	}

	products, err := s.products.List(ctx, repository.ProductFilter{
		Status:     domain.StatusActive,
		Collection: collection,
	})
	if err != nil {
		s.logger.Error("Unable to list catalog", "collection", collection, "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to list products", err)
	}

	cards, err = s.cards(ctx, op, products)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, cards)
	return cards, nil
}

// ProductPage returns an active product by slug with its images and
// related watches from the same collection
func (s *productService) ProductPage(ctx context.Context, slug string) (*ProductPage, error) {
	const op = "service.ProductPage"

	key := catalogPrefix + "page:" + slug
	var page ProductPage
	if s.cached(ctx, key, &page) {
		return &page, nil
	}

	product, err := s.products.GetBySlug(ctx, slug)
	if errors.Is(err, domain.ErrProductNotFound) || (err == nil && product.Status != domain.StatusActive) {
		return nil, domain.E(domain.NotFound, op, "product not found", domain.ErrProductNotFound)
	}
	if err != nil {
		s.logger.Error("Unable to get product by slug", "slug", slug, "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to load product", err)
	}

	images, err := s.images.ListByProduct(ctx, product.ID)
	if err != nil {
		s.logger.Error("Unable to list product images", "id", product.ID, "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to list images", err)
	}

	related, err := s.products.List(ctx, repository.ProductFilter{
		Status:     domain.StatusActive,
		Collection: product.Collection,
		ExcludeID:  product.ID,
		Limit:      relatedLimit,
	})
	if err != nil {
		s.logger.Error("Unable to list related products", "id", product.ID, "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to list related products", err)
	}
	relatedCards, err := s.cards(ctx, op, related)
	if err != nil {
		return nil, err
	}

	page = ProductPage{Product: product, Images: images, Related: relatedCards}
	s.store(ctx, key, &page)
	return &page, nil
}

func (s *productService) Ping(ctx context.Context) error {
	if err := s.products.Ping(ctx); err != nil {
		s.logger.Error("Product store unreachable", "error", err)
		return domain.E(domain.PersistenceFailure, "service.Ping", "product store unreachable", err)
	}
	return nil
}

func (s *productService) Close() error {
	s.once.Do(func() {
		s.logger.Info("Shutting down ProductService...")

		// closes the subscriber, ending handleCatalogChanges
		s.eventBus.Unsubscribe(s.subscriber)
		s.wg.Wait()

		s.logger.Info("ProductService shutdown complete.")
	})

	return nil
}

// apply validates in and copies its normalized fields onto p
func (s *productService) apply(op string, in domain.ProductInput, p *domain.Product) error {
	in.Normalize()
	if errs := s.validation.Validate(&in); len(errs) > 0 {
		return domain.E(domain.InvalidInput, op, "invalid product", errs)
	}

	slugSource := in.Slug
	if strings.TrimSpace(slugSource) == "" {
		slugSource = in.Name
	}
	slug := domain.Slugify(slugSource)
	if slug == "" {
		return domain.E(domain.InvalidInput, op, "slug must contain letters or digits", nil)
	}

	p.Name = in.Name
	p.Slug = slug
	p.Collection = in.Collection
	if p.Collection == "" {
		p.Collection = domain.CollectionSignature
	}
	p.Price = in.Price
	p.Currency = strings.TrimSpace(in.Currency)
	if p.Currency == "" {
		p.Currency = domain.DefaultCurrency
	}
	p.Badge = in.Badge
	if in.Status != "" {
		p.Status = in.Status
	}
	p.Description = nil
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		p.Description = &d
	}
	p.Highlights = []string{}
	for _, h := range in.Highlights {
		if h = strings.TrimSpace(h); h != "" {
			p.Highlights = append(p.Highlights, h)
		}
	}
	return nil
}

func (s *productService) load(ctx context.Context, op, id string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if errors.Is(err, domain.ErrProductNotFound) {
		return nil, domain.E(domain.NotFound, op, "product not found", err)
	}
	if err != nil {
		s.logger.Error("Unable to get the product by ID", "id", id, "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to load product", err)
	}
	return product, nil
}

func (s *productService) writeError(op string, p *domain.Product, err error) error {
	if errors.Is(err, domain.ErrSlugTaken) {
		return domain.E(domain.Conflict, op, "slug "+p.Slug+" is already in use", err)
	}
	if errors.Is(err, domain.ErrProductNotFound) {
		return domain.E(domain.NotFound, op, "product not found", err)
	}
	s.logger.Error("Unable to save product", "id", p.ID, "name", p.Name, "error", err)
	return domain.E(domain.PersistenceFailure, op, "unable to save product", err)
}

func (s *productService) cards(ctx context.Context, op string, products []*domain.Product) ([]*CatalogCard, error) {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	primaries, err := s.images.PrimaryImages(ctx, ids)
	if err != nil {
		s.logger.Error("Unable to load primary images", "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to load images", err)
	}

	cards := make([]*CatalogCard, 0, len(products))
	for _, p := range products {
		card := &CatalogCard{
			ID:         p.ID,
			Slug:       p.Slug,
			Name:       p.Name,
			Collection: p.Collection,
			Price:      p.Price,
			Currency:   p.Currency,
			Badge:      p.Badge,
		}
		if img, ok := primaries[p.ID]; ok {
			url := img.URL
			card.Image = &url
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// cached reads key into dst. Cache failures only cost a store round trip.
func (s *productService) cached(ctx context.Context, key string, dst any) bool {
	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("Cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (s *productService) store(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v, s.cacheTTL); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "error", err)
	}
}

func (s *productService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, catalogPrefix); err != nil {
		s.logger.Warn("Cache invalidation failed", "error", err)
	}
}
