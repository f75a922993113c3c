// Package imageset keeps every product's images in a contiguous zero-based
// order, position 0 being the primary image, and keeps image rows and
// their blobs consistent with each other.
//
// Operations on one product are serialized inside the process. Two
// processes sharing the same stores can still interleave; Reconcile
// repairs the ordering after such a race or after a failed renumbering.
package imageset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/events"
	"github.com/eveul/storefront/internal/repository"
	"github.com/eveul/storefront/internal/storage"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultContentType = "image/jpeg"
	defaultExtension   = "jpg"
	maxExtensionLength = 10

	// concurrentUpdates caps the row updates in flight when the image store
	// cannot apply a renumbering in one batch
	concurrentUpdates = 8
)

// AddImageInput describes an upload
type AddImageInput struct {
	ProductID   string
	Data        io.Reader
	Size        int64
	ContentType string
	// Filename is only used for its extension
	Filename string
	// SlugHint names the directory the blob is stored under, the product id
	// is used when it slugifies to nothing
	SlugHint string
}

// RemoveResult is the image set left after a removal
//
// swagger:model
type RemoveResult struct {
	// Remaining images in order
	Images []*domain.ProductImage `json:"images"`
	// ID of the image now at position 0, null when none remain
	NewPrimaryID *string `json:"primaryId"`
}

// Manager owns the ordering of product images
type Manager struct {
	images   repository.ImageRepository
	products repository.ProductRepository
	store    storage.Storage
	bus      *events.EventBus[any]
	log      hclog.Logger
	locks    *keyedMutex
}

func NewManager(
	images repository.ImageRepository,
	products repository.ProductRepository,
	store storage.Storage,
	bus *events.EventBus[any],
	log hclog.Logger) *Manager {
	return &Manager{
		images:   images,
		products: products,
		store:    store,
		bus:      bus,
		log:      log,
		locks:    newKeyedMutex(),
	}
}

// Add uploads the image and appends it after the product's existing images
func (m *Manager) Add(ctx context.Context, in AddImageInput) (*domain.ProductImage, error) {
	const op = "imageset.Add"
	log := m.log.With("op", op, "product_id", in.ProductID)

	if in.ProductID == "" {
		return nil, m.fail(log, domain.InvalidInput, op, "product id is required", nil)
	}
	if in.Data == nil || in.Size == 0 {
		return nil, m.fail(log, domain.InvalidInput, op, "image file is required", nil)
	}

	unlock := m.locks.Lock(in.ProductID)
	defer unlock()

	if _, err := m.products.GetByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, m.fail(log, domain.NotFound, op, "product not found", err)
		}
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to load product", err)
	}

	dir := domain.Slugify(in.SlugHint)
	if dir == "" {
		dir = in.ProductID
	}
	objectPath := dir + "/" + uuid.NewString() + "." + extension(in.Filename)
	log = log.With("path", objectPath)

	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	if err := m.store.Upload(ctx, objectPath, in.Data, in.Size, contentType); err != nil {
		return nil, m.fail(log, domain.StorageFailure, op, "unable to upload image", err)
	}

	maxOrder, err := m.images.MaxSortOrder(ctx, in.ProductID)
	if err != nil {
		m.discardBlob(ctx, log, objectPath)
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to read image order", err)
	}

	img := &domain.ProductImage{
		ProductID: in.ProductID,
		URL:       m.store.PublicURL(objectPath),
		Path:      objectPath,
		SortOrder: maxOrder + 1,
	}
	if err := m.images.Add(ctx, img); err != nil {
		m.discardBlob(ctx, log, objectPath)
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to save image", err)
	}

	log.Debug("Image added", "image_id", img.ID, "sort_order", img.SortOrder)
	m.publish(log, events.ImageAdded{ProductID: img.ProductID, ImageID: img.ID, SortOrder: img.SortOrder})
	return img, nil
}

// Promote moves imageID to position 0. The other images keep their
// relative order. Promoting the current primary leaves the order as it is.
func (m *Manager) Promote(ctx context.Context, productID, imageID string) ([]*domain.ProductImage, error) {
	const op = "imageset.Promote"
	log := m.log.With("op", op, "product_id", productID, "image_id", imageID)

	if productID == "" || imageID == "" {
		return nil, m.fail(log, domain.InvalidInput, op, "product id and image id are required", nil)
	}

	unlock := m.locks.Lock(productID)
	defer unlock()

	target, err := m.getImage(ctx, log, op, imageID)
	if err != nil {
		return nil, err
	}
	if target.ProductID != productID {
		return nil, m.fail(log, domain.Mismatch, op, "image does not belong to product", nil)
	}

	current, err := m.list(ctx, log, op, productID)
	if err != nil {
		return nil, err
	}

	ordered := make([]*domain.ProductImage, 0, len(current))
	for _, img := range current {
		if img.ID == imageID {
			ordered = append(ordered, img)
		}
	}
	if len(ordered) == 0 {
		return nil, m.fail(log, domain.NotFound, op, "image not found", domain.ErrImageNotFound)
	}
	for _, img := range current {
		if img.ID != imageID {
			ordered = append(ordered, img)
		}
	}

	// rows already in place are not rewritten, promoting the primary writes nothing
	if err := m.apply(ctx, renumber(ordered, true)); err != nil {
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to reorder images", err)
	}

	images, err := m.list(ctx, log, op, productID)
	if err != nil {
		return nil, err
	}

	if ordered[0].SortOrder != 0 {
		log.Debug("Primary image changed")
		m.publish(log, events.PrimaryImageChanged{ProductID: productID, ImageID: imageID})
	}
	return images, nil
}

// Remove deletes the image blob, then its row, and closes the gap it left.
// A failure after the blob is gone is reported, never retried.
func (m *Manager) Remove(ctx context.Context, imageID string) (*RemoveResult, error) {
	const op = "imageset.Remove"
	log := m.log.With("op", op, "image_id", imageID)

	if imageID == "" {
		return nil, m.fail(log, domain.InvalidInput, op, "image id is required", nil)
	}

	img, err := m.getImage(ctx, log, op, imageID)
	if err != nil {
		return nil, err
	}
	log = log.With("product_id", img.ProductID)

	unlock := m.locks.Lock(img.ProductID)
	defer unlock()

	// the row may have gone while waiting for the lock
	if img, err = m.getImage(ctx, log, op, imageID); err != nil {
		return nil, err
	}

	if err := m.store.Remove(ctx, img.Path); err != nil {
		return nil, m.fail(log, domain.StorageFailure, op, "unable to remove image file", err)
	}

	if err := m.images.Delete(ctx, img.ID); err != nil {
		log.Error("Image row outlives its blob", "path", img.Path)
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to delete image", err)
	}

	remaining, err := m.list(ctx, log, op, img.ProductID)
	if err != nil {
		return nil, err
	}
	if err := m.apply(ctx, renumber(remaining, false)); err != nil {
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to renumber images", err)
	}
	images, err := m.list(ctx, log, op, img.ProductID)
	if err != nil {
		return nil, err
	}

	result := &RemoveResult{Images: images}
	removed := events.ImageRemoved{ProductID: img.ProductID, ImageID: img.ID}
	if len(images) > 0 {
		id := images[0].ID
		result.NewPrimaryID = &id
		removed.PrimaryID = id
	}

	log.Debug("Image removed", "remaining", len(images))
	m.publish(log, removed)
	return result, nil
}

// Reconcile rewrites the product's ordering to 0..n-1, keeping the current
// relative order (sort order, then creation time, then id). Only rows whose
// position changes are written, so calling it on a healthy set is a no-op.
func (m *Manager) Reconcile(ctx context.Context, productID string) ([]*domain.ProductImage, error) {
	const op = "imageset.Reconcile"
	log := m.log.With("op", op, "product_id", productID)

	if productID == "" {
		return nil, m.fail(log, domain.InvalidInput, op, "product id is required", nil)
	}

	unlock := m.locks.Lock(productID)
	defer unlock()

	if err := m.requireProduct(ctx, log, op, productID); err != nil {
		return nil, err
	}

	current, err := m.list(ctx, log, op, productID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(current, func(i, j int) bool {
		a, b := current[i], current[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	previousPrimary := ""
	for _, img := range current {
		if img.SortOrder == 0 {
			previousPrimary = img.ID
			break
		}
	}

	updates := renumber(current, true)
	if len(updates) == 0 {
		return current, nil
	}
	if err := m.apply(ctx, updates); err != nil {
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to repair image order", err)
	}

	images, err := m.list(ctx, log, op, productID)
	if err != nil {
		return nil, err
	}

	log.Info("Image order repaired", "updated", len(updates))
	if len(images) > 0 && images[0].ID != previousPrimary {
		m.publish(log, events.PrimaryImageChanged{ProductID: productID, ImageID: images[0].ID})
	}
	return images, nil
}

// List returns the product's images in order
func (m *Manager) List(ctx context.Context, productID string) ([]*domain.ProductImage, error) {
	const op = "imageset.List"
	log := m.log.With("op", op, "product_id", productID)

	if err := m.requireProduct(ctx, log, op, productID); err != nil {
		return nil, err
	}
	return m.list(ctx, log, op, productID)
}

// apply persists a renumbering in one batch when the store supports it,
// otherwise concurrently. The first failure cancels the remaining updates
// and is returned; rows already written stay written.
func (m *Manager) apply(ctx context.Context, updates []repository.SortUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if batcher, ok := m.images.(repository.SortOrderBatcher); ok {
		return batcher.ApplySortOrders(ctx, updates)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrentUpdates)
	for _, u := range updates {
		u := u
		g.Go(func() error {
			return m.images.UpdateSortOrder(gctx, u.ID, u.SortOrder)
		})
	}
	return g.Wait()
}

// renumber assigns each image its index. With onlyChanged, images already
// at their index are skipped.
func renumber(ordered []*domain.ProductImage, onlyChanged bool) []repository.SortUpdate {
	updates := make([]repository.SortUpdate, 0, len(ordered))
	for i, img := range ordered {
		if onlyChanged && img.SortOrder == i {
			continue
		}
		updates = append(updates, repository.SortUpdate{ID: img.ID, SortOrder: i})
	}
	return updates
}

func (m *Manager) getImage(ctx context.Context, log hclog.Logger, op, id string) (*domain.ProductImage, error) {
	img, err := m.images.GetByID(ctx, id)
	if errors.Is(err, domain.ErrImageNotFound) {
		return nil, m.fail(log, domain.NotFound, op, "image not found", err)
	}
	if err != nil {
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to load image", err)
	}
	return img, nil
}

func (m *Manager) requireProduct(ctx context.Context, log hclog.Logger, op, id string) error {
	if id == "" {
		return m.fail(log, domain.InvalidInput, op, "product id is required", nil)
	}
	_, err := m.products.GetByID(ctx, id)
	if errors.Is(err, domain.ErrProductNotFound) {
		return m.fail(log, domain.NotFound, op, "product not found", err)
	}
	if err != nil {
		return m.fail(log, domain.PersistenceFailure, op, "unable to load product", err)
	}
	return nil
}

func (m *Manager) list(ctx context.Context, log hclog.Logger, op, productID string) ([]*domain.ProductImage, error) {
	images, err := m.images.ListByProduct(ctx, productID)
	if err != nil {
		return nil, m.fail(log, domain.PersistenceFailure, op, "unable to list images", err)
	}
	if images == nil {
		images = []*domain.ProductImage{}
	}
	return images, nil
}

// discardBlob removes a blob whose row could not be written. The caller's
// context may already be cancelled, so the removal ignores cancellation.
func (m *Manager) discardBlob(ctx context.Context, log hclog.Logger, objectPath string) {
	if err := m.store.Remove(context.WithoutCancel(ctx), objectPath); err != nil {
		log.Error("Unable to remove orphaned image file", "error", err)
	}
}

// publish broadcasts event. Subscribers that were too far behind miss it,
// which leaves cached catalog reads stale until they expire.
func (m *Manager) publish(log hclog.Logger, event any) {
	if dropped := m.bus.Publish(event); dropped > 0 {
		log.Warn("Subscribers missed an image event", "event", fmt.Sprintf("%T", event), "dropped", dropped)
	}
}

func (m *Manager) fail(log hclog.Logger, kind domain.Kind, op, message string, err error) error {
	switch kind {
	case domain.InvalidInput, domain.NotFound, domain.Mismatch:
		log.Debug(message, "kind", kind, "error", err)
	default:
		log.Error(message, "kind", kind, "error", err)
	}
	return domain.E(kind, op, message, err)
}

// extension returns the lowercased extension of filename, or the default
// one when it is missing or not plain alphanumeric
func extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" || len(ext) > maxExtensionLength {
		return defaultExtension
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultExtension
		}
	}
	return ext
}
