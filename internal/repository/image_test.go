package repository

import (
	"context"
	"testing"

	"github.com/eveul/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addImage(t *testing.T, repo ImageRepository, productID string, sortOrder int) *domain.ProductImage {
	t.Helper()
	path := "test/" + uuid.NewString() + ".jpg"
	img := &domain.ProductImage{
		ProductID: productID,
		URL:       "http://localhost/images/" + path,
		Path:      path,
		SortOrder: sortOrder,
	}
	require.NoError(t, repo.Add(context.Background(), img))
	return img
}

// testImageRepository checks behaviour every ImageRepository shares.
// products is used to create the owning rows.
func testImageRepository(t *testing.T, repo ImageRepository, products ProductRepository) {
	ctx := context.Background()

	newProductID := func(t *testing.T) string {
		p := newProduct("Image Owner", domain.CollectionSignature, domain.StatusActive)
		require.NoError(t, products.Add(ctx, p))
		return p.ID
	}

	t.Run("AddListGet", func(t *testing.T) {
		pid := newProductID(t)
		maxOrder, err := repo.MaxSortOrder(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, -1, maxOrder)

		b := addImage(t, repo, pid, 1)
		a := addImage(t, repo, pid, 0)
		c := addImage(t, repo, pid, 2)

		list, err := repo.ListByProduct(ctx, pid)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{a.ID, b.ID, c.ID}, imageIDs(list))

		maxOrder, err = repo.MaxSortOrder(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, 2, maxOrder)

		got, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.Path, got.Path)
		assert.Equal(t, pid, got.ProductID)
	})

	t.Run("EmptyList", func(t *testing.T) {
		list, err := repo.ListByProduct(ctx, newProductID(t))
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("PrimaryImages", func(t *testing.T) {
		withImages := newProductID(t)
		without := newProductID(t)
		addImage(t, repo, withImages, 1)
		first := addImage(t, repo, withImages, 0)

		primaries, err := repo.PrimaryImages(ctx, []string{withImages, without})
		require.NoError(t, err)
		require.Contains(t, primaries, withImages)
		assert.Equal(t, first.ID, primaries[withImages].ID)
		assert.NotContains(t, primaries, without)
	})

	t.Run("UpdateSortOrderAndDelete", func(t *testing.T) {
		pid := newProductID(t)
		a := addImage(t, repo, pid, 0)
		b := addImage(t, repo, pid, 1)

		require.NoError(t, repo.UpdateSortOrder(ctx, b.ID, 5))
		got, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.SortOrder)

		require.NoError(t, repo.Delete(ctx, a.ID))
		_, err = repo.GetByID(ctx, a.ID)
		assert.ErrorIs(t, err, domain.ErrImageNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrImageNotFound)
		assert.ErrorIs(t, repo.UpdateSortOrder(ctx, a.ID, 0), domain.ErrImageNotFound)
	})
}

func imageIDs(images []*domain.ProductImage) []string {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids
}

func TestMemoryImageRepository(t *testing.T) {
	testImageRepository(t, NewMemoryImageRepository(), NewMemoryProductRepository())
}

func TestMemoryImageRepositoryIsNotBatcher(t *testing.T) {
	_, ok := NewMemoryImageRepository().(SortOrderBatcher)
	assert.False(t, ok)
}

func TestMemoryImageRepositoryHonoursCancelledContext(t *testing.T) {
	repo := NewMemoryImageRepository()
	img := addImage(t, repo, uuid.NewString(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repo.UpdateSortOrder(ctx, img.ID, 3), context.Canceled)

	got, err := repo.GetByID(context.Background(), img.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SortOrder)
}

func TestMemorySubscriberRepository(t *testing.T) {
	testSubscriberRepository(t, NewMemorySubscriberRepository())
}

func testSubscriberRepository(t *testing.T, repo SubscriberRepository) {
	ctx := context.Background()
	email := uuid.NewString()[:8] + "@example.com"

	s := &domain.Subscriber{Email: email, Source: domain.SourceWebsite}
	require.NoError(t, repo.Add(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	err := repo.Add(ctx, &domain.Subscriber{Email: email, Source: domain.SourceWebsite})
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
}
