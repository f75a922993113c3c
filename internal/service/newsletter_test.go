package service

import (
	"context"
	"testing"

	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/repository"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe(t *testing.T) {
	svc := NewNewsletterService(repository.NewMemorySubscriberRepository(), domain.NewValidation(), hclog.NewNullLogger())
	ctx := context.Background()

	res, err := svc.Subscribe(ctx, "  Ana@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionCreated, res.Status)

	res, err = svc.Subscribe(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, SubscriptionExists, res.Status)
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	svc := NewNewsletterService(repository.NewMemorySubscriberRepository(), domain.NewValidation(), hclog.NewNullLogger())

	for _, email := range []string{"", "   ", "not-an-email", "a@"} {
		t.Run(email, func(t *testing.T) {
			_, err := svc.Subscribe(context.Background(), email)
			require.Error(t, err)
			assert.Equal(t, domain.InvalidInput, domain.KindOf(err))

			var verrs domain.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}
}
