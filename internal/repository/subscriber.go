package repository

import (
	"context"
	"sync"
	"time"

	"github.com/eveul/storefront/internal/domain"
	"github.com/google/uuid"
)

type memorySubscriberRepository struct {
	byEmail map[string]*domain.Subscriber
	mutex   sync.Mutex
}

func NewMemorySubscriberRepository() SubscriberRepository {
	return &memorySubscriberRepository{byEmail: make(map[string]*domain.Subscriber)}
}

func (r *memorySubscriberRepository) Add(ctx context.Context, subscriber *domain.Subscriber) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.byEmail[subscriber.Email]; ok {
		return domain.ErrAlreadySubscribed
	}

	subscriber.ID = uuid.NewString()
	subscriber.CreatedAt = time.Now().UTC()
	stored := *subscriber
	r.byEmail[subscriber.Email] = &stored
	return nil
}
