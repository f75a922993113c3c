package repository

import (
	"context"
	"database/sql"

	"github.com/eveul/storefront/internal/domain"
	"github.com/google/uuid"
)

type postgresSubscriberRepository struct{ db *sql.DB }

func NewPostgresSubscriberRepository(db *sql.DB) SubscriberRepository {
	return &postgresSubscriberRepository{db: db}
}

func (r *postgresSubscriberRepository) Add(ctx context.Context, s *domain.Subscriber) error {
	id := uuid.New()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO newsletter_subscribers (id, email, source)
		VALUES ($1,$2,$3)
		RETURNING created_at`,
		id, s.Email, s.Source,
	).Scan(&s.CreatedAt)
	if _, ok := uniqueViolation(err); ok {
		return domain.ErrAlreadySubscribed
	}
	if err != nil {
		return err
	}
	s.ID = id.String()
	return nil
}
