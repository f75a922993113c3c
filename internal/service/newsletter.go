package service

import (
	"context"
	"errors"
	"strings"

	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/repository"
	"github.com/hashicorp/go-hclog"
)

// Subscription outcomes
const (
	SubscriptionCreated = "created"
	SubscriptionExists  = "exists"
)

// SubscribeResult tells whether the address was new
//
// swagger:model
type SubscribeResult struct {
	// created or exists
	Status  string `json:"status"`
	Message string `json:"message"`
}

type NewsletterService interface {
	Subscribe(ctx context.Context, email string) (*SubscribeResult, error)
}

type newsletterService struct {
	repo       repository.SubscriberRepository
	validation *domain.Validation
	logger     hclog.Logger
}

func NewNewsletterService(repo repository.SubscriberRepository, validation *domain.Validation, logger hclog.Logger) NewsletterService {
	return &newsletterService{repo: repo, validation: validation, logger: logger}
}

// Subscribe signs email up. Signing up twice is not an error.
func (s *newsletterService) Subscribe(ctx context.Context, email string) (*SubscribeResult, error) {
	const op = "service.Subscribe"

	subscriber := &domain.Subscriber{
		Email:  strings.ToLower(strings.TrimSpace(email)),
		Source: domain.SourceWebsite,
	}
	if errs := s.validation.Validate(subscriber); len(errs) > 0 {
		return nil, domain.E(domain.InvalidInput, op, "a valid email is required", errs)
	}

	err := s.repo.Add(ctx, subscriber)
	if errors.Is(err, domain.ErrAlreadySubscribed) {
		s.logger.Debug("Email already subscribed")
		return &SubscribeResult{Status: SubscriptionExists, Message: "You are already subscribed."}, nil
	}
	if err != nil {
		s.logger.Error("Unable to save subscriber", "error", err)
		return nil, domain.E(domain.PersistenceFailure, op, "unable to subscribe right now", err)
	}

	s.logger.Info("New newsletter subscriber", "id", subscriber.ID)
	return &SubscribeResult{Status: SubscriptionCreated, Message: "Thanks for subscribing."}, nil
}
