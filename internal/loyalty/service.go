package loyalty

import (
	"context"
	"strings"
	"time"
)

// Service is the loyalty ledger. Stars are granted by explicit administrator
// action only; nothing here listens to booking or confirmation events.
type Service struct {
	repo     Repository
	location *time.Location
}

func NewService(repo Repository, location *time.Location) *Service {
	return &Service{
		repo:     repo,
		location: location,
	}
}

func (s *Service) AddStar(ctx context.Context, contact, name string) (Card, error) {
	return s.repo.AddStar(ctx, normalizeContact(contact), strings.TrimSpace(name), time.Now().In(s.location))
}

func (s *Service) Redeem(ctx context.Context, contact string) (Card, error) {
	return s.repo.Redeem(ctx, normalizeContact(contact), time.Now().In(s.location))
}

func (s *Service) CreateCard(ctx context.Context, contact, name string, goal int) (Card, error) {
	if goal <= 0 {
		goal = DefaultGoal
	}
	now := time.Now().In(s.location)
	card := Card{
		Contact:   normalizeContact(contact),
		Name:      strings.TrimSpace(name),
		Stars:     0,
		Goal:      goal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, card); err != nil {
		return Card{}, err
	}
	return card, nil
}

func (s *Service) Get(ctx context.Context, contact string) (Card, error) {
	return s.repo.GetByContact(ctx, normalizeContact(contact))
}

func (s *Service) List(ctx context.Context, limit, offset int64) ([]Card, int64, error) {
	return s.repo.List(ctx, limit, offset)
}

func normalizeContact(contact string) string {
	return strings.TrimSpace(contact)
}
