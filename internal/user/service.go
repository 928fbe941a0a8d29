package user

import (
	"context"
)

// Service defines read-only business logic related to user profiles.
type Service interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int) (*User, error)
}

type service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *service) GetByID(ctx context.Context, id int) (*User, error) {
	if id < 1 {
		return nil, ErrInvalidID
	}
	return s.repo.GetByID(ctx, id)
}
