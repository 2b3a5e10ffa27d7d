package repository

import "listwisdom-backend/internal/wisdom/domain"

// WisdomRepository defines data access for generated wisdom
type WisdomRepository interface {
	// Create stores a generated wisdom item
	Create(wisdom *domain.Wisdom) error

	// FindLatest returns the most recent wisdom items
	FindLatest(limit int) ([]*domain.Wisdom, error)

	// FindRandom returns one random wisdom item, nil when none exist
	FindRandom() (*domain.Wisdom, error)
}
