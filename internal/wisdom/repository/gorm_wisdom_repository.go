package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"listwisdom-backend/internal/wisdom/domain"
)

// gormWisdomRepository implements WisdomRepository using GORM
type gormWisdomRepository struct {
	db *gorm.DB
}

// NewGormWisdomRepository creates a new GORM-based WisdomRepository
func NewGormWisdomRepository(db *gorm.DB) WisdomRepository {
	db.AutoMigrate(&domain.Wisdom{})
	return &gormWisdomRepository{db: db}
}

func (r *gormWisdomRepository) Create(wisdom *domain.Wisdom) error {
	if wisdom.ID == "" {
		wisdom.ID = uuid.New().String()
	}
	wisdom.CreatedAt = time.Now()
	return r.db.Create(wisdom).Error
}

func (r *gormWisdomRepository) FindLatest(limit int) ([]*domain.Wisdom, error) {
	var items []*domain.Wisdom
	err := r.db.Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *gormWisdomRepository) FindRandom() (*domain.Wisdom, error) {
	var item domain.Wisdom
	err := r.db.Order("RANDOM()").First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}
