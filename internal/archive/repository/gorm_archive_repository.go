package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"listwisdom-backend/internal/archive/domain"
)

// gormArchiveRepository implements ArchiveRepository using GORM
type gormArchiveRepository struct {
	db *gorm.DB
}

// NewGormArchiveRepository creates a new GORM-based ArchiveRepository
func NewGormArchiveRepository(db *gorm.DB) ArchiveRepository {
	db.AutoMigrate(&domain.Archive{})
	return &gormArchiveRepository{db: db}
}

func (r *gormArchiveRepository) Create(archive *domain.Archive) error {
	if archive.ID == "" {
		archive.ID = uuid.New().String()
	}
	archive.CreatedAt = time.Now()
	archive.UpdatedAt = time.Now()
	return r.db.Create(archive).Error
}

func (r *gormArchiveRepository) FindAll() ([]*domain.Archive, error) {
	var archives []*domain.Archive
	err := r.db.Order("created_at DESC").Find(&archives).Error
	return archives, err
}

func (r *gormArchiveRepository) FindByID(id string) (*domain.Archive, error) {
	var archive domain.Archive
	err := r.db.Where("id = ?", id).First(&archive).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &archive, nil
}

func (r *gormArchiveRepository) FindByName(name string) (*domain.Archive, error) {
	var archive domain.Archive
	err := r.db.Where("name = ?", name).First(&archive).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &archive, nil
}

func (r *gormArchiveRepository) UpdateLastFetched(id string, at time.Time) error {
	return r.db.Model(&domain.Archive{}).Where("id = ?", id).
		Updates(map[string]interface{}{"last_fetched": at, "updated_at": time.Now()}).Error
}

func (r *gormArchiveRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.Archive{}).Error
}
