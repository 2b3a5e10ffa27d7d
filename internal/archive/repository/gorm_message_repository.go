package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"listwisdom-backend/internal/archive/domain"
)

// gormMessageRepository implements MessageRepository using GORM
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based MessageRepository
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	db.AutoMigrate(&domain.Message{})
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Upsert(message *domain.Message) (bool, error) {
	var existing domain.Message
	err := r.db.Where("message_id = ?", message.MessageID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if message.ID == "" {
			message.ID = uuid.New().String()
		}
		message.CreatedAt = time.Now()
		message.UpdatedAt = time.Now()
		return true, r.db.Create(message).Error
	}
	if err != nil {
		return false, err
	}

	// Re-sync of an already-stored message: keep its row identity
	message.ID = existing.ID
	message.CreatedAt = existing.CreatedAt
	message.UpdatedAt = time.Now()
	return false, r.db.Save(message).Error
}

func (r *gormMessageRepository) FindByID(id string) (*domain.Message, error) {
	var message domain.Message
	err := r.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *gormMessageRepository) CountByArchive(archiveID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).Where("archive_id = ?", archiveID).Count(&count).Error
	return count, err
}

func (r *gormMessageRepository) ListByArchive(archiveID string, limit int) ([]*domain.Message, error) {
	var messages []*domain.Message
	query := r.db.Order("date DESC")
	if archiveID != "" {
		query = query.Where("archive_id = ?", archiveID)
	}
	err := query.Limit(limit).Find(&messages).Error
	return messages, err
}

func (r *gormMessageRepository) DeleteByArchive(archiveID string) error {
	return r.db.Where("archive_id = ?", archiveID).Delete(&domain.Message{}).Error
}
