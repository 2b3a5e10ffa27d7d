package repository

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"listwisdom-backend/internal/archive/domain"
	"listwisdom-backend/pkg/vectors"
)

// gormVectorRepository implements VectorRepository using GORM. Embeddings are
// stored as JSON text so the schema works on stock Postgres.
type gormVectorRepository struct {
	db *gorm.DB
}

// NewGormVectorRepository creates a new GORM-based VectorRepository
func NewGormVectorRepository(db *gorm.DB) VectorRepository {
	db.AutoMigrate(&domain.MessageVector{}, &domain.WisdomVector{})
	return &gormVectorRepository{db: db}
}

func (r *gormVectorRepository) SaveMessageVector(ctx context.Context, messageID string, embedding []float32, content string) error {
	encoded, err := json.Marshal(embedding)
	if err != nil {
		return err
	}

	db := r.db.WithContext(ctx)

	var existing domain.MessageVector
	err = db.Where("message_id = ?", messageID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&domain.MessageVector{
			ID:        uuid.New().String(),
			MessageID: messageID,
			Embedding: string(encoded),
			Content:   content,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}).Error
	}
	if err != nil {
		return err
	}

	existing.Embedding = string(encoded)
	existing.Content = content
	existing.UpdatedAt = time.Now()
	return db.Save(&existing).Error
}

func (r *gormVectorRepository) SaveWisdomVector(ctx context.Context, wisdomID string, embedding []float32, content string) error {
	encoded, err := json.Marshal(embedding)
	if err != nil {
		return err
	}

	db := r.db.WithContext(ctx)

	var existing domain.WisdomVector
	err = db.Where("wisdom_id = ?", wisdomID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&domain.WisdomVector{
			ID:        uuid.New().String(),
			WisdomID:  wisdomID,
			Embedding: string(encoded),
			Content:   content,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}).Error
	}
	if err != nil {
		return err
	}

	existing.Embedding = string(encoded)
	existing.Content = content
	existing.UpdatedAt = time.Now()
	return db.Save(&existing).Error
}

// messageVectorRow joins a persisted vector with the message it belongs to
type messageVectorRow struct {
	ID        string
	MessageID string
	ThreadID  string
	Subject   string
	Author    string
	Date      time.Time
	ArchiveID string
	Embedding string
	Content   string
}

func (r *gormVectorRepository) LoadMessageVectors(ctx context.Context, limit int) ([]vectors.Entry, error) {
	var rows []messageVectorRow
	err := r.db.WithContext(ctx).
		Table("message_vectors").
		Select("messages.id AS id, messages.message_id, messages.thread_id, messages.subject, messages.author, messages.date, messages.archive_id, message_vectors.embedding, message_vectors.content").
		Joins("JOIN messages ON messages.message_id = message_vectors.message_id").
		Order("message_vectors.created_at ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]vectors.Entry, 0, len(rows))
	for _, row := range rows {
		var embedding []float32
		if err := json.Unmarshal([]byte(row.Embedding), &embedding); err != nil {
			log.Printf("[VectorRepository] Skipping vector with corrupt embedding for message %s: %v", row.MessageID, err)
			continue
		}
		entries = append(entries, vectors.Entry{
			ID:        row.ID,
			Embedding: embedding,
			Content:   row.Content,
			Meta: vectors.Metadata{
				MessageID: row.MessageID,
				Subject:   row.Subject,
				Author:    row.Author,
				Date:      row.Date.Format(time.RFC3339),
				ArchiveID: row.ArchiveID,
				ThreadID:  row.ThreadID,
			},
		})
	}
	return entries, nil
}

func (r *gormVectorRepository) LoadWisdomVectors(ctx context.Context) ([]vectors.WisdomEntry, error) {
	var rows []domain.WisdomVector
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]vectors.WisdomEntry, 0, len(rows))
	for _, row := range rows {
		var embedding []float32
		if err := json.Unmarshal([]byte(row.Embedding), &embedding); err != nil {
			log.Printf("[VectorRepository] Skipping vector with corrupt embedding for wisdom %s: %v", row.WisdomID, err)
			continue
		}
		entries = append(entries, vectors.WisdomEntry{
			WisdomID:  row.WisdomID,
			Embedding: embedding,
			Content:   row.Content,
		})
	}
	return entries, nil
}

func (r *gormVectorRepository) DeleteMessageVectorsByArchive(ctx context.Context, archiveID string) error {
	subquery := r.db.Model(&domain.Message{}).Select("message_id").Where("archive_id = ?", archiveID)
	return r.db.WithContext(ctx).
		Where("message_id IN (?)", subquery).
		Delete(&domain.MessageVector{}).Error
}

func (r *gormVectorRepository) CountVectors(ctx context.Context) (int64, int64, error) {
	var messages, wisdom int64
	if err := r.db.WithContext(ctx).Model(&domain.MessageVector{}).Count(&messages).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&domain.WisdomVector{}).Count(&wisdom).Error; err != nil {
		return 0, 0, err
	}
	return messages, wisdom, nil
}

func (r *gormVectorRepository) ListMessagesWithoutVectors(ctx context.Context, limit, offset int) ([]vectors.PendingMessage, error) {
	var rows []messageVectorRow
	err := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.id AS id, messages.message_id, messages.thread_id, messages.subject, messages.author, messages.date, messages.archive_id, messages.content").
		Joins("LEFT JOIN message_vectors ON message_vectors.message_id = messages.message_id").
		Where("message_vectors.id IS NULL").
		Order("messages.created_at ASC").
		Limit(limit).Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	pending := make([]vectors.PendingMessage, 0, len(rows))
	for _, row := range rows {
		pending = append(pending, vectors.PendingMessage{
			ID:        row.ID,
			MessageID: row.MessageID,
			Subject:   row.Subject,
			Author:    row.Author,
			Content:   row.Content,
			ArchiveID: row.ArchiveID,
			ThreadID:  row.ThreadID,
			Date:      row.Date,
		})
	}
	return pending, nil
}
