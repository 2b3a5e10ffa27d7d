package repository

import (
	"time"

	"listwisdom-backend/internal/archive/domain"
	"listwisdom-backend/pkg/vectors"
)

// ArchiveRepository defines data access for archive sources
type ArchiveRepository interface {
	// Create creates a new archive
	Create(archive *domain.Archive) error

	// FindAll returns every archive, newest first
	FindAll() ([]*domain.Archive, error)

	// FindByID finds an archive by ID, nil when absent
	FindByID(id string) (*domain.Archive, error)

	// FindByName finds an archive by its unique name, nil when absent
	FindByName(name string) (*domain.Archive, error)

	// UpdateLastFetched records a successful sync time
	UpdateLastFetched(id string, at time.Time) error

	// Delete deletes an archive by ID
	Delete(id string) error
}

// MessageRepository defines data access for parsed messages
type MessageRepository interface {
	// Upsert stores a message keyed by its stable message identity.
	// Returns true when a new row was created.
	Upsert(message *domain.Message) (bool, error)

	// FindByID finds a message by its row ID, nil when absent
	FindByID(id string) (*domain.Message, error)

	// CountByArchive counts stored messages for an archive
	CountByArchive(archiveID string) (int64, error)

	// ListByArchive returns up to limit messages, newest first. An empty
	// archiveID lists across all archives.
	ListByArchive(archiveID string, limit int) ([]*domain.Message, error)

	// DeleteByArchive deletes all messages belonging to an archive
	DeleteByArchive(archiveID string) error
}

// VectorRepository persists embeddings. It satisfies both the vector store's
// persistence interface and the backfiller's message source.
type VectorRepository interface {
	vectors.Persistence
	vectors.MessageSource
}
