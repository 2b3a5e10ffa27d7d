package usecase

import (
	"context"
	"errors"

	"listwisdom-backend/internal/archive/domain"
	"listwisdom-backend/pkg/scraper"
	"listwisdom-backend/pkg/vectors"
)

var (
	ErrNotFound        = errors.New("archive not found")
	ErrSyncRunning     = errors.New("sync already running")
	ErrArchiveExists   = errors.New("archive already exists")
	ErrNoRemoteURL     = errors.New("archive has no remote url")
	ErrMessageNotFound = errors.New("message not found")
)

// MonthFetcher abstracts the archive scraper so syncs are testable
type MonthFetcher interface {
	DiscoverMonths(ctx context.Context) ([]scraper.Month, error)
	FetchMonth(ctx context.Context, url string) string
}

// ArchiveUsecase defines the archive ingestion and search business logic
type ArchiveUsecase interface {
	// CreateArchive registers a remote archive source
	CreateArchive(name, url, description string) (*domain.Archive, error)

	// ListArchives returns every archive with its message count
	ListArchives() ([]*domain.Archive, error)

	// GetArchive returns one archive with its message count
	GetArchive(id string) (*domain.Archive, error)

	// DeleteArchive removes an archive, its messages and its vectors
	DeleteArchive(id string) error

	// StartSync kicks off a detached background sync for a remote archive.
	// Returns ErrSyncRunning when one is already in flight.
	StartSync(id string) error

	// UploadArchive registers a new archive and ingests uploaded mbox data
	// in the background
	UploadArchive(name string, data []byte) (*domain.Archive, error)

	// SyncStatuses returns the progress of every running sync
	SyncStatuses() []SyncStatus

	// SearchMessages runs a semantic search, deduplicated by thread
	SearchMessages(ctx context.Context, query string, limit int, archiveID string) []vectors.SearchResult

	// KeywordSearch runs a typo-tolerant keyword search over stored
	// messages; it works without an embedding provider
	KeywordSearch(query string, limit int, archiveID string) ([]*domain.Message, error)

	// ClusterTopics groups indexed messages under canonical topics
	ClusterTopics(ctx context.Context, archiveID string, topicCount int) []vectors.TopicCluster

	// SimilarMessages finds messages semantically close to a stored one
	SimilarMessages(ctx context.Context, messageID string, limit int) ([]vectors.SearchResult, error)

	// BackfillVectors embeds stored messages that have no vector yet
	BackfillVectors(ctx context.Context) (int, error)

	// VectorStats reports vector counts and embedding readiness
	VectorStats(ctx context.Context) vectors.Stats
}
