package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"listwisdom-backend/internal/archive/domain"
	"listwisdom-backend/internal/archive/repository"
	"listwisdom-backend/pkg/fuzzy"
	"listwisdom-backend/pkg/mbox"
	"listwisdom-backend/pkg/scraper"
	"listwisdom-backend/pkg/vectors"
)

// archiveUsecase implements ArchiveUsecase
type archiveUsecase struct {
	archiveRepo repository.ArchiveRepository
	messageRepo repository.MessageRepository
	vectorRepo  repository.VectorRepository
	store       *vectors.Store
	tracker     *SyncTracker

	fetchTimeout     time.Duration
	minVectorContent int
	backfillBatch    int

	// replaced in tests
	newFetcher func(baseURL string) MonthFetcher
}

// NewArchiveUsecase creates a new instance of archiveUsecase
func NewArchiveUsecase(
	archiveRepo repository.ArchiveRepository,
	messageRepo repository.MessageRepository,
	vectorRepo repository.VectorRepository,
	store *vectors.Store,
	fetchTimeout time.Duration,
	minVectorContent int,
	backfillBatch int,
) ArchiveUsecase {
	return &archiveUsecase{
		archiveRepo:      archiveRepo,
		messageRepo:      messageRepo,
		vectorRepo:       vectorRepo,
		store:            store,
		tracker:          NewSyncTracker(),
		fetchTimeout:     fetchTimeout,
		minVectorContent: minVectorContent,
		backfillBatch:    backfillBatch,
		newFetcher: func(baseURL string) MonthFetcher {
			return scraper.New(baseURL, fetchTimeout)
		},
	}
}

func (u *archiveUsecase) CreateArchive(name, url, description string) (*domain.Archive, error) {
	existing, err := u.archiveRepo.FindByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrArchiveExists
	}

	archive := &domain.Archive{
		ID:          uuid.New().String(),
		Name:        name,
		URL:         url,
		Description: description,
	}
	if err := u.archiveRepo.Create(archive); err != nil {
		return nil, err
	}
	return archive, nil
}

func (u *archiveUsecase) ListArchives() ([]*domain.Archive, error) {
	archives, err := u.archiveRepo.FindAll()
	if err != nil {
		return nil, err
	}
	for _, archive := range archives {
		count, err := u.messageRepo.CountByArchive(archive.ID)
		if err != nil {
			return nil, err
		}
		archive.MessageCount = count
	}
	return archives, nil
}

func (u *archiveUsecase) GetArchive(id string) (*domain.Archive, error) {
	archive, err := u.archiveRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if archive == nil {
		return nil, ErrNotFound
	}

	count, err := u.messageRepo.CountByArchive(id)
	if err != nil {
		return nil, err
	}
	archive.MessageCount = count
	return archive, nil
}

func (u *archiveUsecase) DeleteArchive(id string) error {
	archive, err := u.archiveRepo.FindByID(id)
	if err != nil {
		return err
	}
	if archive == nil {
		return ErrNotFound
	}

	u.store.DeleteArchiveVectors(context.Background(), id)
	if err := u.messageRepo.DeleteByArchive(id); err != nil {
		return err
	}
	return u.archiveRepo.Delete(id)
}

func (u *archiveUsecase) StartSync(id string) error {
	archive, err := u.archiveRepo.FindByID(id)
	if err != nil {
		return err
	}
	if archive == nil {
		return ErrNotFound
	}
	if archive.URL == "" {
		return ErrNoRemoteURL
	}
	// Registration is atomic: of two racing requests exactly one wins the
	// tracker slot, the other gets the conflict
	if !u.tracker.Begin(id, 0) {
		return ErrSyncRunning
	}
	go u.runRemoteSync(context.Background(), archive)
	return nil
}

// runRemoteSync downloads and ingests every month of a remote archive. It
// runs detached from the originating request.
func (u *archiveUsecase) runRemoteSync(ctx context.Context, archive *domain.Archive) {
	defer u.tracker.Complete(archive.ID)

	fetcher := u.newFetcher(archive.URL)
	months, err := fetcher.DiscoverMonths(ctx)
	if err != nil {
		log.Printf("[ArchiveSync] Failed to discover months for %s: %v", archive.Name, err)
		return
	}
	if len(months) == 0 {
		log.Printf("[ArchiveSync] No downloadable months found for %s", archive.Name)
		return
	}

	u.tracker.SetTotal(archive.ID, len(months))

	// A full re-sync replaces the archive's vectors wholesale
	u.store.DeleteArchiveVectors(ctx, archive.ID)

	stored := 0
	for _, month := range months {
		u.tracker.Advance(archive.ID, month.Label)

		data := fetcher.FetchMonth(ctx, month.URL)
		if data == "" {
			continue
		}

		created, vectorized := u.ingestMboxData(ctx, archive.ID, []byte(data))
		stored += created
		log.Printf("[ArchiveSync] %s %s: stored %d messages, vectorized %d", archive.Name, month.Label, created, vectorized)
	}

	// A sync that found nothing new still counts as a successful fetch;
	// gating this on new messages would leave the archive looking
	// permanently stale
	if err := u.archiveRepo.UpdateLastFetched(archive.ID, time.Now()); err != nil {
		log.Printf("[ArchiveSync] Failed to update last_fetched for %s: %v", archive.Name, err)
	}
	log.Printf("[ArchiveSync] Finished %s: %d new messages", archive.Name, stored)
}

// ingestMboxData parses raw mbox data and stores messages and vectors.
// Returns how many new messages were created and how many got embeddings.
func (u *archiveUsecase) ingestMboxData(ctx context.Context, archiveID string, data []byte) (created, vectorized int) {
	for _, msg := range mbox.Parse(data) {
		record := &domain.Message{
			ArchiveID: archiveID,
			MessageID: msg.MessageID,
			ThreadID:  msg.ThreadID,
			Subject:   msg.Subject,
			Author:    msg.Author,
			Date:      msg.Date,
			Content:   msg.Content,
		}

		isNew, err := u.messageRepo.Upsert(record)
		if err != nil {
			log.Printf("[ArchiveSync] Failed to store message %s: %v", msg.MessageID, err)
			continue
		}
		if isNew {
			created++
		}

		// Very short messages ("+1", "me too") are noise in the index;
		// only bodies longer than the minimum get embedded
		if len(msg.Content) <= u.minVectorContent {
			continue
		}

		ok := u.store.UpsertMessageVector(ctx, record.ID, msg.Content, vectors.Metadata{
			MessageID: msg.MessageID,
			Subject:   msg.Subject,
			Author:    msg.Author,
			Date:      msg.Date.Format(time.RFC3339),
			ArchiveID: archiveID,
			ThreadID:  msg.ThreadID,
		})
		if ok {
			vectorized++
		}
	}
	return created, vectorized
}

func (u *archiveUsecase) UploadArchive(name string, data []byte) (*domain.Archive, error) {
	existing, err := u.archiveRepo.FindByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrArchiveExists
	}

	archive := &domain.Archive{
		ID:          uuid.New().String(),
		Name:        name,
		Description: "Uploaded mbox archive",
	}
	if err := u.archiveRepo.Create(archive); err != nil {
		return nil, err
	}

	u.tracker.Begin(archive.ID, 1)
	go func() {
		ctx := context.Background()
		defer u.tracker.Complete(archive.ID)

		u.tracker.Advance(archive.ID, "upload")
		created, vectorized := u.ingestMboxData(ctx, archive.ID, data)
		if err := u.archiveRepo.UpdateLastFetched(archive.ID, time.Now()); err != nil {
			log.Printf("[ArchiveSync] Failed to update last_fetched for %s: %v", archive.Name, err)
		}
		log.Printf("[ArchiveSync] Upload %s: stored %d messages, vectorized %d", archive.Name, created, vectorized)
	}()

	return archive, nil
}

func (u *archiveUsecase) SyncStatuses() []SyncStatus {
	return u.tracker.All()
}

func (u *archiveUsecase) SearchMessages(ctx context.Context, query string, limit int, archiveID string) []vectors.SearchResult {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	// Over-fetch so thread dedupe can still fill the requested page
	results := u.store.Search(ctx, query, limit*3)
	if archiveID != "" {
		filtered := make([]vectors.SearchResult, 0, len(results))
		for _, r := range results {
			if r.Meta.ArchiveID == archiveID {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	return u.store.DedupeByThread(results, limit)
}

// keywordCandidateLimit bounds how many stored messages one keyword search
// scores in memory
const keywordCandidateLimit = 2000

func (u *archiveUsecase) KeywordSearch(query string, limit int, archiveID string) ([]*domain.Message, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	candidates, err := u.messageRepo.ListByArchive(archiveID, keywordCandidateLimit)
	if err != nil {
		return nil, err
	}

	type scored struct {
		message *domain.Message
		score   float64
	}
	var matches []scored
	for _, msg := range candidates {
		score := fuzzy.ScoreMessage(query, msg.Subject, msg.Author, msg.Content)
		if score > 0 {
			matches = append(matches, scored{message: msg, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]*domain.Message, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.message)
	}
	return results, nil
}

func (u *archiveUsecase) ClusterTopics(ctx context.Context, archiveID string, topicCount int) []vectors.TopicCluster {
	return u.store.Cluster(ctx, archiveID, topicCount)
}

func (u *archiveUsecase) SimilarMessages(ctx context.Context, messageID string, limit int) ([]vectors.SearchResult, error) {
	message, err := u.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}
	if limit <= 0 {
		limit = 5
	}

	query := fmt.Sprintf("Subject: %s\n\n%s", message.Subject, message.Content)
	results := u.store.Search(ctx, query, limit*3+1)

	// The message is its own best match; drop it before deduping
	others := make([]vectors.SearchResult, 0, len(results))
	for _, r := range results {
		if r.ID == message.ID || r.Meta.MessageID == message.MessageID {
			continue
		}
		others = append(others, r)
	}
	return u.store.DedupeByThread(others, limit), nil
}

func (u *archiveUsecase) BackfillVectors(ctx context.Context) (int, error) {
	return vectors.NewBackfiller(u.store, u.vectorRepo, u.backfillBatch).Run(ctx)
}

func (u *archiveUsecase) VectorStats(ctx context.Context) vectors.Stats {
	return u.store.Stats(ctx)
}
