package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listwisdom-backend/internal/archive/domain"
	"listwisdom-backend/pkg/ai"
	"listwisdom-backend/pkg/scraper"
	"listwisdom-backend/pkg/vectors"
)

const sampleMbox = `From alice@example.com Mon Mar  4 10:00:00 2024
From: Alice <alice@example.com>
Subject: [AusNOG] BGP session flapping
Message-ID: <one@example.com>
Date: Mon, 4 Mar 2024 10:00:00 +1000

We are seeing BGP session resets on the Brisbane router since midnight.

From bob@example.net Mon Mar  4 11:00:00 2024
From: Bob <bob@example.net>
Subject: Re: [AusNOG] BGP session flapping
Message-ID: <two@example.com>
In-Reply-To: <one@example.com>
Date: Mon, 4 Mar 2024 11:00:00 +1000

> We are seeing BGP session resets
Same here, looks like an upstream transit issue to me.
`

// constantProvider embeds everything to the same vector; these tests care
// about orchestration, not ranking
type constantProvider struct{}

func (constantProvider) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (constantProvider) GenerateText(_ context.Context, _ []ai.Message, _ *ai.Options) (string, error) {
	return "", nil
}

func (constantProvider) IsReady() bool { return true }

type fakeArchiveRepo struct {
	mu          sync.Mutex
	archives    map[string]*domain.Archive
	lastFetched map[string]time.Time
}

func newFakeArchiveRepo() *fakeArchiveRepo {
	return &fakeArchiveRepo{
		archives:    make(map[string]*domain.Archive),
		lastFetched: make(map[string]time.Time),
	}
}

func (r *fakeArchiveRepo) Create(archive *domain.Archive) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *archive
	r.archives[archive.ID] = &copied
	return nil
}

func (r *fakeArchiveRepo) FindAll() ([]*domain.Archive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Archive
	for _, a := range r.archives {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeArchiveRepo) FindByID(id string) (*domain.Archive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.archives[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *fakeArchiveRepo) FindByName(name string) (*domain.Archive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.archives {
		if a.Name == name {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeArchiveRepo) UpdateLastFetched(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFetched[id] = at
	return nil
}

func (r *fakeArchiveRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.archives, id)
	return nil
}

func (r *fakeArchiveRepo) lastFetchedAt(id string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.lastFetched[id]
	return at, ok
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*domain.Message // keyed by message identity
	nextID   int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]*domain.Message)}
}

func (r *fakeMessageRepo) Upsert(message *domain.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.messages[message.MessageID]; ok {
		message.ID = existing.ID
		copied := *message
		r.messages[message.MessageID] = &copied
		return false, nil
	}

	r.nextID++
	message.ID = fmt.Sprintf("row-%d", r.nextID)
	copied := *message
	r.messages[message.MessageID] = &copied
	return true, nil
}

func (r *fakeMessageRepo) FindByID(id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) CountByArchive(archiveID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.messages {
		if m.ArchiveID == archiveID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) ListByArchive(archiveID string, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if archiveID != "" && m.ArchiveID != archiveID {
			continue
		}
		copied := *m
		out = append(out, &copied)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) DeleteByArchive(archiveID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, m := range r.messages {
		if m.ArchiveID == archiveID {
			delete(r.messages, key)
		}
	}
	return nil
}

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type fakeVectorRepo struct {
	mu              sync.Mutex
	savedMessages   map[string][]float32
	savedWisdom     map[string][]float32
	deletedArchives []string
	pending         []vectors.PendingMessage
}

func newFakeVectorRepo() *fakeVectorRepo {
	return &fakeVectorRepo{
		savedMessages: make(map[string][]float32),
		savedWisdom:   make(map[string][]float32),
	}
}

func (r *fakeVectorRepo) SaveMessageVector(_ context.Context, messageID string, embedding []float32, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savedMessages[messageID] = embedding
	return nil
}

func (r *fakeVectorRepo) SaveWisdomVector(_ context.Context, wisdomID string, embedding []float32, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.savedWisdom[wisdomID] = embedding
	return nil
}

func (r *fakeVectorRepo) LoadMessageVectors(_ context.Context, _ int) ([]vectors.Entry, error) {
	return nil, nil
}

func (r *fakeVectorRepo) LoadWisdomVectors(_ context.Context) ([]vectors.WisdomEntry, error) {
	return nil, nil
}

func (r *fakeVectorRepo) DeleteMessageVectorsByArchive(_ context.Context, archiveID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedArchives = append(r.deletedArchives, archiveID)
	return nil
}

func (r *fakeVectorRepo) CountVectors(_ context.Context) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.savedMessages)), int64(len(r.savedWisdom)), nil
}

func (r *fakeVectorRepo) ListMessagesWithoutVectors(_ context.Context, limit, offset int) ([]vectors.PendingMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var remaining []vectors.PendingMessage
	for _, m := range r.pending {
		if _, done := r.savedMessages[m.MessageID]; done {
			continue
		}
		remaining = append(remaining, m)
	}
	if offset >= len(remaining) {
		return nil, nil
	}
	end := offset + limit
	if end > len(remaining) {
		end = len(remaining)
	}
	return remaining[offset:end], nil
}

func (r *fakeVectorRepo) savedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.savedMessages)
}

type stubFetcher struct {
	months      []scraper.Month
	data        map[string]string
	discoverErr error
	block       chan struct{} // when set, FetchMonth waits until closed
}

func (f *stubFetcher) DiscoverMonths(_ context.Context) ([]scraper.Month, error) {
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return f.months, nil
}

func (f *stubFetcher) FetchMonth(_ context.Context, url string) string {
	if f.block != nil {
		<-f.block
	}
	return f.data[url]
}

func newTestUsecase(fetcher MonthFetcher) (*archiveUsecase, *fakeArchiveRepo, *fakeMessageRepo, *fakeVectorRepo) {
	archiveRepo := newFakeArchiveRepo()
	messageRepo := newFakeMessageRepo()
	vectorRepo := newFakeVectorRepo()
	store := vectors.NewStore(constantProvider{}, vectorRepo, 1000)

	u := &archiveUsecase{
		archiveRepo:      archiveRepo,
		messageRepo:      messageRepo,
		vectorRepo:       vectorRepo,
		store:            store,
		tracker:          NewSyncTracker(),
		fetchTimeout:     time.Second,
		minVectorContent: 25,
		backfillBatch:    10,
		newFetcher:       func(string) MonthFetcher { return fetcher },
	}
	return u, archiveRepo, messageRepo, vectorRepo
}

func waitForSync(t *testing.T, u *archiveUsecase, archiveID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !u.tracker.IsRunning(archiveID)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCreateArchiveRejectsDuplicateName(t *testing.T) {
	u, _, _, _ := newTestUsecase(&stubFetcher{})

	_, err := u.CreateArchive("ausnog", "https://lists.example.com/pipermail/ausnog/", "")
	require.NoError(t, err)

	_, err = u.CreateArchive("ausnog", "https://elsewhere.example.com/", "")
	assert.ErrorIs(t, err, ErrArchiveExists)
}

func TestStartSyncValidation(t *testing.T) {
	u, archiveRepo, _, _ := newTestUsecase(&stubFetcher{})

	assert.ErrorIs(t, u.StartSync("missing"), ErrNotFound)

	// Uploaded archives have nothing to sync from
	uploaded := &domain.Archive{ID: "up-1", Name: "uploaded"}
	require.NoError(t, archiveRepo.Create(uploaded))
	assert.ErrorIs(t, u.StartSync("up-1"), ErrNoRemoteURL)
}

func TestStartSyncRejectsConcurrentSync(t *testing.T) {
	block := make(chan struct{})
	fetcher := &stubFetcher{
		months: []scraper.Month{{URL: "m1", Label: "2024-03"}},
		data:   map[string]string{"m1": sampleMbox},
		block:  block,
	}
	u, _, _, _ := newTestUsecase(fetcher)

	archive, err := u.CreateArchive("ausnog", "https://lists.example.com/pipermail/ausnog/", "")
	require.NoError(t, err)

	require.NoError(t, u.StartSync(archive.ID))
	assert.ErrorIs(t, u.StartSync(archive.ID), ErrSyncRunning)

	close(block)
	waitForSync(t, u, archive.ID)

	// A finished sync can be restarted
	require.NoError(t, u.StartSync(archive.ID))
	waitForSync(t, u, archive.ID)
}

func TestRemoteSyncIngestsMonths(t *testing.T) {
	fetcher := &stubFetcher{
		months: []scraper.Month{
			{URL: "m1", Label: "2024-03"},
			{URL: "m2", Label: "2024-02"}, // download fails soft
		},
		data: map[string]string{"m1": sampleMbox},
	}
	u, archiveRepo, messageRepo, vectorRepo := newTestUsecase(fetcher)

	archive, err := u.CreateArchive("ausnog", "https://lists.example.com/pipermail/ausnog/", "")
	require.NoError(t, err)

	require.NoError(t, u.StartSync(archive.ID))
	waitForSync(t, u, archive.ID)

	assert.Equal(t, 2, messageRepo.count())
	assert.Equal(t, 2, vectorRepo.savedCount())
	assert.Contains(t, vectorRepo.deletedArchives, archive.ID)

	_, fetched := archiveRepo.lastFetchedAt(archive.ID)
	assert.True(t, fetched)

	// Both messages belong to one thread, so search collapses them
	results := u.SearchMessages(context.Background(), "bgp flapping", 10, "")
	assert.Len(t, results, 1)
}

func TestRemoteSyncIsIdempotent(t *testing.T) {
	fetcher := &stubFetcher{
		months: []scraper.Month{{URL: "m1", Label: "2024-03"}},
		data:   map[string]string{"m1": sampleMbox},
	}
	u, _, messageRepo, _ := newTestUsecase(fetcher)

	archive, err := u.CreateArchive("ausnog", "https://lists.example.com/pipermail/ausnog/", "")
	require.NoError(t, err)

	require.NoError(t, u.StartSync(archive.ID))
	waitForSync(t, u, archive.ID)
	require.NoError(t, u.StartSync(archive.ID))
	waitForSync(t, u, archive.ID)

	assert.Equal(t, 2, messageRepo.count())
}

func TestStartSyncSingleFlightUnderContention(t *testing.T) {
	block := make(chan struct{})
	fetcher := &stubFetcher{
		months: []scraper.Month{{URL: "m1", Label: "2024-03"}},
		data:   map[string]string{"m1": sampleMbox},
		block:  block,
	}
	u, _, _, _ := newTestUsecase(fetcher)

	archive, err := u.CreateArchive("ausnog", "https://lists.example.com/pipermail/ausnog/", "")
	require.NoError(t, err)

	// Parallel requests race for the tracker slot; exactly one may win
	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- u.StartSync(archive.ID)
		}()
	}
	wg.Wait()
	close(errs)

	started := 0
	for err := range errs {
		if err == nil {
			started++
		} else {
			assert.ErrorIs(t, err, ErrSyncRunning)
		}
	}
	assert.Equal(t, 1, started)

	close(block)
	waitForSync(t, u, archive.ID)
}

func TestResyncRefreshesLastFetchedWithoutNewMessages(t *testing.T) {
	fetcher := &stubFetcher{
		months: []scraper.Month{{URL: "m1", Label: "2024-03"}},
		data:   map[string]string{"m1": sampleMbox},
	}
	u, archiveRepo, messageRepo, _ := newTestUsecase(fetcher)

	archive, err := u.CreateArchive("ausnog", "https://lists.example.com/pipermail/ausnog/", "")
	require.NoError(t, err)

	require.NoError(t, u.StartSync(archive.ID))
	waitForSync(t, u, archive.ID)
	first, ok := archiveRepo.lastFetchedAt(archive.ID)
	require.True(t, ok)

	// Re-syncing identical content creates no new rows but is still a
	// successful fetch; the timestamp must move or the archive looks
	// permanently stale to the resync scheduler
	require.NoError(t, u.StartSync(archive.ID))
	waitForSync(t, u, archive.ID)
	second, ok := archiveRepo.lastFetchedAt(archive.ID)
	require.True(t, ok)

	assert.Equal(t, 2, messageRepo.count())
	assert.True(t, second.After(first))
}

func TestUploadArchive(t *testing.T) {
	u, _, messageRepo, _ := newTestUsecase(&stubFetcher{})

	archive, err := u.UploadArchive("uploaded-list", []byte(sampleMbox))
	require.NoError(t, err)
	waitForSync(t, u, archive.ID)

	assert.Equal(t, 2, messageRepo.count())

	_, err = u.UploadArchive("uploaded-list", []byte(sampleMbox))
	assert.ErrorIs(t, err, ErrArchiveExists)
}

func TestIngestOnlyVectorizesBodiesAboveMinimumLength(t *testing.T) {
	u, _, messageRepo, vectorRepo := newTestUsecase(&stubFetcher{})

	// Body is exactly minVectorContent (25) characters: stored, not embedded
	shortMbox := `From carol@example.com Mon Mar  4 12:00:00 2024
From: Carol <carol@example.com>
Subject: [AusNOG] Ack
Message-ID: <three@example.com>
Date: Mon, 4 Mar 2024 12:00:00 +1000

Tiny ack, nothing useful.
`

	created, vectorized := u.ingestMboxData(context.Background(), "arch-1", []byte(shortMbox))
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, vectorized)
	assert.Equal(t, 1, messageRepo.count())
	assert.Equal(t, 0, vectorRepo.savedCount())
}

func TestDeleteArchiveCascades(t *testing.T) {
	fetcher := &stubFetcher{
		months: []scraper.Month{{URL: "m1", Label: "2024-03"}},
		data:   map[string]string{"m1": sampleMbox},
	}
	u, archiveRepo, messageRepo, vectorRepo := newTestUsecase(fetcher)

	archive, err := u.CreateArchive("ausnog", "https://lists.example.com/pipermail/ausnog/", "")
	require.NoError(t, err)
	require.NoError(t, u.StartSync(archive.ID))
	waitForSync(t, u, archive.ID)

	require.NoError(t, u.DeleteArchive(archive.ID))

	assert.Equal(t, 0, messageRepo.count())
	assert.Contains(t, vectorRepo.deletedArchives, archive.ID)
	gone, _ := archiveRepo.FindByID(archive.ID)
	assert.Nil(t, gone)

	assert.ErrorIs(t, u.DeleteArchive(archive.ID), ErrNotFound)
}

func TestSearchMessagesFiltersByArchive(t *testing.T) {
	u, _, _, _ := newTestUsecase(&stubFetcher{})
	ctx := context.Background()

	require.True(t, u.store.UpsertMessageVector(ctx, "row-1", "bgp talk in archive one", vectors.Metadata{MessageID: "a@x", ArchiveID: "arch-1", ThreadID: "t1"}))
	require.True(t, u.store.UpsertMessageVector(ctx, "row-2", "bgp talk in archive two", vectors.Metadata{MessageID: "b@x", ArchiveID: "arch-2", ThreadID: "t2"}))

	results := u.SearchMessages(ctx, "bgp", 10, "arch-1")
	require.Len(t, results, 1)
	assert.Equal(t, "row-1", results[0].ID)
}

func TestSimilarMessagesExcludesSelf(t *testing.T) {
	u, _, messageRepo, _ := newTestUsecase(&stubFetcher{})
	ctx := context.Background()

	msg := &domain.Message{ArchiveID: "arch-1", MessageID: "a@x", Subject: "BGP flap", Content: "long enough content about bgp resets"}
	_, err := messageRepo.Upsert(msg)
	require.NoError(t, err)

	require.True(t, u.store.UpsertMessageVector(ctx, msg.ID, msg.Content, vectors.Metadata{MessageID: "a@x", ArchiveID: "arch-1", ThreadID: "t1"}))
	require.True(t, u.store.UpsertMessageVector(ctx, "row-other", "different thread about dns", vectors.Metadata{MessageID: "b@x", ArchiveID: "arch-1", ThreadID: "t2"}))

	results, err := u.SimilarMessages(ctx, msg.ID, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "row-other", results[0].ID)

	_, err = u.SimilarMessages(ctx, "missing", 5)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestKeywordSearch(t *testing.T) {
	u, _, messageRepo, _ := newTestUsecase(&stubFetcher{})

	_, err := messageRepo.Upsert(&domain.Message{ArchiveID: "arch-1", MessageID: "a@x", Subject: "BGP session flapping", Author: "Alice", Content: "resets since midnight"})
	require.NoError(t, err)
	_, err = messageRepo.Upsert(&domain.Message{ArchiveID: "arch-1", MessageID: "b@x", Subject: "Maintenance window", Author: "Robert", Content: "scheduled downtime"})
	require.NoError(t, err)
	_, err = messageRepo.Upsert(&domain.Message{ArchiveID: "arch-2", MessageID: "c@x", Subject: "BGP peering", Author: "Carol", Content: "peering request"})
	require.NoError(t, err)

	// Typo-tolerant, subject-weighted
	results, err := u.KeywordSearch("bpg", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Archive filter
	results, err = u.KeywordSearch("bgp", 10, "arch-2")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c@x", results[0].MessageID)

	// No match
	results, err = u.KeywordSearch("kubernetes", 10, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBackfillVectors(t *testing.T) {
	u, _, _, vectorRepo := newTestUsecase(&stubFetcher{})

	vectorRepo.pending = []vectors.PendingMessage{
		{ID: "row-1", MessageID: "a@x", Subject: "BGP", Content: "pending message body", ArchiveID: "arch-1", Date: time.Now()},
	}

	generated, err := u.BackfillVectors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, generated)
	assert.Equal(t, 1, vectorRepo.savedCount())
}
