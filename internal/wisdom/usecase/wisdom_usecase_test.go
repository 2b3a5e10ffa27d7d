package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listwisdom-backend/internal/wisdom/domain"
	"listwisdom-backend/pkg/ai"
	"listwisdom-backend/pkg/vectors"
)

type stubProvider struct {
	ready   bool
	text    string
	textErr error
}

func (p *stubProvider) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (p *stubProvider) GenerateText(_ context.Context, _ []ai.Message, _ *ai.Options) (string, error) {
	return p.text, p.textErr
}

func (p *stubProvider) IsReady() bool { return p.ready }

type memPersistence struct {
	mu          sync.Mutex
	savedWisdom map[string][]float32
}

func (m *memPersistence) SaveMessageVector(_ context.Context, _ string, _ []float32, _ string) error {
	return nil
}

func (m *memPersistence) SaveWisdomVector(_ context.Context, wisdomID string, embedding []float32, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedWisdom[wisdomID] = embedding
	return nil
}

func (m *memPersistence) LoadMessageVectors(_ context.Context, _ int) ([]vectors.Entry, error) {
	return nil, nil
}

func (m *memPersistence) LoadWisdomVectors(_ context.Context) ([]vectors.WisdomEntry, error) {
	return nil, nil
}

func (m *memPersistence) DeleteMessageVectorsByArchive(_ context.Context, _ string) error {
	return nil
}

func (m *memPersistence) CountVectors(_ context.Context) (int64, int64, error) {
	return 0, 0, nil
}

type fakeWisdomRepo struct {
	mu      sync.Mutex
	created []*domain.Wisdom
}

func (r *fakeWisdomRepo) Create(wisdom *domain.Wisdom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wisdom.ID == "" {
		wisdom.ID = "wisdom-1"
	}
	wisdom.CreatedAt = time.Now()
	copied := *wisdom
	r.created = append(r.created, &copied)
	return nil
}

func (r *fakeWisdomRepo) FindRandom() (*domain.Wisdom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.created) == 0 {
		return nil, nil
	}
	return r.created[0], nil
}

func (r *fakeWisdomRepo) FindLatest(limit int) ([]*domain.Wisdom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.created) > limit {
		return r.created[:limit], nil
	}
	return r.created, nil
}

func newTestWisdomUsecase(provider *stubProvider) (WisdomUsecase, *fakeWisdomRepo, *vectors.Store, *memPersistence) {
	persistence := &memPersistence{savedWisdom: make(map[string][]float32)}
	store := vectors.NewStore(provider, persistence, 1000)
	repo := &fakeWisdomRepo{}
	return NewWisdomUsecase(repo, store, provider), repo, store, persistence
}

func seedMessages(t *testing.T, store *vectors.Store) {
	t.Helper()
	ctx := context.Background()
	require.True(t, store.UpsertMessageVector(ctx, "row-1", "bgp flapped all night, turned out to be a faulty optic", vectors.Metadata{MessageID: "a@x", Subject: "BGP flap", Author: "Alice", ThreadID: "t1"}))
	require.True(t, store.UpsertMessageVector(ctx, "row-2", "we keep a spare optic in every pop since that incident", vectors.Metadata{MessageID: "b@x", Subject: "Re: BGP flap", Author: "Bob", ThreadID: "t2"}))
}

func TestGenerateWisdom(t *testing.T) {
	provider := &stubProvider{ready: true, text: "  Spare optics are cheaper than sleepless nights.  "}
	u, repo, store, persistence := newTestWisdomUsecase(provider)
	seedMessages(t, store)

	wisdom, err := u.Generate(context.Background(), "bgp failures", "humorous", 5)
	require.NoError(t, err)

	assert.Equal(t, "Spare optics are cheaper than sleepless nights.", wisdom.Content)
	assert.Equal(t, domain.StyleHumorous, wisdom.Style)
	assert.Equal(t, 2, wisdom.SourceCount)
	require.Len(t, repo.created, 1)
	assert.Contains(t, persistence.savedWisdom, wisdom.ID)
}

func TestGenerateWisdomUnknownStyleDefaultsToInsightful(t *testing.T) {
	provider := &stubProvider{ready: true, text: "quote"}
	u, _, store, _ := newTestWisdomUsecase(provider)
	seedMessages(t, store)

	wisdom, err := u.Generate(context.Background(), "bgp", "grumpy", 5)
	require.NoError(t, err)
	assert.Equal(t, domain.StyleInsightful, wisdom.Style)
}

func TestGenerateWisdomWithoutSources(t *testing.T) {
	provider := &stubProvider{ready: true, text: "quote"}
	u, repo, _, _ := newTestWisdomUsecase(provider)

	_, err := u.Generate(context.Background(), "bgp", "insightful", 5)
	assert.Error(t, err)
	assert.Empty(t, repo.created)
}

func TestGenerateWisdomProviderNotReady(t *testing.T) {
	u, _, _, _ := newTestWisdomUsecase(&stubProvider{ready: false})

	_, err := u.Generate(context.Background(), "bgp", "insightful", 5)
	assert.ErrorIs(t, err, ErrProviderNotReady)
}

func TestGenerateWisdomFallsBackWhenGenerationFails(t *testing.T) {
	provider := &stubProvider{ready: true, textErr: errors.New("model overloaded")}
	u, repo, store, _ := newTestWisdomUsecase(provider)
	seedMessages(t, store)

	wisdom, err := u.Generate(context.Background(), "bgp", "sarcastic", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, wisdom.Content)
	require.Len(t, repo.created, 1)
}
