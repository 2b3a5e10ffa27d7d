package vectors

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"listwisdom-backend/pkg/ai"
)

// maxEmbedChars bounds the text sent to the embedding provider; embedding
// models have token limits and monthly digests can be enormous.
const maxEmbedChars = 8000

// probeSearchLimit is how many messages each clustering probe retrieves
const probeSearchLimit = 20

// Metadata describes the message a cached vector belongs to
type Metadata struct {
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	ArchiveID string `json:"archive_id"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// Entry is one cached message vector
type Entry struct {
	ID        string // message row id
	Embedding []float32
	Content   string
	Meta      Metadata
}

// WisdomEntry is one cached wisdom vector
type WisdomEntry struct {
	WisdomID  string
	Embedding []float32
	Content   string
}

// SearchResult is one ranked semantic search hit
type SearchResult struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Meta       Metadata `json:"metadata"`
	Similarity float64  `json:"similarity"`
}

// TopicCluster groups the messages matching one probe phrase
type TopicCluster struct {
	Topic    string         `json:"topic"`
	Messages []SearchResult `json:"messages"`
}

// Stats summarizes the persisted vector counts and provider readiness
type Stats struct {
	MessageVectors int64 `json:"message_vectors"`
	WisdomVectors  int64 `json:"wisdom_vectors"`
	Ready          bool  `json:"ready"`
}

// Persistence is the storage collaborator behind the in-memory cache
type Persistence interface {
	SaveMessageVector(ctx context.Context, messageID string, embedding []float32, content string) error
	SaveWisdomVector(ctx context.Context, wisdomID string, embedding []float32, content string) error
	LoadMessageVectors(ctx context.Context, limit int) ([]Entry, error)
	LoadWisdomVectors(ctx context.Context) ([]WisdomEntry, error)
	DeleteMessageVectorsByArchive(ctx context.Context, archiveID string) error
	CountVectors(ctx context.Context) (messages, wisdom int64, err error)
}

// probeTopics is the fixed ordered list of canonical probe phrases used for
// topic clustering. Clustering here is semantic search against these labels,
// not unsupervised clustering.
var probeTopics = []string{
	"BGP routing issues",
	"DNS problems and configuration",
	"IPv6 deployment",
	"Network security incidents",
	"Peering and interconnection",
	"Hardware failures",
	"Performance optimization",
	"Outage post-mortems",
	"Configuration management",
	"Monitoring and alerting",
}

// Store embeds message and wisdom text through the pluggable AI provider,
// persists the vectors, and answers similarity queries from an in-memory
// cache. The cache is a flat scan, which is the scalability limit of this
// design: fine for mailing-list scale, not for millions of vectors.
type Store struct {
	provider    ai.Provider
	persistence Persistence
	loadLimit   int

	mu       sync.RWMutex
	messages map[string]Entry
	order    []string // insertion order; breaks similarity ties deterministically
	wisdom   map[string]WisdomEntry
	loaded   bool
}

// NewStore creates a vector store. loadLimit bounds how many persisted vectors
// are rehydrated into memory on first query.
func NewStore(provider ai.Provider, persistence Persistence, loadLimit int) *Store {
	if loadLimit <= 0 {
		loadLimit = 1000
	}
	return &Store{
		provider:    provider,
		persistence: persistence,
		loadLimit:   loadLimit,
		messages:    make(map[string]Entry),
		wisdom:      make(map[string]WisdomEntry),
	}
}

// IsReady reports whether the embedding provider is usable
func (s *Store) IsReady() bool {
	return s.provider != nil && s.provider.IsReady()
}

// Embed generates an embedding for text, truncating oversized input. Returns
// nil on any provider failure so callers can skip rather than abort.
func (s *Store) Embed(ctx context.Context, text string) []float32 {
	if !s.IsReady() {
		return nil
	}
	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}

	embedding, err := s.provider.GenerateEmbedding(ctx, text)
	if err != nil {
		log.Printf("[VectorStore] Embedding error: %v", err)
		return nil
	}
	if len(embedding) == 0 {
		return nil
	}
	return embedding
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|)
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// UpsertMessageVector embeds subject+content, persists the vector keyed by the
// stable message identity and mirrors it into the cache. Re-embedding the same
// owner replaces the previous vector. Returns false when embedding or
// persistence failed.
func (s *Store) UpsertMessageVector(ctx context.Context, id, content string, meta Metadata) bool {
	text := fmt.Sprintf("Subject: %s\n\n%s", meta.Subject, content)
	embedding := s.Embed(ctx, text)
	if embedding == nil {
		return false
	}

	if err := s.persistence.SaveMessageVector(ctx, meta.MessageID, embedding, content); err != nil {
		log.Printf("[VectorStore] Error persisting vector for message %s: %v", meta.MessageID, err)
		return false
	}

	s.mu.Lock()
	if _, exists := s.messages[id]; !exists {
		s.order = append(s.order, id)
	}
	s.messages[id] = Entry{ID: id, Embedding: embedding, Content: content, Meta: meta}
	s.mu.Unlock()

	return true
}

// UpsertWisdomVector embeds and stores the vector for a generated wisdom item
func (s *Store) UpsertWisdomVector(ctx context.Context, wisdomID, content string) bool {
	embedding := s.Embed(ctx, content)
	if embedding == nil {
		return false
	}

	if err := s.persistence.SaveWisdomVector(ctx, wisdomID, embedding, content); err != nil {
		log.Printf("[VectorStore] Error persisting vector for wisdom %s: %v", wisdomID, err)
		return false
	}

	s.mu.Lock()
	s.wisdom[wisdomID] = WisdomEntry{WisdomID: wisdomID, Embedding: embedding, Content: content}
	s.mu.Unlock()

	return true
}

// ensureLoaded lazily rehydrates the cache from persistence on first use.
// A failed load leaves the flag unset so the next query retries.
func (s *Store) ensureLoaded(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded || len(s.messages) > 0
	s.mu.RUnlock()
	if loaded {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded || len(s.messages) > 0 {
		return
	}

	entries, err := s.persistence.LoadMessageVectors(ctx, s.loadLimit)
	if err != nil {
		log.Printf("[VectorStore] Failed to load message vectors: %v", err)
		return
	}
	for _, entry := range entries {
		if _, exists := s.messages[entry.ID]; !exists {
			s.order = append(s.order, entry.ID)
		}
		s.messages[entry.ID] = entry
	}

	wisdomEntries, err := s.persistence.LoadWisdomVectors(ctx)
	if err != nil {
		log.Printf("[VectorStore] Failed to load wisdom vectors: %v", err)
	} else {
		for _, entry := range wisdomEntries {
			s.wisdom[entry.WisdomID] = entry
		}
	}

	s.loaded = true
	log.Printf("[VectorStore] Loaded %d message vectors and %d wisdom vectors", len(s.messages), len(s.wisdom))
}

// Search embeds the query and ranks every cached vector by cosine similarity,
// returning at most limit results in descending similarity order. Ties keep
// cache insertion order.
func (s *Store) Search(ctx context.Context, query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = 10
	}

	s.ensureLoaded(ctx)

	queryEmbedding := s.Embed(ctx, query)
	if queryEmbedding == nil {
		return nil
	}

	s.mu.RLock()
	results := make([]SearchResult, 0, len(s.order))
	for _, id := range s.order {
		entry := s.messages[id]
		results = append(results, SearchResult{
			ID:         entry.ID,
			Content:    entry.Content,
			Meta:       entry.Meta,
			Similarity: CosineSimilarity(queryEmbedding, entry.Embedding),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Cluster runs one search per probe phrase, optionally filtered to an
// archive, and truncates the probe list to topicCount. Probes with no
// matching messages are dropped.
func (s *Store) Cluster(ctx context.Context, archiveID string, topicCount int) []TopicCluster {
	if topicCount <= 0 || topicCount > len(probeTopics) {
		topicCount = len(probeTopics)
	}

	clusters := make([]TopicCluster, 0, topicCount)
	for _, topic := range probeTopics[:topicCount] {
		results := s.Search(ctx, topic, probeSearchLimit)

		if archiveID != "" {
			filtered := make([]SearchResult, 0, len(results))
			for _, r := range results {
				if r.Meta.ArchiveID == archiveID {
					filtered = append(filtered, r)
				}
			}
			results = filtered
		}

		if len(results) == 0 {
			continue
		}
		clusters = append(clusters, TopicCluster{Topic: topic, Messages: results})
	}

	return clusters
}

// DedupeByThread keeps the first occurrence of each thread in ranked order,
// falling back to the message identity when no thread id exists, and stops
// once limit results are kept.
func (s *Store) DedupeByThread(results []SearchResult, limit int) []SearchResult {
	seen := make(map[string]bool)
	kept := make([]SearchResult, 0, limit)

	for _, result := range results {
		key := result.Meta.ThreadID
		if key == "" {
			key = result.Meta.MessageID
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, result)
		if len(kept) >= limit {
			break
		}
	}
	return kept
}

// DeleteArchiveVectors removes every cached and persisted vector belonging to
// an archive. Used on archive deletion and before a re-sync.
func (s *Store) DeleteArchiveVectors(ctx context.Context, archiveID string) {
	if err := s.persistence.DeleteMessageVectorsByArchive(ctx, archiveID); err != nil {
		log.Printf("[VectorStore] Error deleting persisted vectors for archive %s: %v", archiveID, err)
	}

	s.mu.Lock()
	removed := 0
	order := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if s.messages[id].Meta.ArchiveID == archiveID {
			delete(s.messages, id)
			removed++
			continue
		}
		order = append(order, id)
	}
	s.order = order
	s.mu.Unlock()

	log.Printf("[VectorStore] Deleted %d cached vectors for archive %s", removed, archiveID)
}

// Stats returns persisted vector counts, falling back to cache sizes when the
// persistence collaborator is unavailable.
func (s *Store) Stats(ctx context.Context) Stats {
	messages, wisdom, err := s.persistence.CountVectors(ctx)
	if err != nil {
		s.mu.RLock()
		messages = int64(len(s.messages))
		wisdom = int64(len(s.wisdom))
		s.mu.RUnlock()
	}
	return Stats{MessageVectors: messages, WisdomVectors: wisdom, Ready: s.IsReady()}
}
