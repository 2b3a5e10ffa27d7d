package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"listwisdom-backend/internal/wisdom/domain"
	"listwisdom-backend/internal/wisdom/repository"
	"listwisdom-backend/pkg/ai"
	"listwisdom-backend/pkg/vectors"
)

var ErrProviderNotReady = errors.New("ai provider not ready")

const (
	defaultMaxMessages = 5
	// Generated quotes should be a sentence or two, not an essay
	wisdomMaxTokens  = 150
	wisdomTemp       = 0.8
	contextClipChars = 500
)

// stylePrompts is the per-style instruction appended to the system prompt
var stylePrompts = map[domain.Style]string{
	domain.StyleInsightful:    "Distill the discussions into one sharp, practical insight an operator would pin above their desk.",
	domain.StyleHumorous:      "Distill the discussions into one witty observation that would make a room of network engineers laugh in recognition.",
	domain.StyleSarcastic:     "Distill the discussions into one dry, sarcastic remark about the state of network operations.",
	domain.StylePhilosophical: "Distill the discussions into one contemplative reflection on what these operational struggles say about complex systems.",
}

// fallbackWisdom is served when text generation fails but sources were found
var fallbackWisdom = map[domain.Style]string{
	domain.StyleInsightful:    "Every outage is a lesson; the expensive ones are just lessons you pay tuition for twice.",
	domain.StyleHumorous:      "The network is always down somewhere. Today it was the wisdom generator.",
	domain.StyleSarcastic:     "Ah yes, another problem that was definitely not DNS. It was DNS.",
	domain.StylePhilosophical: "A network, like a river, is never the same twice; only the outages repeat.",
}

// WisdomUsecase defines wisdom generation business logic
type WisdomUsecase interface {
	// Generate distills indexed discussions about a topic into one wisdom item
	Generate(ctx context.Context, topic, style string, maxMessages int) (*domain.Wisdom, error)

	// Latest returns the most recently generated wisdom items
	Latest(limit int) ([]*domain.Wisdom, error)

	// Random returns one random previously generated wisdom item
	Random() (*domain.Wisdom, error)
}

// wisdomUsecase implements WisdomUsecase
type wisdomUsecase struct {
	wisdomRepo repository.WisdomRepository
	store      *vectors.Store
	provider   ai.Provider
}

// NewWisdomUsecase creates a new instance of wisdomUsecase
func NewWisdomUsecase(wisdomRepo repository.WisdomRepository, store *vectors.Store, provider ai.Provider) WisdomUsecase {
	return &wisdomUsecase{
		wisdomRepo: wisdomRepo,
		store:      store,
		provider:   provider,
	}
}

func (u *wisdomUsecase) Generate(ctx context.Context, topic, style string, maxMessages int) (*domain.Wisdom, error) {
	if u.provider == nil || !u.provider.IsReady() {
		return nil, ErrProviderNotReady
	}
	if maxMessages <= 0 || maxMessages > 20 {
		maxMessages = defaultMaxMessages
	}
	parsedStyle := domain.ParseStyle(style)

	// Bias the query toward operational discussion rather than the bare topic
	query := fmt.Sprintf("network operations %s technical discussion troubleshooting", topic)
	results := u.store.Search(ctx, query, maxMessages*3)
	sources := u.store.DedupeByThread(results, maxMessages)
	if len(sources) == 0 {
		return nil, fmt.Errorf("no indexed messages found for topic %q", topic)
	}

	content := u.generateText(ctx, topic, parsedStyle, sources)

	wisdom := &domain.Wisdom{
		Topic:       topic,
		Style:       parsedStyle,
		Content:     content,
		SourceCount: len(sources),
	}
	if err := u.wisdomRepo.Create(wisdom); err != nil {
		return nil, err
	}

	if !u.store.UpsertWisdomVector(ctx, wisdom.ID, content) {
		log.Printf("[Wisdom] Could not embed wisdom %s; it will not be searchable", wisdom.ID)
	}

	return wisdom, nil
}

func (u *wisdomUsecase) generateText(ctx context.Context, topic string, style domain.Style, sources []vectors.SearchResult) string {
	var b strings.Builder
	for i, src := range sources {
		content := src.Content
		if len(content) > contextClipChars {
			content = content[:contextClipChars]
		}
		fmt.Fprintf(&b, "Discussion %d (subject: %s, from: %s):\n%s\n\n", i+1, src.Meta.Subject, src.Meta.Author, content)
	}

	messages := []ai.Message{
		{
			Role: "system",
			Content: "You are a veteran network operator who has read decades of mailing-list archives. " +
				stylePrompts[style] +
				" Answer with the quote only, one or two sentences, no preamble.",
		},
		{
			Role:    "user",
			Content: fmt.Sprintf("Topic: %s\n\n%s", topic, b.String()),
		},
	}

	text, err := u.provider.GenerateText(ctx, messages, &ai.Options{
		Temperature: wisdomTemp,
		MaxTokens:   wisdomMaxTokens,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		log.Printf("[Wisdom] Text generation failed for topic %q, using fallback: %v", topic, err)
		return fallbackWisdom[style]
	}
	return strings.TrimSpace(text)
}

func (u *wisdomUsecase) Latest(limit int) ([]*domain.Wisdom, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return u.wisdomRepo.FindLatest(limit)
}

func (u *wisdomUsecase) Random() (*domain.Wisdom, error) {
	return u.wisdomRepo.FindRandom()
}
