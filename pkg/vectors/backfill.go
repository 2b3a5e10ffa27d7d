package vectors

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// PendingMessage is a stored message that has no vector yet
type PendingMessage struct {
	ID        string
	MessageID string
	Subject   string
	Author    string
	Content   string
	ArchiveID string
	ThreadID  string
	Date      time.Time
}

// MessageSource lists messages that still need vectors
type MessageSource interface {
	ListMessagesWithoutVectors(ctx context.Context, limit, offset int) ([]PendingMessage, error)
}

// Backfiller generates embeddings for messages that were ingested while the
// embedding provider was unavailable. It pages through pending messages in
// bounded batches behind a fixed-rate limiter, which is deliberately a simple
// constant pace rather than anything adaptive.
type Backfiller struct {
	store     *Store
	source    MessageSource
	batchSize int
	limiter   *rate.Limiter
}

// NewBackfiller creates a backfiller over the given store and message source
func NewBackfiller(store *Store, source MessageSource, batchSize int) *Backfiller {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Backfiller{
		store:     store,
		source:    source,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

// Run embeds every pending message and returns how many vectors it generated.
// Messages whose embedding fails are skipped and paged past so the run always
// terminates.
func (b *Backfiller) Run(ctx context.Context) (int, error) {
	if !b.store.IsReady() {
		return 0, fmt.Errorf("embedding provider not ready")
	}

	generated := 0
	skipped := 0
	for {
		pending, err := b.source.ListMessagesWithoutVectors(ctx, b.batchSize, skipped)
		if err != nil {
			return generated, fmt.Errorf("failed to list messages without vectors: %w", err)
		}
		if len(pending) == 0 {
			break
		}

		for _, msg := range pending {
			if err := b.limiter.Wait(ctx); err != nil {
				return generated, err
			}

			ok := b.store.UpsertMessageVector(ctx, msg.ID, msg.Content, Metadata{
				MessageID: msg.MessageID,
				Subject:   msg.Subject,
				Author:    msg.Author,
				Date:      msg.Date.Format(time.RFC3339),
				ArchiveID: msg.ArchiveID,
				ThreadID:  msg.ThreadID,
			})
			if ok {
				generated++
			} else {
				skipped++
			}
		}

		if len(pending) < b.batchSize {
			break
		}
	}

	log.Printf("[VectorBackfill] Generated %d new vectors (%d skipped)", generated, skipped)
	return generated, nil
}
