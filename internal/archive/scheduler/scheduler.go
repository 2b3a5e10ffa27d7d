package scheduler

import (
	"errors"
	"log"
	"time"

	"listwisdom-backend/internal/archive/repository"
	"listwisdom-backend/internal/archive/usecase"
)

// ResyncScheduler periodically re-syncs remote archives whose content has
// gone stale. Mailing lists get new monthly files over time, so archives
// need an occasional refresh without anyone clicking sync.
type ResyncScheduler struct {
	archiveRepo    repository.ArchiveRepository
	archiveUsecase usecase.ArchiveUsecase
	interval       time.Duration
	stopChan       chan struct{}
}

// NewResyncScheduler creates a new scheduler. The interval is both the check
// cadence and the staleness cutoff.
func NewResyncScheduler(archiveRepo repository.ArchiveRepository, archiveUsecase usecase.ArchiveUsecase, interval time.Duration) *ResyncScheduler {
	return &ResyncScheduler{
		archiveRepo:    archiveRepo,
		archiveUsecase: archiveUsecase,
		interval:       interval,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *ResyncScheduler) Start() {
	if s.interval <= 0 {
		log.Println("[ResyncScheduler] Interval not configured, scheduler disabled")
		return
	}

	log.Printf("[ResyncScheduler] Starting archive resync scheduler (interval: %s)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndResync()
			case <-s.stopChan:
				log.Println("[ResyncScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *ResyncScheduler) Stop() {
	close(s.stopChan)
}

// checkAndResync starts a sync for every remote archive that was never
// fetched or whose last fetch is older than the interval
func (s *ResyncScheduler) checkAndResync() {
	archives, err := s.archiveRepo.FindAll()
	if err != nil {
		log.Printf("[ResyncScheduler] Error listing archives: %v", err)
		return
	}

	now := time.Now()
	for _, archive := range archives {
		if archive.URL == "" {
			continue
		}
		if archive.LastFetched != nil && now.Sub(*archive.LastFetched) < s.interval {
			continue
		}

		err := s.archiveUsecase.StartSync(archive.ID)
		switch {
		case err == nil:
			log.Printf("[ResyncScheduler] Started resync for %s", archive.Name)
		case errors.Is(err, usecase.ErrSyncRunning):
			// Already in flight, nothing to do
		default:
			log.Printf("[ResyncScheduler] Could not start resync for %s: %v", archive.Name, err)
		}
	}
}
