package usecase

import (
	"sort"
	"sync"
	"time"
)

// SyncStatus is a point-in-time snapshot of one archive's running sync
type SyncStatus struct {
	ArchiveID string    `json:"archive_id"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Current   string    `json:"current,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// SyncTracker serializes syncs: at most one running sync per archive, with
// progress readable by the status endpoint. State is in-memory only and
// resets on restart, which also clears any sync a crash left behind.
type SyncTracker struct {
	mu   sync.RWMutex
	runs map[string]*SyncStatus
}

// NewSyncTracker creates an empty tracker
func NewSyncTracker() *SyncTracker {
	return &SyncTracker{runs: make(map[string]*SyncStatus)}
}

// Begin registers a running sync for an archive. Registration is atomic:
// when a sync is already in flight the call returns false and leaves the
// existing record untouched, so two racing requests cannot both start work
// for the same archive. Callers register with total 0 before the worker
// knows the real unit count.
func (t *SyncTracker) Begin(archiveID string, total int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.runs[archiveID]; ok {
		return false
	}
	t.runs[archiveID] = &SyncStatus{
		ArchiveID: archiveID,
		Total:     total,
		StartedAt: time.Now(),
	}
	return true
}

// SetTotal records the real unit count once discovery knows it, resetting
// progress but keeping the original start time. No-op when no sync is
// registered.
func (t *SyncTracker) SetTotal(archiveID string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if run, ok := t.runs[archiveID]; ok {
		run.Total = total
		run.Completed = 0
	}
}

// Advance increments progress and records what the sync is working on
func (t *SyncTracker) Advance(archiveID, current string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if run, ok := t.runs[archiveID]; ok {
		run.Completed++
		run.Current = current
	}
}

// Complete removes the running sync for an archive
func (t *SyncTracker) Complete(archiveID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, archiveID)
}

// IsRunning reports whether a sync is in flight for an archive
func (t *SyncTracker) IsRunning(archiveID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.runs[archiveID]
	return ok
}

// Status returns the snapshot for one archive
func (t *SyncTracker) Status(archiveID string) (SyncStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	run, ok := t.runs[archiveID]
	if !ok {
		return SyncStatus{}, false
	}
	return *run, true
}

// All returns snapshots of every running sync, ordered by archive ID so the
// status endpoint is deterministic
func (t *SyncTracker) All() []SyncStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	statuses := make([]SyncStatus, 0, len(t.runs))
	for _, run := range t.runs {
		statuses = append(statuses, *run)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].ArchiveID < statuses[j].ArchiveID
	})
	return statuses
}
