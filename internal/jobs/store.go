package jobs

import (
	"sort"
	"sync"

	"github.com/calebmorris/debrief/pkg/models"
	"github.com/google/uuid"
)

// Store is the canonical in-memory view of jobs for one recording, keyed by
// kind. Writers only ever replace-by-kind or remove-by-kind; the last write
// for a kind wins.
type Store struct {
	mu   sync.RWMutex
	jobs map[models.JobKind]models.Job
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{jobs: make(map[models.JobKind]models.Job)}
}

// Upsert replaces the entry for the job's kind with the given job.
func (s *Store) Upsert(job models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Kind] = job
}

// Remove drops the entry for kind, if any.
func (s *Store) Remove(kind models.JobKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, kind)
}

// Get returns the entry for kind.
func (s *Store) Get(kind models.JobKind) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[kind]
	return job, ok
}

// GetByID returns the entry with the given job ID.
func (s *Store) GetByID(id uuid.UUID) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, job := range s.jobs {
		if job.ID == id {
			return job, true
		}
	}
	return models.Job{}, false
}

// Snapshot returns all entries ordered by creation time, oldest first.
func (s *Store) Snapshot() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Kind < out[j].Kind
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// HasPending reports whether any entry is still unresolved.
func (s *Store) HasPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, job := range s.jobs {
		if !job.Resolved() {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// MergeAuthoritative applies a fetched job list as server truth: every
// fetched job fully replaces the entry of its kind. Entries absent from the
// fetch are kept; deletion is always explicit, never inferred from a poll.
// The synthetic summary kind is skipped defensively, the backend should
// never produce it.
func (s *Store) MergeAuthoritative(fetched []models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range fetched {
		if job.Kind == models.KindSummary {
			continue
		}
		s.jobs[job.Kind] = job
	}
}
