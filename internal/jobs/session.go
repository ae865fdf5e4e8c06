package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/calebmorris/debrief/internal/backend"
	"github.com/calebmorris/debrief/pkg/models"
	"github.com/google/uuid"
)

// Session owns the job view for one recording: the store, the poll loop,
// the deferred lane for regeneration and the completion watch. It lives for
// as long as the recording is the viewed one and is torn down, poller and
// all, when the view changes.
type Session struct {
	recording models.Recording
	backend   backend.Client

	store    *Store
	poller   *Poller
	deferred *DeferredQueue

	// watched holds kinds whose first resolution should fire a completion
	// signal; awaiting holds kinds whose created job has not yet been
	// observed in the store, which keeps the poller alive in the window
	// between a create request and the reconciler seeing its result.
	// superseded tombstones job IDs replaced by a regeneration: until the
	// remote delete lands, fetches may still return the old row, and it
	// must neither re-enter the store nor fire the completion watch.
	watched    *kindset
	awaiting   *kindset
	superseded *idset

	events *broadcaster

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession builds a session scoped to rec. parent must outlive HTTP
// requests; cancelling it stops the poll loop. lane carries the deferred
// network work and deliberately outlives the session, so a fire-and-forget
// regenerate finishes even when the view changes; pass nil to let the
// session run its own lane off parent.
func NewSession(parent context.Context, rec models.Recording, be backend.Client, interval time.Duration, lane *DeferredQueue) *Session {
	ctx, cancel := context.WithCancel(parent)
	if lane == nil {
		lane = NewDeferredQueue(parent, 16)
	}
	s := &Session{
		recording:  rec,
		backend:    be,
		store:      NewStore(),
		deferred:   lane,
		watched:    newKindset(),
		awaiting:   newKindset(),
		superseded: newIDset(),
		events:     newBroadcaster(),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.poller = NewPoller(interval, s.fetchJobs, s.applyAuthoritative, s.outstanding)
	return s
}

// Recording returns the parent artifact this session is scoped to.
func (s *Session) Recording() models.Recording {
	return s.recording
}

// Close tears the session down. In-flight fetches for it become no-ops and
// their results are dropped, never merged. Deferred tasks already enqueued
// keep running on the lane: a delete that has reached the server must be
// followed by its create.
func (s *Session) Close() {
	s.cancel()
	s.events.close()
}

// Refresh loads the authoritative job list once, outside the poll cadence.
func (s *Session) Refresh(ctx context.Context) error {
	jobs, err := s.backend.ListJobs(ctx, s.recording.ID)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}
	s.applyAuthoritative(jobs)
	s.poller.Poke(s.ctx)
	return nil
}

// VisibleJobs returns the externally visible set: the synthetic summary,
// recomputed on every read, followed by the store snapshot.
func (s *Session) VisibleJobs() []models.Job {
	jobs := s.store.Snapshot()
	if syn := SyntheticSummary(s.recording); syn != nil {
		return append([]models.Job{*syn}, jobs...)
	}
	return jobs
}

// SubscribeCompletions registers for completion events. The returned cancel
// func releases the subscription.
func (s *Session) SubscribeCompletions() (<-chan CompletionEvent, func()) {
	return s.events.subscribe()
}

// Poller exposes the reconciler for observation.
func (s *Session) Poller() *Poller {
	return s.poller
}

// Submit requests generation of a new job of the given kind. The returned
// job is usually still pending. A backend conflict is not fatal: the
// authoritative list is refreshed and the existing job adopted instead.
func (s *Session) Submit(ctx context.Context, kind models.JobKind) (*models.Job, error) {
	if !models.RequestableKind(kind) {
		if kind == models.KindSummary {
			return nil, ErrSyntheticJob
		}
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	s.watched.add(kind)
	s.awaiting.add(kind)

	job, err := s.backend.CreateJob(ctx, s.recording.ID, kind)
	if errors.Is(err, backend.ErrConflict) {
		// The backend already holds this kind; adopt its copy.
		s.awaiting.remove(kind)
		if rerr := s.Refresh(ctx); rerr != nil {
			s.watched.remove(kind)
			return nil, fmt.Errorf("refreshing after conflict: %w", rerr)
		}
		existing, ok := s.store.Get(kind)
		if !ok {
			s.watched.remove(kind)
			return nil, fmt.Errorf("creating %s job: %w", kind, err)
		}
		return &existing, nil
	}
	if err != nil {
		// Nothing may look pending forever after a failed submit.
		s.watched.remove(kind)
		s.awaiting.remove(kind)
		return nil, fmt.Errorf("creating %s job: %w", kind, err)
	}

	s.store.Upsert(*job)
	s.awaiting.remove(kind)
	// Some kinds resolve synchronously; the detector must not wait for a
	// poll tick in that case.
	s.notifyResolved(*job)
	s.poller.Poke(s.ctx)
	return job, nil
}

// Regenerate implements regenerate as delete-then-recreate for the job with
// the given ID; the kind is resolved from the session's own view. The local
// state update is synchronous; the network work runs on the deferred lane
// and control returns to the caller before any round trip starts. Deferred
// failures are logged only, recovery happens through the next poll cycle.
func (s *Session) Regenerate(jobID uuid.UUID) error {
	if jobID == models.SyntheticJobID {
		return ErrSyntheticJob
	}
	local, ok := s.store.GetByID(jobID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	kind := local.Kind
	if !models.RequestableKind(kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	s.store.Remove(kind)
	s.watched.add(kind)
	s.awaiting.add(kind)
	// Fetches racing the remote delete may still carry the old row.
	s.superseded.add(jobID)

	// The client carries its credentials already; the deferred task
	// performs no lookup of its own.
	be := s.backend
	recordingID := s.recording.ID

	s.deferred.Enqueue("regenerate "+string(kind), func(ctx context.Context) error {
		created, err := s.regenerateRemote(ctx, be, recordingID, jobID, kind)
		if err != nil || !created {
			// Nothing is in flight anymore. Lifting the tombstone lets the
			// next poll re-adopt whatever the server still holds.
			s.awaiting.remove(kind)
			s.superseded.remove(jobID)
		}
		s.poller.Poke(s.ctx)
		return err
	})

	s.poller.Poke(s.ctx)
	return nil
}

// regenerateRemote performs the delete-then-create sequence. Create runs
// even when delete fails: the old row may simply be gone already.
func (s *Session) regenerateRemote(ctx context.Context, be backend.Client, recordingID, oldID uuid.UUID, kind models.JobKind) (bool, error) {
	if err := be.DeleteJob(ctx, oldID); err != nil && !errors.Is(err, backend.ErrNotFound) {
		slog.Warn("regenerate: deleting old job failed",
			"kind", kind, "job_id", oldID, "error", err)
	}
	if _, err := be.CreateJob(ctx, recordingID, kind); err != nil {
		return false, fmt.Errorf("recreating %s job: %w", kind, err)
	}
	return true, nil
}

// Update rewrites a job's content. Empty content is rejected before any
// request is sent.
func (s *Session) Update(ctx context.Context, jobID uuid.UUID, content string) (*models.Job, error) {
	if jobID == models.SyntheticJobID {
		return nil, ErrSyntheticJob
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	job, err := s.backend.UpdateJob(ctx, jobID, content)
	if err != nil {
		return nil, fmt.Errorf("updating job: %w", err)
	}
	s.store.Upsert(*job)
	return job, nil
}

// Delete removes a job. A backend NotFound means the row was already gone
// and is treated as success; the local entry is dropped either way.
func (s *Session) Delete(ctx context.Context, jobID uuid.UUID) error {
	if jobID == models.SyntheticJobID {
		return ErrSyntheticJob
	}

	local, known := s.store.GetByID(jobID)

	err := s.backend.DeleteJob(ctx, jobID)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("deleting job: %w", err)
	}

	if known {
		s.store.Remove(local.Kind)
		s.watched.remove(local.Kind)
	}
	return nil
}

// outstanding is the poller's level trigger: at least one pending entry, or
// a submission/regeneration whose job has not surfaced in the store yet.
func (s *Session) outstanding() bool {
	return s.store.HasPending() || s.awaiting.any()
}

func (s *Session) fetchJobs(ctx context.Context) ([]models.Job, error) {
	return s.backend.ListJobs(ctx, s.recording.ID)
}

// applyAuthoritative merges server truth and lets the completion detector
// observe every refreshed entry. Superseded rows are dropped first: a job
// being regenerated stays gone locally even while the remote delete is still
// in flight, and only its replacement can clear the in-flight marker.
func (s *Session) applyAuthoritative(fetched []models.Job) {
	live := make([]models.Job, 0, len(fetched))
	for _, job := range fetched {
		if job.Kind == models.KindSummary || s.superseded.has(job.ID) {
			continue
		}
		live = append(live, job)
	}

	s.store.MergeAuthoritative(live)
	for _, job := range live {
		s.awaiting.remove(job.Kind)
		s.notifyResolved(job)
	}
}

// notifyResolved fires the one-shot completion signal for a watched kind.
// Error resolutions clear the watch silently; only content completions are
// surfaced to subscribers.
func (s *Session) notifyResolved(job models.Job) {
	if !job.Resolved() {
		return
	}
	if !s.watched.take(job.Kind) {
		return
	}
	if job.ErrorMessage != nil {
		return
	}
	s.events.publish(CompletionEvent{
		RecordingID: s.recording.ID,
		JobID:       job.ID,
		Kind:        job.Kind,
	})
}
