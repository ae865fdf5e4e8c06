package jobs

import (
	"sync"

	"github.com/calebmorris/debrief/pkg/models"
	"github.com/google/uuid"
)

// CompletionEvent signals that a watched job kind resolved with content.
type CompletionEvent struct {
	RecordingID uuid.UUID      `json:"recording_id"`
	JobID       uuid.UUID      `json:"job_id"`
	Kind        models.JobKind `json:"kind"`
}

// kindset is a small concurrency-safe set of job kinds.
type kindset struct {
	mu    sync.Mutex
	kinds map[models.JobKind]struct{}
}

func newKindset() *kindset {
	return &kindset{kinds: make(map[models.JobKind]struct{})}
}

func (k *kindset) add(kind models.JobKind) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kinds[kind] = struct{}{}
}

func (k *kindset) remove(kind models.JobKind) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.kinds, kind)
}

// take removes kind and reports whether it was present. It is the one-shot
// primitive behind the completion detector: only the first caller for a
// given watch wins.
func (k *kindset) take(kind models.JobKind) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.kinds[kind]; !ok {
		return false
	}
	delete(k.kinds, kind)
	return true
}

func (k *kindset) any() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.kinds) > 0
}

// idset is a small concurrency-safe set of job IDs. The session uses it to
// tombstone rows superseded by a regeneration while the delete is in flight.
type idset struct {
	mu  sync.Mutex
	ids map[uuid.UUID]struct{}
}

func newIDset() *idset {
	return &idset{ids: make(map[uuid.UUID]struct{})}
}

func (s *idset) add(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

func (s *idset) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

func (s *idset) has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

const subscriberBuffer = 8

// broadcaster fans completion events out to subscribers. Slow subscribers
// lose events rather than block the engine.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan CompletionEvent
	nextID int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan CompletionEvent)}
}

// subscribe registers a new subscriber and returns its channel plus a
// cancel func. The channel is closed on cancel or broadcaster shutdown.
func (b *broadcaster) subscribe() (<-chan CompletionEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan CompletionEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broadcaster) publish(ev CompletionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
