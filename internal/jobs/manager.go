package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calebmorris/debrief/internal/backend"
	"github.com/google/uuid"
)

// Manager scopes sessions to the currently viewed recording. At most one
// session is live at a time; switching recordings closes the previous one so
// its in-flight fetches can never merge into a stale store. The deferred
// lane is owned here, not by the session: a regenerate's delete-then-create
// must run to completion even when the user navigates away mid-sequence.
type Manager struct {
	base       context.Context
	backend    backend.Client
	recordings RecordingSource
	interval   time.Duration
	deferred   *DeferredQueue

	mu      sync.Mutex
	current *Session
}

// NewManager creates a manager. base is the process-lifetime context; it,
// not any request context, parents every session and the deferred lane.
func NewManager(base context.Context, be backend.Client, recs RecordingSource, interval time.Duration) *Manager {
	return &Manager{
		base:       base,
		backend:    be,
		recordings: recs,
		interval:   interval,
		deferred:   NewDeferredQueue(base, 16),
	}
}

// Open returns the session for recordingID, building a fresh one when the
// viewed recording changed. The initial job list load is best-effort: a
// failure leaves an empty store that user actions and polling repopulate.
func (m *Manager) Open(ctx context.Context, recordingID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	if m.current != nil && m.current.Recording().ID == recordingID {
		sess := m.current
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	rec, err := m.recordings.Get(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("loading recording: %w", err)
	}

	sess := NewSession(m.base, *rec, m.backend, m.interval, m.deferred)
	if err := sess.Refresh(ctx); err != nil {
		slog.Warn("initial job list load failed", "recording_id", recordingID, "error", err)
	}

	m.mu.Lock()
	if m.current != nil && m.current.Recording().ID == recordingID {
		// Lost the race to another opener; keep theirs.
		winner := m.current
		m.mu.Unlock()
		sess.Close()
		return winner, nil
	}
	previous := m.current
	m.current = sess
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return sess, nil
}

// Current returns the live session, or nil when none is open.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Close tears down the live session, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()
	if sess != nil {
		sess.Close()
	}
}
