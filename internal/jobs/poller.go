package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/calebmorris/debrief/pkg/models"
)

// DefaultPollInterval is the fixed reconciliation cadence. Generation jobs
// run for tens of seconds to minutes, so a flat interval is enough; backoff
// would only delay convergence.
const DefaultPollInterval = 5 * time.Second

// Poller converges the store with backend truth while work is outstanding.
// It is level-triggered: the loop runs only while the active predicate holds
// and a Poke restarts it whenever new outstanding work appears.
type Poller struct {
	interval time.Duration
	fetch    func(ctx context.Context) ([]models.Job, error)
	merge    func([]models.Job)
	active   func() bool

	mu      sync.Mutex
	running bool
	fetches int
}

// NewPoller wires the poll loop to its collaborators. fetch retrieves the
// authoritative list, merge applies it, active is the trigger predicate.
func NewPoller(interval time.Duration, fetch func(context.Context) ([]models.Job, error), merge func([]models.Job), active func() bool) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		fetch:    fetch,
		merge:    merge,
		active:   active,
	}
}

// Poke starts the poll loop if outstanding work exists and no loop is
// running. Callers invoke it after every mutation that could create work.
func (p *Poller) Poke(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running || !p.active() {
		return
	}
	p.running = true
	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.setStopped()
			return
		case <-ticker.C:
			p.countFetch()
			jobs, err := p.fetch(ctx)
			if err != nil {
				// Transient by assumption; the next tick retries.
				slog.Warn("job poll failed, will retry", "error", err)
				continue
			}
			if ctx.Err() != nil {
				// The view moved on mid-flight: drop, never merge.
				p.setStopped()
				return
			}
			p.merge(jobs)
			if p.stopIfSettled() {
				return
			}
		}
	}
}

// stopIfSettled exits the loop once nothing is outstanding. The trigger is
// re-checked under the lock so a Poke racing with shutdown is not lost.
func (p *Poller) stopIfSettled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active() {
		return false
	}
	p.running = false
	return true
}

func (p *Poller) setStopped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

// Running reports whether the poll loop is currently scheduled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) countFetch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches++
}

// Fetches returns the number of fetch attempts made so far.
func (p *Poller) Fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}
