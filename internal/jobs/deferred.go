package jobs

import (
	"context"
	"log/slog"
)

// DeferredQueue runs fire-and-forget tasks on a dedicated goroutine, keeping
// slow network work out of the caller's control flow. Task errors go to the
// log and nowhere else; no caller ever awaits a result.
type DeferredQueue struct {
	ctx   context.Context
	tasks chan deferredTask
}

type deferredTask struct {
	name string
	fn   func(context.Context) error
}

// NewDeferredQueue starts the queue. The worker goroutine exits when ctx is
// cancelled; queued tasks that have not started are abandoned with it.
func NewDeferredQueue(ctx context.Context, size int) *DeferredQueue {
	if size <= 0 {
		size = 16
	}
	q := &DeferredQueue{
		ctx:   ctx,
		tasks: make(chan deferredTask, size),
	}
	go q.run()
	return q
}

func (q *DeferredQueue) run() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case t := <-q.tasks:
			q.execute(t)
		}
	}
}

func (q *DeferredQueue) execute(t deferredTask) {
	if err := t.fn(q.ctx); err != nil {
		slog.Error("deferred task failed", "task", t.name, "error", err)
	}
}

// Enqueue schedules fn and returns immediately. Tasks run in FIFO order on
// the worker goroutine. If the buffer is full the task spills onto its own
// goroutine so the caller still never blocks.
func (q *DeferredQueue) Enqueue(name string, fn func(context.Context) error) {
	t := deferredTask{name: name, fn: fn}
	select {
	case q.tasks <- t:
	default:
		slog.Warn("deferred queue saturated, spilling task", "task", name)
		go q.execute(t)
	}
}
