package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Errors
var (
	ErrClosed         = errors.New("loop closed")
	ErrAlreadyRunning = errors.New("loop already running")
)

// Task is a unit of work executed on the loop goroutine.
type Task func()

// Config configures a Loop.
type Config struct {
	QueueSize int // Initial task queue capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{QueueSize: 256}
}

// Loop runs tasks sequentially with run-to-completion semantics.
type Loop struct {
	tasks  *Queue[Task]
	logger *slog.Logger

	running   atomic.Bool
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a loop. Tasks may be posted before Run is called.
func New(cfg Config, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		tasks:  NewQueue[Task](cfg.QueueSize),
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Post schedules a task. Returns false if the loop is closed.
func (l *Loop) Post(task Task) bool {
	if task == nil {
		return true
	}
	return l.tasks.Push(task)
}

// Run executes tasks until ctx is cancelled or Close is called.
// Tasks already queued when the loop closes still run.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-l.closed:
		}
	}()

	l.logger.Debug("event loop started")

	for {
		task, ok := l.tasks.Pop()
		if !ok {
			break
		}
		task()
	}

	l.logger.Debug("event loop stopped", "stats", l.tasks.Stats())
	return ctx.Err()
}

// Do runs task on the loop and waits for it to finish.
// Must not be called from a task: the loop would wait on itself.
func (l *Loop) Do(ctx context.Context, task Task) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		task()
	}) {
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain runs every pending task on the calling goroutine, including tasks
// posted while draining, and returns how many ran. It is meant for callers
// that drive the loop by hand instead of calling Run.
func (l *Loop) Drain() int {
	n := 0
	for {
		task, ok := l.tasks.TryPop()
		if !ok {
			return n
		}
		task()
		n++
	}
}

// Close stops accepting new tasks. Idempotent.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.tasks.Close()
		close(l.closed)
	})
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	return l.tasks.Len()
}

// Stats returns task queue statistics.
func (l *Loop) Stats() QueueStats {
	return l.tasks.Stats()
}
