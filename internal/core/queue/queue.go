package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull is returned by Submit when the buffer has no room. The
// utterance is rejected rather than processed out of turn.
var ErrQueueFull = errors.New("queue is full")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("queue is closed")

// Handler processes one job and returns the reply text.
type Handler func(ctx context.Context, job Job) (string, error)

const historySize = 100

// Queue is a bounded FIFO of utterances drained by a single worker, so
// jobs never interleave.
type Queue struct {
	jobs    chan *Job
	handler Handler

	mu      sync.RWMutex
	history []*Job
	onDone  []func(Job)
	closed  bool
}

// New creates a queue holding at most capacity pending jobs.
func New(capacity int, handler Handler) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		jobs:    make(chan *Job, capacity),
		handler: handler,
	}
}

// OnDone registers a callback run by the worker after each job finishes.
func (q *Queue) OnDone(fn func(Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onDone = append(q.onDone, fn)
}

// Submit enqueues an utterance without blocking.
func (q *Queue) Submit(source, utterance string) (Job, error) {
	job := NewJob(source, utterance)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Job{}, ErrClosed
	}

	select {
	case q.jobs <- job:
	default:
		return Job{}, ErrQueueFull
	}

	q.history = append(q.history, job)
	if len(q.history) > historySize {
		q.history = q.history[len(q.history)-historySize:]
	}

	return *job, nil
}

// Close stops accepting jobs. Run drains what is already queued and
// returns.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

// Run processes jobs one at a time until ctx is cancelled or the queue is
// closed and drained.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-q.jobs:
			if !ok {
				return nil
			}
			q.process(ctx, job)
		}
	}
}

func (q *Queue) process(ctx context.Context, job *Job) {
	q.mu.Lock()
	job.TransitionStatus(JobStatusExecuting)
	snapshot := *job
	q.mu.Unlock()

	slog.Debug("Processing job", "id", job.ID, "source", job.Source)
	result, err := q.handler(ctx, snapshot)

	q.mu.Lock()
	job.Result = result
	if err != nil {
		job.Error = err.Error()
		job.TransitionStatus(JobStatusFailed)
	} else {
		job.TransitionStatus(JobStatusCompleted)
	}
	done := *job
	callbacks := append([]func(Job){}, q.onDone...)
	q.mu.Unlock()

	if err != nil {
		slog.Warn("Job failed", "id", job.ID, "source", job.Source, "err", err)
	}
	for _, fn := range callbacks {
		fn(done)
	}
}

// Jobs returns the recent jobs, oldest first.
func (q *Queue) Jobs() []Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Job, len(q.history))
	for i, j := range q.history {
		out[i] = *j
	}
	return out
}

// Pending returns the number of jobs waiting for the worker.
func (q *Queue) Pending() int {
	return len(q.jobs)
}
