// Package scheduler implements the bounded submission dispatcher: a single
// long-lived goroutine owning the receive end of a FIFO job channel and a
// resizable semaphore, spawning one detached worker per job.
package scheduler

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"autograder/pkg/logger"
	"autograder/pkg/tracing"
)

// ContainerEntry is one unit of grading work: a submitted archive plus
// the context the executor and state store need to run and record it.
type ContainerEntry struct {
	Archive      []byte
	UserID       int
	TaskID       int
	AssignmentID int
	WasLate      bool
	Language     string
}

// Executor runs one ContainerEntry end to end and reports its outcome.
// The scheduler depends only on this interface — it has no knowledge of
// Docker, recipe directories, or the database.
type Executor interface {
	Run(ctx context.Context, entry ContainerEntry) (resultsJSON []byte, score float64, err error)
}

// ResultStore persists a grading job's outcome. Like Executor, the
// scheduler only depends on this narrow interface.
type ResultStore interface {
	RecordSuccess(ctx context.Context, userID, taskID int, resultsJSON []byte, score float64) error
	RecordFailure(ctx context.Context, userID, taskID int, errMsg string) error
}

// EventPublisher is the minimal domain-event surface the dispatcher
// exercises after a job completes.
type EventPublisher interface {
	PublishGraded(ctx context.Context, userID, taskID, assignmentID int, score float64)
}

// Dispatcher is the single FIFO scheduler described in the spec: it owns
// the receive end of Jobs and a concurrency-bounding Semaphore.
type Dispatcher struct {
	jobs      chan ContainerEntry
	sem       *Semaphore
	executor  Executor
	store     ResultStore
	publisher EventPublisher
	log       *logger.Logger
}

// New constructs a Dispatcher with the given job queue capacity (a large
// buffer approximating the "conceptually unbounded" queue, bounded in
// practice by the submit endpoint's reserve-before-send) and initial
// permit count.
func New(queueCapacity, permits int, exec Executor, store ResultStore, pub EventPublisher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		jobs:      make(chan ContainerEntry, queueCapacity),
		sem:       NewSemaphore(permits),
		executor:  exec,
		store:     store,
		publisher: pub,
		log:       log,
	}
}

// Reserve attempts to enqueue a job without blocking, mirroring the
// "reserve capacity before sending" handler contract: a full queue
// surfaces as a bool false the caller turns into a 500, instead of
// blocking the request goroutine.
func (d *Dispatcher) Reserve(entry ContainerEntry) bool {
	select {
	case d.jobs <- entry:
		return true
	default:
		return false
	}
}

// Resize adjusts the dispatcher's concurrency bound at runtime.
func (d *Dispatcher) Resize(n int) {
	d.sem.Resize(n)
}

// QueueDepth returns the number of jobs currently buffered, waiting for
// a permit.
func (d *Dispatcher) QueueDepth() int {
	return len(d.jobs)
}

// PermitsAvailable returns the number of grading permits not currently
// held by an in-flight job.
func (d *Dispatcher) PermitsAvailable() int {
	return d.sem.Available()
}

// Run is the dispatcher's main loop: acquire a permit, receive a job,
// spawn a detached worker. It blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		if err := d.sem.Acquire(ctx); err != nil {
			return
		}

		select {
		case entry := <-d.jobs:
			go d.work(entry)
		case <-ctx.Done():
			d.sem.Release()
			return
		}
	}
}

func (d *Dispatcher) work(entry ContainerEntry) {
	defer d.sem.Release()

	ctx := context.Background()
	ctx, span := tracing.StartSpan(ctx, "scheduler.grade",
		attribute.Int("user_id", entry.UserID),
		attribute.Int("task_id", entry.TaskID),
		attribute.String("language", entry.Language),
	)
	var err error
	defer func() { tracing.EndSpanWithError(span, &err) }()

	var resultsJSON []byte
	var score float64
	resultsJSON, score, err = d.executor.Run(ctx, entry)
	if err != nil {
		d.log.Error().
			Int("user_id", entry.UserID).
			Int("task_id", entry.TaskID).
			Err(err).
			Msg("grading job failed")

		if recErr := d.store.RecordFailure(ctx, entry.UserID, entry.TaskID, err.Error()); recErr != nil {
			d.log.Error().Err(recErr).Msg("failed to record grading failure")
		}
		return
	}

	if err := d.store.RecordSuccess(ctx, entry.UserID, entry.TaskID, resultsJSON, score); err != nil {
		d.log.Error().Err(err).Msg("failed to record grading result")
		return
	}

	if d.publisher != nil {
		d.publisher.PublishGraded(ctx, entry.UserID, entry.TaskID, entry.AssignmentID, score)
	}
}
