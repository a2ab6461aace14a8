// Package events wraps the Kafka producer in the domain-event vocabulary
// the scheduler and HTTP layer publish to: submission lifecycle and class
// membership changes. Publishing is always best-effort — failures are
// logged, never surfaced to the caller.
package events

import (
	"context"

	"autograder/pkg/kafka"
	"autograder/pkg/logger"
)

// Publisher implements scheduler.EventPublisher on top of the Kafka
// producer.
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func New(producer *kafka.Producer, log *logger.Logger) *Publisher {
	return &Publisher{producer: producer, log: log}
}

// PublishEnqueued publishes submission.enqueued after a job is reserved on
// the scheduler channel.
func (p *Publisher) PublishEnqueued(ctx context.Context, userID, taskID, assignmentID int, wasLate bool) {
	p.publish(ctx, kafka.NewSubmissionEnqueuedEvent(userID, taskID, assignmentID, wasLate))
}

// PublishGraded implements scheduler.EventPublisher.
func (p *Publisher) PublishGraded(ctx context.Context, userID, taskID, assignmentID int, score float64) {
	p.publish(ctx, kafka.NewSubmissionGradedEvent(userID, taskID, assignmentID, score))
}

// PublishClassJoined publishes class.joined.
func (p *Publisher) PublishClassJoined(ctx context.Context, userID int, classNumber string) {
	p.publish(ctx, kafka.NewClassJoinedEvent(userID, classNumber))
}

// PublishClassCreated publishes class.created.
func (p *Publisher) PublishClassCreated(ctx context.Context, classNumber, instructorUsername string) {
	p.publish(ctx, kafka.NewClassCreatedEvent(classNumber, instructorUsername))
}

func (p *Publisher) publish(ctx context.Context, event kafka.Event) {
	if err := p.producer.PublishEvent(ctx, event); err != nil {
		p.log.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish domain event")
	}
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
