package kafka

import (
	"fmt"
	"time"
)

// Event types
const (
	EventTypeSubmissionEnqueued = "submission.enqueued"
	EventTypeSubmissionGraded   = "submission.graded"
	EventTypeClassJoined        = "class.joined"
	EventTypeClassCreated       = "class.created"
)

// Event represents a domain event
type Event struct {
	Type        string                 `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data"`
}

// NewSubmissionEnqueuedEvent creates a submission.enqueued event, published
// right after the job is reserved on the scheduler channel.
func NewSubmissionEnqueuedEvent(userID, taskID, assignmentID int, wasLate bool) Event {
	return Event{
		Type:        EventTypeSubmissionEnqueued,
		AggregateID: aggregateKey(userID, taskID),
		Timestamp:   time.Now(),
		Data: map[string]interface{}{
			"user_id":       userID,
			"task_id":       taskID,
			"assignment_id": assignmentID,
			"was_late":      wasLate,
		},
	}
}

// NewSubmissionGradedEvent creates a submission.graded event, published
// once a grading worker records its result.
func NewSubmissionGradedEvent(userID, taskID, assignmentID int, score float64) Event {
	return Event{
		Type:        EventTypeSubmissionGraded,
		AggregateID: aggregateKey(userID, taskID),
		Timestamp:   time.Now(),
		Data: map[string]interface{}{
			"user_id":       userID,
			"task_id":       taskID,
			"assignment_id": assignmentID,
			"score":         score,
		},
	}
}

// NewClassJoinedEvent creates a class.joined event.
func NewClassJoinedEvent(userID int, classNumber string) Event {
	return Event{
		Type:        EventTypeClassJoined,
		AggregateID: classNumber,
		Timestamp:   time.Now(),
		Data: map[string]interface{}{
			"user_id":      userID,
			"class_number": classNumber,
		},
	}
}

// NewClassCreatedEvent creates a class.created event.
func NewClassCreatedEvent(classNumber, instructorUsername string) Event {
	return Event{
		Type:        EventTypeClassCreated,
		AggregateID: classNumber,
		Timestamp:   time.Now(),
		Data: map[string]interface{}{
			"class_number": classNumber,
			"instructor":   instructorUsername,
		},
	}
}

func aggregateKey(userID, taskID int) string {
	return fmt.Sprintf("%d-%d", userID, taskID)
}
