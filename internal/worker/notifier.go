package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/lingocast/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// EventNotifier publishes an AudioChunkCreatedEvent for every finished job.
// An episode is a single chunk, so page number and total pages are both 1.
type EventNotifier struct {
	natsConnection *nats.Conn
	subject        string
	now            func() time.Time
}

// NewEventNotifier creates a notifier that publishes on subject.
func NewEventNotifier(natsConnection *nats.Conn, subject string) *EventNotifier {
	return &EventNotifier{
		natsConnection: natsConnection,
		subject:        subject,
		now:            time.Now,
	}
}

// AudioPublished announces the public URL of a job's audio.
func (n *EventNotifier) AudioPublished(_ context.Context, jobID string, result core.JobResult) error {
	event := &events.AudioChunkCreatedEvent{
		Header: events.EventHeader{
			Timestamp:  n.now(),
			WorkflowID: jobID,
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		AudioKey:   result.AudioURL,
		PageNumber: 1,
		TotalPages: 1,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audio event: %w", err)
	}

	err = n.natsConnection.Publish(n.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish audio event on %s: %w", n.subject, err)
	}

	return nil
}
