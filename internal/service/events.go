package service

import (
	"context"
	"encoding/json"
	"time"

	"lmsadmin/internal/pubsub"

	"github.com/rs/zerolog"
)

const (
	EventCourseCreated = "course.created"
	EventCourseUpdated = "course.updated"
	EventCourseDeleted = "course.deleted"
)

// ChangeEvent is published after a successful course mutation.
type ChangeEvent struct {
	Type       string    `json:"type"`
	ResourceID string    `json:"resource_id"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// eventSink publishes events and logs failures. Publishing never fails the
// mutation that triggered it.
type eventSink struct {
	publisher pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

func (s eventSink) publish(ctx context.Context, eventType string, event any) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Failed to encode event")
		return
	}
	if _, err := s.publisher.Publish(ctx, s.topic, payload, map[string]string{"type": eventType}); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Str("topic", s.topic).Msg("Failed to publish event")
	}
}
