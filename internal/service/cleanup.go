package service

import (
	"context"
	"time"

	"lmsadmin/internal/model"

	"github.com/rs/zerolog"
)

// CleanupQueue is the part of the pgmq client used to schedule blob cleanup.
type CleanupQueue interface {
	SendJSON(ctx context.Context, queue string, v any) (int64, error)
}

type blobCleanup struct {
	queue  CleanupQueue
	name   string
	logger zerolog.Logger
}

// schedule enqueues a cleanup job. The record is already gone when this runs,
// so a failure is logged and the objects are left for manual cleanup.
func (c blobCleanup) schedule(ctx context.Context, subjectID, reason string, prefixes ...string) {
	if c.queue == nil {
		return
	}
	job := model.BlobCleanupJob{
		Prefixes:    prefixes,
		SubjectID:   subjectID,
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}
	msgID, err := c.queue.SendJSON(ctx, c.name, job)
	if err != nil {
		c.logger.Error().Err(err).Str("subject_id", subjectID).Strs("prefixes", prefixes).Msg("Failed to enqueue blob cleanup")
		return
	}
	c.logger.Debug().Int64("msg_id", msgID).Str("subject_id", subjectID).Msg("Blob cleanup enqueued")
}
