// Package cleanup runs the worker that removes stored assets of deleted
// users and courses.
package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lmsadmin/internal/config"
	"lmsadmin/internal/model"
	"lmsadmin/internal/pgmq"
	"lmsadmin/internal/storage"

	"github.com/rs/zerolog"
)

// Queue is the subset of the pgmq client the worker uses.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, timeoutSec, maxMessages int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
	Send(ctx context.Context, queue string, payload []byte) (int64, error)
}

type Settings struct {
	Queue           string
	DeadLetterQueue string
	PollTimeout     time.Duration
	PollMaxMessages int
	MaxRetries      int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Queue:           cfg.CleanupQueueName,
		DeadLetterQueue: cfg.CleanupDeadLetterQueueName,
		PollTimeout:     time.Duration(cfg.CleanupPollTimeoutSec) * time.Second,
		PollMaxMessages: cfg.CleanupPollMaxMsg,
		MaxRetries:      cfg.CleanupMaxRetries,
		BackoffInitial:  time.Duration(cfg.CleanupBackoffInitialSec) * time.Second,
		BackoffMax:      time.Duration(cfg.CleanupBackoffMaxSec) * time.Second,
	}
}

type Worker struct {
	queue    Queue
	blobs    storage.BlobStore
	settings Settings
	logger   zerolog.Logger
}

func NewWorker(queue Queue, blobs storage.BlobStore, settings Settings, logger zerolog.Logger) *Worker {
	if settings.MaxRetries < 1 {
		settings.MaxRetries = 1
	}
	if settings.PollMaxMessages < 1 {
		settings.PollMaxMessages = 1
	}
	return &Worker{
		queue:    queue,
		blobs:    blobs,
		settings: settings,
		logger:   logger.With().Str("orchestrator", "blob-cleanup").Str("queue", settings.Queue).Logger(),
	}
}

// Run starts the blob cleanup orchestrator.
func Run(ctx context.Context, logger zerolog.Logger, cfg *config.Config, client *pgmq.Client, blobs storage.BlobStore) error {
	return NewWorker(client, blobs, SettingsFromConfig(cfg), logger).Run(ctx)
}

// Run polls the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("Starting blob cleanup orchestrator")
	// Messages stay hidden long enough to cover every retry of one job.
	visibility := int((w.settings.BackoffMax*time.Duration(w.settings.MaxRetries) + time.Minute).Seconds())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Shutting down blob cleanup orchestrator")
			return nil
		default:
		}

		msgs, err := w.queue.ReadWithPoll(ctx, w.settings.Queue, visibility, int(w.settings.PollTimeout.Seconds()), w.settings.PollMaxMessages)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error().Err(err).Msg("Error reading cleanup queue")
			sleep(ctx, time.Second)
			continue
		}
		for _, msg := range msgs {
			w.Process(ctx, msg)
		}
	}
}

// Process handles one message: it deletes every prefix of the job, retrying
// with exponential backoff, and moves exhausted jobs to the dead-letter queue.
// The message is removed from the work queue in every outcome.
func (w *Worker) Process(ctx context.Context, msg *pgmq.Message) {
	log := w.logger.With().Int64("msg_id", msg.ID).Logger()

	var job model.BlobCleanupJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal cleanup payload; deleting message")
		w.ack(ctx, msg.ID)
		return
	}
	log.Info().Str("subject_id", job.SubjectID).Strs("prefixes", job.Prefixes).Msg("Received cleanup job")

	backoff := w.settings.BackoffInitial
	var lastErr error
	for attempt := 1; attempt <= w.settings.MaxRetries; attempt++ {
		lastErr = w.deleteAll(ctx, job.Prefixes)
		if lastErr == nil {
			break
		}
		log.Error().Err(lastErr).Int("attempt", attempt).Msg("Blob cleanup failed, retrying")
		if attempt == w.settings.MaxRetries || !sleep(ctx, backoff) {
			break
		}
		backoff *= 2
		if backoff > w.settings.BackoffMax {
			backoff = w.settings.BackoffMax
		}
	}

	if lastErr != nil {
		if ctx.Err() != nil {
			// Leave the message for redelivery after shutdown.
			return
		}
		if _, err := w.queue.Send(ctx, w.settings.DeadLetterQueue, msg.Data); err != nil {
			log.Error().Err(err).Str("dlq", w.settings.DeadLetterQueue).Msg("Failed to send message to dead-letter queue")
			return
		}
		log.Warn().Int("attempts", w.settings.MaxRetries).Err(lastErr).Msg("Exhausted all cleanup retries; moving job to DLQ")
	}
	w.ack(ctx, msg.ID)
}

func (w *Worker) deleteAll(ctx context.Context, prefixes []string) error {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		n, err := w.blobs.DeletePrefix(ctx, p)
		if err != nil {
			return fmt.Errorf("prefix %s: %w", p, err)
		}
		w.logger.Debug().Str("prefix", p).Int("deleted", n).Msg("Prefix cleaned")
	}
	return nil
}

func (w *Worker) ack(ctx context.Context, id int64) {
	if err := w.queue.Delete(ctx, w.settings.Queue, []int64{id}); err != nil {
		w.logger.Error().Err(err).Int64("msg_id", id).Msg("Error deleting cleanup message")
	}
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
