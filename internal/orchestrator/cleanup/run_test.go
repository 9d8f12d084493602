package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"lmsadmin/internal/model"
	"lmsadmin/internal/pgmq"

	"github.com/rs/zerolog"
)

type fakeQueue struct {
	mu      sync.Mutex
	pending []*pgmq.Message
	deleted []int64
	sent    map[string][][]byte
}

func (q *fakeQueue) ReadWithPoll(ctx context.Context, queue string, _, _, max int) ([]*pgmq.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	n := min(max, len(q.pending))
	out := q.pending[:n]
	q.pending = q.pending[n:]
	return out, nil
}

func (q *fakeQueue) Delete(_ context.Context, _ string, ids []int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, ids...)
	return nil
}

func (q *fakeQueue) Send(_ context.Context, queue string, payload []byte) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sent == nil {
		q.sent = map[string][][]byte{}
	}
	q.sent[queue] = append(q.sent[queue], payload)
	return int64(len(q.sent[queue])), nil
}

type fakeBlobs struct {
	mu       sync.Mutex
	failures int
	calls    []string
}

func (b *fakeBlobs) Upload(context.Context, string, []byte, string) (string, error) {
	return "", nil
}

func (b *fakeBlobs) DeletePrefix(_ context.Context, prefix string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, prefix)
	if b.failures > 0 {
		b.failures--
		return 0, errors.New("bucket unavailable")
	}
	return 1, nil
}

func testSettings() Settings {
	return Settings{
		Queue:           "blob_cleanup_queue",
		DeadLetterQueue: "blob_cleanup_queue_dlq",
		MaxRetries:      3,
		BackoffInitial:  time.Millisecond,
		BackoffMax:      2 * time.Millisecond,
	}
}

func jobMessage(t *testing.T, id int64, prefixes ...string) *pgmq.Message {
	t.Helper()
	data, err := json.Marshal(model.BlobCleanupJob{Prefixes: prefixes, SubjectID: "u1", Reason: "user.deleted"})
	if err != nil {
		t.Fatal(err)
	}
	return &pgmq.Message{ID: id, Data: data}
}

func TestProcessDeletesPrefixesAndAcks(t *testing.T) {
	q := &fakeQueue{}
	blobs := &fakeBlobs{}
	w := NewWorker(q, blobs, testSettings(), zerolog.Nop())

	w.Process(context.Background(), jobMessage(t, 7, "avatars/u1.", "", "thumbnails/c1."))

	if !slices.Equal(blobs.calls, []string{"avatars/u1.", "thumbnails/c1."}) {
		t.Fatalf("unexpected prefixes %v", blobs.calls)
	}
	if !slices.Equal(q.deleted, []int64{7}) {
		t.Fatalf("message should be acked, got %v", q.deleted)
	}
	if len(q.sent) != 0 {
		t.Fatalf("nothing should go to the DLQ, got %v", q.sent)
	}
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	q := &fakeQueue{}
	blobs := &fakeBlobs{failures: 2}
	w := NewWorker(q, blobs, testSettings(), zerolog.Nop())

	w.Process(context.Background(), jobMessage(t, 1, "avatars/u1."))

	if len(blobs.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(blobs.calls))
	}
	if len(q.sent) != 0 || !slices.Equal(q.deleted, []int64{1}) {
		t.Fatalf("expected ack without DLQ, sent=%v deleted=%v", q.sent, q.deleted)
	}
}

func TestProcessMovesExhaustedJobToDLQ(t *testing.T) {
	q := &fakeQueue{}
	blobs := &fakeBlobs{failures: 10}
	w := NewWorker(q, blobs, testSettings(), zerolog.Nop())

	msg := jobMessage(t, 9, "avatars/u1.")
	w.Process(context.Background(), msg)

	if len(blobs.calls) != 3 {
		t.Fatalf("expected MaxRetries attempts, got %d", len(blobs.calls))
	}
	dlq := q.sent["blob_cleanup_queue_dlq"]
	if len(dlq) != 1 || string(dlq[0]) != string(msg.Data) {
		t.Fatalf("job should be moved to the DLQ unchanged, got %v", q.sent)
	}
	if !slices.Equal(q.deleted, []int64{9}) {
		t.Fatalf("original message should be acked, got %v", q.deleted)
	}
}

func TestProcessDropsMalformedPayload(t *testing.T) {
	q := &fakeQueue{}
	blobs := &fakeBlobs{}
	w := NewWorker(q, blobs, testSettings(), zerolog.Nop())

	w.Process(context.Background(), &pgmq.Message{ID: 3, Data: []byte("not json")})
	if len(blobs.calls) != 0 || !slices.Equal(q.deleted, []int64{3}) {
		t.Fatalf("malformed message should be deleted without work, calls=%v deleted=%v", blobs.calls, q.deleted)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	q := &fakeQueue{pending: []*pgmq.Message{jobMessage(t, 1, "avatars/u1.")}}
	blobs := &fakeBlobs{}
	w := NewWorker(q, blobs, testSettings(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		q.mu.Lock()
		acked := len(q.deleted)
		q.mu.Unlock()
		if acked == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job was not processed")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
