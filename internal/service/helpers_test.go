package service

import (
	"context"
	"sync"

	"lmsadmin/internal/identity"
	"lmsadmin/internal/repository"

	"github.com/rs/zerolog"
)

func asUser(uid string) context.Context {
	return identity.WithUserID(context.Background(), uid)
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return "https://cdn.test/lms/" + key, nil
}

func (b *fakeBlobs) DeletePrefix(context.Context, string) (int, error) {
	return 0, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []any
}

func (q *fakeQueue) SendJSON(_ context.Context, _ string, v any) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, v)
	return int64(len(q.sent)), nil
}

type publishedMessage struct {
	topic   string
	payload []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []publishedMessage
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, publishedMessage{topic, payload, attrs})
	return "m", nil
}

type repos struct {
	store   *repository.MemoryStore
	users   repository.UserRepository
	courses repository.CourseRepository
}

func newRepos() repos {
	store := repository.NewMemoryStore()
	return repos{
		store:   store,
		users:   repository.NewUserRepo(store),
		courses: repository.NewCourseRepo(store),
	}
}

var nop = zerolog.Nop()
