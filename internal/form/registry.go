package form

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDraftTTL is how long an untouched draft is kept.
const DefaultDraftTTL = 2 * time.Hour

type entry struct {
	form    *Form
	kind    string
	owner   string
	touched time.Time
}

// Registry keeps server-held drafts so a form can be filled and submitted
// across requests. Drafts are visible only to the user that opened them.
type Registry struct {
	mu     sync.Mutex
	drafts map[string]*entry
	ttl    time.Duration
	now    func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &Registry{drafts: make(map[string]*entry), ttl: ttl, now: time.Now}
}

// Open stores f for owner and returns the draft id.
func (r *Registry) Open(owner, kind string, f *Form) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	id := uuid.NewString()
	r.drafts[id] = &entry{form: f, kind: kind, owner: owner, touched: r.now()}
	return id
}

// Get returns the draft and its kind. Drafts of other owners are reported as
// missing.
func (r *Registry) Get(owner, id string) (*Form, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.drafts[id]
	if !ok || e.owner != owner || r.expired(e) {
		return nil, "", ErrDraftNotFound
	}
	e.touched = r.now()
	return e.form, e.kind, nil
}

// Discard removes a draft. A draft that is being submitted cannot be removed.
func (r *Registry) Discard(owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.drafts[id]
	if !ok || e.owner != owner {
		return ErrDraftNotFound
	}
	if e.form.State() == Submitting {
		return ErrSubmitInProgress
	}
	delete(r.drafts, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

func (r *Registry) expired(e *entry) bool {
	return r.now().Sub(e.touched) > r.ttl
}

func (r *Registry) sweepLocked() {
	for id, e := range r.drafts {
		if r.expired(e) && e.form.State() != Submitting {
			delete(r.drafts, id)
		}
	}
}
