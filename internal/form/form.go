// Package form holds server-side drafts of the console's create and edit
// forms and submits them to the record store.
package form

import (
	"context"
	"sync"
)

type State int

const (
	Idle State = iota
	Editing
	Submitting
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return "idle"
	}
}

// Draft is the field set of one form. Implementations are not safe for
// concurrent use; Form serializes access.
type Draft interface {
	// Set assigns one field. Unknown names fail with ErrUnknownField.
	Set(name string, value any) error
	// Validate returns a *ValidationError for the first failing field.
	Validate() error
	// Payload returns the coerced record fields under their canonical names.
	Payload() map[string]any
	// Values returns the raw field values.
	Values() map[string]any
}

// Target persists submitted payloads.
type Target interface {
	Create(ctx context.Context, payload map[string]any) (string, error)
	Update(ctx context.Context, id string, payload map[string]any) error
}

// Form drives one draft through Idle, Editing and Submitting. A form bound to
// a record id updates it on submit; an unbound form creates a record.
type Form struct {
	mu       sync.Mutex
	newDraft func() Draft
	draft    Draft
	state    State
	recordID string
	target   Target
}

func New(newDraft func() Draft, target Target) *Form {
	return &Form{newDraft: newDraft, draft: newDraft(), target: target}
}

// NewEdit returns a form bound to recordID and prefilled with values.
func NewEdit(newDraft func() Draft, target Target, recordID string, values map[string]any) (*Form, error) {
	f := &Form{newDraft: newDraft, draft: newDraft(), target: target, recordID: recordID}
	for name, v := range values {
		if err := f.draft.Set(name, v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Form) RecordID() string {
	return f.recordID
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Values() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Values()
}

func (f *Form) SetField(name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrSubmitInProgress
	}
	if err := f.draft.Set(name, value); err != nil {
		return err
	}
	f.state = Editing
	return nil
}

func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Validate()
}

// Reset restores the initial field values.
func (f *Form) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrSubmitInProgress
	}
	f.draft = f.newDraft()
	f.state = Idle
	return nil
}

// Submit validates the draft and sends its payload to the target. It returns
// the id of the created or updated record. A submit while another is in
// flight fails with ErrSubmitInProgress without reaching the target. Target
// errors are returned unchanged and leave the draft as it was.
func (f *Form) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return "", ErrSubmitInProgress
	}
	if err := f.draft.Validate(); err != nil {
		f.state = Editing
		f.mu.Unlock()
		return "", err
	}
	payload := f.draft.Payload()
	f.state = Submitting
	f.mu.Unlock()

	id := f.recordID
	var err error
	if id == "" {
		id, err = f.target.Create(ctx, payload)
	} else {
		err = f.target.Update(ctx, id, payload)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Editing
		return "", err
	}
	f.draft = f.newDraft()
	f.state = Idle
	return id, nil
}
