// Package autosave implements edit-then-blur persistence for one case.
//
// Edits are held as pending raw input until the field loses focus. On blur
// the value is coerced; numeric input that does not parse reverts to the last
// persisted value. An unchanged value makes no network call. Anything else is
// merged with the last persisted record and sent as a whole-record replace.
//
// Overlapping blurs are not serialized: the network call runs without the
// session lock, so the last response to arrive becomes the persisted record.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
)

// ErrUnknownField is returned by Blur for names outside the field schema.
var ErrUnknownField = errors.New("unknown field")

// Saver persists a whole case record.
type Saver interface {
	SaveDocument(ctx context.Context, c *entities.Case) (*entities.CaseDetail, error)
}

// Outcome says what a blur did.
type Outcome string

const (
	// OutcomeUnchanged means the value matched the persisted one; nothing was sent.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeReverted means the input could not be coerced and was discarded.
	OutcomeReverted Outcome = "reverted"
	// OutcomeSaved means the store accepted the merged record.
	OutcomeSaved Outcome = "saved"
	// OutcomeFailed means the store call failed and the field was reverted.
	OutcomeFailed Outcome = "failed"
)

// Session tracks one case being edited.
type Session struct {
	saver   Saver
	toaster *Toaster

	mu        sync.Mutex
	persisted *entities.Case
	pending   map[string]any
	refresh   []func(caseID string)
}

// Option configures a Session.
type Option func(*Session)

// WithToaster shares a toaster between sessions.
func WithToaster(t *Toaster) Option {
	return func(s *Session) { s.toaster = t }
}

// New starts a session over the last known server copy of c.
func New(saver Saver, c *entities.Case, opts ...Option) *Session {
	s := &Session{
		saver:     saver,
		persisted: clone(c),
		pending:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.toaster == nil {
		s.toaster = NewToaster(DefaultToastDuration)
	}
	return s
}

// Toaster returns the session's toaster.
func (s *Session) Toaster() *Toaster { return s.toaster }

// OnRefresh registers fn to run after every successful save, so list views
// can refetch.
func (s *Session) OnRefresh(fn func(caseID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = append(s.refresh, fn)
}

// Persisted returns a copy of the last record the store accepted.
func (s *Session) Persisted() *entities.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.persisted)
}

// Pending returns the raw edits not yet saved.
func (s *Session) Pending() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.pending))
	for k, v := range s.pending {
		out[k] = v
	}
	return out
}

// Change records raw input for field and returns the evaluation of the
// record as currently shown. raw is usually the text of an input; booleans
// and nil are accepted as is.
func (s *Session) Change(field string, raw any) validation.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := validation.Lookup(field); ok {
		s.pending[field] = raw
	}
	return validation.Evaluate(s.viewLocked())
}

// Evaluate returns the evaluation of the record as currently shown.
func (s *Session) Evaluate() validation.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validation.Evaluate(s.viewLocked())
}

// Blur persists field if its value changed.
func (s *Session) Blur(ctx context.Context, field string) (Outcome, error) {
	if _, ok := validation.Lookup(field); !ok {
		return OutcomeUnchanged, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	s.mu.Lock()
	raw, edited := s.pending[field]
	if !edited {
		s.mu.Unlock()
		return OutcomeUnchanged, nil
	}

	value, err := coerce(field, raw)
	if err != nil {
		delete(s.pending, field)
		s.mu.Unlock()
		log.Debug().Str("field", field).Err(err).Msg("Discarding unparsable input")
		return OutcomeReverted, nil
	}

	if reflect.DeepEqual(value, s.persisted.Record()[field]) {
		delete(s.pending, field)
		s.mu.Unlock()
		return OutcomeUnchanged, nil
	}

	merged := clone(s.persisted)
	saved := map[string]any{field: value}
	for name, other := range s.pending {
		if name == field {
			continue
		}
		if v, err := coerce(name, other); err == nil {
			saved[name] = v
		}
	}
	merged.ApplyFields(saved)
	s.mu.Unlock()

	label := fieldLabel(field)
	detail, err := s.saver.SaveDocument(ctx, merged)
	if err != nil {
		s.mu.Lock()
		delete(s.pending, field)
		s.mu.Unlock()

		log.Warn().Err(err).Str("case_id", merged.ID).Str("field", field).Msg("Autosave failed")
		s.toaster.Show(ToastError, fmt.Sprintf("Failed to save %s", label))
		return OutcomeFailed, err
	}

	if detail != nil && detail.Case != nil {
		merged = detail.Case
	}

	s.mu.Lock()
	s.persisted = clone(merged)
	for name, v := range saved {
		if current, ok := s.pending[name]; ok && reflect.DeepEqual(mustCoerce(name, current), v) {
			delete(s.pending, name)
		}
	}
	listeners := append([]func(string){}, s.refresh...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(merged.ID)
	}
	s.toaster.Show(ToastSuccess, fmt.Sprintf("%s saved", label))
	return OutcomeSaved, nil
}

// viewLocked overlays pending edits on the persisted record. Input that does
// not coerce shows as empty.
func (s *Session) viewLocked() validation.Record {
	rec := s.persisted.Record()
	for name, raw := range s.pending {
		v, err := coerce(name, raw)
		if err != nil {
			v = nil
		}
		rec[name] = v
	}
	return rec
}

func coerce(field string, raw any) (any, error) {
	if text, ok := raw.(string); ok {
		return validation.CoerceInput(field, text)
	}
	return raw, nil
}

func mustCoerce(field string, raw any) any {
	v, err := coerce(field, raw)
	if err != nil {
		return nil
	}
	return v
}

func fieldLabel(field string) string {
	if spec, ok := validation.Lookup(field); ok && spec.Label != "" {
		return spec.Label
	}
	return field
}

func clone(c *entities.Case) *entities.Case {
	out := &entities.Case{}
	if c == nil {
		return out
	}
	data, err := json.Marshal(c)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, out)
	return out
}
