// Package session holds client-side state that outlives a single view: the
// draft being edited and the cached SHAP impacts per case. State is hydrated
// with Load and written back on every change.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
)

const (
	draftKey   = "underwriting.draft"
	impactsKey = "underwriting.shap_impacts"
)

// ErrNotLoaded is returned by mutators called before Load.
var ErrNotLoaded = errors.New("session store not loaded")

// Draft is an in-progress edit of one case.
type Draft struct {
	CaseID    string         `json:"case_id"`
	Pending   map[string]any `json:"pending"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Impacts maps feature name to its SHAP contribution.
type Impacts map[string]float64

// Store is the session state with an explicit load/save lifecycle.
type Store struct {
	storage Storage
	now     func() time.Time

	mu      sync.RWMutex
	loaded  bool
	draft   *Draft
	impacts map[string]Impacts
}

// NewStore creates a store over storage. Call Load before use.
func NewStore(storage Storage) *Store {
	return &Store{storage: storage, now: time.Now, impacts: make(map[string]Impacts)}
}

// Load hydrates the store. Missing keys leave an empty state; corrupt
// entries are an error and leave the store unloaded.
func (s *Store) Load() error {
	var draft *Draft
	if err := s.readKey(draftKey, &draft); err != nil {
		return err
	}
	impacts := make(map[string]Impacts)
	if err := s.readKey(impactsKey, &impacts); err != nil {
		return err
	}
	if impacts == nil {
		impacts = make(map[string]Impacts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = draft
	s.impacts = impacts
	s.loaded = true
	return nil
}

// Save writes the whole state back to storage.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	if err := s.saveDraftLocked(); err != nil {
		return err
	}
	return s.saveImpactsLocked()
}

// Draft returns a copy of the current draft, or nil.
func (s *Store) Draft() *Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft == nil {
		return nil
	}
	out := *s.draft
	out.Pending = make(map[string]any, len(s.draft.Pending))
	for k, v := range s.draft.Pending {
		out.Pending[k] = v
	}
	return &out
}

// SetDraft replaces the draft and persists it.
func (s *Store) SetDraft(caseID string, pending map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}

	copied := make(map[string]any, len(pending))
	for k, v := range pending {
		copied[k] = v
	}
	s.draft = &Draft{CaseID: caseID, Pending: copied, UpdatedAt: s.now().UTC()}
	return s.saveDraftLocked()
}

// ClearDraft drops the draft.
func (s *Store) ClearDraft() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	s.draft = nil
	return s.storage.Delete(draftKey)
}

// Impacts returns the cached impacts for caseID.
func (s *Store) Impacts(caseID string) (Impacts, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cached, ok := s.impacts[caseID]
	if !ok {
		return nil, false
	}
	out := make(Impacts, len(cached))
	for k, v := range cached {
		out[k] = v
	}
	return out, true
}

// CacheExplanation stores the top feature impacts of a prediction.
func (s *Store) CacheExplanation(caseID string, explanation *entities.Explanation) error {
	if explanation == nil {
		return nil
	}
	impacts := make(Impacts, len(explanation.TopFeatures))
	for _, f := range explanation.TopFeatures {
		impacts[f.Feature] = f.Impact
	}
	return s.SetImpacts(caseID, impacts)
}

// SetImpacts replaces the cached impacts for caseID and persists them.
func (s *Store) SetImpacts(caseID string, impacts Impacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	copied := make(Impacts, len(impacts))
	for k, v := range impacts {
		copied[k] = v
	}
	s.impacts[caseID] = copied
	return s.saveImpactsLocked()
}

// ForgetCase drops everything held for caseID, as after a delete.
func (s *Store) ForgetCase(caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	delete(s.impacts, caseID)
	if s.draft != nil && s.draft.CaseID == caseID {
		s.draft = nil
		if err := s.storage.Delete(draftKey); err != nil {
			return err
		}
	}
	return s.saveImpactsLocked()
}

func (s *Store) readKey(key string, out interface{}) error {
	data, ok, err := s.storage.Get(key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) saveDraftLocked() error {
	if s.draft == nil {
		return s.storage.Delete(draftKey)
	}
	data, err := json.Marshal(s.draft)
	if err != nil {
		return err
	}
	return s.storage.Set(draftKey, data)
}

func (s *Store) saveImpactsLocked() error {
	data, err := json.Marshal(s.impacts)
	if err != nil {
		return err
	}
	return s.storage.Set(impactsKey, data)
}
