package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

// CaseRepository keeps cases in process memory. Records are deep-copied on
// the way in and out so callers never share state with the store.
type CaseRepository struct {
	mu    sync.RWMutex
	cases map[string][]byte
}

// NewCaseRepository creates an empty in-memory case repository
func NewCaseRepository() *CaseRepository {
	return &CaseRepository{cases: make(map[string][]byte)}
}

var _ repositories.CaseRepository = (*CaseRepository)(nil)

// Create stores a new case; CONFLICT when the id is taken
func (r *CaseRepository) Create(_ context.Context, c *entities.Case) error {
	data, err := json.Marshal(c)
	if err != nil {
		return apperrors.NewInternalError("failed to encode case", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cases[c.ID]; exists {
		return apperrors.NewConflictError("Document already exists")
	}
	r.cases[c.ID] = data
	return nil
}

// GetByID retrieves a case by ID
func (r *CaseRepository) GetByID(_ context.Context, id string) (*entities.Case, error) {
	r.mu.RLock()
	data, ok := r.cases[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("Document not found")
	}
	return decode(data)
}

// List returns every case, newest upload first
func (r *CaseRepository) List(_ context.Context) ([]*entities.Case, error) {
	r.mu.RLock()
	out := make([]*entities.Case, 0, len(r.cases))
	for _, data := range r.cases {
		c, err := decode(data)
		if err != nil {
			r.mu.RUnlock()
			return nil, err
		}
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UploadedAt != out[j].UploadedAt {
			return out[i].UploadedAt > out[j].UploadedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Replace overwrites a stored case
func (r *CaseRepository) Replace(_ context.Context, c *entities.Case) error {
	data, err := json.Marshal(c)
	if err != nil {
		return apperrors.NewInternalError("failed to encode case", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[c.ID]; !ok {
		return apperrors.NewNotFoundError("Document not found")
	}
	r.cases[c.ID] = data
	return nil
}

// Delete removes a case
func (r *CaseRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cases[id]; !ok {
		return apperrors.NewNotFoundError("Document not found")
	}
	delete(r.cases, id)
	return nil
}

func decode(data []byte) (*entities.Case, error) {
	var c entities.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, apperrors.NewInternalError("failed to decode case", err)
	}
	return &c, nil
}
