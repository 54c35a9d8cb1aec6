package repositories

import (
	"context"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
)

// CaseRepository defines the interface for case persistence
type CaseRepository interface {
	// Create stores a new case
	Create(ctx context.Context, c *entities.Case) error

	// GetByID retrieves a case by ID
	GetByID(ctx context.Context, id string) (*entities.Case, error)

	// List retrieves every case, newest upload first
	List(ctx context.Context) ([]*entities.Case, error)

	// Replace overwrites the whole stored record; NOT_FOUND when absent
	Replace(ctx context.Context, c *entities.Case) error

	// Delete removes a case; NOT_FOUND when absent
	Delete(ctx context.Context, id string) error
}
