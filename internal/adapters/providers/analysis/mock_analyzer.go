package analysis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
)

// MockAnalyzer simulates model inference: it waits for the configured delay
// and then accepts or rejects with equal probability.
type MockAnalyzer struct {
	delay time.Duration
	mu    sync.Mutex
	rnd   *rand.Rand
}

// NewMockAnalyzer creates a mock analyzer; seed 0 picks a time-based seed
func NewMockAnalyzer(delay time.Duration, seed int64) *MockAnalyzer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockAnalyzer{delay: delay, rnd: rand.New(rand.NewSource(seed))}
}

var _ providers.CaseAnalyzer = (*MockAnalyzer)(nil)

// Analyze returns the model's recommendation for c
func (a *MockAnalyzer) Analyze(ctx context.Context, c *entities.Case) (entities.Prediction, error) {
	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	a.mu.Lock()
	accept := a.rnd.Intn(2) == 0
	a.mu.Unlock()

	if accept {
		return entities.PredictionAccepted, nil
	}
	return entities.PredictionRejected, nil
}
