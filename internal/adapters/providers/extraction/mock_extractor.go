package extraction

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
)

var riskTypes = []string{"safe", "warning", "danger", "unknown"}

// MockExtractor returns plausible random applicant data without reading the PDF
type MockExtractor struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockExtractor creates a mock extractor; seed 0 picks a time-based seed
func NewMockExtractor(seed int64) *MockExtractor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockExtractor{rnd: rand.New(rand.NewSource(seed))}
}

var _ providers.DocumentExtractor = (*MockExtractor)(nil)

// Extract generates a random record. Optional detail fields are left nil some
// of the time so the form shows incomplete cases too.
func (m *MockExtractor) Extract(ctx context.Context, _ []byte) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rnd

	maybe := func(p float64, value any) any {
		if r.Float64() > p {
			return value
		}
		return nil
	}
	pick := func(options []string) string {
		return options[r.Intn(len(options))]
	}
	between := func(lo, hi int) float64 {
		return float64(lo + r.Intn(hi-lo+1))
	}

	return map[string]any{
		"gender":                     pick([]string{"m", "f"}),
		"age":                        between(25, 65),
		"birthdate":                  fmt.Sprintf("%d-%02d-%02d", 1960+r.Intn(41), 1+r.Intn(12), 1+r.Intn(28)),
		"marital_status":             pick([]string{"single", "married", "divorced", "widowed"}),
		"height_cm":                  between(150, 200),
		"weight_kg":                  between(50, 120),
		"bmi":                        math.Round((18.5+r.Float64()*13.5)*10) / 10,
		"smoking":                    r.Intn(2) == 1,
		"packs_per_week":             maybe(0.5, between(0, 5)),
		"drug_use":                   r.Intn(2) == 1,
		"drug_frequency":             maybe(0.7, between(0, 3)),
		"drug_type":                  maybe(0.5, pick(riskTypes)),
		"staying_abroad":             r.Intn(2) == 1,
		"abroad_type":                maybe(0.5, pick(riskTypes)),
		"dangerous_sports":           r.Intn(2) == 1,
		"sport_type":                 maybe(0.5, pick(riskTypes)),
		"medical_issue":              r.Intn(2) == 1,
		"medical_type":               maybe(0.5, pick(riskTypes)),
		"doctor_visits":              r.Intn(2) == 1,
		"visit_type":                 maybe(0.5, pick([]string{"physician", "specialist", "hospital"})),
		"regular_medication":         r.Intn(2) == 1,
		"medication_type":            maybe(0.5, pick(riskTypes)),
		"sports_activity_h_per_week": between(0, 20),
		"earning_chf":                between(40000, 150000),
	}, nil
}
