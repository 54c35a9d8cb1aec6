package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
)

// ErrNotConfigured is returned when no predictor URL was supplied
var ErrNotConfigured = errors.New("predictor service is not configured")

// HTTPClient calls the external risk model service.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a predictor client. An empty baseURL yields a client whose
// Predict always fails with ErrNotConfigured.
func NewClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict posts the normalized applicant to /predict.
func (c *HTTPClient) Predict(ctx context.Context, req *entities.PredictionRequest) (*entities.PredictionResult, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	if req == nil {
		return nil, errors.New("prediction request is required")
	}

	body, err := json.Marshal(req.Applicant)
	if err != nil {
		return nil, err
	}

	out := &entities.PredictionResult{}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body), out); err != nil {
		return nil, err
	}
	if out.Decision == "" {
		return nil, errors.New("predictor response missing decision")
	}
	return out, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("predictor returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
