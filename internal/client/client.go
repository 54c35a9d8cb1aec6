// Package client talks to the case desk HTTP API. Every call is a single
// attempt; callers decide how failures surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// DocumentList is the GET /documents payload.
type DocumentList struct {
	Count     int                    `json:"count"`
	Documents []entities.CaseSummary `json:"documents"`
}

// File is one upload part.
type File struct {
	Filename string
	Data     []byte
}

// Client calls the case desk API rooted at baseURL (for example
// http://localhost:8000/api).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates an API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 180 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListDocuments fetches every case summary, newest first.
func (c *Client) ListDocuments(ctx context.Context) (*DocumentList, error) {
	out := &DocumentList{}
	if err := c.doJSON(ctx, http.MethodGet, "/documents", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDocument fetches one case with its evaluation.
func (c *Client) GetDocument(ctx context.Context, id string) (*entities.CaseDetail, error) {
	out := &entities.CaseDetail{}
	if err := c.doJSON(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

type envelope struct {
	Status          string               `json:"status"`
	Message         string               `json:"message"`
	Name            string               `json:"name"`
	ModelPrediction *entities.Prediction `json:"model_prediction"`
	Data            *entities.CaseDetail `json:"data"`
}

// SaveDocument replaces the stored record with c.
func (c *Client) SaveDocument(ctx context.Context, cs *entities.Case) (*entities.CaseDetail, error) {
	if cs == nil || cs.ID == "" {
		return nil, errors.New("case id is required")
	}
	out := &envelope{}
	if err := c.doJSON(ctx, http.MethodPut, "/save/"+url.PathEscape(cs.ID), cs, out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// RenameDocument sets the display name and returns the stored value.
func (c *Client) RenameDocument(ctx context.Context, id, name string) (string, error) {
	out := &envelope{}
	body := map[string]string{"name": name}
	if err := c.doJSON(ctx, http.MethodPatch, "/documents/"+url.PathEscape(id)+"/name", body, out); err != nil {
		return "", err
	}
	return out.Name, nil
}

// SetHumanPrediction records or clears (nil) the underwriter's decision.
func (c *Client) SetHumanPrediction(ctx context.Context, id string, decision *entities.Prediction, override bool) (*entities.CaseDetail, error) {
	body := map[string]interface{}{"human_prediction": decision}
	if override {
		body["override"] = true
	}
	out := &envelope{}
	if err := c.doJSON(ctx, http.MethodPatch, "/documents/"+url.PathEscape(id)+"/human-prediction", body, out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AnalyzeDocument runs the model and returns the updated case.
func (c *Client) AnalyzeDocument(ctx context.Context, id string) (*entities.CaseDetail, error) {
	out := &envelope{}
	if err := c.doJSON(ctx, http.MethodPost, "/documents/"+url.PathEscape(id)+"/analyze", nil, out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// DeleteDocument removes a case and its PDF.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, nil)
}

// Predict sends an applicant to the prediction pass-through.
func (c *Client) Predict(ctx context.Context, applicant validation.Record) (*entities.PredictionResult, error) {
	out := &entities.PredictionResult{}
	if err := c.doJSON(ctx, http.MethodPost, "/predict", applicant, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends files as one multipart request and returns the new case.
func (c *Client) Upload(ctx context.Context, files []File) (*entities.CaseDetail, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	out := &entities.CaseDetail{}
	if err := c.do(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPDF downloads the stored PDF.
func (c *Client) GetPDF(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pdf/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Detail
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
