package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/events"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/memory"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/providers/analysis"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/providers/extraction"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/storage"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/api/handlers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/api/routes"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/application/services"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/clients/predictor"
)

func newServer(t *testing.T, checks map[string]routes.HealthCheck) *httptest.Server {
	t.Helper()

	bus := events.NewLocalEventBus()
	store := storage.NewBlobStore(memblob.OpenBucket(nil), nil)
	t.Cleanup(func() {
		_ = bus.Close()
		_ = store.Close()
	})

	caseService := services.NewCaseService(
		memory.NewCaseRepository(),
		store,
		extraction.NewMockExtractor(7),
		analysis.NewMockAnalyzer(0, 7),
		bus,
		2,
	)
	predictionService := services.NewPredictionService(predictor.NewClient("", time.Second))

	router := routes.NewRouter(
		handlers.NewCaseHandler(caseService, 1<<20),
		handlers.NewPredictionHandler(predictionService),
		handlers.NewSSEHandler(bus),
		[]string{"http://localhost:5173"},
		checks,
		nil,
	)

	server := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url string, body []byte, contentType string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func pdfUpload(t *testing.T, filename string) ([]byte, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("files", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n%%EOF\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestRouter_CaseLifecycle(t *testing.T) {
	server := newServer(t, nil)

	body, contentType := pdfUpload(t, "applicant.pdf")
	resp, created := do(t, http.MethodPost, server.URL+"/api/upload", body, contentType)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "applicant.pdf", created["filename"])

	resp, list := do(t, http.MethodGet, server.URL+"/api/documents", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, list["count"])

	created["name"] = "Jane Applicant"
	created["age"] = 0
	payload, err := json.Marshal(created)
	require.NoError(t, err)
	resp, saved := do(t, http.MethodPut, server.URL+"/api/save/"+id, payload, "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := saved["data"].(map[string]any)
	assert.Equal(t, "Jane Applicant", data["name"])
	assert.Contains(t, data["invalid_fields"], "age")
	assert.Equal(t, "incomplete", data["status"])

	resp, _ = do(t, http.MethodGet, server.URL+"/api/pdf/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	resp, analyzed := do(t, http.MethodPost, server.URL+"/api/documents/"+id+"/analyze", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, []any{"Accepted", "Rejected"}, analyzed["model_prediction"])

	resp, _ = do(t, http.MethodDelete, server.URL+"/api/documents/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, missing := do(t, http.MethodGet, server.URL+"/api/documents/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Document not found", missing["error"])
}

func TestRouter_RootAndMethods(t *testing.T) {
	server := newServer(t, nil)

	resp, root := do(t, http.MethodGet, server.URL+"/api/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Underwriting Case Desk API", root["message"])

	resp, _ = do(t, http.MethodPost, server.URL+"/api/documents", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRouter_PredictWithoutModelService(t *testing.T) {
	server := newServer(t, nil)

	resp, body := do(t, http.MethodPost, server.URL+"/api/predict", []byte(`{"age":40}`), "application/json")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestRouter_Health(t *testing.T) {
	server := newServer(t, map[string]routes.HealthCheck{
		"store": func(ctx context.Context) error { return nil },
	})
	resp, _ := do(t, http.MethodGet, server.URL+"/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	failing := newServer(t, map[string]routes.HealthCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	resp, _ = do(t, http.MethodGet, failing.URL+"/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRouter_Preflight(t *testing.T) {
	server := newServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/documents/x/human-prediction", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
