package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/events"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/api/handlers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
)

func runStream(t *testing.T, serve func(http.ResponseWriter, *http.Request), req *http.Request, during func()) *httptest.ResponseRecorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		serve(w, req)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	during()
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after cancel")
	}
	return w
}

func TestSSEHandler_StreamDocuments(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus)

	req := httptest.NewRequest("GET", "/api/stream/documents", nil)
	w := runStream(t, handler.StreamDocuments, req, func() {
		event := entities.NewCaseEvent("c1", entities.CaseEventUpdated, nil)
		require.NoError(t, bus.Publish(context.Background(), providers.EventChannelCaseUpdates, event))
	})

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	body := w.Body.String()
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: document_updated\n")
	assert.Contains(t, body, `"case_id":"c1"`)
	assert.Zero(t, handler.ClientCount(providers.EventChannelCaseUpdates))
}

func TestSSEHandler_StreamDocumentFiltersByCase(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus)

	req := httptest.NewRequest("GET", "/api/stream/documents/c1", nil)
	req.SetPathValue("id", "c1")
	w := runStream(t, handler.StreamDocument, req, func() {
		_ = bus.Publish(context.Background(), providers.GetCaseChannel("c2"), entities.NewCaseEvent("c2", entities.CaseEventDeleted, nil))
		_ = bus.Publish(context.Background(), providers.GetCaseChannel("c1"), entities.NewCaseEvent("c1", entities.CaseEventAnalyzed, nil))
	})

	body := w.Body.String()
	assert.Contains(t, body, "event: document_analyzed\n")
	assert.False(t, strings.Contains(body, "document_deleted"))
}

func TestSSEHandler_StreamDocumentRequiresID(t *testing.T) {
	handler := handlers.NewSSEHandler(events.NewLocalEventBus())
	w := httptest.NewRecorder()

	handler.StreamDocument(w, httptest.NewRequest("GET", "/api/stream/documents/", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
