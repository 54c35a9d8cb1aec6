package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/application/services"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
)

// CaseService defines the case operations used by the handler.
type CaseService interface {
	Upload(ctx context.Context, files []services.UploadFile) (*entities.Case, error)
	List(ctx context.Context) ([]entities.CaseSummary, error)
	Get(ctx context.Context, id string) (*entities.CaseDetail, error)
	Save(ctx context.Context, id string, c *entities.Case) (*entities.Case, error)
	Rename(ctx context.Context, id, name string) (string, error)
	SetHumanPrediction(ctx context.Context, id string, decision *entities.Prediction, override bool) (*entities.Case, error)
	Analyze(ctx context.Context, id string) (*entities.Case, error)
	Delete(ctx context.Context, id string) error
	GetPDF(ctx context.Context, id string) ([]byte, error)
}

// CaseHandler serves the document/case endpoints.
type CaseHandler struct {
	service        CaseService
	maxUploadBytes int64
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(service CaseService, maxUploadBytes int64) *CaseHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &CaseHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Root handles GET /api/
func (h *CaseHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Underwriting Case Desk API",
		"status":  "running",
	})
}

// ListDocuments handles GET /api/documents
func (h *CaseHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(summaries),
		"documents": summaries,
	})
}

// GetDocument handles GET /api/documents/{id}
func (h *CaseHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

// SaveDocument handles PUT /api/save/{id}
func (h *CaseHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var c entities.Case
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	saved, err := h.service.Save(r.Context(), id, &c)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": fmt.Sprintf("Document %s saved", id),
		"data":    entities.NewCaseDetail(saved),
	})
}

type renameRequest struct {
	Name string `json:"name"`
}

// RenameDocument handles PATCH /api/documents/{id}/name
func (h *CaseHandler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	var payload renameRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	name, err := h.service.Rename(r.Context(), r.PathValue("id"), payload.Name)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Document name updated",
		"name":    name,
	})
}

type humanPredictionRequest struct {
	HumanPrediction *string `json:"human_prediction"`
	Override        bool    `json:"override"`
}

// SetHumanPrediction handles PATCH /api/documents/{id}/human-prediction
func (h *CaseHandler) SetHumanPrediction(w http.ResponseWriter, r *http.Request) {
	var payload humanPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	var decision *entities.Prediction
	if payload.HumanPrediction != nil {
		p := entities.Prediction(*payload.HumanPrediction)
		decision = &p
	}

	c, err := h.service.SetHumanPrediction(r.Context(), r.PathValue("id"), decision, payload.Override)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	message := "Human override cleared"
	if decision != nil {
		message = fmt.Sprintf("Human prediction updated to %s", *decision)
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "success",
		"message":          message,
		"human_prediction": decision,
		"data":             entities.NewCaseDetail(c),
	})
}

// AnalyzeDocument handles POST /api/documents/{id}/analyze
func (h *CaseHandler) AnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Analyze(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "success",
		"message":          "Analysis complete",
		"model_prediction": c.ModelPrediction,
		"data":             entities.NewCaseDetail(c),
	})
}

// DeleteDocument handles DELETE /api/documents/{id}
func (h *CaseHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Document %s deleted", id),
	})
}

// Upload handles POST /api/upload with multipart field "files" (or "file")
func (h *CaseHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["file"]...)
	files := make([]services.UploadFile, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		files = append(files, services.UploadFile{Filename: header.Filename, Data: data})
	}

	c, err := h.service.Upload(r.Context(), files)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entities.NewCaseDetail(c))
}

// GetPDF handles GET /api/pdf/{id}
func (h *CaseHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.service.GetPDF(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
