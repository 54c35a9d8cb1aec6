package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/repositories"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/observability"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/pdfcompose"
	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

const pdfPrefix = "pdfs/"

// UploadFile is one file received by the upload endpoint
type UploadFile struct {
	Filename string
	Data     []byte
}

// CaseService owns the case lifecycle: upload and extraction, edits,
// decisions, analysis and deletion.
type CaseService struct {
	repo      repositories.CaseRepository
	documents providers.DocumentStore
	extractor providers.DocumentExtractor
	analyzer  providers.CaseAnalyzer
	events    providers.EventBus
	maxFiles  int

	now   func() time.Time
	newID func() string
}

// NewCaseService creates a case service. events may be nil.
func NewCaseService(
	repo repositories.CaseRepository,
	documents providers.DocumentStore,
	extractor providers.DocumentExtractor,
	analyzer providers.CaseAnalyzer,
	events providers.EventBus,
	maxFiles int,
) *CaseService {
	if maxFiles < 1 {
		maxFiles = 2
	}
	return &CaseService{
		repo:      repo,
		documents: documents,
		extractor: extractor,
		analyzer:  analyzer,
		events:    events,
		maxFiles:  maxFiles,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Upload stores the submitted document and creates a case from the extracted
// fields. Image-only uploads are merged into one PDF; otherwise the first PDF
// is used. The stored PDF is removed again when any later step fails.
func (s *CaseService) Upload(ctx context.Context, files []UploadFile) (*entities.Case, error) {
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("No files provided")
	}
	if len(files) > s.maxFiles {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Maximum %d files allowed", s.maxFiles))
	}

	var pdfs, images [][]byte
	filenames := make([]string, 0, len(files))
	for _, f := range files {
		filenames = append(filenames, f.Filename)
		switch strings.ToLower(filepath.Ext(f.Filename)) {
		case ".pdf":
			pdfs = append(pdfs, f.Data)
		case ".jpg", ".jpeg", ".png":
			images = append(images, f.Data)
		default:
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("Invalid file type: %s. Only PDF, JPG, and PNG are accepted", f.Filename))
		}
	}

	var content []byte
	mainFilename := filenames[0]
	if len(pdfs) == 0 {
		merged, err := pdfcompose.ImagesToPDF(images)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to convert images to PDF", err)
		}
		content = merged
		mainFilename = strings.Join(filenames, " + ")
	} else {
		content = pdfs[0]
		for _, f := range files {
			if strings.EqualFold(filepath.Ext(f.Filename), ".pdf") {
				mainFilename = f.Filename
				break
			}
		}
	}

	id := s.newID()
	key := id + ".pdf"
	if err := s.documents.Put(ctx, key, content, "application/pdf"); err != nil {
		return nil, err
	}

	fields, err := s.extractor.Extract(ctx, content)
	if err != nil {
		s.discardDocument(ctx, key)
		if errors.Is(err, providers.ErrExtractionUnauthorized) {
			return nil, apperrors.NewExternalError("Extraction provider rejected credentials", err)
		}
		return nil, apperrors.NewInternalError("Failed to process document", err)
	}

	c := &entities.Case{
		ID:         id,
		Filename:   mainFilename,
		Name:       mainFilename,
		UploadedAt: s.now().Format(entities.UploadedAtLayout),
		PDFPath:    pdfPrefix + key,
	}
	c.ApplyFields(fields)

	if err := s.repo.Create(ctx, c); err != nil {
		s.discardDocument(ctx, key)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("case_id", id).
		Str("filename", mainFilename).
		Int("files", len(files)).
		Msg("Case created from upload")
	s.publish(ctx, c, entities.CaseEventCreated)
	return c, nil
}

// List returns case summaries, newest upload first
func (s *CaseService) List(ctx context.Context) ([]entities.CaseSummary, error) {
	cases, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].UploadedAt > cases[j].UploadedAt
	})

	summaries := make([]entities.CaseSummary, 0, len(cases))
	for _, c := range cases {
		summaries = append(summaries, c.Summary())
	}
	return summaries, nil
}

// Get returns the full case with its derived evaluation
func (s *CaseService) Get(ctx context.Context, id string) (*entities.CaseDetail, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := entities.NewCaseDetail(c)
	return &detail, nil
}

// Save replaces the whole record. The body id must match the path id.
func (s *CaseService) Save(ctx context.Context, id string, c *entities.Case) (*entities.Case, error) {
	if c == nil {
		return nil, apperrors.NewValidationError("Request body is required")
	}
	if c.ID != id {
		return nil, apperrors.NewValidationError("Document ID mismatch")
	}

	if err := s.repo.Replace(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, c, entities.CaseEventUpdated)
	return c, nil
}

// Rename sets the display name of a case
func (s *CaseService) Rename(ctx context.Context, id, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("Name cannot be empty")
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	c.Name = name
	if err := s.repo.Replace(ctx, c); err != nil {
		return "", err
	}

	s.publish(ctx, c, entities.CaseEventUpdated)
	return name, nil
}

// SetHumanPrediction records or clears the underwriter's decision. Accepting a
// case with invalid required fields needs override.
func (s *CaseService) SetHumanPrediction(ctx context.Context, id string, decision *entities.Prediction, override bool) (*entities.Case, error) {
	if decision != nil && !decision.Valid() {
		return nil, apperrors.NewValidationError("human_prediction must be 'Accepted', 'Rejected', or null")
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if decision != nil && *decision == entities.PredictionAccepted && !override {
		var incomplete *validation.IncompleteError
		if err := validation.CanAccept(c.Record()); errors.As(err, &incomplete) {
			return nil, apperrors.NewUnprocessableError(
				"Cannot accept an incomplete case; invalid fields: " + strings.Join(incomplete.Fields, ", "))
		}
	}

	c.HumanPrediction = decision
	if err := s.repo.Replace(ctx, c); err != nil {
		return nil, err
	}

	event := observability.LoggerFromContext(ctx).Info().Str("case_id", id).Bool("override", override)
	if decision != nil {
		event = event.Str("human_prediction", string(*decision))
	}
	event.Msg("Human decision recorded")

	s.publish(ctx, c, entities.CaseEventUpdated)
	return c, nil
}

// Analyze runs the analyzer and stores its recommendation as model_prediction
func (s *CaseService) Analyze(ctx context.Context, id string) (*entities.Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prediction, err := s.analyzer.Analyze(ctx, c)
	if err != nil {
		return nil, apperrors.NewInternalError("Analysis failed", err)
	}
	if !prediction.Valid() {
		return nil, apperrors.NewExternalError("Analyzer returned an unknown decision", fmt.Errorf("decision %q", prediction))
	}

	c.ModelPrediction = &prediction
	if err := s.repo.Replace(ctx, c); err != nil {
		return nil, err
	}

	s.publish(ctx, c, entities.CaseEventAnalyzed)
	return c, nil
}

// Delete removes the case record and its PDF
func (s *CaseService) Delete(ctx context.Context, id string) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.discardDocument(ctx, documentKey(c))
	s.publish(ctx, c, entities.CaseEventDeleted)
	return nil
}

// GetPDF returns the stored PDF bytes of a case
func (s *CaseService) GetPDF(ctx context.Context, id string) ([]byte, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.documents.Get(ctx, documentKey(c))
}

func documentKey(c *entities.Case) string {
	if key := strings.TrimPrefix(c.PDFPath, pdfPrefix); key != "" {
		return key
	}
	return c.ID + ".pdf"
}

func (s *CaseService) discardDocument(ctx context.Context, key string) {
	if err := s.documents.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to remove stored PDF")
	}
}

func (s *CaseService) publish(ctx context.Context, c *entities.Case, eventType entities.CaseEventType) {
	if s.events == nil {
		return
	}

	summary := c.Summary()
	event := entities.NewCaseEvent(c.ID, eventType, &summary)
	for _, channel := range []string{providers.EventChannelCaseUpdates, providers.GetCaseChannel(c.ID)} {
		if err := s.events.Publish(ctx, channel, event); err != nil {
			log.Warn().Err(err).Str("case_id", c.ID).Str("channel", channel).Msg("Failed to publish case event")
		}
	}
}
