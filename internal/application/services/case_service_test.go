package services_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/events"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/memory"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/storage"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/application/services"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

// Mocks

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, pdf []byte) (map[string]any, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, c *entities.Case) (entities.Prediction, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(entities.Prediction), args.Error(1)
}

type caseFixture struct {
	service   *services.CaseService
	repo      *memory.CaseRepository
	store     *storage.BlobStore
	extractor *MockExtractor
	analyzer  *MockAnalyzer
	bus       *events.LocalEventBus
}

func newCaseFixture(t *testing.T) *caseFixture {
	t.Helper()
	f := &caseFixture{
		repo:      memory.NewCaseRepository(),
		store:     storage.NewBlobStore(memblob.OpenBucket(nil), nil),
		extractor: new(MockExtractor),
		analyzer:  new(MockAnalyzer),
		bus:       events.NewLocalEventBus(),
	}
	t.Cleanup(func() { f.bus.Close() })
	f.service = services.NewCaseService(f.repo, f.store, f.extractor, f.analyzer, f.bus, 2)
	return f
}

func completeFields() map[string]any {
	return map[string]any{
		"gender": "f", "age": 34.0, "birthdate": "1991-04-12", "marital_status": "married",
		"address": "Main St 1", "occupation": "Engineer", "height_cm": 170.0, "weight_kg": 70.0,
		"bmi": 22.0, "medical_conditions": "none", "sports": "running", "annual_income": "95000",
		"earning_chf": 95000.0, "smoking": false, "packs_per_week": 0.0, "drug_use": false,
		"drug_frequency": 0.0, "drug_type": "safe", "staying_abroad": false, "abroad_type": "safe",
		"dangerous_sports": false, "sport_type": "safe", "sports_activity_h_per_week": 2.0,
		"medical_issue": false, "medical_type": "safe", "doctor_visits": false, "visit_type": "physician",
		"regular_medication": false, "medication_type": "safe",
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func (f *caseFixture) seed(t *testing.T, fields map[string]any) *entities.Case {
	t.Helper()
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(fields, nil).Once()
	c, err := f.service.Upload(context.Background(), []services.UploadFile{{Filename: "form.pdf", Data: []byte("%PDF-1.4")}})
	require.NoError(t, err)
	return c
}

func TestCaseService_UploadPDF(t *testing.T) {
	f := newCaseFixture(t)
	f.extractor.On("Extract", mock.Anything, []byte("%PDF-1.4")).Return(map[string]any{"age": 51.0, "smoking": true}, nil)

	c, err := f.service.Upload(context.Background(), []services.UploadFile{{Filename: "form.pdf", Data: []byte("%PDF-1.4")}})
	require.NoError(t, err)

	assert.Equal(t, "form.pdf", c.Filename)
	assert.Equal(t, "form.pdf", c.Name)
	assert.Equal(t, "pdfs/"+c.ID+".pdf", c.PDFPath)
	_, err = time.Parse(entities.UploadedAtLayout, c.UploadedAt)
	assert.NoError(t, err)
	assert.Equal(t, 51.0, *c.Age)
	assert.Nil(t, c.ModelPrediction)

	pdf, err := f.service.GetPDF(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf))
}

func TestCaseService_UploadImagesMerged(t *testing.T) {
	f := newCaseFixture(t)
	f.extractor.On("Extract", mock.Anything, mock.MatchedBy(func(pdf []byte) bool {
		return bytes.HasPrefix(pdf, []byte("%PDF"))
	})).Return(map[string]any{}, nil)

	c, err := f.service.Upload(context.Background(), []services.UploadFile{
		{Filename: "front.PNG", Data: pngBytes(t)},
		{Filename: "back.png", Data: pngBytes(t)},
	})
	require.NoError(t, err)
	assert.Equal(t, "front.PNG + back.png", c.Filename)
}

func TestCaseService_UploadMixedUsesPDF(t *testing.T) {
	f := newCaseFixture(t)
	f.extractor.On("Extract", mock.Anything, []byte("%PDF-real")).Return(map[string]any{}, nil)

	c, err := f.service.Upload(context.Background(), []services.UploadFile{
		{Filename: "scan.jpg", Data: []byte("jpeg")},
		{Filename: "form.pdf", Data: []byte("%PDF-real")},
	})
	require.NoError(t, err)
	assert.Equal(t, "form.pdf", c.Filename)
}

func TestCaseService_UploadRejects(t *testing.T) {
	f := newCaseFixture(t)
	ctx := context.Background()

	_, err := f.service.Upload(ctx, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.service.Upload(ctx, []services.UploadFile{{Filename: "a.pdf"}, {Filename: "b.pdf"}, {Filename: "c.pdf"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "Maximum 2 files allowed")

	_, err = f.service.Upload(ctx, []services.UploadFile{{Filename: "notes.docx"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "Invalid file type: notes.docx")

	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestCaseService_UploadExtractionFailureRemovesPDF(t *testing.T) {
	f := newCaseFixture(t)
	f.service = services.NewCaseService(f.repo, f.store, f.extractor, f.analyzer, nil, 2)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := f.service.Upload(context.Background(), []services.UploadFile{{Filename: "form.pdf", Data: []byte("%PDF")}})
	require.Error(t, err)

	cases, _ := f.repo.List(context.Background())
	assert.Empty(t, cases)
}

func TestCaseService_UploadUnauthorizedIsExternal(t *testing.T) {
	f := newCaseFixture(t)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, providers.ErrExtractionUnauthorized)

	_, err := f.service.Upload(context.Background(), []services.UploadFile{{Filename: "form.pdf", Data: []byte("%PDF")}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestCaseService_SaveIDMismatch(t *testing.T) {
	f := newCaseFixture(t)

	_, err := f.service.Save(context.Background(), "a", &entities.Case{ID: "b"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = f.service.Save(context.Background(), "ghost", &entities.Case{ID: "ghost"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCaseService_SavePublishesUpdate(t *testing.T) {
	f := newCaseFixture(t)
	c := f.seed(t, map[string]any{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := f.bus.Subscribe(ctx, providers.EventChannelCaseUpdates)
	require.NoError(t, err)

	age := 44.0
	c.Age = &age
	_, err = f.service.Save(context.Background(), c.ID, c)
	require.NoError(t, err)

	select {
	case event := <-updates:
		assert.Equal(t, entities.CaseEventUpdated, event.EventType)
		assert.Equal(t, c.ID, event.CaseID)
	case <-time.After(time.Second):
		t.Fatal("no update event")
	}

	detail, err := f.service.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 44.0, *detail.Age)
}

func TestCaseService_Rename(t *testing.T) {
	f := newCaseFixture(t)
	c := f.seed(t, map[string]any{})

	_, err := f.service.Rename(context.Background(), c.ID, "   ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	name, err := f.service.Rename(context.Background(), c.ID, " Jane Doe ")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name)

	list, err := f.service.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", list[0].Name)
}

func TestCaseService_AcceptanceGuard(t *testing.T) {
	f := newCaseFixture(t)
	incomplete := f.seed(t, map[string]any{"age": 40.0})
	ctx := context.Background()
	accepted := entities.PredictionAccepted
	rejected := entities.PredictionRejected

	_, err := f.service.SetHumanPrediction(ctx, incomplete.ID, &accepted, false)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnprocessable))

	c, err := f.service.SetHumanPrediction(ctx, incomplete.ID, &rejected, false)
	require.NoError(t, err)
	assert.Equal(t, entities.PredictionRejected, *c.HumanPrediction)

	c, err = f.service.SetHumanPrediction(ctx, incomplete.ID, &accepted, true)
	require.NoError(t, err)
	assert.Equal(t, entities.PredictionAccepted, *c.HumanPrediction)

	c, err = f.service.SetHumanPrediction(ctx, incomplete.ID, nil, false)
	require.NoError(t, err)
	assert.Nil(t, c.HumanPrediction)

	bogus := entities.Prediction("Maybe")
	_, err = f.service.SetHumanPrediction(ctx, incomplete.ID, &bogus, false)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCaseService_AcceptCompleteCase(t *testing.T) {
	f := newCaseFixture(t)
	c := f.seed(t, completeFields())
	accepted := entities.PredictionAccepted

	got, err := f.service.SetHumanPrediction(context.Background(), c.ID, &accepted, false)
	require.NoError(t, err)
	assert.Equal(t, validation.StatusAccepted, got.Evaluate().Status)
	assert.Equal(t, entities.PredictionAccepted, *got.Summary().Prediction)
}

func TestCaseService_Analyze(t *testing.T) {
	f := newCaseFixture(t)
	c := f.seed(t, completeFields())
	f.analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(in *entities.Case) bool { return in.ID == c.ID })).
		Return(entities.PredictionRejected, nil)

	got, err := f.service.Analyze(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PredictionRejected, *got.ModelPrediction)
	assert.Nil(t, got.HumanPrediction)

	detail, _ := f.service.Get(context.Background(), c.ID)
	assert.Equal(t, validation.StatusRejected, detail.Status)
}

func TestCaseService_Delete(t *testing.T) {
	f := newCaseFixture(t)
	c := f.seed(t, map[string]any{})
	ctx := context.Background()

	require.NoError(t, f.service.Delete(ctx, c.ID))

	_, err := f.service.Get(ctx, c.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	ok, _ := f.store.Exists(ctx, c.ID+".pdf")
	assert.False(t, ok)

	err = f.service.Delete(ctx, c.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCaseService_ListNewestFirst(t *testing.T) {
	f := newCaseFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, &entities.Case{ID: "old", Filename: "old.pdf", UploadedAt: "2024-01-01 10:00:00"}))
	require.NoError(t, f.repo.Create(ctx, &entities.Case{ID: "new", Filename: "new.pdf", UploadedAt: "2024-02-01 10:00:00"}))
	require.NoError(t, f.repo.Create(ctx, &entities.Case{ID: "undated", Filename: "x.pdf"}))

	list, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
	assert.Equal(t, "Unknown", list[2].UploadedAt)
}
