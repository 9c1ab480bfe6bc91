package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockAuditRepository is a testify mock of AuditRepository
type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Append(ctx context.Context, rec *domain.AuditRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockAuditRepository) GetByID(ctx context.Context, id int64) (*domain.AuditRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*domain.AuditRecord)
	return rec, args.Error(1)
}

func (m *mockAuditRepository) Query(ctx context.Context, filter domain.AuditFilter, page domain.Page) ([]*domain.AuditRecord, int64, error) {
	args := m.Called(ctx, filter, page)
	recs, _ := args.Get(0).([]*domain.AuditRecord)
	return recs, args.Get(1).(int64), args.Error(2)
}

func (m *mockAuditRepository) QueryByDateRange(ctx context.Context, dateRange domain.DateRange, page domain.Page) ([]*domain.AuditRecord, int64, error) {
	args := m.Called(ctx, dateRange, page)
	recs, _ := args.Get(0).([]*domain.AuditRecord)
	return recs, args.Get(1).(int64), args.Error(2)
}

func (m *mockAuditRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*domain.AuditRecord, error) {
	args := m.Called(ctx, afterID, limit)
	recs, _ := args.Get(0).([]*domain.AuditRecord)
	return recs, args.Error(1)
}

var _ repository.AuditRepository = (*mockAuditRepository)(nil)

func TestAuditRecorder_AppendStoresSnapshots(t *testing.T) {
	env := newTestEnv(t)

	rec, err := env.recorder.Append(context.Background(), AuditEntry{
		Entity:      domain.EntityTariff,
		Description: "Create tariff",
		Operation:   domain.AuditOperationCreate,
		Request:     map[string]any{"name": "Day", "price_per_hour": 12.5},
		Response:    &domain.Tariff{ID: 3, Name: "Day", PricePerHour: 12.5, Active: true},
		Result:      domain.AuditResultSuccess,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, env.clock.Now(), rec.CreatedAt)
	assert.JSONEq(t, `{"name":"Day","price_per_hour":12.5}`, string(rec.Request))
	assert.JSONEq(t, `{"id":3,"name":"Day","start_time":"00:00:00","end_time":"00:00:00","price_per_hour":12.5,"active":true}`, string(rec.Response))

	stored, err := env.recorder.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
}

func TestAuditRecorder_TruncatesLongStrings(t *testing.T) {
	env := newTestEnv(t)
	recorder := NewAuditRecorder(env.audits, &AuditRecorderConfig{MaxFieldLength: 5}, logger.NewNop())

	rec, err := recorder.Append(context.Background(), AuditEntry{
		Entity:      domain.EntityFacility,
		Description: "Update facility with a long description",
		Operation:   domain.AuditOperationUpdate,
		Request: map[string]any{
			"name":   "Parqueo Central",
			"phone":  "1234",
			"spaces": 1234567,
			"tags":   []string{"covered", "24h"},
			"nested": map[string]string{"address": "Zona 10"},
		},
		Result: domain.AuditResultSuccess,
	})
	require.NoError(t, err)

	assert.Equal(t, "Updat", rec.Description)
	assert.JSONEq(t, `{"name":"Parqu","phone":"1234","spaces":1234567,"tags":["cover","24h"],"nested":{"address":"Zona "}}`, string(rec.Request))
	assert.Nil(t, rec.Response)
}

func TestAuditRecorder_TruncatesByRune(t *testing.T) {
	out, cut := cutString(strings.Repeat("ñ", 10), 4)
	assert.True(t, cut)
	assert.Equal(t, "ññññ", out)

	out, cut = cutString("abc", 3)
	assert.False(t, cut)
	assert.Equal(t, "abc", out)
}

func TestAuditRecorder_DefaultMaxLength(t *testing.T) {
	env := newTestEnv(t)

	rec, err := env.recorder.Append(context.Background(), AuditEntry{
		Entity:      domain.EntityParkingSession,
		Description: strings.Repeat("x", 300),
		Operation:   domain.AuditOperationRead,
		Result:      domain.AuditResultSuccess,
	})
	require.NoError(t, err)
	assert.Len(t, rec.Description, DefaultAuditMaxFieldLength)
}

func TestAuditRecorder_StorageErrorPropagates(t *testing.T) {
	repo := new(mockAuditRepository)
	storageErr := fmt.Errorf("failed to append audit record: %w: %w", domain.ErrStorage, context.DeadlineExceeded)
	repo.On("Append", mock.Anything, mock.AnythingOfType("*domain.AuditRecord")).Return(storageErr)

	recorder := NewAuditRecorder(repo, nil, logger.NewNop())
	_, err := recorder.Append(context.Background(), AuditEntry{
		Entity:    domain.EntityParkingSession,
		Operation: domain.AuditOperationCreate,
		Result:    domain.AuditResultSuccess,
	})

	assert.True(t, domain.IsStorageError(err))
	repo.AssertExpectations(t)
}

func TestAuditRecorder_AppendRunsUnderDeadline(t *testing.T) {
	repo := new(mockAuditRepository)
	repo.On("Append", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 50*time.Millisecond
	}), mock.Anything).Return(nil)

	recorder := NewAuditRecorder(repo, &AuditRecorderConfig{StorageTimeout: 50 * time.Millisecond}, logger.NewNop())
	_, err := recorder.Append(context.Background(), AuditEntry{Entity: domain.EntityTariff, Operation: domain.AuditOperationRead, Result: domain.AuditResultSuccess})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestAuditRecorder_Query(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entries := []AuditEntry{
		{Entity: domain.EntityTariff, Operation: domain.AuditOperationCreate, Result: domain.AuditResultSuccess},
		{Entity: domain.EntityTariff, Operation: domain.AuditOperationCreate, Result: domain.AuditResultFailure},
		{Entity: domain.EntityFacility, Operation: domain.AuditOperationDelete, Result: domain.AuditResultNotFound},
	}
	for _, e := range entries {
		_, err := env.recorder.Append(ctx, e)
		require.NoError(t, err)
		env.clock.Advance(time.Hour)
	}

	page, err := env.recorder.Query(ctx, domain.AuditFilter{Entity: "tariff"}, domain.NewPage(0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = env.recorder.Query(ctx, domain.AuditFilter{Result: domain.AuditResultNotFound}, domain.NewPage(0, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.EntityFacility, page.Items[0].Entity)

	_, err = env.recorder.Query(ctx, domain.AuditFilter{Operation: "PATCH"}, domain.NewPage(0, 10))
	assert.ErrorIs(t, err, domain.ErrInvalidAuditOperation)

	start := env.auditTrail(t)[1].CreatedAt
	page, err = env.recorder.QueryByDateRange(ctx, domain.DateRange{Start: start, End: start.Add(2 * time.Hour)}, domain.NewPage(0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = env.recorder.QueryByDateRange(ctx, domain.DateRange{Start: start, End: start.Add(-time.Hour)}, domain.NewPage(0, 10))
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = env.recorder.Get(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAuditRecordID)
	_, err = env.recorder.Get(ctx, 100)
	assert.ErrorIs(t, err, domain.ErrAuditRecordNotFound)
}

func TestAuditRecorder_SnapshotKeepsNumbers(t *testing.T) {
	env := newTestEnv(t)
	recorder := NewAuditRecorder(env.audits, &AuditRecorderConfig{MaxFieldLength: 3}, logger.NewNop())

	rec, err := recorder.Append(context.Background(), AuditEntry{
		Entity:    domain.EntityParkingSession,
		Operation: domain.AuditOperationUpdate,
		Request:   map[string]any{"plate": "ABC123", "total": 9007199254740993},
		Result:    domain.AuditResultSuccess,
	})
	require.NoError(t, err)

	dec := json.NewDecoder(strings.NewReader(string(rec.Request)))
	dec.UseNumber()
	var decoded map[string]any
	require.NoError(t, dec.Decode(&decoded))
	assert.Equal(t, json.Number("9007199254740993"), decoded["total"])
	assert.Equal(t, "ABC", decoded["plate"])
}
