package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSession(plate string, facilityID int64, start time.Time) *domain.ParkingSession {
	return &domain.ParkingSession{Plate: plate, FacilityID: facilityID, StartTime: start, Status: domain.SessionStatusOpen}
}

func TestMemorySessionRepository_SingleOpenPerPlate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(NewMemoryStore())
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	first := openSession("ABC123", 1, start)
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, int64(1), first.ID)

	err := repo.Create(ctx, openSession("ABC123", 2, start))
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyOpen)

	// A closed historical session for the same plate is fine
	end := start.Add(time.Hour)
	total := 10.0
	closed := &domain.ParkingSession{Plate: "ABC123", FacilityID: 1, StartTime: start.Add(-2 * time.Hour), EndTime: &end, Total: &total, Status: domain.SessionStatusClosed}
	require.NoError(t, repo.Create(ctx, closed))

	_, count, err := repo.List(ctx, domain.SessionFilter{Plate: "ABC123", Status: domain.SessionStatusOpen}, domain.NewPage(0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemorySessionRepository_MarkClosedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(NewMemoryStore())
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	s := openSession("XYZ999", 1, start)
	require.NoError(t, repo.Create(ctx, s))

	found, err := repo.FindOpenByPlate(ctx, "XYZ999")
	require.NoError(t, err)
	require.NoError(t, found.Close(start.Add(time.Hour), 1, 10))
	require.NoError(t, repo.MarkClosed(ctx, found))

	assert.ErrorIs(t, repo.MarkClosed(ctx, found), domain.ErrNoOpenSession)

	_, err = repo.FindOpenByPlate(ctx, "XYZ999")
	assert.ErrorIs(t, err, domain.ErrNoOpenSession)

	stored, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusClosed, stored.Status)
	assert.Equal(t, 10.0, *stored.Total)
}

func TestMemorySessionRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(NewMemoryStore())

	s := openSession("ABC123", 1, time.Now())
	require.NoError(t, repo.Create(ctx, s))
	s.Plate = "MUTATE"

	stored, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", stored.Plate)
}

func TestMemorySessionRepository_FindClosedByFacilityAndDateRange(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(NewMemoryStore())
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	add := func(facilityID int64, endOffset time.Duration, total float64) {
		end := day.Add(endOffset)
		s := &domain.ParkingSession{
			Plate: "ABC123", FacilityID: facilityID, StartTime: day,
			EndTime: &end, Total: &total, Status: domain.SessionStatusClosed,
		}
		require.NoError(t, repo.Create(ctx, s))
	}
	add(1, 10*time.Hour, 15)
	add(1, 2*time.Hour, 5)
	add(1, 3*time.Hour, 0)   // free stay, excluded
	add(2, 4*time.Hour, 20)  // other facility
	add(1, 30*time.Hour, 50) // outside range
	require.NoError(t, repo.Create(ctx, openSession("OPEN1", 1, day)))

	got, err := repo.FindClosedByFacilityAndDateRange(ctx, 1, domain.DateRange{Start: day, End: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5.0, *got[0].Total)
	assert.Equal(t, 15.0, *got[1].Total)

	got, err = repo.FindClosedByFacilityAndDateRange(ctx, 3, domain.DateRange{Start: day, End: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_WithinTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sessions := NewMemorySessionRepository(store)
	audits := NewMemoryAuditRepository(store)
	boom := errors.New("boom")

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, sessions.Create(ctx, openSession("ABC123", 1, time.Now())))
		require.NoError(t, audits.Append(ctx, &domain.AuditRecord{Entity: domain.EntityParkingSession}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = sessions.FindOpenByPlate(ctx, "ABC123")
	assert.ErrorIs(t, err, domain.ErrNoOpenSession)

	records, total, err := audits.Query(ctx, domain.AuditFilter{}, domain.NewPage(0, 10))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, records)

	// Sequences are restored too
	s := openSession("ABC123", 1, time.Now())
	require.NoError(t, sessions.Create(ctx, s))
	assert.Equal(t, int64(1), s.ID)
}

func TestMemoryStore_WithinTransactionSerializes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sessions := NewMemorySessionRepository(store)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTransaction(ctx, func(ctx context.Context) error {
				return sessions.Create(ctx, openSession("RACE1", 1, time.Now()))
			})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrSessionAlreadyOpen):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(19), conflicts.Load())
}

func TestMemoryStore_CanceledContextIsStorageError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryFacilityRepository(NewMemoryStore()).GetByID(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryTariffRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTariffRepository(NewMemoryStore())

	day := &domain.Tariff{Name: "Day", StartTime: domain.MustParseTimeOfDay("08:00"), EndTime: domain.MustParseTimeOfDay("20:00"), PricePerHour: 10, Active: true}
	night := &domain.Tariff{Name: "Night", StartTime: 0, EndTime: domain.MustParseTimeOfDay("07:59"), PricePerHour: 5, Active: false}
	require.NoError(t, repo.Create(ctx, day))
	require.NoError(t, repo.Create(ctx, night))

	assert.ErrorIs(t, repo.Create(ctx, &domain.Tariff{Name: "Day"}), domain.ErrTariffNameExists)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Day", active[0].Name)

	night.Name = "Day"
	assert.ErrorIs(t, repo.Update(ctx, night), domain.ErrTariffNameExists)

	require.NoError(t, repo.Delete(ctx, day.ID))
	_, err = repo.GetByID(ctx, day.ID)
	assert.ErrorIs(t, err, domain.ErrTariffNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, day.ID), domain.ErrTariffNotFound)
}

func TestMemoryFacilityRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFacilityRepository(NewMemoryStore())

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Facility{Name: "F", Address: "A", Phone: "12345678", Spaces: 1}))
	}

	page, total, err := repo.List(ctx, domain.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	require.Len(t, page, 5)
	assert.Equal(t, int64(11), page[0].ID)
}

func TestMemoryAuditRepository(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	})
	repo := NewMemoryAuditRepository(store)

	for _, op := range []domain.AuditOperation{domain.AuditOperationCreate, domain.AuditOperationRead, domain.AuditOperationUpdate} {
		require.NoError(t, repo.Append(ctx, &domain.AuditRecord{Entity: domain.EntityTariff, Operation: op, Result: domain.AuditResultSuccess}))
	}

	records, total, err := repo.Query(ctx, domain.AuditFilter{Entity: "tariff", Operation: domain.AuditOperationRead}, domain.NewPage(0, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(2), records[0].ID)

	records, _, err = repo.QueryByDateRange(ctx, domain.DateRange{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)}, domain.NewPage(0, 10))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	after, err := repo.ListAfter(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, int64(2), after[0].ID)

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrAuditRecordNotFound)
}
