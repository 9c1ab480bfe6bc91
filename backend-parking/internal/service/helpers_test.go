package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock shared by services and the memory store
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv wires the services to one in-memory store
type testEnv struct {
	store      *repository.MemoryStore
	facilities *repository.MemoryFacilityRepository
	tariffs    *repository.MemoryTariffRepository
	sessions   *repository.MemorySessionRepository
	audits     *repository.MemoryAuditRepository
	recorder   AuditRecorder
	clock      *fakeClock
	log        *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := newFakeClock(time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC))
	store.SetClock(clock.Now)
	log := logger.NewNop()
	audits := repository.NewMemoryAuditRepository(store)
	return &testEnv{
		store:      store,
		facilities: repository.NewMemoryFacilityRepository(store),
		tariffs:    repository.NewMemoryTariffRepository(store),
		sessions:   repository.NewMemorySessionRepository(store),
		audits:     audits,
		recorder:   NewAuditRecorder(audits, &AuditRecorderConfig{MaxFieldLength: DefaultAuditMaxFieldLength}, log),
		clock:      clock,
		log:        log,
	}
}

func (e *testEnv) sessionService(defaultTariffID int64) SessionService {
	selector := NewTariffSelector(e.tariffs, defaultTariffID, e.log)
	return NewSessionService(
		e.store,
		e.sessions,
		e.facilities,
		e.tariffs,
		selector,
		NewBillingCalculator(),
		e.recorder,
		&SessionServiceConfig{Location: time.UTC, StorageTimeout: time.Second, Now: e.clock.Now},
		e.log,
	)
}

func (e *testEnv) tariffService() TariffService {
	return NewTariffService(e.store, e.tariffs, e.recorder, time.Second, e.log)
}

func (e *testEnv) facilityService() FacilityService {
	return NewFacilityService(e.store, e.facilities, e.recorder, time.Second, e.log)
}

func (e *testEnv) seedFacility(t *testing.T) *domain.Facility {
	t.Helper()
	f := &domain.Facility{Name: "Central", Address: "6a Avenida 1-20, Zona 1", Phone: "22345678", Spaces: 40, Active: true}
	require.NoError(t, e.facilities.Create(context.Background(), f))
	return f
}

func (e *testEnv) seedTariff(t *testing.T, name, start, end string, price float64) *domain.Tariff {
	t.Helper()
	tariff := &domain.Tariff{
		Name:         name,
		StartTime:    domain.MustParseTimeOfDay(start),
		EndTime:      domain.MustParseTimeOfDay(end),
		PricePerHour: price,
		Active:       true,
	}
	require.NoError(t, e.tariffs.Create(context.Background(), tariff))
	return tariff
}

// auditTrail returns every stored audit record in id order
func (e *testEnv) auditTrail(t *testing.T) []*domain.AuditRecord {
	t.Helper()
	page, total, err := e.audits.Query(context.Background(), domain.AuditFilter{}, domain.NewPage(0, domain.MaxPageSize))
	require.NoError(t, err)
	require.Equal(t, int64(len(page)), total)
	return page
}

func countAudits(records []*domain.AuditRecord, op domain.AuditOperation, result domain.AuditResult) int {
	n := 0
	for _, r := range records {
		if r.Operation == op && r.Result == result {
			n++
		}
	}
	return n
}
