package repository

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
)

// MemoryStore holds every table of the in-memory driver behind one mutex.
// Stored values are never mutated in place, so a shallow map copy is a
// consistent snapshot.
type MemoryStore struct {
	mu sync.Mutex

	facilities map[int64]*domain.Facility
	tariffs    map[int64]*domain.Tariff
	sessions   map[int64]*domain.ParkingSession
	audits     []*domain.AuditRecord

	seq memorySequences
	now func() time.Time
}

type memorySequences struct {
	facility, tariff, session, audit int64
}

type memoryTxKey struct {
	store *MemoryStore
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		facilities: make(map[int64]*domain.Facility),
		tariffs:    make(map[int64]*domain.Tariff),
		sessions:   make(map[int64]*domain.ParkingSession),
		now:        time.Now,
	}
}

// SetClock replaces the clock used to stamp audit records
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// WithinTransaction holds the store lock for the whole of fn and restores
// the previous state when fn fails
func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	facilities := maps.Clone(s.facilities)
	tariffs := maps.Clone(s.tariffs)
	sessions := maps.Clone(s.sessions)
	auditLen := len(s.audits)
	seq := s.seq

	if err := fn(context.WithValue(ctx, memoryTxKey{store: s}, true)); err != nil {
		s.facilities = facilities
		s.tariffs = tariffs
		s.sessions = sessions
		s.audits = s.audits[:auditLen]
		s.seq = seq
		return err
	}
	return nil
}

func (s *MemoryStore) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(memoryTxKey{store: s}).(bool)
	return v
}

// lock takes the store mutex unless ctx already runs inside one of its
// transactions. It fails when ctx is already done.
func (s *MemoryStore) lock(ctx context.Context, action string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError(action, err)
	}
	if s.inTx(ctx) {
		return func() {}, nil
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

var _ Transactor = (*MemoryStore)(nil)
