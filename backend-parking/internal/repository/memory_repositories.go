package repository

import (
	"context"
	"slices"
	"sort"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
)

// MemoryFacilityRepository implements FacilityRepository on a MemoryStore
type MemoryFacilityRepository struct {
	store *MemoryStore
}

// NewMemoryFacilityRepository creates a new MemoryFacilityRepository
func NewMemoryFacilityRepository(store *MemoryStore) *MemoryFacilityRepository {
	return &MemoryFacilityRepository{store: store}
}

func (r *MemoryFacilityRepository) Create(ctx context.Context, f *domain.Facility) error {
	unlock, err := r.store.lock(ctx, "create facility")
	if err != nil {
		return err
	}
	defer unlock()

	r.store.seq.facility++
	f.ID = r.store.seq.facility
	c := *f
	r.store.facilities[f.ID] = &c
	return nil
}

func (r *MemoryFacilityRepository) GetByID(ctx context.Context, id int64) (*domain.Facility, error) {
	unlock, err := r.store.lock(ctx, "get facility")
	if err != nil {
		return nil, err
	}
	defer unlock()

	f, ok := r.store.facilities[id]
	if !ok {
		return nil, domain.ErrFacilityNotFound
	}
	c := *f
	return &c, nil
}

func (r *MemoryFacilityRepository) List(ctx context.Context, page domain.Page) ([]*domain.Facility, int64, error) {
	unlock, err := r.store.lock(ctx, "list facilities")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := make([]*domain.Facility, 0, len(r.store.facilities))
	for _, id := range sortedKeys(r.store.facilities) {
		c := *r.store.facilities[id]
		all = append(all, &c)
	}
	start, end := page.Bounds(len(all))
	return all[start:end], int64(len(all)), nil
}

func (r *MemoryFacilityRepository) Update(ctx context.Context, f *domain.Facility) error {
	unlock, err := r.store.lock(ctx, "update facility")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.store.facilities[f.ID]; !ok {
		return domain.ErrFacilityNotFound
	}
	c := *f
	r.store.facilities[f.ID] = &c
	return nil
}

func (r *MemoryFacilityRepository) Delete(ctx context.Context, id int64) error {
	unlock, err := r.store.lock(ctx, "delete facility")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.store.facilities[id]; !ok {
		return domain.ErrFacilityNotFound
	}
	delete(r.store.facilities, id)
	return nil
}

// MemoryTariffRepository implements TariffRepository on a MemoryStore
type MemoryTariffRepository struct {
	store *MemoryStore
}

// NewMemoryTariffRepository creates a new MemoryTariffRepository
func NewMemoryTariffRepository(store *MemoryStore) *MemoryTariffRepository {
	return &MemoryTariffRepository{store: store}
}

func (r *MemoryTariffRepository) Create(ctx context.Context, t *domain.Tariff) error {
	unlock, err := r.store.lock(ctx, "create tariff")
	if err != nil {
		return err
	}
	defer unlock()

	if r.nameTaken(t.Name, 0) {
		return domain.ErrTariffNameExists
	}
	r.store.seq.tariff++
	t.ID = r.store.seq.tariff
	c := *t
	r.store.tariffs[t.ID] = &c
	return nil
}

func (r *MemoryTariffRepository) GetByID(ctx context.Context, id int64) (*domain.Tariff, error) {
	unlock, err := r.store.lock(ctx, "get tariff")
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, ok := r.store.tariffs[id]
	if !ok {
		return nil, domain.ErrTariffNotFound
	}
	c := *t
	return &c, nil
}

func (r *MemoryTariffRepository) List(ctx context.Context, page domain.Page) ([]*domain.Tariff, int64, error) {
	unlock, err := r.store.lock(ctx, "list tariffs")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := r.collect(func(*domain.Tariff) bool { return true })
	start, end := page.Bounds(len(all))
	return all[start:end], int64(len(all)), nil
}

func (r *MemoryTariffRepository) ListActive(ctx context.Context) ([]*domain.Tariff, error) {
	unlock, err := r.store.lock(ctx, "list active tariffs")
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.collect(func(t *domain.Tariff) bool { return t.Active }), nil
}

func (r *MemoryTariffRepository) Update(ctx context.Context, t *domain.Tariff) error {
	unlock, err := r.store.lock(ctx, "update tariff")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.store.tariffs[t.ID]; !ok {
		return domain.ErrTariffNotFound
	}
	if r.nameTaken(t.Name, t.ID) {
		return domain.ErrTariffNameExists
	}
	c := *t
	r.store.tariffs[t.ID] = &c
	return nil
}

func (r *MemoryTariffRepository) Delete(ctx context.Context, id int64) error {
	unlock, err := r.store.lock(ctx, "delete tariff")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.store.tariffs[id]; !ok {
		return domain.ErrTariffNotFound
	}
	delete(r.store.tariffs, id)
	return nil
}

func (r *MemoryTariffRepository) nameTaken(name string, exceptID int64) bool {
	for id, t := range r.store.tariffs {
		if id != exceptID && t.Name == name {
			return true
		}
	}
	return false
}

func (r *MemoryTariffRepository) collect(keep func(*domain.Tariff) bool) []*domain.Tariff {
	out := []*domain.Tariff{}
	for _, id := range sortedKeys(r.store.tariffs) {
		if t := r.store.tariffs[id]; keep(t) {
			c := *t
			out = append(out, &c)
		}
	}
	return out
}

// MemorySessionRepository implements SessionRepository on a MemoryStore
type MemorySessionRepository struct {
	store *MemoryStore
}

// NewMemorySessionRepository creates a new MemorySessionRepository
func NewMemorySessionRepository(store *MemoryStore) *MemorySessionRepository {
	return &MemorySessionRepository{store: store}
}

func (r *MemorySessionRepository) Create(ctx context.Context, s *domain.ParkingSession) error {
	unlock, err := r.store.lock(ctx, "create parking session")
	if err != nil {
		return err
	}
	defer unlock()

	if s.IsOpen() && r.openSession(s.Plate, 0) != nil {
		return domain.ErrSessionAlreadyOpen
	}
	r.store.seq.session++
	s.ID = r.store.seq.session
	r.store.sessions[s.ID] = s.Clone()
	return nil
}

func (r *MemorySessionRepository) GetByID(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	unlock, err := r.store.lock(ctx, "get parking session")
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, ok := r.store.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *MemorySessionRepository) List(ctx context.Context, filter domain.SessionFilter, page domain.Page) ([]*domain.ParkingSession, int64, error) {
	unlock, err := r.store.lock(ctx, "list parking sessions")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := []*domain.ParkingSession{}
	for _, id := range sortedKeys(r.store.sessions) {
		s := r.store.sessions[id]
		if filter.FacilityID > 0 && s.FacilityID != filter.FacilityID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.Plate != "" && s.Plate != filter.Plate {
			continue
		}
		all = append(all, s.Clone())
	}
	start, end := page.Bounds(len(all))
	return all[start:end], int64(len(all)), nil
}

func (r *MemorySessionRepository) Update(ctx context.Context, s *domain.ParkingSession) error {
	unlock, err := r.store.lock(ctx, "update parking session")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.store.sessions[s.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	if s.IsOpen() && r.openSession(s.Plate, s.ID) != nil {
		return domain.ErrSessionAlreadyOpen
	}
	r.store.sessions[s.ID] = s.Clone()
	return nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id int64) error {
	unlock, err := r.store.lock(ctx, "delete parking session")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.store.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.store.sessions, id)
	return nil
}

func (r *MemorySessionRepository) FindOpenByPlate(ctx context.Context, plate string) (*domain.ParkingSession, error) {
	unlock, err := r.store.lock(ctx, "find open parking session")
	if err != nil {
		return nil, err
	}
	defer unlock()

	s := r.openSession(plate, 0)
	if s == nil {
		return nil, domain.ErrNoOpenSession
	}
	return s.Clone(), nil
}

func (r *MemorySessionRepository) MarkClosed(ctx context.Context, s *domain.ParkingSession) error {
	unlock, err := r.store.lock(ctx, "close parking session")
	if err != nil {
		return err
	}
	defer unlock()

	current, ok := r.store.sessions[s.ID]
	if !ok || !current.IsOpen() {
		return domain.ErrNoOpenSession
	}
	closed := current.Clone()
	closed.TariffID = s.TariffID
	closed.EndTime = s.EndTime
	closed.Total = s.Total
	closed.Status = domain.SessionStatusClosed
	r.store.sessions[s.ID] = closed.Clone()
	return nil
}

func (r *MemorySessionRepository) FindClosedByFacilityAndDateRange(ctx context.Context, facilityID int64, dateRange domain.DateRange) ([]*domain.ParkingSession, error) {
	unlock, err := r.store.lock(ctx, "report parking sessions")
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := []*domain.ParkingSession{}
	for _, s := range r.store.sessions {
		if s.FacilityID != facilityID || s.Status != domain.SessionStatusClosed || s.EndTime == nil {
			continue
		}
		if s.Total == nil || *s.Total <= 0 || !dateRange.Contains(*s.EndTime) {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndTime.Equal(*out[j].EndTime) {
			return out[i].EndTime.Before(*out[j].EndTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemorySessionRepository) openSession(plate string, exceptID int64) *domain.ParkingSession {
	for id, s := range r.store.sessions {
		if id != exceptID && s.Plate == plate && s.IsOpen() {
			return s
		}
	}
	return nil
}

// MemoryAuditRepository implements AuditRepository on a MemoryStore
type MemoryAuditRepository struct {
	store *MemoryStore
}

// NewMemoryAuditRepository creates a new MemoryAuditRepository
func NewMemoryAuditRepository(store *MemoryStore) *MemoryAuditRepository {
	return &MemoryAuditRepository{store: store}
}

func (r *MemoryAuditRepository) Append(ctx context.Context, rec *domain.AuditRecord) error {
	unlock, err := r.store.lock(ctx, "append audit record")
	if err != nil {
		return err
	}
	defer unlock()

	r.store.seq.audit++
	rec.ID = r.store.seq.audit
	rec.CreatedAt = r.store.now()
	c := *rec
	r.store.audits = append(r.store.audits, &c)
	return nil
}

func (r *MemoryAuditRepository) GetByID(ctx context.Context, id int64) (*domain.AuditRecord, error) {
	unlock, err := r.store.lock(ctx, "get audit record")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, rec := range r.store.audits {
		if rec.ID == id {
			c := *rec
			return &c, nil
		}
	}
	return nil, domain.ErrAuditRecordNotFound
}

func (r *MemoryAuditRepository) Query(ctx context.Context, filter domain.AuditFilter, page domain.Page) ([]*domain.AuditRecord, int64, error) {
	unlock, err := r.store.lock(ctx, "query audit records")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	return r.page(filter.Matches, page)
}

func (r *MemoryAuditRepository) QueryByDateRange(ctx context.Context, dateRange domain.DateRange, page domain.Page) ([]*domain.AuditRecord, int64, error) {
	unlock, err := r.store.lock(ctx, "query audit records")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	return r.page(func(rec *domain.AuditRecord) bool { return dateRange.Contains(rec.CreatedAt) }, page)
}

func (r *MemoryAuditRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*domain.AuditRecord, error) {
	unlock, err := r.store.lock(ctx, "list audit records")
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := []*domain.AuditRecord{}
	for _, rec := range r.store.audits {
		if rec.ID <= afterID {
			continue
		}
		if len(out) == limit {
			break
		}
		c := *rec
		out = append(out, &c)
	}
	return out, nil
}

func (r *MemoryAuditRepository) page(keep func(*domain.AuditRecord) bool, page domain.Page) ([]*domain.AuditRecord, int64, error) {
	all := []*domain.AuditRecord{}
	for _, rec := range r.store.audits {
		if keep(rec) {
			c := *rec
			all = append(all, &c)
		}
	}
	start, end := page.Bounds(len(all))
	return all[start:end], int64(len(all)), nil
}

// MemoryCursorStore implements CursorStore in process memory
type MemoryCursorStore struct {
	store    *MemoryStore
	position int64
}

// NewMemoryCursorStore creates a cursor starting at zero
func NewMemoryCursorStore(store *MemoryStore) *MemoryCursorStore {
	return &MemoryCursorStore{store: store}
}

func (c *MemoryCursorStore) Load(ctx context.Context) (int64, error) {
	unlock, err := c.store.lock(ctx, "load cursor")
	if err != nil {
		return 0, err
	}
	defer unlock()
	return c.position, nil
}

func (c *MemoryCursorStore) Save(ctx context.Context, position int64) error {
	unlock, err := c.store.lock(ctx, "save cursor")
	if err != nil {
		return err
	}
	defer unlock()
	c.position = position
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var (
	_ FacilityRepository = (*MemoryFacilityRepository)(nil)
	_ TariffRepository   = (*MemoryTariffRepository)(nil)
	_ SessionRepository  = (*MemorySessionRepository)(nil)
	_ AuditRepository    = (*MemoryAuditRepository)(nil)
	_ CursorStore        = (*MemoryCursorStore)(nil)
)
