package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/retry"
)

// recordingPublisher collects published records and fails the ids in failIDs
type recordingPublisher struct {
	mu        sync.Mutex
	published []int64
	failIDs   map[int64]bool
}

func (p *recordingPublisher) Publish(ctx context.Context, rec *domain.AuditRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIDs[rec.ID] {
		return errors.New("broker rejected record")
	}
	p.published = append(p.published, rec.ID)
	return nil
}

func (p *recordingPublisher) Topic() string { return "parking-audit" }
func (p *recordingPublisher) Close() error  { return nil }

func (p *recordingPublisher) ids() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.published...)
}

type recordingDLQ struct {
	parked []*retry.DLQMessage
	err    error
}

func (d *recordingDLQ) PublishToDLQ(ctx context.Context, msg *retry.DLQMessage) error {
	if d.err != nil {
		return d.err
	}
	d.parked = append(d.parked, msg)
	return nil
}

func (d *recordingDLQ) DLQTopic(originalTopic string) string { return originalTopic + ".dlq" }

func fastRelayConfig() *AuditRelayConfig {
	return &AuditRelayConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    2,
		Retry:        &retry.Config{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1},
	}
}

func seedAudits(t *testing.T, repo repository.AuditRepository, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := &domain.AuditRecord{
			Entity:    domain.EntityParkingSession,
			Operation: domain.AuditOperationCreate,
			Result:    domain.AuditResultSuccess,
		}
		if err := repo.Append(context.Background(), rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
}

func TestAuditRelay_RelayOnce_AdvancesCursorByBatch(t *testing.T) {
	store := repository.NewMemoryStore()
	audits := repository.NewMemoryAuditRepository(store)
	cursor := repository.NewMemoryCursorStore(store)
	pub := &recordingPublisher{}
	seedAudits(t, audits, 3)

	relay := NewAuditRelay(audits, cursor, pub, &recordingDLQ{}, fastRelayConfig(), logger.NewNop())
	ctx := context.Background()

	n, err := relay.RelayOnce(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first batch = %d, %v; want 2, nil", n, err)
	}
	n, err = relay.RelayOnce(ctx)
	if err != nil || n != 1 {
		t.Fatalf("second batch = %d, %v; want 1, nil", n, err)
	}
	n, err = relay.RelayOnce(ctx)
	if err != nil || n != 0 {
		t.Fatalf("empty batch = %d, %v; want 0, nil", n, err)
	}

	if got := pub.ids(); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("published %v, want [1 2 3]", got)
	}
	if pos, _ := cursor.Load(ctx); pos != 3 {
		t.Errorf("cursor = %d, want 3", pos)
	}
}

func TestAuditRelay_RelayOnce_ParksPoisonRecord(t *testing.T) {
	store := repository.NewMemoryStore()
	audits := repository.NewMemoryAuditRepository(store)
	cursor := repository.NewMemoryCursorStore(store)
	pub := &recordingPublisher{failIDs: map[int64]bool{1: true}}
	dlq := &recordingDLQ{}
	seedAudits(t, audits, 2)

	relay := NewAuditRelay(audits, cursor, pub, dlq, fastRelayConfig(), logger.NewNop())

	n, err := relay.RelayOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("RelayOnce() = %d, %v; want 2, nil", n, err)
	}
	if len(dlq.parked) != 1 || dlq.parked[0].ID != "1" || dlq.parked[0].Attempts != 2 {
		t.Errorf("unexpected DLQ contents: %+v", dlq.parked)
	}
	if got := pub.ids(); len(got) != 1 || got[0] != 2 {
		t.Errorf("published %v, want [2]", got)
	}
}

func TestAuditRelay_RelayOnce_StopsWhenDLQFails(t *testing.T) {
	store := repository.NewMemoryStore()
	audits := repository.NewMemoryAuditRepository(store)
	cursor := repository.NewMemoryCursorStore(store)
	pub := &recordingPublisher{failIDs: map[int64]bool{2: true}}
	seedAudits(t, audits, 3)

	relay := NewAuditRelay(audits, cursor, pub, &recordingDLQ{err: errors.New("dlq down")}, fastRelayConfig(), logger.NewNop())

	n, err := relay.RelayOnce(context.Background())
	if !errors.Is(err, retry.ErrDLQPublishFailed) {
		t.Fatalf("expected DLQ failure, got %v", err)
	}
	if n != 1 {
		t.Errorf("relayed %d, want 1", n)
	}
	if pos, _ := cursor.Load(context.Background()); pos != 1 {
		t.Errorf("cursor = %d, want 1 so record 2 is retried", pos)
	}
}

func TestAuditRelay_StartStop(t *testing.T) {
	store := repository.NewMemoryStore()
	audits := repository.NewMemoryAuditRepository(store)
	cursor := repository.NewMemoryCursorStore(store)
	pub := &recordingPublisher{}
	seedAudits(t, audits, 5)

	relay := NewAuditRelay(audits, cursor, pub, nil, fastRelayConfig(), logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := relay.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := relay.Start(ctx); err == nil {
		t.Error("expected second Start to fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.ids()) < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	relay.Stop()
	relay.Stop()

	if got := len(pub.ids()); got != 5 {
		t.Errorf("published %d records, want 5", got)
	}
}
