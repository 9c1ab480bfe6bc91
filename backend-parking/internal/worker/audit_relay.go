package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/service"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/retry"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AuditRelayConfig contains configuration for the audit relay
type AuditRelayConfig struct {
	// PollInterval is the interval between reads of the audit trail
	PollInterval time.Duration
	// BatchSize is the number of records relayed per poll
	BatchSize int
	// Retry controls the backoff of each publish
	Retry *retry.Config
}

// DefaultAuditRelayConfig returns default configuration
func DefaultAuditRelayConfig() *AuditRelayConfig {
	return &AuditRelayConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		Retry:        retry.DefaultConfig(),
	}
}

// AuditRelay tails the audit trail by ascending id and publishes every record.
// Records that keep failing are parked on the dead letter topic and skipped.
type AuditRelay struct {
	audits    repository.AuditRepository
	cursor    repository.CursorStore
	publisher service.AuditPublisher
	dlq       *retry.DLQHandler
	config    *AuditRelayConfig
	log       *logger.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// NewAuditRelay creates a new audit relay
func NewAuditRelay(
	audits repository.AuditRepository,
	cursor repository.CursorStore,
	publisher service.AuditPublisher,
	dlqPublisher retry.DLQPublisher,
	config *AuditRelayConfig,
	log *logger.Logger,
) *AuditRelay {
	def := DefaultAuditRelayConfig()
	if config == nil {
		config = def
	}
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.Retry == nil {
		config.Retry = def.Retry
	}
	if dlqPublisher == nil {
		dlqPublisher = retry.NoOpDLQPublisher{}
	}
	if log == nil {
		log = logger.Get()
	}

	w := &AuditRelay{
		audits:    audits,
		cursor:    cursor,
		publisher: publisher,
		config:    config,
		log:       log,
		stopCh:    make(chan struct{}),
	}
	w.dlq = retry.NewDLQHandler(dlqPublisher, config.Retry, "parking-audit-relay", func(msg *retry.DLQMessage) {
		w.log.Warn("Moving audit record to DLQ",
			zap.String("audit_id", msg.ID),
			zap.Int("attempts", msg.Attempts),
			zap.String("error", msg.Error),
		)
	})
	return w
}

// Start starts the relay loop
func (w *AuditRelay) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("audit relay already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting audit relay",
		zap.String("topic", w.publisher.Topic()),
		zap.Duration("poll_interval", w.config.PollInterval),
	)

	w.wg.Add(1)
	go w.poll(ctx)
	return nil
}

// Stop stops the relay and waits for the current batch to finish
func (w *AuditRelay) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping audit relay")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Audit relay stopped")
}

func (w *AuditRelay) poll(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := w.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("Audit relay batch failed", zap.Error(err))
			}
		}
	}
}

// RelayOnce publishes the next batch after the stored cursor and returns how
// many records it moved past. The cursor advances only over records that were
// published or parked on the DLQ.
func (w *AuditRelay) RelayOnce(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "worker.audit_relay.relay_once")
	defer span.End()

	position, err := w.cursor.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load relay cursor: %w", err)
	}

	records, err := w.audits.ListAfter(ctx, position, w.config.BatchSize)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("cursor", position), attribute.Int("batch", len(records)))

	relayed := 0
	for _, rec := range records {
		if err := w.relay(ctx, rec); err != nil {
			return relayed, w.saveCursor(ctx, position, err)
		}
		position = rec.ID
		relayed++
	}
	if relayed == 0 {
		return 0, nil
	}
	return relayed, w.saveCursor(ctx, position, nil)
}

// relay publishes one record. A record parked on the DLQ counts as relayed.
func (w *AuditRelay) relay(ctx context.Context, rec *domain.AuditRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record %d: %w", rec.ID, err)
	}
	msg := &retry.Message{
		ID:      strconv.FormatInt(rec.ID, 10),
		Topic:   w.publisher.Topic(),
		Key:     rec.Entity,
		Payload: payload,
	}

	err = w.dlq.Process(ctx, msg, func(ctx context.Context) error {
		return w.publisher.Publish(ctx, rec)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, retry.ErrContextCanceled), errors.Is(err, retry.ErrDLQPublishFailed):
		return err
	default:
		return nil
	}
}

// saveCursor stores position and joins a failure to cause, if any
func (w *AuditRelay) saveCursor(ctx context.Context, position int64, cause error) error {
	// Persist progress even when ctx is already canceled
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := w.cursor.Save(saveCtx, position); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to save relay cursor: %w", err))
	}
	return cause
}
