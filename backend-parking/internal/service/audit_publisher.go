package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/kafka"
	"github.com/google/uuid"
)

// DefaultAuditTopic receives every relayed audit record
const DefaultAuditTopic = "parking-audit"

// AuditPublisher ships committed audit records to downstream consumers
type AuditPublisher interface {
	// Publish sends one record; the message key is the record's entity
	Publish(ctx context.Context, rec *domain.AuditRecord) error

	// Topic returns the destination topic
	Topic() string

	// Close closes the publisher
	Close() error
}

// MessageProducer is the part of the Kafka producer the publisher needs
type MessageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
}

// KafkaAuditPublisher implements AuditPublisher using Kafka
type KafkaAuditPublisher struct {
	producer    MessageProducer
	closer      func()
	topic       string
	serviceName string
}

// AuditPublisherConfig contains configuration for the audit publisher
type AuditPublisherConfig struct {
	Topic       string
	ServiceName string
}

// NewKafkaAuditPublisher creates a publisher on top of an existing producer
func NewKafkaAuditPublisher(producer *kafka.Producer, cfg *AuditPublisherConfig) *KafkaAuditPublisher {
	p := newKafkaAuditPublisher(producer, cfg)
	p.closer = producer.Close
	return p
}

func newKafkaAuditPublisher(producer MessageProducer, cfg *AuditPublisherConfig) *KafkaAuditPublisher {
	topic := DefaultAuditTopic
	serviceName := "parking-service"
	if cfg != nil {
		if cfg.Topic != "" {
			topic = cfg.Topic
		}
		if cfg.ServiceName != "" {
			serviceName = cfg.ServiceName
		}
	}
	return &KafkaAuditPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}
}

// Publish publishes one audit record as JSON
func (p *KafkaAuditPublisher) Publish(ctx context.Context, rec *domain.AuditRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record %d: %w", rec.ID, err)
	}

	msg := &kafka.Message{
		Topic: p.topic,
		Key:   []byte(rec.Entity),
		Value: value,
		Headers: map[string]string{
			"event_id":     uuid.New().String(),
			"audit_id":     strconv.FormatInt(rec.ID, 10),
			"operation":    string(rec.Operation),
			"result":       string(rec.Result),
			"source":       p.serviceName,
			"content_type": "application/json",
		},
		Timestamp: time.Now(),
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish audit record %d: %w", rec.ID, err)
	}
	return nil
}

// Topic returns the destination topic
func (p *KafkaAuditPublisher) Topic() string {
	return p.topic
}

// Close closes the underlying producer
func (p *KafkaAuditPublisher) Close() error {
	if p.closer != nil {
		p.closer()
	}
	return nil
}

// NoOpAuditPublisher drops every record. It is used when Kafka is disabled.
type NoOpAuditPublisher struct{}

// NewNoOpAuditPublisher creates a new no-op audit publisher
func NewNoOpAuditPublisher() *NoOpAuditPublisher {
	return &NoOpAuditPublisher{}
}

// Publish is a no-op
func (p *NoOpAuditPublisher) Publish(ctx context.Context, rec *domain.AuditRecord) error {
	return nil
}

// Topic returns the default topic
func (p *NoOpAuditPublisher) Topic() string {
	return DefaultAuditTopic
}

// Close is a no-op
func (p *NoOpAuditPublisher) Close() error {
	return nil
}
