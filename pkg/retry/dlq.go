package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DLQMessage wraps an undeliverable payload together with the reason it failed
type DLQMessage struct {
	ID             string            `json:"id"`
	OriginalTopic  string            `json:"original_topic"`
	OriginalKey    string            `json:"original_key"`
	Payload        json.RawMessage   `json:"payload"`
	Headers        map[string]string `json:"headers,omitempty"`
	Error          string            `json:"error"`
	Attempts       int               `json:"attempts"`
	FirstAttemptAt time.Time         `json:"first_attempt_at"`
	LastAttemptAt  time.Time         `json:"last_attempt_at"`
	MovedToDLQAt   time.Time         `json:"moved_to_dlq_at"`
	Source         string            `json:"source"`
}

// DLQPublisher parks failed messages on a dead letter topic
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg *DLQMessage) error
	DLQTopic(originalTopic string) string
}

// JSONProducer is the slice of the Kafka producer the DLQ needs
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error
}

// DLQConfig names the dead letter topics
type DLQConfig struct {
	// TopicSuffix is appended to the original topic (default ".dlq")
	TopicSuffix string
	Source      string
}

// DefaultDLQConfig returns the default DLQ configuration
func DefaultDLQConfig() *DLQConfig {
	return &DLQConfig{
		TopicSuffix: ".dlq",
		Source:      "unknown",
	}
}

// KafkaDLQPublisher writes DLQ messages through a Kafka producer
type KafkaDLQPublisher struct {
	producer JSONProducer
	config   *DLQConfig
}

// NewKafkaDLQPublisher creates a Kafka-backed DLQ publisher
func NewKafkaDLQPublisher(producer JSONProducer, config *DLQConfig) *KafkaDLQPublisher {
	if config == nil {
		config = DefaultDLQConfig()
	}
	return &KafkaDLQPublisher{producer: producer, config: config}
}

// PublishToDLQ publishes msg to the dead letter topic of its original topic
func (p *KafkaDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	if msg == nil {
		return errors.New("DLQ message cannot be nil")
	}
	msg.MovedToDLQAt = time.Now()
	msg.Source = p.config.Source

	headers := map[string]string{
		"content_type":   "application/json",
		"original_topic": msg.OriginalTopic,
		"error":          msg.Error,
		"attempts":       strconv.Itoa(msg.Attempts),
		"source":         msg.Source,
	}
	for k, v := range msg.Headers {
		if _, exists := headers[k]; !exists {
			headers["original_"+k] = v
		}
	}

	return p.producer.ProduceJSON(ctx, p.DLQTopic(msg.OriginalTopic), msg.OriginalKey, msg, headers)
}

// DLQTopic returns the dead letter topic for originalTopic
func (p *KafkaDLQPublisher) DLQTopic(originalTopic string) string {
	return originalTopic + p.config.TopicSuffix
}

// NoOpDLQPublisher drops everything; used when Kafka is disabled
type NoOpDLQPublisher struct{}

func (NoOpDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error { return nil }
func (NoOpDLQPublisher) DLQTopic(originalTopic string) string             { return originalTopic + ".dlq" }

// Message is one unit handed to DLQHandler.Process
type Message struct {
	ID      string
	Topic   string
	Key     string
	Payload json.RawMessage
	Headers map[string]string
}

// DLQHandler retries an operation and parks the message when retries run out
type DLQHandler struct {
	retrier   *Retrier
	publisher DLQPublisher
	source    string
	onDLQ     func(msg *DLQMessage)
}

// NewDLQHandler creates a DLQHandler. onDLQ may be nil.
func NewDLQHandler(publisher DLQPublisher, config *Config, source string, onDLQ func(msg *DLQMessage)) *DLQHandler {
	return &DLQHandler{
		retrier:   New(config),
		publisher: publisher,
		source:    source,
		onDLQ:     onDLQ,
	}
}

// Process runs op with retries. When op keeps failing the message is published
// to the DLQ and the retry error is returned. A message that made it to the DLQ
// is considered handled by callers that only need at-least-once parking.
func (h *DLQHandler) Process(ctx context.Context, msg *Message, op Operation) error {
	first := time.Now()
	result := h.retrier.Do(ctx, op)
	if result.Err == nil {
		return nil
	}
	if errors.Is(result.Err, ErrContextCanceled) {
		return result.Err
	}

	reason := result.Err.Error()
	if result.LastError != nil {
		reason = result.LastError.Error()
	}
	dlqMsg := &DLQMessage{
		ID:             msg.ID,
		OriginalTopic:  msg.Topic,
		OriginalKey:    msg.Key,
		Payload:        msg.Payload,
		Headers:        msg.Headers,
		Error:          reason,
		Attempts:       result.Attempts,
		FirstAttemptAt: first,
		LastAttemptAt:  time.Now(),
		Source:         h.source,
	}
	if h.onDLQ != nil {
		h.onDLQ(dlqMsg)
	}

	if err := h.publisher.PublishToDLQ(ctx, dlqMsg); err != nil {
		return fmt.Errorf("%w: %w (original error: %v)", ErrDLQPublishFailed, err, result.LastError)
	}
	return result.Err
}
