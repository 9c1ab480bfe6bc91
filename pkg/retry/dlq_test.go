package retry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type capturedMessage struct {
	topic   string
	key     string
	data    interface{}
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []capturedMessage
	err  error
}

func (p *fakeProducer) ProduceJSON(ctx context.Context, topic, key string, data interface{}, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, capturedMessage{topic: topic, key: key, data: data, headers: headers})
	return nil
}

func TestKafkaDLQPublisher_PublishToDLQ(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewKafkaDLQPublisher(producer, &DLQConfig{TopicSuffix: ".dlq", Source: "parking-service"})

	err := pub.PublishToDLQ(context.Background(), &DLQMessage{
		ID:            "42",
		OriginalTopic: "parking-audit",
		OriginalKey:   "ParkingSession",
		Payload:       json.RawMessage(`{"id":42}`),
		Headers:       map[string]string{"operation": "CREATE"},
		Error:         "broker unavailable",
		Attempts:      4,
	})
	if err != nil {
		t.Fatalf("PublishToDLQ() error = %v", err)
	}

	if len(producer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(producer.sent))
	}
	got := producer.sent[0]
	if got.topic != "parking-audit.dlq" {
		t.Errorf("topic = %s, want parking-audit.dlq", got.topic)
	}
	if got.key != "ParkingSession" {
		t.Errorf("key = %s, want ParkingSession", got.key)
	}
	if got.headers["attempts"] != "4" {
		t.Errorf("attempts header = %s, want 4", got.headers["attempts"])
	}
	if got.headers["original_operation"] != "CREATE" {
		t.Errorf("original_operation header = %s, want CREATE", got.headers["original_operation"])
	}
	if msg := got.data.(*DLQMessage); msg.Source != "parking-service" || msg.MovedToDLQAt.IsZero() {
		t.Errorf("message not stamped: source=%s moved=%v", msg.Source, msg.MovedToDLQAt)
	}
}

func TestKafkaDLQPublisher_NilMessage(t *testing.T) {
	pub := NewKafkaDLQPublisher(&fakeProducer{}, nil)
	if err := pub.PublishToDLQ(context.Background(), nil); err == nil {
		t.Error("expected error for nil message")
	}
}

func TestDLQHandler_Process_Success(t *testing.T) {
	producer := &fakeProducer{}
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, nil), fastConfig(2), "test", nil)

	err := h.Process(context.Background(), &Message{ID: "1", Topic: "parking-audit"}, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("Process() error = %v", err)
	}
	if len(producer.sent) != 0 {
		t.Errorf("sent %d DLQ messages, want 0", len(producer.sent))
	}
}

func TestDLQHandler_Process_MovesToDLQ(t *testing.T) {
	producer := &fakeProducer{}
	var parked *DLQMessage
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, nil), fastConfig(1), "test", func(msg *DLQMessage) {
		parked = msg
	})

	err := h.Process(context.Background(), &Message{ID: "7", Topic: "parking-audit", Key: "Tariff"}, func(ctx context.Context) error {
		return errors.New("broker unavailable")
	})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("Process() error = %v, want ErrMaxRetriesExceeded", err)
	}
	if parked == nil || parked.Attempts != 2 || parked.Error != "broker unavailable" {
		t.Fatalf("unexpected DLQ message: %+v", parked)
	}
	if len(producer.sent) != 1 || producer.sent[0].topic != "parking-audit.dlq" {
		t.Errorf("expected one message on parking-audit.dlq, got %+v", producer.sent)
	}
}

func TestDLQHandler_Process_DLQFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New("dlq down")}
	h := NewDLQHandler(NewKafkaDLQPublisher(producer, nil), fastConfig(0), "test", nil)

	err := h.Process(context.Background(), &Message{ID: "1", Topic: "t"}, func(ctx context.Context) error {
		return errors.New("fail")
	})
	if !errors.Is(err, ErrDLQPublishFailed) {
		t.Errorf("expected wrapped DLQ failure, got %v", err)
	}
}

func TestNoOpDLQPublisher(t *testing.T) {
	var pub DLQPublisher = NoOpDLQPublisher{}
	if err := pub.PublishToDLQ(context.Background(), &DLQMessage{}); err != nil {
		t.Errorf("PublishToDLQ() error = %v", err)
	}
	if got := pub.DLQTopic("parking-audit"); got != "parking-audit.dlq" {
		t.Errorf("DLQTopic = %s", got)
	}
}
