package kafka

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), &ProducerConfig{})
	assert.Error(t, err)

	_, err = NewProducer(context.Background(), nil)
	assert.Error(t, err)
}

func TestProducer_ProduceJSON_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	brokers := os.Getenv("TEST_KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := NewProducer(ctx, &ProducerConfig{
		Brokers:       strings.Split(brokers, ","),
		ClientID:      "parking-test",
		RetryInterval: time.Second,
	})
	require.NoError(t, err)
	defer p.Close()

	err = p.ProduceJSON(ctx, "parking-audit-test", "ParkingSession", map[string]string{"op": "CREATE"}, map[string]string{"source": "test"})
	assert.NoError(t, err)
}
