package service

import (
	"context"
	"testing"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTariffSelector_SelectTariff(t *testing.T) {
	env := newTestEnv(t)
	fallback := env.seedTariff(t, "Default", "00:00", "00:00", 5.00)
	morning := env.seedTariff(t, "Morning", "06:00", "12:00", 8.00)
	day := env.seedTariff(t, "Day", "08:00", "20:00", 10.00)
	retired := env.seedTariff(t, "Retired", "13:00", "14:00", 1.00)
	retired.Active = false
	require.NoError(t, env.tariffs.Update(context.Background(), retired))

	selector := NewTariffSelector(env.tariffs, fallback.ID, env.log)

	tests := []struct {
		name     string
		tod      string
		expected int64
	}{
		{name: "only morning covers", tod: "07:00", expected: morning.ID},
		{name: "overlap picks lowest id", tod: "10:00", expected: morning.ID},
		{name: "start bound is inclusive", tod: "08:00", expected: morning.ID},
		{name: "end bound is inclusive", tod: "20:00", expected: day.ID},
		{name: "inactive tariff is skipped", tod: "13:30", expected: day.ID},
		{name: "gap falls back to default", tod: "23:00", expected: fallback.ID},
		{name: "midnight matches the default window", tod: "00:00", expected: fallback.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selector.SelectTariff(context.Background(), domain.MustParseTimeOfDay(tt.tod))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.ID)
		})
	}
}

func TestTariffSelector_MissingDefault(t *testing.T) {
	env := newTestEnv(t)
	env.seedTariff(t, "Day", "08:00", "20:00", 10.00)

	_, err := NewTariffSelector(env.tariffs, 99, env.log).SelectTariff(context.Background(), domain.MustParseTimeOfDay("22:00"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.False(t, domain.IsNotFoundError(err))
}

func TestEntryTimeOfDay_UsesLocation(t *testing.T) {
	guatemala := time.FixedZone("CST", -6*60*60)
	start := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "14:30:00", entryTimeOfDay(start, time.UTC).String())
	assert.Equal(t, "08:30:00", entryTimeOfDay(start, guatemala).String())
}
