package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, "halfandhalf", cfg.MongoDB)
		assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
		assert.Equal(t, time.Minute, cfg.SweepInterval)
		assert.Equal(t, 500, cfg.DeleteBatchSize)
		assert.Equal(t, 30.0, cfg.NearbyRadiusKm)
		assert.True(t, cfg.ChatTrimSpace)
		assert.Empty(t, cfg.KafkaBrokers)
	})

	t.Run("requires mongo uri", func(t *testing.T) {
		t.Setenv("MONGO_URI", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")
		t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
		t.Setenv("DELETE_BATCH_SIZE", "100")
		t.Setenv("NEARBY_RADIUS_KM", "5.5")
		t.Setenv("CHAT_TRIM_WHITESPACE", "false")
		t.Setenv("SWEEP_INTERVAL", "30s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, 100, cfg.DeleteBatchSize)
		assert.Equal(t, 5.5, cfg.NearbyRadiusKm)
		assert.False(t, cfg.ChatTrimSpace)
		assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	})

	t.Run("rejects bad values", func(t *testing.T) {
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")

		t.Setenv("DELETE_BATCH_SIZE", "0")
		_, err := Load()
		assert.Error(t, err)
		t.Setenv("DELETE_BATCH_SIZE", "")

		t.Setenv("NEARBY_RADIUS_KM", "-1")
		_, err = Load()
		assert.Error(t, err)
		t.Setenv("NEARBY_RADIUS_KM", "")

		t.Setenv("CHAT_TRIM_WHITESPACE", "maybe")
		_, err = Load()
		assert.Error(t, err)
	})
}
