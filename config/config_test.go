package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"canteen-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "JWT_EXPIRES_IN", "KAFKA_BROKERS", "CANCEL_RESTOCK", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 168*time.Hour, cfg.JWTExpiresIn)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.CancelRestock)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CANCEL_RESTOCK", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("JWT_EXPIRES_IN", "2d")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.CancelRestock)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 48*time.Hour, cfg.JWTExpiresIn)
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", time.Hour},
		{"90m", 90 * time.Minute},
		{"7d", 7 * 24 * time.Hour},
		{"xd", time.Hour},
		{"-5m", time.Hour},
		{"soon", time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.raw)
			assert.Equal(t, tt.want, getDuration("TEST_DURATION", time.Hour))
		})
	}
}

func TestOpenDB_RejectsUnknownDriver(t *testing.T) {
	_, err := OpenDB(Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestSeed_IsRepeatable(t *testing.T) {
	db, err := OpenDB(Config{DBDriver: "sqlite", DBDSN: "file:seedtest?mode=memory&cache=shared"})
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Seed(db, log))
	require.NoError(t, Seed(db, log))

	var users, items, stock int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.MenuItem{}).Count(&items).Error)
	require.NoError(t, db.Model(&models.Inventory{}).Count(&stock).Error)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(4), items)
	assert.Equal(t, int64(4), stock)

	var chai models.MenuItem
	require.NoError(t, db.Preload("Category").Where("name = ?", "Masala Chai").First(&chai).Error)
	assert.Equal(t, "beverages", chai.Category.Slug)
	assert.True(t, chai.IsAvailable)
}
