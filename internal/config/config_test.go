package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "commerce.orders", cfg.Kafka.OrdersTopic)
	assert.Equal(t, 7, cfg.Auth.RefreshTokenTTLDays)
	assert.Equal(t, time.Hour, cfg.Auth.SweepInterval)
	assert.Equal(t, 3, cfg.Settlement.MaxRetries)
	assert.True(t, cfg.Features.EnableOrderCaching)
	assert.True(t, cfg.Features.EnableOrderEvents)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL_DAYS", "30")
	t.Setenv("SETTLEMENT_MAX_RETRIES", "5")
	t.Setenv("FEATURE_ORDER_EVENTS", "false")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30, cfg.Auth.RefreshTokenTTLDays)
	assert.Equal(t, 5, cfg.Settlement.MaxRetries)
	assert.False(t, cfg.Features.EnableOrderEvents)
}

func TestConnectionString(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "svc",
		Password: "secret",
		Name:     "commerce",
		SSLMode:  "require",
	}
	assert.Equal(t, "host=db port=5432 user=svc password=secret dbname=commerce sslmode=require", d.ConnectionString())
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("SETTLEMENT_MAX_RETRIES", "not-a-number")
	cfg := Load()
	assert.Equal(t, 3, cfg.Settlement.MaxRetries)
}
