package config

import (
	"testing"
	"time"

	pkgconfig "github.com/acharyaPawan/ecommerce-platform-sub001/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SNAPSHOT_SECRET", "s3cret")

	var cfg Config
	require.NoError(t, pkgconfig.Load(&cfg))

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "mongo", cfg.Store)
	assert.Equal(t, int64(99), cfg.MaxItemQuantity)
	assert.Equal(t, "carts", cfg.Mongo.Database)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Equal(t, "localhost:50055", cfg.Orders.Addr)
}

func TestLoad_RequiresSecret(t *testing.T) {
	var cfg Config
	assert.Error(t, pkgconfig.Load(&cfg))
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SNAPSHOT_SECRET", "s3cret")
	t.Setenv("STORE", "memory")
	t.Setenv("PRICES", "A:10.00,B:2.50")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	var cfg Config
	require.NoError(t, pkgconfig.Load(&cfg))

	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, map[string]string{"A": "10.00", "B": "2.50"}, cfg.Pricing.Prices)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}
