package config

import (
	"testing"
	"time"

	pkgconfig "github.com/acharyaPawan/ecommerce-platform-sub001/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	var cfg Config
	require.NoError(t, pkgconfig.Load(&cfg))

	assert.Equal(t, ":8083", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, time.Second, cfg.Outbox.Interval)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9093")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")

	var cfg Config
	require.NoError(t, pkgconfig.Load(&cfg))

	assert.Equal(t, ":9093", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.Outbox.BatchSize)
}
