package platform

import (
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
)

// Config runs every service in one process on in-memory stores.
type Config struct {
	HTTPAddr       string        `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8080"`
	SnapshotSecret string        `yaml:"snapshot_secret" env:"SNAPSHOT_SECRET" env-required:"true"`
	ReservationTTL time.Duration `yaml:"reservation_ttl" env:"RESERVATION_TTL" env-default:"15m"`

	// Stock seeds on-hand quantities, e.g. SEED_STOCK=A:5,B:10.
	Stock  map[string]int64  `yaml:"seed_stock" env:"SEED_STOCK" env-separator:","`
	Prices map[string]string `yaml:"prices" env:"PRICES" env-separator:","`

	// DeclineReason fails every payment with this refusal. Empty approves all.
	DeclineReason string `yaml:"decline_reason" env:"DECLINE_REASON"`
	// RedisAddr enables the cart cache and idempotency keys.
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`

	Log logger.Config `yaml:"log"`
}
