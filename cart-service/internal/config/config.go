package config

import (
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8081"`
	// Store is "mongo" or "memory".
	Store string `yaml:"store" env:"STORE" env-default:"mongo"`
	// SnapshotSecret signs checkout snapshots. orders-service must use the same value.
	SnapshotSecret  string        `yaml:"snapshot_secret" env:"SNAPSHOT_SECRET" env-required:"true"`
	MaxItemQuantity int64         `yaml:"max_item_quantity" env:"MAX_ITEM_QUANTITY" env-default:"99"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"30s"`

	Mongo   repository.MongoConfig `yaml:"mongo"`
	Redis   RedisConfig            `yaml:"redis"`
	Pricing PricingConfig          `yaml:"pricing"`
	Orders  OrdersConfig           `yaml:"orders"`
	Log     logger.Config          `yaml:"log"`
	Kafka   broker.KafkaConfig     `yaml:"kafka"`
}

// RedisConfig enables the cart cache and HTTP idempotency when Addr is set.
type RedisConfig struct {
	Addr           string        `yaml:"addr" env:"REDIS_ADDR"`
	Password       string        `yaml:"password" env:"REDIS_PASSWORD"`
	CacheTTL       time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"15m"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"IDEMPOTENCY_TTL" env-default:"24h"`
}

// PricingConfig selects the quote provider: URL when set, otherwise the
// static Prices table (sku:price pairs).
type PricingConfig struct {
	URL     string            `yaml:"url" env:"PRICING_URL"`
	Timeout time.Duration     `yaml:"timeout" env:"PRICING_TIMEOUT" env-default:"2s"`
	Prices  map[string]string `yaml:"prices" env:"PRICES" env-separator:","`
}

type OrdersConfig struct {
	Addr    string        `yaml:"addr" env:"ORDERS_ADDR" env-default:"localhost:50055"`
	Timeout time.Duration `yaml:"timeout" env:"ORDERS_TIMEOUT" env-default:"5s"`
}
