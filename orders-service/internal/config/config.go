package config

import (
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
)

type Config struct {
	GRPCAddr string `yaml:"grpc_addr" env:"GRPC_ADDR" env-default:":50055"`
	// MetricsAddr serves /metrics next to the gRPC listener.
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:":9095"`
	// Store is "postgres" or "memory".
	Store string `yaml:"store" env:"STORE" env-default:"postgres"`
	// SnapshotSecret verifies cart snapshot signatures. cart-service must use the same value.
	SnapshotSecret string `yaml:"snapshot_secret" env:"SNAPSHOT_SECRET" env-required:"true"`
	// ReservationTTL is sent with OrderPlaced. Zero means holds never expire.
	ReservationTTL time.Duration `yaml:"reservation_ttl" env:"RESERVATION_TTL" env-default:"15m"`

	Log    logger.Config        `yaml:"log"`
	DB     postgres.Credentials `yaml:"db"`
	Kafka  broker.KafkaConfig   `yaml:"kafka"`
	Outbox outbox.Config        `yaml:"outbox"`
}
