package config

import (
	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/sweeper"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
)

type Config struct {
	GRPCAddr string `yaml:"grpc_addr" env:"GRPC_ADDR" env-default:":50053"`
	// MetricsAddr serves /metrics next to the gRPC listener.
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR" env-default:":9093"`
	// Store is "postgres" or "memory".
	Store string `yaml:"store" env:"STORE" env-default:"postgres"`
	// SeedStock sets on-hand quantities at startup, e.g. "SKU-1:100,SKU-2:5".
	SeedStock map[string]int64 `yaml:"seed_stock" env:"SEED_STOCK"`

	Log     logger.Config        `yaml:"log"`
	DB      postgres.Credentials `yaml:"db"`
	Kafka   broker.KafkaConfig   `yaml:"kafka"`
	Outbox  outbox.Config        `yaml:"outbox"`
	Sweeper sweeper.Config       `yaml:"sweeper"`
}
