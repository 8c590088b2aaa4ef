package config

import (
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8082"`
	// Store is "postgres" or "memory".
	Store string `yaml:"store" env:"STORE" env-default:"postgres"`
	// Authorizer is "random" or "approve".
	Authorizer      string `yaml:"authorizer" env:"AUTHORIZER" env-default:"random"`
	ApprovalPercent int    `yaml:"approval_percent" env:"APPROVAL_PERCENT" env-default:"95"`

	Log    logger.Config        `yaml:"log"`
	DB     postgres.Credentials `yaml:"db"`
	Kafka  broker.KafkaConfig   `yaml:"kafka"`
	Outbox outbox.Config        `yaml:"outbox"`
}
