package config

import (
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
)

type Config struct {
	HTTPAddr       string        `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8080"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"10s"`

	CartURL      string `yaml:"cart_url" env:"CART_URL" env-default:"http://localhost:8081"`
	PaymentsURL  string `yaml:"payments_url" env:"PAYMENTS_URL" env-default:"http://localhost:8082"`
	ShipmentsURL string `yaml:"shipments_url" env:"SHIPMENTS_URL" env-default:"http://localhost:8083"`

	OrdersAddr    string `yaml:"orders_addr" env:"ORDERS_ADDR" env-default:"localhost:50055"`
	InventoryAddr string `yaml:"inventory_addr" env:"INVENTORY_ADDR" env-default:"localhost:50053"`

	Log logger.Config `yaml:"log"`
}
