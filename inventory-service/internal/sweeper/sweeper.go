package sweeper

import (
	"context"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"go.uber.org/zap"
)

// Expirer expires overdue reservations in batches.
type Expirer interface {
	ExpireDue(ctx context.Context, limit int) (candidates, failed int, err error)
}

type Config struct {
	BatchSize           int           `yaml:"batch_size" env:"SWEEPER_BATCH_SIZE" env-default:"100"`
	Interval            time.Duration `yaml:"interval" env:"SWEEPER_INTERVAL" env-default:"5s"`
	MaxImmediateRetries int           `yaml:"max_immediate_retries" env:"SWEEPER_MAX_IMMEDIATE_RETRIES" env-default:"3"`
}

// Sweeper expires overdue holds. It sleeps only when a pass found nothing to do
// or kept failing.
type Sweeper struct {
	expirer Expirer
	cfg     Config
	logger  *zap.Logger
}

func New(e Expirer, cfg Config, l *zap.Logger) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxImmediateRetries < 0 {
		cfg.MaxImmediateRetries = 0
	}
	return &Sweeper{expirer: e, cfg: cfg, logger: l}
}

// Run loops until ctx is canceled; the wait between passes is interrupted at once.
func (s *Sweeper) Run(ctx context.Context) error {
	logger.Info(ctx, s.logger, "starting reservation sweeper",
		zap.Int("batch_size", s.cfg.BatchSize), zap.Duration("interval", s.cfg.Interval))

	retries := 0
	for {
		candidates, failed, err := s.expirer.ExpireDue(ctx, s.cfg.BatchSize)
		if ctx.Err() != nil {
			return nil
		}

		if s.immediate(candidates, failed, err, &retries) {
			continue
		}
		if !broker.Sleep(ctx, s.cfg.Interval) {
			return nil
		}
	}
}

// immediate decides whether the next pass starts without waiting.
func (s *Sweeper) immediate(candidates, failed int, err error, retries *int) bool {
	if err != nil || failed > 0 {
		if *retries < s.cfg.MaxImmediateRetries {
			*retries++
			logger.Warn(context.Background(), s.logger, "sweep pass incomplete, retrying",
				zap.Int("candidates", candidates), zap.Int("failed", failed),
				zap.Int("retry", *retries), zap.Error(err))
			return true
		}
		logger.Error(context.Background(), s.logger, "sweep pass still failing, backing off",
			zap.Int("candidates", candidates), zap.Int("failed", failed), zap.Error(err))
		*retries = 0
		return false
	}
	*retries = 0
	return candidates > 0
}
