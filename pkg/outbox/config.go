package outbox

import "time"

type Config struct {
	BatchSize   int           `yaml:"batch_size" env:"OUTBOX_BATCH_SIZE" env-default:"100"`
	Interval    time.Duration `yaml:"interval" env:"OUTBOX_INTERVAL" env-default:"1s"`
	MaxAttempts int           `yaml:"max_attempts" env:"OUTBOX_MAX_ATTEMPTS" env-default:"0"`
	// Retention deletes published rows older than this. Zero keeps them.
	Retention time.Duration `yaml:"retention" env:"OUTBOX_RETENTION" env-default:"0"`
}

// Options converts the config to publisher options. Zero values keep the defaults.
func (c Config) Options() []Option {
	var opts []Option
	if c.BatchSize > 0 {
		opts = append(opts, WithBatchSize(c.BatchSize))
	}
	if c.Interval > 0 {
		opts = append(opts, WithInterval(c.Interval))
	}
	if c.MaxAttempts > 0 {
		opts = append(opts, WithMaxAttempts(c.MaxAttempts))
	}
	if c.Retention > 0 {
		opts = append(opts, WithRetention(c.Retention))
	}
	return opts
}
