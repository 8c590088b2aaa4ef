package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer hashes on the message key so every event of one order lands
// on the same partition.
func NewKafkaProducer(brokers ...string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaProducer{writer: w}
}

func (p *KafkaProducer) Publish(ctx context.Context, msg Message) error {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// Workers is the number of messages handled concurrently.
	Workers int
	// Prefetch is how many fetched messages may wait per worker.
	Prefetch   int
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// HandlerTimeout bounds one handler call.
	HandlerTimeout time.Duration
}

func (c *ConsumerConfig) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 16
	}
	if c.MinBackoff <= 0 {
		c.MinBackoff = 200 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
}

// reader is the part of kafka.Reader the consumer drives.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer commits a message only after its handler succeeded. Each topic
// has its own group reader and worker lanes, and messages from one partition
// always go to the same lane, so commits stay in offset order. A handler may
// keep failing until an event from another topic arrives; that event is
// fetched and handled independently.
type KafkaConsumer struct {
	readers []reader
	cfg     ConsumerConfig
	logger  *zap.Logger
}

func NewKafkaConsumer(cfg ConsumerConfig, l *zap.Logger) *KafkaConsumer {
	readers := make([]reader, 0, len(cfg.Topics))
	for _, topic := range cfg.Topics {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			GroupTopics: []string{topic},
			MaxBytes:    10e6, // 10MB
			StartOffset: kafka.FirstOffset,
		}))
	}
	return newKafkaConsumer(cfg, l, readers)
}

func newKafkaConsumer(cfg ConsumerConfig, l *zap.Logger, readers []reader) *KafkaConsumer {
	cfg.setDefaults()
	return &KafkaConsumer{readers: readers, cfg: cfg, logger: l.With(zap.String("group", cfg.GroupID))}
}

func (c *KafkaConsumer) Run(ctx context.Context, h Handler) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range c.readers {
		lanes := make([]chan kafka.Message, c.cfg.Workers)
		for i := range lanes {
			lanes[i] = make(chan kafka.Message, c.cfg.Prefetch)
		}
		for _, lane := range lanes {
			g.Go(func() error { return c.work(gctx, r, lane, h) })
		}
		g.Go(func() error { return c.fetch(gctx, r, lanes) })
	}
	return g.Wait()
}

func (c *KafkaConsumer) fetch(ctx context.Context, r reader, lanes []chan kafka.Message) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}
		select {
		case lanes[laneFor(m, len(lanes))] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *KafkaConsumer) work(ctx context.Context, r reader, lane <-chan kafka.Message, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-lane:
			if !c.handle(ctx, m, h) {
				return nil
			}
			commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			err := r.CommitMessages(commitCtx, m)
			cancel()
			if err != nil {
				// Uncommitted offsets are redelivered after a rebalance; handlers are idempotent.
				logger.Error(ctx, c.logger, "commit failed",
					zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
			}
		}
	}
}

// handle retries h until it succeeds. It reports false if ctx ended first.
func (c *KafkaConsumer) handle(ctx context.Context, m kafka.Message, h Handler) bool {
	msg := fromKafka(m)
	for attempt := 0; ; attempt++ {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.HandlerTimeout)
		err := h(hctx, msg)
		cancel()
		if err == nil {
			return true
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return false
		}

		delay := Backoff(attempt, c.cfg.MinBackoff, c.cfg.MaxBackoff)
		logger.Warn(ctx, c.logger, "handler failed, retrying",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if !Sleep(ctx, delay) {
			return false
		}
	}
}

func (c *KafkaConsumer) Close() error {
	var errs []error
	for _, r := range c.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// laneFor picks the lane within one topic's lanes.
func laneFor(m kafka.Message, n int) int {
	return m.Partition % n
}

func fromKafka(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, hd := range m.Headers {
		headers[hd.Key] = string(hd.Value)
	}
	return Message{Topic: m.Topic, Key: string(m.Key), Value: m.Value, Headers: headers}
}

// KafkaConfig is the env-driven part of the Kafka setup shared by every service.
type KafkaConfig struct {
	Brokers        []string      `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
	Workers        int           `yaml:"workers" env:"KAFKA_WORKERS" env-default:"4"`
	Prefetch       int           `yaml:"prefetch" env:"KAFKA_PREFETCH" env-default:"16"`
	HandlerTimeout time.Duration `yaml:"handler_timeout" env:"KAFKA_HANDLER_TIMEOUT" env-default:"30s"`
}

// Consumer returns the consumer settings for one group.
func (c KafkaConfig) Consumer(group string, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:        c.Brokers,
		GroupID:        group,
		Topics:         topics,
		Workers:        c.Workers,
		Prefetch:       c.Prefetch,
		HandlerTimeout: c.HandlerTimeout,
	}
}
