package outbox

import (
	"context"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Publisher relays pending rows to the broker. Delivery is at least once:
// a crash between publish and mark sends the row again on the next pass.
type Publisher struct {
	store       Store
	producer    broker.Producer
	logger      *zap.Logger
	tracer      trace.Tracer
	batchSize   int
	interval    time.Duration
	maxAttempts int
	retention   time.Duration
	lastPurge   time.Time
	now         func() time.Time
}

// purgeEvery bounds how often an idle publisher archives published rows.
const purgeEvery = 10 * time.Minute

type Option func(*Publisher)

func WithBatchSize(n int) Option {
	return func(p *Publisher) { p.batchSize = n }
}

func WithInterval(d time.Duration) Option {
	return func(p *Publisher) { p.interval = d }
}

// WithMaxAttempts moves a row to failed after n delivery errors. 0 retries forever.
func WithMaxAttempts(n int) Option {
	return func(p *Publisher) { p.maxAttempts = n }
}

// WithRetention deletes published rows older than d when the store is a Purger.
func WithRetention(d time.Duration) Option {
	return func(p *Publisher) { p.retention = d }
}

func NewPublisher(store Store, producer broker.Producer, l *zap.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		store:     store,
		producer:  producer,
		logger:    l,
		tracer:    otel.Tracer("outbox-publisher"),
		batchSize: 100,
		interval:  time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is canceled. A full batch is followed immediately by the
// next one; otherwise the loop waits for the interval.
func (p *Publisher) Run(ctx context.Context) error {
	logger.Info(ctx, p.logger, "starting outbox publisher",
		zap.Int("batch_size", p.batchSize), zap.Duration("interval", p.interval))

	for {
		n, err := p.PublishPending(ctx)
		if ctx.Err() != nil {
			logger.Info(context.WithoutCancel(ctx), p.logger, "outbox publisher stopping")
			return nil
		}
		if err != nil {
			logger.Error(ctx, p.logger, "outbox pass failed", zap.Error(err))
		}
		if err == nil && n == p.batchSize {
			continue
		}
		p.purge(ctx)
		if !broker.Sleep(ctx, p.interval) {
			logger.Info(context.WithoutCancel(ctx), p.logger, "outbox publisher stopping")
			return nil
		}
	}
}

// purge archives published rows once per purgeEvery. Failures are logged and
// retried on the next idle pass.
func (p *Publisher) purge(ctx context.Context) {
	purger, ok := p.store.(Purger)
	if !ok || p.retention <= 0 {
		return
	}
	now := p.now()
	if !p.lastPurge.IsZero() && now.Sub(p.lastPurge) < purgeEvery {
		return
	}
	n, err := purger.PurgePublished(ctx, now.Add(-p.retention))
	if err != nil {
		logger.Warn(ctx, p.logger, "outbox purge failed", zap.Error(err))
		return
	}
	p.lastPurge = now
	if n > 0 {
		logger.Info(ctx, p.logger, "purged published outbox rows", zap.Int64("rows", n), zap.Duration("retention", p.retention))
	}
}

// PublishPending runs one pass and returns how many rows were fetched.
func (p *Publisher) PublishPending(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "Publisher.PublishPending")
	defer span.End()

	rows, err := p.store.FetchPending(ctx, p.batchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch pending")
		return 0, err
	}
	span.SetAttributes(attribute.Int("outbox.batch", len(rows)))

	for _, ev := range rows {
		if ctx.Err() != nil {
			break
		}
		p.publishOne(ctx, ev)
	}
	return len(rows), nil
}

func (p *Publisher) publishOne(ctx context.Context, ev Event) {
	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.EventType),
		zap.String("aggregate_id", ev.AggregateID),
	}

	err := p.producer.Publish(ctx, broker.Message{
		Topic: ev.Topic,
		Key:   ev.AggregateID,
		Value: ev.Payload,
		Headers: map[string]string{
			broker.HeaderEventType:     ev.EventType,
			broker.HeaderEventID:       ev.ID,
			broker.HeaderCorrelationID: ev.CorrelationID,
		},
	})

	// The row outcome is recorded even when shutdown started mid-publish.
	markCtx := context.WithoutCancel(ctx)
	if err != nil {
		metrics.OutboxFailures.WithLabelValues(ev.Topic).Inc()
		logger.Warn(ctx, p.logger, "outbox delivery failed", append(fields, zap.Int("attempt", ev.Attempts+1), zap.Error(err))...)
		if markErr := p.store.MarkAttemptFailed(markCtx, ev.ID, err.Error(), p.maxAttempts); markErr != nil {
			logger.Error(ctx, p.logger, "outbox mark attempt failed", append(fields, zap.Error(markErr))...)
		}
		return
	}

	if markErr := p.store.MarkPublished(markCtx, ev.ID); markErr != nil {
		logger.Error(ctx, p.logger, "outbox mark published failed", append(fields, zap.Error(markErr))...)
		return
	}
	metrics.OutboxPublished.WithLabelValues(ev.Topic).Inc()
	logger.Debug(ctx, p.logger, "outbox event published", fields...)
}
