package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/mq"
)

// OutboxStore relay 读写 outbox 表的操作，*OutboxEventPublisher 实现该接口
type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, ids []string, reason string) error
}

// Producer 消息投递，*mq.KafkaProducer 实现该接口
type Producer interface {
	Send(ctx context.Context, msgs ...mq.Message) error
}

// RelayRecorder 投递指标，*metrics.Metrics 实现该接口
type RelayRecorder interface {
	RecordRelay(result string, n int)
}

// RelayConfig relay 参数
type RelayConfig struct {
	Topic     string
	Interval  time.Duration
	BatchSize int
}

// OutboxRelay 轮询 outbox 表并投递到 Kafka，连续失败时熔断
type OutboxRelay struct {
	store    OutboxStore
	producer Producer
	recorder RelayRecorder
	breaker  *gobreaker.CircuitBreaker
	cfg      RelayConfig
}

// NewOutboxRelay recorder 可为 nil
func NewOutboxRelay(store OutboxStore, producer Producer, recorder RelayRecorder, cfg RelayConfig) *OutboxRelay {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Topic == "" {
		cfg.Topic = "pricing.events"
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pricing-outbox-relay",
		MaxRequests: 1,
		Timeout:     10 * cfg.Interval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &OutboxRelay{store: store, producer: producer, recorder: recorder, breaker: breaker, cfg: cfg}
}

// RelayOnce 投递一批待发送消息，返回成功条数
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.store.FetchPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	msgs := make([]mq.Message, len(pending))
	ids := make([]string, len(pending))
	for i, m := range pending {
		ids[i] = m.ID
		msgs[i] = mq.Message{
			Topic: r.cfg.Topic,
			Key:   m.Key,
			Value: []byte(m.Payload),
			Headers: map[string]string{
				"event_id":   m.EventID,
				"event_type": m.EventType,
			},
		}
	}

	_, err = r.breaker.Execute(func() (any, error) {
		return nil, r.producer.Send(ctx, msgs...)
	})
	if err != nil {
		// 熔断打开时消息未发出，不计入重试次数
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			if markErr := r.store.MarkFailed(ctx, ids, err.Error()); markErr != nil {
				logger.Error(ctx, "failed to mark outbox messages failed", "count", len(ids), "error", markErr)
			}
		}
		r.record("failed", len(ids))
		return 0, err
	}

	r.record("sent", len(ids))
	// 已投递但未标记时下次会重复投递，消费方按 event_id 去重
	return len(ids), r.store.MarkSent(ctx, ids)
}

func (r *OutboxRelay) record(result string, n int) {
	if r.recorder != nil {
		r.recorder.RecordRelay(result, n)
	}
}

// Run 按间隔循环投递直到 ctx 取消
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	logger.Info(ctx, "outbox relay started", "topic", r.cfg.Topic, "interval", r.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "outbox relay stopped")
			return
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					if !errors.Is(err, gobreaker.ErrOpenState) {
						logger.Warn(ctx, "outbox relay failed", "error", err)
					}
					break
				}
				// 一批未取满说明积压已清空
				if n < r.cfg.BatchSize {
					break
				}
			}
		}
	}
}
