package messaging

import (
	"context"

	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// LogEventPublisher 未配置数据库时使用，事件仅记录日志
type LogEventPublisher struct{}

// Publish 发布一个普通事件
func (LogEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	logger.Debug(ctx, "publishing event", "event_type", eventType, "key", key, "event", event)
	return nil
}

// PublishInTx 在事务中发布事件
func (LogEventPublisher) PublishInTx(ctx context.Context, _ any, eventType, key string, event any) error {
	logger.Debug(ctx, "publishing event in transaction", "event_type", eventType, "key", key, "event", event)
	return nil
}
