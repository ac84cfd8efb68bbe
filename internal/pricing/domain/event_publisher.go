package domain

import "context"

// EventPublisher 领域事件发布者
type EventPublisher interface {
	// Publish 在事务外发布
	Publish(ctx context.Context, eventType, key string, event any) error
	// PublishInTx 与业务写入同一事务落库
	PublishInTx(ctx context.Context, tx any, eventType, key string, event any) error
}
