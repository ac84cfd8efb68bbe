package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// OutboxMessage 消息队列
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primary_key"`
	EventID   string    `gorm:"type:varchar(36);index"`
	EventType string    `gorm:"type:varchar(100);index"`
	Key       string    `gorm:"column:msg_key;type:varchar(64)"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	Attempts  int       `gorm:"default:0"`
	LastError string    `gorm:"type:varchar(512)"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "pricing_outbox_messages"
}

// OutboxEventPublisher 实现 EventPublisher 接口，使用 Outbox 模式
type OutboxEventPublisher struct {
	db          *gorm.DB
	maxAttempts int
	now         func() time.Time
}

// NewOutboxEventPublisher 创建新的 OutboxEventPublisher 实例，maxAttempts 次发送失败后消息标记为 failed
func NewOutboxEventPublisher(db *gorm.DB, maxAttempts int) *OutboxEventPublisher {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &OutboxEventPublisher{db: db, maxAttempts: maxAttempts, now: time.Now}
}

// Publish 事务外写入 outbox
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	return p.publishEvent(p.db.WithContext(ctx), eventType, key, event)
}

// PublishInTx 与业务数据同一事务写入 outbox，tx 为空时退化为 Publish
func (p *OutboxEventPublisher) PublishInTx(ctx context.Context, tx any, eventType, key string, event any) error {
	if tx == nil {
		return p.Publish(ctx, eventType, key, event)
	}
	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return fmt.Errorf("invalid transaction type %T", tx)
	}
	return p.publishEvent(gormTx.WithContext(ctx), eventType, key, event)
}

// publishEvent 通用事件发布方法
func (p *OutboxEventPublisher) publishEvent(db *gorm.DB, eventType, key string, event any) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	message, err := newOutboxMessage(eventType, key, eventData, p.now())
	if err != nil {
		return err
	}
	return db.Create(message).Error
}

func newOutboxMessage(eventType, key string, payload []byte, now time.Time) (*OutboxMessage, error) {
	eventID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		ID:        uuid.NewString(),
		EventID:   eventID.String(),
		EventType: eventType,
		Key:       key,
		Payload:   string(payload),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// FetchPending 按写入顺序取待发送消息
func (p *OutboxEventPublisher) FetchPending(ctx context.Context, limit int) ([]OutboxMessage, error) {
	var messages []OutboxMessage
	err := p.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// MarkSent 标记为已发送
func (p *OutboxEventPublisher) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Model(&OutboxMessage{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": StatusSent, "updated_at": p.now()}).Error
}

// MarkFailed 记录失败原因，超过最大次数后不再重试
func (p *OutboxEventPublisher) MarkFailed(ctx context.Context, ids []string, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(reason) > 512 {
		reason = reason[:512]
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&OutboxMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": reason,
				"updated_at": p.now(),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&OutboxMessage{}).
			Where("id IN ? AND attempts >= ?", ids, p.maxAttempts).
			Update("status", StatusFailed).Error
	})
}

// CleanupProcessedMessages 清理已处理的消息
func (p *OutboxEventPublisher) CleanupProcessedMessages(ctx context.Context, before time.Time) error {
	return p.db.WithContext(ctx).Where("status = ? AND updated_at < ?", StatusSent, before).Delete(&OutboxMessage{}).Error
}
