// Package memory 提供无数据库部署下的进程内仓储
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// Tx 进程内事务，提交前写入只对本事务可见
type Tx struct {
	staged []*domain.PricingResult
}

type txKey struct{}

// TxFrom 取出 ctx 中的进程内事务
func TxFrom(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok
}

// PricingRepository 内存实现，按 symbol 保存全部历史
type PricingRepository struct {
	mu      sync.RWMutex
	nextID  uint
	results map[string][]*domain.PricingResult
	now     func() time.Time
}

// NewPricingRepository 创建内存仓储
func NewPricingRepository() *PricingRepository {
	return &PricingRepository{
		results: make(map[string][]*domain.PricingResult),
		now:     time.Now,
	}
}

// WithTx fn 返回错误时丢弃本事务内的全部写入
func (r *PricingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &Tx{}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range tx.staged {
		r.insertLocked(res)
	}
	return nil
}

func (r *PricingRepository) Save(ctx context.Context, res *domain.PricingResult) error {
	if res == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx, ok := TxFrom(ctx); ok {
		tx.staged = append(tx.staged, res)
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(res)
	return nil
}

func (r *PricingRepository) insertLocked(res *domain.PricingResult) {
	r.nextID++
	now := r.now()
	res.ID = r.nextID
	res.CreatedAt = now
	res.UpdatedAt = now
	stored := *res
	r.results[res.Symbol] = append(r.results[res.Symbol], &stored)
}

func (r *PricingRepository) GetLatest(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	history, err := r.GetHistory(ctx, symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, domain.ErrResultNotFound
	}
	return history[0], nil
}

// GetHistory 按计算时间倒序，同一时间按写入顺序倒序
func (r *PricingRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	rows := slices.Clone(r.results[symbol])
	r.mu.RUnlock()

	slices.SortFunc(rows, func(a, b *domain.PricingResult) int {
		if a.CalculatedAt != b.CalculatedAt {
			if a.CalculatedAt > b.CalculatedAt {
				return -1
			}
			return 1
		}
		return int(b.ID) - int(a.ID)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]*domain.PricingResult, len(rows))
	for i, row := range rows {
		cp := *row
		out[i] = &cp
	}
	return out, nil
}
