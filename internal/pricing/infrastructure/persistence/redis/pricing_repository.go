package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/cache"
	"github.com/wyfcoding/optionpricing/pkg/logger"
)

// JSONCache 仓储装饰器依赖的缓存操作，*cache.RedisCache 实现该接口
type JSONCache interface {
	Key(parts ...string) string
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// PricingCachedRepository 为最新定价结果加一层 Redis 读缓存，历史查询直接走底层仓储
type PricingCachedRepository struct {
	next  domain.PricingRepository
	cache JSONCache
	ttl   time.Duration
}

// NewPricingCachedRepository ttl<=0 时使用 15 分钟
func NewPricingCachedRepository(next domain.PricingRepository, c JSONCache, ttl time.Duration) *PricingCachedRepository {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PricingCachedRepository{next: next, cache: c, ttl: ttl}
}

func (r *PricingCachedRepository) resultKey(symbol string) string {
	return r.cache.Key("pricing_result", symbol)
}

type staleKey struct{}

// staleSymbols 事务内写入过的标的，提交成功后统一失效
type staleSymbols struct {
	mu      sync.Mutex
	symbols map[string]struct{}
}

func (s *staleSymbols) add(symbol string) {
	s.mu.Lock()
	s.symbols[symbol] = struct{}{}
	s.mu.Unlock()
}

func staleFrom(ctx context.Context) *staleSymbols {
	s, _ := ctx.Value(staleKey{}).(*staleSymbols)
	return s
}

// WithTx 提交成功后才失效事务内写入的标的，避免提交前的并发读把旧值回填进缓存
func (r *PricingCachedRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if staleFrom(ctx) != nil {
		return r.next.WithTx(ctx, fn)
	}
	stale := &staleSymbols{symbols: make(map[string]struct{})}
	if err := r.next.WithTx(context.WithValue(ctx, staleKey{}, stale), fn); err != nil {
		return err
	}
	for symbol := range stale.symbols {
		r.invalidate(ctx, symbol)
	}
	return nil
}

// Save 事务外写库后立即失效，事务内只登记标的
func (r *PricingCachedRepository) Save(ctx context.Context, res *domain.PricingResult) error {
	if err := r.next.Save(ctx, res); err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	if stale := staleFrom(ctx); stale != nil {
		stale.add(res.Symbol)
		return nil
	}
	r.invalidate(ctx, res.Symbol)
	return nil
}

func (r *PricingCachedRepository) invalidate(ctx context.Context, symbol string) {
	if err := r.cache.Delete(ctx, r.resultKey(symbol)); err != nil {
		logger.Warn(ctx, "failed to invalidate pricing cache", "symbol", symbol, "error", err)
	}
}

// GetLatest 缓存故障时降级为直接读库
func (r *PricingCachedRepository) GetLatest(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	key := r.resultKey(symbol)
	var cached domain.PricingResult
	err := r.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn(ctx, "pricing cache read failed", "symbol", symbol, "error", err)
	}

	res, err := r.next.GetLatest(ctx, symbol)
	if err != nil {
		return nil, err
	}
	// 事务内读到的可能是未提交的数据，不回填
	if staleFrom(ctx) != nil {
		return res, nil
	}
	if err := r.cache.SetJSON(ctx, key, res, r.ttl); err != nil {
		logger.Warn(ctx, "pricing cache write failed", "symbol", symbol, "error", err)
	}
	return res, nil
}

func (r *PricingCachedRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	return r.next.GetHistory(ctx, symbol, limit)
}
