package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/memory"
	"github.com/wyfcoding/optionpricing/pkg/cache"
)

type fakeCache struct {
	data    map[string][]byte
	gets    int
	getErr  error
	deleted []string
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string][]byte)} }

func (f *fakeCache) Key(parts ...string) string { return "test:" + strings.Join(parts, ":") }

func (f *fakeCache) GetJSON(_ context.Context, key string, dest any) error {
	f.gets++
	if f.getErr != nil {
		return f.getErr
	}
	b, ok := f.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = b
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func TestPricingCachedRepository_ReadThroughAndInvalidate(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	repo := NewPricingCachedRepository(memory.NewPricingRepository(), fc, 0)

	if _, err := repo.GetLatest(ctx, "AAPL"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("empty: %v", err)
	}
	if len(fc.data) != 0 {
		t.Fatal("not-found must not be cached")
	}

	first := &domain.PricingResult{Symbol: "AAPL", CalculatedAt: 1, OptionPrice: decimal.RequireFromString("10.5")}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.GetLatest(ctx, "AAPL")
	if err != nil || !got.OptionPrice.Equal(first.OptionPrice) {
		t.Fatalf("read through: %v %v", got, err)
	}
	if _, ok := fc.data["test:pricing_result:AAPL"]; !ok {
		t.Fatalf("result not cached: %v", fc.data)
	}

	second := &domain.PricingResult{Symbol: "AAPL", CalculatedAt: 2, OptionPrice: decimal.RequireFromString("11")}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := fc.data["test:pricing_result:AAPL"]; ok {
		t.Fatal("save did not invalidate")
	}
	got, _ = repo.GetLatest(ctx, "AAPL")
	if !got.OptionPrice.Equal(second.OptionPrice) {
		t.Fatalf("stale read: %s", got.OptionPrice)
	}
}

func TestPricingCachedRepository_CacheFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	fc.getErr = errors.New("connection refused")
	inner := memory.NewPricingRepository()
	_ = inner.Save(ctx, &domain.PricingResult{Symbol: "MSFT", CalculatedAt: 5})

	repo := NewPricingCachedRepository(inner, fc, time.Minute)
	got, err := repo.GetLatest(ctx, "MSFT")
	if err != nil || got.CalculatedAt != 5 {
		t.Fatalf("fallback: %v %v", got, err)
	}
}

func TestPricingCachedRepository_InvalidatesAfterCommit(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	repo := NewPricingCachedRepository(memory.NewPricingRepository(), fc, 0)
	key := "test:pricing_result:TSLA"

	if err := repo.Save(ctx, &domain.PricingResult{Symbol: "TSLA", CalculatedAt: 1, OptionPrice: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.Save(txCtx, &domain.PricingResult{Symbol: "TSLA", CalculatedAt: 2, OptionPrice: decimal.NewFromInt(2)}); err != nil {
			return err
		}
		// 提交前的读取（事务内外）都只能看到旧值，并可能把它回填
		if got, err := repo.GetLatest(txCtx, "TSLA"); err != nil || got.CalculatedAt != 1 {
			t.Fatalf("in-tx read: %v %v", got, err)
		}
		if got, err := repo.GetLatest(ctx, "TSLA"); err != nil || got.CalculatedAt != 1 {
			t.Fatalf("concurrent read: %v %v", got, err)
		}
		if _, ok := fc.data[key]; !ok {
			t.Fatal("concurrent read should have cached the committed row")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	if _, ok := fc.data[key]; ok {
		t.Fatal("commit did not invalidate the cached row")
	}
	got, err := repo.GetLatest(ctx, "TSLA")
	if err != nil || !got.OptionPrice.Equal(decimal.NewFromInt(2)) || got.CalculatedAt != 2 {
		t.Fatalf("after commit: %+v %v", got, err)
	}
}

func TestPricingCachedRepository_RollbackKeepsCache(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	repo := NewPricingCachedRepository(memory.NewPricingRepository(), fc, 0)

	_ = repo.Save(ctx, &domain.PricingResult{Symbol: "NVDA", CalculatedAt: 1})
	if _, err := repo.GetLatest(ctx, "NVDA"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	fc.deleted = nil

	boom := errors.New("outbox write failed")
	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.Save(txCtx, &domain.PricingResult{Symbol: "NVDA", CalculatedAt: 2}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("tx: %v", err)
	}
	if len(fc.deleted) != 0 {
		t.Fatalf("rolled back write must not invalidate: %v", fc.deleted)
	}
	got, _ := repo.GetLatest(ctx, "NVDA")
	if got.CalculatedAt != 1 {
		t.Fatalf("after rollback: %+v", got)
	}
}
