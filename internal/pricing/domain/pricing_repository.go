package domain

import (
	"context"

	"github.com/wyfcoding/optionpricing/pkg/algorithm/finance"
)

// PricingRepository 定价结果仓储接口
type PricingRepository interface {
	Save(ctx context.Context, result *PricingResult) error
	// GetLatest 无记录时返回 ErrResultNotFound
	GetLatest(ctx context.Context, symbol string) (*PricingResult, error)
	// GetHistory 按计算时间倒序
	GetHistory(ctx context.Context, symbol string, limit int) ([]*PricingResult, error)
	// WithTx 在事务中执行 fn，事务句柄通过 ctx 传递
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Pricer 数值定价引擎，*finance.Pricer 实现该接口
type Pricer interface {
	Evaluate(method finance.Method, spec finance.OptionSpec, resolution int) (finance.Quote, error)
}
