package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/algorithm/finance"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
)

// PricingCommandService 处理定价相关的命令操作
// 结果与领域事件在同一事务中写入（Outbox）
type PricingCommandService struct {
	repo      domain.PricingRepository
	publisher domain.EventPublisher
	pricer    domain.Pricer
	recorder  Recorder
	opts      Options
	now       func() time.Time
}

// NewPricingCommandService 创建 PricingCommandService，publisher 与 recorder 可为 nil
func NewPricingCommandService(repo domain.PricingRepository, publisher domain.EventPublisher, pricer domain.Pricer, recorder Recorder, opts Options) *PricingCommandService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &PricingCommandService{
		repo:      repo,
		publisher: publisher,
		pricer:    pricer,
		recorder:  recorder,
		opts:      opts,
		now:       time.Now,
	}
}

// PriceOption 期权定价
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}
	req, err := c.opts.resolve(cmd.ContractInput, cmd.PricingModel, cmd.Resolution)
	if err != nil {
		c.recorder.RecordPricing(cmd.PricingModel, outcomeOf(err), 0)
		return nil, err
	}

	start := time.Now()
	quote, err := c.pricer.Evaluate(req.method, req.spec, req.resolution)
	elapsed := time.Since(start)
	if err != nil {
		c.recorder.RecordPricing(string(req.model), outcomeOf(err), elapsed)
		c.publishError(ctx, cmd.RequestID, req, err)
		return nil, err
	}

	var greeks domain.Greeks
	if req.method == finance.MethodBlackScholes {
		g, gerr := finance.BlackScholesGreeks(req.spec)
		if gerr != nil {
			return nil, gerr
		}
		greeks = domain.NewGreeks(g)
	}

	calculatedAt := c.now().UnixMilli()
	result := &domain.PricingResult{
		RequestID:       cmd.RequestID,
		Symbol:          req.contract.Symbol,
		OptionType:      req.contract.Type,
		ExerciseStyle:   req.contract.ExerciseStyle,
		PricingModel:    req.model,
		StrikePrice:     decimal.NewFromFloat(req.contract.StrikePrice),
		UnderlyingPrice: decimal.NewFromFloat(req.market.UnderlyingPrice),
		Maturity:        req.contract.Maturity,
		Volatility:      req.market.Volatility,
		RiskFreeRate:    req.market.RiskFreeRate,
		Resolution:      quote.Resolution,
		OptionPrice:     decimal.NewFromFloat(quote.Price),
		StdErr:          quote.StdErr,
		Greeks:          greeks,
		ElapsedMicros:   elapsed.Microseconds(),
		CalculatedAt:    calculatedAt,
	}

	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.Save(txCtx, result); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}
		event := domain.OptionPricedEvent{
			RequestID:       result.RequestID,
			Symbol:          result.Symbol,
			OptionType:      result.OptionType,
			ExerciseStyle:   result.ExerciseStyle,
			StrikePrice:     req.contract.StrikePrice,
			Maturity:        req.contract.Maturity,
			OptionPrice:     result.OptionPrice.String(),
			StdErr:          result.StdErr,
			UnderlyingPrice: req.market.UnderlyingPrice,
			Volatility:      req.market.Volatility,
			RiskFreeRate:    req.market.RiskFreeRate,
			PricingModel:    result.PricingModel,
			Resolution:      result.Resolution,
			CalculatedAt:    calculatedAt,
			OccurredOn:      c.now(),
		}
		return c.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.OptionPricedEventType, result.Symbol, event)
	})
	if err != nil {
		logger.Error(ctx, "failed to persist pricing result", "symbol", result.Symbol, "error", err)
		c.recorder.RecordPricing(string(req.model), metrics.OutcomeFailed, elapsed)
		c.publishError(ctx, cmd.RequestID, req, err)
		return nil, fmt.Errorf("persist pricing result: %w", err)
	}

	c.recorder.RecordPricing(string(req.model), metrics.OutcomeOK, elapsed)
	logger.Debug(ctx, "option priced",
		"symbol", result.Symbol,
		"model", result.PricingModel,
		"price", result.OptionPrice.String(),
		"resolution", result.Resolution,
		"elapsed", elapsed,
	)
	return result, nil
}

// publishError 事务外发布定价失败事件，发布失败只记录日志
func (c *PricingCommandService) publishError(ctx context.Context, requestID string, req *pricingRequest, cause error) {
	if c.publisher == nil {
		return
	}
	event := domain.PricingErrorEvent{
		RequestID:    requestID,
		Symbol:       req.contract.Symbol,
		OptionType:   req.contract.Type,
		StrikePrice:  req.contract.StrikePrice,
		Maturity:     req.contract.Maturity,
		PricingModel: req.model,
		Error:        cause.Error(),
		ErrorCode:    ErrorCode(cause),
		OccurredAt:   c.now().UnixMilli(),
		OccurredOn:   c.now(),
	}
	if err := c.publisher.Publish(ctx, domain.PricingErrorEventType, req.contract.Symbol, event); err != nil {
		logger.Warn(ctx, "failed to publish pricing error event", "symbol", req.contract.Symbol, "error", err)
	}
}

type batchItem struct {
	index   int
	result  *domain.PricingResult
	err     error
	elapsed time.Duration
}

// BatchPriceOptions 批量定价，单项失败不影响其他合约
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	if len(cmd.Contracts) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", domain.ErrInvalidContract)
	}
	if cmd.BatchID == "" {
		cmd.BatchID = fmt.Sprintf("BATCH-%d", idgen.GenID())
	}

	p := pool.NewWithResults[batchItem]().WithMaxGoroutines(max(c.opts.BatchConcurrency, 1))
	for i, contract := range cmd.Contracts {
		p.Go(func() batchItem {
			if err := ctx.Err(); err != nil {
				return batchItem{index: i, err: err}
			}
			start := time.Now()
			res, err := c.PriceOption(ctx, contract)
			return batchItem{index: i, result: res, err: err, elapsed: time.Since(start)}
		})
	}
	items := p.Wait()
	slices.SortFunc(items, func(a, b batchItem) int { return a.index - b.index })

	out := &BatchPricingResult{
		BatchID:  cmd.BatchID,
		Results:  make([]*domain.PricingResult, 0, len(items)),
		Failures: make([]BatchFailure, 0),
	}
	var total time.Duration
	for _, it := range items {
		total += it.elapsed
		if it.err != nil {
			out.Failures = append(out.Failures, BatchFailure{
				Index:  it.index,
				Symbol: cmd.Contracts[it.index].Symbol,
				Error:  it.err.Error(),
			})
			continue
		}
		out.Results = append(out.Results, it.result)
	}
	out.SuccessCount = len(out.Results)
	out.FailureCount = len(out.Failures)
	out.AverageTime = total.Seconds() / float64(len(items))

	if c.publisher != nil {
		now := c.now()
		err := c.publisher.Publish(ctx, domain.BatchPricingCompletedEventType, cmd.BatchID, domain.BatchPricingCompletedEvent{
			BatchID:        cmd.BatchID,
			Symbols:        extractSymbols(cmd.Contracts),
			TotalContracts: len(cmd.Contracts),
			SuccessCount:   out.SuccessCount,
			FailureCount:   out.FailureCount,
			AverageTime:    out.AverageTime,
			CompletedAt:    now.UnixMilli(),
			OccurredOn:     now,
		})
		if err != nil {
			logger.Warn(ctx, "failed to publish batch completion", "batch_id", cmd.BatchID, "error", err)
		}
	}
	return out, nil
}

// 提取去重后的合约代码，保持首次出现的顺序
func extractSymbols(contracts []PriceOptionCommand) []string {
	symbols := make([]string, 0, len(contracts))
	seen := make(map[string]bool)
	for _, contract := range contracts {
		if !seen[contract.Symbol] {
			symbols = append(symbols, contract.Symbol)
			seen[contract.Symbol] = true
		}
	}
	return symbols
}
