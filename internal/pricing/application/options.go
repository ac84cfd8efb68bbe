package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/algorithm/finance"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// Options 定价服务参数
type Options struct {
	DefaultSteps     int
	DefaultPaths     int
	MaxResolution    int
	MaxLatticeSteps  int
	Seed             uint64
	Partitions       int
	BatchConcurrency int
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		DefaultSteps:     500,
		DefaultPaths:     50_000,
		MaxResolution:    2_000_000,
		MaxLatticeSteps:  20_000,
		Seed:             finance.DefaultSeed,
		Partitions:       finance.DefaultPartitions,
		BatchConcurrency: 8,
	}
}

// Recorder 定价指标记录，*metrics.Metrics 实现该接口
type Recorder interface {
	RecordPricing(method, outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordPricing(string, string, time.Duration) {}

// pricingRequest 校验后的定价请求
type pricingRequest struct {
	contract   domain.OptionContract
	market     domain.MarketInputs
	model      domain.PricingModel
	method     finance.Method
	spec       finance.OptionSpec
	resolution int
}

func (o Options) defaultResolution(m finance.Method) int {
	switch m {
	case finance.MethodBlackScholes:
		return 0
	case finance.MethodMonteCarlo:
		return o.DefaultPaths
	default:
		return o.DefaultSteps
	}
}

// checkResolution 二叉树深度与蒙特卡洛路径对数分别限额，0 表示不限
func (o Options) checkResolution(m finance.Method, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: resolution %d must be positive", finance.ErrInvalidInput, n)
	}
	switch m {
	case finance.MethodBlackScholes:
		return nil
	case finance.MethodMonteCarlo:
		if o.MaxResolution > 0 && n > o.MaxResolution {
			return fmt.Errorf("%w: monte carlo pairs %d exceed limit %d", finance.ErrInvalidInput, n, o.MaxResolution)
		}
	default:
		if o.MaxLatticeSteps > 0 && n > o.MaxLatticeSteps {
			return fmt.Errorf("%w: lattice depth %d exceeds limit %d", finance.ErrInvalidInput, n, o.MaxLatticeSteps)
		}
	}
	return nil
}

// resolve 解析合约与模型，数值域校验交给引擎
func (o Options) resolve(in ContractInput, model string, resolution int) (*pricingRequest, error) {
	ot, err := domain.ParseOptionType(in.OptionType)
	if err != nil {
		return nil, err
	}
	ex, err := domain.ParseExerciseStyle(in.ExerciseStyle)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(model) == "" {
		model = string(domain.ModelBlackScholes)
		if ex == domain.ExerciseAmerican {
			model = string(domain.ModelBinomialCRR)
		}
	}
	pm, err := domain.ParsePricingModel(model)
	if err != nil {
		return nil, err
	}
	method, _ := pm.Method()

	if resolution < 0 {
		return nil, fmt.Errorf("%w: resolution %d is negative", finance.ErrInvalidInput, resolution)
	}
	if resolution == 0 {
		resolution = o.defaultResolution(method)
	}
	if method != finance.MethodBlackScholes {
		if err := o.checkResolution(method, resolution); err != nil {
			return nil, err
		}
	}

	contract := domain.OptionContract{
		Symbol:        strings.TrimSpace(in.Symbol),
		Type:          ot,
		ExerciseStyle: ex,
		StrikePrice:   in.StrikePrice,
		Maturity:      in.Maturity,
	}
	market := domain.MarketInputs{
		UnderlyingPrice: in.UnderlyingPrice,
		Volatility:      in.Volatility,
		RiskFreeRate:    in.RiskFreeRate,
	}
	spec, err := contract.Spec(market)
	if err != nil {
		return nil, err
	}
	return &pricingRequest{
		contract:   contract,
		market:     market,
		model:      pm,
		method:     method,
		spec:       spec,
		resolution: resolution,
	}, nil
}

// ErrorCode 领域错误到稳定错误码的映射
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, finance.ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, finance.ErrDegenerateLattice):
		return "DEGENERATE_LATTICE"
	case errors.Is(err, finance.ErrNumericOverflow):
		return "NUMERIC_OVERFLOW"
	case errors.Is(err, domain.ErrInvalidContract):
		return "INVALID_CONTRACT"
	case errors.Is(err, domain.ErrResultNotFound):
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

func outcomeOf(err error) string {
	switch ErrorCode(err) {
	case "INVALID_INPUT", "INVALID_CONTRACT":
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeFailed
	}
}
