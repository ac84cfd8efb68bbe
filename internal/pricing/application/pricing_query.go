package application

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sourcegraph/conc/pool"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/algorithm/finance"
)

const maxHistoryLimit = 500

// PricingQueryService 处理所有定价相关的查询操作（Queries）
type PricingQueryService struct {
	repo   domain.PricingRepository
	pricer domain.Pricer
	opts   Options
}

// NewPricingQueryService 构造函数
func NewPricingQueryService(repo domain.PricingRepository, pricer domain.Pricer, opts Options) *PricingQueryService {
	return &PricingQueryService{
		repo:   repo,
		pricer: pricer,
		opts:   opts,
	}
}

// GetLatestResult 获取最新定价结果
func (s *PricingQueryService) GetLatestResult(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidContract)
	}
	return s.repo.GetLatest(ctx, symbol)
}

// GetHistory 获取定价历史，limit 取值 [1, 500]，0 表示 20
func (s *PricingQueryService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", domain.ErrInvalidContract)
	}
	if limit == 0 {
		limit = 20
	}
	if limit < 0 || limit > maxHistoryLimit {
		return nil, fmt.Errorf("%w: limit must be within [1, %d]", finance.ErrInvalidInput, maxHistoryLimit)
	}
	return s.repo.GetHistory(ctx, symbol, limit)
}

// GetGreeks 解析解直接给出希腊字母，其余模型使用中心差分重定价
func (s *PricingQueryService) GetGreeks(ctx context.Context, q GreeksQuery) (*GreeksResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := s.opts.resolve(q.ContractInput, q.PricingModel, q.Resolution)
	if err != nil {
		return nil, err
	}

	if req.method == finance.MethodBlackScholes {
		if req.spec.Exercise == finance.American {
			return nil, fmt.Errorf("%w: closed form prices european exercise only", finance.ErrInvalidInput)
		}
		g, err := finance.BlackScholesGreeks(req.spec)
		if err != nil {
			return nil, err
		}
		return &GreeksResult{PricingModel: req.model, Approach: "analytic", Greeks: domain.NewGreeks(g)}, nil
	}

	g, err := s.finiteDifferenceGreeks(req)
	if err != nil {
		return nil, err
	}
	return &GreeksResult{PricingModel: req.model, Approach: "finite_difference", Greeks: domain.NewGreeks(g)}, nil
}

func (s *PricingQueryService) finiteDifferenceGreeks(req *pricingRequest) (finance.Greeks, error) {
	price := func(spec finance.OptionSpec) (float64, error) {
		q, err := s.pricer.Evaluate(req.method, spec, req.resolution)
		return q.Price, err
	}
	base := req.spec
	v0, err := price(base)
	if err != nil {
		return finance.Greeks{}, err
	}

	bump := func(mutate func(*finance.OptionSpec, float64), h float64) (float64, float64, error) {
		up, down := base, base
		mutate(&up, h)
		mutate(&down, -h)
		vu, err := price(up)
		if err != nil {
			return 0, 0, err
		}
		vd, err := price(down)
		if err != nil {
			return 0, 0, err
		}
		return vu, vd, nil
	}

	var g finance.Greeks
	hS := 0.01 * base.Spot
	vu, vd, err := bump(func(o *finance.OptionSpec, h float64) { o.Spot += h }, hS)
	if err != nil {
		return g, err
	}
	g.Delta = (vu - vd) / (2 * hS)
	g.Gamma = (vu - 2*v0 + vd) / (hS * hS)

	hV := 0.01 * base.Volatility
	if vu, vd, err = bump(func(o *finance.OptionSpec, h float64) { o.Volatility += h }, hV); err != nil {
		return g, err
	}
	g.Vega = (vu - vd) / (2 * hV)

	hR := 1e-4
	if vu, vd, err = bump(func(o *finance.OptionSpec, h float64) { o.Rate += h }, hR); err != nil {
		return g, err
	}
	g.Rho = (vu - vd) / (2 * hR)

	// 期限缩短方向的单边差分，保证 τ > 0
	hT := 0.01 * base.Maturity
	shorter := base
	shorter.Maturity -= hT
	vs, err := price(shorter)
	if err != nil {
		return g, err
	}
	g.Theta = (vs - v0) / hT
	return g, nil
}

// CompareMethods 在同一合约上运行多个模型并与 Black-Scholes 欧式基准比较
func (s *PricingQueryService) CompareMethods(ctx context.Context, q CompareMethodsQuery) (*CompareMethodsResult, error) {
	// 先用基准校验合约
	base, err := s.opts.resolve(q.ContractInput, string(domain.ModelBlackScholes), 0)
	if err != nil {
		return nil, err
	}
	benchmark, err := finance.BlackScholes(base.spec.Europeanized())
	if err != nil {
		return nil, err
	}

	models := q.PricingModels
	if len(models) == 0 {
		for _, m := range finance.Methods() {
			models = append(models, m.String())
		}
	}

	type row struct {
		index int
		MethodComparison
	}
	p := pool.NewWithResults[row]().WithMaxGoroutines(max(s.opts.BatchConcurrency, 1))
	for i, name := range models {
		p.Go(func() row {
			return row{index: i, MethodComparison: s.compareOne(ctx, q, name, benchmark)}
		})
	}
	rows := p.Wait()
	slices.SortFunc(rows, func(a, b row) int { return a.index - b.index })

	out := &CompareMethodsResult{Benchmark: benchmark, Rows: make([]MethodComparison, len(rows))}
	for i, r := range rows {
		out.Rows[i] = r.MethodComparison
	}
	return out, nil
}

// compareOne 单个模型的比较，错误写入结果行而不中断整体
func (s *PricingQueryService) compareOne(ctx context.Context, q CompareMethodsQuery, name string, benchmark float64) MethodComparison {
	res := 0
	if pm, err := domain.ParsePricingModel(name); err == nil {
		switch pm {
		case domain.ModelMonteCarlo:
			res = q.MonteCarloPaths
		case domain.ModelBlackScholes:
		default:
			res = q.LatticeSteps
		}
	}
	req, err := s.opts.resolve(q.ContractInput, name, res)
	if err != nil {
		return MethodComparison{PricingModel: domain.PricingModel(strings.ToUpper(strings.TrimSpace(name))), Error: err.Error()}
	}
	out := MethodComparison{PricingModel: req.model}
	if err := ctx.Err(); err != nil {
		out.Error = err.Error()
		return out
	}

	spec := req.spec
	if !req.method.SupportsEarlyExercise() {
		spec = spec.Europeanized()
	}
	start := time.Now()
	quote, err := s.pricer.Evaluate(req.method, spec, req.resolution)
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Price = quote.Price
	out.StdErr = quote.StdErr
	out.Resolution = quote.Resolution
	out.Deviation = quote.Price - benchmark
	return out
}

// ConvergenceStudy 二叉树按深度给出误差；蒙特卡洛按样本量重复运行并统计均值与标准差
func (s *PricingQueryService) ConvergenceStudy(ctx context.Context, q ConvergenceQuery) (*ConvergenceResult, error) {
	if len(q.Resolutions) == 0 {
		return nil, fmt.Errorf("%w: at least one resolution is required", finance.ErrInvalidInput)
	}
	req, err := s.opts.resolve(q.ContractInput, q.PricingModel, q.Resolutions[0])
	if err != nil {
		return nil, err
	}
	if req.method == finance.MethodBlackScholes {
		return nil, fmt.Errorf("%w: closed form has no resolution to study", finance.ErrInvalidInput)
	}
	spec := req.spec
	if !req.method.SupportsEarlyExercise() {
		spec = spec.Europeanized()
	}
	benchmark, err := finance.BlackScholes(spec.Europeanized())
	if err != nil {
		return nil, err
	}

	out := &ConvergenceResult{PricingModel: req.model, Benchmark: benchmark, Points: make([]ConvergencePoint, 0, len(q.Resolutions))}
	absErrors := make([]float64, 0, len(q.Resolutions))
	for _, n := range q.Resolutions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.opts.checkResolution(req.method, n); err != nil {
			return nil, err
		}
		var pt ConvergencePoint
		if req.method == finance.MethodMonteCarlo {
			pt, err = s.monteCarloPoint(spec, n, q.Runs)
		} else {
			pt, err = s.latticePoint(req.method, spec, n)
		}
		if err != nil {
			return nil, err
		}
		pt.Error = pt.Price - benchmark
		out.Points = append(out.Points, pt)
		absErrors = append(absErrors, math.Abs(pt.Error))
	}

	out.MeanAbsError, _ = stats.Mean(absErrors)
	out.MaxAbsError, _ = stats.Max(absErrors)
	return out, nil
}

func (s *PricingQueryService) latticePoint(method finance.Method, spec finance.OptionSpec, depth int) (ConvergencePoint, error) {
	start := time.Now()
	quote, err := s.pricer.Evaluate(method, spec, depth)
	if err != nil {
		return ConvergencePoint{}, err
	}
	return ConvergencePoint{Resolution: quote.Resolution, Price: quote.Price, Elapsed: time.Since(start)}, nil
}

// monteCarloPoint 每次运行使用不同种子，统计估计值的离散程度
func (s *PricingQueryService) monteCarloPoint(spec finance.OptionSpec, pairs, runs int) (ConvergencePoint, error) {
	if runs < 1 {
		runs = 1
	}
	start := time.Now()
	prices := make([]float64, runs)
	for r := range runs {
		sim := finance.NewMonteCarloSimulator(s.opts.Seed+uint64(r), max(s.opts.Partitions, 1))
		res, err := sim.Simulate(spec, pairs)
		if err != nil {
			return ConvergencePoint{}, err
		}
		prices[r] = res.Price
	}
	mean, err := stats.Mean(prices)
	if err != nil {
		return ConvergencePoint{}, err
	}
	var sd float64
	if runs > 1 {
		sd, _ = stats.StandardDeviationSample(prices)
	}
	return ConvergencePoint{Resolution: pairs, Price: mean, StdDev: sd, Elapsed: time.Since(start)}, nil
}

// EstimateVolatility 计算滚动年化波动率
func (s *PricingQueryService) EstimateVolatility(ctx context.Context, q EstimateVolatilityQuery) (*VolatilityEstimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ppy := q.PeriodsPerYear
	if ppy == 0 {
		ppy = finance.TradingDaysPerYear
	}

	var (
		series []float64
		err    error
	)
	estimator := strings.ToLower(strings.TrimSpace(q.Estimator))
	switch estimator {
	case "", "close_to_close", "historical":
		estimator = "close_to_close"
		series, err = finance.HistoricalVolatility(q.Closes, q.Window, ppy)
	case "parkinson":
		series, err = finance.ParkinsonVolatility(q.Highs, q.Lows, q.Window, ppy)
	case "garman_klass":
		series, err = finance.GarmanKlassVolatility(q.Opens, q.Highs, q.Lows, q.Closes, q.Window, ppy)
	default:
		return nil, fmt.Errorf("%w: unknown estimator %q", finance.ErrInvalidInput, q.Estimator)
	}
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: not enough observations for window %d", finance.ErrInvalidInput, q.Window)
	}
	mean, _ := stats.Mean(series)
	return &VolatilityEstimate{
		Estimator: estimator,
		Series:    series,
		Latest:    series[len(series)-1],
		Mean:      mean,
	}, nil
}
