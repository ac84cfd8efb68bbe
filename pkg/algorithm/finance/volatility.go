package finance

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// TradingDaysPerYear 日频数据年化常用周期数
const TradingDaysPerYear = 252

// HistoricalVolatility 收盘价对数收益率的滚动样本标准差，乘 √periodsPerYear 年化。
// 返回长度为 len(closes)-window 的序列，第 i 个值对应收益率 [i, i+window)。
func HistoricalVolatility(closes []float64, window int, periodsPerYear float64) ([]float64, error) {
	if err := validateWindow(window, periodsPerYear); err != nil {
		return nil, err
	}
	if err := positiveSeries("close", closes); err != nil {
		return nil, err
	}
	if window < 2 || len(closes)-1 < window {
		return nil, fmt.Errorf("%w: need at least window+1 closes with window>=2, got %d closes, window %d",
			ErrInvalidInput, len(closes), window)
	}

	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = math.Log(closes[i] / closes[i-1])
	}

	scale := math.Sqrt(periodsPerYear)
	out := make([]float64, 0, len(returns)-window+1)
	for i := 0; i+window <= len(returns); i++ {
		sd, err := stats.StandardDeviationSample(returns[i : i+window])
		if err != nil {
			return nil, fmt.Errorf("historical volatility: %w", err)
		}
		out = append(out, scale*sd)
	}
	return out, nil
}

// ParkinsonVolatility 高低价区间估计：√(N/(4ln2) · mean(ln(H/L)²))
func ParkinsonVolatility(highs, lows []float64, window int, periodsPerYear float64) ([]float64, error) {
	if err := validateWindow(window, periodsPerYear); err != nil {
		return nil, err
	}
	if err := sameLength(len(highs), len(lows)); err != nil {
		return nil, err
	}
	if err := positiveSeries("high", highs); err != nil {
		return nil, err
	}
	if err := positiveSeries("low", lows); err != nil {
		return nil, err
	}
	if len(highs) < window {
		return nil, fmt.Errorf("%w: window %d longer than series %d", ErrInvalidInput, window, len(highs))
	}

	hl := squaredLogRatios(highs, lows)
	factor := periodsPerYear / (4 * math.Ln2)
	means, err := rollingMean(hl, window)
	if err != nil {
		return nil, err
	}
	for i, m := range means {
		means[i] = math.Sqrt(factor * m)
	}
	return means, nil
}

// GarmanKlassVolatility 开高低收估计：√(N/2 · mean(ln(H/L)²) − N(2ln2−1) · mean(ln(C/O)²))
func GarmanKlassVolatility(opens, highs, lows, closes []float64, window int, periodsPerYear float64) ([]float64, error) {
	if err := validateWindow(window, periodsPerYear); err != nil {
		return nil, err
	}
	for _, n := range []int{len(highs), len(lows), len(closes)} {
		if err := sameLength(len(opens), n); err != nil {
			return nil, err
		}
	}
	for name, s := range map[string][]float64{"open": opens, "high": highs, "low": lows, "close": closes} {
		if err := positiveSeries(name, s); err != nil {
			return nil, err
		}
	}
	if len(opens) < window {
		return nil, fmt.Errorf("%w: window %d longer than series %d", ErrInvalidInput, window, len(opens))
	}

	hlMeans, err := rollingMean(squaredLogRatios(highs, lows), window)
	if err != nil {
		return nil, err
	}
	coMeans, err := rollingMean(squaredLogRatios(closes, opens), window)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(hlMeans))
	for i := range hlMeans {
		v := periodsPerYear/2*hlMeans[i] - periodsPerYear*(2*math.Ln2-1)*coMeans[i]
		if v < 0 {
			return nil, fmt.Errorf("%w: negative garman-klass variance at window %d", ErrInvalidInput, i)
		}
		out[i] = math.Sqrt(v)
	}
	return out, nil
}

func validateWindow(window int, periodsPerYear float64) error {
	if err := validateResolution("window", window); err != nil {
		return err
	}
	if !isFinite(periodsPerYear) || periodsPerYear <= 0 {
		return fmt.Errorf("%w: periods per year must be positive, got %v", ErrInvalidInput, periodsPerYear)
	}
	return nil
}

func sameLength(a, b int) error {
	if a != b {
		return fmt.Errorf("%w: series length mismatch %d vs %d", ErrInvalidInput, a, b)
	}
	return nil
}

func positiveSeries(name string, s []float64) error {
	for i, v := range s {
		if !isFinite(v) || v <= 0 {
			return fmt.Errorf("%w: %s[%d] must be positive, got %v", ErrInvalidInput, name, i, v)
		}
	}
	return nil
}

func squaredLogRatios(num, den []float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		l := math.Log(num[i] / den[i])
		out[i] = l * l
	}
	return out
}

func rollingMean(xs []float64, window int) ([]float64, error) {
	out := make([]float64, 0, len(xs)-window+1)
	for i := 0; i+window <= len(xs); i++ {
		m, err := stats.Mean(xs[i : i+window])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
