// Package finance 期权定价数值引擎：二叉树（多种参数化）、对偶变量蒙特卡洛、Black-Scholes 解析解。
package finance

import (
	"fmt"
	"math"
)

// Side 期权方向
type Side int

const (
	Call Side = iota // 看涨
	Put              // 看跌
)

func (s Side) String() string {
	switch s {
	case Call:
		return "CALL"
	case Put:
		return "PUT"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Exercise 行权方式
type Exercise int

const (
	European Exercise = iota // 欧式，仅到期日行权
	American                 // 美式，到期前任意时点可行权
)

func (e Exercise) String() string {
	switch e {
	case European:
		return "EUROPEAN"
	case American:
		return "AMERICAN"
	default:
		return fmt.Sprintf("Exercise(%d)", int(e))
	}
}

// OptionSpec 单次定价调用的期权参数，值类型，创建后不修改。
// Rate 与 Volatility 的时间单位必须与 Maturity 一致，由调用方保证。
type OptionSpec struct {
	Spot       float64 // 标的现价 S
	Strike     float64 // 行权价 K
	Maturity   float64 // 剩余期限 τ
	Rate       float64 // 无风险利率 r（连续复利）
	Volatility float64 // 波动率 σ
	Side       Side
	Exercise   Exercise
}

// Validate 校验输入域，任何非法值直接拒绝，不做修正
func (o OptionSpec) Validate() error {
	switch {
	case !isFinite(o.Spot) || o.Spot <= 0:
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidInput, o.Spot)
	case !isFinite(o.Strike) || o.Strike <= 0:
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidInput, o.Strike)
	case !isFinite(o.Maturity) || o.Maturity <= 0:
		return fmt.Errorf("%w: maturity must be positive, got %v", ErrInvalidInput, o.Maturity)
	case !isFinite(o.Volatility) || o.Volatility <= 0:
		return fmt.Errorf("%w: volatility must be positive, got %v", ErrInvalidInput, o.Volatility)
	case !isFinite(o.Rate):
		return fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidInput, o.Rate)
	}
	if o.Side != Call && o.Side != Put {
		return fmt.Errorf("%w: unknown option side %v", ErrInvalidInput, o.Side)
	}
	if o.Exercise != European && o.Exercise != American {
		return fmt.Errorf("%w: unknown exercise style %v", ErrInvalidInput, o.Exercise)
	}
	return nil
}

// Europeanized 返回同参数的欧式合约，用作收敛基准
func (o OptionSpec) Europeanized() OptionSpec {
	o.Exercise = European
	return o
}

// Payoff 到期（或行权时）的内在价值
func (o OptionSpec) Payoff(spot float64) float64 {
	return intrinsic(o.Side, spot, o.Strike)
}

func intrinsic(side Side, spot, strike float64) float64 {
	if side == Call {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
