package main

import (
	"flag"
	"math"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
)

// scenario 演示合约。期限以天计，利率与波动率换算为日频。
type scenario struct {
	spot       float64
	strike     float64
	days       float64
	annualVol  float64
	annualRate float64
	// 年化所用天数
	daysInYear float64
	side       string
	style      string
}

// setFlags side 与 style 的默认值由子命令给出
func (s *scenario) setFlags(f *flag.FlagSet, side, style string) {
	f.Float64Var(&s.spot, "spot", 105, "underlying spot price")
	f.Float64Var(&s.strike, "strike", 100, "strike price")
	f.Float64Var(&s.days, "tte", 30, "time to expiry in days")
	f.Float64Var(&s.annualVol, "vol", 0.40, "annual volatility")
	f.Float64Var(&s.annualRate, "rate", 0.05, "annual risk-free rate, compounded daily")
	f.Float64Var(&s.daysInYear, "year", 356, "days per year used to convert annual inputs")
	f.StringVar(&s.side, "side", side, "CALL, PUT or BOTH")
	f.StringVar(&s.style, "style", style, "EUROPEAN or AMERICAN")
}

// dailyRate 年利率的日复利等价
func (s scenario) dailyRate() float64 {
	return math.Exp(math.Log(1+s.annualRate)/s.daysInYear) - 1
}

func (s scenario) dailyVol() float64 {
	return s.annualVol * math.Sqrt(1/s.daysInYear)
}

func (s scenario) contract(side string) application.ContractInput {
	return application.ContractInput{
		Symbol:          "DEMO",
		OptionType:      side,
		ExerciseStyle:   s.style,
		StrikePrice:     s.strike,
		Maturity:        s.days,
		UnderlyingPrice: s.spot,
		Volatility:      s.dailyVol(),
		RiskFreeRate:    s.dailyRate(),
	}
}
