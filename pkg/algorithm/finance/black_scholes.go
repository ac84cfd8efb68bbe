package finance

import (
	"fmt"
	"math"
)

// Greeks Black-Scholes 希腊字母，Theta 与 Vega 按单位时间/单位波动率给出，不做年化或百分比换算
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

func d1d2(spot, strike, tau, r, sigma float64) (float64, float64) {
	volSqrtT := sigma * math.Sqrt(tau)
	d1 := (math.Log(spot/strike) + (r+0.5*sigma*sigma)*tau) / volSqrtT
	return d1, d1 - volSqrtT
}

// BlackScholes 欧式期权解析价。对美式合约返回其欧式等价物的价格，仅作收敛基准。
func BlackScholes(spec OptionSpec) (float64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	d1, d2 := d1d2(spec.Spot, spec.Strike, spec.Maturity, spec.Rate, spec.Volatility)
	df := math.Exp(-spec.Rate * spec.Maturity)

	var price float64
	if spec.Side == Call {
		price = spec.Spot*NormCDF(d1) - spec.Strike*df*NormCDF(d2)
	} else {
		price = spec.Strike*df*NormCDF(-d2) - spec.Spot*NormCDF(-d1)
	}
	if err := checkFinite("black-scholes price", price); err != nil {
		return 0, err
	}
	return price, nil
}

// CallRatio 看涨期权价格与标的价格之比 C/S，kappa 为 K/S
func CallRatio(kappa, tau, r, sigma float64) (float64, error) {
	if err := validateRatioInput(kappa, tau, sigma); err != nil {
		return 0, err
	}
	d1, d2 := d1d2(1, kappa, tau, r, sigma)
	return NormCDF(d1) - kappa*math.Exp(-r*tau)*NormCDF(d2), nil
}

// PutRatio 看跌期权价格与标的价格之比 P/S，kappa 为 K/S
func PutRatio(kappa, tau, r, sigma float64) (float64, error) {
	if err := validateRatioInput(kappa, tau, sigma); err != nil {
		return 0, err
	}
	d1, d2 := d1d2(1, kappa, tau, r, sigma)
	return kappa*math.Exp(-r*tau)*NormCDF(-d2) - NormCDF(-d1), nil
}

func validateRatioInput(kappa, tau, sigma float64) error {
	return OptionSpec{Spot: 1, Strike: kappa, Maturity: tau, Volatility: sigma}.Validate()
}

// BlackScholesGreeks 计算欧式期权的希腊字母
func BlackScholesGreeks(spec OptionSpec) (Greeks, error) {
	if err := spec.Validate(); err != nil {
		return Greeks{}, err
	}
	S, K, T, r, sigma := spec.Spot, spec.Strike, spec.Maturity, spec.Rate, spec.Volatility
	d1, d2 := d1d2(S, K, T, r, sigma)
	df := math.Exp(-r * T)
	sqrtT := math.Sqrt(T)
	pdf := NormPDF(d1)

	g := Greeks{
		Gamma: pdf / (S * sigma * sqrtT),
		Vega:  S * pdf * sqrtT,
	}
	if spec.Side == Call {
		g.Delta = NormCDF(d1)
		g.Theta = -S*pdf*sigma/(2*sqrtT) - r*K*df*NormCDF(d2)
		g.Rho = K * T * df * NormCDF(d2)
	} else {
		g.Delta = NormCDF(d1) - 1
		g.Theta = -S*pdf*sigma/(2*sqrtT) + r*K*df*NormCDF(-d2)
		g.Rho = -K * T * df * NormCDF(-d2)
	}
	for _, v := range []float64{g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho} {
		if err := checkFinite("greek", v); err != nil {
			return Greeks{}, fmt.Errorf("black-scholes greeks: %w", err)
		}
	}
	return g, nil
}
