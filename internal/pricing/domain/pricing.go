// Package domain 定价服务的领域模型
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/pkg/algorithm/finance"
)

var (
	// ErrInvalidContract 合约字段缺失或非法
	ErrInvalidContract = errors.New("invalid option contract")
	// ErrResultNotFound 无定价记录
	ErrResultNotFound = errors.New("pricing result not found")
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// ParseOptionType 大小写不敏感
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToUpper(strings.TrimSpace(s))) {
	case OptionTypeCall:
		return OptionTypeCall, nil
	case OptionTypePut:
		return OptionTypePut, nil
	}
	return "", fmt.Errorf("%w: unknown option type %q", ErrInvalidContract, s)
}

// Side 对应的引擎方向
func (t OptionType) Side() finance.Side {
	if t == OptionTypePut {
		return finance.Put
	}
	return finance.Call
}

// ExerciseStyle 行权方式
type ExerciseStyle string

const (
	ExerciseEuropean ExerciseStyle = "EUROPEAN"
	ExerciseAmerican ExerciseStyle = "AMERICAN"
)

// ParseExerciseStyle 空串视为欧式
func ParseExerciseStyle(s string) (ExerciseStyle, error) {
	switch ExerciseStyle(strings.ToUpper(strings.TrimSpace(s))) {
	case "", ExerciseEuropean:
		return ExerciseEuropean, nil
	case ExerciseAmerican:
		return ExerciseAmerican, nil
	}
	return "", fmt.Errorf("%w: unknown exercise style %q", ErrInvalidContract, s)
}

// Exercise 对应的引擎行权方式
func (e ExerciseStyle) Exercise() finance.Exercise {
	if e == ExerciseAmerican {
		return finance.American
	}
	return finance.European
}

// PricingModel 定价模型，取值与 finance.Method 的名称一致
type PricingModel string

const (
	ModelBlackScholes       PricingModel = "BLACK_SCHOLES"
	ModelBinomialAdHoc      PricingModel = "BINOMIAL_ADHOC"
	ModelBinomialCRR        PricingModel = "BINOMIAL_CRR"
	ModelBinomialTian       PricingModel = "BINOMIAL_TIAN"
	ModelBinomialTrigeorgis PricingModel = "BINOMIAL_TRIGEORGIS"
	ModelBinomialJR         PricingModel = "BINOMIAL_JR"
	ModelBinomialJKY        PricingModel = "BINOMIAL_JKY"
	ModelBinomialLR         PricingModel = "BINOMIAL_LR"
	ModelMonteCarlo         PricingModel = "MONTE_CARLO"
)

// ParsePricingModel 接受 finance.ParseMethod 支持的全部别名
func ParsePricingModel(s string) (PricingModel, error) {
	m, err := finance.ParseMethod(s)
	if err != nil {
		return "", err
	}
	return PricingModel(m.String()), nil
}

// Method 对应的引擎方法
func (m PricingModel) Method() (finance.Method, error) {
	return finance.ParseMethod(string(m))
}

// OptionContract 期权合约
type OptionContract struct {
	Symbol        string        `json:"symbol"`
	Type          OptionType    `json:"type"`
	ExerciseStyle ExerciseStyle `json:"exercise_style"`
	StrikePrice   float64       `json:"strike_price"`
	// 剩余期限，单位须与利率、波动率一致
	Maturity float64 `json:"maturity"`
}

// MarketInputs 定价所需的市场参数
type MarketInputs struct {
	UnderlyingPrice float64 `json:"underlying_price"`
	Volatility      float64 `json:"volatility"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
}

// Spec 组装引擎输入，数值域由引擎校验
func (c OptionContract) Spec(m MarketInputs) (finance.OptionSpec, error) {
	if strings.TrimSpace(c.Symbol) == "" {
		return finance.OptionSpec{}, fmt.Errorf("%w: symbol is required", ErrInvalidContract)
	}
	return finance.OptionSpec{
		Spot:       m.UnderlyingPrice,
		Strike:     c.StrikePrice,
		Maturity:   c.Maturity,
		Rate:       m.RiskFreeRate,
		Volatility: m.Volatility,
		Side:       c.Type.Side(),
		Exercise:   c.ExerciseStyle.Exercise(),
	}, nil
}

// Greeks 希腊字母
type Greeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// NewGreeks 由引擎浮点结果构造
func NewGreeks(g finance.Greeks) Greeks {
	return Greeks{
		Delta: decimal.NewFromFloat(g.Delta),
		Gamma: decimal.NewFromFloat(g.Gamma),
		Theta: decimal.NewFromFloat(g.Theta),
		Vega:  decimal.NewFromFloat(g.Vega),
		Rho:   decimal.NewFromFloat(g.Rho),
	}
}

// PricingResult 定价结果实体
type PricingResult struct {
	ID              uint            `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	RequestID       string          `json:"request_id"`
	Symbol          string          `json:"symbol"`
	OptionType      OptionType      `json:"option_type"`
	ExerciseStyle   ExerciseStyle   `json:"exercise_style"`
	PricingModel    PricingModel    `json:"pricing_model"`
	StrikePrice     decimal.Decimal `json:"strike_price"`
	UnderlyingPrice decimal.Decimal `json:"underlying_price"`
	Maturity        float64         `json:"maturity"`
	Volatility      float64         `json:"volatility"`
	RiskFreeRate    float64         `json:"risk_free_rate"`
	// 树深度或对偶路径对数，解析解为 0
	Resolution  int             `json:"resolution"`
	OptionPrice decimal.Decimal `json:"option_price"`
	// 蒙特卡洛标准误，其余模型为 0
	StdErr float64 `json:"std_err"`
	Greeks
	ElapsedMicros int64 `json:"elapsed_micros"`
	CalculatedAt  int64 `json:"calculated_at"`
}
