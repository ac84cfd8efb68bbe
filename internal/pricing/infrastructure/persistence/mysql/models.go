package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PricingResultModel 定价结果数据库模型
type PricingResultModel struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
	RequestID       string    `gorm:"column:request_id;type:varchar(64);uniqueIndex"`
	Symbol          string    `gorm:"column:symbol;type:varchar(32);index:idx_symbol_calc,priority:1;not null"`
	OptionType      string    `gorm:"column:option_type;type:varchar(8);not null"`
	ExerciseStyle   string    `gorm:"column:exercise_style;type:varchar(16);not null"`
	PricingModel    string    `gorm:"column:pricing_model;type:varchar(32)"`
	StrikePrice     string    `gorm:"column:strike_price;type:decimal(32,18);not null"`
	UnderlyingPrice string    `gorm:"column:underlying_price;type:decimal(32,18);not null"`
	Maturity        float64   `gorm:"column:maturity;not null"`
	Volatility      float64   `gorm:"column:volatility;not null"`
	RiskFreeRate    float64   `gorm:"column:risk_free_rate;not null"`
	Resolution      int       `gorm:"column:resolution"`
	OptionPrice     string    `gorm:"column:option_price;type:decimal(32,18);not null"`
	StdErr          float64   `gorm:"column:std_err"`
	Delta           string    `gorm:"column:delta;type:decimal(32,18)"`
	Gamma           string    `gorm:"column:gamma;type:decimal(32,18)"`
	Theta           string    `gorm:"column:theta;type:decimal(32,18)"`
	Vega            string    `gorm:"column:vega;type:decimal(32,18)"`
	Rho             string    `gorm:"column:rho;type:decimal(32,18)"`
	ElapsedMicros   int64     `gorm:"column:elapsed_micros"`
	CalculatedAt    int64     `gorm:"column:calculated_at;type:bigint;index:idx_symbol_calc,priority:2;not null"`
}

func (PricingResultModel) TableName() string { return "pricing_results" }

// Models 需要迁移的表
func Models() []any {
	return []any{&PricingResultModel{}}
}

func toPricingResultModel(res *domain.PricingResult) *PricingResultModel {
	if res == nil {
		return nil
	}
	return &PricingResultModel{
		ID:              res.ID,
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
		RequestID:       res.RequestID,
		Symbol:          res.Symbol,
		OptionType:      string(res.OptionType),
		ExerciseStyle:   string(res.ExerciseStyle),
		PricingModel:    string(res.PricingModel),
		StrikePrice:     res.StrikePrice.String(),
		UnderlyingPrice: res.UnderlyingPrice.String(),
		Maturity:        res.Maturity,
		Volatility:      res.Volatility,
		RiskFreeRate:    res.RiskFreeRate,
		Resolution:      res.Resolution,
		OptionPrice:     res.OptionPrice.String(),
		StdErr:          res.StdErr,
		Delta:           res.Delta.String(),
		Gamma:           res.Gamma.String(),
		Theta:           res.Theta.String(),
		Vega:            res.Vega.String(),
		Rho:             res.Rho.String(),
		ElapsedMicros:   res.ElapsedMicros,
		CalculatedAt:    res.CalculatedAt,
	}
}

func toPricingResult(m *PricingResultModel) *domain.PricingResult {
	if m == nil {
		return nil
	}
	dec := func(s string) decimal.Decimal {
		d, _ := decimal.NewFromString(s)
		return d
	}
	return &domain.PricingResult{
		ID:              m.ID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		RequestID:       m.RequestID,
		Symbol:          m.Symbol,
		OptionType:      domain.OptionType(m.OptionType),
		ExerciseStyle:   domain.ExerciseStyle(m.ExerciseStyle),
		PricingModel:    domain.PricingModel(m.PricingModel),
		StrikePrice:     dec(m.StrikePrice),
		UnderlyingPrice: dec(m.UnderlyingPrice),
		Maturity:        m.Maturity,
		Volatility:      m.Volatility,
		RiskFreeRate:    m.RiskFreeRate,
		Resolution:      m.Resolution,
		OptionPrice:     dec(m.OptionPrice),
		StdErr:          m.StdErr,
		Greeks: domain.Greeks{
			Delta: dec(m.Delta),
			Gamma: dec(m.Gamma),
			Theta: dec(m.Theta),
			Vega:  dec(m.Vega),
			Rho:   dec(m.Rho),
		},
		ElapsedMicros: m.ElapsedMicros,
		CalculatedAt:  m.CalculatedAt,
	}
}
