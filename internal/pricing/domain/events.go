package domain

import "time"

const (
	OptionPricedEventType          = "OptionPriced"
	PricingErrorEventType          = "PricingError"
	BatchPricingCompletedEventType = "BatchPricingCompleted"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	RequestID       string        `json:"request_id"`
	Symbol          string        `json:"symbol"`
	OptionType      OptionType    `json:"option_type"`
	ExerciseStyle   ExerciseStyle `json:"exercise_style"`
	StrikePrice     float64       `json:"strike_price"`
	Maturity        float64       `json:"maturity"`
	OptionPrice     string        `json:"option_price"`
	StdErr          float64       `json:"std_err"`
	UnderlyingPrice float64       `json:"underlying_price"`
	Volatility      float64       `json:"volatility"`
	RiskFreeRate    float64       `json:"risk_free_rate"`
	PricingModel    PricingModel  `json:"pricing_model"`
	Resolution      int           `json:"resolution"`
	CalculatedAt    int64         `json:"calculated_at"`
	OccurredOn      time.Time     `json:"occurred_on"`
}

// PricingErrorEvent 定价错误事件
type PricingErrorEvent struct {
	RequestID    string       `json:"request_id"`
	Symbol       string       `json:"symbol"`
	OptionType   OptionType   `json:"option_type"`
	StrikePrice  float64      `json:"strike_price"`
	Maturity     float64      `json:"maturity"`
	PricingModel PricingModel `json:"pricing_model"`
	Error        string       `json:"error"`
	ErrorCode    string       `json:"error_code"`
	OccurredAt   int64        `json:"occurred_at"`
	OccurredOn   time.Time    `json:"occurred_on"`
}

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	BatchID        string    `json:"batch_id"`
	Symbols        []string  `json:"symbols"`
	TotalContracts int       `json:"total_contracts"`
	SuccessCount   int       `json:"success_count"`
	FailureCount   int       `json:"failure_count"`
	AverageTime    float64   `json:"average_time"`
	CompletedAt    int64     `json:"completed_at"`
	OccurredOn     time.Time `json:"occurred_on"`
}
