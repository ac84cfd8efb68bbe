package application

import (
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// ContractInput 合约与市场参数，命令与查询共用
type ContractInput struct {
	Symbol          string
	OptionType      string
	ExerciseStyle   string
	StrikePrice     float64
	Maturity        float64
	UnderlyingPrice float64
	Volatility      float64
	RiskFreeRate    float64
}

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	ContractInput
	RequestID    string
	PricingModel string
	// 树深度或对偶路径对数，0 表示使用默认值
	Resolution int
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string
	Contracts []PriceOptionCommand
}

// BatchFailure 批量中的单项失败
type BatchFailure struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// BatchPricingResult 批量定价结果，Results 与 Failures 均按提交顺序排列
type BatchPricingResult struct {
	BatchID      string                  `json:"batch_id"`
	Results      []*domain.PricingResult `json:"results"`
	Failures     []BatchFailure          `json:"failures"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	// 平均单笔耗时（秒）
	AverageTime float64 `json:"average_time"`
}

// CompareMethodsQuery 同一合约上比较多个模型
type CompareMethodsQuery struct {
	ContractInput
	// 为空时比较全部模型
	PricingModels   []string
	LatticeSteps    int
	MonteCarloPaths int
}

// MethodComparison 单个模型的比较结果
type MethodComparison struct {
	PricingModel domain.PricingModel `json:"pricing_model"`
	Price        float64             `json:"price"`
	StdErr       float64             `json:"std_err"`
	Resolution   int                 `json:"resolution"`
	Elapsed      time.Duration       `json:"elapsed"`
	// 相对 Black-Scholes 欧式基准的偏差
	Deviation float64 `json:"deviation"`
	Error     string  `json:"error,omitempty"`
}

// CompareMethodsResult 比较结果，Rows 与请求的模型顺序一致
type CompareMethodsResult struct {
	Benchmark float64            `json:"benchmark"`
	Rows      []MethodComparison `json:"rows"`
}

// ConvergenceQuery 收敛性研究
type ConvergenceQuery struct {
	ContractInput
	PricingModel string
	Resolutions  []int
	// 蒙特卡洛每个分辨率重复运行的次数，每次使用不同种子
	Runs int
}

// ConvergencePoint 某一分辨率下的结果
type ConvergencePoint struct {
	Resolution int     `json:"resolution"`
	Price      float64 `json:"price"`
	// Price 与基准之差
	Error float64 `json:"error"`
	// 蒙特卡洛重复运行的离散程度，二叉树为 0
	StdDev  float64       `json:"std_dev"`
	Elapsed time.Duration `json:"elapsed"`
}

// ConvergenceResult 收敛性研究结果
type ConvergenceResult struct {
	PricingModel domain.PricingModel `json:"pricing_model"`
	Benchmark    float64             `json:"benchmark"`
	Points       []ConvergencePoint  `json:"points"`
	// 各点绝对误差的均值与最大值
	MeanAbsError float64 `json:"mean_abs_error"`
	MaxAbsError  float64 `json:"max_abs_error"`
}

// GreeksQuery 希腊字母查询
type GreeksQuery struct {
	ContractInput
	PricingModel string
	Resolution   int
}

// GreeksResult 希腊字母结果
type GreeksResult struct {
	PricingModel domain.PricingModel `json:"pricing_model"`
	// analytic 或 finite_difference
	Approach string        `json:"approach"`
	Greeks   domain.Greeks `json:"greeks"`
}

// EstimateVolatilityQuery 波动率估计
type EstimateVolatilityQuery struct {
	// close_to_close、parkinson 或 garman_klass
	Estimator      string
	Opens          []float64
	Highs          []float64
	Lows           []float64
	Closes         []float64
	Window         int
	PeriodsPerYear float64
}

// VolatilityEstimate 滚动波动率序列
type VolatilityEstimate struct {
	Estimator string    `json:"estimator"`
	Series    []float64 `json:"series"`
	Latest    float64   `json:"latest"`
	Mean      float64   `json:"mean"`
}
