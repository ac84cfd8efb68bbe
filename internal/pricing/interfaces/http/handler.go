package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/algorithm/finance"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/pkg/response"
)

// PricingHandler HTTP 处理器
// 负责处理与定价相关的 HTTP 请求
type PricingHandler struct {
	cmd   *application.PricingCommandService
	query *application.PricingQueryService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(cmd *application.PricingCommandService, query *application.PricingQueryService) *PricingHandler {
	return &PricingHandler{cmd: cmd, query: query}
}

// RegisterRoutes 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/batch", h.BatchPriceOptions)
		api.POST("/option/compare", h.CompareMethods)
		api.POST("/option/convergence", h.ConvergenceStudy)
		api.POST("/option/greeks", h.GetGreeks)
		api.POST("/volatility/estimate", h.EstimateVolatility)
		api.GET("/results/:symbol", h.GetLatestResult)
		api.GET("/results/:symbol/history", h.GetHistory)
	}
}

// ContractRequest 期权合约与市场参数，数值域由定价引擎校验
type ContractRequest struct {
	Symbol          string  `json:"symbol" binding:"required"`
	OptionType      string  `json:"option_type" binding:"required"`
	ExerciseStyle   string  `json:"exercise_style"`
	StrikePrice     float64 `json:"strike_price"`
	Maturity        float64 `json:"maturity"`
	UnderlyingPrice float64 `json:"underlying_price"`
	Volatility      float64 `json:"volatility"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
}

func (r ContractRequest) input() application.ContractInput {
	return application.ContractInput{
		Symbol:          r.Symbol,
		OptionType:      r.OptionType,
		ExerciseStyle:   r.ExerciseStyle,
		StrikePrice:     r.StrikePrice,
		Maturity:        r.Maturity,
		UnderlyingPrice: r.UnderlyingPrice,
		Volatility:      r.Volatility,
		RiskFreeRate:    r.RiskFreeRate,
	}
}

// PricingRequest 定价请求
type PricingRequest struct {
	ContractRequest
	RequestID    string `json:"request_id"`
	PricingModel string `json:"pricing_model"`
	Resolution   int    `json:"resolution" binding:"gte=0"`
}

func (r PricingRequest) command() application.PriceOptionCommand {
	return application.PriceOptionCommand{
		ContractInput: r.input(),
		RequestID:     r.RequestID,
		PricingModel:  r.PricingModel,
		Resolution:    r.Resolution,
	}
}

// BatchPricingRequest 批量定价请求
type BatchPricingRequest struct {
	BatchID   string           `json:"batch_id"`
	Contracts []PricingRequest `json:"contracts" binding:"required,min=1,max=1000,dive"`
}

// CompareRequest 模型比较请求
type CompareRequest struct {
	ContractRequest
	PricingModels   []string `json:"pricing_models"`
	LatticeSteps    int      `json:"lattice_steps" binding:"gte=0"`
	MonteCarloPaths int      `json:"monte_carlo_paths" binding:"gte=0"`
}

// ConvergenceRequest 收敛性研究请求
type ConvergenceRequest struct {
	ContractRequest
	PricingModel string `json:"pricing_model" binding:"required"`
	Resolutions  []int  `json:"resolutions" binding:"required,min=1,max=64"`
	Runs         int    `json:"runs" binding:"gte=0,lte=100"`
}

// VolatilityRequest 波动率估计请求
type VolatilityRequest struct {
	Estimator      string    `json:"estimator"`
	Opens          []float64 `json:"opens"`
	Highs          []float64 `json:"highs"`
	Lows           []float64 `json:"lows"`
	Closes         []float64 `json:"closes"`
	Window         int       `json:"window" binding:"required,gt=1"`
	PeriodsPerYear float64   `json:"periods_per_year"`
}

// PriceOption 期权定价
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.cmd.PriceOption(c.Request.Context(), req.command())
	if err != nil {
		h.fail(c, "Failed to calculate option price", err)
		return
	}
	response.Success(c, result)
}

// BatchPriceOptions 批量定价，单项失败在结果中返回
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var req BatchPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	cmd := application.BatchPriceOptionsCommand{
		BatchID:   req.BatchID,
		Contracts: make([]application.PriceOptionCommand, len(req.Contracts)),
	}
	for i, r := range req.Contracts {
		cmd.Contracts[i] = r.command()
	}
	result, err := h.cmd.BatchPriceOptions(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "Failed to price batch", err)
		return
	}
	response.Success(c, result)
}

// CompareMethods 多模型比较
func (h *PricingHandler) CompareMethods(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.query.CompareMethods(c.Request.Context(), application.CompareMethodsQuery{
		ContractInput:   req.input(),
		PricingModels:   req.PricingModels,
		LatticeSteps:    req.LatticeSteps,
		MonteCarloPaths: req.MonteCarloPaths,
	})
	if err != nil {
		h.fail(c, "Failed to compare pricing methods", err)
		return
	}
	response.Success(c, result)
}

// ConvergenceStudy 收敛性研究
func (h *PricingHandler) ConvergenceStudy(c *gin.Context) {
	var req ConvergenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.query.ConvergenceStudy(c.Request.Context(), application.ConvergenceQuery{
		ContractInput: req.input(),
		PricingModel:  req.PricingModel,
		Resolutions:   req.Resolutions,
		Runs:          req.Runs,
	})
	if err != nil {
		h.fail(c, "Failed to run convergence study", err)
		return
	}
	response.Success(c, result)
}

// GetGreeks 获取希腊字母
func (h *PricingHandler) GetGreeks(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	greeks, err := h.query.GetGreeks(c.Request.Context(), application.GreeksQuery{
		ContractInput: req.input(),
		PricingModel:  req.PricingModel,
		Resolution:    req.Resolution,
	})
	if err != nil {
		h.fail(c, "Failed to calculate Greeks", err)
		return
	}
	response.Success(c, gin.H{
		"greeks":           greeks,
		"calculation_time": time.Now(),
	})
}

// EstimateVolatility 滚动波动率估计
func (h *PricingHandler) EstimateVolatility(c *gin.Context) {
	var req VolatilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, err := h.query.EstimateVolatility(c.Request.Context(), application.EstimateVolatilityQuery{
		Estimator:      req.Estimator,
		Opens:          req.Opens,
		Highs:          req.Highs,
		Lows:           req.Lows,
		Closes:         req.Closes,
		Window:         req.Window,
		PeriodsPerYear: req.PeriodsPerYear,
	})
	if err != nil {
		h.fail(c, "Failed to estimate volatility", err)
		return
	}
	response.Success(c, result)
}

// GetLatestResult 最新定价结果
func (h *PricingHandler) GetLatestResult(c *gin.Context) {
	result, err := h.query.GetLatestResult(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.fail(c, "Failed to load pricing result", err)
		return
	}
	response.Success(c, result)
}

// GetHistory 定价历史，?limit= 默认 20
func (h *PricingHandler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "limit must be an integer", "")
			return
		}
		limit = n
	}

	results, err := h.query.GetHistory(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		h.fail(c, "Failed to load pricing history", err)
		return
	}
	response.Success(c, gin.H{
		"symbol":  c.Param("symbol"),
		"results": results,
	})
}

func (h *PricingHandler) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, "error", err)
	} else {
		logger.Debug(c.Request.Context(), msg, "error", err)
	}
	response.ErrorWithStatus(c, status, err.Error(), "")
}

// statusFor 领域错误到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, finance.ErrInvalidInput), errors.Is(err, domain.ErrInvalidContract):
		return http.StatusBadRequest
	case errors.Is(err, finance.ErrDegenerateLattice), errors.Is(err, finance.ErrNumericOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
