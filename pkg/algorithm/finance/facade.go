package finance

import (
	"fmt"
	"strings"
)

// Method 定价方法：解析解、七种二叉树方案或蒙特卡洛
type Method int

const (
	MethodBlackScholes Method = iota
	MethodAdHoc
	MethodCRR
	MethodTian
	MethodTrigeorgis
	MethodJarrowRudd
	MethodJKY
	MethodLeisenReimer
	MethodMonteCarlo
)

var methodSchemes = map[Method]Scheme{
	MethodAdHoc:        AdHoc,
	MethodCRR:          CRR,
	MethodTian:         Tian,
	MethodTrigeorgis:   Trigeorgis,
	MethodJarrowRudd:   JarrowRudd,
	MethodJKY:          JKY,
	MethodLeisenReimer: LeisenReimer,
}

// Methods 返回全部定价方法，顺序固定
func Methods() []Method {
	return []Method{
		MethodBlackScholes,
		MethodAdHoc, MethodCRR, MethodTian, MethodTrigeorgis, MethodJarrowRudd, MethodJKY, MethodLeisenReimer,
		MethodMonteCarlo,
	}
}

// MethodForScheme 二叉树方案对应的定价方法
func MethodForScheme(s Scheme) (Method, bool) {
	for m, scheme := range methodSchemes {
		if scheme == s {
			return m, true
		}
	}
	return 0, false
}

// Scheme 方法对应的二叉树方案，非二叉树方法返回 false
func (m Method) Scheme() (Scheme, bool) {
	s, ok := methodSchemes[m]
	return s, ok
}

func (m Method) String() string {
	switch m {
	case MethodBlackScholes:
		return "BLACK_SCHOLES"
	case MethodMonteCarlo:
		return "MONTE_CARLO"
	}
	if s, ok := m.Scheme(); ok {
		return "BINOMIAL_" + s.String()
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// SupportsEarlyExercise 方法能否为美式合约定价
func (m Method) SupportsEarlyExercise() bool {
	s, ok := m.Scheme()
	return ok && s.SupportsEarlyExercise()
}

// ParseMethod 解析方法名，接受 BLACK_SCHOLES/BS、MONTE_CARLO/MC、BINOMIAL_<方案> 或方案名本身
func ParseMethod(name string) (Method, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "BLACK_SCHOLES", "BLACKSCHOLES", "BS":
		return MethodBlackScholes, nil
	case "MONTE_CARLO", "MONTECARLO", "MC":
		return MethodMonteCarlo, nil
	}
	s, err := ParseScheme(strings.TrimPrefix(n, "BINOMIAL_"))
	if err != nil {
		return 0, fmt.Errorf("%w: unknown pricing method %q", ErrInvalidInput, name)
	}
	m, _ := MethodForScheme(s)
	return m, nil
}

// Quote 一次定价的完整结果。Resolution 为实际使用的树深度或对偶对数量。
type Quote struct {
	Price      float64
	StdErr     float64
	Resolution int
}

// Pricer 按方法分派到各引擎，本身不持有可变状态
type Pricer struct {
	lattice   *LatticeEngine
	simulator *MonteCarloSimulator
}

// NewPricer 创建分派器，simulator 为 nil 时使用默认种子与分片数
func NewPricer(simulator *MonteCarloSimulator) *Pricer {
	if simulator == nil {
		simulator = NewMonteCarloSimulator(DefaultSeed, DefaultPartitions)
	}
	return &Pricer{lattice: NewLatticeEngine(), simulator: simulator}
}

var defaultPricer = NewPricer(nil)

// Evaluate 校验输入后分派。resolution 对二叉树为深度，对蒙特卡洛为对偶对数量，解析解忽略。
func (p *Pricer) Evaluate(method Method, spec OptionSpec, resolution int) (Quote, error) {
	if err := spec.Validate(); err != nil {
		return Quote{}, err
	}
	if method != MethodBlackScholes {
		if err := validateResolution("resolution", resolution); err != nil {
			return Quote{}, err
		}
	}

	switch method {
	case MethodBlackScholes:
		if spec.Exercise == American {
			return Quote{}, fmt.Errorf("%w: closed form prices european exercise only", ErrInvalidInput)
		}
		price, err := BlackScholes(spec)
		if err != nil {
			return Quote{}, err
		}
		return Quote{Price: price}, nil

	case MethodMonteCarlo:
		res, err := p.simulator.Simulate(spec, resolution)
		if err != nil {
			return Quote{}, err
		}
		return Quote{Price: res.Price, StdErr: res.StdErr, Resolution: res.Pairs}, nil
	}

	scheme, ok := method.Scheme()
	if !ok {
		return Quote{}, fmt.Errorf("%w: unknown pricing method %v", ErrInvalidInput, method)
	}
	price, err := p.lattice.Price(spec, scheme, resolution)
	if err != nil {
		return Quote{}, err
	}
	depth := resolution
	if scheme == LeisenReimer && depth%2 == 0 {
		depth++
	}
	return Quote{Price: price, Resolution: depth}, nil
}

// Price 统一签名的分派入口
func Price(method Method, side Side, exercise Exercise, spot, maturity, strike, rate, vol float64, resolution int) (float64, error) {
	q, err := defaultPricer.Evaluate(method, OptionSpec{
		Spot:       spot,
		Strike:     strike,
		Maturity:   maturity,
		Rate:       rate,
		Volatility: vol,
		Side:       side,
		Exercise:   exercise,
	}, resolution)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// PriceAmericanCall 美式看涨，AdHoc 二叉树
func PriceAmericanCall(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodAdHoc, Call, American, spot, maturity, strike, rate, vol, depth)
}

// PriceAmericanPut 美式看跌，AdHoc 二叉树
func PriceAmericanPut(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodAdHoc, Put, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanCallTian(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodTian, Call, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanPutTian(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodTian, Put, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanCallCRR(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodCRR, Call, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanPutCRR(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodCRR, Put, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanCallTrig(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodTrigeorgis, Call, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanPutTrig(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodTrigeorgis, Put, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanCallJR(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodJarrowRudd, Call, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanPutJR(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodJarrowRudd, Put, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanCallJKY(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodJKY, Call, American, spot, maturity, strike, rate, vol, depth)
}

func PriceAmericanPutJKY(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodJKY, Put, American, spot, maturity, strike, rate, vol, depth)
}

// PriceEuropeanCallLR 欧式看涨，Leisen-Reimer 二叉树
func PriceEuropeanCallLR(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodLeisenReimer, Call, European, spot, maturity, strike, rate, vol, depth)
}

// PriceEuropeanPutLR 欧式看跌，Leisen-Reimer 二叉树
func PriceEuropeanPutLR(spot, maturity, strike, rate, vol float64, depth int) (float64, error) {
	return Price(MethodLeisenReimer, Put, European, spot, maturity, strike, rate, vol, depth)
}

// PriceVanillaEuCall 欧式看涨，对偶变量蒙特卡洛，默认种子
func PriceVanillaEuCall(spot, maturity, strike, rate, vol float64, samples int) (float64, error) {
	return Price(MethodMonteCarlo, Call, European, spot, maturity, strike, rate, vol, samples)
}

// PriceVanillaEuPut 欧式看跌，对偶变量蒙特卡洛，默认种子
func PriceVanillaEuPut(spot, maturity, strike, rate, vol float64, samples int) (float64, error) {
	return Price(MethodMonteCarlo, Put, European, spot, maturity, strike, rate, vol, samples)
}

// BlackScholesEuCall 欧式看涨解析价
func BlackScholesEuCall(spot, maturity, strike, rate, vol float64) (float64, error) {
	return Price(MethodBlackScholes, Call, European, spot, maturity, strike, rate, vol, 0)
}

// BlackScholesEuPut 欧式看跌解析价
func BlackScholesEuPut(spot, maturity, strike, rate, vol float64) (float64, error) {
	return Price(MethodBlackScholes, Put, European, spot, maturity, strike, rate, vol, 0)
}
