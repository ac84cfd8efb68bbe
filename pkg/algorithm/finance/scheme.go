package finance

import (
	"fmt"
	"math"
	"strings"
)

// Scheme 二叉树参数化方案。每个方案由 (σ, r, Δt) 推导出不同的 (u, d, p)，
// 离散化偏差以及 p 落在 [0,1] 内的条件各不相同。
type Scheme int

const (
	AdHoc        Scheme = iota // 教科书式：u=e^{σ√Δt}, d=1/u，p 由鞅条件精确求解
	CRR                        // Cox-Ross-Rubinstein：同 AdHoc 的 u/d，p 取 CRR 漂移修正形式
	Tian                       // 匹配对数正态前三阶矩
	Trigeorgis                 // 对数空间等概率 p=1/2 的变换步长
	JarrowRudd                 // 以漂移为中心，u/d 不互为倒数，p 匹配风险中性均值
	JKY                        // Jabbour-Kramin-Young：p=1/2，精确匹配对数正态均值与方差
	LeisenReimer               // Peizer-Pratt 反演，仅用于欧式，深度取奇数
)

var schemeNames = map[Scheme]string{
	AdHoc:        "ADHOC",
	CRR:          "CRR",
	Tian:         "TIAN",
	Trigeorgis:   "TRIGEORGIS",
	JarrowRudd:   "JR",
	JKY:          "JKY",
	LeisenReimer: "LR",
}

func (s Scheme) String() string {
	if name, ok := schemeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Scheme(%d)", int(s))
}

// Schemes 返回全部方案，顺序固定
func Schemes() []Scheme {
	return []Scheme{AdHoc, CRR, Tian, Trigeorgis, JarrowRudd, JKY, LeisenReimer}
}

// ParseScheme 按名称（不区分大小写）解析方案
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ADHOC", "BIN", "BINOMIAL":
		return AdHoc, nil
	case "CRR":
		return CRR, nil
	case "TIAN":
		return Tian, nil
	case "TRIGEORGIS", "TRIG":
		return Trigeorgis, nil
	case "JR", "JARROWRUDD", "JARROW_RUDD":
		return JarrowRudd, nil
	case "JKY":
		return JKY, nil
	case "LR", "LEISENREIMER", "LEISEN_REIMER":
		return LeisenReimer, nil
	}
	return 0, fmt.Errorf("%w: unknown lattice scheme %q", ErrInvalidInput, name)
}

// SupportsEarlyExercise 方案能否用于美式定价
func (s Scheme) SupportsEarlyExercise() bool {
	return s != LeisenReimer
}

// LatticeInput 参数化所需输入。Steps/Spot/Strike 仅 Leisen-Reimer 使用。
type LatticeInput struct {
	Volatility float64
	Rate       float64
	Dt         float64
	Steps      int
	Spot       float64
	Strike     float64
}

// LatticeParameters 单步上涨/下跌因子、风险中性上涨概率及单步贴现因子
type LatticeParameters struct {
	Up       float64
	Down     float64
	Prob     float64
	Discount float64
}

// Validate p 超出 [0,1] 或不满足 0<d<u 时返回 ErrDegenerateLattice，不做截断。
// 漂移居中的方案在 σ√Δt < rΔt 时 d ≥ 1 属正常，无套利条件由 p∈[0,1] 保证。
func (lp LatticeParameters) Validate() error {
	for _, v := range []float64{lp.Up, lp.Down, lp.Prob, lp.Discount} {
		if err := checkFinite("lattice parameter", v); err != nil {
			return err
		}
	}
	if lp.Prob < 0 || lp.Prob > 1 {
		return fmt.Errorf("%w: probability %v outside [0,1]", ErrDegenerateLattice, lp.Prob)
	}
	if lp.Down <= 0 || lp.Up <= lp.Down {
		return fmt.Errorf("%w: factors u=%v d=%v violate 0<d<u", ErrDegenerateLattice, lp.Up, lp.Down)
	}
	return nil
}

// Parameterize 按方案推导 (u, d, p) 与单步贴现因子，纯函数
func Parameterize(scheme Scheme, in LatticeInput) (LatticeParameters, error) {
	sigma, r, dt := in.Volatility, in.Rate, in.Dt
	if !isFinite(sigma) || sigma <= 0 {
		return LatticeParameters{}, fmt.Errorf("%w: volatility must be positive, got %v", ErrInvalidInput, sigma)
	}
	if !isFinite(dt) || dt <= 0 {
		return LatticeParameters{}, fmt.Errorf("%w: step size must be positive, got %v", ErrInvalidInput, dt)
	}
	if !isFinite(r) {
		return LatticeParameters{}, fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidInput, r)
	}

	growth := math.Exp(r * dt)
	nu := r - 0.5*sigma*sigma
	sqrtDt := math.Sqrt(dt)

	var lp LatticeParameters
	switch scheme {
	case AdHoc:
		lp.Up = math.Exp(sigma * sqrtDt)
		lp.Down = 1 / lp.Up
		lp.Prob = (growth - lp.Down) / (lp.Up - lp.Down)

	case CRR:
		lp.Up = math.Exp(sigma * sqrtDt)
		lp.Down = 1 / lp.Up
		lp.Prob = 0.5 + 0.5*nu*sqrtDt/sigma

	case Tian:
		v := math.Exp(sigma * sigma * dt)
		root := math.Sqrt(v*v + 2*v - 3)
		lp.Up = 0.5 * growth * v * (v + 1 + root)
		lp.Down = 0.5 * growth * v * (v + 1 - root)
		lp.Prob = (growth - lp.Down) / (lp.Up - lp.Down)

	case Trigeorgis:
		dx := math.Sqrt(sigma*sigma*dt + nu*nu*dt*dt)
		lp.Up = math.Exp(dx)
		lp.Down = 1 / lp.Up
		lp.Prob = 0.5 + 0.5*nu*dt/dx

	case JarrowRudd:
		lp.Up = math.Exp(nu*dt + sigma*sqrtDt)
		lp.Down = math.Exp(nu*dt - sigma*sqrtDt)
		lp.Prob = (growth - lp.Down) / (lp.Up - lp.Down)

	case JKY:
		spread := math.Sqrt(math.Exp(sigma*sigma*dt) - 1)
		lp.Up = growth * (1 + spread)
		lp.Down = growth * (1 - spread)
		lp.Prob = 0.5

	case LeisenReimer:
		if in.Steps < 1 || in.Steps%2 == 0 {
			return LatticeParameters{}, fmt.Errorf("%w: leisen-reimer needs an odd step count, got %d", ErrInvalidInput, in.Steps)
		}
		if !isFinite(in.Spot) || in.Spot <= 0 || !isFinite(in.Strike) || in.Strike <= 0 {
			return LatticeParameters{}, fmt.Errorf("%w: leisen-reimer needs positive spot and strike", ErrInvalidInput)
		}
		tau := dt * float64(in.Steps)
		volSqrtTau := sigma * math.Sqrt(tau)
		d1 := (math.Log(in.Spot/in.Strike) + (r+0.5*sigma*sigma)*tau) / volSqrtTau
		d2 := d1 - volSqrtTau
		lp.Prob = peizerPratt(d2, in.Steps)
		pStar := peizerPratt(d1, in.Steps)
		lp.Up = growth * pStar / lp.Prob
		lp.Down = (growth - lp.Prob*lp.Up) / (1 - lp.Prob)

	default:
		return LatticeParameters{}, fmt.Errorf("%w: unknown lattice scheme %v", ErrInvalidInput, scheme)
	}

	lp.Discount = 1 / growth
	if err := lp.Validate(); err != nil {
		return LatticeParameters{}, fmt.Errorf("%s: %w", scheme, err)
	}
	return lp, nil
}
