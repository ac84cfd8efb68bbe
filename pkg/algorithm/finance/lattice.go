package finance

import (
	"fmt"
	"math"
)

// LatticeEngine 重组二叉树定价引擎，无状态，可并发调用。
// 每次调用分配两块长度 N+1 的缓冲区（期权价值、节点标的价格），逐层原地覆盖，
// 时间 O(N²)，空间 O(N)。
type LatticeEngine struct{}

// NewLatticeEngine 创建二叉树定价引擎
func NewLatticeEngine() *LatticeEngine {
	return &LatticeEngine{}
}

// Price 以指定方案和深度为期权定价。
// Leisen-Reimer 只支持欧式，深度为偶数时自动取下一个奇数。
func (e *LatticeEngine) Price(spec OptionSpec, scheme Scheme, depth int) (float64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if err := validateResolution("lattice depth", depth); err != nil {
		return 0, err
	}
	if spec.Exercise == American && !scheme.SupportsEarlyExercise() {
		return 0, fmt.Errorf("%w: scheme %s cannot price early exercise", ErrInvalidInput, scheme)
	}

	steps := depth
	if scheme == LeisenReimer && steps%2 == 0 {
		steps++
	}
	lp, err := Parameterize(scheme, LatticeInput{
		Volatility: spec.Volatility,
		Rate:       spec.Rate,
		Dt:         spec.Maturity / float64(steps),
		Steps:      steps,
		Spot:       spec.Spot,
		Strike:     spec.Strike,
	})
	if err != nil {
		return 0, err
	}
	return BackwardInduction(spec, lp, steps)
}

// BackwardInduction 用给定的单步参数构建 steps 层的树并逆向归纳到根节点。
// 美式合约在每个节点比较延续价值与立即行权价值取较大者。
func BackwardInduction(spec OptionSpec, lp LatticeParameters, steps int) (float64, error) {
	if err := validateResolution("lattice depth", steps); err != nil {
		return 0, err
	}
	if err := lp.Validate(); err != nil {
		return 0, err
	}
	if !isFinite(spec.Spot) || spec.Spot <= 0 || !isFinite(spec.Strike) || spec.Strike <= 0 {
		return 0, fmt.Errorf("%w: spot and strike must be positive", ErrInvalidInput)
	}

	values := make([]float64, steps+1)
	spots := make([]float64, steps+1)

	// 终端层在对数空间计算，避免 u^i 溢出
	logSpot := math.Log(spec.Spot)
	logUp := math.Log(lp.Up)
	logDown := math.Log(lp.Down)
	for i := 0; i <= steps; i++ {
		spots[i] = math.Exp(logSpot + float64(i)*logUp + float64(steps-i)*logDown)
		values[i] = intrinsic(spec.Side, spots[i], spec.Strike)
	}

	early := spec.Exercise == American
	pUp := lp.Discount * lp.Prob
	pDown := lp.Discount * (1 - lp.Prob)
	invDown := 1 / lp.Down

	// 第 k 层节点 i 的上涨子节点为 i+1，下跌子节点为 i；
	// 升序覆盖保证读取 values[i+1] 时仍是第 k+1 层的值。
	for k := steps - 1; k >= 0; k-- {
		for i := 0; i <= k; i++ {
			v := pUp*values[i+1] + pDown*values[i]
			if early {
				spots[i] *= invDown
				if ex := intrinsic(spec.Side, spots[i], spec.Strike); ex > v {
					v = ex
				}
			}
			values[i] = v
		}
	}

	if err := checkFinite("lattice price", values[0]); err != nil {
		return 0, err
	}
	return values[0], nil
}
