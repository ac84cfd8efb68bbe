package finance

import (
	"errors"
	"fmt"
	"math"
)

// 定价失败均为输入决定的确定性错误，重试无意义。
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDegenerateLattice = errors.New("degenerate lattice parameters")
	ErrNumericOverflow   = errors.New("numeric overflow")
)

// checkFinite 结果出现 NaN/Inf 时返回 ErrNumericOverflow
func checkFinite(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s is %v", ErrNumericOverflow, what, v)
	}
	return nil
}

func validateResolution(name string, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %s must be >= 1, got %d", ErrInvalidInput, name, n)
	}
	return nil
}
