package finance

import "math"

// NormCDF 标准正态分布累积分布函数
func NormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// NormPDF 标准正态分布概率密度函数
func NormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// peizerPratt Peizer-Pratt 第二种反演公式，把正态分位 z 映射为 n 步二项分布的概率。
// n 必须为奇数。
func peizerPratt(z float64, n int) float64 {
	fn := float64(n)
	t := z / (fn + 1.0/3.0 + 0.1/(fn+1))
	root := math.Sqrt(0.25 - 0.25*math.Exp(-t*t*(fn+1.0/6.0)))
	if z < 0 {
		return 0.5 - root
	}
	return 0.5 + root
}
