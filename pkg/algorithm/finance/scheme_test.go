package finance

import (
	"errors"
	"math"
	"testing"
)

func TestParameterize_Moments(t *testing.T) {
	in := LatticeInput{Volatility: 0.2, Rate: 0.05, Dt: 1.0 / 500, Steps: 501, Spot: 100, Strike: 100}
	growth := math.Exp(in.Rate * in.Dt)

	for _, s := range Schemes() {
		lp, err := Parameterize(s, in)
		if err != nil {
			t.Fatalf("%v: %v", s, err)
		}
		if !almostEqual(lp.Discount, 1/growth, 1e-15) {
			t.Fatalf("%v discount: got=%v", s, lp.Discount)
		}
		mean := lp.Prob*lp.Up + (1-lp.Prob)*lp.Down
		// CRR 与 Trigeorgis 只匹配对数漂移，均值误差为 O(Δt²)
		tol := 1e-12
		if s == CRR || s == Trigeorgis {
			tol = 1e-6
		}
		if !almostEqual(mean, growth, tol) {
			t.Fatalf("%v one-step mean: got=%v want=%v", s, mean, growth)
		}
	}
}

func TestParameterize_SchemeShapes(t *testing.T) {
	in := LatticeInput{Volatility: 0.3, Rate: 0.02, Dt: 0.01}

	for _, s := range []Scheme{AdHoc, CRR, Trigeorgis} {
		lp, err := Parameterize(s, in)
		if err != nil {
			t.Fatalf("%v: %v", s, err)
		}
		if !almostEqual(lp.Up*lp.Down, 1, 1e-14) {
			t.Fatalf("%v should be recombining around spot: u*d=%v", s, lp.Up*lp.Down)
		}
	}

	lp, _ := Parameterize(JKY, in)
	if lp.Prob != 0.5 {
		t.Fatalf("JKY probability: got=%v", lp.Prob)
	}

	// Trigeorgis 对数步长的均值与方差精确匹配
	lp, _ = Parameterize(Trigeorgis, in)
	nu := in.Rate - 0.5*in.Volatility*in.Volatility
	dx := math.Log(lp.Up)
	if m := (2*lp.Prob - 1) * dx; !almostEqual(m, nu*in.Dt, 1e-15) {
		t.Fatalf("trigeorgis log mean: got=%v want=%v", m, nu*in.Dt)
	}
	if v := dx*dx - math.Pow((2*lp.Prob-1)*dx, 2); !almostEqual(v, in.Volatility*in.Volatility*in.Dt, 1e-15) {
		t.Fatalf("trigeorgis log variance: got=%v", v)
	}
}

func TestParameterize_Degenerate(t *testing.T) {
	cases := []struct {
		name   string
		scheme Scheme
		in     LatticeInput
	}{
		{"adhoc growth above up factor", AdHoc, LatticeInput{Volatility: 0.1, Rate: 1, Dt: 1}},
		{"crr probability above one", CRR, LatticeInput{Volatility: 0.1, Rate: 10, Dt: 1}},
		{"jky negative down factor", JKY, LatticeInput{Volatility: 1, Rate: 0.05, Dt: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parameterize(tc.scheme, tc.in)
			if !errors.Is(err, ErrDegenerateLattice) {
				t.Fatalf("want ErrDegenerateLattice, got %v", err)
			}
		})
	}
}

func TestParameterize_InvalidInput(t *testing.T) {
	if _, err := Parameterize(CRR, LatticeInput{Volatility: 0, Rate: 0.05, Dt: 0.1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("sigma=0: %v", err)
	}
	if _, err := Parameterize(CRR, LatticeInput{Volatility: 0.2, Rate: 0.05, Dt: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("dt=0: %v", err)
	}
	even := LatticeInput{Volatility: 0.2, Rate: 0.05, Dt: 0.01, Steps: 100, Spot: 100, Strike: 100}
	if _, err := Parameterize(LeisenReimer, even); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("leisen-reimer even steps: %v", err)
	}
	if _, err := Parameterize(Scheme(99), even); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown scheme: %v", err)
	}
}

func TestParseScheme(t *testing.T) {
	for _, s := range Schemes() {
		got, err := ParseScheme(s.String())
		if err != nil || got != s {
			t.Fatalf("round trip %v: got=%v err=%v", s, got, err)
		}
	}
	if got, _ := ParseScheme(" trig "); got != Trigeorgis {
		t.Fatalf("alias trig: got=%v", got)
	}
	if _, err := ParseScheme("trinomial"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown name: %v", err)
	}
}

func TestPeizerPratt(t *testing.T) {
	if p := peizerPratt(0, 101); p != 0.5 {
		t.Fatalf("h(0)=%v", p)
	}
	// 奇对称：h(-z) = 1 - h(z)
	for _, z := range []float64{0.1, 0.7, 2.5} {
		if !almostEqual(peizerPratt(-z, 51)+peizerPratt(z, 51), 1, 1e-15) {
			t.Fatalf("symmetry broken at z=%v", z)
		}
	}
	prev := 0.0
	for _, z := range []float64{-3, -1, -0.2, 0, 0.2, 1, 3} {
		p := peizerPratt(z, 21)
		if p <= prev || p >= 1 {
			t.Fatalf("h not increasing within (0,1) at z=%v: %v", z, p)
		}
		prev = p
	}
}

func TestParameterize_DriftCentredAboveOne(t *testing.T) {
	// σ√Δt < rΔt：漂移居中的方案整体上移，d ≥ 1 仍满足无套利
	in := LatticeInput{Volatility: 0.005, Rate: 0.05, Dt: 0.1}
	for _, s := range []Scheme{Tian, JarrowRudd, JKY, Trigeorgis} {
		lp, err := Parameterize(s, in)
		if err != nil {
			t.Fatalf("%v: %v", s, err)
		}
		if lp.Prob < 0 || lp.Prob > 1 || lp.Down <= 0 || lp.Up <= lp.Down {
			t.Fatalf("%v: %+v", s, lp)
		}
	}
	lp, _ := Parameterize(Tian, in)
	if lp.Down < 1 {
		t.Fatalf("tian down factor should sit above one here, got %v", lp.Down)
	}

	if err := (LatticeParameters{Up: 1.2, Down: 1.3, Prob: 0.5, Discount: 1}).Validate(); !errors.Is(err, ErrDegenerateLattice) {
		t.Fatalf("d>u: %v", err)
	}
	if err := (LatticeParameters{Up: 1.2, Down: 0, Prob: 0.5, Discount: 1}).Validate(); !errors.Is(err, ErrDegenerateLattice) {
		t.Fatalf("d=0: %v", err)
	}
}

// Hull, Options, Futures, and Other Derivatives：美式看跌 S=K=50, r=10%, σ=40%, τ=5/12
func TestSchemes_HullAmericanPut(t *testing.T) {
	engine := NewLatticeEngine()
	spec := OptionSpec{Spot: 50, Strike: 50, Maturity: 5.0 / 12, Rate: 0.10, Volatility: 0.40, Side: Put, Exercise: American}

	cases := []struct {
		depth int
		want  float64
	}{
		{5, 4.49},
		{30, 4.263},
		{50, 4.272},
		{100, 4.278},
		{500, 4.283},
	}
	for _, tc := range cases {
		// 教科书树即 p=(M-d)/(u-d)，与公布值按末位四舍五入一致
		got, err := engine.Price(spec, AdHoc, tc.depth)
		if err != nil {
			t.Fatalf("adhoc depth %d: %v", tc.depth, err)
		}
		tol := 0.0005
		if tc.depth == 5 {
			tol = 0.005
		}
		if math.Abs(got-tc.want) > tol {
			t.Errorf("adhoc depth %d: got=%.6f want=%v", tc.depth, got, tc.want)
		}

		got, err = engine.Price(spec, CRR, tc.depth)
		if err != nil {
			t.Fatalf("crr depth %d: %v", tc.depth, err)
		}
		if math.Abs(got-tc.want) > 2*tol {
			t.Errorf("crr depth %d: got=%.6f want=%v", tc.depth, got, tc.want)
		}
	}
}

// Hull 例题：S=42, K=40, r=10%, σ=20%, τ=0.5 的欧式 c=4.76, p=0.81
func TestSchemes_HullEuropeanReference(t *testing.T) {
	engine := NewLatticeEngine()
	want := map[Side]float64{Call: 4.76, Put: 0.81}

	for side, ref := range want {
		spec := OptionSpec{Spot: 42, Strike: 40, Maturity: 0.5, Rate: 0.10, Volatility: 0.20, Side: side}
		if bs, _ := BlackScholes(spec); math.Abs(bs-ref) > 0.005 {
			t.Fatalf("black-scholes %v: got=%v want=%v", side, bs, ref)
		}
		for _, s := range Schemes() {
			depth := 1000
			if s == LeisenReimer {
				depth = 101
			}
			got, err := engine.Price(spec, s, depth)
			if err != nil {
				t.Fatalf("%v %v: %v", s, side, err)
			}
			if math.Abs(got-ref) > 0.006 {
				t.Errorf("%v %v depth %d: got=%.6f want=%v", s, side, depth, got, ref)
			}
		}
	}
}
