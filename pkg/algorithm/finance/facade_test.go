package finance

import (
	"errors"
	"strings"
	"testing"
)

type uniformPricer func(spot, maturity, strike, rate, vol float64, resolution int) (float64, error)

func facadeEntries() map[string]uniformPricer {
	return map[string]uniformPricer{
		"PriceAmericanCall":      PriceAmericanCall,
		"PriceAmericanPut":       PriceAmericanPut,
		"PriceAmericanCallTian":  PriceAmericanCallTian,
		"PriceAmericanPutTian":   PriceAmericanPutTian,
		"PriceAmericanCallCRR":   PriceAmericanCallCRR,
		"PriceAmericanPutCRR":    PriceAmericanPutCRR,
		"PriceAmericanCallTrig":  PriceAmericanCallTrig,
		"PriceAmericanPutTrig":   PriceAmericanPutTrig,
		"PriceAmericanCallJR":    PriceAmericanCallJR,
		"PriceAmericanPutJR":     PriceAmericanPutJR,
		"PriceAmericanCallJKY":   PriceAmericanCallJKY,
		"PriceAmericanPutJKY":    PriceAmericanPutJKY,
		"PriceEuropeanCallLR":    PriceEuropeanCallLR,
		"PriceEuropeanPutLR":     PriceEuropeanPutLR,
		"PriceVanillaEuCall":     PriceVanillaEuCall,
		"PriceVanillaEuPut":      PriceVanillaEuPut,
		"BlackScholesEuCall(bs)": func(s, m, k, r, v float64, _ int) (float64, error) { return BlackScholesEuCall(s, m, k, r, v) },
		"BlackScholesEuPut(bs)":  func(s, m, k, r, v float64, _ int) (float64, error) { return BlackScholesEuPut(s, m, k, r, v) },
	}
}

func TestFacade_DomainRejection(t *testing.T) {
	type args struct {
		spot, maturity, strike, rate, vol float64
		resolution                        int
	}
	valid := args{100, 1, 100, 0.05, 0.2, 50}
	cases := map[string]args{
		"sigma=0":  {100, 1, 100, 0.05, 0, 50},
		"tau=0":    {100, 0, 100, 0.05, 0.2, 50},
		"spot=0":   {0, 1, 100, 0.05, 0.2, 50},
		"spot<0":   {-5, 1, 100, 0.05, 0.2, 50},
		"strike=0": {100, 1, 0, 0.05, 0.2, 50},
		"strike<0": {100, 1, -1, 0.05, 0.2, 50},
		"res=0":    {100, 1, 100, 0.05, 0.2, 0},
	}

	for name, fn := range facadeEntries() {
		if _, err := fn(valid.spot, valid.maturity, valid.strike, valid.rate, valid.vol, valid.resolution); err != nil {
			t.Fatalf("%s valid input: %v", name, err)
		}
		for cname, a := range cases {
			if cname == "res=0" && strings.HasSuffix(name, "(bs)") {
				continue
			}
			price, err := fn(a.spot, a.maturity, a.strike, a.rate, a.vol, a.resolution)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("%s %s: want ErrInvalidInput, got price=%v err=%v", name, cname, price, err)
			}
		}
	}
}

func TestFacade_MatchesEngines(t *testing.T) {
	spec := scenarioSpec(Call, American)

	got, err := PriceAmericanCallTian(spec.Spot, spec.Maturity, spec.Strike, spec.Rate, spec.Volatility, 300)
	if err != nil {
		t.Fatalf("facade: %v", err)
	}
	want, _ := NewLatticeEngine().Price(spec, Tian, 300)
	if got != want {
		t.Fatalf("tian facade %v != engine %v", got, want)
	}

	mc, _ := PriceVanillaEuPut(spec.Spot, spec.Maturity, spec.Strike, spec.Rate, spec.Volatility, 20_000)
	put := spec
	put.Side, put.Exercise = Put, European
	sim, _ := NewMonteCarloSimulator(DefaultSeed, DefaultPartitions).Price(put, 20_000)
	if mc != sim {
		t.Fatalf("mc facade %v != simulator %v", mc, sim)
	}

	bs, _ := BlackScholesEuCall(spec.Spot, spec.Maturity, spec.Strike, spec.Rate, spec.Volatility)
	lr, _ := PriceEuropeanCallLR(spec.Spot, spec.Maturity, spec.Strike, spec.Rate, spec.Volatility, 401)
	if !almostEqual(bs, lr, 1e-4) {
		t.Fatalf("leisen-reimer %v far from black-scholes %v", lr, bs)
	}
}

func TestPricer_Evaluate(t *testing.T) {
	p := NewPricer(nil)

	q, err := p.Evaluate(MethodLeisenReimer, refSpec(Put), 100)
	if err != nil {
		t.Fatalf("lr: %v", err)
	}
	if q.Resolution != 101 {
		t.Fatalf("lr resolution: got=%d want=101", q.Resolution)
	}

	q, err = p.Evaluate(MethodMonteCarlo, refSpec(Put), 1_000)
	if err != nil || q.StdErr <= 0 || q.Resolution != 1_000 {
		t.Fatalf("mc quote: %+v err=%v", q, err)
	}

	am := refSpec(Put)
	am.Exercise = American
	if _, err := p.Evaluate(MethodBlackScholes, am, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("black-scholes american: %v", err)
	}
	if _, err := p.Evaluate(MethodMonteCarlo, am, 100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("monte carlo american: %v", err)
	}
	if _, err := p.Evaluate(Method(42), refSpec(Call), 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown method: %v", err)
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(m.String())
		if err != nil || got != m {
			t.Fatalf("round trip %v: got=%v err=%v", m, got, err)
		}
	}
	cases := map[string]Method{"bs": MethodBlackScholes, "mc": MethodMonteCarlo, "crr": MethodCRR, "BINOMIAL_trig": MethodTrigeorgis}
	for in, want := range cases {
		if got, _ := ParseMethod(in); got != want {
			t.Fatalf("%q: got=%v want=%v", in, got, want)
		}
	}
	if _, err := ParseMethod("heston"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown: %v", err)
	}
	if MethodLeisenReimer.SupportsEarlyExercise() || MethodMonteCarlo.SupportsEarlyExercise() || !MethodJKY.SupportsEarlyExercise() {
		t.Fatal("early exercise support mismatch")
	}
}
