package finance

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestMonteCarlo_MeanWithinStdErr(t *testing.T) {
	sim := NewMonteCarloSimulator(DefaultSeed, DefaultPartitions)
	for _, side := range []Side{Call, Put} {
		spec := refSpec(side)
		bs, _ := BlackScholes(spec)

		res, err := sim.Simulate(spec, 200_000)
		if err != nil {
			t.Fatalf("%v: %v", side, err)
		}
		if res.Pairs != 200_000 {
			t.Fatalf("pairs: got=%d", res.Pairs)
		}
		if res.StdErr <= 0 {
			t.Fatalf("%v stderr should be positive: %v", side, res.StdErr)
		}
		if math.Abs(res.Price-bs) > 5*res.StdErr {
			t.Fatalf("%v mc=%v bs=%v stderr=%v", side, res.Price, bs, res.StdErr)
		}
	}
}

func TestMonteCarlo_StdErrScalesWithSampleCount(t *testing.T) {
	sim := NewMonteCarloSimulator(7, 4)
	spec := refSpec(Call)

	small, err := sim.Simulate(spec, 40_000)
	if err != nil {
		t.Fatalf("small: %v", err)
	}
	large, err := sim.Simulate(spec, 160_000)
	if err != nil {
		t.Fatalf("large: %v", err)
	}
	// 样本数增加 4 倍，标准误约减半
	ratio := small.StdErr / large.StdErr
	if ratio < 1.8 || ratio > 2.2 {
		t.Fatalf("stderr ratio: got=%v want≈2", ratio)
	}
}

func TestMonteCarlo_Reproducible(t *testing.T) {
	spec := refSpec(Put)
	a, _ := NewMonteCarloSimulator(42, 4).Price(spec, 10_000)
	b, _ := NewMonteCarloSimulator(42, 4).Price(spec, 10_000)
	if a != b {
		t.Fatalf("same seed should reproduce: %v vs %v", a, b)
	}
	c, _ := NewMonteCarloSimulator(43, 4).Price(spec, 10_000)
	if a == c {
		t.Fatalf("different seeds produced identical price %v", a)
	}
}

func TestMonteCarlo_ConcurrentCallsShareNothing(t *testing.T) {
	sim := NewMonteCarloSimulator(DefaultSeed, 3)
	spec := refSpec(Call)
	want, _ := sim.Price(spec, 5_000)

	var wg sync.WaitGroup
	got := make([]float64, 8)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], _ = sim.Price(spec, 5_000)
		}()
	}
	wg.Wait()
	for i, v := range got {
		if v != want {
			t.Fatalf("call %d: got=%v want=%v", i, v, want)
		}
	}
}

func TestMonteCarlo_PutCallParity(t *testing.T) {
	sim := NewMonteCarloSimulator(DefaultSeed, DefaultPartitions)
	spec := refSpec(Call)
	call, _ := sim.Price(spec, 100_000)
	spec.Side = Put
	put, _ := sim.Price(spec, 100_000)

	want := spec.Spot - spec.Strike*math.Exp(-spec.Rate*spec.Maturity)
	if !almostEqual(call-put, want, 0.1) {
		t.Fatalf("parity: got=%v want=%v", call-put, want)
	}
}

func TestMonteCarlo_CustomPayoff(t *testing.T) {
	sim := NewMonteCarloSimulator(DefaultSeed, DefaultPartitions)
	spec := refSpec(Call)

	// 贴现后的终端价格期望等于现价
	res, err := sim.SimulatePayoff(spec, 50_000, func(s float64) float64 { return s })
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if math.Abs(res.Price-spec.Spot) > 5*res.StdErr {
		t.Fatalf("discounted forward: got=%v stderr=%v", res.Price, res.StdErr)
	}

	if _, err := sim.SimulatePayoff(spec, 10, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("nil payoff: %v", err)
	}
}

func TestMonteCarlo_SmallSampleCounts(t *testing.T) {
	sim := NewMonteCarloSimulator(1, 8)
	res, err := sim.Simulate(refSpec(Call), 1)
	if err != nil {
		t.Fatalf("one pair: %v", err)
	}
	if res.StdErr != 0 {
		t.Fatalf("one pair has no spread estimate, got %v", res.StdErr)
	}
	if _, err := sim.Simulate(refSpec(Call), 3); err != nil {
		t.Fatalf("fewer pairs than partitions: %v", err)
	}
}

func TestMonteCarlo_Rejects(t *testing.T) {
	sim := NewMonteCarloSimulator(DefaultSeed, DefaultPartitions)
	if _, err := sim.Price(refSpec(Call), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("pairs=0: %v", err)
	}
	spec := refSpec(Put)
	spec.Exercise = American
	if _, err := sim.Price(spec, 100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("american: %v", err)
	}
}
