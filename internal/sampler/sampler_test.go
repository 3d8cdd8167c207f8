package sampler

import (
	"math"
	"testing"

	"cyber-risk-lab/internal/domain"
)

func TestNewRNGDeterminism(t *testing.T) {
	a := NewRNG(42, 0)
	b := NewRNG(42, 0)
	for i := 0; i < 100; i++ {
		if av, bv := a.Float64(), b.Float64(); av != bv {
			t.Fatalf("draw %d diverged: %v vs %v", i, av, bv)
		}
	}

	c := NewRNG(42, 1)
	d := NewRNG(42, 0)
	same := true
	for i := 0; i < 10; i++ {
		if c.Float64() != d.Float64() {
			same = false
			break
		}
	}
	if same {
		t.Fatal("distinct streams produced identical draws")
	}
}

func TestNewFrequencyRejectsInvalid(t *testing.T) {
	if _, err := NewFrequency(domain.FrequencyParams{Kind: domain.FrequencyPoisson, Lambda: -1}); err == nil {
		t.Fatal("negative lambda accepted")
	}
	if _, err := NewFrequency(domain.FrequencyParams{Kind: "zipf"}); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestNewSeverityRejectsInvalid(t *testing.T) {
	if _, err := NewSeverity(domain.SeverityParams{Kind: domain.SeverityGamma, Shape: 0, Scale: 1}); err == nil {
		t.Fatal("zero gamma shape accepted")
	}
	if _, err := NewSeverity(domain.SeverityParams{Kind: "frechet"}); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestFrequencySampleMatchesMean(t *testing.T) {
	cases := []struct {
		name   string
		params domain.FrequencyParams
	}{
		{"poisson small", domain.FrequencyParams{Kind: domain.FrequencyPoisson, Lambda: 3.2}},
		{"poisson large", domain.FrequencyParams{Kind: domain.FrequencyPoisson, Lambda: 120}},
		{"negative binomial", domain.FrequencyParams{Kind: domain.FrequencyNegativeBinomial, R: 4, P: 0.35}},
		{"binomial", domain.FrequencyParams{Kind: domain.FrequencyBinomial, N: 25, P: 0.3}},
	}
	const n = 200_000
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFrequency(tc.params)
			if err != nil {
				t.Fatalf("NewFrequency: %v", err)
			}
			rng := NewRNG(7, 0)
			var sum float64
			for i := 0; i < n; i++ {
				k := f.Sample(rng)
				if k < 0 {
					t.Fatalf("negative count %d", k)
				}
				sum += float64(k)
			}
			mean := sum / n
			want := f.Mean()
			// 4 sigma band around the analytic mean.
			tol := 4 * math.Sqrt(f.Variance()/n)
			if math.Abs(mean-want) > tol {
				t.Errorf("sample mean %v outside %v +/- %v", mean, want, tol)
			}
		})
	}
}

func TestSeveritySampleMatchesMean(t *testing.T) {
	cases := []struct {
		name   string
		params domain.SeverityParams
	}{
		{"lognormal", domain.SeverityParams{Kind: domain.SeverityLogNormal, Mu: 10, Sigma: 0.8}},
		{"pareto shape 3", domain.SeverityParams{Kind: domain.SeverityPareto, Shape: 3, Scale: 50_000}},
		{"gamma shape above one", domain.SeverityParams{Kind: domain.SeverityGamma, Shape: 2.5, Scale: 40_000}},
		{"gamma shape below one", domain.SeverityParams{Kind: domain.SeverityGamma, Shape: 0.6, Scale: 40_000}},
		{"exponential", domain.SeverityParams{Kind: domain.SeverityExponential, Scale: 75_000}},
		{"weibull", domain.SeverityParams{Kind: domain.SeverityWeibull, Shape: 1.4, Scale: 60_000}},
	}
	const n = 200_000
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSeverity(tc.params)
			if err != nil {
				t.Fatalf("NewSeverity: %v", err)
			}
			rng := NewRNG(11, 0)
			var sum float64
			for i := 0; i < n; i++ {
				x := s.Sample(rng)
				if x <= 0 || math.IsInf(x, 0) || math.IsNaN(x) {
					t.Fatalf("draw %d not a positive finite value: %v", i, x)
				}
				sum += x
			}
			mean := sum / n
			want := s.Mean()
			tol := 4 * math.Sqrt(s.Variance()/n)
			if math.Abs(mean-want) > tol {
				t.Errorf("sample mean %v outside %v +/- %v", mean, want, tol)
			}
		})
	}
}

func TestParetoSupportAndTails(t *testing.T) {
	s, err := NewSeverity(domain.SeverityParams{Kind: domain.SeverityPareto, Shape: 1.5, Scale: 100_000})
	if err != nil {
		t.Fatalf("NewSeverity: %v", err)
	}
	rng := NewRNG(3, 0)
	for i := 0; i < 10_000; i++ {
		if x := s.Sample(rng); x < 100_000 {
			t.Fatalf("draw %v below scale", x)
		}
	}
	if !s.HeavyTailed() {
		t.Error("shape 1.5 should be heavy-tailed")
	}
	if !math.IsInf(s.Variance(), 1) {
		t.Error("variance should be +Inf for shape <= 2")
	}

	thin, err := NewSeverity(domain.SeverityParams{Kind: domain.SeverityPareto, Shape: 0.8, Scale: 100_000})
	if err != nil {
		t.Fatalf("NewSeverity: %v", err)
	}
	if !math.IsInf(thin.Mean(), 1) {
		t.Error("mean should be +Inf for shape <= 1")
	}

	light, err := NewSeverity(domain.SeverityParams{Kind: domain.SeverityGamma, Shape: 2, Scale: 1})
	if err != nil {
		t.Fatalf("NewSeverity: %v", err)
	}
	if light.HeavyTailed() {
		t.Error("gamma should not be heavy-tailed")
	}
}

func TestSampleSequencesReproducible(t *testing.T) {
	params := domain.SeverityParams{Kind: domain.SeverityLogNormal, Mu: 12, Sigma: 1.5}
	s, err := NewSeverity(params)
	if err != nil {
		t.Fatalf("NewSeverity: %v", err)
	}

	draw := func(stream uint64) []float64 {
		rng := NewRNG(99, stream)
		out := make([]float64, 50)
		for i := range out {
			out[i] = s.Sample(rng)
		}
		return out
	}

	a, b := draw(5), draw(5)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("draw %d diverged: %v vs %v", i, a[i], b[i])
		}
	}
}
