package metrics

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestResolve_CanonicalAndAlias(t *testing.T) {
	for _, name := range []string{"pearson_r", "pr", "acc"} {
		m, err := Resolve(name, PMMetrics)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", name, err)
		}
		if m.Name != "pearson_r" {
			t.Fatalf("Resolve(%q).Name = %q, want pearson_r", name, m.Name)
		}
	}
}

func TestResolve_DescriptorPassesThrough(t *testing.T) {
	custom := &Metric{Name: "my_score", UnitPower: 0, Fn: func(f, v []float64) float64 { return 0 }}
	m, err := Resolve(custom, PMMetrics)
	if err != nil {
		t.Fatalf("Resolve(custom) failed: %v", err)
	}
	if m != custom {
		t.Fatal("custom descriptor was not returned as-is")
	}
}

func TestResolve_UnknownNames(t *testing.T) {
	for _, name := range []string{"AnomCorr", "test", "None"} {
		_, err := Resolve(name, PMMetrics)
		if !errors.Is(err, ErrUnknownMetric) {
			t.Fatalf("Resolve(%q) err = %v, want ErrUnknownMetric", name, err)
		}
		if !strings.Contains(err.Error(), "Specify metric from") {
			t.Fatalf("Resolve(%q) message %q lacks the valid-choice listing", name, err)
		}
	}
}

func TestResolve_WrongType(t *testing.T) {
	_, err := Resolve(42, PMMetrics)
	if !errors.Is(err, ErrInvalidArgumentType) {
		t.Fatalf("err = %v, want ErrInvalidArgumentType", err)
	}
}

func TestCatalogCoversAllowedLists(t *testing.T) {
	for _, name := range append(append([]string{}, PMMetrics...), HindcastMetrics...) {
		if _, ok := Get(name); !ok {
			t.Fatalf("allowed metric %q missing from catalog", name)
		}
	}
}

func TestMetricValues(t *testing.T) {
	f := []float64{1, 2, 3, 4}
	v := []float64{1, 2, 3, 8}

	cases := []struct {
		name string
		want float64
	}{
		// Only the last pair differs, by 4.
		{"mse", 4},  // 16/4
		{"rmse", 2}, // sqrt(4)
		{"mae", 1},  // 4/4
		{"median_absolute_error", 0}, // diffs [0 0 0 4], median 0
	}
	for _, tc := range cases {
		m, _ := Get(tc.name)
		got := m.Fn(f, v)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("%s = %v, want %v", tc.name, got, tc.want)
		}
	}

	r, _ := Get("pearson_r")
	if got := r.Fn([]float64{1, 2, 3}, []float64{2, 4, 6}); math.Abs(got-1) > 1e-12 {
		t.Fatalf("pearson_r on perfectly correlated series = %v, want 1", got)
	}

	// A perfect forecast has msss 1 and nmse 0.
	msss, _ := Get("msss")
	if got := msss.Fn([]float64{1, 2, 3}, []float64{1, 2, 3}); math.Abs(got-1) > 1e-12 {
		t.Fatalf("msss perfect = %v, want 1", got)
	}
	nmse, _ := Get("nmse")
	if got := nmse.Fn([]float64{1, 2, 3}, []float64{1, 2, 3}); got != 0 {
		t.Fatalf("nmse perfect = %v, want 0", got)
	}
}

func TestDirections(t *testing.T) {
	higher := map[string]bool{"pearson_r": true, "msss": true}
	for _, name := range PMMetrics {
		m, _ := Get(name)
		if m.HigherIsBetter != higher[name] {
			t.Fatalf("%s HigherIsBetter = %v", name, m.HigherIsBetter)
		}
	}
}
