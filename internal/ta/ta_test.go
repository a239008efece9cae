package ta

import (
	"math"
	"testing"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	if got := SMA(vals, 2); !almost(got, 4.5) {
		t.Errorf("SMA(2) = %f, want 4.5", got)
	}
	if got := Mean(vals); !almost(got, 3) {
		t.Errorf("Mean = %f, want 3", got)
	}
	if !math.IsNaN(SMA(vals, 6)) {
		t.Error("Expected NaN when n exceeds the series")
	}
}

func TestRSI(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6}
	if got := RSI(rising, 5); got != 100 {
		t.Errorf("RSI of a rising series = %f, want 100", got)
	}

	mixed := []float64{10, 11, 10, 11, 10}
	if got := RSI(mixed, 4); !almost(got, 50) {
		t.Errorf("RSI of an even series = %f, want 50", got)
	}

	if !math.IsNaN(RSI(rising, 6)) {
		t.Error("Expected NaN for too few closes")
	}
}

func TestStdDev(t *testing.T) {
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	// sample standard deviation
	want := math.Sqrt(32.0 / 7.0)
	if got := StdDev(vals, len(vals)); !almost(got, want) {
		t.Errorf("StdDev = %f, want %f", got, want)
	}
	if !math.IsNaN(StdDev([]float64{1}, 1)) {
		t.Error("Expected NaN for a single value")
	}
}

func TestPctChangesAndVolatility(t *testing.T) {
	changes := PctChanges([]float64{100, 110, 99})
	if len(changes) != 2 || !almost(changes[0], 10) || !almost(changes[1], -10) {
		t.Fatalf("PctChanges = %v, want [10 -10]", changes)
	}
	if PctChanges([]float64{1}) != nil {
		t.Error("Expected nil for a single close")
	}

	vol := Volatility([]float64{100, 110, 99})
	if !almost(vol, StdDev([]float64{10, -10}, 2)) {
		t.Errorf("Volatility = %f", vol)
	}
	if !almost(Annualize(1), math.Sqrt(252)) {
		t.Error("Annualize should scale by sqrt(252)")
	}
}

func TestMomentum(t *testing.T) {
	closes := []float64{100, 105, 110, 120}
	if got := Momentum(closes, 3); !almost(got, 20) {
		t.Errorf("Momentum(3) = %f, want 20", got)
	}
	if !math.IsNaN(Momentum(closes, 4)) {
		t.Error("Expected NaN when n reaches the series length")
	}
}
