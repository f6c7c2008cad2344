package utils

import (
	"math"
	"testing"
)

func TestMTRandSourceSeed(t *testing.T) {
	if got := NewMTRandSource(12345).Seed(); got != 12345 {
		t.Errorf("Expected seed 12345, got %d", got)
	}
	if got := NewMTRandSource(-7).Seed(); got != 7 {
		t.Errorf("Expected negative seed to be folded to 7, got %d", got)
	}
}

func TestRandSourceFloat64(t *testing.T) {
	rng := NewMTRandSource(12345)
	for i := 0; i < 1000; i++ {
		val := rng.Float64()
		if val < 0 || val >= 1.0 {
			t.Fatalf("Float64() returned value outside [0, 1): %f", val)
		}
	}
}

func TestRandSourceBernoulliBool(t *testing.T) {
	rng := NewMTRandSource(12345)
	trueCount := 0
	for i := 0; i < 10000; i++ {
		if rng.BernoulliBool(0.3) {
			trueCount++
		}
	}
	ratio := float64(trueCount) / 10000
	if math.Abs(ratio-0.3) > 0.03 {
		t.Errorf("BernoulliBool(0.3) ratio %f not close to 0.3", ratio)
	}
}

func TestMT19937ReferenceOutput(t *testing.T) {
	// init_genrand(5489) is the canonical reference seed
	mt := NewMT19937(5489)
	if got := mt.Uint32(); got != 3499211612 {
		t.Errorf("first output for seed 5489 = %d, want 3499211612", got)
	}

	// genrand_res53 after init_genrand(0)
	mt = NewMT19937(0)
	if got := mt.Float64(); math.Abs(got-0.5488135039273248) > 1e-15 {
		t.Errorf("first res53 for seed 0 = %.16f, want 0.5488135039273248", got)
	}
}

func TestMTRandSourceArraySeeding(t *testing.T) {
	tests := []struct {
		seed int64
		want float64
	}{
		{0, 0.8444218515250481},
		{42, 0.6394267984578837},
		{1640995200, 0.10195621550825829},
	}
	for _, tt := range tests {
		if got := NewMTRandSource(tt.seed).Float64(); math.Abs(got-tt.want) > 1e-15 {
			t.Errorf("seed %d: first draw %.16f, want %.16f", tt.seed, got, tt.want)
		}
	}
}

func TestDeterministicBehavior(t *testing.T) {
	a := NewMTRandSource(1640995200)
	b := NewMTRandSource(1640995200)
	for i := 0; i < 2000; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("streams diverged at draw %d", i)
		}
	}
}
