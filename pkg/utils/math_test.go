package utils

import (
	"math"
	"testing"
)

func TestClampFloat64(t *testing.T) {
	tests := []struct {
		value, min, max, expected float64
	}{
		{5.5, 0, 10, 5.5},
		{-1.5, 0, 10, 0},
		{15.5, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := ClampFloat64(tt.value, tt.min, tt.max); got != tt.expected {
			t.Errorf("ClampFloat64(%f, %f, %f) = %f, expected %f", tt.value, tt.min, tt.max, got, tt.expected)
		}
	}
}

func TestMeanAndSum(t *testing.T) {
	tests := []struct {
		values []float64
		sum    float64
		mean   float64
	}{
		{[]float64{15, 15}, 30, 15},
		{[]float64{1, 2, 3, 4}, 10, 2.5},
		{nil, 0, 0},
	}
	for _, tt := range tests {
		if got := Sum(tt.values); got != tt.sum {
			t.Errorf("Sum(%v) = %f, expected %f", tt.values, got, tt.sum)
		}
		if got := Mean(tt.values); got != tt.mean {
			t.Errorf("Mean(%v) = %f, expected %f", tt.values, got, tt.mean)
		}
	}
}

func TestWrapDegrees(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{370, 10},
		{-10, 350},
		{720, 0},
	}
	for _, tt := range tests {
		if got := WrapDegrees(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapDegrees(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
