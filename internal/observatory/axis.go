package observatory

import (
	"math"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
)

// move is the result of driving one axis over a distance
type move struct {
	delay     float64
	peakSpeed float64
}

// trapezoid computes a symmetric accelerate/cruise/decelerate move
func trapezoid(distance float64, axis config.Axis) move {
	d := math.Abs(distance)
	if d == 0 {
		return move{}
	}
	rampDistance := axis.MaxSpeed * axis.MaxSpeed / axis.Accel
	if d < rampDistance {
		return move{
			delay:     2 * math.Sqrt(d/axis.Accel),
			peakSpeed: math.Sqrt(d * axis.Accel),
		}
	}
	return move{
		delay:     2*axis.MaxSpeed/axis.Accel + (d-rampDistance)/axis.MaxSpeed,
		peakSpeed: axis.MaxSpeed,
	}
}

// azimuthDelta is the signed shortest rotation from a to b
func azimuthDelta(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}
