// Package astro provides the low-precision ephemeris and coordinate
// transforms the driver needs for night boundaries and sky geometry.
package astro

import (
	"math"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// JulianDate converts a time.Time (UTC) to Julian Date.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Jan/Feb count as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// DaysSinceJ2000 is JD - 2451545
func DaysSinceJ2000(t time.Time) float64 {
	return JulianDate(t) - j2000
}

// GMST returns Greenwich Mean Sidereal Time in degrees (IAU-82).
func GMST(t time.Time) float64 {
	tUT1 := DaysSinceJ2000(t) / 36525.0

	// seconds of time
	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 360.0
}

// LST returns local mean sidereal time in degrees for an east-positive longitude
func LST(t time.Time, lonDeg float64) float64 {
	return utils.WrapDegrees(GMST(t) + lonDeg)
}

// FromTimestamp converts POSIX seconds to UTC
func FromTimestamp(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Timestamp converts t to POSIX seconds
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
