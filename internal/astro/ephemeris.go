package astro

import (
	"math"
	"time"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

// Equatorial is a right ascension/declination pair in degrees
type Equatorial struct {
	RA  float64
	Dec float64
}

func obliquity(n float64) float64 {
	return (23.439 - 0.0000004*n) * deg2rad
}

func eclipticToEquatorial(lambda, beta, eps float64) Equatorial {
	ra := math.Atan2(math.Sin(lambda)*math.Cos(eps)-math.Tan(beta)*math.Sin(eps), math.Cos(lambda))
	dec := math.Asin(math.Sin(beta)*math.Cos(eps) + math.Cos(beta)*math.Sin(eps)*math.Sin(lambda))
	return Equatorial{RA: utils.WrapDegrees(ra * rad2deg), Dec: dec * rad2deg}
}

// Sun returns the apparent solar position, good to about 0.01 degrees
func Sun(t time.Time) Equatorial {
	n := DaysSinceJ2000(t)
	L := utils.WrapDegrees(280.460 + 0.9856474*n)
	g := utils.WrapDegrees(357.528+0.9856003*n) * deg2rad
	lambda := (L + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)) * deg2rad
	return eclipticToEquatorial(lambda, 0, obliquity(n))
}

// Moon returns the geocentric lunar position, good to a few tenths of a degree
func Moon(t time.Time) Equatorial {
	n := DaysSinceJ2000(t)
	L := utils.WrapDegrees(218.316 + 13.176396*n)
	M := utils.WrapDegrees(134.963+13.064993*n) * deg2rad
	F := utils.WrapDegrees(93.272+13.229350*n) * deg2rad
	D := utils.WrapDegrees(297.850+12.190749*n) * deg2rad

	lambda := L + 6.289*math.Sin(M) + 1.274*math.Sin(2*D-M) + 0.658*math.Sin(2*D)
	beta := 5.128 * math.Sin(F)
	return eclipticToEquatorial(lambda*deg2rad, beta*deg2rad, obliquity(n))
}

// MoonPhase is the illuminated fraction of the lunar disk in percent
func MoonPhase(t time.Time) float64 {
	sun, moon := Sun(t), Moon(t)
	elongation := Separation(sun.RA, sun.Dec, moon.RA, moon.Dec) * deg2rad
	return 50 * (1 - math.Cos(elongation))
}

// Altitude of an equatorial position as seen from site at t
func (s Site) Altitude(t time.Time, pos Equatorial) float64 {
	return s.Horizontal(t, pos).Alt
}

// Horizontal position of an equatorial position as seen from site at t
func (s Site) Horizontal(t time.Time, pos Equatorial) Horizontal {
	return ToHorizontal(pos.RA, pos.Dec, LST(t, s.Longitude), s.Latitude)
}
