package astro

import (
	"math"

	"github.com/GoSim-25-26J-441/opsim-driver/pkg/utils"
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// Site is an observer location in degrees, longitude east-positive
type Site struct {
	Latitude  float64
	Longitude float64
}

// Horizontal is an altitude/azimuth pair in degrees, azimuth from north through east
type Horizontal struct {
	Alt float64
	Az  float64
}

// HourAngle returns lst - ra wrapped into (-180, 180]
func HourAngle(lstDeg, raDeg float64) float64 {
	ha := utils.WrapDegrees(lstDeg - raDeg)
	if ha > 180 {
		ha -= 360
	}
	return ha
}

// ToHorizontal converts equatorial coordinates to altitude and azimuth
func ToHorizontal(raDeg, decDeg, lstDeg, latDeg float64) Horizontal {
	ha := HourAngle(lstDeg, raDeg) * deg2rad
	dec := decDeg * deg2rad
	lat := latDeg * deg2rad

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	sinAlt = utils.ClampFloat64(sinAlt, -1, 1)
	alt := math.Asin(sinAlt)

	y := -math.Cos(dec) * math.Sin(ha)
	x := math.Sin(dec)*math.Cos(lat) - math.Cos(dec)*math.Sin(lat)*math.Cos(ha)
	az := math.Atan2(y, x)

	return Horizontal{Alt: alt * rad2deg, Az: utils.WrapDegrees(az * rad2deg)}
}

// ToEquatorial is the inverse of ToHorizontal
func ToEquatorial(altDeg, azDeg, lstDeg, latDeg float64) (ra, dec float64) {
	alt := altDeg * deg2rad
	az := azDeg * deg2rad
	lat := latDeg * deg2rad

	sinDec := math.Sin(alt)*math.Sin(lat) + math.Cos(alt)*math.Cos(lat)*math.Cos(az)
	sinDec = utils.ClampFloat64(sinDec, -1, 1)
	d := math.Asin(sinDec)

	y := -math.Sin(az) * math.Cos(alt)
	x := math.Sin(alt)*math.Cos(lat) - math.Cos(alt)*math.Sin(lat)*math.Cos(az)
	ha := math.Atan2(y, x) * rad2deg

	return utils.WrapDegrees(lstDeg - ha), d * rad2deg
}

// Airmass is the plane-parallel sec(z). Targets at or below the horizon
// report MaxAirmass.
func Airmass(altDeg float64) float64 {
	if altDeg <= 1 {
		return MaxAirmass
	}
	return math.Min(MaxAirmass, 1/math.Sin(altDeg*deg2rad))
}

// MaxAirmass caps Airmass near the horizon
const MaxAirmass = 40.0

// Separation is the great-circle distance between two positions in degrees
func Separation(ra1, dec1, ra2, dec2 float64) float64 {
	dRA := (ra2 - ra1) * deg2rad
	d1 := dec1 * deg2rad
	d2 := dec2 * deg2rad
	h := math.Pow(math.Sin((d2-d1)/2), 2) + math.Cos(d1)*math.Cos(d2)*math.Pow(math.Sin(dRA/2), 2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(h))) * rad2deg
}

// ParallacticAngle in degrees for an hour angle, declination and latitude
func ParallacticAngle(haDeg, decDeg, latDeg float64) float64 {
	ha := haDeg * deg2rad
	dec := decDeg * deg2rad
	lat := latDeg * deg2rad
	y := math.Sin(ha)
	x := math.Tan(lat)*math.Cos(dec) - math.Sin(dec)*math.Cos(ha)
	return math.Atan2(y, x) * rad2deg
}
