// Package observatory models the sky as seen from the site and the
// kinematics of the telescope, dome, rotator and filter changer.
package observatory

import (
	"math"

	"github.com/GoSim-25-26J-441/opsim-driver/internal/astro"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/config"
	"github.com/GoSim-25-26J-441/opsim-driver/pkg/models"
)

// brightestSky bounds the sky brightness model
const brightestSky = 15.0

// SkyModel computes sky geometry and brightness for a pointing
type SkyModel struct {
	site astro.Site
	sky  config.Sky
}

// NewSkyModel creates a sky model for a site
func NewSkyModel(site config.Site, sky config.Sky) *SkyModel {
	return &SkyModel{
		site: astro.Site{Latitude: site.Latitude, Longitude: site.Longitude},
		sky:  sky,
	}
}

// Site is the observer location
func (m *SkyModel) Site() astro.Site {
	return m.site
}

// Horizontal returns the alt/az of a pointing at ts
func (m *SkyModel) Horizontal(ts, ra, dec float64) astro.Horizontal {
	return m.site.Horizontal(astro.FromTimestamp(ts), astro.Equatorial{RA: ra, Dec: dec})
}

// ParallacticAngle of a pointing at ts
func (m *SkyModel) ParallacticAngle(ts, ra, dec float64) float64 {
	lst := astro.LST(astro.FromTimestamp(ts), m.site.Longitude)
	return astro.ParallacticAngle(astro.HourAngle(lst, ra), dec, m.site.Latitude)
}

// Geometry returns the lunar and solar geometry for a pointing at ts
func (m *SkyModel) Geometry(ts, ra, dec float64) models.SkyGeometry {
	t := astro.FromTimestamp(ts)
	sun := astro.Sun(t)
	moon := astro.Moon(t)
	sunH := m.site.Horizontal(t, sun)
	moonH := m.site.Horizontal(t, moon)

	return models.SkyGeometry{
		MoonRA:       moon.RA,
		MoonDec:      moon.Dec,
		MoonAlt:      moonH.Alt,
		MoonAz:       moonH.Az,
		MoonPhase:    astro.MoonPhase(t),
		MoonDistance: astro.Separation(ra, dec, moon.RA, moon.Dec),
		SunAlt:       sunH.Alt,
		SunAz:        sunH.Az,
		SunRA:        sun.RA,
		SunDec:       sun.Dec,
		SolarElong:   astro.Separation(ra, dec, sun.RA, sun.Dec),
	}
}

// Brightness is the sky surface brightness (mag/arcsec²) of a pointing in a
// filter: the dark zenith sky brightened by airmass, twilight and moonlight.
func (m *SkyModel) Brightness(ts, ra, dec float64, filter string) float64 {
	dark, ok := m.sky.DarkSky[filter]
	if !ok {
		return math.NaN()
	}
	h := m.Horizontal(ts, ra, dec)
	geom := m.Geometry(ts, ra, dec)
	return m.brightness(dark, astro.Airmass(h.Alt), geom)
}

func (m *SkyModel) brightness(dark, airmass float64, geom models.SkyGeometry) float64 {
	mag := dark - 0.5*(math.Min(airmass, 3)-1)

	if geom.SunAlt > -18 {
		mag -= m.sky.TwilightBrighten * math.Min(1, (geom.SunAlt+18)/6)
	}
	if geom.MoonAlt > 0 && geom.MoonDistance < 90 {
		mag -= m.sky.MoonBrighten * (geom.MoonPhase / 100) * (1 - geom.MoonDistance/90)
	}
	return math.Max(brightestSky, mag)
}

// NightBoundaries returns the sunset and sunrise timestamps at or after ts
func (m *SkyModel) NightBoundaries(ts, twilight float64) (float64, float64, error) {
	sunset, sunrise, err := m.site.NightBoundaries(astro.FromTimestamp(ts), twilight)
	if err != nil {
		return 0, 0, err
	}
	return astro.Timestamp(sunset), astro.Timestamp(sunrise), nil
}

// SunAltitude at ts
func (m *SkyModel) SunAltitude(ts float64) float64 {
	t := astro.FromTimestamp(ts)
	return m.site.Altitude(t, astro.Sun(t))
}
