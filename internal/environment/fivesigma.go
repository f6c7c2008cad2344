package environment

import "math"

// m5Coefficients hold the flat-SED system response per filter
type m5Coefficients struct {
	cm      float64
	dCmInf  float64
	kAtm    float64
	darkSky float64
}

var m5Table = map[string]m5Coefficients{
	"u": {22.94, 0.56, 0.50, 22.99},
	"g": {24.46, 0.12, 0.21, 22.26},
	"r": {24.48, 0.06, 0.13, 21.20},
	"i": {24.34, 0.05, 0.10, 20.48},
	"z": {24.18, 0.03, 0.07, 19.60},
	"y": {23.73, 0.02, 0.18, 18.61},
}

// FiveSigmaDepth is the point-source five-sigma limiting magnitude for a
// visit. It returns NaN for an unknown filter or non-positive inputs.
func FiveSigmaDepth(filter string, skyBrightness, fwhmEff, expTime, airmass float64) float64 {
	c, ok := m5Table[filter]
	if !ok || fwhmEff <= 0 || expTime <= 0 {
		return math.NaN()
	}
	tScale := expTime / 30.0 * math.Pow(10, -0.4*(skyBrightness-c.darkSky))
	dCm := c.dCmInf - 1.25*math.Log10(1+(math.Pow(10, 0.8*c.dCmInf)-1)/tScale)
	return c.cm + dCm +
		0.5*(skyBrightness-21.0) +
		2.5*math.Log10(0.7/fwhmEff) +
		1.25*math.Log10(expTime/30.0) -
		c.kAtm*(airmass-1.0)
}
