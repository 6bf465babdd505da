package exposure

import "math"

// Output bounds.
const (
	MinAperture     = 1.4
	MaxAperture     = 22.0
	MinShutterSpeed = 1.0
	MaxShutterSpeed = 4000.0
	MinCompensation = -3.0
	MaxCompensation = 3.0
)

const baseISO = 100.0

type baseline struct {
	aperture     float64
	shutterSpeed float64
	compensation float64
	metering     MeteringMode
}

var baselines = map[LightCondition]baseline{
	Sunny:    {aperture: 11.0, shutterSpeed: 250, compensation: 0.0, metering: Evaluative},
	Cloudy:   {aperture: 8.0, shutterSpeed: 125, compensation: 0.5, metering: Evaluative},
	Overcast: {aperture: 5.6, shutterSpeed: 125, compensation: 1.0, metering: Evaluative},
	Night:    {aperture: 2.8, shutterSpeed: 15, compensation: 2.0, metering: CenterWeighted},
	Indoor:   {aperture: 4.0, shutterSpeed: 60, compensation: 1.5, metering: Evaluative},
}

// fallback for light conditions outside the table
var defaultBaseline = baseline{aperture: 8.0, shutterSpeed: 125, metering: Evaluative}

// Calculate returns the recommended exposure for the given conditions.
// It is pure and safe for concurrent use.
func Calculate(light LightCondition, iso float64, scene SceneMode) Result {
	r := adjust(light, iso, scene)

	r.Aperture = clamp(r.Aperture, MinAperture, MaxAperture)
	r.ShutterSpeed = clamp(r.ShutterSpeed, MinShutterSpeed, MaxShutterSpeed)
	r.ExposureCompensation = clamp(r.ExposureCompensation, MinCompensation, MaxCompensation)
	r.ShutterSpeed = NormalizeShutterSpeed(r.ShutterSpeed)
	return r
}

// scaled applies the light baseline and ISO scaling. The shutter
// denominator grows with ISO so exposure stays equal to the ISO 100 value.
func scaled(light LightCondition, iso float64) Result {
	b, ok := baselines[light]
	if !ok {
		b = defaultBaseline
	}
	return Result{
		Aperture:             b.aperture,
		ShutterSpeed:         b.shutterSpeed * (iso / baseISO),
		MeteringMode:         b.metering,
		ExposureCompensation: b.compensation,
	}
}

// adjust applies the scene policy on top of scaled, before clamping.
func adjust(light LightCondition, iso float64, scene SceneMode) Result {
	r := scaled(light, iso)

	switch scene {
	case Sport:
		old := r.ShutterSpeed
		r.ShutterSpeed = math.Max(500, r.ShutterSpeed*2)
		r.Aperture = apertureForShutter(r.Aperture, r.ShutterSpeed/old)
		r.MeteringMode = Evaluative
	case Portrait:
		old := r.Aperture
		r.Aperture = math.Min(r.Aperture, 4.0)
		r.ShutterSpeed = shutterForAperture(r.ShutterSpeed, old, r.Aperture)
		r.MeteringMode = CenterWeighted
		r.ExposureCompensation += 0.3
	case Landscape:
		old := r.Aperture
		r.Aperture = math.Max(r.Aperture, 8.0)
		r.ShutterSpeed = shutterForAperture(r.ShutterSpeed, old, r.Aperture)
		r.MeteringMode = Evaluative
		r.ExposureCompensation -= 0.3
	case Macro:
		old := r.Aperture
		r.Aperture = math.Max(5.6, r.Aperture)
		r.ShutterSpeed = shutterForAperture(r.ShutterSpeed, old, r.Aperture)
		// anti-shake floor, applied after the reciprocal recompute
		r.ShutterSpeed = math.Max(125, r.ShutterSpeed)
		r.MeteringMode = Spot
	case NightMode:
		// independent clamps, no reciprocal recompute
		r.Aperture = math.Min(r.Aperture, 2.8)
		r.ShutterSpeed = math.Min(r.ShutterSpeed, 30)
		r.MeteringMode = CenterWeighted
		r.ExposureCompensation += 1.0
	}
	return r
}

// shutterForAperture keeps exposure constant across an aperture change:
// the denominator scales with 1 / (new² / old²).
func shutterForAperture(shutter, oldAperture, newAperture float64) float64 {
	ratio := (newAperture * newAperture) / (oldAperture * oldAperture)
	return shutter / ratio
}

// apertureForShutter keeps exposure constant across a shutter change of
// the given ratio (new denominator / old denominator).
func apertureForShutter(aperture, shutterRatio float64) float64 {
	return aperture * math.Sqrt(1/shutterRatio)
}

// clamp maps NaN to lo so that nonsense ISO values still produce a result.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// ExposureValue returns EV = log2(N² · t⁻¹) for an aperture and shutter
// denominator. Higher values mean less light reaches the sensor.
func ExposureValue(aperture, shutterSpeed float64) float64 {
	return math.Log2(aperture * aperture * shutterSpeed)
}
