package exposure

import "fmt"

// FormatAperture renders an f-number, e.g. "f/8.0".
func FormatAperture(aperture float64) string {
	return fmt.Sprintf("f/%.1f", aperture)
}

// FormatShutterSpeed renders a shutter denominator, e.g. "1/125".
func FormatShutterSpeed(shutterSpeed float64) string {
	return fmt.Sprintf("1/%d", int(shutterSpeed))
}

// FormatExposureCompensation renders compensation with an explicit plus
// sign for positive values, e.g. "+0.5 EV".
func FormatExposureCompensation(ev float64) string {
	prefix := ""
	if ev > 0 {
		prefix = "+"
	}
	return fmt.Sprintf("%s%.1f EV", prefix, ev)
}

// Formatted holds the display strings of a Result.
type Formatted struct {
	Aperture             string `json:"aperture"`
	ShutterSpeed         string `json:"shutterSpeed"`
	ExposureCompensation string `json:"exposureCompensation"`
}

func (r Result) Format() Formatted {
	return Formatted{
		Aperture:             FormatAperture(r.Aperture),
		ShutterSpeed:         FormatShutterSpeed(r.ShutterSpeed),
		ExposureCompensation: FormatExposureCompensation(r.ExposureCompensation),
	}
}

func (r Result) String() string {
	return fmt.Sprintf("%s %s %s %s",
		FormatAperture(r.Aperture),
		FormatShutterSpeed(r.ShutterSpeed),
		r.MeteringMode.EnglishName(),
		FormatExposureCompensation(r.ExposureCompensation))
}
