// Package optics holds the auxiliary lens calculators: hyperfocal
// distance, depth of field and full-frame equivalent focal length.
package optics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidInput = errors.New("invalid optics input")

// Far limits beyond this many meters are reported as infinity.
const farLimit = 1000.0

// Near limits are never reported closer than this many meters.
const minNear = 0.1

type Sensor string

const (
	FullFrame        Sensor = "fullFrame"
	MediumFormat     Sensor = "mediumFormat"
	MediumFormat4433 Sensor = "mediumFormat4433"
	APSC             Sensor = "apsc"
	Micro43          Sensor = "micro43"
	OneInch          Sensor = "oneInch"
)

type sensorSpec struct {
	circleOfConfusion float64 // mm
	cropFactor        float64
}

var sensors = map[Sensor]sensorSpec{
	FullFrame:        {0.029, 1.0},
	MediumFormat:     {0.045, 0.64},
	MediumFormat4433: {0.036, 0.79},
	APSC:             {0.019, 1.5},
	Micro43:          {0.015, 2.0},
	OneInch:          {0.011, 2.7},
}

var sensorOrder = []Sensor{FullFrame, MediumFormat, MediumFormat4433, APSC, Micro43, OneInch}

// Sensors lists every sensor format in display order.
func Sensors() []Sensor {
	return append([]Sensor(nil), sensorOrder...)
}

func (s Sensor) Valid() bool {
	_, ok := sensors[s]
	return ok
}

// CircleOfConfusion returns the acceptable blur circle in millimeters.
func (s Sensor) CircleOfConfusion() float64 { return sensors[s].circleOfConfusion }

// CropFactor returns the diagonal ratio relative to 35mm full frame.
func (s Sensor) CropFactor() float64 { return sensors[s].cropFactor }

func ParseSensor(v string) (Sensor, error) {
	v = strings.TrimSpace(v)
	for _, s := range sensorOrder {
		if strings.EqualFold(v, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown sensor %q", ErrInvalidInput, v)
}

func (s *Sensor) UnmarshalText(b []byte) error {
	v, err := ParseSensor(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DepthOfField is the acceptably sharp zone around the focus distance, in
// meters. Far is +Inf when it reaches infinity.
type DepthOfField struct {
	Near  float64 `json:"near"`
	Far   float64 `json:"far"`
	Total float64 `json:"total"`
}

func (d DepthOfField) Infinite() bool {
	return math.IsInf(d.Far, 1)
}

// MarshalJSON writes null for the far limit and total when they are
// infinite, which JSON numbers cannot express.
func (d DepthOfField) MarshalJSON() ([]byte, error) {
	out := struct {
		Near     float64  `json:"near"`
		Far      *float64 `json:"far"`
		Total    *float64 `json:"total"`
		Infinite bool     `json:"infinite"`
	}{Near: d.Near, Infinite: d.Infinite()}
	if !out.Infinite {
		out.Far, out.Total = &d.Far, &d.Total
	}
	return json.Marshal(out)
}

// Hyperfocal returns the hyperfocal distance in meters.
func Hyperfocal(focalMM, aperture float64, sensor Sensor) (float64, error) {
	if err := checkLens(focalMM, aperture, sensor); err != nil {
		return 0, err
	}
	return hyperfocal(focalMM/1000, aperture, sensor.CircleOfConfusion()/1000), nil
}

func hyperfocal(f, n, c float64) float64 {
	return (f*f)/(n*c) + f
}

// ComputeDepthOfField returns the near and far limits of acceptable
// sharpness when focused at distanceM meters.
func ComputeDepthOfField(focalMM, aperture, distanceM float64, sensor Sensor) (DepthOfField, error) {
	if err := checkLens(focalMM, aperture, sensor); err != nil {
		return DepthOfField{}, err
	}
	if !positive(distanceM) {
		return DepthOfField{}, fmt.Errorf("%w: focus distance must be positive, got %g", ErrInvalidInput, distanceM)
	}

	f := focalMM / 1000
	s := distanceM
	h := hyperfocal(f, aperture, sensor.CircleOfConfusion()/1000)

	near := (s * (h - f)) / (h + s - 2*f)
	far := (s * (h - f)) / (h - s)
	if far <= 0 || far > farLimit {
		far = math.Inf(1)
	}
	near = math.Max(minNear, near)

	return DepthOfField{Near: near, Far: far, Total: far - near}, nil
}

// EquivalentFocalLength returns the 35mm-equivalent focal length in mm.
func EquivalentFocalLength(focalMM float64, sensor Sensor) (float64, error) {
	if !positive(focalMM) {
		return 0, fmt.Errorf("%w: focal length must be positive, got %g", ErrInvalidInput, focalMM)
	}
	if !sensor.Valid() {
		return 0, fmt.Errorf("%w: unknown sensor %q", ErrInvalidInput, sensor)
	}
	return focalMM * sensor.CropFactor(), nil
}

func checkLens(focalMM, aperture float64, sensor Sensor) error {
	if !positive(focalMM) {
		return fmt.Errorf("%w: focal length must be positive, got %g", ErrInvalidInput, focalMM)
	}
	if !positive(aperture) {
		return fmt.Errorf("%w: aperture must be positive, got %g", ErrInvalidInput, aperture)
	}
	if !sensor.Valid() {
		return fmt.Errorf("%w: unknown sensor %q", ErrInvalidInput, sensor)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// FormatDistance renders meters with two decimals, or "∞".
func FormatDistance(m float64) string {
	if math.IsInf(m, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f m", m)
}
