// Package exifimport reads the exposure a photo was actually taken with and
// compares it to the calculator's recommendation.
package exifimport

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/storage"
)

var (
	ErrNoExif     = errors.New("no exif data")
	ErrIncomplete = errors.New("exif data lacks exposure fields")
)

// Observed is the exposure recorded in a photo's EXIF block.
type Observed struct {
	Aperture     float64               `json:"aperture"`
	ExposureTime float64               `json:"exposureTime"` // seconds
	ISO          float64               `json:"iso"`
	ExposureBias float64               `json:"exposureBias"`
	MeteringMode exposure.MeteringMode `json:"meteringMode,omitempty"`
	TakenAt      time.Time             `json:"takenAt,omitempty"`
}

// ShutterSpeed returns the exposure time as a shutter denominator.
func (o Observed) ShutterSpeed() float64 {
	if o.ExposureTime <= 0 {
		return 0
	}
	return 1 / o.ExposureTime
}

// ReadFile opens path and reads its EXIF block.
func ReadFile(path string) (Observed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Observed{}, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a JPEG or TIFF stream. FNumber, ExposureTime and ISO are
// required; the other fields are filled when present.
func Read(r io.Reader) (Observed, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return Observed{}, fmt.Errorf("%w: %v", ErrNoExif, err)
	}

	var obs Observed
	var missing []exif.FieldName

	if v, ok := rational(x, exif.FNumber); ok {
		obs.Aperture = v
	} else {
		missing = append(missing, exif.FNumber)
	}
	if v, ok := rational(x, exif.ExposureTime); ok {
		obs.ExposureTime = v
	} else {
		missing = append(missing, exif.ExposureTime)
	}
	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := tag.Int(0); err == nil && v > 0 {
			obs.ISO = float64(v)
		}
	}
	if obs.ISO == 0 {
		missing = append(missing, exif.ISOSpeedRatings)
	}
	if len(missing) > 0 {
		return obs, fmt.Errorf("%w: %v", ErrIncomplete, missing)
	}

	if v, ok := rational(x, exif.ExposureBiasValue); ok {
		obs.ExposureBias = v
	}
	if tag, err := x.Get(exif.MeteringMode); err == nil {
		if v, err := tag.Int(0); err == nil {
			obs.MeteringMode = meteringMode(v)
		}
	}
	if tm, err := x.DateTime(); err == nil {
		obs.TakenAt = tm
	}
	return obs, nil
}

func rational(x *exif.Exif, name exif.FieldName) (float64, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	num, denom, err := tag.Rat2(0)
	if err != nil || denom == 0 {
		return 0, false
	}
	return float64(num) / float64(denom), true
}

// meteringMode maps the EXIF MeteringMode code onto the calculator's modes.
// Unknown and "other" codes map to the empty mode.
func meteringMode(code int) exposure.MeteringMode {
	switch code {
	case 1, 5: // average, pattern
		return exposure.Evaluative
	case 2:
		return exposure.CenterWeighted
	case 3, 4, 6: // spot, multi-spot, partial
		return exposure.Spot
	default:
		return ""
	}
}

// Recommend runs the calculator at the photo's ISO.
func (o Observed) Recommend(light exposure.LightCondition, scene exposure.SceneMode) exposure.Result {
	return exposure.Calculate(light, o.ISO, scene)
}

// Comparison describes how a photo's exposure differs from a
// recommendation at the same ISO. Positive stops mean the photo gathered
// less light than recommended.
type Comparison struct {
	ApertureStops     float64 `json:"apertureStops"`
	ShutterStops      float64 `json:"shutterStops"`
	Stops             float64 `json:"stops"`
	CompensationDelta float64 `json:"compensationDelta"`
	SameMetering      bool    `json:"sameMetering"`
}

func Compare(observed Observed, recommended exposure.Result) Comparison {
	shutter := observed.ShutterSpeed()
	c := Comparison{
		ApertureStops:     2 * math.Log2(observed.Aperture/recommended.Aperture),
		ShutterStops:      math.Log2(shutter / recommended.ShutterSpeed),
		CompensationDelta: observed.ExposureBias - recommended.ExposureCompensation,
		SameMetering:      observed.MeteringMode == recommended.MeteringMode,
	}
	c.Stops = exposure.ExposureValue(observed.Aperture, shutter) -
		exposure.ExposureValue(recommended.Aperture, recommended.ShutterSpeed)
	return c
}

// Draft builds a history entry holding the photo's actual settings. The ISO
// is rounded to the nearest selectable step.
func (o Observed) Draft(name string, light exposure.LightCondition, scene exposure.SceneMode) storage.Draft {
	metering := o.MeteringMode
	if metering == "" {
		metering = exposure.Evaluative
	}

	notes := "Imported from EXIF"
	if !o.TakenAt.IsZero() {
		notes += ", taken " + o.TakenAt.Format("2006-01-02 15:04:05")
	}

	return storage.Draft{
		Name:  name,
		Notes: notes,
		Input: exposure.Input{
			LightCondition: light,
			ISO:            selectableISO(o.ISO),
			SceneMode:      scene,
		},
		Result: exposure.Result{
			Aperture:             o.Aperture,
			ShutterSpeed:         o.ShutterSpeed(),
			MeteringMode:         metering,
			ExposureCompensation: o.ExposureBias,
		},
	}
}

func selectableISO(iso float64) float64 {
	v := math.Round(iso/exposure.ISOStep) * exposure.ISOStep
	return math.Max(exposure.MinISO, math.Min(exposure.MaxISO, v))
}
