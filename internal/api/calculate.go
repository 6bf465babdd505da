package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/labels"
	"github.com/tabular/shotsmarts/internal/optics"
)

// calculateRequest accepts tags, English names or legacy labels for the
// enum fields.
type calculateRequest struct {
	LightCondition string  `json:"lightCondition"`
	ISO            float64 `json:"iso"`
	SceneMode      string  `json:"sceneMode"`
}

func (req calculateRequest) input() (exposure.Input, error) {
	light, err := exposure.ParseLightCondition(req.LightCondition)
	if err != nil {
		return exposure.Input{}, err
	}
	scene, err := exposure.ParseSceneMode(req.SceneMode)
	if err != nil {
		return exposure.Input{}, err
	}
	in := exposure.Input{LightCondition: light, ISO: req.ISO, SceneMode: scene}
	if err := in.Validate(); err != nil {
		return exposure.Input{}, err
	}
	return in, nil
}

type displayLabels struct {
	Language       string `json:"language"`
	LightCondition string `json:"lightCondition"`
	SceneMode      string `json:"sceneMode"`
	MeteringMode   string `json:"meteringMode"`
}

type calculateResponse struct {
	Input         exposure.Input     `json:"input"`
	Result        exposure.Result    `json:"result"`
	Formatted     exposure.Formatted `json:"formatted"`
	ExposureValue float64            `json:"exposureValue"`
	Labels        displayLabels      `json:"labels"`
}

func (s *Service) calculate(in exposure.Input, catalog *labels.Catalog) calculateResponse {
	result := in.Calculate()
	return calculateResponse{
		Input:         in,
		Result:        result,
		Formatted:     result.Format(),
		ExposureValue: exposure.ExposureValue(result.Aperture, result.ShutterSpeed),
		Labels: displayLabels{
			Language:       catalog.Tag().String(),
			LightCondition: catalog.Light(in.LightCondition),
			SceneMode:      catalog.Scene(in.SceneMode),
			MeteringMode:   catalog.Metering(result.MeteringMode),
		},
	}
}

// HandleCalculate reads the input from the query string on GET and from a
// JSON body on POST.
func (s *Service) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.logger.Debug("Failed to decode calculate request", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		q := r.URL.Query()
		req.LightCondition = q.Get("light")
		req.SceneMode = q.Get("scene")
		iso, err := floatParam(r, "iso")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.ISO = iso
	}

	in, err := req.input()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.calculate(in, s.catalogFor(r)))
}

// catalogFor picks the label language from ?lang, then Accept-Language,
// then the configured locale.
func (s *Service) catalogFor(r *http.Request) *labels.Catalog {
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		return labels.For(lang)
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		return labels.For(labels.Resolve(accept).String())
	}
	return labels.For(s.locale)
}

func (s *Service) HandleHyperfocal(w http.ResponseWriter, r *http.Request) {
	focal, aperture, sensor, err := lensParams(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	h, err := optics.Hyperfocal(focal, aperture, sensor)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"focal":      focal,
		"aperture":   aperture,
		"sensor":     sensor,
		"hyperfocal": h,
		"formatted":  optics.FormatDistance(h),
	})
}

func (s *Service) HandleDepthOfField(w http.ResponseWriter, r *http.Request) {
	focal, aperture, sensor, err := lensParams(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	distance, err := floatParam(r, "distance")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dof, err := optics.ComputeDepthOfField(focal, aperture, distance, sensor)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"focal":         focal,
		"aperture":      aperture,
		"distance":      distance,
		"sensor":        sensor,
		"depthOfField":  dof,
		"formattedNear": optics.FormatDistance(dof.Near),
		"formattedFar":  optics.FormatDistance(dof.Far),
	})
}

func (s *Service) HandleEquivalentFocalLength(w http.ResponseWriter, r *http.Request) {
	focal, err := floatParam(r, "focal")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sensor, err := sensorParam(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	equiv, err := optics.EquivalentFocalLength(focal, sensor)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"focal":      focal,
		"sensor":     sensor,
		"cropFactor": sensor.CropFactor(),
		"equivalent": equiv,
	})
}

func lensParams(r *http.Request) (focal, aperture float64, sensor optics.Sensor, err error) {
	if focal, err = floatParam(r, "focal"); err != nil {
		return
	}
	if aperture, err = floatParam(r, "aperture"); err != nil {
		return
	}
	sensor, err = sensorParam(r)
	return
}

// sensorParam defaults to full frame when the parameter is absent.
func sensorParam(r *http.Request) (optics.Sensor, error) {
	v := r.URL.Query().Get("sensor")
	if v == "" {
		return optics.FullFrame, nil
	}
	return optics.ParseSensor(v)
}

func floatParam(r *http.Request, name string) (float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, fmt.Errorf("%w: missing %s", errBadRequest, name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, v)
	}
	return f, nil
}
