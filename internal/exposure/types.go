package exposure

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned by Validate and the Parse functions.
var ErrInvalidInput = errors.New("invalid exposure input")

// ISO bounds accepted by Validate.
const (
	MinISO  = 100
	MaxISO  = 3200
	ISOStep = 100
)

type LightCondition string

const (
	Sunny    LightCondition = "sunny"
	Cloudy   LightCondition = "cloudy"
	Overcast LightCondition = "overcast"
	Night    LightCondition = "night"
	Indoor   LightCondition = "indoor"
)

type SceneMode string

const (
	Sport     SceneMode = "sport"
	Portrait  SceneMode = "portrait"
	Landscape SceneMode = "landscape"
	Macro     SceneMode = "macro"
	NightMode SceneMode = "night"
)

type MeteringMode string

const (
	Evaluative     MeteringMode = "evaluative"
	CenterWeighted MeteringMode = "centerWeighted"
	Spot           MeteringMode = "spot"
)

// Input is what a photographer picks.
type Input struct {
	LightCondition LightCondition `json:"lightCondition"`
	ISO            float64        `json:"iso"`
	SceneMode      SceneMode      `json:"sceneMode"`
}

// Result is the recommended exposure. ShutterSpeed is the denominator of
// the exposure time, so 125 means 1/125 s.
type Result struct {
	Aperture             float64      `json:"aperture"`
	ShutterSpeed         float64      `json:"shutterSpeed"`
	MeteringMode         MeteringMode `json:"meteringMode"`
	ExposureCompensation float64      `json:"exposureCompensation"`
}

// Calculate runs the calculator on the input.
func (in Input) Calculate() Result {
	return Calculate(in.LightCondition, in.ISO, in.SceneMode)
}

// Validate checks the input the way the presentation layer constrains it.
func (in Input) Validate() error {
	if !in.LightCondition.Valid() {
		return fmt.Errorf("%w: unknown light condition %q", ErrInvalidInput, in.LightCondition)
	}
	if !in.SceneMode.Valid() {
		return fmt.Errorf("%w: unknown scene mode %q", ErrInvalidInput, in.SceneMode)
	}
	if in.ISO < MinISO || in.ISO > MaxISO {
		return fmt.Errorf("%w: iso must be between %d and %d, got %g", ErrInvalidInput, MinISO, MaxISO, in.ISO)
	}
	if int(in.ISO)%ISOStep != 0 || in.ISO != float64(int(in.ISO)) {
		return fmt.Errorf("%w: iso must be a multiple of %d, got %g", ErrInvalidInput, ISOStep, in.ISO)
	}
	return nil
}

var (
	lightConditions = []LightCondition{Sunny, Cloudy, Overcast, Night, Indoor}
	sceneModes      = []SceneMode{Sport, Portrait, Landscape, Macro, NightMode}
	meteringModes   = []MeteringMode{Evaluative, CenterWeighted, Spot}
)

// LightConditions lists every light condition in display order.
func LightConditions() []LightCondition {
	return append([]LightCondition(nil), lightConditions...)
}

// SceneModes lists every scene mode in display order.
func SceneModes() []SceneMode {
	return append([]SceneMode(nil), sceneModes...)
}

// MeteringModes lists every metering mode in display order.
func MeteringModes() []MeteringMode {
	return append([]MeteringMode(nil), meteringModes...)
}

func (l LightCondition) Valid() bool {
	for _, v := range lightConditions {
		if v == l {
			return true
		}
	}
	return false
}

func (s SceneMode) Valid() bool {
	for _, v := range sceneModes {
		if v == s {
			return true
		}
	}
	return false
}

func (m MeteringMode) Valid() bool {
	for _, v := range meteringModes {
		if v == m {
			return true
		}
	}
	return false
}

// English display names. Localized labels live in the labels package.
var (
	lightNames = map[LightCondition]string{
		Sunny: "Sunny", Cloudy: "Cloudy", Overcast: "Overcast", Night: "Night", Indoor: "Indoor",
	}
	sceneNames = map[SceneMode]string{
		Sport: "Sports", Portrait: "Portrait", Landscape: "Landscape", Macro: "Macro", NightMode: "Night",
	}
	meteringNames = map[MeteringMode]string{
		Evaluative: "Evaluative", CenterWeighted: "Center-weighted", Spot: "Spot",
	}
)

func (l LightCondition) EnglishName() string { return lightNames[l] }
func (s SceneMode) EnglishName() string      { return sceneNames[s] }
func (m MeteringMode) EnglishName() string   { return meteringNames[m] }

// Legacy labels are the raw values the original app wrote to disk.
var (
	lightLegacy = map[LightCondition]string{
		Sunny: "晴天", Cloudy: "多云", Overcast: "阴天", Night: "夜间", Indoor: "室内",
	}
	sceneLegacy = map[SceneMode]string{
		Sport: "运动", Portrait: "人像", Landscape: "风景", Macro: "微距", NightMode: "夜景",
	}
	meteringLegacy = map[MeteringMode]string{
		Evaluative: "评价测光", CenterWeighted: "中央重点", Spot: "点测光",
	}
)

func (l LightCondition) LegacyLabel() string { return lightLegacy[l] }
func (s SceneMode) LegacyLabel() string      { return sceneLegacy[s] }
func (m MeteringMode) LegacyLabel() string   { return meteringLegacy[m] }

// ParseLightCondition accepts a tag, an English name or a legacy label.
func ParseLightCondition(s string) (LightCondition, error) {
	v := strings.TrimSpace(s)
	for _, l := range lightConditions {
		if strings.EqualFold(v, string(l)) || strings.EqualFold(v, l.EnglishName()) || v == l.LegacyLabel() {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown light condition %q", ErrInvalidInput, s)
}

// ParseSceneMode accepts a tag, an English name or a legacy label.
func ParseSceneMode(s string) (SceneMode, error) {
	v := strings.TrimSpace(s)
	for _, m := range sceneModes {
		if strings.EqualFold(v, string(m)) || strings.EqualFold(v, m.EnglishName()) || v == m.LegacyLabel() {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown scene mode %q", ErrInvalidInput, s)
}

// ParseMeteringMode accepts a tag, an English name or a legacy label.
func ParseMeteringMode(s string) (MeteringMode, error) {
	v := strings.TrimSpace(s)
	for _, m := range meteringModes {
		if strings.EqualFold(v, string(m)) || strings.EqualFold(v, m.EnglishName()) || v == m.LegacyLabel() {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown metering mode %q", ErrInvalidInput, s)
}

func (l *LightCondition) UnmarshalText(b []byte) error {
	v, err := ParseLightCondition(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (s *SceneMode) UnmarshalText(b []byte) error {
	v, err := ParseSceneMode(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (m *MeteringMode) UnmarshalText(b []byte) error {
	v, err := ParseMeteringMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
