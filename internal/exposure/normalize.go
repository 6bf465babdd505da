package exposure

import "math"

var standardShutterSpeeds = []float64{1, 2, 4, 8, 15, 30, 60, 125, 250, 500, 1000, 2000, 4000}

// StandardShutterSpeeds returns the standard shutter denominators in
// ascending order.
func StandardShutterSpeeds() []float64 {
	return append([]float64(nil), standardShutterSpeeds...)
}

// NormalizeShutterSpeed snaps a shutter denominator to the closest standard
// value. On a tie the smaller value wins.
func NormalizeShutterSpeed(speed float64) float64 {
	closest := standardShutterSpeeds[0]
	minDiff := math.Abs(closest - speed)
	for _, std := range standardShutterSpeeds[1:] {
		if diff := math.Abs(std - speed); diff < minDiff {
			minDiff = diff
			closest = std
		}
	}
	return closest
}

// standard aperture stops offered by front ends
var standardApertures = []float64{1.4, 1.8, 2.0, 2.8, 4.0, 5.6, 8.0, 11.0, 16.0, 22.0}

// StandardApertures returns the aperture stops offered for selection.
func StandardApertures() []float64 {
	return append([]float64(nil), standardApertures...)
}
