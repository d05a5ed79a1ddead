// Package geometry maps a detected object's normalized bounding box to an
// approach angle and an estimated distance under a calibrated camera model.
package geometry

import (
	"math"

	"github.com/okian/rover/internal/domain/model"
)

// Near-field correction constants. The pinhole model is unreliable at close
// range with the reference camera/object pairing, so estimates below the band
// boundaries are corrected with empirically measured offsets. These are
// calibration constants, not derivable from the pinhole formula.
const (
	nearBandMaxMm   = 95  // estimates below this collapse to nearFieldMm
	midBandMaxMm    = 325 // estimates below this get midBandOffsetMm subtracted
	nearFieldMm     = 20
	midBandOffsetMm = 35

	imageCenter = 0.5
)

// Camera bundles the calibration constants of the forward-facing camera.
type Camera struct {
	HorizontalFOVDegrees float64
	CalibrationMult      float64 // angle correction factor, 0.75 for the reference camera
	FocalLengthMm        float64
	SensorHeightMm       float64
	MinDistanceMm        float64 // closest distance the lens can resolve
}

// AngleToTarget computes the turn angle toward the box in whole degrees.
// Positive means turn right, negative turn left, 0 when perfectly centered.
func AngleToTarget(box model.Box, hfovDegrees, calibration float64) int {
	offset := box.CenterX() - imageCenter
	return int(math.Round(offset * hfovDegrees * calibration))
}

// DistanceToTarget estimates the distance to the object in millimeters from
// its apparent size, using the pinhole relation and the two-band near-field
// correction. The relative size is the larger of box height and width, since
// the object may be partially occluded.
func DistanceToTarget(box model.Box, realSizeMm, focalLengthMm, sensorHeightMm, minDistanceMm float64) int {
	relative := box.LargestSide()
	if relative <= 0 {
		// A degenerate box carries no range information. Report the target
		// as out of range rather than letting the division blow up into an
		// undefined float-to-int conversion.
		return math.MaxInt32
	}
	estimate := focalLengthMm*realSizeMm/(relative*sensorHeightMm) - minDistanceMm

	switch {
	case estimate < nearBandMaxMm:
		return nearFieldMm
	case estimate < midBandMaxMm:
		return int(math.Round(estimate)) - midBandOffsetMm
	default:
		return int(math.Round(estimate))
	}
}

// Angle computes the turn angle toward the box under this camera.
func (c Camera) Angle(box model.Box) int {
	return AngleToTarget(box, c.HorizontalFOVDegrees, c.CalibrationMult)
}

// Distance estimates the distance to an object of known real size under this
// camera.
func (c Camera) Distance(box model.Box, realSizeMm float64) int {
	return DistanceToTarget(box, realSizeMm, c.FocalLengthMm, c.SensorHeightMm, c.MinDistanceMm)
}
