// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
)

// Box is a normalized bounding box in [0,1] image-fraction coordinates,
// origin top-left.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// CenterX returns the horizontal center of the box as an image fraction.
func (b Box) CenterX() float64 { return b.X + b.W/2 }

// LargestSide returns the larger of width and height. The target may be
// partially occluded, so the larger side is the better size estimate.
func (b Box) LargestSide() float64 {
	if b.H > b.W {
		return b.H
	}
	return b.W
}

// Detection is one labeled, scored bounding box from the perception
// collaborator. Produced fresh each decision cycle; never mutated.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Box   Box     `json:"box"`
}

// Observation is one inbound telemetry snapshot. Owned exclusively by one
// decision cycle; immutable once received.
type Observation struct {
	CarID         string      `json:"car_id"`
	Timestamp     int64       `json:"ts"` // unix milliseconds
	ImageRef      string      `json:"image_ref"`
	BallsCarried  int         `json:"balls_carried"`
	TargetColor   string      `json:"target_color"`
	ObstacleAhead bool        `json:"obstacle_ahead,omitempty"`
	Detections    []Detection `json:"detections,omitempty"`
}

// Field-presence errors reported by Validate.
var (
	ErrMissingCarID       = errors.New("missing car_id")
	ErrMissingTimestamp   = errors.New("missing or non-positive ts")
	ErrMissingImageRef    = errors.New("missing image_ref")
	ErrMissingTargetColor = errors.New("missing target_color")
	ErrNegativeBallCount  = errors.New("negative balls_carried")
)

// Validate reports whether the observation carries every field the
// decision engine requires.
func (o Observation) Validate() error {
	switch {
	case strings.TrimSpace(o.CarID) == "":
		return ErrMissingCarID
	case o.Timestamp <= 0:
		return ErrMissingTimestamp
	case strings.TrimSpace(o.ImageRef) == "":
		return ErrMissingImageRef
	case strings.TrimSpace(o.TargetColor) == "":
		return ErrMissingTargetColor
	case o.BallsCarried < 0:
		return ErrNegativeBallCount
	}
	return nil
}
