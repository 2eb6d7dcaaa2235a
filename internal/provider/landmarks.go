package provider

import (
	"fmt"
	"math"
)

// 68-point layout (iBUG 300-W), as produced by face-api.js and dlib.
const (
	landmarkCount   = 68
	noseStart       = 27
	leftEyeStart    = 36
	rightEyeStart   = 42
	eyePointCount   = 6
	nosePointCount  = 9
	noseBridgeCount = 3
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Midpoint returns the point halfway between p and q.
func (p Point) Midpoint(q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// EyeLandmarks names the six contour points of one eye, clockwise from the
// corner on the image-left side. Left/right refer to image coordinates, so
// both eyes share the same naming.
type EyeLandmarks struct {
	LeftCorner  Point `json:"left_corner"`
	UpperLeft   Point `json:"upper_left"`
	UpperRight  Point `json:"upper_right"`
	RightCorner Point `json:"right_corner"`
	LowerRight  Point `json:"lower_right"`
	LowerLeft   Point `json:"lower_left"`
}

// NoseLandmarks names the bridge points, the tip and the lower base.
type NoseLandmarks struct {
	Bridge [noseBridgeCount]Point `json:"bridge"`
	Tip    Point                  `json:"tip"`
	Base   [5]Point               `json:"base"`
}

// Landmarks are the named regions used by attention geometry. Points keeps
// the raw 68-point set when the source provides one.
type Landmarks struct {
	LeftEye  EyeLandmarks  `json:"left_eye"`
	RightEye EyeLandmarks  `json:"right_eye"`
	Nose     NoseLandmarks `json:"nose"`
	Points   []Point       `json:"points,omitempty"`
}

// FromPoints68 resolves a 68-point landmark set into named regions.
func FromPoints68(points []Point) (*Landmarks, error) {
	if len(points) != landmarkCount {
		return nil, fmt.Errorf("%w: got %d points, want %d", ErrInvalidLandmarks, len(points), landmarkCount)
	}

	lm := &Landmarks{
		LeftEye:  eyeFrom(points[leftEyeStart : leftEyeStart+eyePointCount]),
		RightEye: eyeFrom(points[rightEyeStart : rightEyeStart+eyePointCount]),
		Points:   append([]Point(nil), points...),
	}

	nose := points[noseStart : noseStart+nosePointCount]
	copy(lm.Nose.Bridge[:], nose[:noseBridgeCount])
	lm.Nose.Tip = nose[noseBridgeCount]
	copy(lm.Nose.Base[:], nose[noseBridgeCount+1:])

	return lm, nil
}

func eyeFrom(p []Point) EyeLandmarks {
	return EyeLandmarks{
		LeftCorner:  p[0],
		UpperLeft:   p[1],
		UpperRight:  p[2],
		RightCorner: p[3],
		LowerRight:  p[4],
		LowerLeft:   p[5],
	}
}
