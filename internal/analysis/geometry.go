package analysis

import (
	"math"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
	"github.com/saturnino-fabrica-de-software/sentinela/internal/provider"
)

const (
	// DefaultLookingAwayThreshold is the absolute yaw, in degrees, above which
	// the candidate is considered to be looking away.
	DefaultLookingAwayThreshold = 45.0

	eyesOpenThreshold  = 0.2
	lookingAwayPenalty = 30.0
	yawPenalty         = 0.5
	pitchPenalty       = 0.3
)

// HeadRotation estimates yaw and pitch from the offset of the nose tip
// relative to the midpoint of the two image-left eye corners. Roll is not
// estimated and is always zero.
func HeadRotation(lm *provider.Landmarks) domain.HeadRotation {
	mid := lm.LeftEye.LeftCorner.Midpoint(lm.RightEye.LeftCorner)
	dx := lm.Nose.Tip.X - mid.X
	dy := lm.Nose.Tip.Y - mid.Y

	return domain.HeadRotation{
		Yaw:   degrees(math.Atan2(dx, math.Abs(dy))),
		Pitch: degrees(math.Atan2(dy, math.Abs(dx))),
		Roll:  0,
	}
}

// EyeAspectRatio is a two-point aperture proxy: the distance from each eye's
// right corner to its upper-left point, averaged over both eyes. It is not
// the six-point EAR and is not normalized by eye width.
func EyeAspectRatio(lm *provider.Landmarks) float64 {
	left := lm.LeftEye.RightCorner.Distance(lm.LeftEye.UpperLeft)
	right := lm.RightEye.RightCorner.Distance(lm.RightEye.UpperLeft)
	return (left + right) / 2
}

// EyesOpen reports whether an aspect ratio counts as open eyes.
func EyesOpen(ear float64) bool {
	return ear > eyesOpenThreshold
}

// LookingAway reports whether the yaw exceeds the threshold in either direction.
func LookingAway(rot domain.HeadRotation, threshold float64) bool {
	return math.Abs(rot.Yaw) > threshold
}

// AttentionScore penalizes looking away and any deviation from a frontal pose.
func AttentionScore(lookingAway bool, rot domain.HeadRotation) float64 {
	score := 100.0
	if lookingAway {
		score -= lookingAwayPenalty
	}
	score -= math.Abs(rot.Yaw) * yawPenalty
	score -= math.Abs(rot.Pitch) * pitchPenalty
	return clamp(score, 0, 100)
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
