// Package emotion models emotion signals on the VAD (Valence-Arousal-Dominance)
// scale. Signals are produced by an inference layer and used only as a
// read-time ranking input; they are never persisted.
package emotion

import "math"

// Signal is a point in 3D VAD space.
type Signal struct {
	// Valence is pleasantness: -1.0 (very negative) to +1.0 (very positive).
	Valence float64 `json:"valence"`

	// Arousal is activation: 0.0 (calm) to 1.0 (highly activated).
	Arousal float64 `json:"arousal"`

	// Dominance is control level: 0.0 (submissive) to 1.0 (dominant).
	Dominance float64 `json:"dominance"`

	// Confidence is the producing model's confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Context is the raw context the model analyzed.
	Context string `json:"context,omitempty"`
}

// New creates a Signal with all axes clamped to their valid ranges.
func New(valence, arousal, dominance, confidence float64) Signal {
	return Signal{
		Valence:    clamp(valence, -1, 1),
		Arousal:    clamp(arousal, 0, 1),
		Dominance:  clamp(dominance, 0, 1),
		Confidence: clamp(confidence, 0, 1),
	}
}

// Neutral returns the neutral signal used when no emotion is supplied.
func Neutral() Signal {
	return Signal{Valence: 0, Arousal: 0, Dominance: 0.5, Confidence: 0}
}

// tendencyRegion is a labeled box in VAD space. Regions with
// dominanceUnconstrained set match any dominance value.
type tendencyRegion struct {
	label                  string
	vMin, vMax             float64
	aMin, aMax             float64
	dMin, dMax             float64
	dominanceUnconstrained bool
}

var tendencyRegions = []tendencyRegion{
	{label: "excited", vMin: 0.3, vMax: 1.0, aMin: 0.6, aMax: 1.0, dominanceUnconstrained: true},
	{label: "relaxed", vMin: 0.3, vMax: 1.0, aMin: 0.0, aMax: 0.3, dominanceUnconstrained: true},
	{label: "happy", vMin: 0.3, vMax: 1.0, aMin: 0.3, aMax: 0.6, dominanceUnconstrained: true},
	{label: "content", vMin: 0.1, vMax: 1.0, aMin: 0.0, aMax: 0.4, dominanceUnconstrained: true},
	{label: "angry", vMin: -1.0, vMax: -0.3, aMin: 0.6, aMax: 1.0, dMin: 0.5, dMax: 1.0},
	{label: "stressed", vMin: -1.0, vMax: -0.3, aMin: 0.6, aMax: 1.0, dMin: 0.0, dMax: 0.5},
	{label: "anxious", vMin: -1.0, vMax: -0.3, aMin: 0.4, aMax: 0.6, dominanceUnconstrained: true},
	{label: "sad", vMin: -1.0, vMax: -0.3, aMin: 0.0, aMax: 0.4, dominanceUnconstrained: true},
	{label: "bored", vMin: -0.3, vMax: 0.3, aMin: 0.0, aMax: 0.3, dominanceUnconstrained: true},
	{label: "neutral", vMin: -0.3, vMax: 0.3, aMin: 0.3, aMax: 0.7, dominanceUnconstrained: true},
}

// Tendency derives a coarse label from the VAD coordinates.
// Returns "undefined" when no region matches.
func (s Signal) Tendency() string {
	for _, r := range tendencyRegions {
		if s.Valence < r.vMin || s.Valence > r.vMax {
			continue
		}
		if s.Arousal < r.aMin || s.Arousal > r.aMax {
			continue
		}
		if !r.dominanceUnconstrained && (s.Dominance < r.dMin || s.Dominance > r.dMax) {
			continue
		}
		return r.label
	}
	return "undefined"
}

// IsPositive reports whether valence is meaningfully positive.
func (s Signal) IsPositive() bool { return s.Valence > 0.1 }

// IsNegative reports whether valence is meaningfully negative.
func (s Signal) IsNegative() bool { return s.Valence < -0.1 }

// IsNeutral reports whether valence is near zero.
func (s Signal) IsNeutral() bool { return math.Abs(s.Valence) <= 0.1 }

// Intensity is the Euclidean distance from the neutral origin,
// normalized to [0, 1].
func (s Signal) Intensity() float64 {
	raw := math.Sqrt(s.Valence*s.Valence + s.Arousal*s.Arousal + s.Dominance*s.Dominance)
	return math.Min(1, raw/math.Sqrt(3))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
