package emotion

import (
	"math"
	"testing"
)

func TestNew_Clamps(t *testing.T) {
	s := New(-2, 1.5, -0.1, 3)
	if s.Valence != -1 || s.Arousal != 1 || s.Dominance != 0 || s.Confidence != 1 {
		t.Errorf("clamped signal = %+v", s)
	}
}

func TestNeutral(t *testing.T) {
	s := Neutral()
	if s.Valence != 0 || s.Arousal != 0 || s.Dominance != 0.5 {
		t.Errorf("neutral = %+v", s)
	}
	if !s.IsNeutral() || s.IsPositive() || s.IsNegative() {
		t.Error("neutral signal misclassified")
	}
}

func TestTendency(t *testing.T) {
	cases := []struct {
		name    string
		valence float64
		arousal float64
		dom     float64
		want    string
	}{
		{"excited", 0.8, 0.8, 0.5, "excited"},
		{"relaxed", 0.8, 0.1, 0.5, "relaxed"},
		{"happy", 0.8, 0.5, 0.5, "happy"},
		{"content", 0.2, 0.2, 0.5, "content"},
		{"angry", -0.8, 0.9, 0.8, "angry"},
		{"stressed", -0.8, 0.9, 0.2, "stressed"},
		{"anxious", -0.5, 0.5, 0.5, "anxious"},
		{"sad", -0.5, 0.1, 0.5, "sad"},
		{"bored", 0.0, 0.1, 0.5, "bored"},
		{"neutral", 0.0, 0.5, 0.5, "neutral"},
		{"undefined", -0.2, 0.9, 0.5, "undefined"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(tc.valence, tc.arousal, tc.dom, 1)
			if got := s.Tendency(); got != tc.want {
				t.Errorf("Tendency(%v, %v, %v) = %q, want %q", tc.valence, tc.arousal, tc.dom, got, tc.want)
			}
		})
	}
}

func TestValencePredicates(t *testing.T) {
	if !New(0.5, 0, 0, 0).IsPositive() {
		t.Error("0.5 valence not positive")
	}
	if !New(-0.5, 0, 0, 0).IsNegative() {
		t.Error("-0.5 valence not negative")
	}
	// The +-0.1 band counts as neutral.
	if New(0.1, 0, 0, 0).IsPositive() || New(-0.1, 0, 0, 0).IsNegative() {
		t.Error("band edge classified as polarized")
	}
}

func TestIntensity(t *testing.T) {
	if got := (Signal{}).Intensity(); got != 0 {
		t.Errorf("zero signal intensity = %v, want 0", got)
	}
	if got := New(1, 1, 1, 1).Intensity(); math.Abs(got-1) > 1e-9 {
		t.Errorf("max signal intensity = %v, want 1", got)
	}
	want := 0.5 / math.Sqrt(3)
	if got := Neutral().Intensity(); math.Abs(got-want) > 1e-9 {
		t.Errorf("neutral intensity = %v, want %v", got, want)
	}
}
