package memory

import (
	"context"
	"sort"

	"github.com/mnemo/mnemo/pkg/emotion"
)

// Defaults applied when an atom's metadata is missing or incomplete.
const (
	defaultImportance = 0.3
	defaultCoherence  = 0.5
)

// ReadForResponse loads the given atoms, scores each against the caller's
// emotion signal, and returns the top limit by descending score. A nil
// signal means neutral. Unreadable ids are skipped.
func (c *Controller) ReadForResponse(ctx context.Context, ids []string, sig *emotion.Signal, limit int) []WeightedAtom {
	if !c.allowed(ctx, "", "read_for_response") {
		return nil
	}

	eff := emotion.Neutral()
	if sig != nil {
		eff = *sig
	}

	results := make([]WeightedAtom, 0, len(ids))
	for _, id := range ids {
		actx := c.ReadWithContext(ctx, id)
		if actx == nil {
			continue
		}

		importance := actx.Meta.Importance
		if actx.Meta.Schema == 0 && importance == 0 {
			importance = defaultImportance
		}
		coherence := defaultCoherence
		if actx.Topic != nil {
			coherence = actx.Topic.Coherence
		}

		results = append(results, WeightedAtom{
			Context:    *actx,
			Score:      emotionWeight(importance, coherence, actx.Tier.Rank(), eff),
			Importance: importance,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// emotionWeight computes the VAD-weighted recall score.
//
// Valence blends the base: negative leans on importance (solid memories),
// positive leans on coherence (clear memories). Arousal is an urgency boost
// of up to 1.5x. Dominance scales with tier rank: high dominance pulls from
// deep tiers, low dominance favors shallow, recent memory.
func emotionWeight(importance, coherence float64, tierRank int, sig emotion.Signal) float64 {
	vNorm := (sig.Valence + 1.0) / 2.0
	blended := (1.0-vNorm)*importance + vNorm*coherence

	arousalBoost := 1.0 + sig.Arousal*0.5
	tierFactor := 1.0 + (sig.Dominance-0.5)*(float64(tierRank)/4.0)

	return blended * arousalBoost * tierFactor
}
