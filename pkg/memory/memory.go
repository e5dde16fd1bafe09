// Package memory is the orchestration surface of the store. The controller
// owns the four durability tiers, routes writes by importance, probes reads
// most-durable-first, ranks recall with the caller's emotion signal, and
// drives the promotion and cleanup lifecycle. Tiers never decide their own
// transitions; every move goes through the controller.
package memory

import (
	"github.com/mnemo/mnemo/pkg/atom"
	"github.com/mnemo/mnemo/pkg/tier"
	"github.com/mnemo/mnemo/pkg/topic"
)

// Gate decides whether memory access is currently allowed. Consulted before
// every write and before emotion-weighted recall; a nil gate allows
// everything.
type Gate interface {
	// IsMemoryAllowed returns whether access is allowed and, when denied,
	// a human-readable reason. text is the content about to be written,
	// or empty for reads.
	IsMemoryAllowed(text string) (bool, string)
}

// Authorizer validates reviewer ids for privileged promotions. A nil
// authorizer accepts any non-empty id.
type Authorizer interface {
	IsReviewerAuthorized(id string) bool
}

// AtomContext is an atom together with its deserialized surroundings.
type AtomContext struct {
	ID     string
	Record atom.Record
	Meta   atom.Metadata
	Topic  *topic.Descriptor
	Tier   tier.Kind
}

// WeightedAtom is an atom scored for response generation. Higher scores
// should be used first.
type WeightedAtom struct {
	Context    AtomContext
	Score      float64
	Importance float64
}

// PromotionSummary reports how many atoms AutoPromote moved.
type PromotionSummary struct {
	ShortToMiddle int
	MiddleToLong  int
}

// CleanupSummary reports how many atoms Cleanup removed per tier.
type CleanupSummary struct {
	Short  int
	Middle int
	Long   int
}

// RepairSummary reports the outcome of a corrupt-atom repair sweep.
type RepairSummary struct {
	Repaired int
	Failed   int
}
